package cmd

import (
	"bytes"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/chrisdamba/homeservices/internal/sandbox"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

// startSandbox serves a sandbox backend for the test and returns its URL.
// The test also moves to an empty directory so no config file is read.
func startSandbox(t *testing.T) string {
	t.Helper()
	chdir(t, t.TempDir())

	logger, _ := logtest.NewNullLogger()
	ts := httptest.NewServer(sandbox.NewServer(models.SandboxConfig{
		Seed:             7,
		VendorsPerQuery:  5,
		StatusScript:     []string{"pending", "pending", "accepted"},
		CityLat:          31.5204,
		CityLon:          74.3587,
		UrbanRadius:      8,
		VerificationCode: "0427",
	}, sandbox.WithLogger(logger)))
	t.Cleanup(ts.Close)
	return ts.URL
}

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()
	err := rootCmd.Execute()
	return out.String(), err
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}
