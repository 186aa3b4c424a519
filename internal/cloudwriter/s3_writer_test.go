package cloudwriter_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/chrisdamba/homeservices/internal/cloudwriter"
)

type fakeS3 struct {
	puts map[string][]byte
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	f.puts[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3Writer(t *testing.T) {
	t.Run("the object is uploaded once, on Close", func(t *testing.T) {
		fake := &fakeS3{}
		w, err := cloudwriter.NewS3WriterFactoryWithClient(fake).NewWriter("journal", "dispatch/a.parquet")
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte("PAR1"))
		w.Write([]byte("..."))
		if len(fake.puts) != 0 {
			t.Fatal("uploaded before Close")
		}

		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
		if got := string(fake.puts["journal/dispatch/a.parquet"]); got != "PAR1..." {
			t.Errorf("uploaded %q", got)
		}
		if _, err := w.Write([]byte("x")); err == nil {
			t.Error("write after Close succeeded")
		}
	})

	t.Run("upload failures are returned from Close", func(t *testing.T) {
		boom := errors.New("boom")
		w, _ := cloudwriter.NewS3WriterFactoryWithClient(&fakeS3{err: boom}).NewWriter("journal", "x")
		if err := w.Close(); !errors.Is(err, boom) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("an empty bucket is refused", func(t *testing.T) {
		if _, err := cloudwriter.NewS3WriterFactoryWithClient(&fakeS3{}).NewWriter("", "x"); err == nil {
			t.Error("NewWriter succeeded")
		}
	})
}
