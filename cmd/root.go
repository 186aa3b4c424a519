package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chrisdamba/homeservices/internal/logger"
	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	cfg     *models.Config
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "homeservices",
	Short: "Books home-service vendors from the command line",
	Long: `homeservices is a client for the home-services marketplace API. It lists the
vendors offering a service, places an order with the one you pick, has the
backend call the vendor and follows the call until the vendor answers.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = models.LoadConfig(v, cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		return logger.Init(cfg.Log.Level, cfg.Log.Format)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./homeservices.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "Base URL of the marketplace API")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text or json)")
	rootCmd.PersistentFlags().String("journal", "none", "Where dispatch events go: none, console, json, parquet, kafka, rabbitmq (comma separated)")

	cobra.CheckErr(v.BindPFlag("api.base_url", rootCmd.PersistentFlags().Lookup("api-url")))
	cobra.CheckErr(v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")))
	cobra.CheckErr(v.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format")))
	cobra.CheckErr(v.BindPFlag("journal.destination", rootCmd.PersistentFlags().Lookup("journal")))
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
