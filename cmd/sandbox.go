package cmd

import (
	"github.com/chrisdamba/homeservices/internal/logger"
	"github.com/chrisdamba/homeservices/internal/sandbox"
	"github.com/spf13/cobra"
)

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Serve a local stand-in for the marketplace API",
	Long: `sandbox serves the service, sign-up, vendor, order, IVR and address
endpoints with generated vendors and a scripted call outcome, so the other
commands can be tried without a backend. Verification codes are logged
instead of texted. Metrics are exposed at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		srv := sandbox.NewServer(cfg.Sandbox, sandbox.WithLogger(logger.Logger))
		return srv.Run(ctx, cfg.Sandbox.Addr)
	},
}

func init() {
	sandboxCmd.Flags().String("addr", ":8080", "Listen address")
	sandboxCmd.Flags().Int64("seed", 42, "Random seed for generated vendors")
	sandboxCmd.Flags().StringSlice("status-script", []string{"pending", "pending", "accepted"}, "Statuses returned by successive polls once the call is placed")
	sandboxCmd.Flags().Bool("fail-calls", false, "Reject every IVR call request")
	sandboxCmd.Flags().Float64("unreachable-ratio", 0, "Share of vendors that never answer")
	sandboxCmd.Flags().String("verification-code", "", "Sign-up code to accept (default: a random code per request)")

	cobra.CheckErr(v.BindPFlag("sandbox.addr", sandboxCmd.Flags().Lookup("addr")))
	cobra.CheckErr(v.BindPFlag("sandbox.seed", sandboxCmd.Flags().Lookup("seed")))
	cobra.CheckErr(v.BindPFlag("sandbox.status_script", sandboxCmd.Flags().Lookup("status-script")))
	cobra.CheckErr(v.BindPFlag("sandbox.fail_calls", sandboxCmd.Flags().Lookup("fail-calls")))
	cobra.CheckErr(v.BindPFlag("sandbox.unreachable_ratio", sandboxCmd.Flags().Lookup("unreachable-ratio")))
	cobra.CheckErr(v.BindPFlag("sandbox.verification_code", sandboxCmd.Flags().Lookup("verification-code")))
	rootCmd.AddCommand(sandboxCmd)
}
