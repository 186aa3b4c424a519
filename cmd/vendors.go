package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/spf13/cobra"
)

var vendorsCmd = &cobra.Command{
	Use:   "vendors",
	Short: "List the vendors offering a service, nearest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		categoryID, _ := cmd.Flags().GetString("category")
		serviceID, _ := cmd.Flags().GetString("service")
		vendors, err := a.selector().LoadVendors(ctx, categoryID, serviceID)
		if err != nil {
			return err
		}
		printVendors(cmd.OutOrStdout(), vendors, cfg.CustomerLocation())
		return nil
	},
}

func init() {
	vendorsCmd.Flags().String("category", "", "Service category id")
	vendorsCmd.Flags().String("service", "", "Service id")
	cobra.CheckErr(vendorsCmd.MarkFlagRequired("category"))
	cobra.CheckErr(vendorsCmd.MarkFlagRequired("service"))
	rootCmd.AddCommand(vendorsCmd)
}

func printVendors(out io.Writer, vendors []models.Vendor, origin models.Location) {
	if len(vendors) == 0 {
		fmt.Fprintln(out, "No vendors available for this service")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tRATING\tREVIEWS\tPRICE\tDISTANCE\tBOOKING")
	for _, v := range vendors {
		booking := "call"
		if v.DispatchMode() == models.DispatchInApp {
			booking = "app"
		}
		fmt.Fprintf(w, "%s\t%s\t%.1f\t%d\t%s\t%.1f km\t%s\n",
			v.ID, v.Name, v.Rating, v.Reviews, v.Price, v.Location.DistanceKm(origin), booking)
	}
	w.Flush()
}
