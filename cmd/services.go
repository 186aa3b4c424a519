package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chrisdamba/homeservices/internal/api"
	"github.com/chrisdamba/homeservices/internal/logger"
	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/spf13/cobra"
)

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the services offered in a category",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		categoryID, _ := cmd.Flags().GetString("category")
		services, err := a.client.ListServices(ctx, categoryID)
		if err != nil {
			logger.Logger.WithError(err).WithField("category_id", categoryID).Error("Failed to fetch services")
			return errors.New(api.UserMessage(err, "Failed to fetch services"))
		}
		printServices(cmd.OutOrStdout(), services)
		return nil
	},
}

func init() {
	servicesCmd.Flags().String("category", "", "Service category id")
	cobra.CheckErr(servicesCmd.MarkFlagRequired("category"))
	rootCmd.AddCommand(servicesCmd)
}

func printServices(out io.Writer, services []models.Service) {
	if len(services) == 0 {
		fmt.Fprintln(out, "No services in this category")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tTIME\tRATING")
	for _, s := range services {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f (%d)\n", s.ID, s.Name, s.Price, s.Time, s.Rating, s.Reviews)
	}
	w.Flush()
}
