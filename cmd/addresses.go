package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/chrisdamba/homeservices/internal/api"
	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/spf13/cobra"
)

var addressesCmd = &cobra.Command{
	Use:   "addresses",
	Short: "Manage saved addresses (needs api.token)",
}

var addressesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved addresses",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		addresses, err := a.client.ListAddresses(ctx)
		if err != nil {
			return errors.New(api.UserMessage(err, "Failed to load addresses"))
		}
		out := cmd.OutOrStdout()
		if len(addresses) == 0 {
			fmt.Fprintln(out, "No saved addresses")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLABEL\tADDRESS\tDETAILS\tLOCATION")
		for _, ad := range addresses {
			loc := ""
			if ad.Location != nil {
				loc = ad.Location.String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", ad.ID, ad.Label, ad.Address, ad.Details, loc)
		}
		return w.Flush()
	},
}

var addressesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Save a new address",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		flags := cmd.Flags()
		address := models.Address{}
		address.Label, _ = flags.GetString("label")
		address.Address, _ = flags.GetString("address")
		address.Details, _ = flags.GetString("details")
		if flags.Changed("latitude") || flags.Changed("longitude") {
			lat, _ := flags.GetFloat64("latitude")
			lon, _ := flags.GetFloat64("longitude")
			address.Location = &models.Location{Lat: lat, Lon: lon}
		}

		created, err := a.client.CreateAddress(ctx, address)
		var invalid models.AddressErrors
		if errors.As(err, &invalid) {
			return err
		}
		if err != nil {
			return errors.New(api.UserMessage(err, "Failed to save address"))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Address saved: %s\n", created.ID)
		return nil
	},
}

var addressesRmCmd = &cobra.Command{
	Use:   "rm <address-id>",
	Short: "Delete a saved address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.client.DeleteAddress(ctx, args[0]); err != nil {
			return errors.New(api.UserMessage(err, "Failed to delete address"))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Address deleted")
		return nil
	},
}

func init() {
	addressesAddCmd.Flags().String("label", "", "Label, e.g. Home")
	addressesAddCmd.Flags().String("address", "", "Street address")
	addressesAddCmd.Flags().String("details", "", "Extra directions for the vendor")
	addressesAddCmd.Flags().Float64("latitude", 0, "Latitude")
	addressesAddCmd.Flags().Float64("longitude", 0, "Longitude")

	addressesCmd.AddCommand(addressesListCmd, addressesAddCmd, addressesRmCmd)
	rootCmd.AddCommand(addressesCmd)
}
