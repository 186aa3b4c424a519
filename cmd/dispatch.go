package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chrisdamba/homeservices/internal/api"
	"github.com/chrisdamba/homeservices/internal/dispatch"
	"github.com/chrisdamba/homeservices/internal/logger"
	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Order a service from a vendor and wait for the vendor to answer the call",
	Long: `dispatch places an order with the chosen vendor (the nearest vendor taking
phone calls when --vendor is not given), asks the backend to call the vendor
and shows the call until the vendor accepts, declines or does not answer.`,
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
		serviceName, _ := cmd.Flags().GetString("service-name")
		vendorID, _ := cmd.Flags().GetString("vendor")
		if serviceName == "" {
			serviceName = serviceID
		}

		sel := a.selector()
		vendors, err := sel.LoadVendors(ctx, categoryID, serviceID)
		if err != nil {
			return err
		}
		vendor, err := pickVendor(vendors, vendorID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		bar := callProgress(cmd.ErrOrStderr(), cfg.Dispatch.CallTimeout.Seconds())
		accepted := make(chan string, 1)

		session, err := sel.SelectVendor(ctx, vendor, dispatch.ServiceRequest{
			CategoryID:  categoryID,
			ServiceID:   serviceID,
			ServiceName: serviceName,
		}, dispatch.Callbacks{
			OnAccepted: func(orderID string) { accepted <- orderID },
			OnUpdate: func(s dispatch.Snapshot) {
				bar.Describe(s.Message)
				bar.Set(s.ElapsedSeconds)
			},
		})
		if errors.Is(err, dispatch.ErrInAppBookingUnsupported) {
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Order %s placed, calling %s\n", session.OrderID(), vendor.Name)
		<-session.Done()
		bar.Finish()
		fmt.Fprintln(out)

		snap := session.Snapshot()
		fmt.Fprintln(out, snap.Message)
		select {
		case orderID := <-accepted:
			return showOrder(context.WithoutCancel(ctx), out, a.client, orderID)
		default:
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	},
}

func init() {
	dispatchCmd.Flags().String("category", "", "Service category id")
	dispatchCmd.Flags().String("service", "", "Service id")
	dispatchCmd.Flags().String("service-name", "", "Service name used in the order description")
	dispatchCmd.Flags().String("vendor", "", "Vendor id (default: nearest vendor taking phone calls)")
	cobra.CheckErr(dispatchCmd.MarkFlagRequired("category"))
	cobra.CheckErr(dispatchCmd.MarkFlagRequired("service"))
	rootCmd.AddCommand(dispatchCmd)
}

// pickVendor finds vendorID in vendors, or the first vendor reachable by
// phone when vendorID is empty. vendors is sorted nearest first.
func pickVendor(vendors []models.Vendor, vendorID string) (models.Vendor, error) {
	for _, v := range vendors {
		if vendorID == "" && v.DispatchMode() == models.DispatchPhoneCall {
			return v, nil
		}
		if vendorID != "" && v.ID == vendorID {
			return v, nil
		}
	}
	if vendorID == "" {
		return models.Vendor{}, errors.New("no vendor takes phone calls for this service")
	}
	return models.Vendor{}, fmt.Errorf("vendor %s does not offer this service", vendorID)
}

func callProgress(w io.Writer, seconds float64) *progressbar.ProgressBar {
	return progressbar.NewOptions(int(seconds),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(dispatch.OutcomeCalling.Message()),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetItsString("s"),
	)
}

func showOrder(ctx context.Context, out io.Writer, client api.Client, orderID string) error {
	d, err := client.GetOrder(ctx, orderID)
	if err != nil {
		logger.Logger.WithError(err).WithField("order_id", orderID).Error("Failed to load order details")
		return errors.New(api.UserMessage(err, "Failed to load order details"))
	}
	fmt.Fprintf(out, "Order:    %s\n", d.ID)
	fmt.Fprintf(out, "Status:   %s\n", d.Status)
	fmt.Fprintf(out, "Service:  %s\n", d.OrderService.Name)
	if d.OrderService.Description != "" {
		fmt.Fprintf(out, "          %s\n", d.OrderService.Description)
	}
	fmt.Fprintf(out, "Price:    %s\n", d.Price)
	fmt.Fprintf(out, "Vendor:   %s\n", d.OrderVendor.User.Name)
	phone := d.OrderVendor.PhoneForCalls
	if phone == "" {
		phone = d.OrderVendor.User.Phone
	}
	if phone != "" {
		fmt.Fprintf(out, "Phone:    %s\n", phone)
	}
	if !d.CreatedAt.IsZero() {
		fmt.Fprintf(out, "Placed:   %s\n", d.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
