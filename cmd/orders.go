package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/chrisdamba/homeservices/internal/journal"
	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/chrisdamba/homeservices/internal/repositories"
	"github.com/spf13/cobra"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Work with a single order",
}

var orderShowCmd = &cobra.Command{
	Use:   "show <order-id>",
	Short: "Show the confirmation details of an order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return showOrder(ctx, cmd.OutOrStdout(), a.client, args[0])
	},
}

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Work with the orders kept in the local order history",
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active and completed orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		orders, err := a.orders.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list orders: %w", err)
		}
		active, completed := repositories.SplitByActivity(orders)
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Active")
		printOrders(out, active, "No active orders")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Completed")
		printOrders(out, completed, "No completed orders")
		return nil
	},
}

var ordersExportCmd = &cobra.Command{
	Use:   "export <file.parquet>",
	Short: "Write the order history to a Parquet file",
	Long: `export writes every order in the local order history to a Parquet file. With
journal.cloud_storage.provider set to s3 the file is uploaded to
journal.cloud_storage.bucket_name under the given path instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.orders.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list orders: %w", err)
		}
		orders := make([]models.Order, len(list))
		for i, o := range list {
			orders[i] = *o
		}

		fw, where, err := openExport(cfg.Journal.CloudStorage, args[0])
		if err != nil {
			return err
		}
		if err := journal.WriteOrders(fw, orders); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d orders to %s\n", len(orders), where)
		return nil
	},
}

func init() {
	orderCmd.AddCommand(orderShowCmd)
	ordersCmd.AddCommand(ordersListCmd, ordersExportCmd)
	rootCmd.AddCommand(orderCmd, ordersCmd)
}

func openExport(storage models.CloudStorageConfig, path string) (source.ParquetFile, string, error) {
	factory, err := journal.NewCloudWriterFactory(storage)
	if err != nil {
		return nil, "", err
	}
	if factory == nil {
		fw, err := local.NewLocalFileWriter(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create file %s: %w", path, err)
		}
		return fw, path, nil
	}
	objectPath := filepath.ToSlash(path)
	fw, err := journal.OpenCloudParquetFile(factory, storage.BucketName, objectPath)
	if err != nil {
		return nil, "", err
	}
	return fw, fmt.Sprintf("s3://%s/%s", storage.BucketName, objectPath), nil
}

func printOrders(out io.Writer, orders []*models.Order, empty string) {
	if len(orders) == 0 {
		fmt.Fprintln(out, "  "+empty)
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tSTATUS\tSERVICE\tVENDOR\tPRICE\tPLACED")
	for _, o := range orders {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			o.ID, o.Status, o.ServiceID, o.VendorID, o.Price, o.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
}
