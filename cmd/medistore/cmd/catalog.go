package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/medistore/medistore/internal/domain/catalog"
	"github.com/medistore/medistore/internal/service"
)

var (
	catalogRefresh  bool
	catalogPage     int
	catalogLimit    int
	catalogSearch   string
	catalogCategory string
	catalogStatus   string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Browse products, orders and the store profile",
	Long: `Browse store data. Results are cached locally and served from the
cache until it expires; --refresh forces a request. When the server cannot
be reached, the last cached copy is shown and marked stale.`,
}

var catalogProductsCmd = &cobra.Command{
	Use:   "products",
	Short: "List inventory products",
	RunE:  runWithApp(runCatalogProducts),
}

var catalogOrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List orders",
	RunE:  runWithApp(runCatalogOrders),
}

var catalogStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Show the store profile",
	RunE:  runWithApp(runCatalogStore),
}

func init() {
	catalogCmd.PersistentFlags().BoolVar(&catalogRefresh, "refresh", false, "bypass the local cache")
	for _, c := range []*cobra.Command{catalogProductsCmd, catalogOrdersCmd} {
		c.Flags().IntVar(&catalogPage, "page", 1, "page number")
		c.Flags().IntVar(&catalogLimit, "limit", catalog.DefaultPageSize, "page size")
	}
	catalogProductsCmd.Flags().StringVar(&catalogSearch, "search", "", "filter by name")
	catalogProductsCmd.Flags().StringVar(&catalogCategory, "category", "", "filter by category")
	catalogOrdersCmd.Flags().StringVar(&catalogStatus, "status", "", "filter by status (pending, confirmed, processing, delivered, cancelled)")

	catalogCmd.AddCommand(catalogProductsCmd, catalogOrdersCmd, catalogStoreCmd)
	rootCmd.AddCommand(catalogCmd)
}

func runCatalogProducts(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
	res, err := a.catalog.Products(ctx, service.ProductQuery{
		Page:     catalogPage,
		Limit:    catalogLimit,
		Search:   catalogSearch,
		Category: catalogCategory,
		Refresh:  catalogRefresh,
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTOCK\tPRICE\tEXPIRY\t")
	for _, p := range res.Data.Data {
		stock := fmt.Sprintf("%d %s", p.Stock, p.Unit)
		if p.LowStock() {
			stock += " (low)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t\n", p.Name, stock, p.SellingPrice, p.ExpiryDate)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	printPageFooter(out, res.Data.Page, res.Data.TotalPages, res.Data.Total, res.FetchedAt, res.Hit, res.Stale)
	return nil
}

func runCatalogOrders(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
	res, err := a.catalog.Orders(ctx, service.OrderQuery{
		Page:    catalogPage,
		Limit:   catalogLimit,
		Status:  catalog.OrderStatus(catalogStatus),
		Refresh: catalogRefresh,
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tCUSTOMER\tITEMS\tTOTAL\tSTATUS\t")
	for _, o := range res.Data.Data {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%s\t\n", o.OrderNumber, o.Customer.Name, len(o.Items), o.TotalAmount, o.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	printPageFooter(out, res.Data.Page, res.Data.TotalPages, res.Data.Total, res.FetchedAt, res.Hit, res.Stale)
	return nil
}

func runCatalogStore(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
	res, err := a.catalog.StoreProfile(ctx, catalogRefresh)
	if err != nil {
		return err
	}
	p := res.Data
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", p.Name)
	fmt.Fprintf(out, "  Owner:    %s\n", p.OwnerName)
	fmt.Fprintf(out, "  Phone:    %s\n", p.Phone)
	fmt.Fprintf(out, "  Address:  %s, %s, %s %s\n", p.Address, p.City, p.State, p.Pincode)
	if p.GSTNumber != "" {
		fmt.Fprintf(out, "  GST:      %s\n", p.GSTNumber)
	}
	if p.DrugLicenseNumber != "" {
		fmt.Fprintf(out, "  License:  %s\n", p.DrugLicenseNumber)
	}
	fmt.Fprintf(out, "  Rating:   %.1f (%d reviews)\n", p.Rating, p.ReviewCount)
	printFreshness(out, res.FetchedAt, res.Hit, res.Stale)
	return nil
}

func printPageFooter(w io.Writer, page, pages, total int, fetched time.Time, hit, stale bool) {
	fmt.Fprintf(w, "\nPage %d of %d, %d total. ", page, pages, total)
	printFreshness(w, fetched, hit, stale)
}

func printFreshness(w io.Writer, fetched time.Time, hit, stale bool) {
	switch {
	case stale:
		fmt.Fprintf(w, "Offline: showing data from %s.\n", fetched.Local().Format(time.Kitchen))
	case hit:
		fmt.Fprintf(w, "Cached %s ago.\n", time.Since(fetched).Round(time.Second))
	default:
		fmt.Fprintln(w, "Fetched just now.")
	}
}
