package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"twap-adapter/config"
	"twap-adapter/pkg/indexer"
	"twap-adapter/pkg/order"
	"twap-adapter/pkg/types"
	"twap-adapter/pkg/util"
)

var (
	// Order list flags
	orderStatusFilter string
	watchOrders       bool
	orderInterval     time.Duration
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Show the connected account's TWAP orders",
	Long: `Show the TWAP orders of the configured account with derived status,
progress, formatted amounts and USD values.

Orders are read from orders_file (an indexer dump) or from the local order
store filled with 'orders import'. Orders that can't be interpreted are
skipped and logged.

Examples:
  twap-adapter orders
  twap-adapter orders --status Open
  twap-adapter orders --watch --interval 10s`,
	Run: runOrders,
}

var ordersImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import raw order records into the local order store",
	Long: `Import raw order records for the configured account into the local order
store. Records that can't be interpreted as orders are skipped. Records with
an existing id replace the stored one.

Examples:
  twap-adapter orders import orders.json`,
	Args: cobra.ExactArgs(1),
	Run:  runOrdersImport,
}

var ordersRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an order from the local order store",
	Args:  cobra.ExactArgs(1),
	Run:   runOrdersRemove,
}

func init() {
	rootCmd.AddCommand(ordersCmd)
	ordersCmd.AddCommand(ordersImportCmd)
	ordersCmd.AddCommand(ordersRemoveCmd)

	ordersCmd.Flags().StringVar(&orderStatusFilter, "status", "", "Filter by status (Open, Filled, Expired, Canceled)")
	ordersCmd.Flags().BoolVarP(&watchOrders, "watch", "w", false, "Keep refreshing orders until interrupted")
	ordersCmd.Flags().DurationVar(&orderInterval, "interval", 0, "Refresh interval when watching (defaults to refresh_interval)")
}

func runOrders(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	status, err := parseStatusFilter(orderStatusFilter)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	a := setup(cmd)
	defer a.close()

	if !a.session.Provider().Connected() {
		printError(fmt.Errorf("no account configured. Please set TWAP_ADAPTER_ACCOUNT or add 'account' to .twap-adapter.yaml"))
		os.Exit(1)
	}

	src, err := orderSource(a.cfg)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	watcher := a.session.Watcher(src, util.RealClock{})

	if watchOrders {
		if jsonOutput {
			fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
			os.Exit(1)
		}
		watchOrderState(cmd.Context(), a, watcher, status)
		return
	}

	snap, err := watcher.Refresh(cmd.Context())
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	orders := filterOrders(snap.Orders, status)
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(orders, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayOrders(orders)
}

func watchOrderState(ctx context.Context, a *app, watcher *order.Watcher, status types.OrderStatus) {
	interval := orderInterval
	if interval == 0 {
		interval = a.cfg.RefreshInterval
	}
	watcher.SetInterval(interval)

	watcher.Subscribe(func(snap order.Snapshot) {
		fmt.Printf("\n%s  %s\n", color.HiBlackString(snap.At.UTC().Format(time.RFC3339)), color.HiBlackString(snap.ID))
		displayOrders(filterOrders(snap.Orders, status))
	})

	fmt.Printf("\nWatching orders of %s\n", color.CyanString(a.session.Provider().Account))
	fmt.Printf("Refreshing every %s. Press Ctrl+C to stop.\n", interval)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	watcher.Run(ctx)
	color.Yellow("\nStopped watching orders.")
}

func runOrdersImport(cmd *cobra.Command, args []string) {
	a := setup(cmd)
	defer a.close()

	account := a.session.Provider().Account
	if account == "" {
		printError(fmt.Errorf("no account configured. Please set TWAP_ADAPTER_ACCOUNT"))
		os.Exit(1)
	}

	records, err := indexer.FileSource{Path: args[0]}.Orders(cmd.Context(), account)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// only records that reconcile against the current token list are stored
	usable := usableRecords(a.session.Reconciler(), records, time.Now())
	if len(usable) == 0 {
		printError(fmt.Errorf("none of the %d record(s) in %s is a usable order", len(records), args[0]))
		os.Exit(1)
	}

	store, err := indexer.NewStore(a.cfg.OrdersStore)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	n, err := store.Put(account, usable)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("✓ Imported %d of %d record(s) into %s", n, len(records), store.GetFilePath()))
}

// usableRecords keeps the records the reconciler turns into an order
func usableRecords(r *order.Reconciler, records []any, now time.Time) []any {
	var usable []any
	for _, rec := range records {
		if len(r.ReconcileRecords([]any{rec}, now)) == 1 {
			usable = append(usable, rec)
		}
	}
	return usable
}

func runOrdersRemove(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	store, err := indexer.NewStore(cfg.OrdersStore)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if err := store.Delete(cfg.Account, args[0]); err != nil {
		printError(err)
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("✓ Order '%s' removed", args[0]))
}

func parseStatusFilter(s string) (types.OrderStatus, error) {
	if s == "" {
		return "", nil
	}
	for _, status := range types.OrderStatuses {
		if strings.EqualFold(string(status), s) {
			return status, nil
		}
	}
	return "", fmt.Errorf("invalid status '%s' (expected Open, Filled, Expired or Canceled)", s)
}

func filterOrders(orders []types.Order, status types.OrderStatus) []types.Order {
	if status == "" {
		return orders
	}
	return order.GroupByStatus(orders)[status]
}

func displayOrders(orders []types.Order) {
	if len(orders) == 0 {
		color.Yellow("No orders found.\n")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 140))
	color.Green("                                                          TWAP ORDERS")
	fmt.Println(strings.Repeat("=", 140))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nID\tPAIR\tSTATUS\tPROGRESS\tAMOUNT\tFILLED\tLIMIT\tINTERVAL\tDEADLINE")
	fmt.Fprintln(w, strings.Repeat("-", 140))

	for _, o := range orders {
		pair := fmt.Sprintf("%s -> %s", o.SrcTokenInfo.Symbol, o.DstTokenInfo.Symbol)
		amount := fmt.Sprintf("%s %s", o.SrcTokenAmountUi, o.SrcTokenInfo.Symbol)
		if o.SrcUsdValueUi != "" {
			amount += fmt.Sprintf(" ($%s)", o.SrcUsdValueUi)
		}
		limit := "market"
		if !o.IsMarketOrder {
			limit = fmt.Sprintf("%s %s", o.DstLimitPriceUi, o.DstTokenInfo.Symbol)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f%%\t%s\t%s\t%s\t%s\t%s\n",
			o.ID, pair, getOrderStatusColor(o.Status), o.Progress*100,
			amount, o.SrcFilledAmountUi, limit, o.TradeIntervalUi, o.DeadlineUi)
	}

	w.Flush()
	fmt.Println("\n" + strings.Repeat("=", 140))
	fmt.Printf("\nTotal: %d orders\n\n", len(orders))
}

func getOrderStatusColor(status types.OrderStatus) string {
	switch status {
	case types.OrderOpen:
		return color.CyanString(string(status))
	case types.OrderFilled:
		return color.GreenString(string(status))
	case types.OrderExpired:
		return color.YellowString(string(status))
	case types.OrderCanceled:
		return color.RedString(string(status))
	default:
		return string(status)
	}
}
