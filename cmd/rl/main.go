package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rescueline/internal/app"
	"rescueline/internal/config"
	"rescueline/internal/server"
	rescuelinesdk "rescueline/sdk/go"
)

var rootCmd = &cobra.Command{
	Use:   "rl",
	Short: "Rescueline CLI",
	Long: `Rescueline tracks surplus food listed as discounted rescue deals.
Core concepts:
- Rescue deal: a batch of near-expiry food with a category, quantity and discount; it starts pending.
- Outcomes: a pending deal is sold, donated, or expires after 24 hours; every outcome is final.
- Impact: CO2 and waste estimates derived from category and quantity when the deal is created.
- Activity feed: the ten most recent events, newest first.
- Dashboard and analytics: totals recomputed from the deal collection after every change.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("RESCUELINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "directory holding rescueline.yml")
	rootCmd.PersistentFlags().String("config", "", "config file (overrides workspace lookup)")
	rootCmd.PersistentFlags().String("server", "http://127.0.0.1:8080", "API server URL")
	rootCmd.PersistentFlags().String("base-path", "/v1", "API base path")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "", "actor recorded on activity entries")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("base-path", rootCmd.PersistentFlags().Lookup("base-path"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(dealCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(todayCmd())
	rootCmd.AddCommand(activityCmd())
	rootCmd.AddCommand(analyticsCmd())
	rootCmd.AddCommand(configCmd())
}

func dealCmd() *cobra.Command {
	deal := &cobra.Command{Use: "deal", Short: "Manage rescue deals"}
	deal.AddCommand(dealCreateCmd())
	deal.AddCommand(dealListCmd())
	deal.AddCommand(dealGetCmd())
	deal.AddCommand(dealSellCmd())
	deal.AddCommand(dealDonateCmd())
	deal.AddCommand(dealExpireCmd())
	return deal
}

func dealCreateCmd() *cobra.Command {
	var in rescuelinesdk.CreateDealInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "List a new rescue deal",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.ActorID = viper.GetString("actor-id")
			d, err := client().CreateDeal(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printDeals([]rescuelinesdk.Deal{d})
		},
	}
	cmd.Flags().StringVar(&in.Category, "category", "", "Produce, Bakery, Dairy or Meat")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().IntVar(&in.DiscountPercent, "discount", 0, "discount percent")
	cmd.Flags().StringVar(&in.Quantity, "quantity", "", "quantity, e.g. 5kg or 3 loaves")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func dealListCmd() *cobra.Command {
	var status, category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rescue deals, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			deals, err := client().ListDeals(cmd.Context(), status, category)
			if err != nil {
				return err
			}
			return printDeals(deals)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&category, "category", "", "category filter")
	return cmd
}

func dealGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a rescue deal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := client().GetDeal(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSONOrTable(d)
		},
	}
	return cmd
}

func dealSellCmd() *cobra.Command {
	var customer string
	var price float64
	cmd := &cobra.Command{
		Use:   "sell <id>",
		Short: "Mark a pending deal sold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name *string
			if customer != "" {
				name = &customer
			}
			var p *float64
			if cmd.Flags().Changed("price") {
				p = &price
			}
			res, err := client().TransitionStatus(cmd.Context(), args[0], "sold", name, p, viper.GetString("actor-id"))
			if err != nil {
				return err
			}
			return printTransition(res)
		},
	}
	cmd.Flags().StringVar(&customer, "customer", "", "customer name")
	cmd.Flags().Float64Var(&price, "price", 0, "sale price")
	return cmd
}

func dealDonateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "donate <id>",
		Short: "Mark a pending deal donated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().TransitionStatus(cmd.Context(), args[0], "donated", nil, nil, viper.GetString("actor-id"))
			if err != nil {
				return err
			}
			return printTransition(res)
		},
	}
	return cmd
}

func dealExpireCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expire",
		Short: "Expire pending deals past their validity window",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := client().ExpireOverdue(cmd.Context())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]int{"expired": n})
			}
			fmt.Printf("expired %d deals\n", n)
			return nil
		},
	}
	return cmd
}

func dashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show whole-history dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := client().Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(d)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Metric", "Value"})
			tw.AppendRows([]table.Row{
				{"Deals", d.RescueDeals.Total},
				{"Pending", d.RescueDeals.Pending},
				{"Sold", d.RescueDeals.Sold},
				{"Donated", d.RescueDeals.Donated},
				{"Expired", d.RescueDeals.Expired},
				{"CO2 saved (kg)", d.TotalCO2Saved},
				{"Waste prevented (kg)", d.TotalWasteKg},
				{"Revenue", fmt.Sprintf("%.2f", d.RevenueTotal)},
				{"Customer savings", fmt.Sprintf("%.2f", d.CustomerSavingsTotal)},
				{"Avg discount (%)", d.AvgDiscountPercent},
				{"Waste reduction (%)", d.WasteReductionPercentage},
			})
			tw.Render()
			return nil
		},
	}
	return cmd
}

func todayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Show stats for deals created today",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := client().TodayStats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSONOrTable(s)
		},
	}
	return cmd
}

func activityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the recent activity feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := client().Activity(cmd.Context())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(items)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Time", "Type", "Actor", "Action", "Details", "CO2"})
			for _, a := range items {
				tw.AppendRow(table.Row{a.Timestamp.Format(time.RFC3339), a.Type, a.Actor, a.Action, a.Details, a.Impact.CO2Saved})
			}
			tw.Render()
			return nil
		},
	}
	return cmd
}

func analyticsCmd() *cobra.Command {
	var timeframe string
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show rolling-window analytics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := client().Analytics(cmd.Context(), timeframe)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(a)
			}
			fmt.Printf("%s: %d created, %d sold, %d donated, %.1f kg CO2, %.2f revenue\n",
				a.Timeframe, a.DealsCreated, a.DealsSold, a.DealsDonated, a.CO2Saved, a.Revenue)
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Category", "Deals", "%"})
			for _, c := range a.Categories {
				tw.AppendRow(table.Row{c.Name, c.DealCount, c.Percentage})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&timeframe, "timeframe", "week", "week, month, quarter or year")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage rescueline.yml",
		Long:  "Config holds the store identity and timezone, the expiry sweep interval, server and metrics settings, and optional seed deals.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default rescueline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err == nil {
				err = cfg.Validate()
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") || cfg.Server.Addr == "" {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("base-path") || cfg.Server.BasePath == "" {
				cfg.Server.BasePath = viper.GetString("base-path")
			}
			interval, err := cfg.SweepInterval()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := app.Build(ctx, cfg)
			if err != nil {
				return err
			}
			app.Sweeper{Engine: e, Interval: interval}.Start(ctx)

			handler, err := server.New(server.Config{Engine: e, BasePath: cfg.Server.BasePath, MetricsPath: cfg.Metrics.Path})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			fmt.Printf("Serving Rescueline API for %s on http://%s%s (OpenAPI at %s/openapi.json, docs at /docs)\n",
				cfg.Store.Name, cfg.Server.Addr, cfg.Server.BasePath, cfg.Server.BasePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	return cmd
}

// --- helpers ---

func loadConfig() (*config.Config, error) {
	if path := viper.GetString("config"); path != "" {
		return config.FromFile(path)
	}
	return config.LoadOptional(viper.GetString("workspace"))
}

func client() *rescuelinesdk.Client {
	c := rescuelinesdk.New(viper.GetString("server"))
	c.BasePath = viper.GetString("base-path")
	return c
}

func printDeals(deals []rescuelinesdk.Deal) error {
	if viper.GetBool("json") {
		return printJSON(deals)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Category", "Quantity", "Discount", "Status", "Priority", "CO2", "Expires"})
	for _, d := range deals {
		tw.AppendRow(table.Row{d.ID, d.Category, d.Quantity, fmt.Sprintf("%d%%", d.DiscountPercent), d.Status, d.Priority, d.EstimatedCO2Saved, d.ExpiresAt.Format(time.RFC3339)})
	}
	tw.Render()
	return nil
}

func printTransition(res rescuelinesdk.TransitionResult) error {
	if viper.GetBool("json") {
		return printJSON(res)
	}
	if !res.Applied {
		fmt.Println("ignored:", res.Reason)
		return nil
	}
	return printDeals([]rescuelinesdk.Deal{*res.Deal})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
