// brokerctl is a small operator console over the broker adapters: quotes,
// positions, balances, orders and realized returns for a configured
// account.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jiaming2012/trading-brokers/src/brokers"
	"github.com/jiaming2012/trading-brokers/src/brokers/alpaca"
	"github.com/jiaming2012/trading-brokers/src/brokers/tradestation"
	"github.com/jiaming2012/trading-brokers/src/brokers/tradier"
	"github.com/jiaming2012/trading-brokers/src/models"
	"github.com/jiaming2012/trading-brokers/src/utils"
)

type config struct {
	Provider  string `yaml:"provider"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
	TokenURL  string `yaml:"token_url"`
	AccountID string `yaml:"account_id"`

	AccessToken  string `yaml:"access_token"`
	APIKey       string `yaml:"api_key"`
	APISecret    string `yaml:"api_secret"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loadConfig: failed to read %s: %w", path, err)
	}

	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loadConfig: failed to parse %s: %w", path, err)
	}

	return &cfg, nil
}

// resolveSecrets fills credentials the config file leaves blank from the
// environment, so secrets can stay out of broker.yaml.
func resolveSecrets(cfg *config) error {
	fromEnv := func(dst *string, key string) error {
		if *dst != "" {
			return nil
		}

		value, err := utils.GetEnv(key)
		if err != nil {
			return err
		}

		*dst = value
		return nil
	}

	switch cfg.Provider {
	case "tradier":
		return fromEnv(&cfg.AccessToken, "TRADIER_ACCESS_TOKEN")
	case "tradestation":
		if err := fromEnv(&cfg.ClientID, "TRADESTATION_CLIENT_ID"); err != nil {
			return err
		}
		if err := fromEnv(&cfg.ClientSecret, "TRADESTATION_CLIENT_SECRET"); err != nil {
			return err
		}
		return fromEnv(&cfg.RefreshToken, "TRADESTATION_REFRESH_TOKEN")
	case "alpaca":
		if err := fromEnv(&cfg.APIKey, "ALPACA_API_KEY"); err != nil {
			return err
		}
		return fromEnv(&cfg.APISecret, "ALPACA_API_SECRET")
	default:
		return nil
	}
}

func newBroker(cfg *config) (brokers.Broker, error) {
	switch cfg.Provider {
	case "tradier":
		return tradier.NewBroker(cfg.BaseURL, cfg.AccountID, cfg.AccessToken)
	case "tradestation":
		return tradestation.NewBroker(cfg.BaseURL, cfg.TokenURL, cfg.AccountID, cfg.ClientID, cfg.ClientSecret, cfg.RefreshToken)
	case "alpaca":
		return alpaca.NewBroker(cfg.APIKey, cfg.APISecret, cfg.BaseURL, cfg.DataURL), nil
	default:
		return nil, fmt.Errorf("newBroker: unknown provider %q", cfg.Provider)
	}
}

func renderTable(header []string, rows [][]string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.AppendBulk(rows)
	table.Render()
}

func main() {
	var configPath string
	var broker brokers.Broker

	rootCmd := &cobra.Command{
		Use:   "brokerctl",
		Short: "Inspect and trade a brokerage account from the command line",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := utils.InitEnvironmentVariables(); err != nil {
				return err
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			if err := resolveSecrets(cfg); err != nil {
				return err
			}

			broker, err = newBroker(cfg)
			return err
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "broker.yaml", "path to the broker config file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "quote SYMBOL...",
		Short: "Print the latest quotes for one or more symbols",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quotes, err := broker.GetQuotes(context.Background(), args)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(quotes))
			for _, quote := range quotes {
				rows = append(rows, []string{quote.Name, fmt.Sprintf("%.2f", quote.Price)})
			}
			renderTable([]string{"Symbol", "Last"}, rows)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "positions",
		Short: "Print the account's open positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			positions, err := broker.Positions(context.Background())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(positions))
			for _, position := range positions {
				rows = append(rows, []string{
					position.Name,
					strconv.Itoa(position.Size),
					fmt.Sprintf("%.2f", position.CostBasis),
					position.TimeOpened.Format("2006-01-02"),
				})
			}
			renderTable([]string{"Symbol", "Size", "Cost Basis", "Opened"}, rows)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "balance",
		Short: "Print the account's balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			balance, err := broker.AccountBalance(context.Background())
			if err != nil {
				return err
			}

			settled := "n/a"
			if balance.SettledCash != nil {
				settled = fmt.Sprintf("%.2f", *balance.SettledCash)
			}

			renderTable(
				[]string{"Total Cash", "Total Equity", "Open P/L", "Long Value", "Settled Cash"},
				[][]string{{
					fmt.Sprintf("%.2f", balance.TotalCash),
					fmt.Sprintf("%.2f", balance.TotalEquity),
					fmt.Sprintf("%.2f", balance.OpenPL),
					fmt.Sprintf("%.2f", balance.LongValue),
					settled,
				}},
			)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "orders",
		Short: "Print the account's open and recent orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, err := broker.Orders(context.Background())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(orders))
			for _, order := range orders {
				cost := "n/a"
				if value, ok := order.Cost(); ok {
					cost = fmt.Sprintf("%.2f", value)
				}

				rows = append(rows, []string{
					order.ID,
					order.Name,
					string(order.Side),
					string(order.Type),
					string(order.Status),
					strconv.Itoa(order.ExecutedQuantity),
					cost,
				})
			}
			renderTable([]string{"ID", "Symbol", "Side", "Type", "Status", "Filled", "Cost"}, rows)
			return nil
		},
	})

	var since string
	pnlCmd := &cobra.Command{
		Use:   "pnl",
		Short: "Print realized returns from the account's closed positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			var start *time.Time
			if since != "" {
				parsed, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date %q: %w", since, err)
				}
				start = &parsed
			}

			closed, err := broker.AccountPnL(ctx, start)
			if err != nil {
				return err
			}

			actions, err := broker.AccountHistory(ctx)
			if err != nil && !errors.Is(err, brokers.ErrUnsupported) {
				return err
			}

			adjustments := make([]models.LedgerEntry, 0, len(actions))
			for _, action := range actions {
				adjustments = append(adjustments, action.LedgerEntry())
			}

			stream, err := models.NewReturnStream(closed, adjustments)
			if err != nil {
				return err
			}

			rows := [][]string{}
			for date, percent := range stream.Returns() {
				rows = append(rows, []string{date.Format("2006-01-02"), fmt.Sprintf("%.2f%%", percent)})
			}
			renderTable([]string{"Date", "Cumulative Return"}, rows)

			fmt.Printf("total return: %.2f%%\n", stream.TotalReturn())
			if ytd, err := stream.YTDReturn(); err == nil {
				fmt.Printf("ytd return: %.2f%%\n", ytd)
			}
			return nil
		},
	}
	pnlCmd.Flags().StringVar(&since, "since", "", "only include positions closed on or after this date (YYYY-MM-DD)")
	rootCmd.AddCommand(pnlCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "calendar",
		Short: "Print upcoming market sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			days, err := broker.Calendar(context.Background())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(days))
			for _, day := range days {
				rows = append(rows, []string{
					day.Open.Format("2006-01-02"),
					day.Open.Format("15:04"),
					day.Close.Format("15:04"),
				})
			}
			renderTable([]string{"Date", "Open", "Close"}, rows)
			return nil
		},
	})

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
