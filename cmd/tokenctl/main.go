package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"token-vending-service/internal/app"
	"token-vending-service/internal/client"
	"token-vending-service/internal/config"
	"token-vending-service/internal/logger"
	"token-vending-service/internal/middleware"
	"token-vending-service/internal/model"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "tokenctl",
		Short:         "Operator tool for the token vending service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(settleCmd())
	rootCmd.AddCommand(receiptCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// withApp wires the same dependencies as the API server and runs fn.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Environment, cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(context.Background(), a)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if err := client.Migrate(a.DB); err != nil {
					return err
				}
				fmt.Println("schema up to date")
				return nil
			})
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert a starter price table and receipt template",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if err := a.Settings.Seed(ctx); err != nil {
					return err
				}
				fmt.Println("seed data inserted (existing rows kept)")
				return nil
			})
		},
	}
}

func settleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settle [orderId]",
		Short: "Settle a paid order: vend its token and record it",
		Long: `Settle runs the same settlement as POST /api/settlement. Use it to retry
orders left in failed_vending or orders whose gateway notification failed.

Examples:
  tokenctl settle TKN-20260101093000-1a2b3c4d`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				result, err := a.Services.Settlement.Settle(ctx, args[0])
				if err != nil {
					return err
				}

				out, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))

				if !result.Success {
					return fmt.Errorf("vending failed for %s", args[0])
				}
				return nil
			})
		},
	}
}

func receiptCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "receipt [orderId]",
		Short: "Render the HTML receipt of a vended order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				html, err := a.Services.Receipt.Render(ctx, args[0])
				if err != nil {
					return err
				}
				if outPath == "" {
					fmt.Print(html)
					return nil
				}
				return os.WriteFile(outPath, []byte(html), 0o644)
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the receipt to a file instead of stdout")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token [userId]",
		Short: "Issue a bearer token for a user (local and staging use)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("AUTH_JWT_SECRET is not set")
			}

			switch model.Role(role) {
			case model.RoleAdmin, model.RoleTeknisi, model.RoleVendor, model.RoleCustomer:
			default:
				return fmt.Errorf("unknown role %q", role)
			}

			token, err := middleware.IssueToken(cfg.Auth.JWTSecret, args[0], model.Role(role), ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&role, "role", "r", string(model.RoleCustomer), "admin, teknisi, vendor or customer")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
