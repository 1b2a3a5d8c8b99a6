package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"qbadmin/internal/apierr"
	"qbadmin/internal/app"
	"qbadmin/internal/authz"
	"qbadmin/internal/config"
	"qbadmin/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "qbadmin",
	Short: "QuickBee admin console",
	Long: `qbadmin is the operator console for the QuickBee marketplace API.
- Session: paste an admin bearer token with 'qbadmin login'; it is kept in .qbadmin/console.db.
- Permissions: read from the token's claims; ADMIN opens everything.
- Web console: 'qbadmin serve' renders every list and detail page on a local address.
- Resources: kyc, task, user, issue, rating, cashout, ledger, payment, fee, category, audit, job, settings.
- Filters: list flags map one to one onto the API's query parameters.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		// .env values never override variables already set in the shell.
		if err := godotenv.Load(filepath.Join(workspace, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", apierr.Message(err))
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("QBADMIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory (qbadmin.yml and .qbadmin/)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("api-url", "", "QuickBee API base URL (overrides api.base_url)")
	rootCmd.PersistentFlags().String("search", "", "search strategy: backend or local (overrides search.strategy)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (overrides logging.level)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("api-url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("search", rootCmd.PersistentFlags().Lookup("search"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(kycCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(issueCmd())
	rootCmd.AddCommand(ratingCmd())
	rootCmd.AddCommand(cashoutCmd())
	rootCmd.AddCommand(ledgerCmd())
	rootCmd.AddCommand(paymentCmd())
	rootCmd.AddCommand(feeCmd())
	rootCmd.AddCommand(categoryCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(jobCmd())
	rootCmd.AddCommand(settingsCmd())
}

// loadConfig reads qbadmin.yml (defaults when absent) and applies flag and
// environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(viper.GetString("workspace"))
	if err != nil {
		return nil, err
	}
	if v := viper.GetString("api-url"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := viper.GetString("search"); v != "" {
		cfg.Search.Strategy = v
	}
	if v := viper.GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logging.Install(logger)()
	a, err := app.Open(ctx, viper.GetString("workspace"), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// withCaps runs fn only when the session holds one of perms, mirroring the
// console's permission guard.
func withCaps(ctx context.Context, perms []string, fn func(context.Context, *app.App) error) error {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		caps, err := a.Capabilities(ctx)
		if err != nil {
			return err
		}
		if err := caps.Require(perms...); err != nil {
			return err
		}
		a.Logger.Debug("command authorized", zap.Strings("required", perms))
		return fn(authz.WithCapabilities(ctx, caps), a)
	})
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
