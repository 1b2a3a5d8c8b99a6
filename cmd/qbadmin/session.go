package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"qbadmin/internal/app"
	"qbadmin/internal/authz"
	"qbadmin/internal/config"
	"qbadmin/internal/console"
	"qbadmin/internal/db"
	"qbadmin/internal/session"
)

func loginCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an admin bearer token",
		Long:  "Login stores the token in the workspace session database. Without --token it is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				read, err := readToken(cmd.InOrStdin())
				if err != nil {
					return err
				}
				token = read
			}
			perms, err := session.ClaimsPermissions(token)
			if err != nil {
				return fmt.Errorf("that does not look like a JWT: %w", err)
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Session.Set(ctx, token); err != nil {
					return err
				}
				a.Logger.Info("session stored", zap.String("subject", session.Subject(token)), zap.Int("permissions", len(perms)))
				if viper.GetBool("json") {
					return printJSON(map[string]any{"ok": true, "subject": session.Subject(token), "permissions": perms})
				}
				fmt.Printf("Logged in with %d permission(s); session stored in %s\n", len(perms), db.Path(a.Workspace))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token (read from stdin when empty)")
	return cmd
}

func readToken(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("token required")
	}
	return line, nil
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Session.Clear(ctx); err != nil {
					return err
				}
				fmt.Println("Logged out")
				return nil
			})
		},
	}
}

func whoamiCmd() *cobra.Command {
	var can []string
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the session's permissions",
		Long:  "Whoami lists the permissions decoded from the stored token. With --can it exits non-zero unless one of them is held.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				token, err := a.Session.Get(ctx)
				if err != nil {
					return err
				}
				caps, err := a.Capabilities(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"subject":     session.Subject(token),
						"admin":       caps.IsAdmin(),
						"permissions": caps.List(),
						"allowed":     caps.Has(can...),
					})
				}
				fmt.Printf("Subject: %s\n", orDash(session.Subject(token)))
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Permission"})
				for _, p := range caps.List() {
					tw.AppendRow(table.Row{p})
				}
				tw.Render()
				if len(can) > 0 {
					return caps.Require(can...)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&can, "can", nil, "check for any of these permissions")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web console",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if addr == "" {
					addr = a.Config.Console.Addr
				}
				handler, err := console.New(console.Config{App: a, Landing: a.Config.Console.Landing})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				a.Logger.Info("console listening", zap.String("addr", addr), zap.String("api", a.Config.API.BaseURL))
				fmt.Printf("Serving QuickBee console on http://%s (API under /v0, Swagger UI at /docs)\n", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default console.addr)")
	return cmd
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <id>",
		Short: "Resolve a pasted id to its console page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				target, err := a.Search.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"strategy": a.Search.Strategy(), "target": target})
				}
				fmt.Printf("%s %s -> %s\n", target.EntityType, target.ID, target.Route)
				return nil
			})
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show backend health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				h, err := a.Admin.Health(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(h)
				}
				fmt.Printf("Status: %s  Version: %s\n", h.Status, orDash(h.Version))
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Component", "Status"})
				for _, name := range sortedKeys(h.Components) {
					tw.AppendRow(table.Row{name, h.Components[name]})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage qbadmin.yml",
		Long:  "Config is local to the console: API base URL and timeout, listen address, landing page, search strategy and logging.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	var apiURL string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default qbadmin.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			content := config.GenerateDefault()
			if apiURL != "" {
				content = strings.Replace(content, "http://localhost:4000", apiURL, 1)
			}
			if _, err := config.FromYAML([]byte(content)); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.Flags().StringVar(&apiURL, "api-base-url", "", "API base URL to write")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate qbadmin.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(viper.GetString("workspace"))
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
}

// requirePerms is the CLI's copy of the console's route permissions.
var requirePerms = map[string][]string{
	"kyc":      {authz.KYCReview},
	"task":     {authz.TaskManage},
	"user":     {authz.UserManage},
	"issue":    {authz.IssueManage},
	"rating":   {authz.RatingModerate},
	"finance":  {authz.FinanceView, authz.FinanceManage},
	"category": {authz.TaxonomyManage},
	"audit":    {authz.AuditView},
	"job":      {authz.JobsManage},
	"settings": {authz.ConfigManage},
}
