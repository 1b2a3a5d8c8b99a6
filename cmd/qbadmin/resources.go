package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"qbadmin/internal/admin"
	"qbadmin/internal/app"
	"qbadmin/internal/authz"
	"qbadmin/internal/gateway"
	"qbadmin/internal/listing"
	"qbadmin/internal/money"
)

// filterFlags registers one string flag per schema field and returns a
// function that stages their values into a draft.
func filterFlags(cmd *cobra.Command, schema listing.Schema) func() *listing.Draft {
	values := make(map[string]*string, len(schema.Fields))
	for _, f := range schema.Fields {
		v := new(string)
		values[f.Key] = v
		usage := f.Label
		if len(f.Choices) > 0 {
			usage += " (" + strings.Join(f.Choices, "|") + ")"
		}
		cmd.Flags().StringVar(v, flagName(f.Key), "", usage)
	}
	return func() *listing.Draft {
		d := listing.NewDraft(schema)
		for key, v := range values {
			d.Set(key, *v)
		}
		return d
	}
}

// flagName turns an API filter key into a flag: methodType -> method-type.
func flagName(key string) string {
	var b strings.Builder
	for i, r := range key {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func listCmd[T any](schema listing.Schema, perms []string, fetch func(*admin.Service, context.Context, gateway.Query) (admin.Page[T], error), header table.Row, row func(T) table.Row) *cobra.Command {
	var page, pageSize int
	var draft func() *listing.Draft
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List with filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := draft().SetPageSize(pageSize).Apply().WithPage(page)
			return withCaps(cmd.Context(), perms, func(ctx context.Context, a *app.App) error {
				res, err := fetch(a.Admin, ctx, q)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(header)
				for _, item := range res.Items {
					tw.AppendRow(row(item))
				}
				tw.Render()
				fmt.Println(pageFooter(res.Pager(), res.Total))
				return nil
			})
		},
	}
	draft = filterFlags(cmd, schema)
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "rows per page")
	return cmd
}

func pageFooter(p listing.Pager, total int) string {
	s := fmt.Sprintf("page %d", p.Page)
	if last, ok := p.Last(); ok {
		s += fmt.Sprintf(" of %d", last)
	}
	if total > 0 {
		s += fmt.Sprintf(", %d total", total)
	}
	if p.HasNext() {
		s += fmt.Sprintf("; next: --page %d", p.Next())
	}
	return s
}

// idCmd runs fn against a single id and prints the result.
func idCmd[T any](use, short string, perms []string, fn func(*admin.Service, context.Context, string) (T, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCaps(cmd.Context(), perms, func(ctx context.Context, a *app.App) error {
				out, err := fn(a.Admin, ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(out)
			})
		},
	}
}

// argCmd is idCmd plus one text flag (reason, reference, note...).
func argCmd[T any](use, short string, perms []string, flag, usage string, fn func(*admin.Service, context.Context, string, string) (T, error)) *cobra.Command {
	var arg string
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCaps(cmd.Context(), perms, func(ctx context.Context, a *app.App) error {
				out, err := fn(a.Admin, ctx, args[0], arg)
				if err != nil {
					return err
				}
				return printJSONOrTable(out)
			})
		},
	}
	cmd.Flags().StringVar(&arg, flag, "", usage)
	return cmd
}

func exportCmd(schema listing.Schema, perms []string, fn func(*admin.Service, context.Context, gateway.Query) (gateway.Blob, error)) *cobra.Command {
	var out string
	var draft func() *listing.Draft
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the filtered rows as .xlsx",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := draft().Apply()
			return withCaps(cmd.Context(), perms, func(ctx context.Context, a *app.App) error {
				blob, err := fn(a.Admin, ctx, q.FilterValues())
				if err != nil {
					return err
				}
				path := out
				if path == "" {
					path = blob.Filename
				} else if info, err := os.Stat(path); err == nil && info.IsDir() {
					path = filepath.Join(path, blob.Filename)
				}
				if err := os.WriteFile(path, blob.Data, 0o644); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"path": path, "bytes": len(blob.Data)})
				}
				fmt.Printf("Wrote %s (%d bytes)\n", path, len(blob.Data))
				return nil
			})
		},
	}
	draft = filterFlags(cmd, schema)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file or directory (default: server filename)")
	return cmd
}

func kycCmd() *cobra.Command {
	perms := requirePerms["kyc"]
	cmd := &cobra.Command{Use: "kyc", Short: "Review KYC submissions"}
	cmd.AddCommand(listCmd(admin.KYCFilters, perms, (*admin.Service).ListKYC,
		table.Row{"ID", "User", "Phone", "Status", "Document", "Submitted"},
		func(k admin.KYCSubmission) table.Row {
			return table.Row{k.ID, orDash(k.UserName), orDash(k.Phone), k.Status, orDash(k.DocumentType), orDash(k.SubmittedAt)}
		}))
	cmd.AddCommand(idCmd("get", "Show a submission", perms, (*admin.Service).GetKYC))
	cmd.AddCommand(argCmd("approve", "Approve a submission", perms, "reason", "review note", (*admin.Service).ApproveKYC))
	cmd.AddCommand(argCmd("reject", "Reject a submission", perms, "reason", "rejection reason (required)", (*admin.Service).RejectKYC))
	return cmd
}

func taskCmd() *cobra.Command {
	perms := requirePerms["task"]
	cmd := &cobra.Command{Use: "task", Short: "Inspect and intervene on tasks"}
	cmd.AddCommand(listCmd(admin.TaskFilters, perms, (*admin.Service).ListTasks,
		table.Row{"ID", "Title", "Status", "Payment", "Amount", "Poster", "Helper"},
		func(t admin.Task) table.Row {
			return table.Row{t.ID, t.Title, t.Status, t.PaymentMode, money.Format(t.Amount), t.PosterID, orDash(t.HelperID)}
		}))
	cmd.AddCommand(idCmd("get", "Show a task", perms, (*admin.Service).GetTask))
	cmd.AddCommand(argCmd("cancel", "Cancel a task", perms, "reason", "cancellation reason (required)", (*admin.Service).CancelTask))
	cmd.AddCommand(argCmd("refund", "Refund a task's escrow", perms, "reason", "refund reason (required)", (*admin.Service).RefundTask))

	var status, reason string
	set := &cobra.Command{
		Use:   "status <id>",
		Short: "Force a task status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCaps(cmd.Context(), perms, func(ctx context.Context, a *app.App) error {
				t, err := a.Admin.SetTaskStatus(ctx, args[0], status, reason)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	set.Flags().StringVar(&status, "status", "", "new status ("+strings.Join(admin.TaskStatuses, "|")+")")
	set.Flags().StringVar(&reason, "reason", "", "reason (required)")
	cmd.AddCommand(set)
	return cmd
}

func userCmd() *cobra.Command {
	perms := requirePerms["user"]
	cmd := &cobra.Command{Use: "user", Short: "Manage user accounts"}
	cmd.AddCommand(listCmd(admin.UserFilters, perms, (*admin.Service).ListUsers,
		table.Row{"ID", "Name", "Phone", "Role", "KYC", "Disabled"},
		func(u admin.User) table.Row {
			return table.Row{u.ID, u.Name, orDash(u.Phone), u.Role, orDash(u.KYCStatus), u.Disabled}
		}))
	cmd.AddCommand(idCmd("get", "Show a user", perms, (*admin.Service).GetUser))
	cmd.AddCommand(argCmd("disable", "Disable a user", perms, "reason", "reason (required)", (*admin.Service).DisableUser))
	cmd.AddCommand(idCmd("enable", "Re-enable a user", perms, (*admin.Service).EnableUser))

	var set []string
	grant := &cobra.Command{
		Use:   "permissions <id>",
		Short: "Replace a user's permission set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCaps(cmd.Context(), []string{authz.PermissionGrant}, func(ctx context.Context, a *app.App) error {
				u, err := a.Admin.SetUserPermissions(ctx, args[0], set)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	grant.Flags().StringSliceVar(&set, "set", nil, "permissions to hold (comma separated; empty clears)")
	cmd.AddCommand(grant)
	return cmd
}

func issueCmd() *cobra.Command {
	perms := requirePerms["issue"]
	cmd := &cobra.Command{Use: "issue", Short: "Triage reported issues"}
	cmd.AddCommand(listCmd(admin.IssueFilters, perms, (*admin.Service).ListIssues,
		table.Row{"ID", "Status", "Severity", "Category", "Reason", "Task"},
		func(i admin.Issue) table.Row {
			return table.Row{i.ID, i.Status, i.Severity, i.Category, i.Reason, orDash(i.TaskID)}
		}))
	cmd.AddCommand(idCmd("get", "Show an issue", perms, (*admin.Service).GetIssue))
	cmd.AddCommand(idCmd("comments", "List an issue's comments", perms, (*admin.Service).ListIssueComments))
	cmd.AddCommand(argCmd("comment", "Add an internal comment", perms, "body", "comment text (required)", (*admin.Service).AddIssueComment))
	cmd.AddCommand(idCmd("review", "Start reviewing an issue", perms, (*admin.Service).StartIssueReview))
	cmd.AddCommand(argCmd("close", "Close an issue", perms, "note", "closing note", (*admin.Service).CloseIssue))

	var outcome, note string
	resolve := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Resolve an issue with an outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCaps(cmd.Context(), perms, func(ctx context.Context, a *app.App) error {
				i, err := a.Admin.ResolveIssue(ctx, args[0], outcome, note)
				if err != nil {
					return err
				}
				return printJSONOrTable(i)
			})
		},
	}
	resolve.Flags().StringVar(&outcome, "outcome", "", "outcome ("+strings.Join(admin.IssueOutcomes, "|")+")")
	resolve.Flags().StringVar(&note, "note", "", "resolution note")
	cmd.AddCommand(resolve)
	return cmd
}

func ratingCmd() *cobra.Command {
	perms := requirePerms["rating"]
	cmd := &cobra.Command{Use: "rating", Short: "Moderate ratings"}
	cmd.AddCommand(listCmd(admin.RatingFilters, perms, (*admin.Service).ListRatings,
		table.Row{"ID", "Task", "Rater", "Ratee", "Stars", "Hidden", "Comment"},
		func(r admin.Rating) table.Row {
			return table.Row{r.ID, r.TaskID, r.RaterID, r.RateeID, r.Stars, r.Hidden, orDash(r.Comment)}
		}))
	cmd.AddCommand(argCmd("hide", "Hide a rating", perms, "reason", "moderation reason (required)", (*admin.Service).HideRating))
	cmd.AddCommand(idCmd("unhide", "Unhide a rating", perms, (*admin.Service).UnhideRating))
	return cmd
}

func cashoutCmd() *cobra.Command {
	view := requirePerms["finance"]
	manage := []string{authz.FinanceManage}
	cmd := &cobra.Command{Use: "cashout", Short: "Process helper cashouts"}
	cmd.AddCommand(listCmd(admin.CashoutFilters, view, (*admin.Service).ListCashouts,
		table.Row{"ID", "User", "Status", "Amount", "Method", "Created", "Actions"},
		func(c admin.Cashout) table.Row {
			return table.Row{c.ID, c.UserID, c.Status, money.Format(c.Amount), c.MethodType, orDash(c.CreatedAt), actionList(admin.AllowedCashoutActions(c.Status))}
		}))
	cmd.AddCommand(idCmd("get", "Show a cashout", view, (*admin.Service).GetCashout))
	cmd.AddCommand(idCmd("processing", "Mark a cashout processing", manage, (*admin.Service).MarkCashoutProcessing))
	cmd.AddCommand(argCmd("paid", "Mark a cashout paid", manage, "reference", "payout reference (required)", (*admin.Service).MarkCashoutPaid))
	cmd.AddCommand(argCmd("failed", "Mark a cashout failed", manage, "reason", "failure reason (required)", (*admin.Service).MarkCashoutFailed))
	cmd.AddCommand(argCmd("cancel", "Cancel a cashout", manage, "reason", "cancellation reason (required)", (*admin.Service).CancelCashout))
	cmd.AddCommand(exportCmd(admin.CashoutFilters, view, (*admin.Service).ExportCashouts))
	cmd.AddCommand(&cobra.Command{
		Use:       "actions <status>",
		Short:     "Show which actions a status offers",
		Args:      cobra.ExactArgs(1),
		ValidArgs: admin.CashoutStatuses,
		RunE: func(cmd *cobra.Command, args []string) error {
			set := admin.AllowedCashoutActions(args[0])
			if viper.GetBool("json") {
				return printJSON(map[string]any{"status": strings.ToUpper(args[0]), "actions": set.List()})
			}
			fmt.Println(actionList(set))
			return nil
		},
	})
	return cmd
}

func actionList(set admin.ActionSet) string {
	var names []string
	for _, a := range set.List() {
		names = append(names, string(a))
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

func ledgerCmd() *cobra.Command {
	perms := requirePerms["finance"]
	cmd := &cobra.Command{Use: "ledger", Short: "Browse wallet ledger transactions"}
	cmd.AddCommand(listCmd(admin.LedgerFilters, perms, (*admin.Service).ListLedger,
		table.Row{"ID", "User", "Kind", "Direction", "Amount", "Balance", "At"},
		func(l admin.LedgerTxn) table.Row {
			return table.Row{l.ID, l.UserID, l.Kind, l.Direction, money.Format(l.Amount), money.Format(l.BalanceAfter), orDash(l.CreatedAt)}
		}))
	cmd.AddCommand(idCmd("get", "Show a transaction", perms, (*admin.Service).GetLedgerTxn))
	cmd.AddCommand(exportCmd(admin.LedgerFilters, perms, (*admin.Service).ExportLedger))
	return cmd
}

func paymentCmd() *cobra.Command {
	perms := requirePerms["finance"]
	cmd := &cobra.Command{Use: "payment", Short: "Browse payment intents"}
	cmd.AddCommand(listCmd(admin.PaymentIntentFilters, perms, (*admin.Service).ListPaymentIntents,
		table.Row{"ID", "Task", "Status", "Amount", "Provider", "Created"},
		func(p admin.PaymentIntent) table.Row {
			return table.Row{p.ID, p.TaskID, p.Status, money.Format(p.Amount), orDash(p.Provider), orDash(p.CreatedAt)}
		}))
	cmd.AddCommand(idCmd("get", "Show a payment intent", perms, (*admin.Service).GetPaymentIntent))
	return cmd
}

func feeCmd() *cobra.Command {
	perms := requirePerms["finance"]
	cmd := &cobra.Command{Use: "fee", Short: "Browse platform fees"}
	cmd.AddCommand(listCmd(admin.PlatformFeeFilters, perms, (*admin.Service).ListPlatformFees,
		table.Row{"ID", "User", "Task", "Amount", "Status", "Created"},
		func(f admin.PlatformFee) table.Row {
			return table.Row{f.ID, f.UserID, orDash(f.TaskID), money.Format(f.Amount), f.Status, orDash(f.CreatedAt)}
		}))
	cmd.AddCommand(exportCmd(admin.PlatformFeeFilters, perms, (*admin.Service).ExportPlatformFees))
	return cmd
}

func categoryCmd() *cobra.Command {
	perms := requirePerms["category"]
	cmd := &cobra.Command{Use: "category", Short: "Manage the task taxonomy"}
	cmd.AddCommand(listCmd(admin.CategoryFilters, perms, (*admin.Service).ListCategories,
		table.Row{"ID", "Name", "Slug", "Parent", "Active"},
		func(c admin.Category) table.Row {
			return table.Row{c.ID, c.Name, c.Slug, orDash(c.ParentID), c.Active}
		}))

	var name, slug, parent string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := admin.CategoryInput{Name: &name}
			in.Slug = optional(slug)
			in.ParentID = optional(parent)
			return withCaps(cmd.Context(), perms, func(ctx context.Context, a *app.App) error {
				c, err := a.Admin.CreateCategory(ctx, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "display name (required)")
	create.Flags().StringVar(&slug, "slug", "", "url slug (derived by the API when empty)")
	create.Flags().StringVar(&parent, "parent", "", "parent category id")
	cmd.AddCommand(create)

	var rename string
	var active, inactive bool
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename, activate or deactivate a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if active && inactive {
				return fmt.Errorf("--active and --inactive are exclusive")
			}
			in := admin.CategoryInput{Name: optional(rename)}
			if active || inactive {
				in.Active = &active
			}
			if in.Name == nil && in.Active == nil {
				return fmt.Errorf("nothing to update")
			}
			return withCaps(cmd.Context(), perms, func(ctx context.Context, a *app.App) error {
				c, err := a.Admin.UpdateCategory(ctx, args[0], in)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	update.Flags().StringVar(&rename, "name", "", "new name")
	update.Flags().BoolVar(&active, "active", false, "activate")
	update.Flags().BoolVar(&inactive, "inactive", false, "deactivate")
	cmd.AddCommand(update)
	return cmd
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func auditCmd() *cobra.Command {
	perms := requirePerms["audit"]
	cmd := &cobra.Command{Use: "audit", Short: "Browse the admin audit log"}
	cmd.AddCommand(listCmd(admin.AuditFilters, perms, (*admin.Service).ListAudit,
		table.Row{"At", "Actor", "Action", "Entity", "ID"},
		func(e admin.AuditEntry) table.Row {
			return table.Row{e.At, e.ActorID, e.Action, e.EntityType, e.EntityID}
		}))
	return cmd
}

func jobCmd() *cobra.Command {
	perms := requirePerms["job"]
	cmd := &cobra.Command{Use: "job", Short: "Inspect and trigger background jobs"}
	cmd.AddCommand(listCmd(admin.JobFilters, perms, (*admin.Service).ListJobs,
		table.Row{"ID", "Name", "Status", "Schedule", "Last run", "Next run"},
		func(j admin.Job) table.Row {
			return table.Row{j.ID, j.Name, j.Status, orDash(j.Schedule), orDash(j.LastRunAt), orDash(j.NextRunAt)}
		}))
	cmd.AddCommand(idCmd("get", "Show a job", perms, (*admin.Service).GetJob))
	cmd.AddCommand(idCmd("run", "Trigger a job now", perms, (*admin.Service).RunJob))
	return cmd
}

func settingsCmd() *cobra.Command {
	perms := requirePerms["settings"]
	cmd := &cobra.Command{Use: "settings", Short: "Read and write backend runtime config"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List config entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCaps(cmd.Context(), perms, func(ctx context.Context, a *app.App) error {
				entries, err := a.Admin.ListConfig(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Key", "Value", "Updated"})
				for _, e := range entries {
					tw.AppendRow(table.Row{e.Key, e.Value, orDash(e.UpdatedAt)})
				}
				tw.Render()
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCaps(cmd.Context(), perms, func(ctx context.Context, a *app.App) error {
				e, err := a.Admin.SetConfig(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSONOrTable(e)
			})
		},
	})
	return cmd
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
