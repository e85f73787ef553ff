package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/agendai/agendai-go/internal/config"
	"github.com/agendai/agendai-go/internal/domain"
	"github.com/agendai/agendai-go/internal/infra/observability"
	"github.com/agendai/agendai-go/internal/shell"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	apiURL   string
	logLevel string
	email    string
	password string
	user     string
	company  domain.Company
}

// newRootCmd builds the command tree. The returned func releases the tiers
// opened by whichever command ran.
func newRootCmd() (*cobra.Command, func()) {
	opts := &rootOptions{}
	var e *env
	cleanup := func() {
		if e != nil {
			e.Close()
			_ = e.logger.Sync()
			e = nil
		}
	}

	root := &cobra.Command{
		Use:           "agendai-shell",
		Short:         "Terminal host for the AgendAI application shell",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = config.LoadDotEnv(".env")
			cfg := config.LoadShell()
			if opts.apiURL != "" {
				cfg.APIURL = opts.apiURL
			}
			if opts.logLevel != "" {
				cfg.LogLevel = opts.logLevel
			}
			logger := observability.NewLogger(cfg.LogLevel)

			var err error
			e, err = newEnv(cmd.Context(), cfg, logger)
			return err
		},
	}
	root.PersistentFlags().StringVar(&opts.apiURL, "api", "", "API base URL (default $AGENDAI_API_URL)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (default $LOG_LEVEL)")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Wait for the API with bounded retries and print its status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := e.waitForAPI(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "status=%s version=%s timestamp=%s\n", status.Status, status.Version, status.Timestamp)
			return nil
		},
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one reconciliation pass and refresh cached plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), e, cmd.OutOrStdout())
		},
	}

	openCmd := &cobra.Command{
		Use:   "open [path...]",
		Short: "Boot the shell, optionally log in, and render each path",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if _, err := e.waitForAPI(ctx); err != nil {
				return err
			}
			if err := e.app.Init(ctx, ""); err != nil {
				e.logger.Warn("init", zap.Error(err))
			}
			if opts.email != "" {
				if err := e.app.Login(ctx, opts.email, opts.password); err != nil {
					return fmt.Errorf("login: %w", err)
				}
			}
			for _, p := range args {
				if err := e.app.Navigate(ctx, p); err != nil {
					e.logger.Warn("navigate", zap.String("path", p), zap.Error(err))
				}
			}
			printView(out, e)
			return nil
		},
	}
	openCmd.Flags().StringVar(&opts.email, "email", "", "login email")
	openCmd.Flags().StringVar(&opts.password, "password", "", "login password")

	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive shell: login, go, link, back, logout, retry, show, state, sync, focus, quit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runREPL(ctx, e, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	companiesCmd := &cobra.Command{
		Use:   "companies",
		Short: "Manage the locally reconciled companies",
	}
	companiesListCmd := &cobra.Command{
		Use:   "list",
		Short: "Reconcile and list companies",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := e.reconciler.Reconcile(ctx); err != nil {
				return err
			}
			list, err := e.reconciler.Companies(ctx)
			if err != nil {
				return err
			}
			printCompanies(cmd.OutOrStdout(), list)
			return nil
		},
	}
	companiesAddCmd := &cobra.Command{
		Use:   "add",
		Short: "Add or replace a company in every tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := e.reconciler.Reconcile(ctx); err != nil {
				return err
			}
			c := opts.company
			if c.Status == "" {
				c.Status = domain.CompanyStatusTrial
			}
			saved, err := e.reconciler.SaveCompany(ctx, c)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s %s\n", saved.ID, saved.Name)
			return nil
		},
	}
	companiesAddCmd.Flags().StringVar(&opts.company.ID, "id", "", "company id (new uuid when empty)")
	companiesAddCmd.Flags().StringVar(&opts.company.Name, "name", "", "company name")
	companiesAddCmd.Flags().StringVar(&opts.company.CNPJ, "cnpj", "", "CNPJ digits")
	companiesAddCmd.Flags().StringVar(&opts.company.Email, "email", "", "contact email")
	companiesAddCmd.Flags().StringVar(&opts.company.PlanName, "plan", "", "plan name")
	companiesAddCmd.Flags().StringVar(&opts.company.Status, "status", "", "active, inactive or trial")
	_ = companiesAddCmd.MarkFlagRequired("name")

	companiesDeleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a company and tombstone its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := e.reconciler.Reconcile(ctx); err != nil {
				return err
			}
			if err := e.reconciler.DeleteCompany(ctx, args[0], opts.user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
	companiesDeleteCmd.Flags().StringVar(&opts.user, "user", "admin", "user recorded in the deletion log")

	companiesLogCmd := &cobra.Command{
		Use:   "log",
		Short: "Print the deletion log",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := e.primary.DeletionLog(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNOME\tDATA\tUSUARIO")
			for _, d := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.Nome, d.DataExclusao.Format("2006-01-02 15:04"), d.Usuario)
			}
			return w.Flush()
		},
	}

	companiesCmd.AddCommand(companiesListCmd, companiesAddCmd, companiesDeleteCmd, companiesLogCmd)
	root.AddCommand(healthCmd, syncCmd, openCmd, replCmd, companiesCmd)
	return root, cleanup
}

func runSync(ctx context.Context, e *env, out io.Writer) error {
	outcome, err := e.reconciler.Reconcile(ctx)
	if err != nil {
		return err
	}
	list, err := e.reconciler.Companies(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "companies: %s (%d)\n", outcome, len(list))

	n, err := shell.SyncPlans(ctx, e.api, e.primary)
	if err != nil {
		e.logger.Warn("plan refresh failed, keeping cache", zap.Error(err))
		fmt.Fprintln(out, "plans: offline, cache kept")
		return nil
	}
	fmt.Fprintf(out, "plans: %d\n", n)
	return nil
}

func printCompanies(out io.Writer, list []domain.Company) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCNPJ\tPLAN\tSTATUS")
	for _, c := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.CNPJ, c.PlanName, c.Status)
	}
	_ = w.Flush()
}

func printView(out io.Writer, e *env) {
	st := e.app.State()
	doc := e.app.Document()
	fmt.Fprintf(out, "%s  [%s]  %s\n", e.app.Hash(), st.CurrentView, doc.Title())
	if f := doc.Failure(); f != nil {
		fmt.Fprintf(out, "! %s failed: %v (type \"retry\")\n", f.View, f.Err)
	}
	fmt.Fprintln(out, doc.HTML())
}
