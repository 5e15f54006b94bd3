package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopsphere/shopctl/pkg/api"
	"github.com/shopsphere/shopctl/pkg/config"
	"github.com/shopsphere/shopctl/pkg/console"
	"github.com/shopsphere/shopctl/pkg/journal"
	"github.com/shopsphere/shopctl/pkg/mutation"
	"github.com/shopsphere/shopctl/pkg/output"
	"github.com/shopsphere/shopctl/pkg/resource"
	"github.com/shopsphere/shopctl/pkg/session"
	"github.com/shopsphere/shopctl/pkg/telemetry"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
	serverURL    string
	profileName  string
	timeout      time.Duration
	logLevel     string
	dryRun       bool // --dry-run: print actions without executing them
	yesFlag      bool // --yes: skip confirmation prompts for destructive operations

	// Shared state set during PersistentPreRun
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	creds     session.Provider
	shop      *api.ShopSphere
	formatter output.Formatter
	closers   []func() error

	// Dependencies injected by tests; PersistentPreRun keeps them.
	injectedCreds     session.Provider
	injectedJournal   journal.Journal
	injectedFormatter output.Formatter
)

// rootCmd is the base command for shopctl.
var rootCmd = &cobra.Command{
	Use:   "shopctl",
	Short: "ShopSphere super-admin console: vendors, agents, products, orders, payouts and commission",
	Long: `shopctl is the operator-facing console of the ShopSphere marketplace.
It reviews vendor and delivery-agent onboarding, browses products and
orders, settles vendor payouts, configures commission rates and governs
user accounts against a ShopSphere backend.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Flags override the file and the environment.
		if serverURL != "" {
			cfg.ServerURL = serverURL
		}
		if outputFormat != "" {
			cfg.OutputFormat = outputFormat
		}
		if profileName != "" {
			cfg.Profile = profileName
		}
		if timeout > 0 {
			cfg.Timeout = timeout
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		level, err := telemetry.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		logger = telemetry.NewLogger(cmd.ErrOrStderr(), level, cfg.Log.Format)
		for _, w := range cfg.Warnings {
			logger.Warn(w)
		}
		metrics = telemetry.NewMetrics()

		creds = injectedCreds
		if creds == nil {
			creds, err = newCredentials(cfg)
			if err != nil {
				return err
			}
		}

		client := api.NewClient(cfg.ServerURL,
			api.WithTokenSource(session.TokenSource(creds)),
			api.WithTimeout(cfg.Timeout),
			api.WithLogger(logger),
			api.WithObserver(metrics),
		)
		shop = api.NewShopSphere(client)

		formatter = injectedFormatter
		if formatter == nil {
			formatter = output.NewFormatter(cfg.OutputFormat)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeAll()
	},
}

// newCredentials picks the credential backend. SHOPCTL_TOKEN wins over
// any stored login.
func newCredentials(c *config.Config) (session.Provider, error) {
	if tok := os.Getenv("SHOPCTL_TOKEN"); tok != "" {
		return session.Static(tok), nil
	}
	switch c.Credentials.Backend {
	case config.BackendMemory:
		return session.NewMemoryProvider(session.Credentials{}), nil
	case config.BackendEtcd:
		p, err := session.NewEtcdProvider(c.Credentials.EtcdEndpoints, c.Profile)
		if err != nil {
			return nil, fmt.Errorf("failed to connect credential store: %w", err)
		}
		closers = append(closers, p.Close)
		return p, nil
	default:
		path := c.Credentials.Path
		if path == "" {
			path = session.DefaultCredentialsPath()
		}
		return session.NewFileProvider(path, c.Profile), nil
	}
}

// openJournal returns the injected journal or opens the configured one.
func openJournal(ctx context.Context) (journal.Journal, error) {
	if injectedJournal != nil {
		return injectedJournal, nil
	}
	driver, dsn := cfg.Journal.Driver, cfg.Journal.DSN
	if driver == "sqlite3" || driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}
	j, err := journal.Open(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	closers = append(closers, j.Close)
	return j, nil
}

// newConsole builds a console for read-only commands.
func newConsole() *console.Console {
	return console.New(shop, nil, resource.WithObserver(metrics))
}

// newMutationConsole builds a console whose executor journals every action
// under the logged-in operator.
func newMutationConsole(ctx context.Context) (*console.Console, error) {
	j, err := openJournal(ctx)
	if err != nil {
		return nil, err
	}
	var operator string
	if c, err := creds.Load(ctx); err == nil {
		operator = c.Email
	}
	ex := mutation.NewExecutor(mutation.NewFacade(shop.Doer()),
		mutation.WithJournal(j),
		mutation.WithObserver(metrics),
		mutation.WithLogger(logger),
		mutation.WithOperator(operator),
	)
	return console.New(shop, ex, resource.WithObserver(metrics)), nil
}

func closeAll() error {
	var first error
	for _, c := range closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	closers = nil
	return first
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	closeAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// SetCredentials injects a credential provider, for tests.
func SetCredentials(p session.Provider) {
	injectedCreds = p
}

// SetJournal injects the action journal, for tests.
func SetJournal(j journal.Journal) {
	injectedJournal = j
}

// SetFormatter injects a formatter.
func SetFormatter(f output.Formatter) {
	injectedFormatter = f
}

// RootCmd returns the root cobra.Command for testing purposes.
func RootCmd() *cobra.Command {
	return rootCmd
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.shopctl/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format: table, wide, json, yaml (default \"table\")")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "ShopSphere backend URL")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "credential profile (default \"default\")")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "request timeout (default 30s)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default \"warn\")")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "print actions that would be taken without executing them")
	rootCmd.PersistentFlags().BoolVar(&yesFlag, "yes", false, "skip confirmation prompts for destructive operations")
}
