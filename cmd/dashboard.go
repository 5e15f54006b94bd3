package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/shopsphere/shopctl/pkg/session"
	"github.com/shopsphere/shopctl/pkg/tui"
)

var (
	dashboardRefreshFlag time.Duration
	dashboardMetricsFlag string
)

// dashboardCmd launches the interactive TUI dashboard.
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Launch the interactive TUI dashboard",
	Long: `Launch an interactive terminal dashboard with an overview tab and one
tab per admin collection. The active tab reloads on the refresh interval.

Key bindings:
  Tab / Shift+Tab  Navigate between tabs
  1 … 9            Jump directly to a tab
  j / k            Move the selection
  /                Search the loaded page (Enter keeps, Esc clears)
  f                Cycle the status filter
  a / x            Approve / reject the selected request
  b / u            Block / unblock the selected account
  t                Toggle the selected product
  s                Settle the next unsettled item of the selected order
  d                Delete the selected commission rule
  y / n            Confirm or cancel a destructive action
  r                Force an immediate data refresh
  q / Ctrl+C       Quit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		refresh := dashboardRefreshFlag
		if refresh <= 0 {
			refresh = cfg.Dashboard.Refresh
		}
		addr := dashboardMetricsFlag
		if addr == "" {
			addr = cfg.Dashboard.MetricsAddr
		}
		if addr != "" {
			srv := &http.Server{Addr: addr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server failed", "addr", addr, "err", err)
				}
			}()
			defer srv.Close()
		}

		c, err := newMutationConsole(ctx)
		if err != nil {
			return err
		}
		m := tui.New(ctx, c, tui.Options{
			ServerURL: cfg.ServerURL,
			Refresh:   refresh,
			NoticeTTL: cfg.Dashboard.NoticeTTL,
		})
		defer m.Close()

		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
		if fp, ok := creds.(*session.FileProvider); ok {
			go func() {
				err := fp.Watch(ctx, logger, func() { p.Send(tui.CredentialsChangedMsg{}) })
				if err != nil {
					logger.Warn("not watching credentials", "path", fp.Path(), "err", err)
				}
			}()
		}
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("dashboard: %w", err)
		}
		return nil
	},
}

func init() {
	dashboardCmd.Flags().DurationVar(&dashboardRefreshFlag, "refresh", 0, "reload interval (default from config, 15s)")
	dashboardCmd.Flags().StringVar(&dashboardMetricsFlag, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :9102")
	rootCmd.AddCommand(dashboardCmd)
}
