package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shopsphere/shopctl/pkg/api"
	"github.com/shopsphere/shopctl/pkg/console"
	"github.com/shopsphere/shopctl/pkg/output"
)

var reportRangeFlag string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the marketplace analytics report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := api.QueryFrom(api.ListOptions{Range: reportRangeFlag})
		if err != nil {
			return err
		}
		rep, err := shop.Reports(cmd.Context(), q)
		if err != nil {
			return fmt.Errorf("failed to load report: %w", err)
		}
		fmt.Fprint(out(cmd), formatter.Format(rep))
		return nil
	},
}

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Show the admin wallet balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := shop.WalletBalance(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load wallet: %w", err)
		}
		if _, ok := formatter.(*output.TableFormatter); !ok {
			fmt.Fprint(out(cmd), formatter.Format(w))
			return nil
		}
		fmt.Fprintf(out(cmd), "Balance: %s\n", output.Money(w.Float("balance"), w.String("currency")))
		return nil
	},
}

// overviewView is what "overview" prints in json and yaml.
type overviewView struct {
	Balance float64           `json:"balance" yaml:"balance"`
	Counts  []console.Count   `json:"counts" yaml:"counts"`
	Errors  map[string]string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show the dashboard counts and the wallet balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ov, err := newConsole().Overview(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load overview: %w", err)
		}
		for src, e := range ov.Errors {
			logger.Warn("overview source unavailable", "source", src, "err", e)
		}
		if _, ok := formatter.(*output.TableFormatter); !ok {
			v := overviewView{Balance: ov.Balance(), Counts: ov.Counts()}
			for src, e := range ov.Errors {
				if v.Errors == nil {
					v.Errors = map[string]string{}
				}
				v.Errors[src] = e.Error()
			}
			fmt.Fprint(out(cmd), formatter.Format(v))
			return nil
		}

		if e, ok := ov.Errors[console.SourceWallet]; ok {
			fmt.Fprintf(out(cmd), "Balance: unavailable (%v)\n", e)
		} else {
			fmt.Fprintf(out(cmd), "Balance: %s\n", output.Money(ov.Balance(), ov.Wallet.String("currency")))
		}
		if e, ok := ov.Errors[console.SourceDashboard]; ok {
			fmt.Fprintf(out(cmd), "Counts: unavailable (%v)\n", e)
			return nil
		}
		fmt.Fprintln(out(cmd))
		rows := make([]api.Record, 0)
		for _, c := range ov.Counts() {
			rows = append(rows, api.Record{
				"name":  strings.ReplaceAll(c.Name, "_", " "),
				"value": output.Count(int64(c.Value)),
			})
		}
		fmt.Fprint(out(cmd), formatter.Format(output.Table{
			Columns: []output.Column{{Header: "FIGURE", Key: "name"}, {Header: "COUNT", Key: "value"}},
			Rows:    rows,
		}))
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportRangeFlag, "range", "", "reporting window, e.g. 7d, 30d, 90d")
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(walletCmd)
	rootCmd.AddCommand(overviewCmd)
}
