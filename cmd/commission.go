package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/shopsphere/shopctl/pkg/api"
	"github.com/shopsphere/shopctl/pkg/mutation"
	"github.com/shopsphere/shopctl/pkg/output"
)

var commissionCmd = &cobra.Command{
	Use:   "commission",
	Short: "Configure marketplace commission rates",
}

// commissionView is what "commission show" prints in json and yaml.
type commissionView struct {
	GlobalRate float64      `json:"global_rate" yaml:"global_rate"`
	Categories []api.Record `json:"category_rates" yaml:"category_rates"`
}

var commissionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the global rate and the per-category rates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Rates are fractional, so they are read from the response rather
		// than from the store's integer stats.
		var v commissionView
		if err := api.DoJSON(cmd.Context(), shop.Doer(), http.MethodGet, api.Commission.ListPath(), nil, nil, &v); err != nil {
			return fmt.Errorf("failed to load commission settings: %w", err)
		}
		if _, ok := formatter.(*output.TableFormatter); !ok {
			fmt.Fprint(out(cmd), formatter.Format(v))
			return nil
		}
		fmt.Fprintf(out(cmd), "Global rate: %.2f%%\n\n", v.GlobalRate)
		fmt.Fprint(out(cmd), formatter.Format(output.Table{
			Columns: []output.Column{
				{Header: "ID", Key: "id"},
				{Header: "CATEGORY", Key: "category"},
				{Header: "RATE", Value: func(r api.Record) string { return fmt.Sprintf("%.2f%%", r.Float("rate")) }},
			},
			Rows: v.Categories,
		}))
		return nil
	},
}

var commissionSetGlobalCmd = &cobra.Command{
	Use:   "set-global <rate>",
	Short: "Set the global commission rate (percent)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rate, err := parseRate(args[0])
		if err != nil {
			return err
		}
		return runAction(cmd, mutation.EntityCommission, "set-global", "",
			mutation.Params{Fields: map[string]any{"rate": rate}})
	},
}

var commissionSetCategoryCmd = &cobra.Command{
	Use:   "set-category <category> <rate>",
	Short: "Add a commission rate for a product category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rate, err := parseRate(args[1])
		if err != nil {
			return err
		}
		return runAction(cmd, mutation.EntityCommission, "set-category", "",
			mutation.Params{Fields: map[string]any{"category": args[0], "rate": rate}})
	},
}

var commissionUpdateCategoryCmd = &cobra.Command{
	Use:   "update-category <id> <rate>",
	Short: "Change the rate of a category rule",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.ValidateID(args[0]); err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
		rate, err := parseRate(args[1])
		if err != nil {
			return err
		}
		return runAction(cmd, mutation.EntityCommission, "update-category", args[0],
			mutation.Params{Fields: map[string]any{"rate": rate}})
	},
}

func init() {
	commissionCmd.AddCommand(commissionShowCmd)
	commissionCmd.AddCommand(commissionSetGlobalCmd)
	commissionCmd.AddCommand(commissionSetCategoryCmd)
	commissionCmd.AddCommand(commissionUpdateCategoryCmd)
	commissionCmd.AddCommand(newActionCmd(mutation.EntityCommission, "delete-category", "Delete a category rule"))
	rootCmd.AddCommand(commissionCmd)
}
