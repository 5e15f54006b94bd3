package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shopsphere/shopctl/pkg/api"
	"github.com/shopsphere/shopctl/pkg/mutation"
	"github.com/shopsphere/shopctl/pkg/output"
)

var productCmd = &cobra.Command{
	Use:     "product",
	Aliases: []string{"products"},
	Short:   "Browse products and toggle their listing status",
}

func init() {
	list := newListCmd(listSpec{
		entity: mutation.EntityProduct,
		noun:   "products",
		columns: []output.Column{
			{Header: "ID", Key: "id"},
			{Header: "NAME", Key: "name"},
			{Header: "VENDOR", Key: "vendor_id"},
			{Header: "PRICE", Value: output.MoneyField("price", "")},
			{Header: "STATUS", Key: "status"},
		},
		statusField: "status",
		extra: func(cmd *cobra.Command, q api.Query) api.Query {
			vendor, _ := cmd.Flags().GetString("vendor")
			return q.With("vendor", vendor)
		},
	})
	list.Flags().String("vendor", "", "only list products of this vendor id")
	productCmd.AddCommand(list)
	productCmd.AddCommand(newDescribeCmd(mutation.EntityProduct, "product"))

	toggle := newActionCmd(mutation.EntityProduct, "toggle-status", "Activate or deactivate a product listing")
	toggle.Aliases = []string{"toggle"}
	productCmd.AddCommand(toggle)

	rootCmd.AddCommand(productCmd)
}
