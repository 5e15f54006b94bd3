package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopsphere/shopctl/pkg/api"
	"github.com/shopsphere/shopctl/pkg/console"
	"github.com/shopsphere/shopctl/pkg/mutation"
	"github.com/shopsphere/shopctl/pkg/output"
)

var orderCmd = &cobra.Command{
	Use:     "order",
	Aliases: []string{"orders"},
	Short:   "Browse orders and settle vendor payouts",
}

var (
	orderSettleOrderFlag  string
	orderSettleReasonFlag string
)

var orderSettleCmd = &cobra.Command{
	Use:   "settle [item-id]",
	Short: "Settle the vendor payout of an order item",
	Long: `Settle the vendor payout of one order item. Pass the item id, or
--order to settle the first unsettled item of an order.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var item string
		switch {
		case len(args) == 1 && orderSettleOrderFlag != "":
			return fmt.Errorf("pass either an item id or --order, not both")
		case len(args) == 1:
			item = args[0]
		case orderSettleOrderFlag != "":
			if err := api.ValidateID(orderSettleOrderFlag); err != nil {
				return fmt.Errorf("invalid --order value: %w", err)
			}
			order, err := newConsole().Get(cmd.Context(), mutation.EntityOrder, orderSettleOrderFlag)
			if err != nil {
				return fmt.Errorf("failed to describe order: %w", err)
			}
			var ok bool
			if item, ok = console.SettleTarget(order); !ok {
				return fmt.Errorf("order %s has no unsettled items", orderSettleOrderFlag)
			}
		default:
			return fmt.Errorf("an item id or --order is required")
		}
		if err := api.ValidateID(item); err != nil {
			return fmt.Errorf("invalid item id: %w", err)
		}
		return runAction(cmd, mutation.EntityOrder, "settle-payment", item, mutation.Params{Reason: orderSettleReasonFlag})
	},
}

func init() {
	orderCmd.AddCommand(newListCmd(listSpec{
		entity: mutation.EntityOrder,
		noun:   "orders",
		columns: []output.Column{
			{Header: "ID", Key: "id"},
			{Header: "NUMBER", Key: "order_number"},
			{Header: "CUSTOMER", Key: "customer"},
			{Header: "TOTAL", Value: output.MoneyField("total_amount", "")},
			{Header: "STATUS", Key: "status"},
			{Header: "PAYOUT", Key: "payout_status"},
			{Header: "CREATED", Value: output.AgoField("created_at", time.Now), Wide: true},
		},
		statusField:  "status",
		serverPaging: true,
	}))
	orderCmd.AddCommand(newDescribeCmd(mutation.EntityOrder, "order"))

	orderSettleCmd.Flags().StringVar(&orderSettleOrderFlag, "order", "", "settle the first unsettled item of this order")
	orderSettleCmd.Flags().StringVar(&orderSettleReasonFlag, "reason", "", "reason recorded with the action")
	orderCmd.AddCommand(orderSettleCmd)

	rootCmd.AddCommand(orderCmd)
}
