package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shopsphere/shopctl/pkg/mutation"
)

var vendorCmd = &cobra.Command{
	Use:     "vendor",
	Aliases: []string{"vendors"},
	Short:   "Manage vendors and vendor onboarding",
	Long:    "List, inspect, block and unblock vendors, and review vendor onboarding requests.",
}

var vendorRequestsCmd = &cobra.Command{
	Use:     "requests",
	Aliases: []string{"request"},
	Short:   "Review vendor onboarding requests",
}

func init() {
	vendorCmd.AddCommand(newListCmd(listSpec{
		entity:       mutation.EntityVendor,
		noun:         "vendors",
		columns:      accountColumns(),
		statusField:  "status",
		serverPaging: true,
	}))
	vendorCmd.AddCommand(newDescribeCmd(mutation.EntityVendor, "vendor"))
	vendorCmd.AddCommand(newActionCmd(mutation.EntityVendor, "block", "Block a vendor"))
	vendorCmd.AddCommand(newActionCmd(mutation.EntityVendor, "unblock", "Unblock a vendor"))

	vendorRequestsCmd.AddCommand(newListCmd(listSpec{
		entity:      mutation.EntityVendorRequest,
		noun:        "vendor requests",
		columns:     requestColumns(),
		statusField: "approval_status",
	}))
	vendorRequestsCmd.AddCommand(newDescribeCmd(mutation.EntityVendorRequest, "vendor request"))
	vendorRequestsCmd.AddCommand(newActionCmd(mutation.EntityVendorRequest, "approve", "Approve a vendor onboarding request"))
	vendorRequestsCmd.AddCommand(newActionCmd(mutation.EntityVendorRequest, "reject", "Reject a vendor onboarding request"))
	vendorCmd.AddCommand(vendorRequestsCmd)

	rootCmd.AddCommand(vendorCmd)
}
