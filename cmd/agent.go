package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shopsphere/shopctl/pkg/mutation"
)

var agentCmd = &cobra.Command{
	Use:     "agent",
	Aliases: []string{"agents"},
	Short:   "Manage delivery agents and agent onboarding",
}

var agentRequestsCmd = &cobra.Command{
	Use:     "requests",
	Aliases: []string{"request"},
	Short:   "Review delivery agent onboarding requests",
}

func init() {
	agentCmd.AddCommand(newListCmd(listSpec{
		entity:      mutation.EntityAgent,
		noun:        "delivery agents",
		columns:     accountColumns(),
		statusField: "status",
	}))
	agentCmd.AddCommand(newDescribeCmd(mutation.EntityAgent, "delivery agent"))
	agentCmd.AddCommand(newActionCmd(mutation.EntityAgent, "block", "Block a delivery agent"))
	agentCmd.AddCommand(newActionCmd(mutation.EntityAgent, "unblock", "Unblock a delivery agent"))

	agentRequestsCmd.AddCommand(newListCmd(listSpec{
		entity:      mutation.EntityAgentRequest,
		noun:        "delivery agent requests",
		columns:     requestColumns(),
		statusField: "approval_status",
	}))
	agentRequestsCmd.AddCommand(newDescribeCmd(mutation.EntityAgentRequest, "delivery agent request"))
	agentRequestsCmd.AddCommand(newActionCmd(mutation.EntityAgentRequest, "approve", "Approve a delivery agent request"))
	agentRequestsCmd.AddCommand(newActionCmd(mutation.EntityAgentRequest, "reject", "Reject a delivery agent request"))
	agentCmd.AddCommand(agentRequestsCmd)

	rootCmd.AddCommand(agentCmd)
}
