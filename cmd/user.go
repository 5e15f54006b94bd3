package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/shopsphere/shopctl/pkg/mutation"
	"github.com/shopsphere/shopctl/pkg/output"
)

var userCmd = &cobra.Command{
	Use:     "user",
	Aliases: []string{"users"},
	Short:   "Govern customer accounts",
	Long: `List customer accounts and block or unblock them.

The backend toggles the block state, so block and unblock first check the
current state of the account and refuse when there is nothing to change.`,
}

func init() {
	userCmd.AddCommand(newListCmd(listSpec{
		entity: mutation.EntityUser,
		noun:   "users",
		columns: []output.Column{
			{Header: "ID", Key: "id"},
			{Header: "NAME", Key: "name"},
			{Header: "EMAIL", Key: "email"},
			{Header: "STATUS", Key: "status"},
			{Header: "JOINED", Value: output.AgoField("date_joined", time.Now), Wide: true},
		},
		statusField: "status",
	}))
	userCmd.AddCommand(newDescribeCmd(mutation.EntityUser, "user"))
	userCmd.AddCommand(newActionCmd(mutation.EntityUser, "block", "Block a user"))
	userCmd.AddCommand(newActionCmd(mutation.EntityUser, "unblock", "Unblock a user"))
	rootCmd.AddCommand(userCmd)
}
