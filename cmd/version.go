package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X github.com/shopsphere/shopctl/cmd.shopctlVersion=x.y.z"
var shopctlVersion = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the shopctl version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(out(cmd), "shopctl version %s\n", shopctlVersion)
		fmt.Fprintf(out(cmd), "server: %s\n", cfg.ServerURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
