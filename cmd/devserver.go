package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopsphere/shopctl/pkg/devserver"
)

var (
	devServerAddrFlag  string
	devServerEmptyFlag bool
)

var devServerCmd = &cobra.Command{
	Use:   "dev-server",
	Short: "Run an in-memory ShopSphere backend for local use",
	Long: fmt.Sprintf(`Run an in-memory backend that answers the ShopSphere admin endpoints
with seeded data. It is meant for trying shopctl locally:

  shopctl dev-server --addr :8000 &
  shopctl login --email %s --password %s
  shopctl vendor requests list

State lives in memory and is lost on exit.`, devserver.DefaultAdminEmail, devserver.DefaultAdminPassword),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := devserver.New(devserver.Options{Empty: devServerEmptyFlag, Logger: logger})
		logger.Info("dev server listening", "addr", devServerAddrFlag)
		fmt.Fprintf(out(cmd), "ShopSphere dev server on %s (admin %s)\n", devServerAddrFlag, devserver.DefaultAdminEmail)
		return srv.ListenAndServe(cmd.Context(), devServerAddrFlag)
	},
}

func init() {
	devServerCmd.Flags().StringVar(&devServerAddrFlag, "addr", "127.0.0.1:8000", "listen address")
	devServerCmd.Flags().BoolVar(&devServerEmptyFlag, "empty", false, "start without seeded data")
	rootCmd.AddCommand(devServerCmd)
}
