package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopsphere/shopctl/pkg/api"
	"github.com/shopsphere/shopctl/pkg/output"
	"github.com/shopsphere/shopctl/pkg/session"
)

var (
	loginEmailFlag    string
	loginPasswordFlag string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in as a super-administrator and store the tokens",
	Long: `Log in with an admin email and password. The tokens are stored with the
configured credential backend under the selected profile. Without
--password the password is read from the first line of standard input.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.ValidateEmail(loginEmailFlag); err != nil {
			return fmt.Errorf("invalid --email value: %w", err)
		}
		password := loginPasswordFlag
		if password == "" {
			fmt.Fprint(out(cmd), "Password: ")
			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Scan()
			password = strings.TrimSpace(scanner.Text())
			fmt.Fprintln(out(cmd))
		}
		if password == "" {
			return errors.New("password must not be empty")
		}

		tokens, err := shop.Login(cmd.Context(), loginEmailFlag, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		err = creds.Save(cmd.Context(), session.Credentials{
			Email:        loginEmailFlag,
			AccessToken:  tokens.Bearer(),
			RefreshToken: tokens.Refresh,
			Server:       cfg.ServerURL,
			IssuedAt:     time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("failed to store credentials: %w", err)
		}
		fmt.Fprintf(out(cmd), "Logged in as %s.\n", loginEmailFlag)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored tokens of the current profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := creds.Clear(cmd.Context()); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
		fmt.Fprintln(out(cmd), "Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show who is logged in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := creds.Load(cmd.Context())
		if err != nil {
			return err
		}
		email := c.Email
		if email == "" {
			email = "(token from environment)"
		}
		server := c.Server
		if server == "" {
			server = cfg.ServerURL
		}
		fmt.Fprintf(out(cmd), "%s on %s (profile %s)\n", email, server, cfg.Profile)
		if !c.IssuedAt.IsZero() {
			fmt.Fprintf(out(cmd), "logged in %s\n", output.Ago(c.IssuedAt.Format(time.RFC3339), time.Now()))
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmailFlag, "email", "", "admin email address (required)")
	loginCmd.Flags().StringVar(&loginPasswordFlag, "password", "", "admin password (read from stdin when omitted)")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}
