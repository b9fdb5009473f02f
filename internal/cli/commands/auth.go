package commands

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/cli/client"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/cli/config"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/cli/output"
	"github.com/spf13/cobra"
)

var (
	flagEmail    string
	flagPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session token",
	Long: `Sign in with your email and password. The password is read from
--password, the EXCELCTL_PASSWORD environment variable, or stdin.

  excelctl login --email you@example.com
  echo "$PW" | excelctl login --email you@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email := strings.TrimSpace(flagEmail)
		if email == "" {
			email = cfg.Email
		}
		if email == "" {
			return fmt.Errorf("--email is required")
		}

		password := flagPassword
		if password == "" {
			password = os.Getenv("EXCELCTL_PASSWORD")
		}
		if password == "" {
			fmt.Fprint(os.Stderr, "Password: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}

		auth, err := apiClient.Login(cmd.Context(), email, password)
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
				return fmt.Errorf("invalid email or password")
			}
			return fmt.Errorf("logging in: %w", err)
		}

		cfg.Token = auth.Token
		cfg.Email = auth.User.Email
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		if flagJSON {
			output.JSON(auth.User)
			return nil
		}
		fmt.Fprintf(output.Out, "Logged in as %s (%s)\n", auth.User.Name, auth.User.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Clear(); err != nil {
			return fmt.Errorf("clearing config: %w", err)
		}
		fmt.Fprintln(output.Out, "Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current authenticated user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		user, err := apiClient.Me(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching user: %w", err)
		}

		if flagJSON {
			output.JSON(user)
			return nil
		}
		output.UserInfo(user)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&flagEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&flagPassword, "password", "", "Account password")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}
