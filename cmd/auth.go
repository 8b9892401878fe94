package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/matheuskafuri/briefly/internal/session"
	"github.com/matheuskafuri/briefly/internal/tui"
	"github.com/spf13/cobra"
)

var (
	flagUsername string
	flagPassword string
	flagEmail    string
	flagRole     string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and cache your likes",
	Long: `Sign in to the briefly API. The token, user id, role and liked articles
are kept in the local cache until you log out.

The password is read from --password, then $BRIEFLY_PASSWORD, then a prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, password, err := credentials()
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context(), openOpts{})
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.sessions.Login(cmd.Context(), session.Credentials{Username: username, Password: password})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s as %s", successStyle.Render("Logged in"), sess.UserID)
		if sess.IsAdmin() {
			fmt.Fprint(out, " (admin)")
		}
		fmt.Fprintf(out, ". %d liked article(s) cached.\n", a.db.ReadLikes().Len())
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, password, err := credentials()
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context(), openOpts{})
		if err != nil {
			return err
		}
		defer a.Close()

		msg, err := a.sessions.Register(cmd.Context(), session.Registration{
			Username: username,
			Password: password,
			Email:    flagEmail,
			Role:     flagRole,
		})
		if err != nil {
			return err
		}
		if msg == "" {
			msg = "Account created"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s. Run `briefly login` to sign in.\n", successStyle.Render(strings.TrimSuffix(msg, ".")))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session and cached likes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), openOpts{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.sessions.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), openOpts{})
		if err != nil {
			return err
		}
		defer a.Close()

		s := a.sessions.Current()
		out := cmd.OutOrStdout()
		if !s.Authenticated() {
			fmt.Fprintln(out, "Not signed in.")
			return nil
		}
		role := s.Role
		if role == "" {
			role = "user"
		}
		fmt.Fprintf(out, "User:  %s\n", s.UserID)
		fmt.Fprintf(out, "Role:  %s\n", role)
		fmt.Fprintf(out, "Likes: %d\n", a.db.ReadLikes().Len())
		fmt.Fprintf(out, "API:   %s\n", a.cfg.APIURL)
		return nil
	},
}

// credentials collects the username and password from flags, the
// environment or an interactive prompt.
func credentials() (string, string, error) {
	username := flagUsername
	if username == "" {
		var err error
		if username, err = tui.Prompt("Username", false); err != nil {
			return "", "", err
		}
	}
	password := flagPassword
	if password == "" {
		password = os.Getenv("BRIEFLY_PASSWORD")
	}
	if password == "" {
		var err error
		if password, err = tui.Prompt("Password", true); err != nil {
			return "", "", err
		}
	}
	return strings.TrimSpace(username), password, nil
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&flagUsername, "username", "u", "", "account username")
		c.Flags().StringVarP(&flagPassword, "password", "p", "", "account password (prefer the prompt or $BRIEFLY_PASSWORD)")
	}
	registerCmd.Flags().StringVar(&flagEmail, "email", "", "email address")
	registerCmd.Flags().StringVar(&flagRole, "role", "", "account role (user or admin)")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}
