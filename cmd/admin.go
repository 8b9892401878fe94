package cmd

import (
	"fmt"

	"github.com/matheuskafuri/briefly/internal/admin"
	"github.com/matheuskafuri/briefly/internal/article"
	"github.com/matheuskafuri/briefly/internal/remote"
	"github.com/spf13/cobra"
)

var (
	flagEditSummary   string
	flagEditKeyPoints []string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administer articles (admin accounts only)",
}

var adminDeleteCmd = &cobra.Command{
	Use:   "delete <article-id>",
	Short: "Delete an article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), openOpts{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := requireAdmin(a); err != nil {
			return err
		}
		msg, err := a.admin.Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if msg == "" {
			msg = "Article deleted"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", successStyle.Render(msg), args[0])
		return nil
	},
}

var adminEditCmd = &cobra.Command{
	Use:   "edit <article-id>",
	Short: "Replace an article's summary or key points",
	Example: `  briefly admin edit 65f0c2 --summary "Shorter summary."
  briefly admin edit 65f0c2 --key-point "First" --key-point "Second"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var e admin.Edit
		if cmd.Flags().Changed("summary") {
			e.Summary = &flagEditSummary
		}
		if cmd.Flags().Changed("key-point") {
			e.KeyPoints = flagEditKeyPoints
		}

		a, err := openApp(cmd.Context(), openOpts{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := requireAdmin(a); err != nil {
			return err
		}
		updated, err := a.admin.Update(cmd.Context(), args[0], e)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s: %s\n", successStyle.Render("Article updated"), args[0])
		if updated != nil {
			printArticles(w, []article.Article{*updated}, a.db.ReadLikes(), true)
		}
		return nil
	},
}

// requireAdmin rejects signed-out and non-admin sessions before any request.
func requireAdmin(a *app) error {
	s, err := a.signedIn()
	if err != nil {
		return err
	}
	if !s.IsAdmin() {
		return fmt.Errorf("user %s is not an admin: %w", s.UserID, remote.ErrPermission)
	}
	return nil
}

func init() {
	adminEditCmd.Flags().StringVar(&flagEditSummary, "summary", "", "new summary text")
	adminEditCmd.Flags().StringArrayVar(&flagEditKeyPoints, "key-point", nil, "key point (repeat for each point; replaces all)")

	adminCmd.AddCommand(adminDeleteCmd, adminEditCmd)
	rootCmd.AddCommand(adminCmd)
}
