package cmd

import (
	"fmt"
	"strings"

	"github.com/matheuskafuri/briefly/internal/feed"
	"github.com/matheuskafuri/briefly/internal/tui"
	"github.com/spf13/cobra"
)

var flagMode string

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Launch the full article browser",
	Long: `Open briefly in browse mode: the two-pane article browser. Likes made here
show up immediately in every other open briefly view.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := parseMode(flagMode)
		if err != nil {
			return err
		}
		return runBrowser(cmd, m)
	},
}

func parseMode(s string) (feed.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "latest", "plain":
		return feed.ModePlain, nil
	case "for-you", "foryou", "for you", "personalized":
		return feed.ModePersonalized, nil
	case "liked", "likes":
		return feed.ModeLiked, nil
	}
	return "", fmt.Errorf("unknown mode %q (valid: latest, for-you, liked)", s)
}

// runBrowser starts the TUI. An empty mode opens the home screen.
func runBrowser(cmd *cobra.Command, m feed.Mode) error {
	a, err := openApp(cmd.Context(), openOpts{fullScreen: true, relays: true})
	if err != nil {
		return err
	}
	defer a.Close()

	cat, err := a.category(flagCategory)
	if err != nil {
		return err
	}

	// Auto-prune old articles when the list is due for a refresh anyway
	if a.db.NeedsRefresh(a.cfg.RefreshDuration()) {
		a.db.Prune(a.cfg.RetentionDuration())
	}

	return tui.Run(tui.RunOpts{
		Feeds:           a.feeds,
		Likes:           a.toggles,
		LikeSource:      a.gov,
		Bus:             a.bus,
		Store:           a.db,
		Session:         a.sessions.Current(),
		Mode:            m,
		Category:        cat,
		Site:            a.cfg.SiteURL,
		RefreshInterval: a.cfg.RefreshDuration(),
		Relayed:         a.relayed,
		PollInterval:    a.cfg.PollDuration(),
		Debounce:        a.cfg.DebounceDuration(),
		Logger:          a.log,
	})
}

func init() {
	browseCmd.Flags().StringVarP(&flagMode, "mode", "m", "latest", "view to open: latest, for-you or liked")
	browseCmd.Flags().StringVarP(&flagCategory, "category", "c", "", "category to open with (default from config)")
	rootCmd.Flags().StringVarP(&flagCategory, "category", "c", "", "category to open with (default from config)")

	rootCmd.AddCommand(browseCmd)
}
