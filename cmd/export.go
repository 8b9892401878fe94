package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/matheuskafuri/briefly/internal/export"
	"github.com/matheuskafuri/briefly/internal/feed"
	"github.com/spf13/cobra"
)

var (
	flagFormat string
	flagOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write articles as an Atom, RSS or JSON feed",
	Long: `Write the latest articles, or with --liked the articles you liked, as a
syndication feed that any feed reader can subscribe to.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(flagFormat)
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context(), openOpts{})
		if err != nil {
			return err
		}
		defer a.Close()

		var (
			v     feed.View
			title string
		)
		if flagLiked {
			v, err = a.feeds.Liked(cmd.Context(), a.sessions.Current().UserID)
			title = "briefly: liked articles"
		} else {
			cat, cerr := a.category(flagCategory)
			if cerr != nil {
				return cerr
			}
			v, err = a.feeds.Plain(cmd.Context(), cat)
			title = "briefly: " + string(cat)
		}
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if flagOutput != "" && flagOutput != "-" {
			f, err := os.Create(flagOutput)
			if err != nil {
				return fmt.Errorf("creating %s: %w", flagOutput, err)
			}
			defer f.Close()
			w = f
		}

		site := a.cfg.SiteURL
		if site == "" {
			site = a.cfg.APIURL
		}
		meta := export.Meta{
			Title:       title,
			Link:        site,
			Description: "AI-summarized news from briefly",
			Author:      "briefly",
		}
		if err := export.Write(w, format, meta, v.Articles); err != nil {
			return err
		}
		if flagOutput != "" && flagOutput != "-" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d article(s) to %s.\n", len(v.Articles), flagOutput)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&flagFormat, "format", "f", "atom", "feed format: atom, rss or json")
	exportCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "file to write (default stdout)")
	exportCmd.Flags().BoolVar(&flagLiked, "liked", false, "export the articles you liked")
	exportCmd.Flags().StringVarP(&flagCategory, "category", "c", "", "category to export (default from config)")

	rootCmd.AddCommand(exportCmd)
}
