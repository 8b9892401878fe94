package cmd

import (
	"fmt"

	"github.com/matheuskafuri/briefly/internal/article"
	"github.com/matheuskafuri/briefly/internal/cache"
	"github.com/matheuskafuri/briefly/internal/feed"
	"github.com/matheuskafuri/briefly/internal/logger"
	"github.com/matheuskafuri/briefly/internal/remote"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagCategory string
	flagTitle    string
	flagAuthor   string
	flagLimit    int
	flagOffline  bool
	flagSummary  bool

	flagQuery    string
	flagSearchIn string
)

var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "List the latest summarized articles",
	Long: `List the latest summarized articles, optionally narrowed by category,
title or author. When the API cannot be reached the local cache is listed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), openOpts{})
		if err != nil {
			return err
		}
		defer a.Close()

		cat, err := a.category(flagCategory)
		if err != nil {
			return err
		}

		v := feed.View{Mode: feed.ModePlain, Category: cat}
		if !flagOffline {
			list, err := a.client.GetArticles(cmd.Context(), remote.ArticleQuery{
				Title:  flagTitle,
				Tags:   cat.Tags(),
				Author: flagAuthor,
			})
			if err == nil {
				v.Articles = article.WithSummary(list.Articles)
				if err := a.db.UpsertArticles(v.Articles); err != nil {
					a.log.Warn("caching articles", zap.String("error", logger.SanitizeError(err)))
				}
				a.db.SetLastRefresh()
			} else {
				a.log.Info("listing cached articles", zap.String("error", logger.SanitizeError(err)))
				v.Stale = true
				v.Message = feed.MsgOffline
			}
		}
		if flagOffline || v.Stale {
			stored, err := a.db.GetArticles(cache.QueryOpts{
				Tags:   cat.Tags(),
				Title:  flagTitle,
				Author: flagAuthor,
				Limit:  flagLimit,
			})
			if err != nil {
				return fmt.Errorf("reading cache: %w", err)
			}
			v.Articles = make([]article.Article, len(stored))
			for i, s := range stored {
				v.Articles[i] = s.Article
			}
		}
		if flagLimit > 0 && len(v.Articles) > flagLimit {
			v.Articles = v.Articles[:flagLimit]
		}
		if len(v.Articles) == 0 && v.Message == "" {
			v.Message = "No articles found."
		}

		printView(cmd.OutOrStdout(), v, a.db.ReadLikes(), flagSummary)
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Ask the API to fetch and summarize new articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), openOpts{})
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Generating articles...")
		report, err := a.client.GenerateArticles(cmd.Context(), remote.GenerateRequest{Q: flagQuery, SearchIn: flagSearchIn})
		if err != nil {
			return err
		}
		if err := a.db.UpsertArticles(report.ArticlesProcessed); err != nil {
			a.log.Warn("caching generated articles", zap.String("error", logger.SanitizeError(err)))
		}

		fmt.Fprintf(out, "%s: %d processed, %d inserted, %d updated, %d failed.\n",
			successStyle.Render("Done"), report.NumProcessed, report.NumInserted, report.NumUpdated, report.NumFailed)
		return nil
	},
}

func init() {
	articlesCmd.Flags().StringVarP(&flagCategory, "category", "c", "", "category to list (default from config)")
	articlesCmd.Flags().StringVar(&flagTitle, "title", "", "only articles whose title contains this text")
	articlesCmd.Flags().StringVar(&flagAuthor, "author", "", "only articles from this author")
	articlesCmd.Flags().IntVarP(&flagLimit, "limit", "n", 20, "maximum number of articles (0 for all)")
	articlesCmd.Flags().BoolVar(&flagOffline, "offline", false, "list the local cache without calling the API")
	articlesCmd.Flags().BoolVarP(&flagSummary, "summary", "s", false, "print a summary excerpt under each article")

	generateCmd.Flags().StringVarP(&flagQuery, "query", "q", "", "search query for the news source")
	generateCmd.Flags().StringVar(&flagSearchIn, "search-in", "", "fields the query searches (e.g. title,description)")

	rootCmd.AddCommand(articlesCmd, generateCmd)
}
