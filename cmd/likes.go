package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/matheuskafuri/briefly/internal/article"
	"github.com/matheuskafuri/briefly/internal/feed"
	"github.com/matheuskafuri/briefly/internal/logger"
	"github.com/matheuskafuri/briefly/internal/surface"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagLocal bool
	flagLiked bool
)

var likeCmd = &cobra.Command{
	Use:   "like <article-id>",
	Short: "Like or unlike an article",
	Long: `Toggle your like on an article. The server decides the new state; the
local cache and every open briefly view are updated to match.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), openOpts{relays: true})
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.signedIn()
		if err != nil {
			return err
		}

		out, err := a.toggles.Toggle(cmd.Context(), sess.UserID, args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if out.Liked {
			fmt.Fprintf(w, "%s Liked %s\n", heart(true), out.ArticleID)
		} else {
			fmt.Fprintf(w, "%s Unliked %s\n", heart(false), out.ArticleID)
		}
		if out.Liked != out.Presumed {
			fmt.Fprintln(w, metaStyle.Render("Your cached likes were out of date and have been corrected."))
		}
		return nil
	},
}

var likesCmd = &cobra.Command{
	Use:   "likes",
	Short: "List the ids of the articles you liked",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), openOpts{})
		if err != nil {
			return err
		}
		defer a.Close()

		var set article.LikeSet
		if flagLocal {
			set = a.db.ReadLikes()
		} else {
			set = a.gov.GetLikeSet(cmd.Context(), a.sessions.Current().UserID)
		}

		w := cmd.OutOrStdout()
		if set.Len() == 0 {
			fmt.Fprintln(w, feed.MsgNoLikes)
			return nil
		}

		stored, err := a.db.GetArticlesByIDs(set.IDs())
		if err != nil {
			return fmt.Errorf("reading cache: %w", err)
		}
		titles := make(map[article.ID]string, len(stored))
		for _, s := range stored {
			titles[s.ID] = s.Title
		}
		for _, id := range set.IDs() {
			fmt.Fprintf(w, "%s %s  %s\n", heart(true), id, metaStyle.Render(titles[id]))
		}
		return nil
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show your personalized feed",
	Long: `Show the feed personalized to your likes. Signed-out users, and anyone
when personalization is unavailable, get the latest articles instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), openOpts{})
		if err != nil {
			return err
		}
		defer a.Close()

		user := a.sessions.Current().UserID
		var v feed.View
		if flagLiked {
			v, err = a.feeds.Liked(cmd.Context(), user)
		} else {
			cat, cerr := a.category(flagCategory)
			if cerr != nil {
				return cerr
			}
			v, err = a.feeds.Personalized(cmd.Context(), user, cat)
		}
		if err != nil {
			return err
		}

		printView(cmd.OutOrStdout(), v, a.db.ReadLikes(), flagSummary)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print like changes as they happen",
	Long: `Follow your like-set and print every change made from this machine's
other briefly processes, or from anywhere when the Redis relay is set up.
Stop with ctrl+c.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, openOpts{relays: true})
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.signedIn()
		if err != nil {
			return err
		}
		return watchLikes(ctx, a, sess.UserID, cmd.OutOrStdout())
	},
}

func watchLikes(ctx context.Context, a *app, userID string, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan struct{}, 1)
	s := surface.Mount("watch", a.bus, a.gov, userID, surface.Options{
		Debounce: a.cfg.DebounceDuration(),
		Logger:   a.log,
		OnUpdate: func() {
			select {
			case updates <- struct{}{}:
			default:
			}
		},
	})
	defer s.Close()

	s.Sync(ctx)
	<-updates
	prev := s.Likes()
	fmt.Fprintf(w, "Watching %d liked article(s). Press ctrl+c to stop.\n", prev.Len())

	relayDown := make(chan error, 1)
	if a.relayed {
		go func() { relayDown <- a.bus.Run(ctx) }()
	} else {
		s.Poll(a.db, a.cfg.PollDuration())
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-relayDown:
			if ctx.Err() != nil {
				return nil
			}
			a.log.Info("relays stopped, polling the cache", zap.String("error", logger.SanitizeError(err)))
			s.Poll(a.db, a.cfg.PollDuration())
		case <-updates:
			cur := s.Likes()
			printDiff(w, prev, cur, time.Now())
			prev = cur
		}
	}
}

// printDiff writes one line per article whose membership differs.
func printDiff(w io.Writer, prev, cur article.LikeSet, at time.Time) {
	stamp := metaStyle.Render(at.Format("15:04:05"))
	for _, id := range cur.IDs() {
		if !prev.Contains(id) {
			fmt.Fprintf(w, "%s %s liked %s\n", stamp, heart(true), id)
		}
	}
	for _, id := range prev.IDs() {
		if !cur.Contains(id) {
			fmt.Fprintf(w, "%s %s unliked %s\n", stamp, heart(false), id)
		}
	}
}

func init() {
	likesCmd.Flags().BoolVar(&flagLocal, "local", false, "read the cached like-set without calling the API")

	feedCmd.Flags().BoolVar(&flagLiked, "liked", false, "show only the articles you liked")
	feedCmd.Flags().StringVarP(&flagCategory, "category", "c", "", "category for the latest-articles fallback")
	feedCmd.Flags().BoolVarP(&flagSummary, "summary", "s", false, "print a summary excerpt under each article")

	rootCmd.AddCommand(likeCmd, likesCmd, feedCmd, watchCmd)
}
