package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var flagPruneOlderThan string

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old articles from the local cache",
	Long: `Delete cached articles older than the retention period and reclaim disk space.
Liked article ids and the session are kept.

Uses the retention value from config (default: 30d) unless overridden with --older-than.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), openOpts{})
		if err != nil {
			return err
		}
		defer a.Close()

		retention := a.cfg.RetentionDuration()
		if flagPruneOlderThan != "" {
			d, err := parseAge(flagPruneOlderThan)
			if err != nil {
				return fmt.Errorf("invalid --older-than value: %w", err)
			}
			retention = d
		}

		deleted, err := a.db.Prune(retention)
		if err != nil {
			return fmt.Errorf("pruning: %w", err)
		}

		w := cmd.OutOrStdout()
		if deleted == 0 {
			fmt.Fprintln(w, "Nothing to prune.")
		} else {
			fmt.Fprintf(w, "Pruned %d article(s) older than %s.\n", deleted, formatDuration(retention))
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), openOpts{})
		if err != nil {
			return err
		}
		defer a.Close()

		dbPath := a.db.Path()
		count, size, err := a.db.Stats(dbPath)
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}
		rev, err := a.db.LikesRevision()
		if err != nil {
			return fmt.Errorf("reading like-set revision: %w", err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Cache: %s\n", dbPath)
		fmt.Fprintf(w, "Articles: %d\n", count)
		fmt.Fprintf(w, "Liked: %d (revision %d)\n", a.db.ReadLikes().Len(), rev.Seq)
		fmt.Fprintf(w, "Size: %s\n", formatBytes(size))
		return nil
	},
}

func init() {
	pruneCmd.Flags().StringVar(&flagPruneOlderThan, "older-than", "", "override retention period (e.g., 30d, 720h)")

	rootCmd.AddCommand(pruneCmd, statsCmd)
}

// parseAge accepts Go durations plus a whole-day form such as "7d".
func parseAge(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
