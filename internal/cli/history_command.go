package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KabirAcharya/riqpreview/internal/history"
)

// newHistoryCommand creates the history subcommand
func newHistoryCommand() *cobra.Command {
	var since string
	var title string
	var limit int
	var batches bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent preview plays",
		Long: `Show recent preview plays recorded in the history database.

--since accepts natural language like "2 days ago" or "yesterday".
--batches switches to past preload batch outcomes instead of plays.

Examples:
  riqpreview history
  riqpreview history --since "2 days ago" --limit 50
  riqpreview history --title "megamix"
  riqpreview history --batches`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryE(cmd, since, title, limit, batches)
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Only entries after this time (natural language)")
	cmd.Flags().StringVar(&title, "title", "", "Only plays of this song title")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show")
	cmd.Flags().BoolVar(&batches, "batches", false, "Show preload batches instead of plays")

	return cmd
}

// runHistoryE executes the history command
func runHistoryE(cmd *cobra.Command, since, title string, limit int, batches bool) error {
	cli := cliFromContext(cmd.Context())
	if cli == nil {
		return fmt.Errorf("CLI instance not found in context")
	}

	cfg, err := loadAndValidateConfig(cmd, cli)
	if err != nil {
		return err
	}
	setupLogging(cfg, cmd.ErrOrStderr())

	if cli.historyDB == nil {
		db, err := history.NewDatabase(history.DefaultDatabasePath())
		if err != nil {
			cmd.PrintErrf("Error opening history database: %v\n", err)
			return fmt.Errorf("open history database: %w", err)
		}
		cli.historyDB = db
	}

	var sinceTime time.Time
	if since != "" {
		sinceTime, err = history.ParseSince(since, time.Now())
		if err != nil {
			cmd.PrintErrf("Error: %v\n", err)
			return err
		}
	}

	if batches {
		return printBatchHistory(cmd, cli, limit)
	}

	return printPlayHistory(cmd, cli, history.PlayFilter{
		Since: sinceTime,
		Title: title,
		Limit: limit,
	})
}

// printPlayHistory renders recent preview plays
func printPlayHistory(cmd *cobra.Command, cli *CLI, filter history.PlayFilter) error {
	plays, err := history.RecentPlays(cli.historyDB, filter)
	if err != nil {
		cmd.PrintErrf("Error querying history: %v\n", err)
		return fmt.Errorf("query history: %w", err)
	}

	if len(plays) == 0 {
		cmd.Println("No plays recorded")
		return nil
	}

	cmd.Printf("%-19s  %-32s %10s %10s\n", "WHEN", "TITLE", "OFFSET", "LENGTH")
	for _, play := range plays {
		cmd.Printf("%-19s  %-32s %10s %10s\n",
			play.Time.Format("2006-01-02 15:04:05"),
			play.Title,
			play.Offset.Round(time.Second),
			play.Duration.Round(time.Second))
	}

	return nil
}

// printBatchHistory renders recent preload batch outcomes
func printBatchHistory(cmd *cobra.Command, cli *CLI, limit int) error {
	records, err := history.RecentBatches(cli.historyDB, limit)
	if err != nil {
		cmd.PrintErrf("Error querying history: %v\n", err)
		return fmt.Errorf("query history: %w", err)
	}

	if len(records) == 0 {
		cmd.Println("No preload batches recorded")
		return nil
	}

	cmd.Printf("%-19s  %6s %6s %6s %9s %10s\n", "WHEN", "TOTAL", "OK", "FAIL", "FROM DISK", "ELAPSED")
	for _, batch := range records {
		cmd.Printf("%-19s  %6d %6d %6d %9d %10s\n",
			batch.Started.Format("2006-01-02 15:04:05"),
			batch.Total,
			batch.Loaded,
			batch.Failed,
			batch.FromDisk,
			batch.Elapsed.Round(time.Millisecond))
	}

	return nil
}
