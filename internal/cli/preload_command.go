package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/KabirAcharya/riqpreview/internal/catalog"
	"github.com/KabirAcharya/riqpreview/internal/preload"
)

// newPreloadCommand creates the preload subcommand
func newPreloadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preload [dir]",
		Short: "Decode and cache every song archive in a directory",
		Long: `Scan a directory for riq and zip song archives, extract and decode their
audio, and fill both the in-memory catalog and the on-disk cache so later
previews start instantly.

The directory defaults to songs_dir from the config file, then to the
current directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runPreloadE,
	}
	return cmd
}

// runPreloadE executes the preload command
func runPreloadE(cmd *cobra.Command, args []string) error {
	cli := cliFromContext(cmd.Context())
	if cli == nil {
		return fmt.Errorf("CLI instance not found in context")
	}

	cfg, err := loadAndValidateConfig(cmd, cli)
	if err != nil {
		return err
	}
	setupLogging(cfg, cmd.ErrOrStderr())

	dir := cfg.SongsDir
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		dir = "."
	}

	engine, err := cli.buildEngine(cfg)
	if err != nil {
		return err
	}

	songs, err := catalog.Scan(engine.fsys, dir)
	if err != nil {
		cmd.PrintErrf("Error scanning %s: %v\n", dir, err)
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(songs) == 0 {
		cmd.Printf("No song archives found in %s\n", dir)
		return nil
	}

	slog.Info("starting preload batch", "dir", dir, "songs", len(songs))

	orchestrator := preload.NewOrchestrator(engine.cache, engine.bridge)
	recordBatch(orchestrator, cli.openRecorder(cfg))

	events, err := orchestrator.Start(cmd.Context(), songs)
	if err != nil {
		cmd.PrintErrf("Error: %v\n", err)
		return err
	}

	interactive := cli.isInteractiveTerminal(int(os.Stdout.Fd()))
	reportPreloadProgress(cmd, events, interactive)

	loaded := 0
	for _, song := range songs {
		if song.Ready() {
			loaded++
		}
	}
	cmd.Printf("Preloaded %d/%d songs from %s\n", loaded, len(songs), dir)

	if loaded < len(songs) {
		slog.Warn("some songs failed to preload", "loaded", loaded, "total", len(songs))
	}

	return nil
}

// reportPreloadProgress drains the event stream, rendering an in-place
// progress line on a terminal and one line per loaded song otherwise
func reportPreloadProgress(cmd *cobra.Command, events <-chan preload.Event, interactive bool) {
	lastProcessed := -1
	for event := range events {
		if event.Done {
			if interactive {
				cmd.Printf("\r%-60s\r", "")
			}
			continue
		}

		if interactive {
			cmd.Printf("\r[%d/%d] %-40s", event.Processed, event.Total, event.Label)
			continue
		}

		// Off-terminal, report only loading-phase advances to keep logs quiet
		if event.Processed > 0 && event.Processed != lastProcessed {
			cmd.Printf("loaded %d/%d %s\n", event.Processed, event.Total, event.Label)
			lastProcessed = event.Processed
		}
	}
}
