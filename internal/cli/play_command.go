package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KabirAcharya/riqpreview/internal/catalog"
	"github.com/KabirAcharya/riqpreview/internal/decode"
	"github.com/KabirAcharya/riqpreview/internal/preview"
	"github.com/KabirAcharya/riqpreview/internal/riq"
	"github.com/KabirAcharya/riqpreview/internal/sniff"
)

// newPlayCommand creates the play subcommand
func newPlayCommand() *cobra.Command {
	var offsetSec float64
	var durationSec float64

	cmd := &cobra.Command{
		Use:   "play <archive>",
		Short: "Play the song preview from one archive",
		Long: `Extract, decode, and play the audio from a riq or zip song archive.

Playback starts at the song midpoint unless --offset gives a position in
seconds, and runs to the end of the song unless --duration caps it.
Decoded audio is cached on disk so replaying the same archive skips
extraction.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlayE(cmd, args[0], offsetSec, durationSec)
		},
	}

	cmd.Flags().Float64Var(&offsetSec, "offset", -1, "Start position in seconds (negative = song midpoint)")
	cmd.Flags().Float64Var(&durationSec, "duration", 0, "Stop after this many seconds (0 = play to the end)")

	return cmd
}

// songFromArchive builds a catalog entry for a single archive path
func songFromArchive(archivePath string) *catalog.Song {
	base := filepath.Base(archivePath)
	ext := filepath.Ext(base)
	title := strings.TrimSuffix(base, ext)
	alternate := strings.EqualFold(ext, ".zip")
	return catalog.NewSong(archivePath, title, alternate)
}

// runPlayE executes the play command
func runPlayE(cmd *cobra.Command, archivePath string, offsetSec, durationSec float64) error {
	cli := cliFromContext(cmd.Context())
	if cli == nil {
		return fmt.Errorf("CLI instance not found in context")
	}

	cfg, err := loadAndValidateConfig(cmd, cli)
	if err != nil {
		return err
	}
	setupLogging(cfg, cmd.ErrOrStderr())

	if _, err := os.Stat(archivePath); err != nil {
		cmd.PrintErrf("Error: archive not found: %s\n", archivePath)
		return fmt.Errorf("archive not found: %w", err)
	}

	engine, err := cli.buildEngine(cfg)
	if err != nil {
		return err
	}

	song := songFromArchive(archivePath)

	loader := engineLoader(engine)
	data, err := loader(cmd.Context(), song)
	if err != nil {
		cmd.PrintErrf("Error decoding %s: %v\n", archivePath, err)
		return fmt.Errorf("decode %s: %w", archivePath, err)
	}
	song.SetAudio(data)

	transport, err := preview.NewTransport(cfg.Transport)
	if err != nil {
		cmd.PrintErrf("Error: %v\n", err)
		return err
	}

	player := preview.NewPlayer(transport)
	defer func() {
		if err := player.Close(); err != nil {
			slog.Error("error closing player", "error", err)
		}
	}()

	offset := time.Duration(-1)
	if offsetSec >= 0 {
		offset = time.Duration(offsetSec * float64(time.Second))
	}

	recorder := cli.openRecorder(cfg)
	done := make(chan struct{})

	player.OnStarted = func(s *catalog.Song) {
		startedAt := time.Duration(player.Progress() * float64(data.Duration()))
		cmd.Printf("Playing %s (%s) from %s\n",
			s.Title, data.Duration().Round(time.Millisecond), startedAt.Round(time.Millisecond))
		if recorder != nil {
			recorder.RecordPlay(s.ArchivePath, s.Title, startedAt, data.Duration())
		}
	}
	player.OnStopped = func(s *catalog.Song) {
		close(done)
	}

	player.Play(song, offset)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var limit <-chan time.Time
	if durationSec > 0 {
		timer := time.NewTimer(time.Duration(durationSec * float64(time.Second)))
		defer timer.Stop()
		limit = timer.C
	}

	select {
	case <-done:
		slog.Debug("preview finished", "title", song.Title)
	case <-limit:
		slog.Debug("preview duration cap reached", "title", song.Title)
		player.Stop()
		<-done
	case <-ctx.Done():
		slog.Debug("preview interrupted", "title", song.Title)
		player.Stop()
		<-done
	}

	return nil
}

// engineLoader builds the on-demand loader used outside preload batches:
// disk cache first, direct extraction as fallback, then sniff and decode
func engineLoader(engine *engine) preview.Loader {
	return func(ctx context.Context, song *catalog.Song) (*decode.AudioData, error) {
		raw, err := engine.cache.Read(song.ArchivePath)
		if err != nil {
			var entry string
			raw, entry, err = riq.ExtractAudio(song.ArchivePath, song.Alternate)
			if err != nil {
				return nil, err
			}
			slog.Debug("extracted audio entry", "archive", song.ArchivePath, "entry", entry)

			if _, err := engine.cache.Store(song.ArchivePath, raw); err != nil {
				slog.Warn("disk cache store failed", "archive", song.ArchivePath, "error", err)
			}
		} else {
			slog.Debug("audio served from disk cache", "archive", song.ArchivePath)
		}

		return engine.bridge.Decode(ctx, raw, sniff.Classify(raw), 0)
	}
}
