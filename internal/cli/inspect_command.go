package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/KabirAcharya/riqpreview/internal/riq"
	"github.com/KabirAcharya/riqpreview/internal/sniff"
)

// newInspectCommand creates the inspect subcommand
func newInspectCommand() *cobra.Command {
	var showEntries bool

	cmd := &cobra.Command{
		Use:   "inspect <archive>",
		Short: "Show the audio format inside a song archive",
		Long: `Open a riq or zip song archive, locate its audio entry, and report the
detected format without playing anything. --entries additionally lists
every entry in the archive.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspectE(cmd, args[0], showEntries)
		},
	}

	cmd.Flags().BoolVar(&showEntries, "entries", false, "List every archive entry")

	return cmd
}

// runInspectE executes the inspect command
func runInspectE(cmd *cobra.Command, archivePath string, showEntries bool) error {
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

	song := songFromArchive(archivePath)

	cmd.Printf("Archive:  %s\n", archivePath)
	if song.Alternate {
		cmd.Printf("Layout:   zip (fixed song.bin entry)\n")
	} else {
		cmd.Printf("Layout:   riq (song-prefixed entry)\n")
	}

	if showEntries {
		entries, err := riq.ListEntries(archivePath)
		if err != nil {
			cmd.PrintErrf("Error reading archive: %v\n", err)
			return fmt.Errorf("read archive: %w", err)
		}
		cmd.Printf("Entries:\n")
		for _, entry := range entries {
			cmd.Printf("  %-40s %8d bytes\n", entry.Name, entry.Size)
		}
	}

	raw, entryName, err := riq.ExtractAudio(archivePath, song.Alternate)
	if err != nil {
		cmd.PrintErrf("Error: %v\n", err)
		return fmt.Errorf("extract audio: %w", err)
	}

	encoding := sniff.Classify(raw)
	cmd.Printf("Entry:    %s (%d bytes)\n", entryName, len(raw))
	cmd.Printf("Encoding: %s\n", encoding)
	cmd.Printf("Detected: %s\n", sniff.Describe(raw))

	if encoding == sniff.EncodingUnknown {
		cmd.Printf("Warning: audio entry has no recognized signature\n")
		return nil
	}

	// Decode to report the stream parameters the preview would use
	engine, err := cli.buildEngine(cfg)
	if err != nil {
		return err
	}

	data, err := engine.bridge.Decode(cmd.Context(), raw, encoding, 0)
	if err != nil {
		cmd.PrintErrf("Error: entry did not decode: %v\n", err)
		return fmt.Errorf("decode entry: %w", err)
	}

	cmd.Printf("Decoded:  %d Hz, %d channel(s), %s\n",
		data.SampleRate, data.Channels, data.Duration().Round(time.Millisecond))

	return nil
}
