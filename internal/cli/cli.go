// Package cli implements the riqpreview command line interface.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/KabirAcharya/riqpreview/internal/config"
	"github.com/KabirAcharya/riqpreview/internal/decode"
	"github.com/KabirAcharya/riqpreview/internal/diskcache"
	"github.com/KabirAcharya/riqpreview/internal/fs"
	"github.com/KabirAcharya/riqpreview/internal/history"
	"github.com/KabirAcharya/riqpreview/internal/preload"
)

const Version = "0.3.0"

// CLI represents the command-line interface
type CLI struct {
	rootCmd          *cobra.Command
	configManager    *config.ConfigManager
	fsFactory        fs.Factory
	terminalDetector TerminalDetector
	historyDB        *sql.DB
}

// NewCLI creates a new CLI instance
func NewCLI() *CLI {
	slog.Debug("creating new CLI instance")

	rootCmd := &cobra.Command{
		Use:   "riqpreview",
		Short: "Song preview engine for riq archives",
		Long:  "riqpreview extracts, caches, and plays back the audio inside riq and zip song archives.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if handled, err := handleVersionFlag(cmd); handled || err != nil {
				return err
			}
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newPreloadCommand())
	rootCmd.AddCommand(newPlayCommand())
	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newCacheCommand())
	rootCmd.AddCommand(newHistoryCommand())

	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("volume", "", "Set volume (0.0 to 1.0)")
	rootCmd.PersistentFlags().String("transport", "", "Playback transport (auto, malgo, beep, null)")

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	return &CLI{
		rootCmd: rootCmd,
	}
}

// contextWithCLI stores the CLI instance in context for command handlers
func contextWithCLI(cli *CLI) context.Context {
	return context.WithValue(context.Background(), cliContextKey{}, cli)
}

type cliContextKey struct{}

// cliFromContext extracts the CLI instance from context
func cliFromContext(ctx context.Context) *CLI {
	if cli, ok := ctx.Value(cliContextKey{}).(*CLI); ok {
		return cli
	}
	return nil
}

// handleVersionFlag checks and handles the version flag.
// Returns true if version was handled and processing should stop.
func handleVersionFlag(cmd *cobra.Command) (bool, error) {
	version, _ := cmd.Flags().GetBool("version")
	if version {
		cmd.Printf("riqpreview version %s\nSong preview engine for riq archives\n", Version)
		return true, nil
	}
	return false, nil
}

// loadAndValidateConfig loads configuration from flags and files, applies
// overrides, and validates
func loadAndValidateConfig(cmd *cobra.Command, cli *CLI) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	volumeStr, _ := cmd.Flags().GetString("volume")
	transportFlag, _ := cmd.Flags().GetString("transport")

	// Validate the volume flag early so a typo fails before any work starts
	if volumeStr != "" {
		vol, err := strconv.ParseFloat(volumeStr, 64)
		if err != nil {
			cmd.PrintErrf("Error: invalid volume value '%s': %v\n", volumeStr, err)
			slog.Error("invalid volume value", "value", volumeStr, "error", err)
			return nil, fmt.Errorf("invalid volume value '%s': %w", volumeStr, err)
		}
		if vol < 0.0 || vol > 1.0 {
			cmd.PrintErrf("Error: volume must be between 0.0 and 1.0, got %f\n", vol)
			slog.Error("volume out of range", "value", vol)
			return nil, fmt.Errorf("volume must be between 0.0 and 1.0, got %f", vol)
		}
	}

	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = cli.configManager.LoadFromFile(configFile)
		if err != nil {
			slog.Warn("config file not found, using defaults", "file", configFile, "error", err)
			cfg = cli.configManager.GetDefaultConfig()
		}
	} else {
		cfg, err = cli.configManager.LoadConfig()
		if err != nil {
			cmd.PrintErrf("Error loading config: %v\n", err)
			slog.Error("config load failed", "error", err)
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	}

	cfg = cli.configManager.ApplyEnvironmentOverrides(cfg)

	if volumeStr != "" {
		vol, _ := strconv.ParseFloat(volumeStr, 64)
		cfg.Volume = vol
		slog.Debug("volume override applied", "value", vol)
	}

	if transportFlag != "" {
		cfg.Transport = transportFlag
		slog.Debug("transport override applied", "value", transportFlag)
	}

	err = cli.configManager.ValidateConfig(cfg)
	if err != nil {
		cmd.PrintErrf("Error: invalid configuration: %v\n", err)
		slog.Error("config validation failed", "error", err)
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupLogging configures slog with file logging when enabled. Console output
// stays at the configured level while the rotated log file, when enabled,
// receives everything down to debug.
func setupLogging(cfg *config.Config, stderrWriter io.Writer) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelWarn
	}

	stderrHandler := slog.NewTextHandler(stderrWriter, &slog.HandlerOptions{
		Level: level,
	})

	handlers := []slog.Handler{stderrHandler}

	if cfg.FileLogging != nil && cfg.FileLogging.Enabled {
		configManager := config.NewConfigManager()
		logFilePath := configManager.ResolveLogFilePath(cfg.FileLogging.Filename)

		logDir := filepath.Dir(logFilePath)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			slog.Error("failed to create log directory", "path", logDir, "error", err)
			// Continue without file logging rather than failing
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   logFilePath,
				MaxSize:    cfg.FileLogging.MaxSizeMB,
				MaxBackups: cfg.FileLogging.MaxBackups,
				MaxAge:     cfg.FileLogging.MaxAgeDays,
				Compress:   cfg.FileLogging.Compress,
			}
			fileHandler := slog.NewTextHandler(fileWriter, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			})
			handlers = append(handlers, fileHandler)
			slog.Debug("file logging enabled", "path", logFilePath)
		}
	}

	slog.SetDefault(slog.New(NewMultiLevelHandler(handlers...)))

	slog.Debug("logging setup completed",
		"level", level.String(),
		"handlers", len(handlers),
		"file_enabled", cfg.FileLogging != nil && cfg.FileLogging.Enabled)
}

// engine bundles the cache and decode pipeline shared by the preload, play,
// and cache commands
type engine struct {
	fsys   afero.Fs
	cache  *diskcache.Cache
	bridge *decode.Bridge
}

// buildEngine assembles the disk cache and decode bridge from configuration
func (c *CLI) buildEngine(cfg *config.Config) (*engine, error) {
	fsys := c.fsFactory.Production()

	cacheDir := c.configManager.ResolveCacheDir()
	if err := fs.EnsureDir(fsys, cacheDir); err != nil {
		return nil, fmt.Errorf("prepare cache directory: %w", err)
	}

	cache := diskcache.New(fsys, cacheDir)
	bridge := decode.NewBridge(fsys, decode.NewDefaultRegistry(), os.TempDir())

	slog.Debug("engine assembled", "cache_dir", cacheDir)

	return &engine{fsys: fsys, cache: cache, bridge: bridge}, nil
}

// openRecorder opens the history database and returns a recorder for it.
// Returns nil when history is disabled or the database cannot be opened;
// history failures never block playback.
func (c *CLI) openRecorder(cfg *config.Config) *history.Recorder {
	if !cfg.HistoryEnabled {
		slog.Debug("history recording disabled by config")
		return nil
	}

	if c.historyDB == nil {
		db, err := history.NewDatabase(history.DefaultDatabasePath())
		if err != nil {
			slog.Warn("history database unavailable", "error", err)
			return nil
		}
		c.historyDB = db
	}

	return history.NewRecorder(c.historyDB)
}

// recordBatch wires a recorder into an orchestrator's completion hook
func recordBatch(orchestrator *preload.Orchestrator, recorder *history.Recorder) {
	if recorder == nil {
		return
	}
	orchestrator.OnComplete = func(stats preload.Stats) {
		recorder.RecordBatch(stats)
	}
}

// initializeSystems lazily initializes CLI components when actually needed
func (c *CLI) initializeSystems() {
	if c.configManager == nil {
		c.configManager = config.NewConfigManager()
	}
	if c.fsFactory == nil {
		c.fsFactory = fs.NewDefaultFactory()
	}
	if c.terminalDetector == nil {
		c.terminalDetector = &DefaultTerminalDetector{}
	}
}

// Run executes the CLI with the given arguments and I/O streams
func (c *CLI) Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	slog.Debug("CLI run started", "args", args)

	// Show version without initializing any systems
	if len(args) > 1 && (args[1] == "--version" || args[1] == "-v") {
		fmt.Fprintf(stdout, "riqpreview version %s\nSong preview engine for riq archives\n", Version)
		return 0
	}

	c.initializeSystems()

	defer func() {
		if c.historyDB != nil {
			if err := c.historyDB.Close(); err != nil {
				slog.Error("error closing history database", "error", err)
			}
		}
	}()

	c.rootCmd.SetArgs(args[1:]) // Skip program name
	c.rootCmd.SetIn(stdin)
	c.rootCmd.SetOut(stdout)
	c.rootCmd.SetErr(stderr)

	c.rootCmd.SetContext(contextWithCLI(c))

	if err := c.rootCmd.Execute(); err != nil {
		slog.Error("cobra execution failed", "error", err)
		return 1
	}

	return 0
}
