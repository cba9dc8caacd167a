package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

// newCacheCommand creates the cache command group
func newCacheCommand() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the decoded-audio disk cache",
	}
	cacheCmd.AddCommand(newCacheSweepCommand())
	cacheCmd.AddCommand(newCacheClearCommand())
	cacheCmd.AddCommand(newCachePathCommand())
	return cacheCmd
}

// newCacheSweepCommand creates the cache sweep subcommand
func newCacheSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete cache entries older than the configured age",
		RunE:  runCacheSweepE,
	}
}

// runCacheSweepE executes the cache sweep command
func runCacheSweepE(cmd *cobra.Command, args []string) error {
	cli := cliFromContext(cmd.Context())
	if cli == nil {
		return fmt.Errorf("CLI instance not found in context")
	}

	cfg, err := loadAndValidateConfig(cmd, cli)
	if err != nil {
		return err
	}
	setupLogging(cfg, cmd.ErrOrStderr())

	engine, err := cli.buildEngine(cfg)
	if err != nil {
		return err
	}

	maxAge := time.Duration(cfg.CacheMaxAgeDays) * 24 * time.Hour
	removed := engine.cache.SweepExpired(maxAge)

	slog.Info("cache sweep finished", "removed", removed, "max_age", maxAge)
	cmd.Printf("Removed %d expired cache entries (older than %d days)\n", removed, cfg.CacheMaxAgeDays)

	return nil
}

// newCacheClearCommand creates the cache clear subcommand
func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cache entry",
		RunE:  runCacheClearE,
	}
}

// runCacheClearE executes the cache clear command
func runCacheClearE(cmd *cobra.Command, args []string) error {
	cli := cliFromContext(cmd.Context())
	if cli == nil {
		return fmt.Errorf("CLI instance not found in context")
	}

	cfg, err := loadAndValidateConfig(cmd, cli)
	if err != nil {
		return err
	}
	setupLogging(cfg, cmd.ErrOrStderr())

	engine, err := cli.buildEngine(cfg)
	if err != nil {
		return err
	}

	removed := engine.cache.ClearAll()

	slog.Info("cache cleared", "removed", removed)
	cmd.Printf("Removed %d cache entries\n", removed)

	return nil
}

// newCachePathCommand creates the cache path subcommand
func newCachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory location",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := cliFromContext(cmd.Context())
			if cli == nil {
				return fmt.Errorf("CLI instance not found in context")
			}
			cmd.Println(cli.configManager.ResolveCacheDir())
			return nil
		},
	}
}
