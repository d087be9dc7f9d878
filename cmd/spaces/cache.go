package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/spaces/internal/cache"
	"github.com/panbanda/spaces/pkg/analyzer/cyclomatic"
	"github.com/panbanda/spaces/pkg/config"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the per-file result cache",
		Subcommands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show the number, size and age of cache entries",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					return runCacheStats(cfg, c.App.Writer)
				},
			},
			{
				Name:  "clear",
				Usage: "Remove every cache entry",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					return runCacheClear(cfg, c.App.Writer)
				},
			},
		},
	}
}

func configuredCache(cfg *config.Config) (*cache.Cache, error) {
	c, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTLDuration(), cyclomatic.CacheVersion)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return c, nil
}

func runCacheStats(cfg *config.Config, w io.Writer) error {
	c, err := configuredCache(cfg)
	if err != nil {
		return err
	}
	stats, err := c.Stats()
	if err != nil {
		return fmt.Errorf("read cache: %w", err)
	}

	fmt.Fprintf(w, "Directory: %s\n", c.Dir())
	if !cfg.Cache.Enabled {
		fmt.Fprintln(w, color.YellowString("Caching is disabled in the configuration"))
	}
	fmt.Fprintf(w, "Entries:   %d\n", stats.Entries)
	fmt.Fprintf(w, "Size:      %s\n", humanize.Bytes(uint64(stats.TotalSize)))
	if stats.Entries > 0 {
		now := time.Now()
		fmt.Fprintf(w, "Oldest:    %s\n", humanize.Time(now.Add(-stats.OldestAge)))
		fmt.Fprintf(w, "Newest:    %s\n", humanize.Time(now.Add(-stats.NewestAge)))
	}
	return nil
}

func runCacheClear(cfg *config.Config, w io.Writer) error {
	c, err := configuredCache(cfg)
	if err != nil {
		return err
	}
	before, err := c.Stats()
	if err != nil {
		return fmt.Errorf("read cache: %w", err)
	}
	if err := c.Clear(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	fmt.Fprintln(w, color.GreenString("Removed %d entries (%s) from %s",
		before.Entries, humanize.Bytes(uint64(before.TotalSize)), c.Dir()))
	return nil
}
