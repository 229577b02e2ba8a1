package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dundee/topfiles/cmd/topfiles/app"
	"github.com/dundee/topfiles/internal/config"
	"github.com/spf13/cobra"
)

var af *app.Flags

var rootCmd = &cobra.Command{
	Use:   "topfiles [flags] [directory_to_scan]",
	Short: "Find the largest files in a directory tree",
	Long: `Find the largest files in a directory tree.

The first run walks the directory and stores the result in a cache,
following runs on the same directory answer from the cache.
Use --force to walk the directory again.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runE,
}

func init() {
	af = &app.Flags{}
	flags := rootCmd.Flags()
	flags.StringVar(&af.CfgFile, "config-file", config.DefaultPath(), "Read config from file")
	flags.StringVarP(&af.LogFile, "log-file", "l", "", "Path to a logfile")
	flags.StringVar(&af.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&af.CacheStore, "cache-store", config.StoreJSON, "Cache backend (json, badger)")
	flags.StringVar(&af.CachePath, "cache-path", "", "Directory of the cache (default is in the temp directory)")
	flags.IntVarP(&af.Top, "top", "n", 10, "Number of files to show")
	flags.StringVarP(&af.Extension, "ext", "e", "", "Show only files with this extension (e.g. .log)")
	flags.IntVar(&af.MaxDepth, "max-depth", 5000, "Maximum directory depth to descend into")
	flags.IntVar(&af.MaxIOPS, "max-iops", 0, "Maximum directory reads per second (0 = unlimited)")
	flags.DurationVar(&af.IODelay, "io-delay", 0, "Delay before each directory read (e.g. 10ms)")
	flags.DurationVar(&af.MaxCacheAge, "max-cache-age", 0, "Rescan when the cache is older than this (0 = never)")
	flags.BoolVarP(&af.Force, "force", "f", false, "Ignore the cache and scan the directory again")
	flags.BoolVar(&af.ClearCache, "clear-cache", false, "Remove the stored cache before scanning")
	flags.BoolVarP(&af.Summary, "summary", "s", false, "Show count and size per extension")
	flags.BoolVar(&af.ShowStats, "stats", false, "Show statistics of the directory walk")
	flags.BoolVarP(&af.NoColor, "no-color", "c", false, "Do not use colorized output")
	flags.StringVarP(&af.Export, "export", "o", "", "Export the result to file (compressed if it ends with .xz)")
	flags.StringVarP(&af.Import, "import", "i", "", "Import a previously exported result into the cache")
	flags.StringVar(&af.MetricsTextfile, "metrics-textfile", "", "Write Prometheus metrics of the scan to file")
}

func runE(command *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app.App{
		Args:    args,
		Flags:   af,
		Writer:  os.Stdout,
		Changed: func(name string) bool { return command.Flags().Changed(name) },
	}
	return a.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
