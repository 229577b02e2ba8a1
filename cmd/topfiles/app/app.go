package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dundee/topfiles/internal/config"
	"github.com/dundee/topfiles/internal/metrics"
	"github.com/dundee/topfiles/pkg/analyze"
	"github.com/dundee/topfiles/pkg/cache"
	"github.com/dundee/topfiles/pkg/fs"
	"github.com/dundee/topfiles/pkg/report"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Flags define flags accepted by Run
type Flags struct {
	CfgFile         string
	LogFile         string
	LogLevel        string
	CacheStore      string
	CachePath       string
	Top             int
	Extension       string
	MaxDepth        int
	MaxIOPS         int
	IODelay         time.Duration
	MaxCacheAge     time.Duration
	Force           bool
	ClearCache      bool
	Summary         bool
	ShowStats       bool
	NoColor         bool
	Export          string
	Import          string
	MetricsTextfile string
}

// App defines the main application
type App struct {
	Args   []string
	Flags  *Flags
	Writer io.Writer
	// Provider defaults to the OS file system
	Provider fs.Provider
	// Changed reports whether the flag was set on the command line
	Changed func(name string) bool
}

// Run scans the directory and prints the largest files
func (a *App) Run(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	analyzer := analyze.CreateAnalyzer(store, analyze.AnalyzerOptions{
		Provider:    a.Provider,
		Logger:      logger,
		Scanner:     cfg.ScannerOptions(),
		MaxCacheAge: cfg.MaxCacheAge,
		ForceRescan: a.Flags.Force,
	})

	if a.Flags.ClearCache {
		if err := analyzer.ClearCacheFromDisk(); err != nil {
			return err
		}
	}

	if a.Flags.Import != "" {
		data, err := report.ImportFile(a.Flags.Import)
		if err != nil {
			return err
		}
		if err := store.Save(data); err != nil {
			return err
		}
		logger.Infof("Imported snapshot of %s with %d files from %s",
			data.Metadata.ScannedDirectoryPath, data.Metadata.FileCount, a.Flags.Import)
	}

	path := "."
	if len(a.Args) > 0 {
		path = a.Args[0]
	}

	if err := analyzer.ScanDirectory(ctx, path); err != nil {
		return err
	}

	if a.Flags.Export != "" {
		snapshot, err := analyzer.Snapshot()
		if err != nil {
			return err
		}
		if err := report.ExportFile(a.Flags.Export, snapshot); err != nil {
			return err
		}
	}

	if a.Flags.MetricsTextfile != "" {
		m := metrics.New()
		m.Observe(analyzer.GetCacheMetadata(), analyzer.GetScanStats())
		if err := m.WriteTextfile(a.Flags.MetricsTextfile); err != nil {
			return err
		}
	}

	color.NoColor = cfg.NoColor || !isStdoutTerminal(a.Writer)

	return a.print(analyzer, cfg.Top)
}

func (a *App) changed(name string) bool {
	return a.Changed != nil && a.Changed(name)
}

// loadConfig reads the config file and applies flags set on the command line
func (a *App) loadConfig() (config.Config, error) {
	cfg, err := config.Load(a.Flags.CfgFile)
	if err != nil {
		return cfg, err
	}

	if a.changed("log-file") {
		cfg.LogFile = a.Flags.LogFile
	}
	if a.changed("log-level") {
		cfg.LogLevel = a.Flags.LogLevel
	}
	if a.changed("cache-store") {
		cfg.CacheStore = a.Flags.CacheStore
	}
	if a.changed("cache-path") {
		cfg.CachePath = a.Flags.CachePath
	}
	if a.changed("top") {
		cfg.Top = a.Flags.Top
	}
	if a.changed("max-depth") {
		cfg.MaxDepth = a.Flags.MaxDepth
	}
	if a.changed("max-iops") {
		cfg.MaxIOPS = a.Flags.MaxIOPS
	}
	if a.changed("io-delay") {
		cfg.IODelay = a.Flags.IODelay
	}
	if a.changed("max-cache-age") {
		cfg.MaxCacheAge = a.Flags.MaxCacheAge
	}
	if a.changed("no-color") {
		cfg.NoColor = a.Flags.NoColor
	}

	return cfg, cfg.Validate()
}

func setupLogging(cfg config.Config) (*log.Logger, func(), error) {
	logger := log.New()
	logger.Out = io.Discard

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "invalid log level %q", cfg.LogLevel)
	}
	logger.SetLevel(level)

	if cfg.LogFile == "" {
		return logger, func() {}, nil
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening log file %s", cfg.LogFile)
	}
	logger.Out = f

	return logger, func() { f.Close() }, nil
}

func openStore(cfg config.Config, logger log.FieldLogger) (cache.Store, func(), error) {
	if cfg.CacheStore != config.StoreBadger {
		return cache.NewJSONStore(cfg.CachePath, logger), func() {}, nil
	}

	path := cfg.CachePath
	if path == "" {
		path = filepath.Join(cache.DefaultDir(), "badger")
	}

	store := cache.NewBadgerStore(path, logger)
	closeFn, err := store.Open()
	if err != nil {
		return nil, nil, errors.Wrapf(cache.ErrStorageRead, "%v", err)
	}
	return store, closeFn, nil
}

func (a *App) print(analyzer *analyze.Analyzer, top int) error {
	files, err := analyzer.GetTopLargestFiles(top, a.Flags.Extension)
	if err != nil {
		return err
	}

	meta := analyzer.GetCacheMetadata()
	header := color.New(color.Bold).SprintFunc()
	sizeColor := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	source := "scanned"
	if analyzer.IsFromCache() {
		source = "cached " + humanize.Time(meta.ScanDateTimeUtc)
	}
	fmt.Fprintf(a.Writer, "%s %s (%d files, %s)\n",
		header("Largest files in"), meta.ScannedDirectoryPath, meta.FileCount, dim(source))

	for i, f := range files {
		fmt.Fprintf(a.Writer, "%3d. %10s  %s\n", i+1, sizeColor(humanize.IBytes(f.SizeBytes)), f.FullPath)
	}
	if len(files) == 0 {
		fmt.Fprintln(a.Writer, dim("no matching files"))
	}

	if a.Flags.Summary {
		summary, err := analyzer.GetExtensionSummary()
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Writer, "\n%s\n", header("Extensions"))
		for _, s := range summary {
			ext := s.Extension
			if ext == "" {
				ext = "(none)"
			}
			fmt.Fprintf(a.Writer, "%-12s %8d files %10s\n", ext, s.FileCount, humanize.IBytes(s.TotalBytes))
		}
	}

	if stats := analyzer.GetScanStats(); a.Flags.ShowStats && stats != nil {
		fmt.Fprintf(a.Writer, "\n%s\n", stats.String())
	}

	return nil
}

func isStdoutTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
