package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"
	"gonum.org/v1/plot/vg"

	"edgeuncertainty/internal/logging"
	"edgeuncertainty/pkg/analysis"
	"edgeuncertainty/pkg/config"
	"edgeuncertainty/pkg/discovery"
	"edgeuncertainty/pkg/encoding"
	"edgeuncertainty/pkg/ranking"
	"edgeuncertainty/pkg/results"
	"edgeuncertainty/pkg/visualization"
)

// Options holds the command line.
type Options struct {
	InputDir    string
	OutputDir   string
	ConfigPath  string
	WriteConfig bool

	Workers        int
	TopN           int
	Suffix         string
	SQLitePath     string
	LogLevel       string
	NoHistograms   bool
	Previews       bool
	ExcludeCertain bool
	Quiet          bool
}

func main() {
	opts := parseFlags()

	if opts.WriteConfig {
		if err := config.CreateDefaultConfigFile(opts.ConfigPath); err != nil {
			pterm.Error.Printfln("Failed to write config: %v", err)
			os.Exit(1)
		}
		pterm.Success.Printfln("Default configuration written to %s", opts.ConfigPath)
		return
	}

	if opts.InputDir == "" {
		pflag.Usage()
		os.Exit(1)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		pterm.Error.Printfln("%v", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, cfg.Output.LogLevel, cfg.Output.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, cfg, logger); err != nil {
		if errors.Is(err, ranking.ErrEmptyPopulation) {
			logger.Err(err, "no case could be analysed", "input", opts.InputDir)
		} else {
			logger.Err(err, "analysis failed")
		}
		os.Exit(1)
	}
}

// parseFlags parses command-line flags.
func parseFlags() Options {
	var opts Options

	pflag.StringVarP(&opts.InputDir, "input", "i", "", "Directory containing probability volumes")
	pflag.StringVarP(&opts.OutputDir, "output", "o", "", "Output directory (overrides config)")
	pflag.StringVarP(&opts.ConfigPath, "config", "c", "edgeuncertainty.yaml", "Path to configuration file")
	pflag.BoolVar(&opts.WriteConfig, "write-config", false, "Write the default configuration to --config and exit")
	pflag.IntVarP(&opts.Workers, "workers", "w", 0, "Number of cases processed concurrently (overrides config)")
	pflag.IntVarP(&opts.TopN, "top-n", "n", 0, "Cases selected per metric and group (overrides config)")
	pflag.StringVar(&opts.Suffix, "suffix", "", "File suffix of probability volumes (overrides config)")
	pflag.StringVar(&opts.SQLitePath, "sqlite", "", "Record the run in this SQLite database (overrides config)")
	pflag.StringVar(&opts.LogLevel, "log-level", "", "Log level: trace, debug, info, warn, error (overrides config)")
	pflag.BoolVar(&opts.NoHistograms, "no-histograms", false, "Do not render uncertainty histograms")
	pflag.BoolVar(&opts.Previews, "previews", false, "Write mid-volume slice previews of each mask")
	pflag.BoolVar(&opts.ExcludeCertain, "exclude-certain", false, "Encode certain foreground as background")
	pflag.BoolVarP(&opts.Quiet, "quiet", "q", false, "No progress bar or result tables")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "USAGE:\n")
		fmt.Fprintf(os.Stderr, "  edgeuncertainty --input <dir> [flags]\n\n")
		fmt.Fprintf(os.Stderr, "FLAGS:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  # Rank a dataset and write the 10 hardest and easiest masks per metric\n")
		fmt.Fprintf(os.Stderr, "  edgeuncertainty -i predictions/ -o EdgeUncertaintyMasks\n\n")
		fmt.Fprintf(os.Stderr, "  # Uncertain-only masks, recorded in a run database\n")
		fmt.Fprintf(os.Stderr, "  edgeuncertainty -i predictions/ --exclude-certain --sqlite runs.db\n\n")
	}

	pflag.Parse()

	return opts
}

// loadConfig reads the config file and applies flags that were set.
func loadConfig(opts Options) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if opts.OutputDir != "" {
		cfg.Output.Dir = opts.OutputDir
	}
	if pflag.CommandLine.Changed("workers") {
		cfg.Processing.NumWorkers = opts.Workers
	}
	if pflag.CommandLine.Changed("top-n") {
		cfg.Processing.TopN = opts.TopN
	}
	if opts.Suffix != "" {
		cfg.Processing.FileSuffix = opts.Suffix
	}
	if opts.SQLitePath != "" {
		cfg.Output.SQLitePath = opts.SQLitePath
	}
	if opts.LogLevel != "" {
		cfg.Output.LogLevel = opts.LogLevel
	}
	if opts.NoHistograms {
		cfg.Output.SaveHistograms = false
	}
	if opts.Previews {
		cfg.Output.SavePreviews = true
	}
	if opts.ExcludeCertain {
		cfg.Encoding.IncludeCertain = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func policyFromConfig(cfg *config.Config) encoding.Policy {
	return encoding.Policy{
		IncludeCertain: cfg.Encoding.IncludeCertain,
		CertainScale:   cfg.Encoding.CertainScale,
		FallbackValue:  cfg.Encoding.FallbackValue,
	}
}

// run executes the analysis and writes every result file.
func run(ctx context.Context, opts Options, cfg *config.Config, logger *logging.Logger) error {
	info := results.RunInfo{
		InputDir:   opts.InputDir,
		OutputDir:  cfg.Output.Dir,
		StartedAt:  time.Now(),
		TopN:       cfg.Processing.TopN,
		NumWorkers: cfg.Processing.NumWorkers,
		Policy:     policyFromConfig(cfg),
	}

	cases, err := discovery.ListCases(opts.InputDir, cfg.Processing.FileSuffix)
	if err != nil {
		return err
	}
	info.TotalCases = len(cases)
	logger.Info("cases found", "count", len(cases), "input", opts.InputDir, "suffix", cfg.Processing.FileSuffix)

	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	sinkOpts := results.MaskWriterOptions{
		OutputDir: cfg.Output.Dir,
		Previews:  cfg.Output.SavePreviews,
		Logger:    logger,
	}
	if cfg.Output.SaveHistograms {
		sinkOpts.Histograms = visualization.NewHistogramRenderer(visualization.HistogramConfig{
			Bins:   cfg.Histogram.Bins,
			Width:  vg.Length(cfg.Histogram.WidthInches) * vg.Inch,
			Height: vg.Length(cfg.Histogram.HeightInches) * vg.Inch,
			Format: cfg.Histogram.Format,
		})
	}

	ui := newConsole(opts.Quiet)
	defer ui.stop()

	analyzer := analysis.NewAnalyzer(&analysis.Params{
		Cases:      cases,
		NumWorkers: cfg.Processing.NumWorkers,
		TopN:       cfg.Processing.TopN,
		Policy:     info.Policy,
		Sink:       results.NewMaskWriter(sinkOpts),
		Logger:     logger,
		Progress:   ui.progress,
	})

	report, err := analyzer.Process(ctx)
	ui.stop()
	info.FinishedAt = time.Now()
	return finish(ctx, cfg, &info, report, err, ui, logger)
}

// finish writes the results of a run. An interrupted run whose ranking
// completed still gets its tables, reports and store record.
func finish(ctx context.Context, cfg *config.Config, info *results.RunInfo, report *analysis.Report, runErr error, ui *console, logger *logging.Logger) error {
	if runErr == nil {
		if err := writeResults(ctx, cfg, info, report, logger); err != nil {
			return err
		}
		ui.summary(*info, report)
		return nil
	}

	ui.failures(report)
	if report.Ranking != nil && isContextErr(runErr) {
		logger.Warn("run interrupted, writing partial results", "masks", len(report.Encoded))
		if err := writeResults(context.WithoutCancel(ctx), cfg, info, report, logger); err != nil {
			logger.Err(err, "writing partial results failed")
		}
	}
	return runErr
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// writeResults persists tables, reports, legend files and the run store.
func writeResults(ctx context.Context, cfg *config.Config, info *results.RunInfo, report *analysis.Report, logger *logging.Logger) error {
	if cfg.Output.SQLitePath != "" {
		store, err := results.OpenStore(cfg.Output.SQLitePath)
		if err != nil {
			return err
		}
		defer store.Close()

		runID, err := store.SaveRun(ctx, info, report)
		if err != nil {
			return err
		}
		logger.Info("run recorded", "run", runID, "db", cfg.Output.SQLitePath)
	}

	dir := cfg.Output.Dir
	paths, err := results.WriteTables(dir, report.Ranking)
	if err != nil {
		return fmt.Errorf("writing tables: %w", err)
	}
	for _, p := range paths {
		logger.Debug("table written", "path", p)
	}

	if err := results.WriteSummary(filepath.Join(dir, results.SummaryFile), *info, report); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	if err := results.WriteColormap(filepath.Join(dir, results.ColormapFile)); err != nil {
		return fmt.Errorf("writing colormap: %w", err)
	}
	if err := results.WriteMaskInfo(filepath.Join(dir, results.MaskInfoFile), info.Policy, report); err != nil {
		return fmt.Errorf("writing mask info: %w", err)
	}

	logger.Info("results written", "dir", dir, "masks", len(report.Encoded), "mask failures", len(report.EncodeFailures))
	return nil
}
