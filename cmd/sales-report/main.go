package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"salesinsight/internal/analysis"
	"salesinsight/internal/config"
	apperrors "salesinsight/internal/errors"
	"salesinsight/internal/files"
	"salesinsight/internal/infrastructure"
	"salesinsight/internal/operations"
	"salesinsight/internal/services"
	"salesinsight/pkg/contracts"
)

// Exit codes
const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 2
	exitBadInput = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	file       string
	dir        string
	topN       int
	outDir     string
	configFile string
	envFile    string
	sheet      string
	parallel   bool
	noExport   bool
	quiet      bool
	version    bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("sales-report", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.file, "file", "", "sales dataset to analyze (.csv or .xlsx)")
	fs.StringVar(&opts.dir, "dir", "", "analyze every .csv and .xlsx file in this directory")
	fs.IntVar(&opts.topN, "top-n", 0, "number of products and customers to rank (defaults to config)")
	fs.StringVar(&opts.outDir, "out", "", "output directory (defaults to config)")
	fs.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&opts.envFile, "env", "", "dotenv file (defaults to .env)")
	fs.StringVar(&opts.sheet, "sheet", "", "worksheet to read from .xlsx input")
	fs.BoolVar(&opts.parallel, "parallel", false, "run aggregators concurrently")
	fs.BoolVar(&opts.noExport, "no-export", false, "skip writing output files")
	fs.BoolVar(&opts.quiet, "quiet", false, "only log warnings and errors")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.file == "" && fs.NArg() > 0 {
		opts.file = fs.Arg(0)
	}
	if opts.file == "" && opts.dir == "" && !opts.version {
		fs.Usage()
		return nil, errors.New("a dataset file is required")
	}
	if opts.file != "" && opts.dir != "" {
		return nil, errors.New("use either a file or -dir, not both")
	}
	if opts.topN < 0 {
		return nil, fmt.Errorf("top-n must be positive, got %d", opts.topN)
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, "error:", err)
		}
		return exitUsage
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return exitOK
	}

	cfg, err := config.Load(config.LoadOptions{ConfigFile: opts.configFile, EnvFile: opts.envFile})
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitUsage
	}
	applyOverrides(cfg, opts)

	logger, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitFailure
	}
	defer func() { _ = infrastructure.CloseLogFile() }()

	pipelineCfg := operations.ConfigFrom(cfg)
	pipelineCfg.ExportEnabled = !opts.noExport
	if pipelineCfg.ExportEnabled {
		if err := files.EnsureWritableDir(cfg.Output.Dir); err != nil {
			fmt.Fprintln(stderr, "error:", err)
			return exitFailure
		}
	}
	svc := services.NewAnalysisService(operations.NewPipeline(pipelineCfg, logger), cfg.Output.Dir, logger)

	if opts.dir == "" {
		return analyze(ctx, svc, opts.file, opts.topN, "", stdout, stderr)
	}

	datasets, err := files.NewDiscovery("").FindDatasets(opts.dir)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitBadInput
	}
	if len(datasets) == 0 {
		fmt.Fprintf(stderr, "error: no datasets found in %s\n", opts.dir)
		return exitBadInput
	}

	logger.InfoContext(ctx, "batch analysis started",
		slog.String("dir", opts.dir),
		slog.Int("datasets", len(datasets)))

	code := exitOK
	for _, ds := range datasets {
		if ctx.Err() != nil {
			fmt.Fprintln(stderr, "error:", ctx.Err())
			return exitFailure
		}
		outDir := ""
		if pipelineCfg.ExportEnabled {
			outDir = filepath.Join(cfg.Output.Dir, ds.Stem())
		}
		if c := analyze(ctx, svc, ds.Path, opts.topN, outDir, stdout, stderr); c > code {
			code = c
		}
	}
	return code
}

// analyze runs one dataset and prints its summary
func analyze(ctx context.Context, svc *services.AnalysisService, path string, topN int, outDir string, stdout, stderr io.Writer) int {
	result, err := svc.AnalyzeFile(ctx, path, topN, outDir)
	if result != nil {
		printSummary(stdout, path, result)
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %s: %v\n", path, err)
		switch apperrors.TypeOf(err) {
		case apperrors.ErrTypeInput, apperrors.ErrTypeMissingColumns, apperrors.ErrTypeParsing, apperrors.ErrTypeNotFound:
			return exitBadInput
		}
		return exitFailure
	}
	return exitOK
}

func applyOverrides(cfg *config.Config, opts *options) {
	if opts.outDir != "" {
		cfg.Output.Dir = opts.outDir
	}
	if opts.sheet != "" {
		cfg.Analysis.Sheet = opts.sheet
	}
	if opts.parallel {
		cfg.Analysis.ParallelAggregators = true
	}
	if opts.quiet {
		cfg.Logging.Level = "warn"
	}
}

// summaryTables are printed in full after the run
var summaryTables = []string{"summary_report", "top_products", "category_performance", "regional_summary"}

func printSummary(w io.Writer, source string, result *operations.Result) {
	fmt.Fprintf(w, "\n=== SALES ANALYSIS %s (%s) ===\n", filepath.Base(source), result.Status)
	fmt.Fprintf(w, "Run: %s\n", result.ID)
	fmt.Fprintf(w, "Rows: %s loaded, %s after cleaning\n",
		humanize.Comma(int64(result.InputRows)), humanize.Comma(int64(result.CleanedRows)))

	for _, name := range summaryTables {
		if rep := result.Report(name); rep != nil {
			printReport(w, rep)
		}
	}

	fmt.Fprintln(w, "\n=== ANALYSIS LOG ===")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, e := range result.Log {
		marker := ""
		if e.Diagnostic {
			marker = "!"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", marker, e.Step, e.Details)
	}
	_ = tw.Flush()

	if len(result.Outputs) > 0 {
		fmt.Fprintln(w, "\n=== OUTPUTS ===")
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, f := range result.Outputs {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Path, f.Kind, f.Size)
		}
		_ = tw.Flush()
	}
}

func printReport(w io.Writer, rep *analysis.Report) {
	fmt.Fprintf(w, "\n--- %s ---\n", rep.Name())
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, rec := range rep.Records() {
		for i, cell := range rec {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw)
	}
	_ = tw.Flush()
}
