// Command scraper runs one harvest and prints the run summary.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"jobharvest/internal/config"
	"jobharvest/internal/logging"
	"jobharvest/internal/pipeline"
	"jobharvest/internal/report"
	"jobharvest/pkg/models"
	"jobharvest/pkg/utils"
)

type options struct {
	configPath string
	request    models.ScrapeRequest
	jsonPath   string
	csvPath    string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("scraper", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "configs/config.yaml", "path to the YAML configuration")
	fs.StringSliceVarP(&opts.request.Keywords, "keywords", "k", nil, "search keywords (default from config)")
	fs.StringSliceVarP(&opts.request.Locations, "locations", "l", nil, "search locations (default from config)")
	fs.StringSliceVarP(&opts.request.Sources, "sources", "s", nil, "sources to run in order (default all enabled)")
	fs.IntVar(&opts.request.MaxPages, "max-pages", 0, "pages fetched per query (1-10)")
	fs.BoolVar(&opts.request.RemoteOnly, "remote-only", false, "keep only remote jobs")
	fs.IntVar(&opts.request.MinSalary, "min-salary", 0, "minimum salary lower bound")
	fs.BoolVar(&opts.request.Parallel, "parallel", false, "fetch sources concurrently")
	fs.StringVarP(&opts.jsonPath, "out", "o", "", "JSON output path (overrides config)")
	fs.StringVar(&opts.csvPath, "csv", "", "CSV output path (overrides config)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.request.MaxPages < 0 || opts.request.MaxPages > 10 {
		return nil, fmt.Errorf("%w: --max-pages must be between 1 and 10", config.ErrInvalidConfig)
	}
	if opts.request.MinSalary < 0 {
		return nil, fmt.Errorf("%w: --min-salary must not be negative", config.ErrInvalidConfig)
	}
	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	if opts.jsonPath != "" {
		cfg.Output.JSONPath = opts.jsonPath
	}
	if opts.csvPath != "" {
		cfg.Output.CSVPath = opts.csvPath
	}

	if err := logging.InitializeLogging(cfg); err != nil {
		fmt.Fprintln(stderr, "error: failed to initialize logging:", err)
		return 1
	}
	defer logging.CloseLogging()
	logger := logging.Component("cli")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting harvest", map[string]interface{}{
		"keywords":  opts.request.Keywords,
		"locations": opts.request.Locations,
		"sources":   opts.request.Sources,
	})

	res, err := pipeline.Harvest(ctx, cfg, opts.request, logger)
	if err != nil {
		logger.Error("Harvest failed", map[string]interface{}{"error": err.Error()})
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	printResult(stdout, res)
	return 0
}

func printResult(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "Harvest finished in %s\n\n", utils.FormatDuration(res.CompletedAt.Sub(res.StartedAt)))

	for _, s := range res.Sources {
		errText := strings.ReplaceAll(s.Error, "\n", "; ")
		if s.Error != "" && s.Raw == 0 {
			fmt.Fprintf(w, "  %-12s failed: %s\n", s.Name, errText)
			continue
		}
		fmt.Fprintf(w, "  %-12s %4d jobs  (%d raw, %d rejected, %d pages)\n", s.Name, s.Records, s.Raw, s.Rejected, s.Pages)
		if s.Error != "" {
			fmt.Fprintf(w, "  %-12s partial: %s\n", "", errText)
		}
	}
	fmt.Fprintf(w, "\n%d unique jobs, %d duplicates removed, %d filtered out, %d seen before\n",
		len(res.Records), res.Duplicates, res.Filtered, res.SeenBefore)

	for _, e := range res.Exports {
		if e.Error != "" {
			fmt.Fprintf(w, "export %s failed: %s\n", e.Sink, e.Error)
		} else {
			fmt.Fprintf(w, "exported %d jobs to %s\n", e.Records, e.Sink)
		}
	}
	fmt.Fprintln(w)

	report.Render(w, res.Summary)
}
