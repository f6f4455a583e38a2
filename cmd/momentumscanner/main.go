package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"MomentumScanner/internal/app"
	"MomentumScanner/internal/config"
	"MomentumScanner/internal/logging"
)

const usage = `usage: momentumscanner [flags] <command> [args]

commands:
  run <name>...   analyze companies once and store the results
  news <name>     print the curated news articles for one company as JSON
  serve           start the results API and the watchlist scheduler

flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "momentumscanner:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("momentumscanner", flag.ContinueOnError)
	fs.SetOutput(stderr)
	logLevel := fs.String("log-level", "", "override logging.level (debug, info, warn, error)")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg := config.Load()
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger := logging.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, stderr)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close application", "error", err)
		}
	}()

	command, rest := fs.Arg(0), fs.Args()[1:]
	switch command {
	case "run":
		return runAnalyses(ctx, application, rest, stdout)
	case "news":
		return printNews(ctx, application, rest, stdout)
	case "serve":
		return application.Serve(ctx)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runAnalyses(ctx context.Context, application *app.Application, names []string, stdout io.Writer) error {
	if len(names) == 0 {
		return errors.New("run: at least one company name is required")
	}

	res := application.Analyze(ctx, names)
	for _, rec := range res.Records {
		fmt.Fprintf(stdout, "%s\t%s\tarticles=%d\tfiling=%s\n", rec.CompanyName, rec.Status, rec.NewsCount, rec.FilingReport)
	}

	failed := make([]string, 0, len(res.Errors))
	for name := range res.Errors {
		failed = append(failed, name)
	}
	sort.Strings(failed)
	for _, name := range failed {
		fmt.Fprintf(stdout, "%s\terror\t%s\n", name, res.Errors[name])
	}

	if len(failed) > 0 {
		return fmt.Errorf("run: %d of %d analyses failed", len(failed), len(failed)+len(res.Records))
	}
	return nil
}

func printNews(ctx context.Context, application *app.Application, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errors.New("news: exactly one company name is required")
	}

	res, err := application.News(ctx, args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
