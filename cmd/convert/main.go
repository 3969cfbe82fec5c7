package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pdf-to-word/internal/config"
	"pdf-to-word/internal/domain"
	"pdf-to-word/internal/history"
	"pdf-to-word/internal/jobs"
	"pdf-to-word/internal/present"
	"pdf-to-word/internal/submit"
	"pdf-to-word/internal/termui"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	programName = "convert"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet(programName, flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", config.DefaultPath(), "settings file (.json, .yaml or .yml)")
	outDir := flags.String("out", "", "directory for the converted document (default: outputDir from settings)")
	serviceURL := flags.String("service", "", "conversion service URL (default: serviceUrl from settings)")
	noDownload := flags.Bool("no-download", false, "print the download location instead of saving the document")
	plain := flags.Bool("plain", false, "disable in-place progress redraws")
	verbose := flags.Bool("v", false, "verbose logging to stderr")
	flags.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [flags] <file.pdf>\n", programName)
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return exitUsage
	}

	log := newLogger(stderr, *verbose)
	defer func() { _ = log.Sync() }()

	settings, err := config.NewStore(*configPath).Load()
	if err != nil {
		fmt.Fprintf(stderr, "load settings: %v\n", err)
		return exitUsage
	}
	if *serviceURL != "" {
		settings.ServiceURL = *serviceURL
	}
	if *outDir != "" {
		settings.OutputDir = *outDir
	}
	settings = config.Normalize(settings)

	file, err := domain.FileFromPath(flags.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	client, err := submit.New(settings.ServiceURL,
		submit.WithTimeout(settings.RequestTimeout()),
		submit.WithLogger(log),
	)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	opts := []jobs.Option{
		jobs.WithUploadLimit(int64(settings.MaxUploadSize)),
		jobs.WithLogger(log),
	}
	if ledger, err := history.NewSQLiteStore(settings.HistoryPath); err != nil {
		log.Warn("conversion history disabled", zap.String("path", settings.HistoryPath), zap.Error(err))
	} else {
		defer func() { _ = ledger.Close() }()
		opts = append(opts, jobs.WithRecorder(ledger))
	}

	controller := jobs.NewController(client, present.New(client, present.WithLogger(log)), opts...)
	controller.OnChange(termui.New(stdout, termui.WithPlain(*plain)).Render)
	if err := controller.Start(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailed
	}
	defer controller.Close()

	if _, err := controller.Select(&file); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailed
	}
	view, err := controller.Submit()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailed
	}
	if view.Status == domain.JobStatusIdle && view.Error != "" {
		return exitUsage
	}

	view, err = controller.Wait(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailed
	}
	if view.Status != domain.JobStatusSucceeded || view.Result == nil {
		return exitFailed
	}
	if *noDownload {
		return exitOK
	}

	path, err := client.Download(ctx, domain.DownloadRef{
		URL:      view.Result.DownloadURL,
		Filename: view.Result.DownloadName,
	}, settings.OutputDir)
	if err != nil {
		fmt.Fprintf(stderr, "save converted file: %v\n", err)
		return exitFailed
	}
	fmt.Fprintf(stdout, "saved: %s\n", path)
	return exitOK
}

// newLogger writes warnings (or everything with verbose) as console lines to w.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}
