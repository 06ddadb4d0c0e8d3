package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-xkcd-archive/archive"
	"github.com/aluiziolira/go-xkcd-archive/config"
	"github.com/aluiziolira/go-xkcd-archive/fetcher"
	"github.com/aluiziolira/go-xkcd-archive/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	defaultCfg := config.DefaultConfig()
	startDefault := defaultCfg.StartNumber
	if value, ok, err := config.EnvInt("ARCHIVER_START"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid ARCHIVER_START: %v\n", err)
		os.Exit(1)
	} else if ok {
		startDefault = value
	}
	outputDefault := defaultCfg.OutputDir
	if value, ok := config.EnvString("ARCHIVER_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("ARCHIVER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Comic API base URL")
	outputDir := flag.String("output", outputDefault, "Output directory for downloaded comics")
	startNumber := flag.Int("start", startDefault, "Comic number to start from")
	delayMs := flag.Int("delay", 0, "Delay between requests (milliseconds)")
	timeoutSec := flag.Int("timeout", 10, "Request timeout (seconds)")
	extensions := flag.String("extensions", strings.Join(defaultCfg.AllowedExtensions, ","), "Comma-separated image extension allow-list")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := buildConfigFromFlags(*baseURL, *outputDir, *startNumber, *delayMs, *timeoutSec, *extensions, *metricsAddr, *verbose)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting archive run",
		slog.String("base_url", cfg.BaseURL),
		slog.String("output", cfg.OutputDir),
		slog.Int("start", cfg.StartNumber),
	)

	metrics := fetcher.NewMetrics()
	f, err := fetcher.New(cfg, metrics)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		os.Exit(1)
	}

	store, err := archive.NewStore(cfg)
	if err != nil {
		slog.Error("initialising store", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing current comic")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	archiver := archive.NewArchiver(cfg, f, store, metrics, logger)

	result, err := archiver.Run(ctx)
	if err != nil {
		slog.Error("archive run failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, cfg.OutputDir)
}

func buildConfigFromFlags(baseURL, outputDir string, startNumber, delayMs, timeoutSec int, extensions, metricsAddr string, verbose bool) *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	cfg.OutputDir = outputDir
	cfg.StartNumber = startNumber
	cfg.Delay = time.Duration(delayMs) * time.Millisecond
	cfg.Timeout = time.Duration(timeoutSec) * time.Second
	cfg.MetricsAddr = metricsAddr
	cfg.Verbose = verbose

	if extensions != "" {
		cfg.AllowedExtensions = cfg.AllowedExtensions[:0]
		for _, ext := range strings.Split(extensions, ",") {
			ext = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(ext, ".")))
			if ext != "" {
				cfg.AllowedExtensions = append(cfg.AllowedExtensions, ext)
			}
		}
	}
	return cfg
}

func printSummary(result *models.ArchiveResult, outputDir string) {
	duration := result.EndTime.Sub(result.StartTime)
	comicsPerSec := 0.0
	if duration.Seconds() > 0 {
		comicsPerSec = float64(result.RequestCount) / duration.Seconds()
	}

	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Archive run complete")
	fmt.Printf("  Latest comic:    #%d (%s)\n", result.LatestNum, result.LatestDate.Format("2006-01-02"))
	fmt.Printf("  Requests:        %d\n", result.RequestCount)
	fmt.Printf("  Downloaded:      %d\n", result.DownloadCount)
	fmt.Printf("  Already present: %d\n", result.SkippedExisting)
	fmt.Printf("  No image:        %d\n", result.SkippedNoImage)
	fmt.Printf("  Bad extension:   %d\n", result.SkippedExtension)
	fmt.Printf("  Errors:          %d\n", result.ErrorCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:     %v\n", result.ErrorsByType)
	}
	if len(result.FailedComics) > 0 {
		fmt.Printf("  Failed comics:   %v\n", result.FailedComics)
	}
	fmt.Printf("  Duration:        %v\n", duration)
	fmt.Printf("  Comics/sec:      %.2f\n", comicsPerSec)
	fmt.Printf("  Output dir:      %s\n", outputDir)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
