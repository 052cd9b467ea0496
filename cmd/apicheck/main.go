// Package main is the entry point for the apicheck conformance runner.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"apicheck/internal/config"
	"apicheck/internal/history"
	"apicheck/internal/logging"
	"apicheck/internal/mockapi"
	"apicheck/internal/report"
	"apicheck/internal/schema"
	"apicheck/internal/suite"
	"apicheck/internal/version"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to the suite configuration file")
	schemasDir := flag.String("schemas", schema.DefaultDir, "Directory containing JSON schema documents")
	reportsDir := flag.String("reports", "reports", "Directory for report attachments")
	envName := flag.String("env", "", "Override the configured environment (same as TEST_ENV)")
	payloadsPath := flag.String("payloads", "", "Optional JSON file with create-user payloads for data-driven checks")
	historyPath := flag.String("history", "", "Optional SQLite file for run history")
	metricsAddr := flag.String("metrics", "", "Optional address to serve Prometheus metrics on while running")
	mockMode := flag.Bool("mock", false, "Run against the built-in mock API instead of the configured environment")
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	logger := logging.Setup(os.Stderr, slog.LevelInfo)

	// Optional .env file for local overrides; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if *envName != "" {
		cfg.Env = *envName
	}

	if *mockMode {
		baseURL, stop, err := startMockAPI()
		if err != nil {
			logger.Error("failed to start mock API", "error", err)
			os.Exit(1)
		}
		defer stop()
		cfg.Environments[cfg.Env] = config.Environment{BaseURL: baseURL}
		logger.Info("running against built-in mock API", "base_url", baseURL)
	}

	if *metricsAddr != "" {
		go serveMetrics(logger, *metricsAddr)
	}

	sink, err := report.NewFileSink(*reportsDir)
	if err != nil {
		logger.Error("failed to create report sink", "error", err)
		os.Exit(1)
	}

	var store *history.Store
	if *historyPath != "" {
		store, err = history.Open(*historyPath)
		if err != nil {
			logger.Error("failed to open history store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	s, err := suite.New(suite.Options{
		Config:   cfg,
		Registry: schema.NewRegistry(*schemasDir),
		Sink:     sink,
		Store:    store,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to build suite", "error", err)
		os.Exit(1)
	}

	if err := report.WriteEnvironmentProperties(*reportsDir, s.BaseURL()); err != nil {
		// Reporting context is best-effort, never fatal.
		logger.Warn("failed to write environment properties", "error", err)
	}

	checks := suite.DefaultChecks()
	if *payloadsPath != "" {
		payloadChecks, err := suite.LoadPayloadChecks(*payloadsPath)
		if err != nil {
			logger.Error("failed to load payload checks", "error", err)
			os.Exit(1)
		}
		checks = append(checks, payloadChecks...)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := s.Run(ctx, checks)
	if err != nil {
		logger.Error("run aborted", "error", err)
		os.Exit(1)
	}

	printSummary(summary)
	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func printSummary(summary *suite.Summary) {
	fmt.Printf("\nRun %s against %s\n", summary.RunID, summary.BaseURL)
	for _, result := range summary.Results {
		mark := "PASS"
		if result.Observed {
			mark = "INFO"
		} else if !result.Passed {
			mark = "FAIL"
		}
		line := fmt.Sprintf("  [%s] %-28s status=%d attempts=%d %v",
			mark, result.Check, result.Status, result.Attempts, result.Duration.Round(time.Millisecond))
		if result.Reason != "" {
			line += "  " + result.Reason
		}
		fmt.Println(line)
	}
	fmt.Printf("%d passed, %d failed in %v\n", summary.Passed, summary.Failed, summary.Duration.Round(time.Millisecond))
}

// startMockAPI serves the built-in users API on a loopback port.
func startMockAPI() (string, func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}

	e := mockapi.New()
	e.Listener = ln
	go func() {
		if err := e.Start(""); err != nil && err != http.ErrServerClosed {
			slog.Error("mock API stopped", "error", err)
		}
	}()

	stop := func() {
		_ = e.Close()
	}
	return fmt.Sprintf("http://%s/api", ln.Addr().String()), stop, nil
}

func serveMetrics(logger *slog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics server stopped", "error", err)
	}
}
