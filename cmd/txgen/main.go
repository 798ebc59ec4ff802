// Command txgen submits synthetic transactions to a running fraudscope and
// verifies that every accepted one is processed.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/fraudscope/internal/txgen"
)

const (
	defaultWorkers = 2 // multiplier for runtime.NumCPU()
	runTimeout     = 30 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the service")
		transactions = flag.Int("transactions", txgen.DefaultTransactions, "Number of transactions to submit")
		users        = flag.Int("users", txgen.DefaultUsers, "Size of the synthetic user population")
		fraudRatio   = flag.Float64("fraud-ratio", txgen.DefaultFraudRatio, "Share of fraud-shaped transactions")
		workers      = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout      = flag.Duration("timeout", txgen.DefaultTimeout, "HTTP request timeout")
		wait         = flag.Duration("wait", txgen.DefaultWait, "How long to wait for the pipeline to drain")
		outputFile   = flag.String("output", "", "Write generated transactions to this JSON file")
		logFile      = flag.String("log", "-", `Log file ("-" logs to stdout only, "" picks a timestamped name)`)
		logFormat    = flag.String("log-format", "text", "Log format: text or json")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	closer, err := txgen.SetupLogging(*logFile, *logFormat)
	if err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	cfg := &txgen.Config{
		BaseURL:      *baseURL,
		Transactions: *transactions,
		Users:        *users,
		FraudRatio:   *fraudRatio,
		Workers:      *workers,
		Timeout:      *timeout,
		Wait:         *wait,
		OutputFile:   *outputFile,
		Verbose:      *verbose,
	}
	if _, err := txgen.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
