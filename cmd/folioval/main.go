package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rmarchal/folioval/internal/app"
	"github.com/rmarchal/folioval/internal/common"
	"github.com/rmarchal/folioval/internal/services/ingest"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults to FOLIOVAL_CONFIG, then folioval.toml next to the binary)")
	sourceDir := flag.String("source", "", "override the source directory containing export CSVs")
	outputDir := flag.String("output", "", "override the report output directory")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println(common.GetFullVersion())
		return
	}

	a, err := app.NewApp(*configPath)
	if err != nil {
		if errors.Is(err, app.ErrNoConnectivity) {
			fmt.Fprintln(os.Stderr, "No network connectivity, cannot fetch market data")
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if *sourceDir != "" {
		a.Config.SourceDir = *sourceDir
	}
	if *outputDir != "" {
		a.Config.OutputDir = *outputDir
	}

	common.PrintBanner(a.Config, a.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, dir, err := a.Run(ctx)
	if err != nil {
		var schemaErr *ingest.SchemaError
		if errors.As(err, &schemaErr) {
			a.Logger.Error().Err(err).Msg("Source data rejected")
		} else {
			a.Logger.Error().Err(err).Msg("Valuation run failed")
		}
		os.Exit(1)
	}

	a.Logger.Info().
		Str("run_id", result.RunID).
		Int("instruments", len(result.Series)).
		Int("skipped", len(result.Skipped)).
		Str("reports", dir).
		Msg("Done")
}
