package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"signal-backtest/internal/data"
	"signal-backtest/internal/logging"

	"github.com/joho/godotenv"
)

func main() {
	var (
		symbol     = flag.String("symbol", "", "Instrument symbol, e.g. AAPL or EUR/USD")
		interval   = flag.String("interval", "1day", "Bar interval: "+strings.Join(data.SupportedIntervals, ", "))
		outputSize = flag.Int("outputsize", 5000, "Number of bars to request (max 5000)")
		startDate  = flag.String("start", "", "Optional start date (YYYY-MM-DD)")
		endDate    = flag.String("end", "", "Optional end date (YYYY-MM-DD)")
		outputPath = flag.String("output", "", "Output file path (default: ./data/<symbol>_<interval>.json)")
	)
	flag.Parse()

	_ = godotenv.Load()
	log := logging.NewLoggerTo(os.Stderr, os.Getenv("LOG_LEVEL"))

	if *symbol == "" {
		log.Fatal().Msg("-symbol is required")
	}
	apiKey := os.Getenv("TWELVE_API_KEY")
	if apiKey == "" {
		log.Fatal().Msg("TWELVE_API_KEY environment variable is required")
	}

	if *outputPath == "" {
		name := strings.NewReplacer("/", "", ":", "").Replace(strings.ToLower(*symbol))
		*outputPath = filepath.Join("data", fmt.Sprintf("%s_%s.json", name, *interval))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider := data.NewProvider(data.ProviderOptions{
		APIKey:  apiKey,
		BaseURL: os.Getenv("TWELVE_API_URL"),
		Logger:  &log,
	})
	series, err := provider.FetchBars(ctx, data.BarQuery{
		Symbol:     *symbol,
		Interval:   *interval,
		OutputSize: *outputSize,
		StartDate:  *startDate,
		EndDate:    *endDate,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to fetch bars")
	}

	if err := data.SaveBarsJSON(series, *outputPath); err != nil {
		log.Fatal().Err(err).Msg("failed to save bars")
	}

	fmt.Printf("Saved %d %s bars for %s to %s\n", len(series.Bars), series.Interval, series.Symbol, *outputPath)
}
