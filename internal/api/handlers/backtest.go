package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"signal-backtest/internal/analysis"
	"signal-backtest/internal/api/models"
	"signal-backtest/internal/backtest"
	"signal-backtest/internal/config"
	"signal-backtest/internal/data"
	"signal-backtest/internal/metrics"
	"signal-backtest/internal/model"
	"signal-backtest/internal/signal"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var errTickerPreset = errors.New("unknown ticker preset")

// BacktestHandlerOptions wires the handler's collaborators.
type BacktestHandlerOptions struct {
	TickerDir string
	// APIKey is the server-side provider key used when a request has none.
	APIKey string
	// ProviderURL overrides the provider base URL.
	ProviderURL string
	BarsCache   *data.Cache[*model.BarSeries]
	RunCacheTTL time.Duration
	Logger      zerolog.Logger
}

// BacktestHandler handles backtest-related requests
type BacktestHandler struct {
	engine      *backtest.Engine
	runs        *data.Cache[models.BacktestResponse]
	tickerDir   string
	apiKey      string
	providerURL string
	barsCache   *data.Cache[*model.BarSeries]
	log         zerolog.Logger
}

// NewBacktestHandler creates a new backtest handler
func NewBacktestHandler(opts BacktestHandlerOptions) *BacktestHandler {
	ttl := opts.RunCacheTTL
	if ttl == 0 {
		ttl = time.Hour
	}
	log := opts.Logger.With().Str("component", "backtest_handler").Logger()
	return &BacktestHandler{
		engine:      backtest.New().WithLogger(opts.Logger),
		runs:        data.NewCache[models.BacktestResponse](ttl),
		tickerDir:   opts.TickerDir,
		apiKey:      opts.APIKey,
		providerURL: opts.ProviderURL,
		barsCache:   opts.BarsCache,
		log:         log,
	}
}

// Janitor sweeps expired runs until ctx is done.
func (h *BacktestHandler) Janitor(ctx context.Context, every time.Duration) {
	h.runs.Janitor(ctx, every)
}

// RunBacktest handles POST /api/v1/backtest
func (h *BacktestHandler) RunBacktest(c *gin.Context) {
	var req models.BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	bars, symbol, err := h.fetchBars(c.Request.Context(), req.DataSource)
	if err != nil {
		writeFetchError(c, err)
		return
	}

	bars, reqSignals := alignInputs(bars, req.Signals, req.Options.LimitBars)

	cfg, err := h.buildConfig(req.Config)
	if err != nil {
		writeError(c, http.StatusBadRequest, configErrorCode(err), err.Error(), nil)
		return
	}
	if cfg.Ticker.Symbol == "" {
		cfg.Ticker.Symbol = symbol
	}

	signals, err := resolveSignals(reqSignals, cfg, bars, req.Options.Oracle)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	resp, err := h.run(bars, cfg, signals, req.Options)
	if err != nil {
		writeRunError(c, err)
		return
	}

	resp.ID = uuid.NewString()
	h.runs.Set(resp.ID, *resp)

	h.log.Info().
		Str("id", resp.ID).
		Str("symbol", cfg.Ticker.Symbol).
		Int("bars", len(bars)).
		Int("channels", signals.Channels()).
		Float64("final_capital", resp.Summary.FinalCapital).
		Msg("backtest completed")

	c.JSON(http.StatusOK, resp)
}

// GetBacktest handles GET /api/v1/backtest/:id
func (h *BacktestHandler) GetBacktest(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "id must be a UUID", nil)
		return
	}
	resp, ok := h.runs.Get(id)
	if !ok {
		writeError(c, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("no backtest with id %s (results expire)", id), nil)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CompareBacktests handles POST /api/v1/backtest/compare
func (h *BacktestHandler) CompareBacktests(c *gin.Context) {
	var req models.CompareBacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	// Fetch data once
	bars, _, err := h.fetchBars(c.Request.Context(), req.DataSource)
	if err != nil {
		writeFetchError(c, err)
		return
	}
	bars, reqSignals := alignInputs(bars, req.Signals, req.Options.LimitBars)

	named := make([]analysis.Named, 0, len(req.Variations))
	var (
		skipped   []models.SkippedVariation
		benchmark *analysis.Summary
	)
	opts := req.Options
	opts.IncludeTrades = false

	for i, variation := range req.Variations {
		merged := mergeConfig(req.BaseConfig, variation.Config)

		cfg, err := h.buildConfig(merged)
		if err != nil {
			skipped = append(skipped, models.SkippedVariation{Name: variation.Name, Code: configErrorCode(err), Error: err.Error()})
			continue
		}
		signals, err := resolveSignals(reqSignals, cfg, bars, req.Options.Oracle)
		if err != nil {
			skipped = append(skipped, models.SkippedVariation{Name: variation.Name, Code: "INVALID_REQUEST", Error: err.Error()})
			continue
		}

		// Only the first runnable variation carries the benchmark; it does
		// not depend on leverage.
		opts.IncludeBenchmark = boolPtr(req.Options.WantBenchmark() && benchmark == nil)
		resp, err := h.run(bars, cfg, signals, opts)
		if err != nil {
			_, code, _ := classifyRunError(err)
			skipped = append(skipped, models.SkippedVariation{Name: variation.Name, Code: code, Error: err.Error()})
			continue
		}
		if resp.Benchmark != nil {
			benchmark = &resp.Benchmark.Summary
		}
		named = append(named, analysis.Named{Name: variation.Name, Summary: resp.Summary})

		h.log.Debug().Int("variation", i).Str("name", variation.Name).Msg("variation completed")
	}

	c.JSON(http.StatusOK, models.CompareBacktestResponse{
		Comparison: analysis.Rank(named),
		Benchmark:  benchmark,
		Skipped:    skipped,
	})
}

// Helper methods

func (h *BacktestHandler) run(bars []model.Bar, cfg *config.Config, signals model.SignalMatrix, opts models.BacktestOptions) (*models.BacktestResponse, error) {
	ticker := cfg.Ticker.ToModel()
	params := cfg.Run.Params()

	start := time.Now()
	res, err := h.engine.Run(bars, ticker, signals, params)
	if err != nil {
		return nil, err
	}
	metrics.ObserveRun(res, time.Since(start))

	resp := &models.BacktestResponse{
		Status:    "completed",
		CreatedAt: time.Now().UTC(),
		Summary:   analysis.Summarize(res),
		Market:    analysis.ComputeMarketStats(ticker.Symbol, bars),
		Capital:   res.Capital,
		Drawdown:  res.Drawdown,
		Open:      models.NewOpenRows(res.Open),
	}
	if opts.IncludeTrades {
		resp.Trades = models.NewTradeRows(res.Trades)
	}

	if opts.WantBenchmark() {
		start = time.Now()
		bench, err := h.engine.Benchmark(bars, ticker, signals, params, cfg.Benchmark.Policy())
		if err != nil {
			return nil, fmt.Errorf("benchmark: %w", err)
		}
		metrics.ObserveRun(bench, time.Since(start))

		summary := analysis.Summarize(bench)
		resp.Benchmark = &models.BenchmarkResult{
			Summary:         summary,
			Capital:         bench.Capital,
			Drawdown:        bench.Drawdown,
			ExcessReturnPct: analysis.ExcessReturn(resp.Summary, summary),
		}
	}
	return resp, nil
}

func (h *BacktestHandler) fetchBars(ctx context.Context, ds models.DataSourceConfig) ([]model.Bar, string, error) {
	switch strings.ToLower(ds.Type) {
	case "inline":
		if len(ds.Bars) == 0 {
			return nil, "", fmt.Errorf("inline data source has no bars")
		}
		return ds.Bars, ds.Symbol, nil
	case "twelvedata":
		apiKey := ds.APIKey
		if apiKey == "" {
			apiKey = h.apiKey
		}
		// Create a new provider with the key for this request
		provider := data.NewProvider(data.ProviderOptions{
			APIKey:  apiKey,
			BaseURL: h.providerURL,
			Logger:  &h.log,
			Cache:   h.barsCache,
		})
		series, err := provider.FetchBars(ctx, data.BarQuery{
			Symbol:     ds.Symbol,
			Interval:   ds.Interval,
			OutputSize: ds.OutputSize,
			StartDate:  ds.StartDate,
			EndDate:    ds.EndDate,
		})
		if err != nil {
			return nil, "", err
		}
		return series.Bars, series.Symbol, nil
	default:
		return nil, "", fmt.Errorf("unsupported data source type: %s", ds.Type)
	}
}

func (h *BacktestHandler) buildConfig(req config.Config) (*config.Config, error) {
	cfg := req

	// If ticker_file is set, load it and merge request overrides onto it
	if cfg.TickerFile != "" {
		// ticker_file is a preset id (e.g., "eurusd"), looked up in the ticker directory
		id := strings.TrimSuffix(filepath.Base(cfg.TickerFile), ".yaml")
		tickerPath := filepath.Join(h.tickerDir, id+".yaml")

		loaded, err := config.LoadTickerFile(tickerPath)
		if err != nil {
			h.log.Debug().Err(err).Str("path", tickerPath).Msg("ticker preset load failed")
			return nil, fmt.Errorf("%w %q", errTickerPreset, id)
		}
		// Merge: ticker file is base, request config is override
		cfg.Ticker = config.MergeTicker(loaded, cfg.Ticker)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeConfig overlays the non-zero parts of a variation onto the base.
func mergeConfig(base, override config.Config) config.Config {
	merged := base
	if override.TickerFile != "" {
		merged.TickerFile = override.TickerFile
	}
	merged.Ticker = config.MergeTicker(merged.Ticker, override.Ticker)
	if override.Run.Leverage != 0 {
		merged.Run.Leverage = override.Run.Leverage
	}
	if override.Run.MarginPct != 0 {
		merged.Run.MarginPct = override.Run.MarginPct
	}
	if override.Run.InitialCapital != 0 {
		merged.Run.InitialCapital = override.Run.InitialCapital
	}
	if override.Benchmark.Enabled != nil {
		merged.Benchmark = override.Benchmark
	}
	if len(override.Signals.Events) > 0 {
		merged.Signals = override.Signals
	}
	return merged
}

// alignInputs orders bars oldest first, carrying each request signal row
// with its bar, then applies the bar limit. Rows are cut with the bars only
// when they were paired one to one; any other count reaches the engine
// unchanged and fails its shape check.
func alignInputs(bars []model.Bar, signals model.SignalMatrix, limit int) ([]model.Bar, model.SignalMatrix) {
	paired := len(signals) == len(bars)
	bars, signals = data.Chronological(bars, signals)
	if limit > 0 && limit < len(bars) {
		bars = bars[:limit]
		if paired {
			signals = signals[:limit]
		}
	}
	return bars, signals
}

// resolveSignals picks the request matrix, the oracle, or the config's
// sparse events, in that order.
func resolveSignals(req model.SignalMatrix, cfg *config.Config, bars []model.Bar, oracle bool) (model.SignalMatrix, error) {
	switch {
	case oracle:
		return signal.Oracle(bars)
	case len(req) > 0:
		return req, nil
	case len(cfg.Signals.Events) > 0:
		return cfg.Signals.Matrix(len(bars))
	default:
		return nil, errors.New("no signals: provide signals, config.signals.events or options.oracle")
	}
}

func configErrorCode(err error) string {
	if errors.Is(err, errTickerPreset) {
		return "INVALID_TICKER"
	}
	return "INVALID_CONFIG"
}

func boolPtr(b bool) *bool { return &b }

func writeError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// writeFetchError maps provider failures onto HTTP statuses.
func writeFetchError(c *gin.Context, err error) {
	var perr *data.ProviderError
	if errors.As(err, &perr) {
		statusCode := http.StatusBadRequest
		if perr.StatusCode == http.StatusForbidden || perr.StatusCode == http.StatusUnauthorized {
			statusCode = http.StatusUnauthorized
		} else if perr.StatusCode == http.StatusTooManyRequests {
			statusCode = http.StatusTooManyRequests
		} else if perr.StatusCode >= 500 {
			statusCode = http.StatusBadGateway
		}
		writeError(c, statusCode, perr.Code, perr.Message, map[string]interface{}{
			"status_code": perr.StatusCode,
			"retry_after": perr.RetryAfter,
		})
		return
	}
	writeError(c, http.StatusBadRequest, "DATA_FETCH_ERROR", err.Error(), nil)
}

func classifyRunError(err error) (int, string, string) {
	switch {
	case errors.Is(err, backtest.ErrMalformedInput):
		return http.StatusBadRequest, "MALFORMED_INPUT", err.Error()
	case errors.Is(err, backtest.ErrDegenerateSizing):
		return http.StatusUnprocessableEntity, "DEGENERATE_SIZING", err.Error()
	case errors.Is(err, backtest.ErrInvalidParams):
		return http.StatusBadRequest, "INVALID_CONFIG", err.Error()
	default:
		return http.StatusInternalServerError, "BACKTEST_ERROR", err.Error()
	}
}

func writeRunError(c *gin.Context, err error) {
	status, code, msg := classifyRunError(err)
	writeError(c, status, code, msg, nil)
}
