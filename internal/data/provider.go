package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"signal-backtest/internal/model"
)

const DefaultProviderURL = "https://api.twelvedata.com"

// SupportedIntervals are the bar sizes the time_series endpoint accepts.
var SupportedIntervals = []string{
	"1min", "5min", "15min", "30min", "45min",
	"1h", "2h", "4h",
	"1day", "1week", "1month",
}

func ValidInterval(interval string) bool {
	for _, s := range SupportedIntervals {
		if s == interval {
			return true
		}
	}
	return false
}

// BarQuery selects one symbol's bars. StartDate and EndDate are optional
// YYYY-MM-DD strings.
type BarQuery struct {
	Symbol     string
	Interval   string
	OutputSize int
	StartDate  string
	EndDate    string
}

func (q BarQuery) validate() error {
	if strings.TrimSpace(q.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if !ValidInterval(q.Interval) {
		return fmt.Errorf("unsupported interval %q", q.Interval)
	}
	if q.OutputSize < 0 || q.OutputSize > 5000 {
		return fmt.Errorf("outputsize must be in [0,5000], got %d", q.OutputSize)
	}
	for _, d := range []string{q.StartDate, q.EndDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", d)
		}
	}
	return nil
}

// ProviderError is a failed call to the bar provider.
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type ProviderOptions struct {
	APIKey          string
	BaseURL         string
	Timeout         time.Duration
	RequestsPerSec  int
	MaxRetryTimeout time.Duration
	// RetryInterval is the first backoff delay.
	RetryInterval time.Duration
	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
	Cache  *Cache[*model.BarSeries]
}

// Provider fetches OHLCV bars from a Twelve Data compatible time_series
// endpoint with rate limiting and exponential retries.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	opts    ProviderOptions
	cache   *Cache[*model.BarSeries]
	log     zerolog.Logger
}

func NewProvider(opts ProviderOptions) *Provider {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultProviderURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 5
	}
	if opts.MaxRetryTimeout == 0 {
		opts.MaxRetryTimeout = 30 * time.Second
	}
	if opts.RetryInterval == 0 {
		opts.RetryInterval = 500 * time.Millisecond
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Provider{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSec), opts.RequestsPerSec),
		opts:    opts,
		cache:   opts.Cache,
		log:     logger.With().Str("component", "twelvedata").Logger(),
	}
}

type timeSeriesResponse struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Interval string `json:"interval"`
	} `json:"meta"`
	Values  []timeSeriesValue `json:"values"`
	Status  string            `json:"status"`
	Code    int               `json:"code"`
	Message string            `json:"message"`
}

type timeSeriesValue struct {
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
}

// FetchBars returns the bars for q, oldest first.
func (p *Provider) FetchBars(ctx context.Context, q BarQuery) (*model.BarSeries, error) {
	if err := p.validateAPIKey(); err != nil {
		return nil, err
	}
	if err := q.validate(); err != nil {
		return nil, &ProviderError{Code: "INVALID_QUERY", Message: err.Error()}
	}

	key := CacheKey(q)
	if cached, ok := p.cache.Get(key); ok {
		p.log.Debug().Str("symbol", q.Symbol).Str("interval", q.Interval).Int("bars", len(cached.Bars)).Msg("cache hit")
		return cached, nil
	}

	u, err := p.buildURL(q)
	if err != nil {
		return nil, err
	}

	var body []byte
	operation := func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}
		b, err := p.do(ctx, u)
		if err != nil {
			var perr *ProviderError
			if errors.As(err, &perr) && !perr.retryable() {
				return backoff.Permanent(err)
			}
			p.log.Warn().Err(err).Str("symbol", q.Symbol).Msg("request failed, retrying")
			return err
		}
		body = b
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.opts.RetryInterval
	bo.MaxElapsedTime = p.opts.MaxRetryTimeout
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}

	series, err := decodeTimeSeries(body, q)
	if err != nil {
		p.log.Error().Err(err).Str("symbol", q.Symbol).Msg("decode failed")
		return nil, err
	}

	p.log.Info().
		Str("symbol", series.Symbol).
		Str("interval", series.Interval).
		Int("bars", len(series.Bars)).
		Msg("fetched bars")

	p.cache.Set(key, series)
	return series, nil
}

func (p *Provider) buildURL(q BarQuery) (string, error) {
	u, err := url.Parse(p.baseURL + "/time_series")
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	v := u.Query()
	v.Set("symbol", q.Symbol)
	v.Set("interval", q.Interval)
	if q.OutputSize > 0 {
		v.Set("outputsize", strconv.Itoa(q.OutputSize))
	}
	if q.StartDate != "" {
		v.Set("start_date", q.StartDate)
	}
	if q.EndDate != "" {
		v.Set("end_date", q.EndDate)
	}
	v.Set("order", "ASC")
	v.Set("apikey", p.apiKey)
	u.RawQuery = v.Encode()
	return u.String(), nil
}

// do performs one request and maps HTTP and in-body errors.
func (p *Provider) do(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	p.log.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("path", req.URL.Path).
		Msg("provider response")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, resp.Header.Get("Retry-After"))
	}

	// Twelve Data reports most failures with a 200 and an error body.
	var head struct {
		Status  string `json:"status"`
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &head) == nil && head.Status == "error" {
		perr := statusError(head.Code, "")
		if head.Message != "" {
			perr.Message = head.Message
		}
		return nil, perr
	}
	return body, nil
}

func statusError(status int, retryAfter string) *ProviderError {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &ProviderError{StatusCode: status, Code: "INVALID_API_KEY", Message: "invalid API key or insufficient permissions"}
	case http.StatusNotFound, http.StatusBadRequest:
		return &ProviderError{StatusCode: status, Code: "NOT_FOUND", Message: "symbol or interval not found"}
	case http.StatusTooManyRequests:
		return &ProviderError{
			StatusCode: status,
			Code:       "RATE_LIMIT_EXCEEDED",
			Message:    fmt.Sprintf("rate limit exceeded, retry after: %s", retryAfter),
			RetryAfter: retryAfter,
		}
	default:
		return &ProviderError{StatusCode: status, Code: "API_ERROR", Message: fmt.Sprintf("provider returned status %d", status)}
	}
}

func decodeTimeSeries(body []byte, q BarQuery) (*model.BarSeries, error) {
	var data timeSeriesResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if len(data.Values) == 0 {
		return nil, &ProviderError{Code: "EMPTY_RESPONSE", Message: "empty data returned"}
	}

	bars := make([]model.Bar, 0, len(data.Values))
	for i, v := range data.Values {
		date, err := ParseBarTime(v.Datetime)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		b := model.Bar{Date: date}
		for _, f := range []struct {
			name string
			raw  string
			dst  *float64
		}{
			{"open", v.Open, &b.Open},
			{"high", v.High, &b.High},
			{"low", v.Low, &b.Low},
			{"close", v.Close, &b.Close},
			{"volume", v.Volume, &b.Volume},
		} {
			if f.raw == "" && f.name == "volume" {
				continue
			}
			if *f.dst, err = parseFloat(f.raw); err != nil {
				return nil, fmt.Errorf("value %d %s: %w", i, f.name, err)
			}
		}
		bars = append(bars, b)
	}
	SortBars(bars)

	symbol := data.Meta.Symbol
	if symbol == "" {
		symbol = q.Symbol
	}
	interval := data.Meta.Interval
	if interval == "" {
		interval = q.Interval
	}
	return &model.BarSeries{Symbol: symbol, Interval: interval, Bars: bars}, nil
}

func (p *Provider) validateAPIKey() error {
	if p.apiKey == "" {
		return &ProviderError{Code: "MISSING_API_KEY", Message: "API key is required"}
	}
	if len(strings.TrimSpace(p.apiKey)) < 10 {
		return &ProviderError{Code: "INVALID_API_KEY_FORMAT", Message: "API key appears to be invalid (too short)"}
	}
	return nil
}
