package data

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"signal-backtest/internal/model"
)

const testKey = "test-api-key-123"

const okBody = `{
  "meta": {"symbol": "AAPL", "interval": "1day"},
  "values": [
    {"datetime": "2024-01-03", "open": "184.22", "high": "185.88", "low": "183.43", "close": "184.25", "volume": "58414500"},
    {"datetime": "2024-01-02", "open": "187.15", "high": "188.44", "low": "183.89", "close": "185.64", "volume": "82488700"}
  ],
  "status": "ok"
}`

func newTestProvider(url string, cache *Cache[*model.BarSeries]) *Provider {
	return NewProvider(ProviderOptions{
		APIKey:          testKey,
		BaseURL:         url,
		RequestsPerSec:  100,
		RetryInterval:   time.Millisecond,
		MaxRetryTimeout: 2 * time.Second,
		Cache:           cache,
	})
}

func TestFetchBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/time_series" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "AAPL" || q.Get("interval") != "1day" || q.Get("apikey") != testKey || q.Get("outputsize") != "2" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(okBody))
	}))
	defer srv.Close()

	series, err := newTestProvider(srv.URL, nil).FetchBars(context.Background(), BarQuery{Symbol: "AAPL", Interval: "1day", OutputSize: 2})
	if err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	if series.Symbol != "AAPL" || len(series.Bars) != 2 {
		t.Fatalf("series = %+v", series)
	}
	if series.Bars[0].Close != 185.64 || series.Bars[1].Close != 184.25 {
		t.Fatalf("bars not sorted oldest first: %+v", series.Bars)
	}
}

func TestFetchBarsRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(okBody))
	}))
	defer srv.Close()

	if _, err := newTestProvider(srv.URL, nil).FetchBars(context.Background(), BarQuery{Symbol: "AAPL", Interval: "1day"}); err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestFetchBarsDoesNotRetryAuthErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"code": 401, "message": "**apikey** parameter is incorrect", "status": "error"}`))
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL, nil).FetchBars(context.Background(), BarQuery{Symbol: "AAPL", Interval: "1day"})
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *ProviderError", err)
	}
	if perr.Code != "INVALID_API_KEY" || perr.StatusCode != 401 {
		t.Fatalf("perr = %+v", perr)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestFetchBarsUsesCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(okBody))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, NewCache[*model.BarSeries](time.Hour))
	q := BarQuery{Symbol: "AAPL", Interval: "1day"}
	for i := 0; i < 2; i++ {
		if _, err := p.FetchBars(context.Background(), q); err != nil {
			t.Fatalf("FetchBars: %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestFetchBarsRejectsBadQueries(t *testing.T) {
	tests := []struct {
		name string
		key  string
		q    BarQuery
		code string
	}{
		{"missing key", "", BarQuery{Symbol: "AAPL", Interval: "1day"}, "MISSING_API_KEY"},
		{"short key", "abc", BarQuery{Symbol: "AAPL", Interval: "1day"}, "INVALID_API_KEY_FORMAT"},
		{"no symbol", testKey, BarQuery{Interval: "1day"}, "INVALID_QUERY"},
		{"bad interval", testKey, BarQuery{Symbol: "AAPL", Interval: "3day"}, "INVALID_QUERY"},
		{"bad date", testKey, BarQuery{Symbol: "AAPL", Interval: "1day", StartDate: "01/02/2024"}, "INVALID_QUERY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProvider(ProviderOptions{APIKey: tt.key, BaseURL: "http://127.0.0.1:0"})
			_, err := p.FetchBars(context.Background(), tt.q)
			var perr *ProviderError
			if !errors.As(err, &perr) || perr.Code != tt.code {
				t.Fatalf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}
