package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"signal-backtest/internal/backtest"
)

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "backtest_runs_total", Help: "Completed engine runs"},
		[]string{"kind"},
	)
	HaltsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "backtest_halts_total", Help: "Runs stopped by the insolvency floor"},
		[]string{"kind"},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "backtest_trades_total", Help: "Realized exits"},
		[]string{"side"},
	)
	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backtest_run_duration_seconds",
			Help:    "Wall time of one engine run",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(RunsTotal, HaltsTotal, TradesTotal, RunDuration)
}

// ObserveRun records one finished run.
func ObserveRun(res *backtest.Result, elapsed time.Duration) {
	if res == nil {
		return
	}
	kind := string(res.Kind)
	RunsTotal.WithLabelValues(kind).Inc()
	RunDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if res.Halted {
		HaltsTotal.WithLabelValues(kind).Inc()
	}
	for _, t := range res.Trades {
		TradesTotal.WithLabelValues(t.Side.String()).Inc()
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
