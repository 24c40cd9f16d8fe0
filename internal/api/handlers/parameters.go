package handlers

import (
	"net/http"

	"signal-backtest/internal/api/models"
	"signal-backtest/internal/backtest"

	"github.com/gin-gonic/gin"
)

// ListParameters handles GET /api/v1/parameters
func ListParameters(c *gin.Context) {
	def := backtest.DefaultParams()
	params := []models.ParameterInfo{
		{Name: "symbol", Section: "ticker", Type: "string", Description: "Instrument symbol, informational"},
		{Name: "precision", Section: "ticker", Type: "float", Description: "Share rounding granularity; 1 means whole units, 0.01 two decimal places"},
		{Name: "spread", Section: "ticker", Type: "float", Description: "Round-trip spread cost per share, charged at exit"},
		{Name: "long_overnight", Section: "ticker", Type: "float", Description: "Daily overnight rate in percent for leveraged longs"},
		{Name: "short_overnight", Section: "ticker", Type: "float", Description: "Daily overnight rate in percent for leveraged shorts"},
		{Name: "leverage", Section: "run", Type: "int", Description: "Share multiplier; overnight fees apply only above 1", Default: def.Leverage},
		{Name: "margin_pct", Section: "run", Type: "float", Description: "Percent of capital committed per entry, split across channels", Default: def.MarginPct},
		{Name: "initial_capital", Section: "run", Type: "float", Description: "Starting capital", Default: def.InitialCapital},
		{Name: "enabled", Section: "benchmark", Type: "bool", Description: "Force market exposure on one channel for the benchmark run", Default: true},
		{Name: "channel", Section: "benchmark", Type: "int", Description: "Channel that carries the benchmark exposure", Default: 0},
		{Name: "channels", Section: "signals", Type: "int", Description: "Channel count for sparse config events", Default: 1},
	}

	c.JSON(http.StatusOK, gin.H{"parameters": params})
}
