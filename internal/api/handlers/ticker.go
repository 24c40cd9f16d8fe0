package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"signal-backtest/internal/api/models"
	"signal-backtest/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// TickerHandler serves the ticker presets in a directory of YAML files.
type TickerHandler struct {
	tickerDir string
	log       zerolog.Logger
}

// TickerDirFromEnv resolves TICKER_DIR, defaulting to examples/tickers
// under the working directory.
func TickerDirFromEnv() string {
	dir := os.Getenv("TICKER_DIR")
	if dir == "" {
		// Try to resolve relative to working directory first
		if wd, err := os.Getwd(); err == nil {
			dir = filepath.Join(wd, "examples", "tickers")
		} else {
			dir = "./examples/tickers"
		}
	}
	// Convert to absolute path for reliability
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return dir
}

func NewTickerHandler(dir string, log zerolog.Logger) *TickerHandler {
	return &TickerHandler{
		tickerDir: dir,
		log:       log.With().Str("component", "ticker_handler").Logger(),
	}
}

// TickerDir returns the preset directory.
func (h *TickerHandler) TickerDir() string {
	return h.tickerDir
}

// ListTickers handles GET /api/v1/tickers
func (h *TickerHandler) ListTickers(c *gin.Context) {
	tickers := []models.TickerInfo{}

	entries, err := os.ReadDir(h.tickerDir)
	if err != nil {
		h.log.Warn().Err(err).Str("dir", h.tickerDir).Msg("failed to read ticker directory")
		c.JSON(http.StatusOK, gin.H{"tickers": tickers})
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(h.tickerDir, entry.Name())
		info, err := loadTickerInfo(path, entry.Name())
		if err != nil {
			h.log.Warn().Err(err).Str("path", path).Msg("skipping invalid ticker preset")
			continue
		}
		tickers = append(tickers, *info)
	}

	sort.Slice(tickers, func(i, j int) bool { return tickers[i].ID < tickers[j].ID })
	h.log.Debug().Int("count", len(tickers)).Msg("listed ticker presets")

	c.JSON(http.StatusOK, gin.H{"tickers": tickers})
}

func loadTickerInfo(path, filename string) (*models.TickerInfo, error) {
	t, err := config.LoadTickerFile(path)
	if err != nil {
		return nil, err
	}
	if err := t.ToModel().Validate(); err != nil {
		return nil, err
	}

	// Extract ID from filename (remove .yaml extension)
	id := strings.TrimSuffix(filename, ".yaml")
	symbol := t.Symbol
	if symbol == "" {
		symbol = strings.ToUpper(id)
	}

	return &models.TickerInfo{
		ID:     id,
		Symbol: symbol,
		File:   filename,
		Specs: models.TickerSpecs{
			Precision:      t.Precision,
			Spread:         t.Spread,
			LongOvernight:  t.LongOvernight,
			ShortOvernight: t.ShortOvernight,
		},
	}, nil
}
