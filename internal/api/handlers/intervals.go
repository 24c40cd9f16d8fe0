package handlers

import (
	"net/http"
	"strings"

	"signal-backtest/internal/api/models"
	"signal-backtest/internal/data"

	"github.com/gin-gonic/gin"
)

// ListIntervals handles GET /api/v1/intervals
func ListIntervals(c *gin.Context) {
	intervals := make([]models.IntervalInfo, 0, len(data.SupportedIntervals))
	for _, id := range data.SupportedIntervals {
		intervals = append(intervals, models.IntervalInfo{
			ID:       id,
			Intraday: strings.HasSuffix(id, "min") || strings.HasSuffix(id, "h"),
		})
	}
	c.JSON(http.StatusOK, gin.H{"intervals": intervals})
}
