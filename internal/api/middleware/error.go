package middleware

import (
	"fmt"
	"net/http"

	"signal-backtest/internal/api/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ErrorHandler middleware handles panics and errors
func ErrorHandler(log zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		message := "An unexpected error occurred"
		if err, ok := recovered.(string); ok {
			message = err
		}
		log.Error().
			Str("path", c.Request.URL.Path).
			Str("panic", fmt.Sprint(recovered)).
			Msg("recovered from panic")

		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: message,
			},
		})
	})
}
