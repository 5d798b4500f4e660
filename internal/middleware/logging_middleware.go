package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"intentio/backend/internal/metrics"
)

// RequestLogger logs every request once it has been handled and records it in
// the HTTP metrics. Routes are labelled by their pattern, not the raw path.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.RequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.RequestDuration.WithLabelValues(route).Observe(duration.Seconds())

		event := logger.Info()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}
		if errs := errorsOf(c); len(errs) > 0 {
			event = event.Errs("errors", errs)
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("remote_addr", c.ClientIP()).
			Int("status", status).
			Int("size", c.Writer.Size()).
			Dur("duration", duration).
			Msg("API request")
	}
}

func errorsOf(c *gin.Context) []error {
	if len(c.Errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(c.Errors))
	for _, err := range c.Errors {
		errs = append(errs, err.Err)
	}
	return errs
}
