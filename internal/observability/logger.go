// Package observability owns request logging and Prometheus metrics for the
// device and its admin surface.
package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/onebyte/internal/logs"
)

// InitLogger derives a structured logger tagged with app from the configured
// logs backend and installs it as zerolog's global logger.
func InitLogger(app string) zerolog.Logger {
	logger := logs.Logger().With().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
