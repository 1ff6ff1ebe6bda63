package push

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/emrecanisildak/diet/internal/config"
	"github.com/emrecanisildak/diet/internal/domain"
)

// New returns the APNs gateway wrapped in a circuit breaker. Without
// credentials it returns a LogGateway and reports ErrConfigurationAbsent
// in the log; that is a valid running mode, not an error.
func New(cfg config.PushConfig, logger zerolog.Logger) (Gateway, error) {
	if !cfg.Configured() {
		logger.Warn().Err(domain.ErrConfigurationAbsent).Msg("APNs credentials missing, push runs in log-only mode")
		return NewLogGateway(logger), nil
	}

	apns, err := NewAPNsGateway(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init apns: %w", err)
	}
	logger.Info().
		Str("bundle_id", cfg.BundleID).
		Bool("sandbox", cfg.Sandbox).
		Msg("APNs push enabled")
	return NewBreakerGateway(apns, cfg.Breaker, logger), nil
}
