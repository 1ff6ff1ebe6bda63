package push

import (
	"context"

	"github.com/rs/zerolog"
)

// LogGateway records pushes instead of sending them. It is used when push
// credentials are not configured.
type LogGateway struct {
	logger zerolog.Logger
}

func NewLogGateway(logger zerolog.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

func (g *LogGateway) SendPush(_ context.Context, token, title, body string) error {
	g.logger.Info().
		Str("device_token", redact(token)).
		Str("title", title).
		Int("body_len", len(body)).
		Msg("push (log-only mode)")
	return nil
}

func redact(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "…" + token[len(token)-4:]
}
