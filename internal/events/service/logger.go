package service

import (
	"context"

	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/events/domain"
	"github.com/rs/zerolog"
)

// Logger is a Publisher that writes events to a zerolog logger.
type Logger struct{ log zerolog.Logger }

func NewLogger(log zerolog.Logger) *Logger { return &Logger{log: log} }

func (l *Logger) Publish(ctx context.Context, e domain.Event) error {
	l.log.Info().
		Str("type", e.Type).
		Str("shop_id", e.ShopID).
		Str("order_id", e.OrderID).
		Fields(map[string]any{"meta": e.Meta}).
		Time("ts", e.Time).
		Msg("event")
	return nil
}
