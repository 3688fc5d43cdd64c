package notify

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/shop-checkout/internal/money"
)

// LogNotifier writes events to the context logger. It is used when no queue
// is configured.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(ctx context.Context, e Event) error {
	zctx.From(ctx).Info("Notification",
		zap.String("kind", string(e.Kind)),
		zap.Stringer("order_id", e.OrderID),
		zap.Int64("user_id", e.UserID),
		zap.String("status", string(e.Status)),
		zap.String("total_amount", money.Format(e.Total)),
		zap.String("title", e.Title),
	)
	return nil
}
