package billing

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WebhookEvent records every Stripe event we accepted, keyed by the
// provider's event id. Lets the webhook handler drop replays instead of
// re-applying them.
type WebhookEvent struct {
	ID            uint   `gorm:"primaryKey"`
	StripeEventID string `gorm:"not null;uniqueIndex:idx_webhook_events_stripe_event_id"`
	Type          string `gorm:"not null;index"`
	Customer      string `gorm:"index"`
	ReceivedAt    time.Time
}

// RecordEventOnce inserts the event if its Stripe id was never seen.
// Returns false when the event was already processed.
func RecordEventOnce(db *gorm.DB, ev *WebhookEvent) (bool, error) {
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now()
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_event_id"}},
		DoNothing: true,
	}).Create(ev)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
