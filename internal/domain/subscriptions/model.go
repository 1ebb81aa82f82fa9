package subscriptions

import (
	"time"

	"flowhost/internal/domain/teams"
)

// Subscription ties a team to its billing customer and tracks trial
// progress. Exactly one per team. Records are never deleted; a canceled
// subscription stays around as history.
type Subscription struct {
	ID uint `gorm:"primaryKey" json:"-"`

	TeamID uint        `gorm:"not null;uniqueIndex:idx_subscriptions_team_id" json:"-"`
	Team   *teams.Team `json:"team,omitempty"`

	// Customer ID from Stripe, e.g. cus_xyz123. Provider events are
	// matched to records via this field only.
	Customer string `gorm:"not null;index:idx_subscriptions_customer" json:"customer"`

	// Subscription ID from Stripe, e.g. sub_xyz123. Stored for
	// reference only; not stable across plan changes.
	Subscription string `gorm:"not null" json:"subscription"`

	Status      Status      `gorm:"type:varchar(16);not null;default:'active'" json:"status"`
	TrialStatus TrialStatus `gorm:"type:varchar(24);not null;default:'none'" json:"trial_status"`

	// nil means this was never a trial. Set together with
	// TrialStatus=created; afterwards only moved forward by an explicit
	// trial extension.
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the subscription should be treated as
// usable. Deliberately coarse: anything the provider still considers
// collectible (past_due etc.) arrives here as active.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

func (s *Subscription) IsCanceled() bool {
	return s.Status == StatusCanceled
}

// IsTrial is independent of Status: a converted trial keeps its
// TrialEndsAt as a historical marker.
func (s *Subscription) IsTrial() bool {
	return s.TrialEndsAt != nil
}

// IsTrialEnded recomputes on every call; it is never cached or written
// back. A TrialEndsAt exactly equal to now counts as ended.
func (s *Subscription) IsTrialEnded(now time.Time) bool {
	return s.IsTrial() && !s.TrialEndsAt.After(now)
}

// TrialDaysRemaining rounds up, so "6 days 1 hour" reads as 7 days.
// Zero when not a trial or already past the end.
func (s *Subscription) TrialDaysRemaining(now time.Time) int {
	if !s.IsTrial() {
		return 0
	}
	remaining := s.TrialEndsAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) != 0 {
		days++
	}
	return days
}
