package teams

import (
	"time"
)

// Team is the billable unit. It owns applications and instances and may
// have at most one subscription attached. A team can exist without any
// subscription (billing not yet enabled).
type Team struct {
	ID   uint   `gorm:"primaryKey" json:"-"`
	Name string `gorm:"not null" json:"name"`
	Slug string `gorm:"not null;uniqueIndex:idx_teams_slug" json:"slug"`

	// billing notifications go here (trial reminders etc.)
	ContactEmail string `gorm:"not null" json:"contact_email"`

	OwnerID uint `gorm:"not null;index" json:"-"`

	TeamTypeID *uint `gorm:"index" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HashID is the external-facing opaque identifier used in URLs and API
// payloads. Internal numeric ids never leave the service.
func (t *Team) HashID() string {
	return EncodeID(t.ID)
}
