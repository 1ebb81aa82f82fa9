package instances

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Instance states. Suspended instances keep their data but the runtime
// is stopped, e.g. after a trial runs out.
const (
	StateRunning   = "running"
	StateSuspended = "suspended"
)

type Application struct {
	ID string `gorm:"type:uuid;primaryKey" json:"id"`

	TeamID uint   `gorm:"not null;index" json:"-"`
	Name   string `gorm:"not null" json:"name"`

	Instances []Instance `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE;" json:"instances,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Application) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

type Instance struct {
	ID string `gorm:"type:uuid;primaryKey" json:"id"`

	ApplicationID string `gorm:"type:uuid;not null;index" json:"application_id"`

	// denormalized so per-team counting and suspension stay one query
	TeamID uint `gorm:"not null;index" json:"-"`

	Name  string `gorm:"not null" json:"name"`
	State string `gorm:"type:varchar(16);not null;default:'running'" json:"state"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *Instance) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// CountForTeam counts a team's instances regardless of state; suspended
// instances still occupy the trial slot.
func CountForTeam(db *gorm.DB, teamID uint) (int64, error) {
	var n int64
	err := db.Model(&Instance{}).Where("team_id = ?", teamID).Count(&n).Error
	return n, err
}

// SuspendForTeam stops every running instance the team owns. Used when
// a trial ends without conversion.
func SuspendForTeam(db *gorm.DB, teamID uint) error {
	return db.Model(&Instance{}).
		Where("team_id = ? AND state = ?", teamID, StateRunning).
		Update("state", StateSuspended).Error
}

// ResumeForTeam brings suspended instances back, e.g. after a canceled
// team re-subscribes.
func ResumeForTeam(db *gorm.DB, teamID uint) error {
	return db.Model(&Instance{}).
		Where("team_id = ? AND state = ?", teamID, StateSuspended).
		Update("state", StateRunning).Error
}
