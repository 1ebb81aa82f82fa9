package subscriptions

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"flowhost/internal/domain/teams"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the only way subscription records are read or written.
// All mutations are single-field idempotent sets; writing the value a
// record already holds is a no-op.
type Repository interface {
	// Create inserts a new record with status=active, trialStatus=none
	// and no trial end date. Insert-if-absent: a team that already has
	// a subscription gets ErrDuplicateSubscription.
	Create(teamID uint, subscriptionID, customerID string) (*Subscription, error)

	// ByTeam accepts the external hashid or a numeric internal id.
	ByTeam(teamRef string) (*Subscription, error)
	ByTeamID(teamID uint) (*Subscription, error)

	// ByCustomer is the only lookup trusted for provider-originated
	// events.
	ByCustomer(customerID string) (*Subscription, error)

	SetStatus(sub *Subscription, status Status) error

	// SetTrialStatus only moves forward. Backward moves fail with
	// ErrInvalidTransition; equal values are a no-op.
	SetTrialStatus(sub *Subscription, status TrialStatus) error

	SetTrialEndsAt(sub *Subscription, endsAt *time.Time) error

	// SetProviderIdentity attaches the Stripe customer/subscription ids
	// to a record created before checkout (free trial path).
	SetProviderIdentity(sub *Subscription, customerID, subscriptionID string) error

	// OpenTrials returns every record the sweep still has to look at:
	// TrialEndsAt set and TrialStatus not yet ended.
	OpenTrials() ([]Subscription, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates the production repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(teamID uint, subscriptionID, customerID string) (*Subscription, error) {
	if teamID == 0 {
		return nil, fmt.Errorf("create subscription: missing team id")
	}
	if strings.TrimSpace(customerID) == "" {
		return nil, fmt.Errorf("create subscription: missing customer id")
	}

	sub := Subscription{
		TeamID:       teamID,
		Customer:     customerID,
		Subscription: subscriptionID,
		Status:       StatusActive,
		TrialStatus:  TrialNone,
	}

	// Insert-if-absent on the team unique index, so a racing duplicate
	// create cannot clobber the original record.
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "team_id"}},
		DoNothing: true,
	}).Create(&sub)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrDuplicateSubscription
	}
	return &sub, nil
}

func (r *gormRepository) ByTeam(teamRef string) (*Subscription, error) {
	teamID, err := teams.ParseRef(teamRef)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.ByTeamID(teamID)
}

func (r *gormRepository) ByTeamID(teamID uint) (*Subscription, error) {
	var sub Subscription
	err := r.db.Preload("Team").Where("team_id = ?", teamID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) ByCustomer(customerID string) (*Subscription, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, ErrNotFound
	}
	var sub Subscription
	err := r.db.Preload("Team").Where("customer = ?", customerID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) SetStatus(sub *Subscription, status Status) error {
	if !status.Valid() {
		return ErrInvalidTransition
	}
	if sub.Status == status {
		return nil
	}
	if err := r.db.Model(&Subscription{}).
		Where("id = ?", sub.ID).
		Update("status", status).Error; err != nil {
		return err
	}
	sub.Status = status
	return nil
}

func (r *gormRepository) SetTrialStatus(sub *Subscription, status TrialStatus) error {
	if !status.Valid() {
		return ErrInvalidTransition
	}
	if sub.TrialStatus == status {
		return nil
	}
	if status.Before(sub.TrialStatus) {
		return ErrInvalidTransition
	}

	// Compare-and-set on the current value so a racing sweep/webhook
	// cannot rewind the progression.
	res := r.db.Model(&Subscription{}).
		Where("id = ? AND trial_status = ?", sub.ID, sub.TrialStatus).
		Update("trial_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Someone advanced the record under us. All writers move
		// forward, so reloading tells us whether our write is stale.
		current, err := r.ByTeamID(sub.TeamID)
		if err != nil {
			return err
		}
		sub.TrialStatus = current.TrialStatus
		if status.Before(current.TrialStatus) || status == current.TrialStatus {
			return nil
		}
		return ErrInvalidTransition
	}
	sub.TrialStatus = status
	return nil
}

func (r *gormRepository) SetTrialEndsAt(sub *Subscription, endsAt *time.Time) error {
	if err := r.db.Model(&Subscription{}).
		Where("id = ?", sub.ID).
		Update("trial_ends_at", endsAt).Error; err != nil {
		return err
	}
	sub.TrialEndsAt = endsAt
	return nil
}

func (r *gormRepository) SetProviderIdentity(sub *Subscription, customerID, subscriptionID string) error {
	if strings.TrimSpace(customerID) == "" {
		return fmt.Errorf("set provider identity: missing customer id")
	}
	if sub.Customer == customerID && sub.Subscription == subscriptionID {
		return nil
	}
	if err := r.db.Model(&Subscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"customer":     customerID,
			"subscription": subscriptionID,
		}).Error; err != nil {
		return err
	}
	sub.Customer = customerID
	sub.Subscription = subscriptionID
	return nil
}

func (r *gormRepository) OpenTrials() ([]Subscription, error) {
	var subs []Subscription
	err := r.db.Preload("Team").
		Where("trial_ends_at IS NOT NULL AND trial_status <> ?", TrialEnded).
		Find(&subs).Error
	return subs, err
}
