package subscriptions

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"flowhost/internal/domain/teams"
)

// MemoryRepository keeps subscriptions in a map guarded by a mutex. It
// honors the same contract as the GORM repository, so the lifecycle and
// policy code can be tested without a database. Also handy for local
// development without billing enabled.
type MemoryRepository struct {
	mu     sync.Mutex
	byTeam map[uint]*Subscription
	nextID uint
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byTeam: make(map[uint]*Subscription)}
}

// AttachTeam associates team metadata with an existing record, standing
// in for the Team preload the GORM repository does.
func (r *MemoryRepository) AttachTeam(teamID uint, team *teams.Team) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.byTeam[teamID]; ok {
		sub.Team = team
	}
}

func (r *MemoryRepository) Create(teamID uint, subscriptionID, customerID string) (*Subscription, error) {
	if teamID == 0 {
		return nil, fmt.Errorf("create subscription: missing team id")
	}
	if strings.TrimSpace(customerID) == "" {
		return nil, fmt.Errorf("create subscription: missing customer id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byTeam[teamID]; ok {
		return nil, ErrDuplicateSubscription
	}

	r.nextID++
	now := time.Now()
	sub := &Subscription{
		ID:           r.nextID,
		TeamID:       teamID,
		Customer:     customerID,
		Subscription: subscriptionID,
		Status:       StatusActive,
		TrialStatus:  TrialNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byTeam[teamID] = sub
	return copyOf(sub), nil
}

func (r *MemoryRepository) ByTeam(teamRef string) (*Subscription, error) {
	teamID, err := teams.ParseRef(teamRef)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.ByTeamID(teamID)
}

func (r *MemoryRepository) ByTeamID(teamID uint) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.byTeam[teamID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyOf(sub), nil
}

func (r *MemoryRepository) ByCustomer(customerID string) (*Subscription, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.byTeam {
		if sub.Customer == customerID {
			return copyOf(sub), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) SetStatus(sub *Subscription, status Status) error {
	if !status.Valid() {
		return ErrInvalidTransition
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byTeam[sub.TeamID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != status {
		stored.Status = status
		stored.UpdatedAt = time.Now()
	}
	sub.Status = status
	return nil
}

func (r *MemoryRepository) SetTrialStatus(sub *Subscription, status TrialStatus) error {
	if !status.Valid() {
		return ErrInvalidTransition
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byTeam[sub.TeamID]
	if !ok {
		return ErrNotFound
	}
	if stored.TrialStatus == status {
		sub.TrialStatus = status
		return nil
	}
	if status.Before(stored.TrialStatus) {
		sub.TrialStatus = stored.TrialStatus
		return ErrInvalidTransition
	}
	stored.TrialStatus = status
	stored.UpdatedAt = time.Now()
	sub.TrialStatus = status
	return nil
}

func (r *MemoryRepository) SetTrialEndsAt(sub *Subscription, endsAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byTeam[sub.TeamID]
	if !ok {
		return ErrNotFound
	}
	if endsAt != nil {
		t := *endsAt
		stored.TrialEndsAt = &t
	} else {
		stored.TrialEndsAt = nil
	}
	stored.UpdatedAt = time.Now()
	sub.TrialEndsAt = stored.TrialEndsAt
	return nil
}

func (r *MemoryRepository) SetProviderIdentity(sub *Subscription, customerID, subscriptionID string) error {
	if strings.TrimSpace(customerID) == "" {
		return fmt.Errorf("set provider identity: missing customer id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byTeam[sub.TeamID]
	if !ok {
		return ErrNotFound
	}
	stored.Customer = customerID
	stored.Subscription = subscriptionID
	stored.UpdatedAt = time.Now()
	sub.Customer = customerID
	sub.Subscription = subscriptionID
	return nil
}

func (r *MemoryRepository) OpenTrials() ([]Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var subs []Subscription
	for _, sub := range r.byTeam {
		if sub.TrialEndsAt != nil && sub.TrialStatus != TrialEnded {
			subs = append(subs, *copyOf(sub))
		}
	}
	return subs, nil
}

func copyOf(sub *Subscription) *Subscription {
	c := *sub
	if sub.TrialEndsAt != nil {
		t := *sub.TrialEndsAt
		c.TrialEndsAt = &t
	}
	return &c
}
