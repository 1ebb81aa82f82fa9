package subscriptions

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	weekReminderWindow = 7 * 24 * time.Hour
	dayReminderWindow  = 24 * time.Hour
)

// Notifier delivers trial reminder emails. Fire-and-forget: a delivery
// failure is logged and never rolls back the state transition that
// triggered it.
type Notifier interface {
	SendTrialReminder(sub *Subscription, daysRemaining int) error
}

// Lifecycle drives a subscription's trial progression:
// none -> created -> week_email_sent -> day_email_sent -> ended.
type Lifecycle struct {
	repo     Repository
	notifier Notifier
	log      zerolog.Logger

	trialDuration time.Duration

	// PostTrialStatus reports the status the billing gateway assigns
	// once a trial expires without conversion. Defaults to canceled (no
	// payment method on file).
	PostTrialStatus func(sub *Subscription) Status

	// OnTrialEnded runs after a record reaches ended, e.g. to suspend
	// the team's instances. Errors are logged, not propagated.
	OnTrialEnded func(sub *Subscription) error

	// OnReactivated runs when a non-active record flips back to active,
	// e.g. to resume instances suspended when the trial lapsed. Errors
	// are logged, not propagated.
	OnReactivated func(sub *Subscription) error
}

func NewLifecycle(repo Repository, notifier Notifier, trialDays int, log zerolog.Logger) *Lifecycle {
	if trialDays <= 0 {
		trialDays = 30
	}
	return &Lifecycle{
		repo:          repo,
		notifier:      notifier,
		log:           log,
		trialDuration: time.Duration(trialDays) * 24 * time.Hour,
		PostTrialStatus: func(*Subscription) Status {
			return StatusCanceled
		},
	}
}

// StartTrial moves a fresh record from none to created, stamping the
// trial end date and marking the subscription as a trial. Only valid on
// records that never left none.
func (l *Lifecycle) StartTrial(sub *Subscription, now time.Time) error {
	if sub.TrialStatus != TrialNone {
		return ErrInvalidTransition
	}

	ends := now.Add(l.trialDuration)
	if err := l.repo.SetTrialEndsAt(sub, &ends); err != nil {
		return err
	}
	if err := l.repo.SetTrialStatus(sub, TrialCreated); err != nil {
		return err
	}
	return l.repo.SetStatus(sub, StatusTrial)
}

// Trial subscriptions are created before any Stripe checkout happens,
// so the record carries placeholder provider ids until the team
// converts. The customer placeholder stays unique per team to keep the
// customer index sane.
const trialSubscriptionPlaceholder = "trial"

func TrialCustomerID(teamID uint) string {
	return fmt.Sprintf("trial_%d", teamID)
}

// CreateTrial creates the team's subscription record and immediately
// starts the trial clock. Fails with ErrDuplicateSubscription when the
// team already engaged billing.
func (l *Lifecycle) CreateTrial(teamID uint, now time.Time) (*Subscription, error) {
	sub, err := l.repo.Create(teamID, trialSubscriptionPlaceholder, TrialCustomerID(teamID))
	if err != nil {
		return nil, err
	}
	if err := l.StartTrial(sub, now); err != nil {
		return nil, err
	}
	return sub, nil
}

// ExtendTrial pushes the trial end date forward. It never moves the
// date back and never rewinds TrialStatus: a team that already got the
// one-week reminder stays at week_email_sent even if the new end date
// is a month out.
func (l *Lifecycle) ExtendTrial(sub *Subscription, until time.Time) error {
	if sub.TrialEndsAt == nil || sub.TrialStatus == TrialEnded {
		return ErrInvalidTransition
	}
	if !until.After(*sub.TrialEndsAt) {
		return ErrInvalidTransition
	}
	return l.repo.SetTrialEndsAt(sub, &until)
}

// NextTrialStatus computes the state the sweep should move a record to
// at the given time. Pure: no side effects, deterministic in
// (record, now). Returns the current state when nothing is due.
func NextTrialStatus(sub *Subscription, now time.Time) TrialStatus {
	if sub.TrialEndsAt == nil || sub.TrialStatus == TrialEnded {
		return sub.TrialStatus
	}

	remaining := sub.TrialEndsAt.Sub(now)
	switch {
	case remaining <= 0:
		return TrialEnded
	case remaining <= dayReminderWindow && sub.TrialStatus.Before(TrialDayEmailSent):
		return TrialDayEmailSent
	case remaining <= weekReminderWindow && sub.TrialStatus.Before(TrialWeekEmailSent):
		return TrialWeekEmailSent
	}
	return sub.TrialStatus
}

// SweepResult summarizes one sweep run.
type SweepResult struct {
	Checked  int
	Advanced int
	Failed   int
}

// Sweep walks every open trial and applies whatever transition is due
// at now. Each record is handled independently; one record failing is
// counted and logged but never aborts the rest. Re-running with the
// same now is a no-op.
func (l *Lifecycle) Sweep(now time.Time) (SweepResult, error) {
	subs, err := l.repo.OpenTrials()
	if err != nil {
		return SweepResult{}, fmt.Errorf("trial sweep: %w", err)
	}

	res := SweepResult{Checked: len(subs)}
	for i := range subs {
		sub := &subs[i]
		advanced, err := l.sweepOne(sub, now)
		if err != nil {
			res.Failed++
			l.log.Error().Err(err).
				Uint("team_id", sub.TeamID).
				Str("trial_status", string(sub.TrialStatus)).
				Msg("trial sweep: record failed")
			continue
		}
		if advanced {
			res.Advanced++
		}
	}
	return res, nil
}

func (l *Lifecycle) sweepOne(sub *Subscription, now time.Time) (bool, error) {
	next := NextTrialStatus(sub, now)
	if next == sub.TrialStatus {
		return false, nil
	}

	// The transition commits first; reminders and hooks run after and
	// never undo it.
	if err := l.repo.SetTrialStatus(sub, next); err != nil {
		return false, err
	}

	switch next {
	case TrialWeekEmailSent, TrialDayEmailSent:
		l.sendReminder(sub, now)

	case TrialEnded:
		// A trial converted to paid before expiry already had its
		// status flipped to active by the provider webhook; leave it.
		if sub.Status == StatusTrial {
			if err := l.repo.SetStatus(sub, l.PostTrialStatus(sub)); err != nil {
				return true, err
			}
		}
		if l.OnTrialEnded != nil {
			if err := l.OnTrialEnded(sub); err != nil {
				l.log.Error().Err(err).
					Uint("team_id", sub.TeamID).
					Msg("trial sweep: trial-ended hook failed")
			}
		}
	}
	return true, nil
}

func (l *Lifecycle) sendReminder(sub *Subscription, now time.Time) {
	if l.notifier == nil {
		return
	}
	days := sub.TrialDaysRemaining(now)
	if err := l.notifier.SendTrialReminder(sub, days); err != nil {
		l.log.Warn().Err(err).
			Uint("team_id", sub.TeamID).
			Int("days_remaining", days).
			Msg("trial reminder delivery failed")
	}
}

// ApplyProviderStatus handles a normalized billing-provider event. The
// record is resolved via the customer id, the only identifier the
// provider is trusted on. Safe to replay: setting the same status twice
// is a no-op.
func (l *Lifecycle) ApplyProviderStatus(customerID string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("provider status %q: %w", status, ErrInvalidTransition)
	}
	sub, err := l.repo.ByCustomer(customerID)
	if err != nil {
		return fmt.Errorf("customer %q: %w", customerID, err)
	}
	return l.setStatus(sub, status)
}

// Activate flips a record to active. Used when checkout completes:
// fires OnReactivated if the record was lapsed (or still in trial) so
// anything suspended meanwhile comes back.
func (l *Lifecycle) Activate(sub *Subscription) error {
	return l.setStatus(sub, StatusActive)
}

func (l *Lifecycle) setStatus(sub *Subscription, status Status) error {
	wasActive := sub.IsActive()
	if err := l.repo.SetStatus(sub, status); err != nil {
		return err
	}
	if status == StatusActive && !wasActive && l.OnReactivated != nil {
		if err := l.OnReactivated(sub); err != nil {
			l.log.Error().Err(err).
				Uint("team_id", sub.TeamID).
				Msg("reactivation hook failed")
		}
	}
	return nil
}
