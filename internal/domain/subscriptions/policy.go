package subscriptions

import "time"

// Team-level read side, consumed by upstream authorization (routing,
// instance creation, UI banners). A team without a subscription is
// simply non-billed: every check answers false rather than erroring.

func (l *Lifecycle) TeamIsActive(teamRef string) bool {
	sub, err := l.repo.ByTeam(teamRef)
	if err != nil {
		return false
	}
	return sub.IsActive()
}

func (l *Lifecycle) TeamIsTrial(teamRef string) bool {
	sub, err := l.repo.ByTeam(teamRef)
	if err != nil {
		return false
	}
	return sub.IsTrial()
}

func (l *Lifecycle) TeamTrialEnded(teamRef string, now time.Time) bool {
	sub, err := l.repo.ByTeam(teamRef)
	if err != nil {
		return false
	}
	return sub.IsTrialEnded(now)
}

// CanCreateInstance gates instance creation. Trial teams get exactly
// one instance until their trial ends; active teams are limited by
// their team type (limit <= 0 means unlimited); everyone else gets
// none.
func (l *Lifecycle) CanCreateInstance(teamRef string, running int, limit int, now time.Time) bool {
	sub, err := l.repo.ByTeam(teamRef)
	if err != nil {
		return false
	}

	if sub.IsActive() {
		return limit <= 0 || running < limit
	}
	if sub.Status == StatusTrial && !sub.IsTrialEnded(now) {
		return running < 1
	}
	return false
}
