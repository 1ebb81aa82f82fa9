package subscriptions

// Status is the subset of provider subscription states the platform
// cares about. Provider states such as past_due are collapsed into
// active before they reach this package; see internal/infra/stripe.
type Status string

const (
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
	StatusTrial    Status = "trial"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCanceled, StatusTrial:
		return true
	}
	return false
}

// TrialStatus tracks how far a team's free trial has progressed. The
// progression is strictly forward; a record never moves back, even when
// a trial is extended (extension only moves TrialEndsAt).
type TrialStatus string

const (
	TrialNone          TrialStatus = "none"
	TrialCreated       TrialStatus = "created"
	TrialWeekEmailSent TrialStatus = "week_email_sent"
	TrialDayEmailSent  TrialStatus = "day_email_sent"
	TrialEnded         TrialStatus = "ended"
)

func (t TrialStatus) Valid() bool {
	return t.ordinal() >= 0
}

// ordinal gives the position in the forward progression. -1 for
// unknown values so they never compare as reachable.
func (t TrialStatus) ordinal() int {
	switch t {
	case TrialNone:
		return 0
	case TrialCreated:
		return 1
	case TrialWeekEmailSent:
		return 2
	case TrialDayEmailSent:
		return 3
	case TrialEnded:
		return 4
	}
	return -1
}

// Before reports whether t comes strictly earlier than other in the
// trial progression.
func (t TrialStatus) Before(other TrialStatus) bool {
	return t.ordinal() < other.ordinal()
}
