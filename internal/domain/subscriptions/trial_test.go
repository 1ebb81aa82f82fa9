package subscriptions

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reminderCall struct {
	teamID uint
	days   int
}

type recordingNotifier struct {
	calls []reminderCall
	err   error
}

func (n *recordingNotifier) SendTrialReminder(sub *Subscription, daysRemaining int) error {
	n.calls = append(n.calls, reminderCall{teamID: sub.TeamID, days: daysRemaining})
	return n.err
}

func newTestLifecycle(repo Repository, notifier Notifier) *Lifecycle {
	return NewLifecycle(repo, notifier, 30, zerolog.Nop())
}

func TestStartTrial(t *testing.T) {
	repo := NewMemoryRepository()
	lc := newTestLifecycle(repo, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sub, err := lc.CreateTrial(1, now)
	require.NoError(t, err)

	assert.Equal(t, StatusTrial, sub.Status)
	assert.Equal(t, TrialCreated, sub.TrialStatus)
	require.NotNil(t, sub.TrialEndsAt)
	assert.True(t, sub.TrialEndsAt.Equal(now.Add(30*24*time.Hour)))
}

func TestStartTrialOnlyOnce(t *testing.T) {
	repo := NewMemoryRepository()
	lc := newTestLifecycle(repo, nil)
	now := time.Now()

	_, err := lc.CreateTrial(1, now)
	require.NoError(t, err)

	_, err = lc.CreateTrial(1, now)
	assert.ErrorIs(t, err, ErrDuplicateSubscription)
}

func TestStartTrialRejectedAfterLeavingNone(t *testing.T) {
	repo := NewMemoryRepository()
	lc := newTestLifecycle(repo, nil)

	sub, err := repo.Create(1, "sub_123", "cus_123")
	require.NoError(t, err)
	require.NoError(t, repo.SetTrialStatus(sub, TrialCreated))

	err = lc.StartTrial(sub, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestNextTrialStatusTable(t *testing.T) {
	ends := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		from TrialStatus
		now  time.Time
		want TrialStatus
	}{
		{name: "nothing due yet", from: TrialCreated, now: ends.Add(-20 * 24 * time.Hour), want: TrialCreated},
		{name: "week reminder due", from: TrialCreated, now: ends.Add(-7 * 24 * time.Hour), want: TrialWeekEmailSent},
		{name: "week reminder already sent", from: TrialWeekEmailSent, now: ends.Add(-5 * 24 * time.Hour), want: TrialWeekEmailSent},
		{name: "day reminder due", from: TrialWeekEmailSent, now: ends.Add(-12 * time.Hour), want: TrialDayEmailSent},
		{name: "late sweep skips to day reminder", from: TrialCreated, now: ends.Add(-12 * time.Hour), want: TrialDayEmailSent},
		{name: "ended exactly at boundary", from: TrialDayEmailSent, now: ends, want: TrialEnded},
		{name: "ended from created", from: TrialCreated, now: ends.Add(time.Hour), want: TrialEnded},
		{name: "ended from week reminder", from: TrialWeekEmailSent, now: ends.Add(time.Hour), want: TrialEnded},
		{name: "already ended stays ended", from: TrialEnded, now: ends.Add(48 * time.Hour), want: TrialEnded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ends
			sub := Subscription{Status: StatusTrial, TrialStatus: tt.from, TrialEndsAt: &e}
			assert.Equal(t, tt.want, NextTrialStatus(&sub, tt.now))
		})
	}
}

func TestNextTrialStatusWithoutEndDate(t *testing.T) {
	sub := Subscription{Status: StatusActive, TrialStatus: TrialNone}
	assert.Equal(t, TrialNone, NextTrialStatus(&sub, time.Now()))
}

func TestSweepFullProgression(t *testing.T) {
	repo := NewMemoryRepository()
	notifier := &recordingNotifier{}
	lc := newTestLifecycle(repo, notifier)

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err := lc.CreateTrial(1, start)
	require.NoError(t, err)
	ends := start.Add(30 * 24 * time.Hour)

	// mid-trial: nothing happens
	res, err := lc.Sweep(start.Add(10 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Checked: 1}, res)

	// one week out: week reminder
	res, err = lc.Sweep(ends.Add(-6 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Advanced)
	sub, _ := repo.ByTeamID(1)
	assert.Equal(t, TrialWeekEmailSent, sub.TrialStatus)
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, reminderCall{teamID: 1, days: 6}, notifier.calls[0])

	// re-running at the same time is a no-op
	res, err = lc.Sweep(ends.Add(-6 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Advanced)
	assert.Len(t, notifier.calls, 1)

	// one day out: final reminder
	_, err = lc.Sweep(ends.Add(-12 * time.Hour))
	require.NoError(t, err)
	sub, _ = repo.ByTeamID(1)
	assert.Equal(t, TrialDayEmailSent, sub.TrialStatus)
	require.Len(t, notifier.calls, 2)
	assert.Equal(t, reminderCall{teamID: 1, days: 1}, notifier.calls[1])

	// past the end: ended, status canceled (no payment method)
	_, err = lc.Sweep(ends.Add(time.Hour))
	require.NoError(t, err)
	sub, _ = repo.ByTeamID(1)
	assert.Equal(t, TrialEnded, sub.TrialStatus)
	assert.Equal(t, StatusCanceled, sub.Status)
	assert.Len(t, notifier.calls, 2)

	// ended records drop out of the sweep entirely
	res, err = lc.Sweep(ends.Add(48 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, res)
}

func TestSweepMonotonicUnderRepeatedRuns(t *testing.T) {
	repo := NewMemoryRepository()
	lc := newTestLifecycle(repo, &recordingNotifier{})

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := lc.CreateTrial(1, start)
	require.NoError(t, err)
	ends := start.Add(30 * 24 * time.Hour)

	times := []time.Time{
		start,
		start.Add(24 * time.Hour),
		ends.Add(-6 * 24 * time.Hour),
		ends.Add(-6 * 24 * time.Hour), // repeat
		ends.Add(-time.Hour),
		ends.Add(time.Minute),
		ends.Add(time.Minute), // repeat
		ends.Add(90 * 24 * time.Hour),
	}

	last := TrialNone
	for _, now := range times {
		_, err := lc.Sweep(now)
		require.NoError(t, err)
		sub, err := repo.ByTeamID(1)
		require.NoError(t, err)
		assert.False(t, sub.TrialStatus.Before(last),
			"trialStatus went backward: %q after %q", sub.TrialStatus, last)
		last = sub.TrialStatus
	}
	assert.Equal(t, TrialEnded, last)
}

func TestSweepLeavesConvertedTrialsActive(t *testing.T) {
	repo := NewMemoryRepository()
	lc := newTestLifecycle(repo, &recordingNotifier{})

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	sub, err := lc.CreateTrial(1, start)
	require.NoError(t, err)
	ends := start.Add(30 * 24 * time.Hour)

	// team adds a payment method mid-trial: webhook flips the record
	require.NoError(t, repo.SetProviderIdentity(sub, "cus_paid", "sub_paid"))
	require.NoError(t, repo.SetStatus(sub, StatusActive))

	_, err = lc.Sweep(ends.Add(time.Hour))
	require.NoError(t, err)

	got, _ := repo.ByTeamID(1)
	assert.Equal(t, StatusActive, got.Status, "sweep must not cancel a converted trial")
	assert.Equal(t, TrialEnded, got.TrialStatus, "trial marker still advances")
}

func TestSweepNotifierFailureDoesNotBlockTransition(t *testing.T) {
	repo := NewMemoryRepository()
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	lc := newTestLifecycle(repo, notifier)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := lc.CreateTrial(1, start)
	require.NoError(t, err)
	ends := start.Add(30 * 24 * time.Hour)

	res, err := lc.Sweep(ends.Add(-3 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Advanced)
	assert.Equal(t, 0, res.Failed)

	sub, _ := repo.ByTeamID(1)
	assert.Equal(t, TrialWeekEmailSent, sub.TrialStatus)
}

type flakyRepo struct {
	*MemoryRepository
	failTeam uint
}

func (r *flakyRepo) SetTrialStatus(sub *Subscription, status TrialStatus) error {
	if sub.TeamID == r.failTeam {
		return errors.New("storage hiccup")
	}
	return r.MemoryRepository.SetTrialStatus(sub, status)
}

func TestSweepIsolatesPerRecordFailures(t *testing.T) {
	mem := NewMemoryRepository()

	// both trials are set up against the plain memory repo; the flaky
	// wrapper only breaks writes during the sweep
	setup := newTestLifecycle(mem, &recordingNotifier{})
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := setup.CreateTrial(1, start)
	require.NoError(t, err)
	_, err = setup.CreateTrial(2, start)
	require.NoError(t, err)

	repo := &flakyRepo{MemoryRepository: mem, failTeam: 1}
	lc := newTestLifecycle(repo, &recordingNotifier{})

	ends := start.Add(30 * 24 * time.Hour)
	res, err := lc.Sweep(ends.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Checked)
	assert.Equal(t, 1, res.Advanced)
	assert.Equal(t, 1, res.Failed)

	healthy, _ := mem.ByTeamID(2)
	assert.Equal(t, TrialEnded, healthy.TrialStatus)
}

func TestApplyProviderStatus(t *testing.T) {
	repo := NewMemoryRepository()
	lc := newTestLifecycle(repo, nil)

	sub, err := repo.Create(1, "sub_123", "cus_123")
	require.NoError(t, err)
	require.Equal(t, StatusActive, sub.Status)

	require.NoError(t, lc.ApplyProviderStatus("cus_123", StatusCanceled))
	got, _ := repo.ByTeamID(1)
	assert.Equal(t, StatusCanceled, got.Status)

	// replaying the same event is a no-op
	require.NoError(t, lc.ApplyProviderStatus("cus_123", StatusCanceled))
	got, _ = repo.ByTeamID(1)
	assert.Equal(t, StatusCanceled, got.Status)
}

func TestLapsedTrialReactivatesOnConversion(t *testing.T) {
	repo := NewMemoryRepository()
	lc := newTestLifecycle(repo, &recordingNotifier{})

	var suspended, resumed []uint
	lc.OnTrialEnded = func(sub *Subscription) error {
		suspended = append(suspended, sub.TeamID)
		return nil
	}
	lc.OnReactivated = func(sub *Subscription) error {
		resumed = append(resumed, sub.TeamID)
		return nil
	}

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := lc.CreateTrial(1, start)
	require.NoError(t, err)
	ends := start.Add(30 * 24 * time.Hour)

	// trial lapses: canceled, instances suspended
	_, err = lc.Sweep(ends.Add(time.Hour))
	require.NoError(t, err)
	got, _ := repo.ByTeamID(1)
	require.Equal(t, StatusCanceled, got.Status)
	require.Equal(t, []uint{1}, suspended)
	assert.Empty(t, resumed)

	// team completes checkout afterwards: provider event flips it back
	require.NoError(t, lc.ApplyProviderStatus(TrialCustomerID(1), StatusActive))
	got, _ = repo.ByTeamID(1)
	assert.Equal(t, StatusActive, got.Status)
	assert.Equal(t, []uint{1}, resumed)

	// replaying the event does not resume twice
	require.NoError(t, lc.ApplyProviderStatus(TrialCustomerID(1), StatusActive))
	assert.Equal(t, []uint{1}, resumed)
}

func TestActivateFiresReactivationOnce(t *testing.T) {
	repo := NewMemoryRepository()
	lc := newTestLifecycle(repo, nil)

	var resumed int
	lc.OnReactivated = func(*Subscription) error {
		resumed++
		return nil
	}

	sub, err := repo.Create(1, "sub_1", "cus_1")
	require.NoError(t, err)
	require.NoError(t, repo.SetStatus(sub, StatusCanceled))

	require.NoError(t, lc.Activate(sub))
	assert.Equal(t, StatusActive, sub.Status)
	assert.Equal(t, 1, resumed)

	// already active: no hook
	require.NoError(t, lc.Activate(sub))
	assert.Equal(t, 1, resumed)
}

func TestApplyProviderStatusUnknownCustomer(t *testing.T) {
	repo := NewMemoryRepository()
	lc := newTestLifecycle(repo, nil)

	err := lc.ApplyProviderStatus("cus_missing", StatusCanceled)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyProviderStatusRejectsUnknownStatus(t *testing.T) {
	repo := NewMemoryRepository()
	lc := newTestLifecycle(repo, nil)

	_, err := repo.Create(1, "sub_123", "cus_123")
	require.NoError(t, err)

	err = lc.ApplyProviderStatus("cus_123", Status("paused"))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, _ := repo.ByTeamID(1)
	assert.Equal(t, StatusActive, got.Status)
}

func TestExtendTrialOnlyMovesForward(t *testing.T) {
	repo := NewMemoryRepository()
	lc := newTestLifecycle(repo, &recordingNotifier{})

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	sub, err := lc.CreateTrial(1, start)
	require.NoError(t, err)
	ends := *sub.TrialEndsAt

	// move to week_email_sent first
	_, err = lc.Sweep(ends.Add(-3 * 24 * time.Hour))
	require.NoError(t, err)

	// backward extension rejected
	err = lc.ExtendTrial(sub, ends.Add(-24*time.Hour))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// forward extension moves the date but not the status
	newEnd := ends.Add(14 * 24 * time.Hour)
	require.NoError(t, lc.ExtendTrial(sub, newEnd))

	got, _ := repo.ByTeamID(1)
	require.NotNil(t, got.TrialEndsAt)
	assert.True(t, got.TrialEndsAt.Equal(newEnd))
	assert.Equal(t, TrialWeekEmailSent, got.TrialStatus)
}

func TestTeamPolicyHelpers(t *testing.T) {
	repo := NewMemoryRepository()
	lc := newTestLifecycle(repo, nil)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// team 1: active paid subscription
	_, err := repo.Create(1, "sub_1", "cus_1")
	require.NoError(t, err)

	// team 2: trial ended yesterday
	sub2, err := lc.CreateTrial(2, now.Add(-31*24*time.Hour))
	require.NoError(t, err)
	_ = sub2

	assert.True(t, lc.TeamIsActive("1"))
	assert.False(t, lc.TeamIsTrial("1"))

	assert.False(t, lc.TeamIsActive("2"))
	assert.True(t, lc.TeamIsTrial("2"))
	assert.True(t, lc.TeamTrialEnded("2", now))

	// unknown team answers false everywhere, never errors
	assert.False(t, lc.TeamIsActive("999"))
	assert.False(t, lc.TeamIsTrial("999"))
	assert.False(t, lc.TeamTrialEnded("999", now))
}

func TestCanCreateInstance(t *testing.T) {
	repo := NewMemoryRepository()
	lc := newTestLifecycle(repo, nil)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// team 1: live trial
	_, err := lc.CreateTrial(1, now.Add(-24*time.Hour))
	require.NoError(t, err)

	// team 2: active paid
	_, err = repo.Create(2, "sub_2", "cus_2")
	require.NoError(t, err)

	// team 3: trial ended
	_, err = lc.CreateTrial(3, now.Add(-60*24*time.Hour))
	require.NoError(t, err)

	// trial teams get exactly one instance
	assert.True(t, lc.CanCreateInstance("1", 0, 0, now))
	assert.False(t, lc.CanCreateInstance("1", 1, 0, now))

	// active teams follow the team type limit; 0 means unlimited
	assert.True(t, lc.CanCreateInstance("2", 10, 0, now))
	assert.True(t, lc.CanCreateInstance("2", 1, 2, now))
	assert.False(t, lc.CanCreateInstance("2", 2, 2, now))

	// lapsed trial gets nothing
	assert.False(t, lc.CanCreateInstance("3", 0, 0, now))

	// no subscription at all gets nothing
	assert.False(t, lc.CanCreateInstance("42", 0, 0, now))
}
