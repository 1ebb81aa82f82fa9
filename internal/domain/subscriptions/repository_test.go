package subscriptions

import (
	"testing"
	"time"

	"flowhost/internal/domain/teams"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIsExactlyOncePerTeam(t *testing.T) {
	repo := NewMemoryRepository()

	sub, err := repo.Create(1, "sub_123", "cus_123")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, sub.Status)
	assert.Equal(t, TrialNone, sub.TrialStatus)
	assert.Nil(t, sub.TrialEndsAt)

	_, err = repo.Create(1, "sub_456", "cus_456")
	assert.ErrorIs(t, err, ErrDuplicateSubscription)

	// original record untouched
	again, err := repo.ByTeamID(1)
	require.NoError(t, err)
	assert.Equal(t, "cus_123", again.Customer)
	assert.Equal(t, "sub_123", again.Subscription)
}

func TestCreateRequiresCustomer(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.Create(1, "sub_123", "  ")
	assert.Error(t, err)
}

func TestByTeamAcceptsHashidAndNumericRefs(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.Create(7, "sub_123", "cus_123")
	require.NoError(t, err)

	byHash, err := repo.ByTeam(teams.EncodeID(7))
	require.NoError(t, err)
	assert.Equal(t, uint(7), byHash.TeamID)

	byNumeric, err := repo.ByTeam("7")
	require.NoError(t, err)
	assert.Equal(t, uint(7), byNumeric.TeamID)

	_, err = repo.ByTeam("not-a-team")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestByCustomer(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.Create(1, "sub_123", "cus_123")
	require.NoError(t, err)

	sub, err := repo.ByCustomer("cus_123")
	require.NoError(t, err)
	assert.Equal(t, uint(1), sub.TeamID)

	_, err = repo.ByCustomer("cus_missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.ByCustomer("")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetStatusIsIdempotent(t *testing.T) {
	repo := NewMemoryRepository()
	sub, err := repo.Create(1, "sub_123", "cus_123")
	require.NoError(t, err)

	require.NoError(t, repo.SetStatus(sub, StatusCanceled))
	require.NoError(t, repo.SetStatus(sub, StatusCanceled))

	got, err := repo.ByTeamID(1)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, got.Status)
}

func TestSetStatusRejectsUnknownValues(t *testing.T) {
	repo := NewMemoryRepository()
	sub, err := repo.Create(1, "sub_123", "cus_123")
	require.NoError(t, err)

	err = repo.SetStatus(sub, Status("past_due"))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := repo.ByTeamID(1)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
}

func TestSetTrialStatusOnlyMovesForward(t *testing.T) {
	repo := NewMemoryRepository()
	sub, err := repo.Create(1, "sub_123", "cus_123")
	require.NoError(t, err)

	require.NoError(t, repo.SetTrialStatus(sub, TrialCreated))
	require.NoError(t, repo.SetTrialStatus(sub, TrialWeekEmailSent))

	// same value twice is a no-op
	require.NoError(t, repo.SetTrialStatus(sub, TrialWeekEmailSent))

	// backward is rejected, record unchanged
	err = repo.SetTrialStatus(sub, TrialCreated)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := repo.ByTeamID(1)
	require.NoError(t, err)
	assert.Equal(t, TrialWeekEmailSent, got.TrialStatus)

	// skipping a stage forward is fine
	require.NoError(t, repo.SetTrialStatus(sub, TrialEnded))
}

func TestSetTrialEndsAt(t *testing.T) {
	repo := NewMemoryRepository()
	sub, err := repo.Create(1, "sub_123", "cus_123")
	require.NoError(t, err)

	ends := time.Now().Add(30 * 24 * time.Hour)
	require.NoError(t, repo.SetTrialEndsAt(sub, &ends))

	got, err := repo.ByTeamID(1)
	require.NoError(t, err)
	require.NotNil(t, got.TrialEndsAt)
	assert.True(t, got.TrialEndsAt.Equal(ends))
}

func TestSetProviderIdentity(t *testing.T) {
	repo := NewMemoryRepository()
	sub, err := repo.Create(3, "trial", TrialCustomerID(3))
	require.NoError(t, err)

	require.NoError(t, repo.SetProviderIdentity(sub, "cus_real", "sub_real"))

	got, err := repo.ByCustomer("cus_real")
	require.NoError(t, err)
	assert.Equal(t, uint(3), got.TeamID)
	assert.Equal(t, "sub_real", got.Subscription)

	// the placeholder customer no longer resolves
	_, err = repo.ByCustomer(TrialCustomerID(3))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenTrialsFiltersEndedAndNonTrials(t *testing.T) {
	repo := NewMemoryRepository()

	// non-trial record
	_, err := repo.Create(1, "sub_1", "cus_1")
	require.NoError(t, err)

	// live trial
	live, err := repo.Create(2, "trial", TrialCustomerID(2))
	require.NoError(t, err)
	ends := time.Now().Add(10 * 24 * time.Hour)
	require.NoError(t, repo.SetTrialEndsAt(live, &ends))
	require.NoError(t, repo.SetTrialStatus(live, TrialCreated))

	// ended trial
	done, err := repo.Create(3, "trial", TrialCustomerID(3))
	require.NoError(t, err)
	past := time.Now().Add(-24 * time.Hour)
	require.NoError(t, repo.SetTrialEndsAt(done, &past))
	require.NoError(t, repo.SetTrialStatus(done, TrialEnded))

	open, err := repo.OpenTrials()
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, uint(2), open[0].TeamID)
}
