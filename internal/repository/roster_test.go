package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/muster/internal/model"
)

func newTestRoster(capacity int) *model.Roster {
	return &model.Roster{
		Name:     "Saturday raid",
		Capacity: capacity,
		Owner:    model.Member{UserID: "owner"},
	}
}

func createRoster(t *testing.T, repo *RosterRepository, capacity int) string {
	t.Helper()
	r := newTestRoster(capacity)
	require.NoError(t, repo.Create(context.Background(), r))
	require.NotEmpty(t, r.ID)
	return r.ID
}

// ============================================================================
// Create Tests
// ============================================================================

func TestCreate_AssignsIDAndCreatedOn(t *testing.T) {
	t.Parallel()

	repo := NewRosterRepository()
	r := newTestRoster(3)

	require.NoError(t, repo.Create(context.Background(), r))

	assert.NotEmpty(t, r.ID)
	assert.False(t, r.CreatedOn.IsZero())

	got, err := repo.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Saturday raid", got.Name)
	assert.Equal(t, 3, got.Capacity)
}

func TestCreate_UniqueIDs(t *testing.T) {
	t.Parallel()

	repo := NewRosterRepository()
	a := createRoster(t, repo, 1)
	b := createRoster(t, repo, 1)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, repo.Count())
}

func TestCreate_NonPositiveCapacity_ReturnsErrInvalidCapacity(t *testing.T) {
	t.Parallel()

	for _, capacity := range []int{0, -1} {
		repo := NewRosterRepository()
		err := repo.Create(context.Background(), newTestRoster(capacity))
		assert.ErrorIs(t, err, ErrInvalidCapacity)
		assert.Equal(t, 0, repo.Count())
	}
}

func TestCreate_CallerMutationDoesNotLeak(t *testing.T) {
	t.Parallel()

	repo := NewRosterRepository()
	r := newTestRoster(2)
	r.Participants = []model.Member{{UserID: "a"}}
	require.NoError(t, repo.Create(context.Background(), r))

	r.Participants[0].UserID = "mutated"

	got, err := repo.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Participants[0].UserID)
}

// ============================================================================
// WithRoster Tests
// ============================================================================

func TestWithRoster_CommitsOnSuccess(t *testing.T) {
	t.Parallel()

	repo := NewRosterRepository()
	id := createRoster(t, repo, 2)

	err := repo.WithRoster(context.Background(), id, func(r *model.Roster) error {
		r.Participants = append(r.Participants, model.Member{UserID: "a"})
		return nil
	})
	require.NoError(t, err)

	got, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, got.Participants, 1)
	assert.Equal(t, "a", got.Participants[0].UserID)
}

func TestWithRoster_DiscardsOnError(t *testing.T) {
	t.Parallel()

	repo := NewRosterRepository()
	id := createRoster(t, repo, 2)
	boom := errors.New("boom")

	err := repo.WithRoster(context.Background(), id, func(r *model.Roster) error {
		r.Participants = append(r.Participants, model.Member{UserID: "a"})
		r.Closed = true
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, got.Participants)
	assert.False(t, got.Closed)
}

func TestWithRoster_DiscardsInvariantViolation(t *testing.T) {
	t.Parallel()

	repo := NewRosterRepository()
	id := createRoster(t, repo, 1)

	err := repo.WithRoster(context.Background(), id, func(r *model.Roster) error {
		r.Participants = append(r.Participants, model.Member{UserID: "a"}, model.Member{UserID: "b"})
		return nil
	})
	assert.ErrorIs(t, err, ErrInvariantViolation)

	got, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, got.Participants)
}

func TestWithRoster_BumpsVersionOnCommitOnly(t *testing.T) {
	t.Parallel()

	repo := NewRosterRepository()
	r := newTestRoster(2)
	require.NoError(t, repo.Create(context.Background(), r))
	assert.Equal(t, uint64(1), r.Version)

	require.NoError(t, repo.WithRoster(context.Background(), r.ID, func(r *model.Roster) error {
		r.Participants = append(r.Participants, model.Member{UserID: "a"})
		return nil
	}))
	err := repo.WithRoster(context.Background(), r.ID, func(r *model.Roster) error {
		r.Version = 99
		return errors.New("boom")
	})
	require.Error(t, err)

	got, err := repo.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.Version)
}

func TestWithRoster_UnknownID_ReturnsErrNotFound(t *testing.T) {
	t.Parallel()

	repo := NewRosterRepository()
	called := false

	err := repo.WithRoster(context.Background(), "missing", func(r *model.Roster) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, called)
}

func TestWithRoster_PanicReleasesLock(t *testing.T) {
	t.Parallel()

	repo := NewRosterRepository()
	id := createRoster(t, repo, 1)

	assert.Panics(t, func() {
		_ = repo.WithRoster(context.Background(), id, func(r *model.Roster) error {
			panic("callback failed")
		})
	})

	done := make(chan error, 1)
	go func() {
		done <- repo.WithRoster(context.Background(), id, func(r *model.Roster) error { return nil })
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("roster lock was not released after panic")
	}
}

func TestWithRoster_ConcurrentMutationsAreSerialized(t *testing.T) {
	t.Parallel()

	const workers = 50
	repo := NewRosterRepository()
	id := createRoster(t, repo, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.WithRoster(context.Background(), id, func(r *model.Roster) error {
				r.Participants = append(r.Participants, model.Member{UserID: fmt.Sprintf("user-%d", i)})
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, got.Participants, workers)
	assert.Empty(t, got.CheckInvariants())
}

func TestWithRoster_OtherRosterNotBlocked(t *testing.T) {
	t.Parallel()

	repo := NewRosterRepository()
	slow := createRoster(t, repo, 1)
	fast := createRoster(t, repo, 1)

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = repo.WithRoster(context.Background(), slow, func(r *model.Roster) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	defer close(release)

	done := make(chan error, 1)
	go func() {
		done <- repo.WithRoster(context.Background(), fast, func(r *model.Roster) error { return nil })
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("mutation of an unrelated roster was blocked")
	}
}

// ============================================================================
// Get / List Tests
// ============================================================================

func TestGet_UnknownID_ReturnsErrNotFound(t *testing.T) {
	t.Parallel()

	repo := NewRosterRepository()
	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGet_ReturnsDetachedCopy(t *testing.T) {
	t.Parallel()

	repo := NewRosterRepository()
	id := createRoster(t, repo, 2)
	require.NoError(t, repo.WithRoster(context.Background(), id, func(r *model.Roster) error {
		r.Participants = append(r.Participants, model.Member{UserID: "a"})
		return nil
	}))

	got, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	got.Participants[0].UserID = "mutated"
	got.Closed = true

	again, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "a", again.Participants[0].UserID)
	assert.False(t, again.Closed)
}

func TestList_SortedByCreation(t *testing.T) {
	t.Parallel()

	repo := NewRosterRepository()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first := createRoster(t, repo, 1)
	second := createRoster(t, repo, 1)
	third := createRoster(t, repo, 1)

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{first, second, third}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestList_Empty(t *testing.T) {
	t.Parallel()

	list, err := NewRosterRepository().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

// ============================================================================
// Remove Tests
// ============================================================================

func TestRemove_DeletesRoster(t *testing.T) {
	t.Parallel()

	repo := NewRosterRepository()
	id := createRoster(t, repo, 1)

	require.NoError(t, repo.Remove(context.Background(), id))

	_, err := repo.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, repo.Count())
}

func TestRemove_UnknownID_IsNoop(t *testing.T) {
	t.Parallel()

	repo := NewRosterRepository()
	createRoster(t, repo, 1)

	assert.NoError(t, repo.Remove(context.Background(), "missing"))
	assert.Equal(t, 1, repo.Count())
}

func TestRemove_RacingWithRoster_ObservesNotFound(t *testing.T) {
	t.Parallel()

	repo := NewRosterRepository()
	id := createRoster(t, repo, 1)

	// Hold the roster lock, start Remove, then queue a second mutation that
	// already looked the entry up.
	entered := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- repo.WithRoster(context.Background(), id, func(r *model.Roster) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	entry := repo.lookup(id)
	require.NotNil(t, entry)

	removed := make(chan struct{})
	go func() {
		_ = repo.Remove(context.Background(), id)
		close(removed)
	}()

	// Remove drops the map entry right away; wait for that before releasing.
	require.Eventually(t, func() bool { return repo.Count() == 0 }, 2*time.Second, time.Millisecond)
	close(release)
	require.NoError(t, <-firstDone)
	<-removed

	entry.mu.Lock()
	assert.True(t, entry.removed)
	entry.mu.Unlock()

	err := repo.WithRoster(context.Background(), id, func(r *model.Roster) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}
