package service

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
	"github.com/forgo/muster/internal/repository"
)

// ============================================================================
// Test Doubles
// ============================================================================

type recordingSink struct {
	mu        sync.Mutex
	snapshots []*model.RosterView
	removed   []string
}

func (s *recordingSink) PublishSnapshot(view *model.RosterView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, view)
}

func (s *recordingSink) PublishRemoved(rosterID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, rosterID)
}

func (s *recordingSink) last() *model.RosterView {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snapshots) == 0 {
		return nil
	}
	return s.snapshots[len(s.snapshots)-1]
}

type mockNotifier struct {
	notifyFunc func(ctx context.Context, p model.Promotion) error
}

func (m *mockNotifier) NotifyPromoted(ctx context.Context, p model.Promotion) error {
	if m.notifyFunc != nil {
		return m.notifyFunc(ctx, p)
	}
	return nil
}

// mockStore wraps the real repository so single methods can be overridden
type mockStore struct {
	*repository.RosterRepository
	listFunc   func(ctx context.Context) ([]*model.Roster, error)
	removeFunc func(ctx context.Context, id string) error
}

func (m *mockStore) List(ctx context.Context) ([]*model.Roster, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return m.RosterRepository.List(ctx)
}

func (m *mockStore) Remove(ctx context.Context, id string) error {
	if m.removeFunc != nil {
		return m.removeFunc(ctx, id)
	}
	return m.RosterRepository.Remove(ctx, id)
}

type serviceFixture struct {
	svc      *RosterService
	store    *repository.RosterRepository
	sink     *recordingSink
	promoted *[]model.Promotion
	now      *time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	store := repository.NewRosterRepository()
	sink := &recordingSink{}
	var (
		mu       sync.Mutex
		promoted []model.Promotion
	)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	svc := NewRosterService(RosterServiceConfig{
		Store: store,
		Sink:  sink,
		Notifier: &mockNotifier{notifyFunc: func(_ context.Context, p model.Promotion) error {
			mu.Lock()
			defer mu.Unlock()
			promoted = append(promoted, p)
			return nil
		}},
		Now: func() time.Time { return now },
	})

	return &serviceFixture{svc: svc, store: store, sink: sink, promoted: &promoted, now: &now}
}

func (f *serviceFixture) create(t *testing.T, capacity int) *model.RosterView {
	t.Helper()
	view, err := f.svc.CreateRoster(context.Background(), member("owner"), &model.CreateRosterRequest{
		Name:     "Training",
		Date:     "23/11/2025",
		Time:     "14:00",
		Capacity: capacity,
	})
	require.NoError(t, err)
	return view
}

// ============================================================================
// CreateRoster Tests
// ============================================================================

func TestCreateRoster_Success(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	view := f.create(t, 10)

	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "Training", view.Name)
	assert.Equal(t, 10, view.Capacity)
	assert.Equal(t, "owner", view.Owner.UserID)
	assert.Equal(t, model.RosterStatusOpen, view.Status)
	assert.Empty(t, view.Participants)
	assert.NotNil(t, view.Participants)

	require.NotNil(t, f.sink.last())
	assert.Equal(t, view.ID, f.sink.last().ID)
}

func TestCreateRoster_InvalidCapacity(t *testing.T) {
	t.Parallel()

	for _, capacity := range []int{0, -5} {
		f := newServiceFixture(t)
		_, err := f.svc.CreateRoster(context.Background(), member("owner"), &model.CreateRosterRequest{
			Name:     "Training",
			Capacity: capacity,
		})
		assert.ErrorIs(t, err, ErrInvalidCapacity)
		assert.Equal(t, 0, f.store.Count())
	}
}

func TestCreateRoster_ValidationError(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	_, err := f.svc.CreateRoster(context.Background(), member("owner"), &model.CreateRosterRequest{
		Name:     "   ",
		Capacity: 3,
	})

	require.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "name", verr.Fields[0].Field)
}

// ============================================================================
// Apply Tests
// ============================================================================

func TestApply_UnknownRoster(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	_, err := f.svc.Join(context.Background(), "missing", member("a"))

	assert.ErrorIs(t, err, ErrRosterNotFound)
}

func TestApply_JoinPublishesSnapshot(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	view := f.create(t, 2)

	result, err := f.svc.Join(context.Background(), view.ID, member("a"))
	require.NoError(t, err)

	assert.Equal(t, model.ActionJoin, result.Action)
	assert.Equal(t, model.OutcomeJoined, result.Outcome)
	assert.Nil(t, result.Promoted)
	assert.Equal(t, []string{"a"}, userIDs(result.Roster.Participants))
	assert.Equal(t, model.RosterStatusOpen, result.Roster.Status)

	last := f.sink.last()
	require.NotNil(t, last)
	assert.Equal(t, []string{"a"}, userIDs(last.Participants))
}

// gatedSink holds back the first snapshot it sees until release is closed
type gatedSink struct {
	next    SnapshotSink
	once    sync.Once
	held    chan struct{}
	release chan struct{}
}

func (s *gatedSink) PublishSnapshot(view *model.RosterView) {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.held)
		<-s.release
	}
	s.next.PublishSnapshot(view)
}

func (s *gatedSink) PublishRemoved(rosterID string) {
	s.next.PublishRemoved(rosterID)
}

func TestApply_LateSnapshotDoesNotOverwriteNewer(t *testing.T) {
	t.Parallel()

	store := repository.NewRosterRepository()
	owner := member("owner")
	roster := &model.Roster{Name: "Training", Capacity: 3, Owner: owner}
	require.NoError(t, store.Create(context.Background(), roster))

	hub := NewRosterHub()
	defer hub.Close()
	sub := hub.Subscribe(roster.ID, "watcher")

	sink := &gatedSink{next: hub, held: make(chan struct{}), release: make(chan struct{})}
	svc := NewRosterService(RosterServiceConfig{Store: store, Sink: sink})

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.Join(context.Background(), roster.ID, member("a"))
		firstDone <- err
	}()
	<-sink.held

	// The second join commits and publishes while the first snapshot is held
	_, err := svc.Join(context.Background(), roster.ID, member("b"))
	require.NoError(t, err)

	close(sink.release)
	require.NoError(t, <-firstDone)

	latest := receive(t, sub).Data.(*model.RosterView)
	assert.Equal(t, []string{"a", "b"}, userIDs(latest.Participants))
	assert.Empty(t, sub.Events, "older snapshot reached subscribers")

	stored, err := store.Get(context.Background(), roster.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Version, hub.LastVersion(roster.ID))
}

func TestApply_RejectionDoesNotPublish(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	view := f.create(t, 2)
	_, err := f.svc.Join(context.Background(), view.ID, member("a"))
	require.NoError(t, err)
	published := len(f.sink.snapshots)

	_, err = f.svc.Join(context.Background(), view.ID, member("a"))
	assert.ErrorIs(t, err, ErrAlreadyJoined)
	assert.Len(t, f.sink.snapshots, published)
}

func TestApply_LeavePromotesAndNotifies(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	view := f.create(t, 1)
	ctx := context.Background()

	_, err := f.svc.Join(ctx, view.ID, member("a"))
	require.NoError(t, err)
	result, err := f.svc.Join(ctx, view.ID, member("b"))
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeWaitlisted, result.Outcome)

	result, err = f.svc.Leave(ctx, view.ID, member("a"))
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeLeft, result.Outcome)
	require.NotNil(t, result.Promoted)
	assert.Equal(t, "b", result.Promoted.UserID)
	assert.Equal(t, []string{"b"}, userIDs(result.Roster.Participants))
	assert.Empty(t, result.Roster.Waitlist)

	require.Len(t, *f.promoted, 1)
	p := (*f.promoted)[0]
	assert.Equal(t, view.ID, p.RosterID)
	assert.Equal(t, "Training", p.RosterName)
	assert.Equal(t, "b", p.Member.UserID)
}

func TestApply_NotifierRunsOutsideLock(t *testing.T) {
	t.Parallel()

	store := repository.NewRosterRepository()
	var svc *RosterService
	var nested error
	svc = NewRosterService(RosterServiceConfig{
		Store: store,
		Notifier: &mockNotifier{notifyFunc: func(ctx context.Context, p model.Promotion) error {
			// Would deadlock if the roster lock were still held
			_, nested = svc.GetRoster(ctx, p.RosterID)
			return nil
		}},
	})

	ctx := context.Background()
	view, err := svc.CreateRoster(ctx, member("owner"), &model.CreateRosterRequest{Name: "Run", Capacity: 1})
	require.NoError(t, err)
	_, err = svc.Join(ctx, view.ID, member("a"))
	require.NoError(t, err)
	_, err = svc.Join(ctx, view.ID, member("b"))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err = svc.Leave(ctx, view.ID, member("a"))
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was invoked while the roster lock was held")
	}
	require.NoError(t, err)
	assert.NoError(t, nested)
}

func TestApply_NotifierErrorDoesNotFailAction(t *testing.T) {
	t.Parallel()

	store := repository.NewRosterRepository()
	svc := NewRosterService(RosterServiceConfig{
		Store: store,
		Notifier: &mockNotifier{notifyFunc: func(context.Context, model.Promotion) error {
			return errors.New("smtp down")
		}},
	})

	ctx := context.Background()
	view, err := svc.CreateRoster(ctx, member("owner"), &model.CreateRosterRequest{Name: "Run", Capacity: 1})
	require.NoError(t, err)
	_, _ = svc.Join(ctx, view.ID, member("a"))
	_, _ = svc.Join(ctx, view.ID, member("b"))

	result, err := svc.Leave(ctx, view.ID, member("a"))
	require.NoError(t, err)
	require.NotNil(t, result.Promoted)
}

func TestApply_CloseFreezesRoster(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	view := f.create(t, 2)
	ctx := context.Background()
	_, err := f.svc.Join(ctx, view.ID, member("a"))
	require.NoError(t, err)

	_, err = f.svc.Close(ctx, view.ID, member("a"))
	assert.ErrorIs(t, err, ErrNotOwner)

	result, err := f.svc.Close(ctx, view.ID, member("owner"))
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeClosed, result.Outcome)
	assert.Equal(t, model.RosterStatusClosed, result.Roster.Status)
	assert.True(t, result.Roster.Closed)
	require.NotNil(t, result.Roster.ClosedOn)

	for _, fn := range []func(context.Context, string, model.Member) (*model.ActionResult, error){
		f.svc.Join, f.svc.Leave, f.svc.Close,
	} {
		_, err := fn(ctx, view.ID, member("owner"))
		assert.ErrorIs(t, err, ErrRosterClosed)
	}

	got, err := f.svc.GetRoster(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, userIDs(got.Participants))
}

func TestApply_ConcurrentJoins(t *testing.T) {
	t.Parallel()

	const (
		capacity = 5
		joiners  = 40
	)
	f := newServiceFixture(t)
	view := f.create(t, capacity)

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		joined     int
		waitlisted int
	)
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := f.svc.Join(context.Background(), view.ID, member(fmt.Sprintf("u%02d", i)))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch result.Outcome {
			case model.OutcomeJoined:
				joined++
			case model.OutcomeWaitlisted:
				waitlisted++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, capacity, joined)
	assert.Equal(t, joiners-capacity, waitlisted)

	got, err := f.store.Get(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Len(t, got.Participants, capacity)
	assert.Len(t, got.Waitlist, joiners-capacity)
	assert.Empty(t, got.CheckInvariants())
}

func TestApply_ResultIsDetachedFromStore(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	view := f.create(t, 2)

	result, err := f.svc.Join(context.Background(), view.ID, member("a"))
	require.NoError(t, err)
	result.Roster.Participants[0].UserID = "mutated"

	got, err := f.svc.GetRoster(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Participants[0].UserID)
}

// ============================================================================
// Delete / Purge Tests
// ============================================================================

func TestDeleteRoster_OwnerOnly(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	view := f.create(t, 2)
	ctx := context.Background()

	err := f.svc.DeleteRoster(ctx, view.ID, member("a"))
	assert.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, f.svc.DeleteRoster(ctx, view.ID, member("owner")))
	assert.Equal(t, []string{view.ID}, f.sink.removed)

	_, err = f.svc.GetRoster(ctx, view.ID)
	assert.ErrorIs(t, err, ErrRosterNotFound)

	err = f.svc.DeleteRoster(ctx, view.ID, member("owner"))
	assert.ErrorIs(t, err, ErrRosterNotFound)
}

func TestListRosters_ReturnsViews(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	f.create(t, 1)
	f.create(t, 2)

	views, err := f.svc.ListRosters(context.Background())
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestPurgeRosters_RemovesExpired(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	ctx := context.Background()
	closed := f.create(t, 1)
	open := f.create(t, 1)
	_, err := f.svc.Close(ctx, closed.ID, member("owner"))
	require.NoError(t, err)

	*f.now = f.now.Add(2 * time.Hour)
	removed, err := f.svc.PurgeRosters(ctx, model.RetentionPolicy{ClosedRetention: time.Hour})
	require.NoError(t, err)

	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{closed.ID}, f.sink.removed)
	_, err = f.svc.GetRoster(ctx, open.ID)
	assert.NoError(t, err)
}

func TestPurgeRosters_StoreErrorStopsSweep(t *testing.T) {
	t.Parallel()

	repo := repository.NewRosterRepository()
	boom := errors.New("boom")
	svc := NewRosterService(RosterServiceConfig{
		Store: &mockStore{
			RosterRepository: repo,
			removeFunc:       func(context.Context, string) error { return boom },
		},
		Now: func() time.Time { return time.Now().Add(48 * time.Hour) },
	})
	_, err := svc.CreateRoster(context.Background(), member("owner"), &model.CreateRosterRequest{Name: "Old", Capacity: 1})
	require.NoError(t, err)

	removed, err := svc.PurgeRosters(context.Background(), model.RetentionPolicy{MaxAge: 24 * time.Hour})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, removed)
}

func TestPurgeRosters_ListError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	svc := NewRosterService(RosterServiceConfig{
		Store: &mockStore{
			RosterRepository: repository.NewRosterRepository(),
			listFunc:         func(context.Context) ([]*model.Roster, error) { return nil, boom },
		},
	})

	_, err := svc.PurgeRosters(context.Background(), model.RetentionPolicy{MaxAge: time.Hour})
	assert.ErrorIs(t, err, boom)
}
