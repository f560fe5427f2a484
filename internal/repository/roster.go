package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forgo/muster/internal/model"
)

var (
	// ErrNotFound is returned when no roster exists for an id
	ErrNotFound = errors.New("roster not found")
	// ErrInvalidCapacity is returned when a roster is created with capacity <= 0
	ErrInvalidCapacity = errors.New("capacity must be positive")
	// ErrInvariantViolation is returned when a mutation would leave the roster inconsistent
	ErrInvariantViolation = errors.New("roster invariant violated")
)

// rosterEntry pairs a roster with the lock that serializes its mutations.
// removed is set under mu so that a WithRoster that lost the race against
// Remove observes the deletion.
type rosterEntry struct {
	mu      sync.Mutex
	roster  *model.Roster
	removed bool
}

// RosterRepository is an in-memory roster registry. The map lock only guards
// lookups; each roster has its own mutex so work on one roster never blocks
// another.
type RosterRepository struct {
	mu      sync.RWMutex
	entries map[string]*rosterEntry
	now     func() time.Time
	newID   func() string
}

// NewRosterRepository creates an empty roster repository
func NewRosterRepository() *RosterRepository {
	return &RosterRepository{
		entries: make(map[string]*rosterEntry),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Create stores a new roster, assigning its ID and creation time
func (r *RosterRepository) Create(ctx context.Context, roster *model.Roster) error {
	if roster.Capacity <= 0 {
		return ErrInvalidCapacity
	}

	stored := roster.Clone()
	stored.ID = r.newID()
	stored.CreatedOn = r.now().UTC()
	stored.Version = 1
	if msg := stored.CheckInvariants(); msg != "" {
		return fmt.Errorf("%w: %s", ErrInvariantViolation, msg)
	}

	r.mu.Lock()
	r.entries[stored.ID] = &rosterEntry{roster: stored}
	r.mu.Unlock()

	roster.ID = stored.ID
	roster.CreatedOn = stored.CreatedOn
	roster.Version = stored.Version
	return nil
}

// WithRoster runs fn with exclusive access to the roster. fn receives a
// private copy; the copy replaces the stored roster only when fn returns nil
// and the result passes CheckInvariants. Each commit bumps Version.
func (r *RosterRepository) WithRoster(ctx context.Context, id string, fn func(*model.Roster) error) error {
	entry := r.lookup(id)
	if entry == nil {
		return ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.removed {
		return ErrNotFound
	}

	working := entry.roster.Clone()
	if err := fn(working); err != nil {
		return err
	}
	if msg := working.CheckInvariants(); msg != "" {
		return fmt.Errorf("%w: %s", ErrInvariantViolation, msg)
	}

	working.Version = entry.roster.Version + 1
	entry.roster = working
	return nil
}

// Get returns a copy of the roster taken under its lock
func (r *RosterRepository) Get(ctx context.Context, id string) (*model.Roster, error) {
	entry := r.lookup(id)
	if entry == nil {
		return nil, ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.removed {
		return nil, ErrNotFound
	}
	return entry.roster.Clone(), nil
}

// List returns copies of all rosters, oldest first
func (r *RosterRepository) List(ctx context.Context) ([]*model.Roster, error) {
	r.mu.RLock()
	entries := make([]*rosterEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	rosters := make([]*model.Roster, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.removed {
			rosters = append(rosters, e.roster.Clone())
		}
		e.mu.Unlock()
	}

	sort.Slice(rosters, func(i, j int) bool {
		if rosters[i].CreatedOn.Equal(rosters[j].CreatedOn) {
			return rosters[i].ID < rosters[j].ID
		}
		return rosters[i].CreatedOn.Before(rosters[j].CreatedOn)
	})
	return rosters, nil
}

// Remove deletes the roster. Removing an unknown id is a no-op.
func (r *RosterRepository) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	entry, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if !ok {
		return nil
	}

	// Wait for any in-flight mutation before marking the entry dead
	entry.mu.Lock()
	entry.removed = true
	entry.mu.Unlock()
	return nil
}

// Count returns the number of stored rosters
func (r *RosterRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *RosterRepository) lookup(id string) *rosterEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[id]
}
