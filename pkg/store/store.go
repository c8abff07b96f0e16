// Package store persists file diff records.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fluxcd/stackdiff/pkg/api"
	fluxerr "github.com/fluxcd/stackdiff/pkg/errors"
)

// Store holds FileDiff records. Records for a pair of stacks come back
// in the order they were inserted.
type Store interface {
	// Insert stores the records, assigning an ID to any that lack one,
	// and returns them as stored.
	Insert(ctx context.Context, diffs []api.FileDiff) ([]api.FileDiff, error)
	Get(ctx context.Context, id string) (api.FileDiff, error)
	FindByStacks(ctx context.Context, stackA, stackB string) ([]api.FileDiff, error)
	// ToggleReview flips the reviewed flag of a record, marking it
	// updated at the given time, and returns the number of records
	// changed.
	ToggleReview(ctx context.Context, id string, at time.Time) (int, error)
	Close() error
}

// NewID returns a fresh record ID.
func NewID() string {
	return uuid.New().String()
}

// ErrNotFound is the error for a record ID that is not stored.
func ErrNotFound(id string) error {
	return &fluxerr.Error{
		Type: fluxerr.Missing,
		Help: fmt.Sprintf("There is no diff with ID %q. It may have been computed by another instance, or the ID may be mistyped.", id),
		Err:  fmt.Errorf("diff %s not found", id),
	}
}

type stacks struct {
	a, b string
}

type memStore struct {
	mtx     sync.RWMutex
	byID    map[string]*api.FileDiff
	byStack map[stacks][]*api.FileDiff
}

// NewInMem returns a Store that keeps records in memory.
func NewInMem() Store {
	return &memStore{
		byID:    map[string]*api.FileDiff{},
		byStack: map[stacks][]*api.FileDiff{},
	}
}

func (s *memStore) Insert(ctx context.Context, diffs []api.FileDiff) ([]api.FileDiff, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	stored := make([]api.FileDiff, len(diffs))
	batch := map[string]bool{}
	for i, d := range diffs {
		if d.ID == "" {
			d.ID = NewID()
		}
		if _, exists := s.byID[d.ID]; exists || batch[d.ID] {
			return nil, fmt.Errorf("diff %s already stored", d.ID)
		}
		batch[d.ID] = true
		stored[i] = d
	}

	for _, d := range stored {
		record := d
		s.byID[d.ID] = &record
		k := stacks{d.StackA, d.StackB}
		s.byStack[k] = append(s.byStack[k], &record)
	}
	return stored, nil
}

func (s *memStore) Get(ctx context.Context, id string) (api.FileDiff, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	d, ok := s.byID[id]
	if !ok {
		return api.FileDiff{}, ErrNotFound(id)
	}
	return *d, nil
}

func (s *memStore) FindByStacks(ctx context.Context, stackA, stackB string) ([]api.FileDiff, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	records := s.byStack[stacks{stackA, stackB}]
	diffs := make([]api.FileDiff, len(records))
	for i, d := range records {
		diffs[i] = *d
	}
	return diffs, nil
}

func (s *memStore) ToggleReview(ctx context.Context, id string, at time.Time) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	d, ok := s.byID[id]
	if !ok {
		return 0, ErrNotFound(id)
	}
	d.Reviewed = !d.Reviewed
	d.UpdatedAt = at
	return 1, nil
}

func (s *memStore) Close() error {
	return nil
}
