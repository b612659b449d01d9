// Package memory implements pkg/store's Loader and Persister entirely
// in-memory, grounded on the mutex-guarded in-memory database idiom of
// gitrdm-gokando's pkg/minikanren/fact_store.go. It backs unit tests and
// pkg/benchmark's repeated solves, where round-tripping through a real
// database would dominate wall-clock time.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/gitrdm/templatesched/internal/errs"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/schedule"
	"github.com/gitrdm/templatesched/pkg/store"
)

// StoredSchedule is one persisted solve, recorded against its schedule_id.
type StoredSchedule struct {
	ID         string
	TemplateID string
	Problem    *problem.Problem
	Solution   *schedule.Solution
}

// Store is an in-memory store.Loader and store.Persister. The zero value
// is not usable; construct with New.
type Store struct {
	mu        sync.RWMutex
	problems  map[string]*problem.Problem
	schedules map[string]StoredSchedule
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		problems:  make(map[string]*problem.Problem),
		schedules: make(map[string]StoredSchedule),
	}
}

// Seed registers p under its own Template.ID so a later LoadPattern call
// can find it. Seed takes the store's write lock, so it may run
// concurrently with LoadPattern; typical use is to seed fixtures once
// before tests run.
func (s *Store) Seed(p *problem.Problem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.problems[p.Template.ID] = p
}

// LoadPattern implements store.Loader. When instanceIDs is non-empty the
// returned Problem is filtered to just those instances; requesting an
// instance ID absent from the seeded problem is a malformed-problem
// error, mirroring postgres.Store's behavior.
func (s *Store) LoadPattern(ctx context.Context, patternID string, instanceIDs []string) (*problem.Problem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.problems[patternID]
	if !ok {
		return nil, store.ErrPatternNotFound
	}
	if len(instanceIDs) == 0 {
		return cloneProblem(p), nil
	}

	want := make(map[string]bool, len(instanceIDs))
	for _, id := range instanceIDs {
		want[id] = true
	}
	filtered := cloneProblem(p)
	filtered.Instances = filtered.Instances[:0]
	for _, inst := range p.Instances {
		if want[inst.ID] {
			filtered.Instances = append(filtered.Instances, inst)
			delete(want, inst.ID)
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for id := range want {
			missing = append(missing, id)
		}
		return nil, errs.NewMalformedProblem("requested instance ids not found under pattern", missing...)
	}
	return filtered, nil
}

// StoreSchedule implements store.Persister, assigning a fresh UUID and
// recording the (problem, solution) pair. There is no partial-write
// failure mode to guard against in-memory, so the atomicity guarantee
// postgres.Store provides via a transaction holds here trivially.
func (s *Store) StoreSchedule(ctx context.Context, p *problem.Problem, sol *schedule.Solution) (string, error) {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[id] = StoredSchedule{
		ID:         id,
		TemplateID: p.Template.ID,
		Problem:    p,
		Solution:   sol,
	}
	return id, nil
}

// Get returns a previously stored schedule by ID, for tests that assert
// on what was persisted.
func (s *Store) Get(scheduleID string) (StoredSchedule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sched, ok := s.schedules[scheduleID]
	return sched, ok
}

func cloneProblem(p *problem.Problem) *problem.Problem {
	clone := *p
	clone.Instances = append([]problem.Instance(nil), p.Instances...)
	return &clone
}
