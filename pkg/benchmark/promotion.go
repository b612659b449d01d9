// Package benchmark implements spec §2.8's Benchmark & Parameter
// Promotion: comparing a template-mode solve of a multi-instance problem
// against a per-instance baseline, and persisting the best-known
// solver_parameters observed for a template so later solves of the same
// template warm-start from them (spec.md §2's "records best known
// parameters per template", elaborated in SPEC_FULL.md §D).
package benchmark

import (
	"context"
	"fmt"
	"sync"

	"github.com/gitrdm/templatesched/pkg/problem"
)

// InstanceCountBucket groups templates by roughly how many instances they
// were last solved with, since the best solver_parameters for 2 instances
// (little symmetry to exploit) can differ from those for 50.
type InstanceCountBucket string

const (
	Bucket1to2   InstanceCountBucket = "1-2"
	Bucket3to5   InstanceCountBucket = "3-5"
	Bucket6to20  InstanceCountBucket = "6-20"
	Bucket21Plus InstanceCountBucket = "21+"
)

// BucketFor classifies an instance count into its promotion bucket.
func BucketFor(instanceCount int) InstanceCountBucket {
	switch {
	case instanceCount <= 2:
		return Bucket1to2
	case instanceCount <= 5:
		return Bucket3to5
	case instanceCount <= 20:
		return Bucket6to20
	default:
		return Bucket21Plus
	}
}

// ParameterRecord is one versioned entry of the promotion table:
// template_id, instance_count_bucket -> solver_parameters,
// observed_solve_time, observed_objective.
type ParameterRecord struct {
	TemplateID               string
	Bucket                   InstanceCountBucket
	Parameters               problem.SolverParameters
	ObservedSolveTimeSeconds float64
	ObservedObjective        int
	Version                  int
}

func (r ParameterRecord) key() string {
	return fmt.Sprintf("%s/%s", r.TemplateID, r.Bucket)
}

// PromotionStore is the parameter promotion table's access contract.
// Promote only replaces the stored record when candidate is a strict
// improvement (see MemoryPromotionStore.Promote for the comparison
// rule); it reports whether the replacement happened.
type PromotionStore interface {
	Get(ctx context.Context, templateID string, bucket InstanceCountBucket) (ParameterRecord, bool, error)
	Promote(ctx context.Context, candidate ParameterRecord) (bool, error)
}

// MemoryPromotionStore is a mutex-guarded in-memory PromotionStore,
// grounded on the same in-memory-database idiom as pkg/store/memory
// (gitrdm-gokando's fact_store.go: a map behind a sync.RWMutex).
type MemoryPromotionStore struct {
	mu      sync.RWMutex
	records map[string]ParameterRecord
}

// NewMemoryPromotionStore returns an empty MemoryPromotionStore.
func NewMemoryPromotionStore() *MemoryPromotionStore {
	return &MemoryPromotionStore{records: make(map[string]ParameterRecord)}
}

// Get implements PromotionStore.
func (m *MemoryPromotionStore) Get(_ context.Context, templateID string, bucket InstanceCountBucket) (ParameterRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[ParameterRecord{TemplateID: templateID, Bucket: bucket}.key()]
	return r, ok, nil
}

// Promote implements PromotionStore. A candidate replaces the stored
// record when there is no existing record, or when the candidate solved
// at least as well (objective no worse) in strictly less time — a
// faster-but-worse or slower-but-better candidate is never promoted,
// since neither dominates the other.
func (m *MemoryPromotionStore) Promote(_ context.Context, candidate ParameterRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := candidate.key()
	existing, ok := m.records[key]
	if !ok {
		candidate.Version = 1
		m.records[key] = candidate
		return true, nil
	}
	if candidate.ObservedSolveTimeSeconds < existing.ObservedSolveTimeSeconds &&
		candidate.ObservedObjective <= existing.ObservedObjective {
		candidate.Version = existing.Version + 1
		m.records[key] = candidate
		return true, nil
	}
	return false, nil
}
