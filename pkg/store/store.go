// Package store defines the pattern-aware loader/persister contract of
// spec §4.7: load_pattern(pattern_id) -> Problem and
// store_schedule(problem, solution) -> schedule_id, against the logical
// relational layout named in spec §6 (templates, template_tasks,
// template_task_modes, template_precedences, resources, instances,
// solved_schedules, scheduled_tasks, sequence_reservations). The core only
// depends on these two interfaces; pkg/store/postgres and
// pkg/store/memory are the concrete implementations.
package store

import (
	"context"
	"errors"

	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/schedule"
)

// ErrPatternNotFound is returned by Loader.LoadPattern when pattern_id
// does not name a known template.
var ErrPatternNotFound = errors.New("store: pattern not found")

// Loader fetches a complete Problem for one pattern: the template, all
// related template tasks with modes and precedences, sequence resources,
// machines, cells, operators, skills, calendars, and setup times, plus
// every instance flagged for scheduling, per spec §4.7.
//
// If instanceIDs is non-empty, the loaded Problem is restricted to those
// instances (spec §6's `--instances` CLI flag); an empty slice loads
// every instance flagged for scheduling under the pattern.
type Loader interface {
	LoadPattern(ctx context.Context, patternID string, instanceIDs []string) (*problem.Problem, error)
}

// Persister commits a solved schedule — its scheduled tasks and sequence
// reservations — atomically, and returns the opaque schedule_id assigned
// to the write. Per spec §4.7, the template and resource catalog remain
// read-only during this call; only solved_schedules, scheduled_tasks, and
// sequence_reservations are written.
type Persister interface {
	StoreSchedule(ctx context.Context, p *problem.Problem, sol *schedule.Solution) (string, error)
}

// LoaderPersister is the combined capability most callers (the CLI,
// the benchmark runner) actually depend on.
type LoaderPersister interface {
	Loader
	Persister
}
