// Package cpsolver holds the scheduling-domain additions to the imported
// github.com/gitrdm/gokanlogic/pkg/minikanren constraint engine. The engine
// itself (Model, Solver, FDVariable, BitSetDomain, Cumulative, and the rest
// of the global-constraint library) is an external dependency per spec §2/
// §4.6 — "the underlying CP-SAT search" — and is imported directly by
// pkg/varfactory, pkg/builder, and pkg/constraints rather than re-hosted
// here. This package carries only what minikanren does not provide.
//
// OptionalCumulative extends minikanren's Cumulative (whose time-table
// filtering algorithm this file adapts) with a per-task presence boolean.
// A task with presence bound to false never contributes to the resource
// profile and is never pruned; a task with presence bound to true behaves
// exactly like a Cumulative task; a task with unresolved presence is
// excluded from the mandatory profile (so it can never be blamed for a
// capacity violation on its own); its start domain is not pruned, but it
// is forced absent if no start value is feasible against the mandatory
// profile built from already-present tasks.
//
// This is the primitive the scheduling domain layers build on for
// resources a task may or may not use depending on which mode was
// selected: machine capacity, work-cell WIP, and sequence-resource
// exclusivity all reduce to "the interval exists only if this task's
// mode/assignment boolean is true."
package cpsolver

import (
	"fmt"

	mk "github.com/gitrdm/gokanlogic/pkg/minikanren"
)

// OptionalCumulative models a single renewable resource consumed by a set
// of tasks whose presence is itself a decision variable.
type OptionalCumulative struct {
	starts    []*mk.FDVariable
	durations []int
	demands   []int
	presence  []*mk.FDVariable // boolean {1=absent,2=present}; nil entry means always present
	capacity  int
}

// NewOptionalCumulative constructs an OptionalCumulative constraint.
// presence[i] may be nil to mean "always present" (equivalent to plain
// Cumulative for that task).
func NewOptionalCumulative(starts []*mk.FDVariable, durations, demands []int, presence []*mk.FDVariable, capacity int) (mk.PropagationConstraint, error) {
	n := len(starts)
	if n == 0 {
		return nil, fmt.Errorf("OptionalCumulative requires at least one task")
	}
	if len(durations) != n || len(demands) != n || len(presence) != n {
		return nil, fmt.Errorf(
			"OptionalCumulative: mismatched lengths (starts=%d, durations=%d, demands=%d, presence=%d)",
			n, len(durations), len(demands), len(presence),
		)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("OptionalCumulative: capacity must be > 0")
	}
	for i := 0; i < n; i++ {
		if starts[i] == nil {
			return nil, fmt.Errorf("OptionalCumulative: starts[%d] is nil", i)
		}
		if durations[i] <= 0 {
			return nil, fmt.Errorf("OptionalCumulative: durations[%d] must be > 0", i)
		}
		if demands[i] < 0 {
			return nil, fmt.Errorf("OptionalCumulative: demands[%d] must be >= 0", i)
		}
	}

	startsCopy := make([]*mk.FDVariable, n)
	copy(startsCopy, starts)
	dursCopy := make([]int, n)
	copy(dursCopy, durations)
	demsCopy := make([]int, n)
	copy(demsCopy, demands)
	presCopy := make([]*mk.FDVariable, n)
	copy(presCopy, presence)

	return &OptionalCumulative{
		starts:    startsCopy,
		durations: dursCopy,
		demands:   demsCopy,
		presence:  presCopy,
		capacity:  capacity,
	}, nil
}

// Variables returns the start and (non-nil) presence variables.
func (c *OptionalCumulative) Variables() []*mk.FDVariable {
	out := make([]*mk.FDVariable, 0, 2*len(c.starts))
	out = append(out, c.starts...)
	for _, p := range c.presence {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Type returns the constraint identifier.
func (c *OptionalCumulative) Type() string { return "OptionalCumulative" }

// String returns a readable description.
func (c *OptionalCumulative) String() string {
	return fmt.Sprintf("OptionalCumulative(n=%d, capacity=%d)", len(c.starts), c.capacity)
}

func (c *OptionalCumulative) presenceState(solver *mk.Solver, state *mk.SolverState, i int) (boundTrue, boundFalse bool, err error) {
	p := c.presence[i]
	if p == nil {
		return true, false, nil
	}
	d := solver.GetDomain(state, p.ID())
	if d == nil || d.Count() == 0 {
		return false, false, fmt.Errorf("OptionalCumulative: presence variable %d has empty domain", p.ID())
	}
	if d.IsSingleton() {
		if d.SingletonValue() == 2 {
			return true, false, nil
		}
		return false, true, nil
	}
	return false, false, nil
}

// Propagate applies time-table filtering restricted to the subset of
// tasks proven present, prunes those tasks' starts against that mandatory
// profile, and forces absent any unresolved task with no feasible start.
func (c *OptionalCumulative) Propagate(solver *mk.Solver, state *mk.SolverState) (*mk.SolverState, error) {
	if solver == nil {
		return nil, fmt.Errorf("OptionalCumulative.Propagate: nil solver")
	}
	n := len(c.starts)

	domains := make([]mk.Domain, n)
	present := make([]bool, n)
	absent := make([]bool, n)
	maxEnd := 0
	for i, v := range c.starts {
		boundTrue, boundFalse, err := c.presenceState(solver, state, i)
		if err != nil {
			return nil, err
		}
		present[i] = boundTrue
		absent[i] = boundFalse
		if absent[i] {
			continue
		}
		d := solver.GetDomain(state, v.ID())
		if d == nil || d.Count() == 0 {
			return nil, fmt.Errorf("OptionalCumulative: variable %d has empty domain", v.ID())
		}
		domains[i] = d
		end := d.Max() + c.durations[i] - 1
		if end > maxEnd {
			maxEnd = end
		}
	}
	if maxEnd < 1 {
		return state, nil
	}

	// Mandatory profile from proven-present tasks only.
	profile := make([]int, maxEnd+1)
	cpStart := make([]int, n)
	cpEnd := make([]int, n)
	for i := 0; i < n; i++ {
		if absent[i] || !present[i] || c.demands[i] == 0 {
			continue
		}
		d := domains[i]
		est, lst := d.Min(), d.Max()
		cpStart[i] = lst
		cpEnd[i] = est + c.durations[i] - 1
		if cpStart[i] > cpEnd[i] {
			continue
		}
		startT, endT := clamp(cpStart[i], 1, maxEnd), clamp(cpEnd[i], 1, maxEnd)
		for t := startT; t <= endT; t++ {
			profile[t] += c.demands[i]
			if profile[t] > c.capacity {
				return nil, fmt.Errorf("OptionalCumulative: capacity exceeded at t=%d (profile=%d > %d)", t, profile[t], c.capacity)
			}
		}
	}

	newState := state
	for i, v := range c.starts {
		if absent[i] || c.demands[i] == 0 {
			continue
		}
		d := domains[i]
		values := d.ToSlice()
		allowed := make([]int, 0, len(values))
		dur := c.durations[i]
		dem := c.demands[i]
		for _, sVal := range values {
			endT := sVal + dur - 1
			tStart, tEnd := clamp(sVal, 1, maxEnd), clamp(endT, 1, maxEnd)
			ok := true
			for t := tStart; t <= tEnd; t++ {
				load := profile[t]
				if present[i] && cpStart[i] <= t && t <= cpEnd[i] {
					load -= dem
				}
				if load+dem > c.capacity {
					ok = false
					break
				}
			}
			if ok {
				allowed = append(allowed, sVal)
			}
		}

		if len(allowed) == len(values) {
			continue
		}
		if len(allowed) == 0 {
			if present[i] {
				return nil, fmt.Errorf("OptionalCumulative: variable %d domain empty after pruning", v.ID())
			}
			// Unresolved presence with no feasible placement: force absent.
			p := c.presence[i]
			forcedAbsent := mk.NewBitSetDomainFromValues(2, []int{1})
			var err error
			newState, err = setDomainOrFail(solver, newState, p.ID(), forcedAbsent, "OptionalCumulative: forcing presence absent")
			if err != nil {
				return nil, err
			}
			continue
		}
		if present[i] {
			// Only prune mandatory tasks; unresolved ("maybe") tasks are
			// left to search once forced present, keeping propagation
			// sound without requiring a second fixed-point pass here.
			newDom := mk.NewBitSetDomainFromValues(d.MaxValue(), allowed)
			var changed bool
			newState, changed = solver.SetDomain(newState, v.ID(), newDom)
			if changed {
				domains[i] = newDom
			}
		}
	}

	return newState, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func setDomainOrFail(solver *mk.Solver, state *mk.SolverState, varID int, newDomain mk.Domain, context string) (*mk.SolverState, error) {
	ns, _ := solver.SetDomain(state, varID, newDomain)
	d := solver.GetDomain(ns, varID)
	if d == nil || d.Count() == 0 {
		return nil, fmt.Errorf("%s: variable %d domain empty", context, varID)
	}
	return ns, nil
}
