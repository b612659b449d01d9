// Package builder wires a validated problem.Problem into a complete
// minikanren.Model: it owns the fixed application order of spec §4.3's
// timing/capacity families, §4.3.2's operator/skill/calendar families
// (behind SolverParameters.EnablePhase2), §4.5's symmetry breaking, and
// §4.4's objective registration and scalarization (behind
// SolverParameters.EnablePhase3). Nothing here runs a solve; pkg/solve
// consumes the Model and objective variable this package returns.
package builder

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/pkg/constraints/phase1"
	"github.com/gitrdm/templatesched/pkg/constraints/phase2"
	"github.com/gitrdm/templatesched/pkg/constraints/phase3"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/timeunit"
	"github.com/gitrdm/templatesched/pkg/varfactory"
)

// Direction says whether Build's returned objective should be minimized
// or maximized.
type Direction int

const (
	Minimize Direction = iota
	Maximize
)

// Result is everything pkg/solve needs to drive a search.
type Result struct {
	Model     *minikanren.Model
	Factory   *varfactory.Factory
	Objective *minikanren.FDVariable
	Direction Direction
	// ObjectiveShift converts Objective's raw solution value back to the
	// real quantity it measures (value - ObjectiveShift), per the +1
	// domain-value convention documented in constraints/phase3.
	ObjectiveShift int
	// Assignments is nil unless SolverParameters.EnablePhase2 is set; it
	// holds the (instance, task, operator) assignment booleans pkg/schedule
	// reads back to report ScheduledTask.AssignedOperatorIDs.
	Assignments *phase2.OperatorAssignments
	// Components holds every registered objective term (at minimum
	// "makespan"; "total_lateness"/"max_lateness"/"total_cost" too when
	// EnablePhase3 is set), keyed by name, so pkg/schedule can report each
	// quantity's own (value - Shift) regardless of which scalarization the
	// caller chose for Objective.
	Components phase3.Components
	// FamiliesApplied is every constraint family name applied to Model, in
	// the fixed §4.3 order. pkg/solve uses it to build an InfeasibleReport's
	// hint list per §4.6/§7, since the engine has no assumption-based unsat
	// cores to point at a single culprit family.
	FamiliesApplied []string
}

// restrictiveFamilies names, in priority order, the families spec §7
// calls out by name as typically the most restrictive ("sequence
// exclusivity, narrow shift windows, tight due dates"). InfeasibleHints
// sorts FamiliesApplied so these surface first.
var restrictiveFamilies = []string{"sequence_exclusivity", "operator_shifts", "calendar_availability"}

// InfeasibleHints reorders FamiliesApplied so the families spec §7 names
// as typically most restrictive come first, followed by the rest of the
// fixed application order. This is the concrete form of §4.6's "otherwise,
// a flag set of potentially conflicting families for iterative bisection
// by the caller" -- the engine here has no assumption-based unsat core to
// name one definite culprit.
func (r *Result) InfeasibleHints() []string {
	priority := make(map[string]int, len(restrictiveFamilies))
	for i, name := range restrictiveFamilies {
		priority[name] = i
	}
	hints := make([]string, len(r.FamiliesApplied))
	copy(hints, r.FamiliesApplied)
	sort.SliceStable(hints, func(i, j int) bool {
		pi, oki := priority[hints[i]]
		pj, okj := priority[hints[j]]
		if oki && okj {
			return pi < pj
		}
		if oki != okj {
			return oki
		}
		return false
	})
	return hints
}

// Build runs problem.Validate, then applies every constraint family to a
// fresh model in spec §4.3's fixed order, returning the model and
// objective pkg/solve needs. The caller owns the logger's lifecycle; a
// nil logger is replaced with zap.NewNop().
func Build(p *problem.Problem, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("builder.Build: %w", err)
	}

	horizon := computeHorizon(p)
	logger.Info("horizon computed", zap.Int("horizon_units", horizon))

	model := minikanren.NewModel()
	f, err := varfactory.New(model, p, horizon)
	if err != nil {
		return nil, fmt.Errorf("builder.Build: %w", err)
	}

	families := []struct {
		name string
		fn   func() error
	}{
		{"mode_selection", func() error { return phase1.ApplyModeSelection(model, f, p) }},
		{"duration_link", func() error { return phase1.ApplyDurationLink(model, f, p) }},
		{"precedence", func() error { return phase1.ApplyPrecedence(model, f, p) }},
		{"machine_capacity", func() error { return phase1.ApplyMachineCapacity(model, f, p) }},
		{"cell_wip", func() error { return phase1.ApplyWorkCellWIP(model, f, p) }},
		{"sequence_exclusivity", func() error { return phase1.ApplySequenceExclusivity(model, f, p) }},
	}
	var familiesApplied []string
	for _, fam := range families {
		before := model.ConstraintCount()
		if err := fam.fn(); err != nil {
			return nil, fmt.Errorf("builder.Build: family %s: %w", fam.name, err)
		}
		logger.Debug("constraint family applied",
			zap.String("family", fam.name),
			zap.Int("constraints_added", model.ConstraintCount()-before),
		)
		familiesApplied = append(familiesApplied, fam.name)
	}

	var assignments *phase2.OperatorAssignments
	if p.Template.SolverParameters.EnablePhase2 {
		var phase2Families []string
		assignments, phase2Families, err = applyPhase2(model, f, p, logger)
		if err != nil {
			return nil, fmt.Errorf("builder.Build: %w", err)
		}
		familiesApplied = append(familiesApplied, phase2Families...)
	}

	if err := applySymmetryBreaking(model, f, p, logger); err != nil {
		return nil, fmt.Errorf("builder.Build: symmetry_breaking: %w", err)
	}

	result, err := applyObjective(model, f, p, logger)
	if err != nil {
		return nil, fmt.Errorf("builder.Build: %w", err)
	}
	result.Model = model
	result.Factory = f
	result.Assignments = assignments
	result.FamiliesApplied = familiesApplied

	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("builder.Build: final model validation: %w", err)
	}
	logger.Info("model built",
		zap.Int("variables", model.VariableCount()),
		zap.Int("constraints", model.ConstraintCount()),
	)
	return result, nil
}

// computeHorizon derives the scheduling horizon from every instance's
// earliest start and the template's critical-path upper bound, per spec
// §4.1.
func computeHorizon(p *problem.Problem) int {
	earliestStarts := make([]int, len(p.Instances))
	for i, inst := range p.Instances {
		earliestStarts[i] = inst.EarliestStartUnit
	}
	return timeunit.HorizonUnits(earliestStarts, p.Template.CriticalPathUpperBound())
}

// applyPhase2 applies the operator/skill/shift/setup-time/calendar
// families, in that order, only when the caller opted in. Operator
// assignment variables are built first since skills, counts, and shifts
// all reference them.
func applyPhase2(model *minikanren.Model, f *varfactory.Factory, p *problem.Problem, logger *zap.Logger) (*phase2.OperatorAssignments, []string, error) {
	assignments := phase2.BuildOperatorAssignments(model, p)

	families := []struct {
		name string
		fn   func() error
	}{
		{"operator_counts", func() error { return phase2.ApplyOperatorCounts(model, p, assignments) }},
		{"skill_requirements", func() error { return phase2.ApplySkillRequirements(model, p, assignments) }},
		{"operator_shifts", func() error { return phase2.ApplyOperatorShifts(model, f, p, assignments) }},
		{"sequence_dependent_setup", func() error { return phase2.ApplySequenceDependentSetup(model, f, p) }},
		{"calendar_availability", func() error { return phase2.ApplyCalendarAvailability(model, f, p) }},
	}
	var applied []string
	for _, fam := range families {
		before := model.ConstraintCount()
		if err := fam.fn(); err != nil {
			return nil, nil, fmt.Errorf("phase2 family %s: %w", fam.name, err)
		}
		logger.Debug("constraint family applied",
			zap.String("family", fam.name),
			zap.Int("constraints_added", model.ConstraintCount()-before),
		)
		applied = append(applied, fam.name)
	}
	return assignments, applied, nil
}

// applyObjective registers phase3's objective components and scalarizes
// them when EnablePhase3 is set. When phase3 is disabled, the model's
// objective defaults to makespan alone -- the cheapest well-defined goal
// that still makes SolveOptimalWithOptions produce a single best
// schedule rather than an arbitrary feasible one.
func applyObjective(model *minikanren.Model, f *varfactory.Factory, p *problem.Problem, logger *zap.Logger) (*Result, error) {
	makespan, err := phase3.ApplyMakespanObjective(model, f, p)
	if err != nil {
		return nil, fmt.Errorf("objective makespan: %w", err)
	}

	if !p.Template.SolverParameters.EnablePhase3 {
		logger.Debug("objective selected", zap.String("mode", "makespan_only"))
		return &Result{
			Objective:      makespan.Variable,
			Direction:      Minimize,
			ObjectiveShift: makespan.Shift,
			Components:     phase3.Components{"makespan": makespan},
		}, nil
	}

	components := phase3.Components{"makespan": makespan}

	totalLateness, maxLateness, err := phase3.ApplyLatenessObjectives(model, f, p)
	if err != nil {
		return nil, fmt.Errorf("objective lateness: %w", err)
	}
	if totalLateness != nil {
		components["total_lateness"] = totalLateness
		components["max_lateness"] = maxLateness
	}

	totalCost, err := phase3.ApplyCostObjective(model, f, p)
	if err != nil {
		return nil, fmt.Errorf("objective cost: %w", err)
	}
	components["total_cost"] = totalCost

	objective, err := phase3.ApplyScalarization(model, p, components)
	if err != nil {
		return nil, fmt.Errorf("objective scalarization: %w", err)
	}
	logger.Debug("objective selected",
		zap.String("mode", "scalarized"),
		zap.Int("component_count", len(components)),
	)
	// The scalarized sum's own domain starts at 1 (minikanren domains never
	// hold 0), and it is a weighted combination of already-shifted
	// components: no single caller-facing shift recovers the real
	// quantity from it. pkg/schedule reports each component's own
	// (value - shift) individually rather than un-shifting the combined
	// scalar.
	return &Result{Objective: objective, Direction: Minimize, ObjectiveShift: 0, Components: components}, nil
}

// symmetryGroupKey identifies instances that are interchangeable for
// symmetry-breaking purposes: same template (implicit, since a Problem
// has one template), same earliest start, same due date (or both unset),
// and same priority.
type symmetryGroupKey struct {
	earliestStart int
	due           int
	hasDue        bool
	priority      int
}

func groupKeyFor(inst problem.Instance) symmetryGroupKey {
	key := symmetryGroupKey{earliestStart: inst.EarliestStartUnit, priority: inst.Priority}
	if inst.DueUnit != nil {
		key.hasDue = true
		key.due = *inst.DueUnit
	}
	return key
}

// applySymmetryBreaking orders interchangeable instances' full start
// vectors lexicographically (spec §4.5), so the solver never explores
// two solutions that differ only by which identical instance got which
// slot. Instances are grouped by symmetryGroupKey, sorted by ID within a
// group for a deterministic chain, and each consecutive pair gets a
// LexLessEq over every task's Start variable in template order.
func applySymmetryBreaking(model *minikanren.Model, f *varfactory.Factory, p *problem.Problem, logger *zap.Logger) error {
	groups := make(map[symmetryGroupKey][]string)
	var keys []symmetryGroupKey
	for _, inst := range p.Instances {
		key := groupKeyFor(inst)
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], inst.ID)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.earliestStart != b.earliestStart {
			return a.earliestStart < b.earliestStart
		}
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		if a.hasDue != b.hasDue {
			return !a.hasDue
		}
		return a.due < b.due
	})

	added := 0
	for _, key := range keys {
		ids := groups[key]
		if len(ids) < 2 {
			continue
		}
		sort.Strings(ids)
		for i := 0; i+1 < len(ids); i++ {
			xs := startVector(f, p, ids[i])
			ys := startVector(f, p, ids[i+1])
			lex, err := minikanren.NewLexLessEq(xs, ys)
			if err != nil {
				return fmt.Errorf("applySymmetryBreaking: %s <= %s: %w", ids[i], ids[i+1], err)
			}
			model.AddConstraint(lex)
			added++
		}
	}
	logger.Debug("symmetry breaking applied", zap.Int("constraints_added", added))
	return nil
}

// startVector returns one instance's task Start variables in template
// task order, the fixed-length vector LexLessEq compares.
func startVector(f *varfactory.Factory, p *problem.Problem, instanceID string) []*minikanren.FDVariable {
	starts := make([]*minikanren.FDVariable, len(p.Template.Tasks))
	for i, task := range p.Template.Tasks {
		starts[i] = f.Vars(instanceID, task.ID).Start
	}
	return starts
}
