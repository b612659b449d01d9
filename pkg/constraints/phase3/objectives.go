// Package phase3 registers the multi-objective families of spec §4.4/§6
// behind SolverParameters.EnablePhase3: makespan, total/max lateness,
// total cost, and the weighted-sum or lexicographic scalarization that
// combines them into the single FD variable SolveOptimalWithOptions
// expects.
//
// Every objective component that represents a time or cost quantity
// reuses varfactory's own +1 domain-value shift (minikanren's BitSetDomain
// only holds values >= 1): component.Value() - component.Shift recovers
// the real quantity. Scalarization never needs to undo these shifts
// itself, since an additive constant does not change which solution
// minimizes or maximizes the scalarized variable -- only pkg/schedule,
// reporting the final numbers to a caller, needs to subtract them.
package phase3

import (
	"fmt"
	"math"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/timeunit"
	"github.com/gitrdm/templatesched/pkg/varfactory"
)

// ShiftedObjective is a single FD variable whose value, minus Shift,
// equals the real quantity it measures.
type ShiftedObjective struct {
	Variable *minikanren.FDVariable
	Shift    int
}

// ApplyMakespanObjective ties a fresh variable to the maximum End across
// every (instance, task), per spec §4.4 "Makespan". End already carries
// varfactory's own +1 shift, so the makespan's Shift is 1.
func ApplyMakespanObjective(model *minikanren.Model, f *varfactory.Factory, p *problem.Problem) (*ShiftedObjective, error) {
	var ends []*minikanren.FDVariable
	maxDomain := 0
	for _, inst := range p.Instances {
		for _, task := range p.Template.Tasks {
			tv := f.Vars(inst.ID, task.ID)
			ends = append(ends, tv.End)
			if m := tv.End.Domain().MaxValue(); m > maxDomain {
				maxDomain = m
			}
		}
	}
	if len(ends) == 0 {
		return nil, fmt.Errorf("phase3.ApplyMakespanObjective: problem has no tasks")
	}
	makespan := model.NewVariableWithName(minikanren.NewBitSetDomain(maxDomain), "objective.makespan")
	maxConstraint, err := minikanren.NewMax(ends, makespan)
	if err != nil {
		return nil, fmt.Errorf("phase3.ApplyMakespanObjective: %w", err)
	}
	model.AddConstraint(maxConstraint)
	return &ShiftedObjective{Variable: makespan, Shift: 1}, nil
}

// anchorTaskID returns the template's last-positioned task, used as the
// instance-completion proxy for due-date lateness.
func anchorTaskID(tmpl problem.Template) string {
	anchor := tmpl.Tasks[0]
	for _, task := range tmpl.Tasks {
		if task.Position > anchor.Position {
			anchor = task
		}
	}
	return anchor.ID
}

// ApplyLatenessObjectives ties fresh variables to total and maximum
// lateness across instances with a declared due date (spec §4.4
// "Lateness"), where lateness_i = max(0, completion_i - due_i) and
// completion_i is the anchor (final) task's End. Returns (nil, nil, nil)
// if no instance declares a due date.
func ApplyLatenessObjectives(model *minikanren.Model, f *varfactory.Factory, p *problem.Problem) (total, max *ShiftedObjective, err error) {
	anchor := anchorTaskID(p.Template)

	var latenessVars []*minikanren.FDVariable
	latenessMax := 0
	for _, inst := range p.Instances {
		if inst.DueUnit == nil {
			continue
		}
		tv := f.Vars(inst.ID, anchor)
		dueShifted := varfactory.ToDomainValue(*inst.DueUnit)
		dueConst := constVariable(model, dueShifted, fmt.Sprintf("%s.due", inst.ID))

		cappedMax := tv.End.Domain().MaxValue()
		if dueShifted > cappedMax {
			cappedMax = dueShifted
		}
		capped := model.NewVariableWithName(minikanren.NewBitSetDomain(cappedMax), fmt.Sprintf("%s.completionOrDue", inst.ID))
		maxConstraint, err := minikanren.NewMax([]*minikanren.FDVariable{tv.End, dueConst}, capped)
		if err != nil {
			return nil, nil, fmt.Errorf("phase3.ApplyLatenessObjectives: %s: %w", inst.ID, err)
		}
		model.AddConstraint(maxConstraint)

		cappedPlusOne, err := offsetVariable(model, capped, 1, fmt.Sprintf("%s.completionOrDue+1", inst.ID))
		if err != nil {
			return nil, nil, fmt.Errorf("phase3.ApplyLatenessObjectives: %s: %w", inst.ID, err)
		}
		lateness := model.NewVariableWithName(minikanren.NewBitSetDomain(cappedPlusOne.Domain().MaxValue()), fmt.Sprintf("%s.lateness", inst.ID))
		linear, err := minikanren.NewLinearSum([]*minikanren.FDVariable{dueConst, lateness}, []int{1, 1}, cappedPlusOne)
		if err != nil {
			return nil, nil, fmt.Errorf("phase3.ApplyLatenessObjectives: %s: %w", inst.ID, err)
		}
		model.AddConstraint(linear)

		latenessVars = append(latenessVars, lateness)
		if m := lateness.Domain().MaxValue(); m > latenessMax {
			latenessMax = m
		}
	}
	if len(latenessVars) == 0 {
		return nil, nil, nil
	}

	totalMax := latenessMax * len(latenessVars)
	totalVar := model.NewVariableWithName(minikanren.NewBitSetDomain(totalMax), "objective.totalLateness")
	sum, err := minikanren.NewBoundsSum(latenessVars, totalVar)
	if err != nil {
		return nil, nil, fmt.Errorf("phase3.ApplyLatenessObjectives: %w", err)
	}
	model.AddConstraint(sum)

	maxVar := model.NewVariableWithName(minikanren.NewBitSetDomain(latenessMax), "objective.maxLateness")
	maxConstraint, err := minikanren.NewMax(latenessVars, maxVar)
	if err != nil {
		return nil, nil, fmt.Errorf("phase3.ApplyLatenessObjectives: %w", err)
	}
	model.AddConstraint(maxConstraint)

	// rawTotal = sum(lateness_i + 1) = total + n; each lateness var
	// itself carries a +1 shift, so the BoundsSum's total carries it n
	// times.
	return &ShiftedObjective{Variable: totalVar, Shift: len(latenessVars)},
		&ShiftedObjective{Variable: maxVar, Shift: 1}, nil
}

// costUnits converts a machine's hourly cost rate and a mode's duration
// (internal units) into an integer cost unit, rounding to the nearest
// whole unit -- scalarization only needs comparable magnitudes, not
// currency precision.
func costUnits(costPerHour float64, durationUnits int) int {
	minutes := float64(durationUnits * timeunit.UnitMinutes)
	return int(math.Round(costPerHour * minutes / 60.0))
}

// ApplyCostObjective ties a fresh variable to the total resource cost of
// the schedule (spec §4.4 "Total cost"): for each (instance, task, mode),
// the mode's cost unit contributes iff that mode is selected. Each
// contribution is a two-valued variable (0 or the mode's cost, plus 1)
// tied to ModeSelected via EqualityReified restricted to that two-value
// domain -- the same one-directional-link idiom as
// phase1/durationlink.go, generalized to equality since a cost
// contribution has exactly two possible values rather than "some
// duration constant."
func ApplyCostObjective(model *minikanren.Model, f *varfactory.Factory, p *problem.Problem) (*ShiftedObjective, error) {
	byMachine := make(map[string]*problem.Machine, len(p.Machines))
	for i := range p.Machines {
		byMachine[p.Machines[i].ID] = &p.Machines[i]
	}

	var terms []*minikanren.FDVariable
	shift := 0
	maxTotal := 0
	for _, inst := range p.Instances {
		for _, task := range p.Template.Tasks {
			tv := f.Vars(inst.ID, task.ID)
			for i, m := range task.Modes {
				machine, ok := byMachine[m.MachineID]
				if !ok {
					return nil, fmt.Errorf("phase3.ApplyCostObjective: task %s mode %s references unknown machine %s", task.ID, m.ID, m.MachineID)
				}
				weight := costUnits(machine.CostPerHour, m.DurationUnits)
				name := fmt.Sprintf("%s/%s.mode[%s].cost", inst.ID, task.ID, m.ID)

				values := []int{1}
				if weight > 0 {
					values = []int{1, weight + 1}
				}
				term := model.NewVariableWithName(minikanren.NewBitSetDomainFromValues(weight+1, values), name)
				weightConst := constVariable(model, weight+1, name+".weightConst")
				eq, err := minikanren.NewEqualityReified(term, weightConst, tv.ModeSelected[i])
				if err != nil {
					return nil, fmt.Errorf("phase3.ApplyCostObjective: %s: %w", name, err)
				}
				model.AddConstraint(eq)

				terms = append(terms, term)
				shift++
				maxTotal += weight + 1
			}
		}
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("phase3.ApplyCostObjective: problem has no task modes")
	}

	total := model.NewVariableWithName(minikanren.NewBitSetDomain(maxTotal), "objective.totalCost")
	sum, err := minikanren.NewBoundsSum(terms, total)
	if err != nil {
		return nil, fmt.Errorf("phase3.ApplyCostObjective: %w", err)
	}
	model.AddConstraint(sum)
	return &ShiftedObjective{Variable: total, Shift: shift}, nil
}

// offsetVariable creates a fresh variable constrained to equal src+offset.
// Duplicated locally from phase1/phase2's own unexported helper of the
// same shape.
func offsetVariable(model *minikanren.Model, src *minikanren.FDVariable, offset int, name string) (*minikanren.FDVariable, error) {
	dst := model.NewVariableWithName(
		minikanren.NewBitSetDomain(src.Domain().MaxValue()+offset),
		name,
	)
	arith, err := minikanren.NewArithmetic(src, dst, offset)
	if err != nil {
		return nil, fmt.Errorf("phase3.offsetVariable: %w", err)
	}
	model.AddConstraint(arith)
	return dst, nil
}

// constVariable creates a fresh variable pinned to a single value.
func constVariable(model *minikanren.Model, value int, name string) *minikanren.FDVariable {
	return model.NewVariableWithName(minikanren.NewBitSetDomainFromValues(value, []int{value}), name)
}
