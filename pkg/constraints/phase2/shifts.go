package phase2

import (
	"fmt"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/varfactory"
)

// ApplyOperatorShifts enforces that whenever an operator is assigned to a
// task, the task's [start, end) interval falls entirely within one of
// that operator's declared shift windows (spec §4.4 "Shift and overtime
// limits"). Operators with no declared shifts are treated as unrestricted
// availability.
//
// The implication "assigned => within shift" is a plain Inequality on the
// two booleans in the {1=false,2=true} encoding: assigned <= within
// forces within=true whenever assigned=true, and leaves within free when
// assigned=false. This needs no reification of its own, since it is
// already a linear relation between two existing boolean variables.
func ApplyOperatorShifts(model *minikanren.Model, f *varfactory.Factory, p *problem.Problem, assignments *OperatorAssignments) error {
	if len(p.Operators) == 0 {
		return nil
	}
	for _, inst := range p.Instances {
		for _, task := range p.Template.Tasks {
			if task.IsUnattended {
				continue
			}
			tv := f.Vars(inst.ID, task.ID)
			for _, op := range p.Operators {
				if len(op.Shifts) == 0 {
					continue
				}
				assigned, ok := assignments.Get(inst.ID, task.ID, op.ID)
				if !ok {
					return fmt.Errorf("phase2.ApplyOperatorShifts: missing assignment variable for %s/%s/%s", inst.ID, task.ID, op.ID)
				}
				name := fmt.Sprintf("%s/%s/%s.shift", inst.ID, task.ID, op.ID)
				within, err := taskWithinAnyInterval(model, tv, op.Shifts, name)
				if err != nil {
					return fmt.Errorf("phase2.ApplyOperatorShifts: %s: %w", name, err)
				}
				impl, err := minikanren.NewInequality(assigned, within, minikanren.LessEqual)
				if err != nil {
					return fmt.Errorf("phase2.ApplyOperatorShifts: %s: %w", name, err)
				}
				model.AddConstraint(impl)
			}
		}
	}
	return nil
}

// taskWithinAnyInterval returns a boolean true iff tv's [Start, End)
// falls within at least one of the given (raw-unit) intervals.
func taskWithinAnyInterval(model *minikanren.Model, tv varfactory.TaskVars, intervals []problem.Interval, name string) (*minikanren.FDVariable, error) {
	perInterval := make([]*minikanren.FDVariable, len(intervals))
	for i, w := range intervals {
		b, err := withinInterval(model, tv, w, fmt.Sprintf("%s[%d]", name, i))
		if err != nil {
			return nil, err
		}
		perInterval[i] = b
	}
	return orBool(model, perInterval, name+".any")
}

// withinInterval returns a boolean true iff tv.Start >= w.StartUnit and
// tv.End <= w.EndUnit, both sides shifted into domain-value space to
// match Start/End's own varfactory +1 shift.
func withinInterval(model *minikanren.Model, tv varfactory.TaskVars, w problem.Interval, name string) (*minikanren.FDVariable, error) {
	startBound := varfactory.ToDomainValue(w.StartUnit)
	endBound := varfactory.ToDomainValue(w.EndUnit)

	startConst := constVariable(model, startBound, name+".startBound")
	geIneq, err := minikanren.NewInequality(startConst, tv.Start, minikanren.LessEqual)
	if err != nil {
		return nil, err
	}
	geStart := model.NewVariableWithName(varfactory.NewBoolDomain(), name+".geStart")
	geReified, err := minikanren.NewReifiedConstraint(geIneq, geStart)
	if err != nil {
		return nil, err
	}
	model.AddConstraint(geReified)

	endConst := constVariable(model, endBound, name+".endBound")
	leIneq, err := minikanren.NewInequality(tv.End, endConst, minikanren.LessEqual)
	if err != nil {
		return nil, err
	}
	leEnd := model.NewVariableWithName(varfactory.NewBoolDomain(), name+".leEnd")
	leReified, err := minikanren.NewReifiedConstraint(leIneq, leEnd)
	if err != nil {
		return nil, err
	}
	model.AddConstraint(leReified)

	return andBool(model, geStart, leEnd, name+".within")
}
