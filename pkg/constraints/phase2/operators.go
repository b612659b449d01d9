package phase2

import (
	"fmt"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/varfactory"
)

// OperatorAssignments holds one boolean FD variable per (instance, task,
// operator) triple for every non-unattended template task, indicating
// whether that operator works the task. These are phase2-local decision
// variables: operator staffing only exists when EnablePhase2 is set, so
// they live alongside the constraints that use them rather than in
// varfactory.TaskVars.
type OperatorAssignments struct {
	vars map[string]*minikanren.FDVariable
}

func assignmentKey(instanceID, taskID, operatorID string) string {
	return instanceID + "/" + taskID + "/" + operatorID
}

// Get returns the assignment boolean for (instanceID, taskID, operatorID),
// or false if that operator was never given a variable for that task (the
// task is unattended, or there are no operators in the problem).
func (a *OperatorAssignments) Get(instanceID, taskID, operatorID string) (*minikanren.FDVariable, bool) {
	v, ok := a.vars[assignmentKey(instanceID, taskID, operatorID)]
	return v, ok
}

// BuildOperatorAssignments creates the assignment booleans described by
// OperatorAssignments. Call once per solve and thread the result into
// ApplyOperatorCounts, ApplySkillRequirements, and ApplyOperatorShifts.
func BuildOperatorAssignments(model *minikanren.Model, p *problem.Problem) *OperatorAssignments {
	out := &OperatorAssignments{vars: make(map[string]*minikanren.FDVariable)}
	if len(p.Operators) == 0 {
		return out
	}
	for _, inst := range p.Instances {
		for _, task := range p.Template.Tasks {
			if task.IsUnattended {
				continue
			}
			for _, op := range p.Operators {
				key := assignmentKey(inst.ID, task.ID, op.ID)
				out.vars[key] = model.NewVariableWithName(varfactory.NewBoolDomain(), key+".assigned")
			}
		}
	}
	return out
}

// ApplyOperatorCounts enforces min_operators <= (assigned operators) <=
// max_operators for every attended (instance, task) pair (spec §4.4
// "Operator assignment").
func ApplyOperatorCounts(model *minikanren.Model, p *problem.Problem, assignments *OperatorAssignments) error {
	if len(p.Operators) == 0 {
		return nil
	}
	for _, inst := range p.Instances {
		for _, task := range p.Template.Tasks {
			if task.IsUnattended {
				continue
			}
			vars := make([]*minikanren.FDVariable, 0, len(p.Operators))
			for _, op := range p.Operators {
				v, ok := assignments.Get(inst.ID, task.ID, op.ID)
				if !ok {
					return fmt.Errorf("phase2.ApplyOperatorCounts: missing assignment variable for %s/%s/%s", inst.ID, task.ID, op.ID)
				}
				vars = append(vars, v)
			}
			values := make([]int, 0, task.MaxOperators-task.MinOperators+1)
			for c := task.MinOperators; c <= task.MaxOperators; c++ {
				values = append(values, c+1)
			}
			total := model.NewVariableWithName(
				minikanren.NewBitSetDomainFromValues(len(p.Operators)+1, values),
				fmt.Sprintf("%s/%s.operatorCount", inst.ID, task.ID),
			)
			sum, err := minikanren.NewBoolSum(vars, total)
			if err != nil {
				return fmt.Errorf("phase2.ApplyOperatorCounts: %s/%s: %w", inst.ID, task.ID, err)
			}
			model.AddConstraint(sum)
		}
	}
	return nil
}
