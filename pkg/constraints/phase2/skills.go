package phase2

import (
	"fmt"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/pkg/problem"
)

// ApplySkillRequirements enforces, for every task skill requirement, that
// at least required_count of the assigned operators are qualified for
// that skill at the required proficiency level or higher (spec §4.4
// "Skill matching", ProficiencyLevel.Satisfies). Unqualified operators may
// still be assigned (ApplyOperatorCounts bounds the total headcount); this
// only floors the qualified subset, matching the data model's
// SkillRequirement.Count field rather than requiring every assignee to
// hold every skill.
func ApplySkillRequirements(model *minikanren.Model, p *problem.Problem, assignments *OperatorAssignments) error {
	if len(p.Operators) == 0 {
		return nil
	}
	for _, inst := range p.Instances {
		for _, task := range p.Template.Tasks {
			if task.IsUnattended || len(task.SkillRequirements) == 0 {
				continue
			}
			for _, req := range task.SkillRequirements {
				qualified := make([]*minikanren.FDVariable, 0, len(p.Operators))
				for _, op := range p.Operators {
					level, has := op.Skills[req.SkillID]
					if !has || !level.Satisfies(req.RequiredLevel) {
						continue
					}
					v, ok := assignments.Get(inst.ID, task.ID, op.ID)
					if !ok {
						return fmt.Errorf("phase2.ApplySkillRequirements: missing assignment variable for %s/%s/%s", inst.ID, task.ID, op.ID)
					}
					qualified = append(qualified, v)
				}
				if len(qualified) == 0 {
					return fmt.Errorf("phase2.ApplySkillRequirements: task %s requires skill %s but no operator is qualified", task.ID, req.SkillID)
				}
				if req.Count > len(qualified) {
					return fmt.Errorf("phase2.ApplySkillRequirements: task %s requires %d operators with skill %s but only %d are qualified", task.ID, req.Count, req.SkillID, len(qualified))
				}
				values := make([]int, 0, len(qualified)-req.Count+1)
				for c := req.Count; c <= len(qualified); c++ {
					values = append(values, c+1)
				}
				total := model.NewVariableWithName(
					minikanren.NewBitSetDomainFromValues(len(qualified)+1, values),
					fmt.Sprintf("%s/%s.skill[%s].count", inst.ID, task.ID, req.SkillID),
				)
				sum, err := minikanren.NewBoolSum(qualified, total)
				if err != nil {
					return fmt.Errorf("phase2.ApplySkillRequirements: %s/%s skill %s: %w", inst.ID, task.ID, req.SkillID, err)
				}
				model.AddConstraint(sum)
			}
		}
	}
	return nil
}
