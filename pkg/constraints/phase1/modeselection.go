// Package phase1 applies the timing and capacity constraint families of
// §4.3, in their fixed order: mode selection, duration-from-mode,
// precedence, machine capacity, work-cell WIP, and sequence-resource
// exclusivity. Every function here takes a built varfactory.Factory and
// adds constraints to its underlying Model; none of them run a solve.
package phase1

import (
	"fmt"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/varfactory"
)

// ApplyModeSelection constrains each (instance, task) pair to select
// exactly one of its candidate modes, and links each machine's presence
// boolean to the OR of the mode booleans that target it.
func ApplyModeSelection(model *minikanren.Model, f *varfactory.Factory, p *problem.Problem) error {
	for _, inst := range p.Instances {
		for _, task := range p.Template.Tasks {
			tv := f.Vars(inst.ID, task.ID)

			exactlyOne := model.NewVariableWithName(
				minikanren.NewBitSetDomainFromValues(2, []int{2}),
				fmt.Sprintf("%s/%s.modeCount", inst.ID, task.ID),
			)
			boolSum, err := minikanren.NewBoolSum(tv.ModeSelected, exactlyOne)
			if err != nil {
				return fmt.Errorf("phase1.ApplyModeSelection: task %s: %w", task.ID, err)
			}
			model.AddConstraint(boolSum)

			byMachine := make(map[string][]*minikanren.FDVariable)
			for i, m := range task.Modes {
				byMachine[m.MachineID] = append(byMachine[m.MachineID], tv.ModeSelected[i])
			}
			for machineID, subset := range byMachine {
				machineBool, ok := tv.AssignedMachine[machineID]
				if !ok {
					return fmt.Errorf("phase1.ApplyModeSelection: task %s: no assignment boolean for machine %s", task.ID, machineID)
				}
				sub, err := minikanren.NewBoolSum(subset, machineBool)
				if err != nil {
					return fmt.Errorf("phase1.ApplyModeSelection: task %s machine %s: %w", task.ID, machineID, err)
				}
				model.AddConstraint(sub)
			}
		}
	}
	return nil
}
