package phase1

import (
	"fmt"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/pkg/cpsolver"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/varfactory"
)

// ApplyMachineCapacity enforces, for every machine, that the number of tasks
// occupying it at any time unit never exceeds its capacity (spec §4.4
// "Machine no-overlap"). A task's mode duration is a decision (not a fixed
// constant), so each task is decomposed into one optional-cumulative entry
// per candidate mode on that machine, gated by that mode's ModeSelected
// boolean: minikanren's Cumulative family takes plain-int durations, and
// per-mode decomposition is the only way to give a variable-duration task a
// constant per-entry duration without extending the engine further (see
// DESIGN.md). Unselected modes contribute nothing to the resource profile.
//
// Setup and teardown are folded into each entry's duration as a constant
// extension per spec §4.4 ("Setup and teardown are modeled by extending the
// interval... on each side"); phase2's sequence-dependent setup-time family
// adds ordering on top of this when a setup-time table exists for the
// machine, rather than replacing it (a documented simplification -- see
// DESIGN.md).
func ApplyMachineCapacity(model *minikanren.Model, f *varfactory.Factory, p *problem.Problem) error {
	byMachine := make(map[string]*problem.Machine, len(p.Machines))
	for i := range p.Machines {
		byMachine[p.Machines[i].ID] = &p.Machines[i]
	}

	entries := make(map[string]*cumulativeEntries, len(p.Machines))
	for _, inst := range p.Instances {
		for _, task := range p.Template.Tasks {
			tv := f.Vars(inst.ID, task.ID)
			for i, m := range task.Modes {
				machine, ok := byMachine[m.MachineID]
				if !ok {
					return fmt.Errorf("phase1.ApplyMachineCapacity: task %s mode %s references unknown machine %s", task.ID, m.ID, m.MachineID)
				}
				e, ok := entries[machine.ID]
				if !ok {
					e = &cumulativeEntries{capacity: machine.Capacity}
					entries[machine.ID] = e
				}
				e.append(tv.Start, m.DurationUnits+machine.SetupTimeUnits+machine.TeardownTimeUnits, 1, tv.ModeSelected[i])
			}
		}
	}

	for machineID, e := range entries {
		if len(e.starts) == 0 {
			continue
		}
		c, err := cpsolver.NewOptionalCumulative(e.starts, e.durations, e.demands, e.presence, e.capacity)
		if err != nil {
			return fmt.Errorf("phase1.ApplyMachineCapacity: machine %s: %w", machineID, err)
		}
		model.AddConstraint(c)
	}
	return nil
}

// cumulativeEntries accumulates the parallel slices cpsolver.NewOptionalCumulative
// expects, shared by every phase1 family that reduces to "one resource with
// presence-gated, per-mode-constant occupancy".
type cumulativeEntries struct {
	starts    []*minikanren.FDVariable
	durations []int
	demands   []int
	presence  []*minikanren.FDVariable
	capacity  int
}

func (e *cumulativeEntries) append(start *minikanren.FDVariable, duration, demand int, presence *minikanren.FDVariable) {
	e.starts = append(e.starts, start)
	e.durations = append(e.durations, duration)
	e.demands = append(e.demands, demand)
	e.presence = append(e.presence, presence)
}
