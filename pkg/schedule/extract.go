package schedule

import (
	"fmt"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/internal/errs"
	"github.com/gitrdm/templatesched/pkg/builder"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/varfactory"
)

// Extract reads a complete solution vector (indexed by minikanren variable
// ID, as returned by Solver.Solve/SolveOptimalWithOptions) back into the
// solution entities of spec §3, per §8 testable property 10
// (determinism): Extract only ever walks p.Instances and
// p.Template.Tasks, both stored in a fixed order already, so calling it
// twice on the same (problem, result, values) triple yields
// byte-identical output.
//
// Metrics.Status, Metrics.SolveTimeSeconds, and Metrics.SpeedupVsBaseline
// are left at their zero values; pkg/solve fills them in once it knows
// the wall-clock outcome.
func Extract(p *problem.Problem, result *builder.Result, values []int) (*Solution, error) {
	if result.Factory == nil {
		return nil, errs.NewInternalError("schedule.Extract: builder.Result has no Factory", nil)
	}

	seqByID := make(map[string]*problem.SequenceResource, len(p.SequenceResources))
	for i := range p.SequenceResources {
		seqByID[p.SequenceResources[i].ID] = &p.SequenceResources[i]
	}

	var tasks []ScheduledTask
	var reservations []SequenceReservation
	instanceCompletion := make(map[string]int, len(p.Instances))

	for _, inst := range p.Instances {
		for _, task := range p.Template.Tasks {
			tv := result.Factory.Vars(inst.ID, task.ID)

			modeIdx := -1
			for i, m := range task.Modes {
				sel, err := boundBool(values, tv.ModeSelected[i])
				if err != nil {
					return nil, fmt.Errorf("schedule.Extract: %s/%s mode %s: %w", inst.ID, task.ID, m.ID, err)
				}
				if sel {
					modeIdx = i
					break
				}
			}
			if modeIdx == -1 {
				return nil, errs.NewInternalError(
					fmt.Sprintf("schedule.Extract: %s/%s has no mode selected in a complete solution", inst.ID, task.ID),
					nil,
				)
			}
			mode := task.Modes[modeIdx]

			startUnit, err := boundValue(values, tv.Start)
			if err != nil {
				return nil, fmt.Errorf("schedule.Extract: %s/%s start: %w", inst.ID, task.ID, err)
			}
			endUnit, err := boundValue(values, tv.End)
			if err != nil {
				return nil, fmt.Errorf("schedule.Extract: %s/%s end: %w", inst.ID, task.ID, err)
			}
			startUnit = varfactory.FromDomainValue(startUnit)
			endUnit = varfactory.FromDomainValue(endUnit)

			var operatorIDs []string
			if result.Assignments != nil && !task.IsUnattended {
				for _, op := range p.Operators {
					v, ok := result.Assignments.Get(inst.ID, task.ID, op.ID)
					if !ok {
						continue
					}
					assigned, err := boundBool(values, v)
					if err != nil {
						return nil, fmt.Errorf("schedule.Extract: %s/%s operator %s: %w", inst.ID, task.ID, op.ID, err)
					}
					if assigned {
						operatorIDs = append(operatorIDs, op.ID)
					}
				}
			}

			tasks = append(tasks, ScheduledTask{
				InstanceID:          inst.ID,
				TemplateTaskID:      task.ID,
				AssignedMachineID:   mode.MachineID,
				AssignedOperatorIDs: operatorIDs,
				StartUnit:           startUnit,
				EndUnit:             endUnit,
				ModeID:              mode.ID,
			})

			if endUnit > instanceCompletion[inst.ID] {
				instanceCompletion[inst.ID] = endUnit
			}

			if task.SequenceID != nil {
				seq, ok := seqByID[*task.SequenceID]
				if !ok {
					return nil, errs.NewInternalError(
						fmt.Sprintf("schedule.Extract: %s/%s references unknown sequence resource %s", inst.ID, task.ID, *task.SequenceID),
						nil,
					)
				}
				reservations = append(reservations, SequenceReservation{
					SequenceID: seq.ID,
					InstanceID: inst.ID,
					StartUnit:  startUnit,
					EndUnit:    startUnit + mode.DurationUnits + seq.SetupTimeUnits + seq.TeardownTimeUnits,
				})
			}
		}
	}

	makespan := 0
	for _, end := range instanceCompletion {
		if end > makespan {
			makespan = end
		}
	}

	totalLateness, maxLateness := 0, 0
	for _, inst := range p.Instances {
		if inst.DueUnit == nil {
			continue
		}
		lateness := instanceCompletion[inst.ID] - *inst.DueUnit
		if lateness < 0 {
			lateness = 0
		}
		totalLateness += lateness
		if lateness > maxLateness {
			maxLateness = lateness
		}
	}

	objective := 0
	if result.Objective != nil {
		raw, err := boundValue(values, result.Objective)
		if err != nil {
			return nil, fmt.Errorf("schedule.Extract: objective: %w", err)
		}
		objective = raw - result.ObjectiveShift
	}

	return &Solution{
		Tasks:        tasks,
		Reservations: reservations,
		Metrics: Metrics{
			MakespanUnits:      makespan,
			TotalLatenessUnits: totalLateness,
			MaxLatenessUnits:   maxLateness,
			ObjectiveValue:     objective,
			InstanceCount:      len(p.Instances),
		},
	}, nil
}

func boundValue(values []int, v *minikanren.FDVariable) (int, error) {
	id := v.ID()
	if id < 0 || id >= len(values) {
		return 0, fmt.Errorf("variable %s id %d out of range for solution of length %d", v.Name(), id, len(values))
	}
	return values[id], nil
}

func boundBool(values []int, v *minikanren.FDVariable) (bool, error) {
	val, err := boundValue(values, v)
	if err != nil {
		return false, err
	}
	return val == varfactory.BoolTrue, nil
}
