// Package varfactory creates and indexes the decision variables a solve
// operates over, keyed by (instance, template_task) per spec §4.2. Per
// §9's redesign guidance, keys are dense integers rather than a
// dict-keyed container: each (instance, task) pair is assigned
// `instanceIdx*taskCount + taskIdx`, and variables live in flat slices
// addressed by that index. A small auxiliary map carries human-readable
// names for diagnostics only.
package varfactory

import (
	"fmt"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/internal/errs"
	"github.com/gitrdm/templatesched/pkg/problem"
)

// BoolTrue and BoolFalse are the two values minikanren boolean-style
// variables take, matching the {1=false, 2=true} convention used
// throughout pkg/minikanren's reification and BoolSum constraints.
const (
	BoolFalse = 1
	BoolTrue  = 2
)

// NewBoolDomain returns a fresh boolean domain {1,2}.
func NewBoolDomain() minikanren.Domain {
	return minikanren.NewBitSetDomain(2)
}

// minikanren domains only hold values in [1, MaxValue], but time unit 0 is a
// legitimate earliest-start offset. ToDomainValue/FromDomainValue shift
// every start/end time value by a constant +1 so unit 0 is representable;
// the shift cancels out of every relative constraint (precedence,
// duration links) because both sides of each relation are shifted
// identically, and is undone once at solution extraction (pkg/schedule).
func ToDomainValue(unit int) int   { return unit + 1 }
func FromDomainValue(value int) int { return value - 1 }

// TaskVars holds the decision variables for one (instance, template_task)
// pair.
type TaskVars struct {
	Start    *minikanren.FDVariable
	End      *minikanren.FDVariable
	Duration *minikanren.FDVariable
	// ModeSelected[i] is the boolean for task.Modes[i]; exactly one is
	// true in any solution (enforced by constraints/phase1).
	ModeSelected []*minikanren.FDVariable
	// AssignedMachine maps a machine ID to the boolean meaning "this
	// task runs on that machine" — the OR of the mode booleans mapping
	// to it.
	AssignedMachine map[string]*minikanren.FDVariable
}

// Factory creates and indexes all decision variables for one problem.
type Factory struct {
	Model *minikanren.Model

	instanceIndex map[string]int
	taskIndex     map[string]int
	taskCount     int

	vars  []TaskVars // dense index -> variables
	names map[int]string

	Horizon int
}

// Index returns the dense key for an (instance, task) pair. Panics if
// either id is unknown — a programmer error, since the factory is always
// built from a validated problem.
func (f *Factory) Index(instanceID, taskID string) int {
	ii, ok := f.instanceIndex[instanceID]
	if !ok {
		panic(fmt.Sprintf("varfactory: unknown instance %q", instanceID))
	}
	ti, ok := f.taskIndex[taskID]
	if !ok {
		panic(fmt.Sprintf("varfactory: unknown task %q", taskID))
	}
	return ii*f.taskCount + ti
}

// Vars returns the variables for an (instance, task) pair.
func (f *Factory) Vars(instanceID, taskID string) TaskVars {
	return f.vars[f.Index(instanceID, taskID)]
}

// VarsByIndex returns the variables at a dense index directly, for
// callers iterating the full (instance x task) grid.
func (f *Factory) VarsByIndex(idx int) TaskVars {
	return f.vars[idx]
}

// Name returns the diagnostic name for a dense index.
func (f *Factory) Name(idx int) string {
	return f.names[idx]
}

// New builds a Factory over the given model and problem, tightening each
// start/end domain to [earliestStart+minPredecessorDelay, horizon] per
// spec §4.2. The caller must have already run problem.Validate(); New
// assumes a structurally sound problem and returns *errs.InternalError on
// any internal inconsistency (never *errs.MalformedProblemError — that
// class is the validator's responsibility).
func New(model *minikanren.Model, p *problem.Problem, horizon int) (*Factory, error) {
	tasks := p.Template.Tasks
	taskCount := len(tasks)

	f := &Factory{
		Model:         model,
		instanceIndex: make(map[string]int, len(p.Instances)),
		taskIndex:     make(map[string]int, taskCount),
		taskCount:     taskCount,
		vars:          make([]TaskVars, len(p.Instances)*taskCount),
		names:         make(map[int]string, len(p.Instances)*taskCount),
		Horizon:       horizon,
	}

	for i, inst := range p.Instances {
		f.instanceIndex[inst.ID] = i
	}
	for i, t := range tasks {
		f.taskIndex[t.ID] = i
	}

	minStartOffset, err := minPredecessorDelays(p.Template)
	if err != nil {
		return nil, err
	}

	for _, inst := range p.Instances {
		for _, task := range tasks {
			lowerBound := inst.EarliestStartUnit + minStartOffset[task.ID]
			if lowerBound > horizon {
				lowerBound = horizon
			}
			if err := f.buildTaskVars(inst, task, lowerBound, horizon); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

func (f *Factory) buildTaskVars(inst problem.Instance, task problem.TemplateTask, lowerBound, horizon int) error {
	idx := f.Index(inst.ID, task.ID)
	name := fmt.Sprintf("%s/%s", inst.ID, task.ID)
	f.names[idx] = name

	span := horizon - lowerBound + 1
	if span < 1 {
		return errs.NewInternalError(
			fmt.Sprintf("degenerate start domain for %s: lowerBound=%d horizon=%d", name, lowerBound, horizon),
			nil,
		)
	}
	startDomain := offsetDomain(lowerBound, horizon)
	endDomain := offsetDomain(lowerBound, horizon)

	start := f.Model.NewVariableWithName(startDomain, name+".start")
	end := f.Model.NewVariableWithName(endDomain, name+".end")

	durations := make([]int, 0, len(task.Modes))
	maxDuration := 0
	for _, m := range task.Modes {
		durations = append(durations, m.DurationUnits)
		if m.DurationUnits > maxDuration {
			maxDuration = m.DurationUnits
		}
	}
	duration := f.Model.NewVariableWithName(
		minikanren.NewBitSetDomainFromValues(maxDuration, durations),
		name+".duration",
	)

	modeSelected := make([]*minikanren.FDVariable, len(task.Modes))
	machineBools := make(map[string]*minikanren.FDVariable)
	for i, m := range task.Modes {
		modeSelected[i] = f.Model.NewVariableWithName(NewBoolDomain(), fmt.Sprintf("%s.mode[%s]", name, m.ID))
		if _, ok := machineBools[m.MachineID]; !ok {
			machineBools[m.MachineID] = f.Model.NewVariableWithName(
				NewBoolDomain(), fmt.Sprintf("%s.assigned[%s]", name, m.MachineID),
			)
		}
	}

	f.vars[idx] = TaskVars{
		Start:           start,
		End:             end,
		Duration:        duration,
		ModeSelected:    modeSelected,
		AssignedMachine: machineBools,
	}
	return nil
}

// offsetDomain builds the domain of possible start/end values over
// {lowerBound, ..., horizon} in raw time units, shifted into minikanren's
// 1-indexed domain value space via ToDomainValue.
func offsetDomain(lowerBound, horizon int) minikanren.Domain {
	span := horizon - lowerBound + 1
	values := make([]int, span)
	for i := range values {
		values[i] = ToDomainValue(lowerBound + i)
	}
	return minikanren.NewBitSetDomainFromValues(ToDomainValue(horizon), values)
}

// minPredecessorDelays computes, for each task, the earliest offset at
// which it can start: the longest path from any source task over each
// predecessor's shortest mode duration plus the edge's minimum delay,
// so no start reachable under some mode choice is excluded. Per spec
// §3, a template's
// task_list is already a topologically consistent ordered sequence, so a
// single pass over tasks in position order — accumulating each task's
// offset from its (already-finalized) predecessors' incoming edges —
// yields the longest path without materializing the transitive closure
// or requiring a separate topological sort.
func minPredecessorDelays(t problem.Template) (map[string]int, error) {
	offset := make(map[string]int, len(t.Tasks))
	durationByTaskMin := make(map[string]int, len(t.Tasks))
	for _, task := range t.Tasks {
		offset[task.ID] = 0
		minDur := 0
		for i, m := range task.Modes {
			if i == 0 || m.DurationUnits < minDur {
				minDur = m.DurationUnits
			}
		}
		durationByTaskMin[task.ID] = minDur
	}

	incoming := make(map[string][]problem.Precedence, len(t.Tasks))
	for _, edge := range t.Precedences {
		incoming[edge.SuccessorTaskID] = append(incoming[edge.SuccessorTaskID], edge)
	}

	ordered := make([]problem.TemplateTask, len(t.Tasks))
	copy(ordered, t.Tasks)
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if ordered[j].Position < ordered[i].Position {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}

	for _, task := range ordered {
		best := 0
		for _, edge := range incoming[task.ID] {
			predEnd := offset[edge.PredecessorTaskID] + durationByTaskMin[edge.PredecessorTaskID]
			candidate := predEnd + edge.MinDelayUnits
			if candidate > best {
				best = candidate
			}
		}
		offset[task.ID] = best
	}
	return offset, nil
}
