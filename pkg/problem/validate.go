package problem

import (
	"fmt"
	"sort"

	"github.com/gitrdm/templatesched/internal/errs"
)

// Validate checks the problem for structural defects per spec §4.2/§7:
// duplicate task positions, empty mode lists, non-positive durations,
// precedence cycles, and dangling references. It returns the first
// violation found wrapped as *errs.MalformedProblemError; callers should
// treat any non-nil return as fatal for the current solve.
func (p *Problem) Validate() error {
	if err := p.validateTasks(); err != nil {
		return err
	}
	if err := p.validatePrecedences(); err != nil {
		return err
	}
	if err := p.validateInstances(); err != nil {
		return err
	}
	if err := p.validateResourceReferences(); err != nil {
		return err
	}
	return nil
}

func (p *Problem) validateTasks() error {
	seenPosition := make(map[int]string)
	for _, task := range p.Template.Tasks {
		if prior, ok := seenPosition[task.Position]; ok {
			return errs.NewMalformedProblem("duplicate template task position", prior, task.ID)
		}
		seenPosition[task.Position] = task.ID

		if len(task.Modes) == 0 {
			return errs.NewMalformedProblem("task has empty mode list", task.ID)
		}
		for _, m := range task.Modes {
			if m.DurationUnits < 1 {
				return errs.NewMalformedProblem("mode duration must be >= 1 unit", task.ID, m.ID)
			}
		}
		if task.MinOperators < 1 || task.MinOperators > task.MaxOperators {
			return errs.NewMalformedProblem(
				fmt.Sprintf("invalid operator range [%d,%d]", task.MinOperators, task.MaxOperators),
				task.ID,
			)
		}
	}
	return nil
}

// validatePrecedences checks predecessor != successor and acyclicity via
// topological sort, per §9's explicit redesign guidance: never rely on the
// solver to detect a cycle.
func (p *Problem) validatePrecedences() error {
	taskIDs := make(map[string]bool, len(p.Template.Tasks))
	for _, t := range p.Template.Tasks {
		taskIDs[t.ID] = true
	}

	adjacency := make(map[string][]string)
	inDegree := make(map[string]int)
	for id := range taskIDs {
		inDegree[id] = 0
	}

	for _, edge := range p.Template.Precedences {
		if edge.PredecessorTaskID == edge.SuccessorTaskID {
			return errs.NewMalformedProblem("precedence self-reference", edge.PredecessorTaskID)
		}
		if !taskIDs[edge.PredecessorTaskID] {
			return errs.NewMalformedProblem("precedence references unknown predecessor task", edge.PredecessorTaskID)
		}
		if !taskIDs[edge.SuccessorTaskID] {
			return errs.NewMalformedProblem("precedence references unknown successor task", edge.SuccessorTaskID)
		}
		if edge.MaxDelayUnits != nil && *edge.MaxDelayUnits < edge.MinDelayUnits {
			return errs.NewMalformedProblem(
				"precedence max_delay below min_delay",
				edge.PredecessorTaskID, edge.SuccessorTaskID,
			)
		}
		adjacency[edge.PredecessorTaskID] = append(adjacency[edge.PredecessorTaskID], edge.SuccessorTaskID)
		inDegree[edge.SuccessorTaskID]++
	}

	if _, err := topologicalOrder(taskIDs, adjacency, inDegree); err != nil {
		return err
	}
	return nil
}

// topologicalOrder runs Kahn's algorithm and returns an error naming the
// cyclic remainder if the graph is not a DAG.
func topologicalOrder(nodes map[string]bool, adjacency map[string][]string, inDegree map[string]int) ([]string, error) {
	queue := make([]string, 0, len(nodes))
	for id := range nodes {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue) // deterministic order, matching §8 property 10

	remaining := make(map[string]int, len(inDegree))
	for k, v := range inDegree {
		remaining[k] = v
	}

	order := make([]string, 0, len(nodes))
	for len(queue) > 0 {
		sort.Strings(queue)
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		successors := append([]string(nil), adjacency[id]...)
		sort.Strings(successors)
		for _, next := range successors {
			remaining[next]--
			if remaining[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(nodes) {
		cyclic := make([]string, 0)
		for id, deg := range remaining {
			if deg > 0 {
				cyclic = append(cyclic, id)
			}
		}
		sort.Strings(cyclic)
		return nil, errs.NewMalformedProblem("precedence graph contains a cycle", cyclic...)
	}
	return order, nil
}

func (p *Problem) validateInstances() error {
	for _, inst := range p.Instances {
		if inst.TemplateID != p.Template.ID {
			return errs.NewMalformedProblem("instance references unknown template", inst.ID, inst.TemplateID)
		}
		if inst.EarliestStartUnit < 0 {
			return errs.NewMalformedProblem("instance earliest_start_unit must be >= 0", inst.ID)
		}
		if inst.DueUnit != nil && *inst.DueUnit < inst.EarliestStartUnit {
			return errs.NewMalformedProblem("instance due_unit precedes earliest_start_unit", inst.ID)
		}
	}
	return nil
}

func (p *Problem) validateResourceReferences() error {
	machineIDs := make(map[string]bool, len(p.Machines))
	for _, m := range p.Machines {
		machineIDs[m.ID] = true
	}
	cellIDs := make(map[string]bool, len(p.Cells))
	for _, c := range p.Cells {
		cellIDs[c.ID] = true
	}
	skillIDs := make(map[string]bool, len(p.Skills))
	for _, s := range p.Skills {
		skillIDs[s.ID] = true
	}
	sequenceIDs := make(map[string]bool, len(p.SequenceResources))
	for _, s := range p.SequenceResources {
		sequenceIDs[s.ID] = true
	}

	for _, m := range p.Machines {
		if !cellIDs[m.CellID] {
			return errs.NewMalformedProblem("machine references unknown work cell", m.ID, m.CellID)
		}
	}

	for _, task := range p.Template.Tasks {
		for _, m := range task.Modes {
			if !machineIDs[m.MachineID] {
				return errs.NewMalformedProblem("mode references unknown machine", task.ID, m.MachineID)
			}
		}
		for _, req := range task.SkillRequirements {
			if !skillIDs[req.SkillID] {
				return errs.NewMalformedProblem("skill requirement references unknown skill", task.ID, req.SkillID)
			}
		}
		if task.SequenceID != nil && !sequenceIDs[*task.SequenceID] {
			return errs.NewMalformedProblem("task references unknown sequence resource", task.ID, *task.SequenceID)
		}
	}

	for _, st := range p.SetupTimes {
		if !machineIDs[st.MachineID] {
			return errs.NewMalformedProblem("setup time references unknown machine", st.MachineID)
		}
	}

	for _, op := range p.Operators {
		for skillID := range op.Skills {
			if !skillIDs[skillID] {
				return errs.NewMalformedProblem("operator references unknown skill", op.ID, skillID)
			}
		}
	}

	return nil
}
