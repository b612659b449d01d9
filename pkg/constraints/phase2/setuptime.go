package phase2

import (
	"fmt"
	"sort"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/varfactory"
)

// ApplySequenceDependentSetup enforces ordering between pairs of tasks
// that compete for the same machine and have a declared changeover cost
// between them (spec §4.4 "Setup-time transitions"). Only pairs named by
// an explicit SetupTime record are ranked; any other pair sharing the
// machine keeps whatever constant setup/teardown phase1's
// ApplyMachineCapacity already folds into occupancy, and is not
// additionally reordered here -- ranking every pair of tasks on a machine
// is out of scope, since the data model only supplies a transition cost
// for declared (from, to) pairs.
//
// The technique is grounded on the OR-Tools rankTasks pairwise-precedence
// pattern in
// other_examples/24b89834_google-or-tools__ortools-sat-samples-ranking_sample_sat.go.go:
// for each candidate pair, a reified ordering boolean decides which task
// runs first, and the corresponding changeover gap is enforced only when
// both tasks are actually scheduled on that machine. minikanren.NewCircuit
// was considered first, but it forces a Hamiltonian cycle over every node
// with no opt-out for tasks that end up elsewhere (see DESIGN.md), so the
// pairwise form is rebuilt directly from ReifiedConstraint, Inequality,
// and BoolSum instead.
func ApplySequenceDependentSetup(model *minikanren.Model, f *varfactory.Factory, p *problem.Problem) error {
	if len(p.SetupTimes) == 0 {
		return nil
	}

	type edgeKey struct{ from, to, machine string }
	costs := make(map[edgeKey]int, len(p.SetupTimes))
	involvedTasks := make(map[string]map[string]bool) // machineID -> taskID set
	for _, st := range p.SetupTimes {
		costs[edgeKey{st.FromTask, st.ToTask, st.MachineID}] = st.SetupTimeUnits
		if involvedTasks[st.MachineID] == nil {
			involvedTasks[st.MachineID] = make(map[string]bool)
		}
		involvedTasks[st.MachineID][st.FromTask] = true
		involvedTasks[st.MachineID][st.ToTask] = true
	}

	machineIDs := make([]string, 0, len(involvedTasks))
	for machineID := range involvedTasks {
		machineIDs = append(machineIDs, machineID)
	}
	sort.Strings(machineIDs)

	for _, machineID := range machineIDs {
		taskIDs := make([]string, 0, len(involvedTasks[machineID]))
		for taskID := range involvedTasks[machineID] {
			taskIDs = append(taskIDs, taskID)
		}
		sort.Strings(taskIDs)

		type occurrence struct {
			instanceID string
			taskID     string
			vars       varfactory.TaskVars
			presence   *minikanren.FDVariable
		}
		var occurrences []occurrence
		for _, inst := range p.Instances {
			for _, taskID := range taskIDs {
				tv := f.Vars(inst.ID, taskID)
				presence, ok := tv.AssignedMachine[machineID]
				if !ok {
					continue
				}
				occurrences = append(occurrences, occurrence{inst.ID, taskID, tv, presence})
			}
		}

		for i := 0; i < len(occurrences); i++ {
			for j := i + 1; j < len(occurrences); j++ {
				a, b := occurrences[i], occurrences[j]
				if a.instanceID == b.instanceID && a.taskID == b.taskID {
					continue
				}
				fwd, fwdOK := costs[edgeKey{a.taskID, b.taskID, machineID}]
				rev, revOK := costs[edgeKey{b.taskID, a.taskID, machineID}]
				if !fwdOK && !revOK {
					continue
				}
				name := fmt.Sprintf("%s/%s~%s/%s@%s.order", a.instanceID, a.taskID, b.instanceID, b.taskID, machineID)
				if err := applyOrderedPair(model, a.vars, b.vars, a.presence, b.presence, fwd, rev, name); err != nil {
					return fmt.Errorf("phase2.ApplySequenceDependentSetup: %s: %w", name, err)
				}
			}
		}
	}
	return nil
}

// applyOrderedPair enforces, whenever both presenceA and presenceB hold,
// exactly one of:
//
//	end[a] + fwdUnits <= start[b]   (a runs before b)
//	end[b] + revUnits <= start[a]   (b runs before a)
func applyOrderedPair(model *minikanren.Model, a, b varfactory.TaskVars, presenceA, presenceB *minikanren.FDVariable, fwdUnits, revUnits int, name string) error {
	both, err := andBool(model, presenceA, presenceB, name+".bothPresent")
	if err != nil {
		return err
	}

	order := model.NewVariableWithName(varfactory.NewBoolDomain(), name+".aBeforeB")
	notOrder, err := notBool(model, order, name+".bBeforeA")
	if err != nil {
		return err
	}

	gateForward, err := andBool(model, order, both, name+".gateForward")
	if err != nil {
		return err
	}
	gateReverse, err := andBool(model, notOrder, both, name+".gateReverse")
	if err != nil {
		return err
	}

	aEndPlusFwd, err := offsetVariable(model, a.End, fwdUnits, name+".endA+fwd")
	if err != nil {
		return err
	}
	forwardIneq, err := minikanren.NewInequality(aEndPlusFwd, b.Start, minikanren.LessEqual)
	if err != nil {
		return err
	}
	forwardReified, err := minikanren.NewReifiedConstraint(forwardIneq, gateForward)
	if err != nil {
		return err
	}
	model.AddConstraint(forwardReified)

	bEndPlusRev, err := offsetVariable(model, b.End, revUnits, name+".endB+rev")
	if err != nil {
		return err
	}
	reverseIneq, err := minikanren.NewInequality(bEndPlusRev, a.Start, minikanren.LessEqual)
	if err != nil {
		return err
	}
	reverseReified, err := minikanren.NewReifiedConstraint(reverseIneq, gateReverse)
	if err != nil {
		return err
	}
	model.AddConstraint(reverseReified)

	return nil
}
