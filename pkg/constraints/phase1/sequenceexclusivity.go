package phase1

import (
	"fmt"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/pkg/cpsolver"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/varfactory"
)

// ApplySequenceExclusivity enforces, for every sequence resource, that no
// more than max_concurrent_jobs instances hold it at once (spec §4.4
// "Sequence-resource exclusivity"). Per DESIGN.md's Open Question decision,
// exclusive/shared/pooled are modeled uniformly as a capacity-limited
// resource; pooled additionally restricts eligible machines to its declared
// pool, enforced here by forcing ModeSelected false for any mode on a
// machine outside the pool.
//
// Each (instance, task) referencing the resource is decomposed per mode, as
// in ApplyMachineCapacity: the reservation for a given mode spans that
// mode's duration plus the resource's own setup/teardown units, gated by
// that mode's ModeSelected boolean. A template task references at most one
// sequence resource (spec §3 TemplateTask.SequenceID), so this reduces to a
// per-task reservation rather than spanning multiple tasks; spec §4.4's
// "first task to last task" phrasing is the multi-task generalization this
// data model does not need.
func ApplySequenceExclusivity(model *minikanren.Model, f *varfactory.Factory, p *problem.Problem) error {
	byID := make(map[string]*problem.SequenceResource, len(p.SequenceResources))
	for i := range p.SequenceResources {
		byID[p.SequenceResources[i].ID] = &p.SequenceResources[i]
	}

	entries := make(map[string]*cumulativeEntries, len(p.SequenceResources))
	for _, inst := range p.Instances {
		for _, task := range p.Template.Tasks {
			if task.SequenceID == nil {
				continue
			}
			seq, ok := byID[*task.SequenceID]
			if !ok {
				return fmt.Errorf("phase1.ApplySequenceExclusivity: task %s references unknown sequence resource %s", task.ID, *task.SequenceID)
			}
			tv := f.Vars(inst.ID, task.ID)

			pool := poolSet(seq)
			for i, m := range task.Modes {
				if seq.Kind == problem.Pooled && !pool[m.MachineID] {
					forceUnselected(tv.ModeSelected[i])
					continue
				}
				e, ok := entries[seq.ID]
				if !ok {
					e = &cumulativeEntries{capacity: seq.MaxConcurrentJobs}
					entries[seq.ID] = e
				}
				e.append(tv.Start, m.DurationUnits+seq.SetupTimeUnits+seq.TeardownTimeUnits, 1, tv.ModeSelected[i])
			}
		}
	}

	for seqID, e := range entries {
		if len(e.starts) == 0 {
			continue
		}
		c, err := cpsolver.NewOptionalCumulative(e.starts, e.durations, e.demands, e.presence, e.capacity)
		if err != nil {
			return fmt.Errorf("phase1.ApplySequenceExclusivity: sequence %s: %w", seqID, err)
		}
		model.AddConstraint(c)
	}
	return nil
}

func poolSet(seq *problem.SequenceResource) map[string]bool {
	if seq.Kind != problem.Pooled {
		return nil
	}
	set := make(map[string]bool, len(seq.PoolMachineIDs))
	for _, id := range seq.PoolMachineIDs {
		set[id] = true
	}
	return set
}

// forceUnselected pins a mode's selection boolean to false at construction
// time (never during solving -- see FDVariable.SetDomain's own contract),
// so mode-selection's exactly-one constraint must pick a pool-eligible mode
// instead.
func forceUnselected(modeSelected *minikanren.FDVariable) {
	modeSelected.SetDomain(minikanren.NewBitSetDomainFromValues(2, []int{varfactory.BoolFalse}))
}
