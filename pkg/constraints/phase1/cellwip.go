package phase1

import (
	"fmt"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/pkg/cpsolver"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/varfactory"
)

// ApplyWorkCellWIP enforces, for every work cell with a declared WIP limit,
// that no more than that many tasks occupy the cell's machines
// simultaneously (spec §4.4 "Work-cell WIP"). Cells with no WIP limit are
// skipped entirely. As with machine capacity, each (instance, task) is
// decomposed per candidate mode so the entry's duration is a plain int.
func ApplyWorkCellWIP(model *minikanren.Model, f *varfactory.Factory, p *problem.Problem) error {
	cellOf := make(map[string]string, len(p.Machines)) // machineID -> cellID
	for _, m := range p.Machines {
		cellOf[m.ID] = m.CellID
	}

	wipLimit := make(map[string]int, len(p.Cells))
	for _, c := range p.Cells {
		if c.WipLimit != nil {
			wipLimit[c.ID] = *c.WipLimit
		}
	}
	if len(wipLimit) == 0 {
		return nil
	}

	entries := make(map[string]*cumulativeEntries, len(wipLimit))
	for cellID, limit := range wipLimit {
		entries[cellID] = &cumulativeEntries{capacity: limit}
	}

	for _, inst := range p.Instances {
		for _, task := range p.Template.Tasks {
			tv := f.Vars(inst.ID, task.ID)
			for i, m := range task.Modes {
				cellID, ok := cellOf[m.MachineID]
				if !ok {
					return fmt.Errorf("phase1.ApplyWorkCellWIP: mode %s references machine %s with no known cell", m.ID, m.MachineID)
				}
				e, tracked := entries[cellID]
				if !tracked {
					continue // cell has no WIP limit
				}
				e.append(tv.Start, m.DurationUnits, 1, tv.ModeSelected[i])
			}
		}
	}

	for cellID, e := range entries {
		if len(e.starts) == 0 {
			continue
		}
		c, err := cpsolver.NewOptionalCumulative(e.starts, e.durations, e.demands, e.presence, e.capacity)
		if err != nil {
			return fmt.Errorf("phase1.ApplyWorkCellWIP: cell %s: %w", cellID, err)
		}
		model.AddConstraint(c)
	}
	return nil
}
