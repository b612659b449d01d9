package phase2

import (
	"fmt"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/timeunit"
	"github.com/gitrdm/templatesched/pkg/varfactory"
)

// unitsPerDay is the number of internal time units in one calendar day.
const unitsPerDay = (24 * 60) / timeunit.UnitMinutes

// ApplyCalendarAvailability enforces that no task occupies a machine (or
// any machine in a calendared work cell) during one of that calendar's
// unavailable intervals, and that no task occupies a machine during one
// of its own declared maintenance windows (spec §4.4 "Calendar
// unavailability"). Day 0 of the horizon is treated as day-of-week 0 of
// WorkingDaysMask; aligning the horizon's actual start date to a real
// calendar day is a loader-boundary concern (spec §4.7), not this
// package's.
func ApplyCalendarAvailability(model *minikanren.Model, f *varfactory.Factory, p *problem.Problem) error {
	calendarByID := make(map[string]*problem.Calendar, len(p.Calendars))
	for i := range p.Calendars {
		calendarByID[p.Calendars[i].ID] = &p.Calendars[i]
	}

	cellMachines := make(map[string][]string, len(p.Cells))
	for _, m := range p.Machines {
		cellMachines[m.CellID] = append(cellMachines[m.CellID], m.ID)
	}

	for _, m := range p.Machines {
		windows := make([]problem.Interval, 0, len(m.MaintenanceWindows))
		windows = append(windows, m.MaintenanceWindows...)
		if m.CalendarID != nil {
			cal, ok := calendarByID[*m.CalendarID]
			if !ok {
				return fmt.Errorf("phase2.ApplyCalendarAvailability: machine %s references unknown calendar %s", m.ID, *m.CalendarID)
			}
			windows = append(windows, calendarUnavailableIntervals(cal, f.Horizon)...)
		}
		if len(windows) == 0 {
			continue
		}
		if err := applyUnavailableWindows(model, f, p, m.ID, windows); err != nil {
			return fmt.Errorf("phase2.ApplyCalendarAvailability: machine %s: %w", m.ID, err)
		}
	}

	for _, cell := range p.Cells {
		if cell.CalendarID == nil {
			continue
		}
		cal, ok := calendarByID[*cell.CalendarID]
		if !ok {
			return fmt.Errorf("phase2.ApplyCalendarAvailability: cell %s references unknown calendar %s", cell.ID, *cell.CalendarID)
		}
		windows := calendarUnavailableIntervals(cal, f.Horizon)
		if len(windows) == 0 {
			continue
		}
		for _, inst := range p.Instances {
			for _, task := range p.Template.Tasks {
				tv := f.Vars(inst.ID, task.ID)
				var presences []*minikanren.FDVariable
				for _, machineID := range cellMachines[cell.ID] {
					if b, ok := tv.AssignedMachine[machineID]; ok {
						presences = append(presences, b)
					}
				}
				if len(presences) == 0 {
					continue
				}
				name := fmt.Sprintf("%s/%s@cell[%s]", inst.ID, task.ID, cell.ID)
				inCell, err := orBool(model, presences, name+".inCell")
				if err != nil {
					return fmt.Errorf("phase2.ApplyCalendarAvailability: cell %s: %w", cell.ID, err)
				}
				for wi, w := range windows {
					if err := avoidFixedInterval(model, tv, inCell, w, fmt.Sprintf("%s.window[%d]", name, wi)); err != nil {
						return fmt.Errorf("phase2.ApplyCalendarAvailability: cell %s: %w", cell.ID, err)
					}
				}
			}
		}
	}
	return nil
}

// applyUnavailableWindows enforces, for every (instance, task) that may
// run on machineID, that the task avoids every window in windows whenever
// it is actually assigned there.
func applyUnavailableWindows(model *minikanren.Model, f *varfactory.Factory, p *problem.Problem, machineID string, windows []problem.Interval) error {
	for _, inst := range p.Instances {
		for _, task := range p.Template.Tasks {
			tv := f.Vars(inst.ID, task.ID)
			presence, ok := tv.AssignedMachine[machineID]
			if !ok {
				continue
			}
			for wi, w := range windows {
				name := fmt.Sprintf("%s/%s@%s.window[%d]", inst.ID, task.ID, machineID, wi)
				if err := avoidFixedInterval(model, tv, presence, w, name); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// avoidFixedInterval enforces that whenever presence holds, tv's
// [Start, End) interval falls entirely before or entirely after the
// fixed window w.
func avoidFixedInterval(model *minikanren.Model, tv varfactory.TaskVars, presence *minikanren.FDVariable, w problem.Interval, name string) error {
	windowStart := varfactory.ToDomainValue(w.StartUnit)
	windowEnd := varfactory.ToDomainValue(w.EndUnit)

	startConst := constVariable(model, windowStart, name+".windowStart")
	beforeIneq, err := minikanren.NewInequality(tv.End, startConst, minikanren.LessEqual)
	if err != nil {
		return err
	}
	before := model.NewVariableWithName(varfactory.NewBoolDomain(), name+".before")
	beforeReified, err := minikanren.NewReifiedConstraint(beforeIneq, before)
	if err != nil {
		return err
	}
	model.AddConstraint(beforeReified)

	endConst := constVariable(model, windowEnd, name+".windowEnd")
	afterIneq, err := minikanren.NewInequality(endConst, tv.Start, minikanren.LessEqual)
	if err != nil {
		return err
	}
	after := model.NewVariableWithName(varfactory.NewBoolDomain(), name+".after")
	afterReified, err := minikanren.NewReifiedConstraint(afterIneq, after)
	if err != nil {
		return err
	}
	model.AddConstraint(afterReified)

	avoids, err := orBool(model, []*minikanren.FDVariable{before, after}, name+".avoids")
	if err != nil {
		return err
	}
	impl, err := minikanren.NewInequality(presence, avoids, minikanren.LessEqual)
	if err != nil {
		return err
	}
	model.AddConstraint(impl)
	return nil
}

// calendarUnavailableIntervals expands a Calendar's working-day pattern
// into concrete unavailable [start, end) windows covering [0, horizon).
func calendarUnavailableIntervals(cal *problem.Calendar, horizon int) []problem.Interval {
	var windows []problem.Interval
	for dayStart := 0; dayStart < horizon; dayStart += unitsPerDay {
		dayOfWeek := uint((dayStart / unitsPerDay) % 7)
		dayEnd := dayStart + unitsPerDay
		if dayEnd > horizon {
			dayEnd = horizon
		}
		if cal.WorkingDaysMask&(uint8(1)<<dayOfWeek) == 0 {
			windows = append(windows, problem.Interval{StartUnit: dayStart, EndUnit: dayEnd})
			continue
		}
		if cal.DefaultStartUnit > 0 {
			windows = append(windows, problem.Interval{StartUnit: dayStart, EndUnit: dayStart + cal.DefaultStartUnit})
		}
		if cal.DefaultEndUnit < unitsPerDay {
			windows = append(windows, problem.Interval{StartUnit: dayStart + cal.DefaultEndUnit, EndUnit: dayEnd})
		}
	}
	return windows
}
