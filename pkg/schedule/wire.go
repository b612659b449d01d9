package schedule

import "github.com/gitrdm/templatesched/pkg/timeunit"

// TaskAssignmentWire is one entry of spec §6's "Per-instance-task
// assignments" solution output contract, in wire minutes.
type TaskAssignmentWire struct {
	InstanceID       string   `json:"instance_id"`
	TemplateTaskID   string   `json:"template_task_id"`
	MachineID        string   `json:"machine_id"`
	OperatorIDs      []string `json:"operator_ids"`
	StartMinute      int      `json:"start_minute"`
	EndMinute        int      `json:"end_minute"`
	ModeID           string   `json:"mode_id"`
}

// SequenceReservationWire is spec §6's sequence-reservation wire entry.
type SequenceReservationWire struct {
	SequenceID  string `json:"sequence_id"`
	InstanceID  string `json:"instance_id"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
}

// MetricsWire is spec §6's metrics wire entry.
type MetricsWire struct {
	Status               Status   `json:"status"`
	SolveTimeSeconds      float64  `json:"solve_time_seconds"`
	MakespanMinutes       int      `json:"makespan_minutes"`
	TotalLatenessMinutes  int      `json:"total_lateness_minutes"`
	MaxLatenessMinutes    int      `json:"max_lateness_minutes"`
	ObjectiveValue        int      `json:"objective_value"`
	InstanceCount         int      `json:"instance_count"`
	SpeedupVsBaseline     *float64 `json:"speedup_vs_baseline,omitempty"`
}

// SolutionWire is spec §6's full solution output contract. ScheduleID is
// assigned by pkg/store's persister, not by extraction.
type SolutionWire struct {
	ScheduleID   string                    `json:"schedule_id"`
	Assignments  []TaskAssignmentWire      `json:"assignments"`
	Reservations []SequenceReservationWire `json:"sequence_reservations"`
	Metrics      MetricsWire               `json:"metrics"`
}

// ToWire converts a Solution from internal 15-minute units to the wire
// contract's minute representation. scheduleID is the opaque identifier
// pkg/store's persister assigns; pass "" if the solution has not been
// persisted yet.
func (s *Solution) ToWire(scheduleID string) SolutionWire {
	assignments := make([]TaskAssignmentWire, len(s.Tasks))
	for i, t := range s.Tasks {
		assignments[i] = TaskAssignmentWire{
			InstanceID:     t.InstanceID,
			TemplateTaskID: t.TemplateTaskID,
			MachineID:      t.AssignedMachineID,
			OperatorIDs:    t.AssignedOperatorIDs,
			StartMinute:    timeunit.UnitsToMinutes(t.StartUnit),
			EndMinute:      timeunit.UnitsToMinutes(t.EndUnit),
			ModeID:         t.ModeID,
		}
	}

	reservations := make([]SequenceReservationWire, len(s.Reservations))
	for i, r := range s.Reservations {
		reservations[i] = SequenceReservationWire{
			SequenceID:  r.SequenceID,
			InstanceID:  r.InstanceID,
			StartMinute: timeunit.UnitsToMinutes(r.StartUnit),
			EndMinute:   timeunit.UnitsToMinutes(r.EndUnit),
		}
	}

	return SolutionWire{
		ScheduleID:   scheduleID,
		Assignments:  assignments,
		Reservations: reservations,
		Metrics: MetricsWire{
			Status:               s.Metrics.Status,
			SolveTimeSeconds:      s.Metrics.SolveTimeSeconds,
			MakespanMinutes:       timeunit.UnitsToMinutes(s.Metrics.MakespanUnits),
			TotalLatenessMinutes:  timeunit.UnitsToMinutes(s.Metrics.TotalLatenessUnits),
			MaxLatenessMinutes:    timeunit.UnitsToMinutes(s.Metrics.MaxLatenessUnits),
			ObjectiveValue:        s.Metrics.ObjectiveValue,
			InstanceCount:         s.Metrics.InstanceCount,
			SpeedupVsBaseline:     s.Metrics.SpeedupVsBaseline,
		},
	}
}
