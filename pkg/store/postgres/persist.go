package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/gitrdm/templatesched/internal/errs"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/schedule"
)

// StoreSchedule implements store.Persister. It writes solved_schedules,
// scheduled_tasks, and sequence_reservations inside a single transaction
// so a partially-written schedule is never visible to readers, per spec
// §4.7's "all-or-nothing" requirement and the source's own
// WithTransaction commit/rollback discipline.
func (s *Store) StoreSchedule(ctx context.Context, p *problem.Problem, sol *schedule.Solution) (string, error) {
	scheduleID := uuid.NewString()

	err := s.withTransaction(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO solved_schedules
				(id, template_id, status, solve_time_seconds, makespan_units,
				 total_lateness_units, max_lateness_units, objective_value,
				 instance_count, speedup_vs_baseline)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			scheduleID, p.Template.ID, string(sol.Metrics.Status), sol.Metrics.SolveTimeSeconds,
			sol.Metrics.MakespanUnits, sol.Metrics.TotalLatenessUnits, sol.Metrics.MaxLatenessUnits,
			sol.Metrics.ObjectiveValue, sol.Metrics.InstanceCount, sol.Metrics.SpeedupVsBaseline)
		if err != nil {
			return err
		}

		for _, t := range sol.Tasks {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO scheduled_tasks
					(schedule_id, instance_id, template_task_id, assigned_machine_id,
					 assigned_operator_ids, start_unit, end_unit, mode_id)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				scheduleID, t.InstanceID, t.TemplateTaskID, t.AssignedMachineID,
				pq.Array(t.AssignedOperatorIDs), t.StartUnit, t.EndUnit, t.ModeID)
			if err != nil {
				return err
			}
		}

		for _, r := range sol.Reservations {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO sequence_reservations
					(schedule_id, sequence_id, instance_id, start_unit, end_unit)
				VALUES ($1, $2, $3, $4, $5)`,
				scheduleID, r.SequenceID, r.InstanceID, r.StartUnit, r.EndUnit)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return "", errs.NewStorageFailure("store_schedule", err)
	}

	s.logger.Info("schedule stored",
		zap.String("schedule_id", scheduleID),
		zap.String("template_id", p.Template.ID),
		zap.Int("task_count", len(sol.Tasks)),
	)

	return scheduleID, nil
}
