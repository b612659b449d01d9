package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"

	"github.com/gitrdm/templatesched/internal/errs"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/store"
)

type templateRow struct {
	ID                 string         `db:"id"`
	Name               string         `db:"name"`
	NumSearchWorkers   int            `db:"num_search_workers"`
	MaxTimeSeconds     float64        `db:"max_time_seconds"`
	LinearizationLevel int            `db:"linearization_level"`
	SearchBranching    string         `db:"search_branching"`
	EnablePhase2       bool           `db:"enable_phase2"`
	EnablePhase3       bool           `db:"enable_phase3"`
	ObjectiveWeights   []byte         `db:"objective_weights"`
	ObjectiveLexOrder  pq.StringArray `db:"objective_lex_order"`
}

type taskRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Position     int            `db:"position"`
	IsUnattended bool           `db:"is_unattended"`
	IsSetup      bool           `db:"is_setup"`
	SequenceID   sql.NullString `db:"sequence_id"`
	MinOperators int            `db:"min_operators"`
	MaxOperators int            `db:"max_operators"`
}

type modeRow struct {
	ID            string `db:"id"`
	TaskID        string `db:"task_id"`
	MachineID     string `db:"machine_id"`
	DurationUnits int    `db:"duration_units"`
}

type skillReqRow struct {
	TaskID        string `db:"task_id"`
	SkillID       string `db:"skill_id"`
	RequiredLevel int    `db:"required_level"`
	Headcount     int    `db:"headcount"`
}

type precedenceRow struct {
	PredecessorTaskID string        `db:"predecessor_task_id"`
	SuccessorTaskID   string        `db:"successor_task_id"`
	MinDelayUnits     int           `db:"min_delay_units"`
	MaxDelayUnits     sql.NullInt64 `db:"max_delay_units"`
}

type instanceRow struct {
	ID                string        `db:"id"`
	TemplateID        string        `db:"template_id"`
	Priority          int           `db:"priority"`
	EarliestStartUnit int           `db:"earliest_start_unit"`
	DueUnit           sql.NullInt64 `db:"due_unit"`
}

type machineRow struct {
	ID                string         `db:"id"`
	CellID            sql.NullString `db:"cell_id"`
	Capacity          int            `db:"capacity"`
	CostPerHour       float64        `db:"cost_per_hour"`
	SetupTimeUnits    int            `db:"setup_time_units"`
	TeardownTimeUnits int            `db:"teardown_time_units"`
	CalendarID        sql.NullString `db:"calendar_id"`
}

type maintenanceWindowRow struct {
	MachineID string `db:"machine_id"`
	StartUnit int    `db:"start_unit"`
	EndUnit   int    `db:"end_unit"`
}

type cellRow struct {
	ID         string         `db:"id"`
	Capacity   int            `db:"capacity"`
	WipLimit   sql.NullInt64  `db:"wip_limit"`
	CalendarID sql.NullString `db:"calendar_id"`
}

type skillRow struct {
	ID              string `db:"id"`
	Category        string `db:"category"`
	ComplexityLevel int    `db:"complexity_level"`
}

type operatorRow struct {
	ID              string `db:"id"`
	MaxHoursPerDay  int    `db:"max_hours_per_day"`
	OvertimeAllowed bool   `db:"overtime_allowed"`
}

type operatorSkillRow struct {
	OperatorID       string `db:"operator_id"`
	SkillID          string `db:"skill_id"`
	ProficiencyLevel int    `db:"proficiency_level"`
}

type operatorShiftRow struct {
	OperatorID string `db:"operator_id"`
	StartUnit  int    `db:"start_unit"`
	EndUnit    int    `db:"end_unit"`
}

type sequenceResourceRow struct {
	ID                string `db:"id"`
	Kind              string `db:"kind"`
	MaxConcurrentJobs int    `db:"max_concurrent_jobs"`
	SetupTimeUnits    int    `db:"setup_time_units"`
	TeardownTimeUnits int    `db:"teardown_time_units"`
	Priority          int    `db:"priority"`
}

type sequencePoolMachineRow struct {
	SequenceID string `db:"sequence_id"`
	MachineID  string `db:"machine_id"`
}

type calendarRow struct {
	ID               string `db:"id"`
	WorkingDaysMask  int    `db:"working_days_mask"`
	DefaultStartUnit int    `db:"default_start_unit"`
	DefaultEndUnit   int    `db:"default_end_unit"`
	Timezone         string `db:"timezone"`
}

type setupTimeRow struct {
	FromTask       string `db:"from_task"`
	ToTask         string `db:"to_task"`
	MachineID      string `db:"machine_id"`
	SetupTimeUnits int    `db:"setup_time_units"`
}

// LoadPattern implements store.Loader. It assembles a Problem from the
// templates/template_tasks/... catalog in a handful of ordered,
// single-purpose queries rather than one large join, mirroring
// ModelRepository.GetByName's "fetch, then enrich" shape in
// KhryptorGraphics-OllamaMax's repository_models.go.
func (s *Store) LoadPattern(ctx context.Context, patternID string, instanceIDs []string) (*problem.Problem, error) {
	var tplRow templateRow
	err := s.db.GetContext(ctx, &tplRow,
		`SELECT id, name, num_search_workers, max_time_seconds, linearization_level,
		        search_branching, enable_phase2, enable_phase3, objective_weights, objective_lex_order
		 FROM templates WHERE id = $1`, patternID)
	if err == sql.ErrNoRows {
		return nil, store.ErrPatternNotFound
	}
	if err != nil {
		return nil, errs.NewStorageFailure("load_template", err)
	}

	params, err := toSolverParameters(tplRow)
	if err != nil {
		return nil, errs.NewStorageFailure("decode_solver_parameters", err)
	}

	tasks, err := s.loadTasks(ctx, patternID)
	if err != nil {
		return nil, err
	}
	precedences, err := s.loadPrecedences(ctx, patternID)
	if err != nil {
		return nil, err
	}
	instances, err := s.loadInstances(ctx, patternID, instanceIDs)
	if err != nil {
		return nil, err
	}
	machines, err := s.loadMachines(ctx)
	if err != nil {
		return nil, err
	}
	cells, err := s.loadCells(ctx)
	if err != nil {
		return nil, err
	}
	operators, err := s.loadOperators(ctx)
	if err != nil {
		return nil, err
	}
	skills, err := s.loadSkills(ctx)
	if err != nil {
		return nil, err
	}
	sequences, err := s.loadSequenceResources(ctx)
	if err != nil {
		return nil, err
	}
	calendars, err := s.loadCalendars(ctx)
	if err != nil {
		return nil, err
	}
	setupTimes, err := s.loadSetupTimes(ctx)
	if err != nil {
		return nil, err
	}

	return &problem.Problem{
		Template: problem.Template{
			ID:               tplRow.ID,
			Name:             tplRow.Name,
			Tasks:            tasks,
			Precedences:      precedences,
			SolverParameters: params,
		},
		Instances:         instances,
		Machines:          machines,
		Cells:             cells,
		Operators:         operators,
		Skills:            skills,
		SequenceResources: sequences,
		Calendars:         calendars,
		SetupTimes:        setupTimes,
		SolverParameters:  params,
	}, nil
}

func toSolverParameters(row templateRow) (problem.SolverParameters, error) {
	params := problem.SolverParameters{
		NumSearchWorkers:   row.NumSearchWorkers,
		MaxTimeSeconds:     row.MaxTimeSeconds,
		LinearizationLevel: row.LinearizationLevel,
		SearchBranching:    row.SearchBranching,
		EnablePhase2:       row.EnablePhase2,
		EnablePhase3:       row.EnablePhase3,
		ObjectiveLexOrder:  []string(row.ObjectiveLexOrder),
	}
	if len(row.ObjectiveWeights) > 0 {
		if err := json.Unmarshal(row.ObjectiveWeights, &params.ObjectiveWeights); err != nil {
			return params, err
		}
	}
	return params, nil
}

func (s *Store) loadTasks(ctx context.Context, templateID string) ([]problem.TemplateTask, error) {
	var rows []taskRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, name, position, is_unattended, is_setup, sequence_id, min_operators, max_operators
		 FROM template_tasks WHERE template_id = $1 ORDER BY position`, templateID)
	if err != nil {
		return nil, errs.NewStorageFailure("load_tasks", err)
	}

	var modeRows []modeRow
	if err := s.db.SelectContext(ctx, &modeRows,
		`SELECT id, task_id, machine_id, duration_units FROM template_task_modes WHERE template_id = $1`,
		templateID); err != nil {
		return nil, errs.NewStorageFailure("load_modes", err)
	}
	modesByTask := make(map[string][]problem.Mode)
	for _, m := range modeRows {
		modesByTask[m.TaskID] = append(modesByTask[m.TaskID], problem.Mode{
			ID: m.ID, MachineID: m.MachineID, DurationUnits: m.DurationUnits,
		})
	}

	var skillRows []skillReqRow
	if err := s.db.SelectContext(ctx, &skillRows,
		`SELECT task_id, skill_id, required_level, headcount FROM template_task_skill_requirements WHERE template_id = $1`,
		templateID); err != nil {
		return nil, errs.NewStorageFailure("load_skill_requirements", err)
	}
	skillsByTask := make(map[string][]problem.SkillRequirement)
	for _, r := range skillRows {
		skillsByTask[r.TaskID] = append(skillsByTask[r.TaskID], problem.SkillRequirement{
			SkillID:       r.SkillID,
			RequiredLevel: problem.ProficiencyLevel(r.RequiredLevel),
			Count:         r.Headcount,
		})
	}

	tasks := make([]problem.TemplateTask, len(rows))
	for i, r := range rows {
		var sequenceID *string
		if r.SequenceID.Valid {
			v := r.SequenceID.String
			sequenceID = &v
		}
		tasks[i] = problem.TemplateTask{
			ID:                r.ID,
			Name:              r.Name,
			Position:          r.Position,
			IsUnattended:      r.IsUnattended,
			IsSetup:           r.IsSetup,
			SequenceID:        sequenceID,
			MinOperators:      r.MinOperators,
			MaxOperators:      r.MaxOperators,
			Modes:             modesByTask[r.ID],
			SkillRequirements: skillsByTask[r.ID],
		}
	}
	return tasks, nil
}

func (s *Store) loadPrecedences(ctx context.Context, templateID string) ([]problem.Precedence, error) {
	var rows []precedenceRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT predecessor_task_id, successor_task_id, min_delay_units, max_delay_units
		 FROM template_precedences WHERE template_id = $1`, templateID); err != nil {
		return nil, errs.NewStorageFailure("load_precedences", err)
	}
	out := make([]problem.Precedence, len(rows))
	for i, r := range rows {
		var maxDelay *int
		if r.MaxDelayUnits.Valid {
			v := int(r.MaxDelayUnits.Int64)
			maxDelay = &v
		}
		out[i] = problem.Precedence{
			PredecessorTaskID: r.PredecessorTaskID,
			SuccessorTaskID:   r.SuccessorTaskID,
			MinDelayUnits:     r.MinDelayUnits,
			MaxDelayUnits:     maxDelay,
		}
	}
	return out, nil
}

func (s *Store) loadInstances(ctx context.Context, templateID string, instanceIDs []string) ([]problem.Instance, error) {
	var rows []instanceRow
	var err error
	if len(instanceIDs) > 0 {
		err = s.db.SelectContext(ctx, &rows,
			`SELECT id, template_id, priority, earliest_start_unit, due_unit
			 FROM instances WHERE template_id = $1 AND id = ANY($2) ORDER BY id`,
			templateID, pq.Array(instanceIDs))
	} else {
		err = s.db.SelectContext(ctx, &rows,
			`SELECT id, template_id, priority, earliest_start_unit, due_unit
			 FROM instances WHERE template_id = $1 AND flagged_for_schedule ORDER BY id`,
			templateID)
	}
	if err != nil {
		return nil, errs.NewStorageFailure("load_instances", err)
	}
	if len(instanceIDs) > 0 && len(rows) != len(instanceIDs) {
		return nil, errs.NewMalformedProblem("requested instance ids not found under pattern", instanceIDs...)
	}
	out := make([]problem.Instance, len(rows))
	for i, r := range rows {
		var due *int
		if r.DueUnit.Valid {
			v := int(r.DueUnit.Int64)
			due = &v
		}
		out[i] = problem.Instance{
			ID:                r.ID,
			TemplateID:        r.TemplateID,
			Priority:          r.Priority,
			EarliestStartUnit: r.EarliestStartUnit,
			DueUnit:           due,
		}
	}
	return out, nil
}

func (s *Store) loadMachines(ctx context.Context) ([]problem.Machine, error) {
	var rows []machineRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, cell_id, capacity, cost_per_hour, setup_time_units, teardown_time_units, calendar_id
		 FROM machines ORDER BY id`); err != nil {
		return nil, errs.NewStorageFailure("load_machines", err)
	}

	var windowRows []maintenanceWindowRow
	if err := s.db.SelectContext(ctx, &windowRows,
		`SELECT machine_id, start_unit, end_unit FROM machine_maintenance_windows`); err != nil {
		return nil, errs.NewStorageFailure("load_maintenance_windows", err)
	}
	windowsByMachine := make(map[string][]problem.Interval)
	for _, w := range windowRows {
		windowsByMachine[w.MachineID] = append(windowsByMachine[w.MachineID], problem.Interval{
			StartUnit: w.StartUnit, EndUnit: w.EndUnit,
		})
	}

	out := make([]problem.Machine, len(rows))
	for i, r := range rows {
		out[i] = problem.Machine{
			ID:                 r.ID,
			CellID:             r.CellID.String,
			Capacity:           r.Capacity,
			CostPerHour:        r.CostPerHour,
			SetupTimeUnits:     r.SetupTimeUnits,
			TeardownTimeUnits:  r.TeardownTimeUnits,
			MaintenanceWindows: windowsByMachine[r.ID],
			CalendarID:         nullStringPtr(r.CalendarID),
		}
	}
	return out, nil
}

func (s *Store) loadCells(ctx context.Context) ([]problem.WorkCell, error) {
	var rows []cellRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, capacity, wip_limit, calendar_id FROM work_cells ORDER BY id`); err != nil {
		return nil, errs.NewStorageFailure("load_cells", err)
	}
	out := make([]problem.WorkCell, len(rows))
	for i, r := range rows {
		var wip *int
		if r.WipLimit.Valid {
			v := int(r.WipLimit.Int64)
			wip = &v
		}
		out[i] = problem.WorkCell{
			ID:         r.ID,
			Capacity:   r.Capacity,
			WipLimit:   wip,
			CalendarID: nullStringPtr(r.CalendarID),
		}
	}
	return out, nil
}

func (s *Store) loadSkills(ctx context.Context) ([]problem.Skill, error) {
	var rows []skillRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, category, complexity_level FROM skills ORDER BY id`); err != nil {
		return nil, errs.NewStorageFailure("load_skills", err)
	}
	out := make([]problem.Skill, len(rows))
	for i, r := range rows {
		out[i] = problem.Skill{ID: r.ID, Category: r.Category, ComplexityLevel: r.ComplexityLevel}
	}
	return out, nil
}

func (s *Store) loadOperators(ctx context.Context) ([]problem.Operator, error) {
	var rows []operatorRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, max_hours_per_day, overtime_allowed FROM operators ORDER BY id`); err != nil {
		return nil, errs.NewStorageFailure("load_operators", err)
	}

	var skillRows []operatorSkillRow
	if err := s.db.SelectContext(ctx, &skillRows,
		`SELECT operator_id, skill_id, proficiency_level FROM operator_skills`); err != nil {
		return nil, errs.NewStorageFailure("load_operator_skills", err)
	}
	skillsByOperator := make(map[string]map[string]problem.ProficiencyLevel)
	for _, r := range skillRows {
		if skillsByOperator[r.OperatorID] == nil {
			skillsByOperator[r.OperatorID] = make(map[string]problem.ProficiencyLevel)
		}
		skillsByOperator[r.OperatorID][r.SkillID] = problem.ProficiencyLevel(r.ProficiencyLevel)
	}

	var shiftRows []operatorShiftRow
	if err := s.db.SelectContext(ctx, &shiftRows,
		`SELECT operator_id, start_unit, end_unit FROM operator_shifts`); err != nil {
		return nil, errs.NewStorageFailure("load_operator_shifts", err)
	}
	shiftsByOperator := make(map[string][]problem.Interval)
	for _, r := range shiftRows {
		shiftsByOperator[r.OperatorID] = append(shiftsByOperator[r.OperatorID], problem.Interval{
			StartUnit: r.StartUnit, EndUnit: r.EndUnit,
		})
	}

	out := make([]problem.Operator, len(rows))
	for i, r := range rows {
		out[i] = problem.Operator{
			ID:              r.ID,
			Skills:          skillsByOperator[r.ID],
			Shifts:          shiftsByOperator[r.ID],
			MaxHoursPerDay:  r.MaxHoursPerDay,
			OvertimeAllowed: r.OvertimeAllowed,
		}
	}
	return out, nil
}

func (s *Store) loadSequenceResources(ctx context.Context) ([]problem.SequenceResource, error) {
	var rows []sequenceResourceRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, kind, max_concurrent_jobs, setup_time_units, teardown_time_units, priority
		 FROM sequence_resources ORDER BY id`); err != nil {
		return nil, errs.NewStorageFailure("load_sequence_resources", err)
	}

	var poolRows []sequencePoolMachineRow
	if err := s.db.SelectContext(ctx, &poolRows,
		`SELECT sequence_id, machine_id FROM sequence_resource_pool_machines`); err != nil {
		return nil, errs.NewStorageFailure("load_sequence_pool_machines", err)
	}
	poolByID := make(map[string][]string)
	for _, r := range poolRows {
		poolByID[r.SequenceID] = append(poolByID[r.SequenceID], r.MachineID)
	}

	out := make([]problem.SequenceResource, len(rows))
	for i, r := range rows {
		out[i] = problem.SequenceResource{
			ID:                r.ID,
			Kind:              parseSequenceKind(r.Kind),
			MaxConcurrentJobs: r.MaxConcurrentJobs,
			SetupTimeUnits:    r.SetupTimeUnits,
			TeardownTimeUnits: r.TeardownTimeUnits,
			Priority:          r.Priority,
			PoolMachineIDs:    poolByID[r.ID],
		}
	}
	return out, nil
}

func parseSequenceKind(kind string) problem.SequenceResourceKind {
	switch kind {
	case "SHARED":
		return problem.Shared
	case "POOLED":
		return problem.Pooled
	default:
		return problem.Exclusive
	}
}

func (s *Store) loadCalendars(ctx context.Context) ([]problem.Calendar, error) {
	var rows []calendarRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, working_days_mask, default_start_unit, default_end_unit, timezone
		 FROM calendars ORDER BY id`); err != nil {
		return nil, errs.NewStorageFailure("load_calendars", err)
	}
	out := make([]problem.Calendar, len(rows))
	for i, r := range rows {
		out[i] = problem.Calendar{
			ID:               r.ID,
			WorkingDaysMask:  uint8(r.WorkingDaysMask),
			DefaultStartUnit: r.DefaultStartUnit,
			DefaultEndUnit:   r.DefaultEndUnit,
			Timezone:         r.Timezone,
		}
	}
	return out, nil
}

func (s *Store) loadSetupTimes(ctx context.Context) ([]problem.SetupTime, error) {
	var rows []setupTimeRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT from_task, to_task, machine_id, setup_time_units FROM setup_times`); err != nil {
		return nil, errs.NewStorageFailure("load_setup_times", err)
	}
	out := make([]problem.SetupTime, len(rows))
	for i, r := range rows {
		out[i] = problem.SetupTime{
			FromTask: r.FromTask, ToTask: r.ToTask,
			MachineID: r.MachineID, SetupTimeUnits: r.SetupTimeUnits,
		}
	}
	return out, nil
}

func nullStringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
