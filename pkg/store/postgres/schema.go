package postgres

// Schema is the logical relational layout named in spec §6: templates,
// template_tasks, template_task_modes, template_precedences, resources,
// instances, solved_schedules, scheduled_tasks, sequence_reservations.
// "resources" is a catalog concept rather than a single table; it is
// realized below as one table per resource kind (machines, work_cells,
// operators, skills, sequence_resources, calendars, setup_times) plus
// their join tables, mirroring how the source's own two overlapping
// schemas (template_* and optimized_*) each split the catalog by kind
// (see spec §7's schema note and DESIGN.md's Open Question resolution).
//
// Applying Schema is the caller's responsibility (a migration tool, a
// bootstrap script); pkg/store/postgres only ever reads and writes these
// tables, never creates them implicitly.
const Schema = `
CREATE TABLE IF NOT EXISTS templates (
	id                   TEXT PRIMARY KEY,
	name                 TEXT NOT NULL,
	num_search_workers   INTEGER NOT NULL DEFAULT 1,
	max_time_seconds     DOUBLE PRECISION NOT NULL DEFAULT 0,
	linearization_level  INTEGER NOT NULL DEFAULT 0,
	search_branching     TEXT NOT NULL DEFAULT 'AUTOMATIC',
	enable_phase2        BOOLEAN NOT NULL DEFAULT false,
	enable_phase3        BOOLEAN NOT NULL DEFAULT false,
	objective_weights    JSONB,
	objective_lex_order  TEXT[],
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS template_tasks (
	id             TEXT NOT NULL,
	template_id    TEXT NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
	name           TEXT NOT NULL,
	position       INTEGER NOT NULL,
	is_unattended  BOOLEAN NOT NULL DEFAULT false,
	is_setup       BOOLEAN NOT NULL DEFAULT false,
	sequence_id    TEXT,
	min_operators  INTEGER NOT NULL DEFAULT 0,
	max_operators  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (template_id, id)
);

CREATE TABLE IF NOT EXISTS template_task_modes (
	id             TEXT NOT NULL,
	template_id    TEXT NOT NULL,
	task_id        TEXT NOT NULL,
	machine_id     TEXT NOT NULL,
	duration_units INTEGER NOT NULL,
	PRIMARY KEY (template_id, task_id, id),
	FOREIGN KEY (template_id, task_id) REFERENCES template_tasks(template_id, id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS template_task_skill_requirements (
	template_id    TEXT NOT NULL,
	task_id        TEXT NOT NULL,
	skill_id       TEXT NOT NULL,
	required_level INTEGER NOT NULL,
	headcount      INTEGER NOT NULL,
	PRIMARY KEY (template_id, task_id, skill_id),
	FOREIGN KEY (template_id, task_id) REFERENCES template_tasks(template_id, id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS template_precedences (
	template_id          TEXT NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
	predecessor_task_id  TEXT NOT NULL,
	successor_task_id    TEXT NOT NULL,
	min_delay_units      INTEGER NOT NULL DEFAULT 0,
	max_delay_units      INTEGER,
	PRIMARY KEY (template_id, predecessor_task_id, successor_task_id)
);

CREATE TABLE IF NOT EXISTS instances (
	id                   TEXT PRIMARY KEY,
	template_id          TEXT NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
	priority             INTEGER NOT NULL DEFAULT 0,
	earliest_start_unit  INTEGER NOT NULL DEFAULT 0,
	due_unit             INTEGER,
	flagged_for_schedule BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS calendars (
	id                  TEXT PRIMARY KEY,
	working_days_mask   INTEGER NOT NULL,
	default_start_unit  INTEGER NOT NULL,
	default_end_unit    INTEGER NOT NULL,
	timezone            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS work_cells (
	id          TEXT PRIMARY KEY,
	capacity    INTEGER NOT NULL,
	wip_limit   INTEGER,
	calendar_id TEXT REFERENCES calendars(id)
);

CREATE TABLE IF NOT EXISTS machines (
	id                   TEXT PRIMARY KEY,
	cell_id              TEXT REFERENCES work_cells(id),
	capacity             INTEGER NOT NULL DEFAULT 1,
	cost_per_hour        DOUBLE PRECISION NOT NULL DEFAULT 0,
	setup_time_units     INTEGER NOT NULL DEFAULT 0,
	teardown_time_units  INTEGER NOT NULL DEFAULT 0,
	calendar_id          TEXT REFERENCES calendars(id)
);

CREATE TABLE IF NOT EXISTS machine_maintenance_windows (
	machine_id  TEXT NOT NULL REFERENCES machines(id) ON DELETE CASCADE,
	start_unit  INTEGER NOT NULL,
	end_unit    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS skills (
	id               TEXT PRIMARY KEY,
	category         TEXT NOT NULL,
	complexity_level INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS operators (
	id                 TEXT PRIMARY KEY,
	max_hours_per_day  INTEGER NOT NULL DEFAULT 8,
	overtime_allowed   BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS operator_skills (
	operator_id        TEXT NOT NULL REFERENCES operators(id) ON DELETE CASCADE,
	skill_id           TEXT NOT NULL REFERENCES skills(id),
	proficiency_level  INTEGER NOT NULL,
	PRIMARY KEY (operator_id, skill_id)
);

CREATE TABLE IF NOT EXISTS operator_shifts (
	operator_id  TEXT NOT NULL REFERENCES operators(id) ON DELETE CASCADE,
	start_unit   INTEGER NOT NULL,
	end_unit     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sequence_resources (
	id                   TEXT PRIMARY KEY,
	kind                 TEXT NOT NULL DEFAULT 'EXCLUSIVE',
	max_concurrent_jobs  INTEGER NOT NULL DEFAULT 1,
	setup_time_units     INTEGER NOT NULL DEFAULT 0,
	teardown_time_units  INTEGER NOT NULL DEFAULT 0,
	priority             INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sequence_resource_pool_machines (
	sequence_id  TEXT NOT NULL REFERENCES sequence_resources(id) ON DELETE CASCADE,
	machine_id   TEXT NOT NULL REFERENCES machines(id),
	PRIMARY KEY (sequence_id, machine_id)
);

CREATE TABLE IF NOT EXISTS setup_times (
	from_task        TEXT NOT NULL,
	to_task          TEXT NOT NULL,
	machine_id       TEXT NOT NULL REFERENCES machines(id),
	setup_time_units INTEGER NOT NULL,
	PRIMARY KEY (from_task, to_task, machine_id)
);

CREATE TABLE IF NOT EXISTS solved_schedules (
	id                     TEXT PRIMARY KEY,
	template_id            TEXT NOT NULL REFERENCES templates(id),
	status                 TEXT NOT NULL,
	solve_time_seconds     DOUBLE PRECISION NOT NULL,
	makespan_units         INTEGER NOT NULL,
	total_lateness_units   INTEGER NOT NULL,
	max_lateness_units     INTEGER NOT NULL,
	objective_value        INTEGER NOT NULL,
	instance_count         INTEGER NOT NULL,
	speedup_vs_baseline    DOUBLE PRECISION,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scheduled_tasks (
	schedule_id          TEXT NOT NULL REFERENCES solved_schedules(id) ON DELETE CASCADE,
	instance_id          TEXT NOT NULL,
	template_task_id     TEXT NOT NULL,
	assigned_machine_id  TEXT NOT NULL,
	assigned_operator_ids TEXT[],
	start_unit           INTEGER NOT NULL,
	end_unit             INTEGER NOT NULL,
	mode_id              TEXT NOT NULL,
	PRIMARY KEY (schedule_id, instance_id, template_task_id)
);

CREATE TABLE IF NOT EXISTS sequence_reservations (
	schedule_id  TEXT NOT NULL REFERENCES solved_schedules(id) ON DELETE CASCADE,
	sequence_id  TEXT NOT NULL,
	instance_id  TEXT NOT NULL,
	start_unit   INTEGER NOT NULL,
	end_unit     INTEGER NOT NULL,
	PRIMARY KEY (schedule_id, sequence_id, instance_id)
);
`
