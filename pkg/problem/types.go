// Package problem defines the immutable data model a solve operates over:
// Template, TemplateTask, Mode, Precedence, Instance, and the resource
// catalog (Machine, WorkCell, Operator, Skill, SequenceResource, Calendar,
// SetupTime). All durations and timestamps are stored in internal
// 15-minute units (see pkg/timeunit); conversion from the wire minute
// representation happens at the loader boundary, never inside this
// package.
package problem

// ProficiencyLevel is the totally ordered skill rank from spec §3.
type ProficiencyLevel int

const (
	Novice ProficiencyLevel = iota
	Competent
	Proficient
	Expert
)

// Satisfies reports whether this level meets or exceeds required.
// EXPERT satisfies all lower requirements, per spec §4.4.
func (p ProficiencyLevel) Satisfies(required ProficiencyLevel) bool {
	return p >= required
}

func (p ProficiencyLevel) String() string {
	switch p {
	case Novice:
		return "NOVICE"
	case Competent:
		return "COMPETENT"
	case Proficient:
		return "PROFICIENT"
	case Expert:
		return "EXPERT"
	default:
		return "UNKNOWN"
	}
}

// Interval is a closed-open [StartUnit, EndUnit) span in internal units.
type Interval struct {
	StartUnit int
	EndUnit   int
}

// Overlaps reports whether the two intervals share any unit.
func (i Interval) Overlaps(other Interval) bool {
	return i.StartUnit < other.EndUnit && other.StartUnit < i.EndUnit
}

// Mode is one allowable (machine, duration) option for a task.
type Mode struct {
	ID            string
	MachineID     string
	DurationUnits int
}

// SkillRequirement names the proficiency and headcount a task demands of
// its assigned operators for one skill.
type SkillRequirement struct {
	SkillID       string
	RequiredLevel ProficiencyLevel
	Count         int
}

// TemplateTask is one step of a Template's job structure.
type TemplateTask struct {
	ID                string
	Name              string
	Position          int
	IsUnattended      bool
	IsSetup           bool
	SequenceID        *string
	MinOperators      int
	MaxOperators      int
	Modes             []Mode
	SkillRequirements []SkillRequirement
}

// Precedence is a directed edge between two template tasks with a delay
// window.
type Precedence struct {
	PredecessorTaskID string
	SuccessorTaskID   string
	MinDelayUnits     int
	MaxDelayUnits     *int
}

// SolverParameters are the recognized knobs from spec §6.
type SolverParameters struct {
	NumSearchWorkers   int
	MaxTimeSeconds     float64
	LinearizationLevel int
	SearchBranching    string // AUTOMATIC or FIXED_SEARCH
	EnablePhase2       bool
	EnablePhase3       bool
	ObjectiveWeights   map[string]float64
	ObjectiveLexOrder  []string
}

// Template is the reusable job structure shared by every Instance in one
// problem.
type Template struct {
	ID               string
	Name             string
	Tasks            []TemplateTask
	Precedences      []Precedence
	SolverParameters SolverParameters
}

// CriticalPathUpperBound computes, per spec §4.1, the sum over the longest
// precedence path of the maximum mode duration per task, plus all mandatory
// setup times declared on the precedence edges themselves (min_delay_units,
// which stands in for a mandatory setup/transition gap between tasks).
// Template.Tasks is already topologically ordered by Position (spec §3), so
// one forward pass suffices; this mirrors pkg/varfactory's
// minPredecessorDelays computation but uses each task's longest mode
// duration and tracks the task's own duration too.
func (t Template) CriticalPathUpperBound() int {
	maxDurationByTask := make(map[string]int, len(t.Tasks))
	for _, task := range t.Tasks {
		maxDur := 0
		for _, m := range task.Modes {
			if m.DurationUnits > maxDur {
				maxDur = m.DurationUnits
			}
		}
		maxDurationByTask[task.ID] = maxDur
	}

	incoming := make(map[string][]Precedence, len(t.Tasks))
	for _, edge := range t.Precedences {
		incoming[edge.SuccessorTaskID] = append(incoming[edge.SuccessorTaskID], edge)
	}

	ordered := make([]TemplateTask, len(t.Tasks))
	copy(ordered, t.Tasks)
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if ordered[j].Position < ordered[i].Position {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}

	finishByTask := make(map[string]int, len(t.Tasks))
	overall := 0
	for _, task := range ordered {
		start := 0
		for _, edge := range incoming[task.ID] {
			candidate := finishByTask[edge.PredecessorTaskID] + edge.MinDelayUnits
			if candidate > start {
				start = candidate
			}
		}
		finish := start + maxDurationByTask[task.ID]
		finishByTask[task.ID] = finish
		if finish > overall {
			overall = finish
		}
	}
	return overall
}

// Instance is a concrete job derived from a Template.
type Instance struct {
	ID               string
	TemplateID       string
	Priority         int
	EarliestStartUnit int
	DueUnit          *int
}

// Machine is a resource that executes modes.
type Machine struct {
	ID                  string
	CellID              string
	Capacity            int
	CostPerHour         float64
	SetupTimeUnits      int
	TeardownTimeUnits   int
	MaintenanceWindows  []Interval
	CalendarID          *string
}

// WorkCell groups machines under a shared WIP limit.
type WorkCell struct {
	ID         string
	Capacity   int
	WipLimit   *int
	CalendarID *string
}

// Skill is a named competency with an ordered proficiency scale.
type Skill struct {
	ID              string
	Category        string
	ComplexityLevel int
}

// Operator performs tasks subject to skill, shift, and overtime limits.
type Operator struct {
	ID               string
	Skills           map[string]ProficiencyLevel
	Shifts           []Interval
	MaxHoursPerDay   int
	OvertimeAllowed  bool
}

// SequenceResourceKind distinguishes the exclusivity style named in the
// data model, though both are modeled uniformly (see DESIGN.md Open
// Question on shared vs pooled).
type SequenceResourceKind int

const (
	Exclusive SequenceResourceKind = iota
	Shared
	Pooled
)

// SequenceResource is a capacity-limited resource held across a
// contiguous interval by an instance.
type SequenceResource struct {
	ID                string
	Kind              SequenceResourceKind
	MaxConcurrentJobs int
	SetupTimeUnits    int
	TeardownTimeUnits int
	Priority          int
	// PoolMachineIDs restricts eligible machines when Kind == Pooled.
	PoolMachineIDs []string
}

// Calendar produces unavailable intervals within the horizon.
type Calendar struct {
	ID               string
	WorkingDaysMask  uint8 // bit i set => day i (0=Sunday) is a working day
	DefaultStartUnit int   // offset within a working day, in units
	DefaultEndUnit   int
	Timezone         string
}

// SetupTime is a directed, machine-scoped sequence-dependent changeover
// edge.
type SetupTime struct {
	FromTask       string
	ToTask         string
	MachineID      string
	SetupTimeUnits int
}

// Problem is the full input to one solve: a Template, its Instances, and
// the resource catalog.
type Problem struct {
	Template          Template
	Instances         []Instance
	Machines          []Machine
	Cells             []WorkCell
	Operators         []Operator
	Skills            []Skill
	SequenceResources []SequenceResource
	Calendars         []Calendar
	SetupTimes        []SetupTime
	SolverParameters  SolverParameters
}
