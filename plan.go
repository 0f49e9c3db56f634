package plansmith

import (
	"encoding/json"
	"maps"

	"github.com/m-mizutani/goerr/v2"
)

// TaskType distinguishes single tool invocations from delegated agentic
// work. Unknown values from the oracle are normalized to TaskTypeSimple.
type TaskType string

const (
	TaskTypeSimple  TaskType = "simple_action"
	TaskTypeAgentic TaskType = "agentic_action"
)

// TaskStatus is the runtime state of a task. The planner always emits
// pending tasks; every later transition is owned by the external executor.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task is one tool invocation within a plan. Status, Result and Retries are
// runtime fields: the planner initializes them and overwrites anything the
// oracle may have supplied for them.
type Task struct {
	ID          int            `json:"id"`
	Type        TaskType       `json:"task_type"`
	Action      string         `json:"action"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Status      TaskStatus     `json:"status"`
	Result      any            `json:"result"`
	Retries     int            `json:"retries"`
	SaveAs      string         `json:"save_as,omitempty"`
}

// Clone returns a copy of the task with its own parameter map.
func (t *Task) Clone() *Task {
	c := *t
	c.Parameters = make(map[string]any, len(t.Parameters))
	maps.Copy(c.Parameters, t.Parameters)
	return &c
}

// Plan is an ordered task sequence satisfying one objective. A plan is
// created fresh on every successful generation call and is never mutated by
// the planner afterwards; continuation calls produce a new Plan fragment
// and leave merging to the caller.
type Plan struct {
	ID         string  `json:"id"`
	Objective  string  `json:"objective"`
	Scratchpad string  `json:"scratchpad,omitempty"`
	Tasks      []*Task `json:"tasks"`
}

// Clone returns a deep copy of the plan. Executors mutate their copy while
// the engine's output stays intact.
func (p *Plan) Clone() *Plan {
	c := *p
	c.Tasks = make([]*Task, len(p.Tasks))
	for i, task := range p.Tasks {
		c.Tasks[i] = task.Clone()
	}
	return &c
}

// CompletedTasks returns the tasks the executor has marked succeeded, in
// plan order.
func (p *Plan) CompletedTasks() []*Task {
	var done []*Task
	for _, task := range p.Tasks {
		if task.Status == TaskStatusSucceeded {
			done = append(done, task)
		}
	}
	return done
}

// CompletedSummaries renders the succeeded tasks as one human-readable line
// each, suitable for the completed-actions ledger of a continuation prompt.
// Tasks without a description fall back to their action name.
func (p *Plan) CompletedSummaries() []string {
	var summaries []string
	for _, task := range p.CompletedTasks() {
		entry := task.Description
		if entry == "" {
			entry = task.Action
		}
		summaries = append(summaries, entry)
	}
	return summaries
}

// NextPendingTask returns the first pending task, or nil when none remain.
func (p *Plan) NextPendingTask() *Task {
	for _, task := range p.Tasks {
		if task.Status == TaskStatusPending {
			return task
		}
	}
	return nil
}

// maxTaskID returns the largest task id in the plan, or 0 for an empty plan.
func (p *Plan) maxTaskID() int {
	max := 0
	for _, task := range p.Tasks {
		if task.ID > max {
			max = task.ID
		}
	}
	return max
}

// PlanVersion is the serialization format version.
const PlanVersion = 1

// planData is the serialized envelope of a plan.
type planData struct {
	Version    int     `json:"version"`
	ID         string  `json:"id"`
	Objective  string  `json:"objective"`
	Scratchpad string  `json:"scratchpad,omitempty"`
	Tasks      []*Task `json:"tasks"`
}

// Serialize serializes the plan with a format version so executors can
// persist plans across restarts.
func (p *Plan) Serialize() ([]byte, error) {
	data := planData{
		Version:    PlanVersion,
		ID:         p.ID,
		Objective:  p.Objective,
		Scratchpad: p.Scratchpad,
		Tasks:      p.Tasks,
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to serialize plan")
	}
	return raw, nil
}

// RestorePlan deserializes a plan produced by Serialize.
func RestorePlan(raw []byte) (*Plan, error) {
	var data planData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, goerr.Wrap(ErrInvalidPlanData, "failed to unmarshal plan data", goerr.V("cause", err.Error()))
	}
	if data.Version != PlanVersion {
		return nil, goerr.Wrap(ErrInvalidPlanData, "plan version mismatch",
			goerr.V("expected", PlanVersion), goerr.V("actual", data.Version))
	}

	return &Plan{
		ID:         data.ID,
		Objective:  data.Objective,
		Scratchpad: data.Scratchpad,
		Tasks:      data.Tasks,
	}, nil
}
