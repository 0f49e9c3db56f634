package plansmith

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// rawTask is the oracle-supplied shape of a task before normalization.
// Runtime fields (status/result/retries) are deliberately absent: whatever
// the oracle emits for them is discarded.
type rawTask struct {
	ID          *int           `json:"id"`
	Type        string         `json:"task_type"`
	Action      string         `json:"action"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	SaveAs      string         `json:"save_as"`
}

// rawEnvelope captures every task-list shape observed from oracles. The
// alias fields are canonicalized in a single ingest step instead of probing
// properties throughout validation.
type rawEnvelope struct {
	Objective  string          `json:"objective"`
	Scratchpad string          `json:"scratchpad"`
	Tasks      json.RawMessage `json:"tasks"`
	Steps      json.RawMessage `json:"steps"`
	Plan       json.RawMessage `json:"plan"`
	Actions    json.RawMessage `json:"actions"`
}

// taskList returns the first present task-list alias, in priority order.
func (e *rawEnvelope) taskList() json.RawMessage {
	for _, raw := range []json.RawMessage{e.Tasks, e.Steps, e.Plan, e.Actions} {
		if len(raw) > 0 {
			return raw
		}
	}
	return nil
}

// buildPlan turns an extracted JSON candidate into a validated Plan.
// Failures are ErrPlanParse or ErrPlanInvalid; both are retryable by the
// caller. Rejection is whole-plan: a plan with one unknown action is not
// safely executable, so no partial acceptance happens here.
func buildPlan(cfg *plannerConfig, candidate string, objective string, tools *ToolSet) (*Plan, error) {
	var envelope rawEnvelope
	if err := json.Unmarshal([]byte(candidate), &envelope); err != nil {
		return nil, goerr.Wrap(ErrPlanParse, "failed to parse plan candidate", goerr.V("cause", err.Error()))
	}

	listRaw := envelope.taskList()
	if listRaw == nil {
		return nil, goerr.Wrap(ErrPlanInvalid, "missing tasks: expected a tasks/steps/plan/actions array")
	}

	rawTasks, err := decodeTaskList(listRaw)
	if err != nil {
		return nil, err
	}

	if len(rawTasks) == 0 {
		return nil, goerr.Wrap(ErrPlanInvalid, "task list is empty")
	}

	planObjective := strings.TrimSpace(envelope.Objective)
	if planObjective == "" {
		planObjective = objective
	}

	tasks := make([]*Task, 0, len(rawTasks))
	seenIDs := make(map[int]bool, len(rawTasks))
	maxID := 0
	for _, rt := range rawTasks {
		action := strings.TrimSpace(rt.Action)
		if action == "" {
			return nil, goerr.Wrap(ErrPlanInvalid, "task has no action", goerr.V("description", rt.Description))
		}
		if !tools.Has(action) {
			return nil, goerr.Wrap(ErrPlanInvalid, "action is not an allowed tool",
				goerr.V("action", action), goerr.V("allowed", tools.Names()))
		}

		id := maxID + 1
		if rt.ID != nil {
			id = *rt.ID
		}
		if seenIDs[id] {
			return nil, goerr.Wrap(ErrPlanInvalid, "duplicate task id", goerr.V("id", id))
		}
		seenIDs[id] = true
		if id > maxID {
			maxID = id
		}

		taskType := TaskType(rt.Type)
		if taskType != TaskTypeSimple && taskType != TaskTypeAgentic {
			taskType = TaskTypeSimple
		}

		params := rt.Parameters
		if params == nil {
			params = map[string]any{}
		}

		tasks = append(tasks, &Task{
			ID:          id,
			Type:        taskType,
			Action:      action,
			Description: strings.TrimSpace(rt.Description),
			Parameters:  params,
			Status:      TaskStatusPending,
			Result:      nil,
			Retries:     0,
			SaveAs:      strings.TrimSpace(rt.SaveAs),
		})
	}

	if cfg.strictParameters {
		if err := validateTaskParameters(tasks, tools); err != nil {
			return nil, err
		}
	}

	plan := &Plan{
		ID:         uuid.New().String(),
		Objective:  planObjective,
		Scratchpad: strings.TrimSpace(envelope.Scratchpad),
		Tasks:      tasks,
	}

	appendTerminalTask(cfg, plan, tools)

	return plan, nil
}

// decodeTaskList unmarshals a task-list alias value. Some oracles emit
// "plan": {"tasks": [...]} instead of an array, so one level of nesting is
// unwrapped before rejecting the shape.
func decodeTaskList(listRaw json.RawMessage) ([]rawTask, error) {
	var rawTasks []rawTask
	if err := json.Unmarshal(listRaw, &rawTasks); err == nil {
		return rawTasks, nil
	}

	var nested rawEnvelope
	if err := json.Unmarshal(listRaw, &nested); err == nil {
		if nestedRaw := nested.taskList(); nestedRaw != nil {
			if err := json.Unmarshal(nestedRaw, &rawTasks); err == nil {
				return rawTasks, nil
			}
		}
	}

	return nil, goerr.Wrap(ErrPlanInvalid, "tasks is not an array of task objects")
}

// validateTaskParameters checks every task's parameters against the JSON
// schema of the tool it invokes. Variable tokens make strict validation a
// planner option rather than the default: a {{name}} placeholder is a legal
// string even where the schema expects the eventual resolved type.
func validateTaskParameters(tasks []*Task, tools *ToolSet) error {
	for _, task := range tasks {
		descriptor, ok := tools.Lookup(task.Action)
		if !ok {
			continue // unknown actions were already rejected
		}

		schema, err := descriptor.ParameterSchema()
		if err != nil {
			return err
		}

		// Round-trip through JSON so typed values become the generic shapes
		// the schema validator expects.
		raw, err := json.Marshal(task.Parameters)
		if err != nil {
			return goerr.Wrap(ErrPlanInvalid, "task parameters are not JSON-representable",
				goerr.V("task_id", task.ID), goerr.V("cause", err.Error()))
		}
		var instance any
		if err := json.Unmarshal(raw, &instance); err != nil {
			return goerr.Wrap(err, "failed to normalize task parameters", goerr.V("task_id", task.ID))
		}

		if err := schema.Validate(instance); err != nil {
			return goerr.Wrap(ErrPlanInvalid, "task parameters violate tool schema",
				goerr.V("task_id", task.ID), goerr.V("action", task.Action), goerr.V("cause", err.Error()))
		}
	}
	return nil
}

// appendTerminalTask enforces user-visible closure: when a terminal tool is
// configured and allowed but the plan does not end with it, exactly one
// synthetic task is appended.
func appendTerminalTask(cfg *plannerConfig, plan *Plan, tools *ToolSet) {
	if cfg.terminalTool == "" || !tools.Has(cfg.terminalTool) {
		return
	}
	if last := plan.Tasks[len(plan.Tasks)-1]; last.Action == cfg.terminalTool {
		return
	}

	plan.Tasks = append(plan.Tasks, &Task{
		ID:          plan.maxTaskID() + 1,
		Type:        TaskTypeSimple,
		Action:      cfg.terminalTool,
		Description: "Deliver the final response summarizing the completed plan to the user.",
		Parameters:  map[string]any{},
		Status:      TaskStatusPending,
	})
}
