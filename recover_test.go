package plansmith_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/plansmith"
)

func TestResume(t *testing.T) {
	tools := testToolSet(t, "read_file", "submit_response")
	fragment := fencedPlan(`{"tasks": [{"id": 1, "action": "read_file"}]}`)

	t.Run("prompt carries failure report instead of grounding", func(t *testing.T) {
		oracle := &mockOracle{responses: []string{fragment}}
		planner := plansmith.New(oracle)

		result := gt.R1(planner.Resume(context.Background(), "inspect repo", 3, "file not found: config.yml",
			plansmith.WithTools(tools),
			plansmith.WithGrounding("this grounding must be dropped"),
			plansmith.WithMemory("listed the repository files"),
		)).NoError(t)

		gt.A(t, result.Plan.Tasks).Length(1)

		user := oracle.calls[0][1]
		gt.S(t, user.Content).Contains("task 3 failed")
		gt.S(t, user.Content).Contains("file not found: config.yml")
		gt.S(t, user.Content).Contains("- [done] listed the repository files")
		gt.S(t, user.Content).Contains("plan fragment")
		gt.True(t, !strings.Contains(user.Content, "this grounding must be dropped"))
	})

	t.Run("grounding provider is not invoked for continuations", func(t *testing.T) {
		oracle := &mockOracle{responses: []string{fragment}}
		planner := plansmith.New(oracle)

		invoked := false
		gt.R1(planner.Resume(context.Background(), "inspect repo", 1, "timeout",
			plansmith.WithTools(tools),
			plansmith.WithGroundingProvider(func(ctx context.Context) (string, error) {
				invoked = true
				return "fresh grounding", nil
			}),
		)).NoError(t)

		gt.Value(t, invoked).Equal(false)
	})

	t.Run("empty reason is a setup error", func(t *testing.T) {
		oracle := &mockOracle{}
		planner := plansmith.New(oracle)

		_, err := planner.Resume(context.Background(), "inspect repo", 1, "",
			plansmith.WithTools(tools))
		gt.True(t, errors.Is(err, plansmith.ErrPromptSetup))
		gt.Value(t, oracle.callCount).Equal(0)
	})
}

func TestResumeFromPlan(t *testing.T) {
	tools := testToolSet(t, "read_file", "submit_response")
	fragment := fencedPlan(`{"tasks": [{"id": 1, "action": "read_file"}]}`)

	t.Run("succeeded task descriptions become the ledger", func(t *testing.T) {
		failed := &plansmith.Plan{
			Objective: "inspect repo",
			Tasks: []*plansmith.Task{
				{ID: 1, Action: "list_files", Description: "list the repository", Status: plansmith.TaskStatusSucceeded},
				{ID: 2, Action: "read_file", Status: plansmith.TaskStatusSucceeded},
				{ID: 3, Action: "read_file", Description: "read the config", Status: plansmith.TaskStatusFailed},
				{ID: 4, Action: "submit_response", Description: "not reached", Status: plansmith.TaskStatusPending},
			},
		}

		oracle := &mockOracle{responses: []string{fragment}}
		planner := plansmith.New(oracle)

		gt.R1(planner.ResumeFromPlan(context.Background(), failed, 3, "permission denied",
			plansmith.WithTools(tools))).NoError(t)

		user := oracle.calls[0][1]
		gt.S(t, user.Content).Contains("- [done] list the repository")
		gt.S(t, user.Content).Contains("- [done] read_file")
		gt.S(t, user.Content).Contains("inspect repo")
		gt.True(t, !strings.Contains(user.Content, "read the config"))
		gt.True(t, !strings.Contains(user.Content, "not reached"))
	})

	t.Run("nil plan is a setup error", func(t *testing.T) {
		planner := plansmith.New(&mockOracle{})
		_, err := planner.ResumeFromPlan(context.Background(), nil, 1, "boom")
		gt.True(t, errors.Is(err, plansmith.ErrPromptSetup))
	})
}
