package plansmith_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/plansmith"
)

func TestResolveParameters(t *testing.T) {
	completed := []*plansmith.Task{
		{ID: 1, Action: "list_files", SaveAs: "files", Status: plansmith.TaskStatusSucceeded,
			Result: []any{"go.mod", "main.go"}},
		{ID: 2, Action: "read_file", SaveAs: "content", Status: plansmith.TaskStatusSucceeded,
			Result: "module example"},
		{ID: 3, Action: "count_lines", SaveAs: "count", Status: plansmith.TaskStatusSucceeded,
			Result: float64(42)},
		{ID: 4, Action: "read_file", SaveAs: "aborted", Status: plansmith.TaskStatusFailed,
			Result: "should not leak"},
	}

	t.Run("exact token preserves result type", func(t *testing.T) {
		task := &plansmith.Task{ID: 5, Parameters: map[string]any{
			"items": "{{files}}",
			"total": "{{ count }}",
		}}

		resolved := gt.R1(plansmith.ResolveParameters(task, completed)).NoError(t)
		gt.Value(t, resolved["items"]).Equal([]any{"go.mod", "main.go"})
		gt.Value(t, resolved["total"]).Equal(float64(42))
	})

	t.Run("embedded token is stringified", func(t *testing.T) {
		task := &plansmith.Task{ID: 5, Parameters: map[string]any{
			"message": "found {{count}} lines in {{content}}",
		}}

		resolved := gt.R1(plansmith.ResolveParameters(task, completed)).NoError(t)
		gt.Value(t, resolved["message"]).Equal("found 42 lines in module example")
	})

	t.Run("tokens resolve inside nested objects and arrays", func(t *testing.T) {
		task := &plansmith.Task{ID: 5, Parameters: map[string]any{
			"request": map[string]any{
				"body":  "{{content}}",
				"paths": []any{"{{files}}", "static"},
			},
		}}

		resolved := gt.R1(plansmith.ResolveParameters(task, completed)).NoError(t)
		request := resolved["request"].(map[string]any)
		gt.Value(t, request["body"]).Equal("module example")
		paths := request["paths"].([]any)
		gt.Value(t, paths[0]).Equal([]any{"go.mod", "main.go"})
		gt.Value(t, paths[1]).Equal("static")
	})

	t.Run("unknown variable fails", func(t *testing.T) {
		task := &plansmith.Task{ID: 5, Parameters: map[string]any{
			"path": "{{missing}}",
		}}

		_, err := plansmith.ResolveParameters(task, completed)
		gt.True(t, errors.Is(err, plansmith.ErrUnresolvedVariable))
	})

	t.Run("failed producer does not capture", func(t *testing.T) {
		task := &plansmith.Task{ID: 5, Parameters: map[string]any{
			"path": "{{aborted}}",
		}}

		_, err := plansmith.ResolveParameters(task, completed)
		gt.True(t, errors.Is(err, plansmith.ErrUnresolvedVariable))
	})

	t.Run("non-string and token-free values pass through", func(t *testing.T) {
		task := &plansmith.Task{ID: 5, Parameters: map[string]any{
			"limit":   float64(10),
			"dry_run": true,
			"path":    "go.mod",
		}}

		resolved := gt.R1(plansmith.ResolveParameters(task, completed)).NoError(t)
		gt.Value(t, resolved["limit"]).Equal(float64(10))
		gt.Value(t, resolved["dry_run"]).Equal(true)
		gt.Value(t, resolved["path"]).Equal("go.mod")
	})
}
