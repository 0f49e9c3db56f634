package plansmith

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// varPattern matches {{name}} capture tokens inside string parameters.
var varPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// ResolveParameters returns a copy of task.Parameters with every {{name}}
// token replaced by the result of the earlier task whose save_as is name.
// It is a pre-execution helper for external executors; the planner itself
// never resolves variables.
//
// A string parameter consisting of exactly one token is replaced by the raw
// result value, preserving its type; a token embedded in a longer string is
// replaced by the stringified result. Tokens naming a variable with no
// completed producer fail with ErrUnresolvedVariable.
func ResolveParameters(task *Task, completed []*Task) (map[string]any, error) {
	captured := make(map[string]any)
	for _, t := range completed {
		if t.SaveAs != "" && t.Status == TaskStatusSucceeded {
			captured[t.SaveAs] = t.Result
		}
	}

	resolved := make(map[string]any, len(task.Parameters))
	for key, value := range task.Parameters {
		v, err := resolveValue(value, captured, task.ID)
		if err != nil {
			return nil, err
		}
		resolved[key] = v
	}
	return resolved, nil
}

// resolveValue substitutes tokens recursively through strings, objects and
// arrays. Non-string leaves pass through untouched.
func resolveValue(value any, captured map[string]any, taskID int) (any, error) {
	switch v := value.(type) {
	case string:
		return resolveString(v, captured, taskID)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, elem := range v {
			resolved, err := resolveValue(elem, captured, taskID)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			resolved, err := resolveValue(elem, captured, taskID)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return value, nil
	}
}

func resolveString(s string, captured map[string]any, taskID int) (any, error) {
	// An exact single-token value substitutes the raw result so non-string
	// results (objects, numbers) survive with their type.
	if match := varPattern.FindStringSubmatch(s); match != nil && match[0] == strings.TrimSpace(s) {
		result, ok := captured[match[1]]
		if !ok {
			return nil, unresolvedVariable(match[1], taskID)
		}
		return result, nil
	}

	var resolveErr error
	out := varPattern.ReplaceAllStringFunc(s, func(token string) string {
		name := varPattern.FindStringSubmatch(token)[1]
		result, ok := captured[name]
		if !ok {
			if resolveErr == nil {
				resolveErr = unresolvedVariable(name, taskID)
			}
			return token
		}
		return stringifyResult(result)
	})
	if resolveErr != nil {
		return nil, resolveErr
	}
	return out, nil
}

func unresolvedVariable(name string, taskID int) error {
	return goerr.Wrap(ErrUnresolvedVariable, "no completed task captured this variable",
		goerr.V("variable", name), goerr.V("task_id", taskID))
}

// stringifyResult renders a captured result for embedding into a string
// parameter.
func stringifyResult(result any) string {
	switch v := result.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}
