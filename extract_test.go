package plansmith_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/plansmith"
)

func TestExtractPlanJSON(t *testing.T) {
	t.Run("fenced json block with surrounding prose", func(t *testing.T) {
		body := `{"tasks":[{"id":1,"action":"list_files","description":"list repo"}]}`
		text := "Sure! Here is the plan:\n```json\n" + body + "\n```\nLet me know if it works."

		gt.Value(t, plansmith.ExtractPlanJSON(text)).Equal(body)
	})

	t.Run("fence without json tag", func(t *testing.T) {
		body := `{"steps":[{"id":1,"action":"list_files"}]}`
		text := "```\n" + body + "\n```"

		gt.Value(t, plansmith.ExtractPlanJSON(text)).Equal(body)
	})

	t.Run("fenced block without marker is skipped", func(t *testing.T) {
		text := "```json\n{\"note\": \"not a plan\"}\n```\n" +
			`And here: {"tasks":[{"id":1,"action":"x"}]}`

		gt.Value(t, plansmith.ExtractPlanJSON(text)).Equal(`{"tasks":[{"id":1,"action":"x"}]}`)
	})

	t.Run("second balanced object holds the tasks", func(t *testing.T) {
		text := `First object: {"summary": "irrelevant"} then the plan ` +
			`{"tasks":[{"id":1,"action":"list_files"}]}`

		gt.Value(t, plansmith.ExtractPlanJSON(text)).Equal(`{"tasks":[{"id":1,"action":"list_files"}]}`)
	})

	t.Run("braces inside string literals do not break spans", func(t *testing.T) {
		body := `{"tasks":[{"id":1,"action":"write_file","parameters":{"content":"func main() { fmt.Println(\"}\") }"}}]}`

		gt.Value(t, plansmith.ExtractPlanJSON("plan: "+body+" done")).Equal(body)
	})

	t.Run("steps marker is accepted", func(t *testing.T) {
		body := `{"steps":[{"id":1,"action":"list_files"}]}`

		gt.Value(t, plansmith.ExtractPlanJSON(body)).Equal(body)
	})

	t.Run("pure prose yields nothing", func(t *testing.T) {
		gt.Value(t, plansmith.ExtractPlanJSON("I cannot produce a plan for that.")).Equal("")
	})

	t.Run("objects without markers yield nothing", func(t *testing.T) {
		gt.Value(t, plansmith.ExtractPlanJSON(`{"a": 1} and {"b": 2}`)).Equal("")
	})
}
