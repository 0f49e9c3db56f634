package plansmith_test

import (
	"context"
	"os"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/plansmith"
)

func TestMCPStdioDescriptors(t *testing.T) {
	mcpExecPath, ok := os.LookupEnv("TEST_MCP_EXEC_PATH")
	if !ok {
		t.Skip("TEST_MCP_EXEC_PATH is not set")
	}

	source := plansmith.NewMCPStdio(mcpExecPath, []string{})
	defer source.Close()

	descriptors, err := source.Descriptors(context.Background())
	gt.NoError(t, err)
	gt.A(t, descriptors).Longer(0)

	set := gt.R1(plansmith.NewToolSet(descriptors...)).NoError(t)
	gt.True(t, set.Len() > 0)
}

func TestToolToDescriptor(t *testing.T) {
	t.Run("schema fields map onto parameters", func(t *testing.T) {
		tool := mcp.Tool{
			Name:        "search",
			Description: "Search the index",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "search query",
					},
					"scope": map[string]any{
						"type": "string",
						"enum": []any{"code", "docs"},
					},
					"tags": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
				},
				Required: []string{"query"},
			},
		}

		d := gt.R1(plansmith.ToolToDescriptor(tool)).NoError(t)
		gt.Value(t, d.Name).Equal("search")
		gt.A(t, d.Parameters).Length(3)

		// Parameters come back sorted by name.
		gt.Value(t, d.Parameters[0].Name).Equal("query")
		gt.Value(t, d.Parameters[0].Required).Equal(true)
		gt.Value(t, d.Parameters[1].Name).Equal("scope")
		gt.Value(t, d.Parameters[1].Enum).Equal([]string{"code", "docs"})
		gt.Value(t, d.Parameters[2].Name).Equal("tags")
		gt.Value(t, d.Parameters[2].Items.Type).Equal(plansmith.TypeString)

		gt.NoError(t, d.Validate())
	})

	t.Run("nested object properties convert recursively", func(t *testing.T) {
		tool := mcp.Tool{
			Name: "create_issue",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"issue": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"title": map[string]any{"type": "string"},
						},
					},
				},
			},
		}

		d := gt.R1(plansmith.ToolToDescriptor(tool)).NoError(t)
		gt.A(t, d.Parameters).Length(1)
		gt.Value(t, d.Parameters[0].Type).Equal(plansmith.TypeObject)
		gt.Value(t, d.Parameters[0].Properties["title"].Type).Equal(plansmith.TypeString)
	})

	t.Run("array without items fails", func(t *testing.T) {
		tool := mcp.Tool{
			Name: "broken",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"tags": map[string]any{"type": "array"},
				},
			},
		}

		_, err := plansmith.ToolToDescriptor(tool)
		gt.Error(t, err)
	})
}
