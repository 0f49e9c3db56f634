package openai_test

import (
	"context"
	"os"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/plansmith"
	"github.com/m-mizutani/plansmith/llm/openai"
)

func TestOpenAIPlanGeneration(t *testing.T) {
	apiKey, ok := os.LookupEnv("TEST_OPENAI_API_KEY")
	if !ok {
		t.Skip("TEST_OPENAI_API_KEY is not set")
	}

	ctx := context.Background()
	client, err := openai.New(apiKey)
	gt.NoError(t, err)

	tools := gt.R1(plansmith.NewToolSet(
		&plansmith.ToolDescriptor{Name: "list_files", Description: "List files in the working directory"},
		&plansmith.ToolDescriptor{Name: "submit_response", Description: "Send the final answer to the user"},
	)).NoError(t)

	planner := plansmith.New(client, plansmith.WithTerminalTool("submit_response"))
	result := gt.R1(planner.Generate(ctx, "Tell me what files are in the working directory",
		plansmith.WithTools(tools))).NoError(t)

	gt.True(t, len(result.Plan.Tasks) > 0)
	last := result.Plan.Tasks[len(result.Plan.Tasks)-1]
	gt.Value(t, last.Action).Equal("submit_response")
}

func TestNew(t *testing.T) {
	t.Run("empty api key fails", func(t *testing.T) {
		_, err := openai.New("")
		gt.Error(t, err)
	})

	t.Run("options are applied", func(t *testing.T) {
		client, err := openai.New("dummy-key",
			openai.WithModel("gpt-4o-mini"),
			openai.WithTemperature(0.2),
		)
		gt.NoError(t, err)
		gt.Value(t, client).NotEqual(nil)
	})
}

func TestConvertMessages(t *testing.T) {
	messages := []plansmith.Message{
		{Role: plansmith.RoleSystem, Content: "you are a planner"},
		{Role: plansmith.RoleUser, Content: "plan this"},
		{Role: plansmith.RoleAssistant, Content: "{}"},
	}

	converted := openai.ConvertMessages(messages)
	gt.A(t, converted).Length(3)
	gt.Value(t, converted[0].Role).Equal(goopenai.ChatMessageRoleSystem)
	gt.Value(t, converted[1].Role).Equal(goopenai.ChatMessageRoleUser)
	gt.Value(t, converted[2].Role).Equal(goopenai.ChatMessageRoleAssistant)
	gt.Value(t, converted[1].Content).Equal("plan this")
}

func TestConvertRole(t *testing.T) {
	gt.Value(t, openai.ConvertRole(plansmith.RoleSystem)).Equal(goopenai.ChatMessageRoleSystem)
	gt.Value(t, openai.ConvertRole(plansmith.RoleAssistant)).Equal(goopenai.ChatMessageRoleAssistant)
	gt.Value(t, openai.ConvertRole(plansmith.MessageRole("unknown"))).Equal(goopenai.ChatMessageRoleUser)
}
