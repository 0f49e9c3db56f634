package plansmith

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
)

//go:embed templates/planner_system.md
var plannerSystemTemplate string

//go:embed templates/planner_user.md
var plannerUserTemplate string

//go:embed templates/recovery_report.md
var recoveryReportTemplate string

var (
	plannerSystemTmpl *template.Template
	plannerUserTmpl   *template.Template
	recoveryTmpl      *template.Template
)

func init() {
	plannerSystemTmpl = template.Must(template.New("planner_system").Parse(plannerSystemTemplate))
	plannerUserTmpl = template.Must(template.New("planner_user").Parse(plannerUserTemplate))
	recoveryTmpl = template.Must(template.New("recovery_report").Parse(recoveryReportTemplate))
}

type plannerSystemData struct {
	SystemPrompt string
	ToolCatalog  string
	TerminalTool string
}

type plannerUserData struct {
	Grounding     string
	FailureReport string
	Memory        []string
	History       string
	Objective     string
	Continuation  bool
}

type recoveryReportData struct {
	FailedTaskID int
	Reason       string
}

// promptRequest carries everything the prompt builder needs for one call.
type promptRequest struct {
	objective     string
	grounding     string
	memory        []string
	history       []Message
	tools         *ToolSet
	continuation  bool
	failedTaskID  int
	failureReason string
}

// buildMessages assembles the role-tagged message sequence sent to the
// oracle: one system message (persona, tool catalog, output contract) and
// one user message (grounding or failure report, completed-actions memory,
// condensed history, objective, final instruction). It has no side effects
// and never calls the oracle.
func buildMessages(cfg *plannerConfig, req *promptRequest) ([]Message, error) {
	terminal := ""
	if cfg.terminalTool != "" && req.tools.Has(cfg.terminalTool) {
		terminal = cfg.terminalTool
	}

	var systemBuf bytes.Buffer
	systemData := plannerSystemData{
		SystemPrompt: cfg.systemPrompt,
		ToolCatalog:  renderToolCatalog(req.tools),
		TerminalTool: terminal,
	}
	if err := plannerSystemTmpl.Execute(&systemBuf, systemData); err != nil {
		return nil, goerr.Wrap(err, "failed to render system prompt")
	}

	userData := plannerUserData{
		Memory:       req.memory,
		History:      condenseHistory(req.history, cfg.historyCharBudget),
		Objective:    req.objective,
		Continuation: req.continuation,
	}
	if req.continuation {
		var reportBuf bytes.Buffer
		reportData := recoveryReportData{
			FailedTaskID: req.failedTaskID,
			Reason:       req.failureReason,
		}
		if err := recoveryTmpl.Execute(&reportBuf, reportData); err != nil {
			return nil, goerr.Wrap(err, "failed to render failure report")
		}
		userData.FailureReport = strings.TrimSpace(reportBuf.String())
	} else {
		userData.Grounding = strings.TrimSpace(req.grounding)
	}

	var userBuf bytes.Buffer
	if err := plannerUserTmpl.Execute(&userBuf, userData); err != nil {
		return nil, goerr.Wrap(err, "failed to render user prompt")
	}

	return []Message{
		{Role: RoleSystem, Content: strings.TrimSpace(systemBuf.String())},
		{Role: RoleUser, Content: strings.TrimSpace(userBuf.String())},
	}, nil
}

// renderToolCatalog renders the tool snapshot as the catalog block of the
// system prompt: name, description and a flattened typed parameter list.
func renderToolCatalog(tools *ToolSet) string {
	if tools.Len() == 0 {
		return "(no tools available)"
	}

	var catalog strings.Builder
	for _, d := range tools.Descriptors() {
		fmt.Fprintf(&catalog, "- %s: %s\n", d.Name, d.Description)
		if len(d.Parameters) == 0 {
			continue
		}
		catalog.WriteString("  parameters:\n")
		for _, p := range d.Parameters {
			requirement := "optional"
			if p.Required {
				requirement = "required"
			}
			fmt.Fprintf(&catalog, "    - %s (%s, %s): %s\n", p.Name, p.Type, requirement, p.Description)
		}
	}
	return strings.TrimRight(catalog.String(), "\n")
}

// condenseHistory renders prior conversation turns with a per-turn
// character budget so long sessions do not blow up the prompt. System
// turns are omitted; the oracle gets its own system message.
func condenseHistory(history []Message, budget int) string {
	var lines []string
	for _, msg := range history {
		if msg.Role == RoleSystem {
			continue
		}
		content := strings.TrimSpace(msg.Content)
		if budget > 0 && len(content) > budget {
			content = content[:budget] + "..."
		}
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, content))
	}
	return strings.Join(lines, "\n")
}
