package plansmith

var (
	ExtractPlanJSON   = extractPlanJSON
	CorrectiveMessage = correctiveMessage
)

// BuildPlan exposes validation/normalization for tests.
func (x *Planner) BuildPlan(candidate, objective string, tools *ToolSet) (*Plan, error) {
	return buildPlan(x.plannerConfig.Clone(), candidate, objective, tools)
}

var CtxWithLogger = ctxWithLogger

var ToolToDescriptor = toolToDescriptor
