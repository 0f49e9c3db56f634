package plansmith

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

// Resume produces a plan fragment that continues an interrupted execution
// after failedTaskID failed for the given reason. The grounding slot of the
// prompt is replaced by a failure report; the completed-actions ledger
// (WithMemory) tells the oracle what must not be redone. Extraction,
// validation and retry behavior are identical to Generate — only the prompt
// content differs.
//
// The returned fragment is a new Plan intended to be appended after the
// completed work; merging it into the original plan is the executor's
// responsibility.
func (x *Planner) Resume(ctx context.Context, objective string, failedTaskID int, reason string, options ...PlanOption) (*Result, error) {
	if reason == "" {
		return nil, goerr.Wrap(ErrPromptSetup, "failure reason is required for plan resumption")
	}

	req := newPlanRequest(options...)

	promptReq := &promptRequest{
		objective:     objective,
		memory:        req.memory,
		history:       req.history,
		tools:         req.tools,
		continuation:  true,
		failedTaskID:  failedTaskID,
		failureReason: reason,
	}

	return x.run(ctx, req, promptReq)
}

// ResumeFromPlan is a convenience over Resume for callers holding the
// failed plan: the objective is taken from the plan and the descriptions of
// its succeeded tasks are appended to the completed-actions ledger.
func (x *Planner) ResumeFromPlan(ctx context.Context, plan *Plan, failedTaskID int, reason string, options ...PlanOption) (*Result, error) {
	if plan == nil {
		return nil, goerr.Wrap(ErrPromptSetup, "plan is required for resumption")
	}

	options = append(options, WithMemory(plan.CompletedSummaries()...))
	return x.Resume(ctx, plan.Objective, failedTaskID, reason, options...)
}
