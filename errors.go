package plansmith

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrNoPlanFound is returned when no JSON-shaped plan candidate is found
	// in the oracle response. Retryable with corrective feedback.
	ErrNoPlanFound = goerr.New("no plan object found in oracle response")

	// ErrPlanParse is returned when the extracted candidate is not valid JSON.
	// Retryable with corrective feedback.
	ErrPlanParse = goerr.New("plan candidate is not valid JSON")

	// ErrPlanInvalid is returned when the parsed plan violates the schema or
	// references a tool outside the allowed set. Rejection is always
	// whole-plan, never partial. Retryable with corrective feedback.
	ErrPlanInvalid = goerr.New("plan failed validation")

	// ErrRetriesExhausted is returned when retryable failures persisted past
	// the attempt bound. The last raw oracle response and the last failure
	// message are attached as error values.
	ErrRetriesExhausted = goerr.New("plan generation retries exhausted")

	// ErrPromptSetup is returned when grounding retrieval or prompt assembly
	// failed before any oracle call. Never retried.
	ErrPromptSetup = goerr.New("failed to assemble planner prompt")

	// ErrToolNameConflict is returned when a tool set contains two
	// descriptors with the same name.
	ErrToolNameConflict = goerr.New("tool name conflict")

	// ErrInvalidTool is returned when a tool descriptor is malformed.
	ErrInvalidTool = goerr.New("invalid tool descriptor")

	// ErrUnresolvedVariable is returned by ResolveParameters when a
	// {{name}} token does not match the save_as of any completed task.
	ErrUnresolvedVariable = goerr.New("unresolved parameter variable")

	// ErrInvalidPlanData is returned when deserializing a plan with an
	// unknown format version or broken payload.
	ErrInvalidPlanData = goerr.New("invalid plan data")
)
