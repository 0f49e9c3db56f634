package plansmith

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

const (
	// DefaultMaxAttempts is the default total attempt bound of the
	// generate/extract/validate loop. Observed oracles converge within a
	// few corrections; stricter oracles can run with fewer via
	// WithMaxAttempts.
	DefaultMaxAttempts = 3

	// DefaultHistoryCharBudget is the per-turn character budget applied
	// when condensing prior conversation turns into the prompt.
	DefaultHistoryCharBudget = 2500
)

// Planner generates validated plans from natural-language objectives by
// driving an untrusted oracle through a bounded self-correcting loop.
type Planner struct {
	oracle Oracle

	plannerConfig
}

type plannerConfig struct {
	maxAttempts       int
	historyCharBudget int
	terminalTool      string
	strictParameters  bool
	systemPrompt      string
	logger            *slog.Logger
}

func (c *plannerConfig) Clone() *plannerConfig {
	clone := *c
	return &clone
}

// New creates a planner over the given oracle.
func New(oracle Oracle, options ...Option) *Planner {
	p := &Planner{
		oracle: oracle,
		plannerConfig: plannerConfig{
			maxAttempts:       DefaultMaxAttempts,
			historyCharBudget: DefaultHistoryCharBudget,
			logger:            slog.New(slog.DiscardHandler),
		},
	}

	for _, opt := range options {
		opt(&p.plannerConfig)
	}

	p.logger.Info("planner created",
		"max_attempts", p.maxAttempts,
		"history_char_budget", p.historyCharBudget,
		"terminal_tool", p.terminalTool,
		"strict_parameters", p.strictParameters,
	)

	return p
}

// Option configures a Planner.
type Option func(*plannerConfig)

// WithMaxAttempts sets the total attempt bound of the retry loop. Each
// attempt is one oracle call; correction happens between attempts.
func WithMaxAttempts(n int) Option {
	return func(c *plannerConfig) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithHistoryCharBudget sets the per-turn character budget used when
// condensing conversation history into the prompt. Zero disables
// truncation.
func WithHistoryCharBudget(n int) Option {
	return func(c *plannerConfig) {
		c.historyCharBudget = n
	}
}

// WithTerminalTool designates the tool that must end every plan when it is
// present in the call's tool snapshot. A missing terminal task is repaired
// by appending one synthetic task rather than re-prompting.
func WithTerminalTool(name string) Option {
	return func(c *plannerConfig) {
		c.terminalTool = name
	}
}

// WithStrictParameters makes validation also check task parameters against
// each tool's JSON schema. Off by default: parameters holding unresolved
// {{name}} tokens are legal strings regardless of the schema's final type.
func WithStrictParameters() Option {
	return func(c *plannerConfig) {
		c.strictParameters = true
	}
}

// WithSystemPrompt appends extra persona instructions to the built-in
// planner system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(c *plannerConfig) {
		c.systemPrompt = prompt
	}
}

// WithLogger sets the logger. Default is a discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *plannerConfig) {
		c.logger = logger
	}
}

// planRequest is per-call state assembled from PlanOption values.
type planRequest struct {
	tools             *ToolSet
	grounding         string
	groundingProvider func(ctx context.Context) (string, error)
	memory            []string
	history           []Message
	chatOptions       []ChatOption
}

// PlanOption configures a single planning call.
type PlanOption func(*planRequest)

// WithTools sets the immutable tool snapshot the plan is validated against.
// A plan referencing any tool outside this snapshot is rejected whole.
func WithTools(tools *ToolSet) PlanOption {
	return func(r *planRequest) {
		r.tools = tools
	}
}

// WithGrounding sets the grounding context text inserted verbatim into the
// prompt for fresh plans. Continuations replace it with a failure report.
func WithGrounding(text string) PlanOption {
	return func(r *planRequest) {
		r.grounding = text
	}
}

// WithGroundingProvider sets a callback that fetches grounding context just
// before prompt assembly. A provider error aborts the call before any
// oracle attempt.
func WithGroundingProvider(fn func(ctx context.Context) (string, error)) PlanOption {
	return func(r *planRequest) {
		r.groundingProvider = fn
	}
}

// WithMemory appends completed-action ledger entries. Each entry is a
// human-readable description of work already done; the oracle is told not
// to plan it again.
func WithMemory(entries ...string) PlanOption {
	return func(r *planRequest) {
		r.memory = append(r.memory, entries...)
	}
}

// WithHistory appends prior conversation turns to condense into the prompt.
func WithHistory(messages ...Message) PlanOption {
	return func(r *planRequest) {
		r.history = append(r.history, messages...)
	}
}

// WithChatOptions forwards per-call oracle options such as a model override
// or a streaming chunk callback.
func WithChatOptions(options ...ChatOption) PlanOption {
	return func(r *planRequest) {
		r.chatOptions = append(r.chatOptions, options...)
	}
}

// Result is the terminal outcome of a successful planning call.
type Result struct {
	// Plan is the validated plan.
	Plan *Plan

	// RawResponse is the oracle response the plan was extracted from (the
	// last response when corrections were needed).
	RawResponse string

	// Attempts is the number of oracle calls consumed.
	Attempts int
}

// Generate produces a validated plan for the objective. On extraction,
// parse or validation failure the faulty response plus a corrective
// instruction are fed back to the oracle and the call is retried up to the
// configured bound. Cancellation is checked before every attempt and
// returns immediately without consuming one.
func (x *Planner) Generate(ctx context.Context, objective string, options ...PlanOption) (*Result, error) {
	req := newPlanRequest(options...)

	promptReq := &promptRequest{
		objective: objective,
		grounding: req.grounding,
		memory:    req.memory,
		history:   req.history,
		tools:     req.tools,
	}

	return x.run(ctx, req, promptReq)
}

func newPlanRequest(options ...PlanOption) *planRequest {
	req := &planRequest{}
	for _, opt := range options {
		opt(req)
	}
	if req.tools == nil {
		req.tools = &ToolSet{}
	}
	return req
}

// run drives the generate, extract, validate loop to a terminal outcome.
func (x *Planner) run(ctx context.Context, req *planRequest, promptReq *promptRequest) (*Result, error) {
	cfg := x.plannerConfig.Clone()

	logger := cfg.logger.With("plansmith.request_id", uuid.New().String())
	ctx = ctxWithLogger(ctx, logger)

	if req.groundingProvider != nil && !promptReq.continuation {
		grounding, err := req.groundingProvider(ctx)
		if err != nil {
			return nil, goerr.Wrap(ErrPromptSetup, "grounding provider failed", goerr.V("cause", err.Error()))
		}
		promptReq.grounding = grounding
	}

	messages, err := buildMessages(cfg, promptReq)
	if err != nil {
		return nil, goerr.Wrap(ErrPromptSetup, "prompt assembly failed", goerr.V("cause", err.Error()))
	}

	logger.Info("starting plan generation",
		"objective", promptReq.objective,
		"continuation", promptReq.continuation,
		"tools_count", req.tools.Len(),
		"memory_entries", len(promptReq.memory),
	)

	var lastRaw, lastFailure string

	for attempt := 1; attempt <= cfg.maxAttempts; attempt++ {
		// Cancellation is honored before issuing the oracle call and does
		// not consume an attempt.
		if err := ctx.Err(); err != nil {
			return nil, goerr.Wrap(err, "plan generation aborted", goerr.V("attempt", attempt))
		}

		if attempt > 1 {
			messages = append(messages,
				Message{Role: RoleAssistant, Content: lastRaw},
				Message{Role: RoleSystem, Content: correctiveMessage(lastFailure)},
			)
		}

		raw, err := x.oracle.SendChat(ctx, messages, req.chatOptions...)
		if err != nil {
			// Transport errors are not part of the retryable taxonomy: the
			// corrective loop repairs content, not connectivity.
			return nil, goerr.Wrap(err, "oracle call failed", goerr.V("attempt", attempt))
		}
		lastRaw = raw

		candidate := extractPlanJSON(raw)
		if candidate == "" {
			lastFailure = ErrNoPlanFound.Error()
			logger.Info("plan extraction failed", "attempt", attempt)
			continue
		}

		plan, err := buildPlan(cfg, candidate, promptReq.objective, req.tools)
		if err != nil {
			lastFailure = err.Error()
			logger.Info("plan validation failed", "attempt", attempt, "error", lastFailure)
			continue
		}

		logger.Info("plan generated",
			"plan_id", plan.ID,
			"tasks_count", len(plan.Tasks),
			"attempts", attempt,
		)

		return &Result{
			Plan:        plan,
			RawResponse: raw,
			Attempts:    attempt,
		}, nil
	}

	return nil, goerr.Wrap(ErrRetriesExhausted, "oracle did not produce a valid plan",
		goerr.V("attempts", cfg.maxAttempts),
		goerr.V("last_error", lastFailure),
		goerr.V("raw_response", lastRaw),
	)
}

// correctiveMessage builds the system message appended after a failed
// attempt. It names the exact failure and restates the output contract so
// the oracle can repair its own response.
func correctiveMessage(failure string) string {
	return fmt.Sprintf("Your previous response was rejected: %s. "+
		"Respond again with exactly one JSON object and nothing else. "+
		"The object must contain a non-empty \"tasks\" array and every task's "+
		"\"action\" must be one of the listed tool names.", failure)
}
