// Package chat runs conversation turns against the model.
//
// A turn is: append the user message, then alternate model generation and
// tool execution until the model answers in text or the turn limit is hit.
// The loop is explicit rather than delegated to the framework so every
// intermediate item lands in the session history and the turn limit
// surfaces as a distinct error.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/dbchat/dbchat/internal/session"
)

const (
	// DefaultMaxTurns bounds the generate/tool-call loop per request.
	DefaultMaxTurns = 40

	// FallbackResponseMessage is returned when the model produces an empty
	// response with no tool requests.
	FallbackResponseMessage = "I apologize, but I couldn't generate a response. Please try rephrasing your question."
)

// systemInstructions is prepended to every generation request.
// The answer format is markdown because the web client renders it as such.
const systemInstructions = `You are a helpful assistant that answers questions about the contents of a SQL database.

You have three tools:
- list_tables: list the tables in the database
- read_table: read up to 100 rows of a table
- execute_sql: run a SELECT query

Work step by step: discover the tables first, inspect the ones that look
relevant, then answer with targeted SELECT queries. Only SELECT statements
are permitted; never attempt to modify data.

Always format your answers as markdown. Use tables for tabular results.`

// Sentinel errors for turn execution. Check with errors.Is().
var (
	// ErrTurnLimit indicates the model kept requesting tools until the
	// per-request turn budget ran out.
	ErrTurnLimit = errors.New("turn limit exceeded")

	// ErrGenerationFailed indicates the model call failed after retries.
	ErrGenerationFailed = errors.New("generation failed")
)

// Response is the result of one conversation turn.
type Response struct {
	// FinalText is the model's answer, markdown-formatted.
	FinalText string

	// NewItems holds the messages this turn produced beyond the user
	// message: model output and tool results, in order.
	NewItems []*ai.Message
}

// Config contains all required parameters for the Agent.
type Config struct {
	Genkit *genkit.Genkit
	Logger *slog.Logger
	Tools  []ai.Tool // Pre-registered via tools.Register

	ModelName string // Provider-qualified model name (e.g. "googleai/gemini-2.5-flash")
	MaxTurns  int    // Maximum generate/tool-call turns per request

	RetryConfig RetryConfig   // LLM retry settings (zero-value uses defaults)
	RateLimiter *rate.Limiter // Optional: proactive rate limiting (nil = use default)
}

// validate checks if all required parameters are present.
func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if len(cfg.Tools) == 0 {
		return errors.New("at least one tool is required")
	}
	return nil
}

// Agent executes conversation turns.
//
// Agent is stateless between calls; all per-conversation state lives in
// the session passed to Execute. Configuration is captured immutably at
// construction so concurrent turns are safe.
type Agent struct {
	modelName string
	maxTurns  int

	retryConfig RetryConfig
	rateLimiter *rate.Limiter

	g        *genkit.Genkit
	logger   *slog.Logger
	toolRefs []ai.ToolRef
}

// New creates an Agent.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}

	// Default: 10 requests/sec sustained, burst of 30
	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	toolRefs := make([]ai.ToolRef, len(cfg.Tools))
	for i, t := range cfg.Tools {
		toolRefs[i] = t
	}

	a := &Agent{
		modelName:   cfg.ModelName,
		maxTurns:    maxTurns,
		retryConfig: retryConfig,
		rateLimiter: rl,
		g:           cfg.Genkit,
		logger:      cfg.Logger,
		toolRefs:    toolRefs,
	}

	a.logger.Info("chat agent initialized",
		"model", a.modelName,
		"tools", len(a.toolRefs),
		"maxTurns", a.maxTurns,
	)
	return a, nil
}

// Execute runs one conversation turn for the session.
//
// The user message is appended to the session history before anything
// else, so it survives any later failure. Every item the turn produces
// (model messages, tool results) is appended to the history as it is
// made; a failure mid-turn leaves the partial progress in place.
//
// Turns within one session are serialized by the session's turn lock.
func (a *Agent) Execute(ctx context.Context, sess *session.Session, content string) (*Response, error) {
	sess.LockTurn()
	defer sess.UnlockTurn()

	a.logger.Debug("executing turn", "session_id", sess.ID, "input_length", len(content))

	sess.History.Add(ai.NewUserMessage(ai.NewTextPart(content)))

	// convo is the canonical message list for this turn. Each generation
	// call receives a deep copy because Genkit mutates message content
	// in place during rendering.
	convo := sess.History.Messages()
	var newItems []*ai.Message

	record := func(msg *ai.Message) {
		sess.History.Add(msg)
		convo = append(convo, msg)
		newItems = append(newItems, msg)
	}

	for turn := 0; turn < a.maxTurns; turn++ {
		resp, err := a.generateWithRetry(ctx, deepCopyMessages(convo))
		if err != nil {
			a.logger.Error("generation failed", "session_id", sess.ID, "turn", turn, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}

		if resp.Message != nil {
			record(resp.Message)
		}

		reqs := resp.ToolRequests()
		if len(reqs) == 0 {
			text := resp.Text()
			if strings.TrimSpace(text) == "" {
				a.logger.Warn("model returned empty response with no tool requests", "session_id", sess.ID)
				text = FallbackResponseMessage
			}
			a.logger.Debug("turn complete", "session_id", sess.ID, "turns", turn+1, "new_items", len(newItems))
			return &Response{FinalText: text, NewItems: newItems}, nil
		}

		parts := make([]*ai.Part, 0, len(reqs))
		for _, req := range reqs {
			output, err := a.runTool(ctx, req)
			if err != nil {
				return nil, err
			}
			parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
				Name:   req.Name,
				Ref:    req.Ref,
				Output: output,
			}))
		}
		record(ai.NewMessage(ai.RoleTool, nil, parts...))
	}

	a.logger.Warn("turn limit exhausted", "session_id", sess.ID, "maxTurns", a.maxTurns)
	return nil, fmt.Errorf("%w after %d turns", ErrTurnLimit, a.maxTurns)
}

// runTool dispatches a single tool request.
//
// Tool failures are fed back to the model as the tool's output so it can
// correct itself; only context cancellation aborts the turn. The model
// never sees failure detail beyond a generic message.
func (a *Agent) runTool(ctx context.Context, req *ai.ToolRequest) (any, error) {
	tool := genkit.LookupTool(a.g, req.Name)
	if tool == nil {
		a.logger.Warn("model requested unknown tool", "tool", req.Name)
		return map[string]any{"error": fmt.Sprintf("unknown tool: %s", req.Name)}, nil
	}

	a.logger.Debug("running tool", "tool", req.Name)
	output, err := tool.RunRaw(ctx, req.Input)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("tool %s canceled: %w", req.Name, ctx.Err())
		}
		a.logger.Error("tool execution failed", "tool", req.Name, "error", err)
		return map[string]any{"error": "operation failed"}, nil
	}
	return output, nil
}

// generate issues a single model call with the turn's messages and tools.
// Tool requests are returned to the caller rather than auto-executed so
// the turn loop stays in control of history and the turn budget.
func (a *Agent) generate(ctx context.Context, messages []*ai.Message) (*ai.ModelResponse, error) {
	opts := []ai.GenerateOption{
		ai.WithSystem(systemInstructions),
		ai.WithMessages(messages...),
		ai.WithTools(a.toolRefs...),
		ai.WithReturnToolRequests(true),
	}
	if a.modelName != "" {
		opts = append(opts, ai.WithModelName(a.modelName))
	}
	return genkit.Generate(ctx, a.g, opts...)
}
