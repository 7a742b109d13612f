// Package pipeline orchestrates the insight agents: a supervisor loop walks
// a question through routing, data execution, and dashboard composition,
// with per-node caching and a bounded retry on data failures.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tienda-lubbi/mirador/pkg/cache"
	"github.com/tienda-lubbi/mirador/pkg/memory"
	"github.com/tienda-lubbi/mirador/pkg/models"
)

const (
	maxDataRetries = 3

	// Safety bound on supervisor iterations. The graph is acyclic apart
	// from the retry edge, so this is never hit in practice.
	maxIterations = 12
)

// The supervisor talks to its agents through narrow interfaces so tests
// can stub individual nodes. The concrete agents in router, planner,
// executor, and composer satisfy them.
type questionRouter interface {
	Route(ctx context.Context, question string) models.RoutingDecision
}

type clarificationAgent interface {
	Analyze(ctx context.Context, question, detectedAmbiguity string) models.ClarificationAnalysis
}

type queryPlanner interface {
	Plan(ctx context.Context, req models.QueryRequest) models.QueryPlan
}

type dataExecutor interface {
	ExecutePlan(ctx context.Context, plan models.QueryPlan) *models.DataPayload
	ExecuteComparison(ctx context.Context, dateFrom, dateTo string) (*models.ComparisonData, error)
}

type dashboardComposer interface {
	Compose(ctx context.Context, question string, payload *models.DataPayload) *models.DashboardSpec
}

// Deps are the pipeline's collaborators. Clarifier and Memory may be nil
// for deployments without an LLM or without chat history.
type Deps struct {
	Router    questionRouter
	Clarifier clarificationAgent
	Planner   queryPlanner
	Executor  dataExecutor
	Composer  dashboardComposer
	Caches    *cache.Set
	Memory    memory.Store
	Logger    *slog.Logger
}

// Pipeline runs questions end to end.
type Pipeline struct {
	router    questionRouter
	clarifier clarificationAgent
	planner   queryPlanner
	executor  dataExecutor
	composer  dashboardComposer
	caches    *cache.Set
	memory    memory.Store
	logger    *slog.Logger
}

// New wires the pipeline from its dependencies.
func New(deps Deps) *Pipeline {
	return &Pipeline{
		router:    deps.Router,
		clarifier: deps.Clarifier,
		planner:   deps.Planner,
		executor:  deps.Executor,
		composer:  deps.Composer,
		caches:    deps.Caches,
		memory:    deps.Memory,
		logger:    deps.Logger.With("component", "pipeline"),
	}
}

// runState carries everything the supervisor accumulates for one question.
type runState struct {
	req        models.QueryRequest
	traceID    string
	hasContext bool

	routing *models.RoutingDecision
	plan    models.QueryPlan
	payload *models.DataPayload
	spec    *models.DashboardSpec
	direct  string

	retryCount int
	lastErr    error

	steps  []models.AgentStep
	onStep func(models.AgentStep)
}

func (st *runState) record(node, status, detail string) {
	step := models.AgentStep{
		Node:      node,
		Status:    status,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}
	st.steps = append(st.steps, step)
	if st.onStep != nil {
		st.onStep(step)
	}
}

// Run executes a question synchronously and returns the full result.
func (p *Pipeline) Run(ctx context.Context, req models.QueryRequest) *Result {
	return p.run(ctx, req, nil)
}

// RunStreaming executes a question in a goroutine and emits progress
// events on the returned channel. The channel closes after the complete
// event; the complete event always carries the result.
func (p *Pipeline) RunStreaming(ctx context.Context, req models.QueryRequest) <-chan Event {
	return p.RunStreamingWithTrace(ctx, req, NewTraceID())
}

// RunStreamingWithTrace is RunStreaming with a caller-supplied trace ID,
// for endpoints that need the ID before the first event (message IDs,
// persistence metadata).
func (p *Pipeline) RunStreamingWithTrace(ctx context.Context, req models.QueryRequest, traceID string) <-chan Event {
	ch := make(chan Event, 16)

	go func() {
		defer close(ch)

		ch <- Event{Kind: EventStart, TraceID: traceID}
		result := p.runWithTrace(ctx, req, traceID, func(step models.AgentStep) {
			s := step
			ch <- Event{
				Kind:    EventStep,
				TraceID: traceID,
				Message: NodeMessage(step.Node),
				Step:    &s,
			}
		})
		ch <- Event{Kind: EventComplete, TraceID: traceID, Result: result}
	}()

	return ch
}

func (p *Pipeline) run(ctx context.Context, req models.QueryRequest, onStep func(models.AgentStep)) *Result {
	return p.runWithTrace(ctx, req, NewTraceID(), onStep)
}

func (p *Pipeline) runWithTrace(ctx context.Context, req models.QueryRequest, traceID string, onStep func(models.AgentStep)) *Result {
	started := time.Now()
	logger := p.logger.With("trace_id", traceID)
	logger.Info("pipeline run started", "question_len", len(req.Question), "conversation_id", req.ConversationID)

	st := &runState{
		req:        req,
		traceID:    traceID,
		hasContext: p.hasHistory(ctx, req.ConversationID),
		onStep:     onStep,
	}

	for i := 0; i < maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			st.lastErr = err
			break
		}

		node := p.nextNode(st)
		if node == "" {
			break
		}

		switch node {
		case cache.NodeRouter:
			p.runRouter(ctx, st)
		case cache.NodeDirectResponse:
			p.runDirectResponse(st)
		case cache.NodeDataAgent:
			p.runDataAgent(ctx, st)
		case nodeReflection:
			p.runReflection(st)
		case cache.NodePresentation:
			p.runPresentation(ctx, st)
		}
	}

	result := p.buildResult(st, time.Since(started))
	logger.Info("pipeline run finished",
		"success", result.Success,
		"response_type", result.ResponseType,
		"steps", len(result.AgentSteps),
		"duration_ms", result.ExecutionMS)
	return result
}

// nextNode is the supervisor's routing decision: which node runs next
// given the state accumulated so far. Empty means done.
func (p *Pipeline) nextNode(st *runState) string {
	if st.routing == nil {
		return cache.NodeRouter
	}

	rt := st.routing.ResponseType
	if rt == models.ResponseConversational || rt == models.ResponseClarification {
		if st.direct == "" {
			return cache.NodeDirectResponse
		}
		return ""
	}

	if st.lastErr != nil {
		if st.retryCount < maxDataRetries {
			return nodeReflection
		}
		return ""
	}

	if st.routing.NeedsSQL && st.payload == nil {
		return cache.NodeDataAgent
	}

	if (st.routing.NeedsDashboard || st.routing.NeedsNarrative) && st.spec == nil {
		return cache.NodePresentation
	}

	return ""
}

func (p *Pipeline) buildResult(st *runState, elapsed time.Duration) *Result {
	result := &Result{
		TraceID:     st.traceID,
		AgentSteps:  st.steps,
		ExecutionMS: float64(elapsed.Microseconds()) / 1000.0,
	}
	if st.routing != nil {
		result.ResponseType = st.routing.ResponseType
	}

	if st.lastErr != nil {
		result.Error = Classify(st.lastErr)
		result.DirectResponse = result.Error.UserMessage()
		return result
	}

	result.Success = true
	result.DirectResponse = st.direct
	result.Dashboard = st.spec
	result.Payload = st.payload
	result.Meta = buildMeta(st.payload)
	return result
}

func (p *Pipeline) hasHistory(ctx context.Context, conversationID string) bool {
	if p.memory == nil || conversationID == "" {
		return false
	}
	turns, err := p.memory.History(ctx, conversationID, 1)
	if err != nil {
		p.logger.Warn("failed to check conversation history", "error", err)
		return false
	}
	return len(turns) > 0
}

// ChatContext returns the formatted conversation history for a thread,
// empty when memory is disabled or the thread is new.
func (p *Pipeline) ChatContext(ctx context.Context, conversationID string) string {
	if p.memory == nil || conversationID == "" {
		return ""
	}
	turns, err := p.memory.History(ctx, conversationID, memory.DefaultHistoryLimit)
	if err != nil {
		p.logger.Warn("failed to load conversation history", "error", err)
		return ""
	}
	return memory.ContextString(turns, 10)
}

// NewTraceID returns a short request trace identifier.
func NewTraceID() string {
	return uuid.NewString()[:8]
}
