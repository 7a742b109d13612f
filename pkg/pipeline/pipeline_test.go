package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tienda-lubbi/mirador/pkg/cache"
	"github.com/tienda-lubbi/mirador/pkg/composer"
	"github.com/tienda-lubbi/mirador/pkg/executor"
	"github.com/tienda-lubbi/mirador/pkg/llm"
	"github.com/tienda-lubbi/mirador/pkg/models"
	"github.com/tienda-lubbi/mirador/pkg/planner"
	"github.com/tienda-lubbi/mirador/pkg/router"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Complete(_ context.Context, _ llm.Request) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) Provider() string { return "fake" }

// demoPipeline wires the real agents in demo mode: no database, no LLM.
func demoPipeline(t *testing.T) *Pipeline {
	t.Helper()
	logger := testLogger()
	return New(Deps{
		Router:   router.New(nil, false, logger),
		Planner:  planner.New(nil, false, logger),
		Executor: executor.New(nil, time.Second, true, logger),
		Composer: composer.New(nil, false, true, logger),
		Caches:   cache.NewSet(),
		Logger:   logger,
	})
}

func TestRun_Conversational(t *testing.T) {
	p := demoPipeline(t)

	result := p.Run(context.Background(), models.QueryRequest{Question: "hola"})

	require.True(t, result.Success)
	assert.Equal(t, models.ResponseConversational, result.ResponseType)
	assert.Contains(t, result.DirectResponse, "Mirador")
	require.NotNil(t, result.Dashboard)
	assert.Equal(t, result.DirectResponse, result.Dashboard.Conclusion)
	assert.Nil(t, result.Payload)

	nodes := stepNodes(result.AgentSteps)
	assert.Equal(t, []string{cache.NodeRouter, cache.NodeDirectResponse}, nodes)
}

func TestRun_DashboardInDemoMode(t *testing.T) {
	p := demoPipeline(t)

	result := p.Run(context.Background(), models.QueryRequest{
		Question: "mostrame las ventas de diciembre 2024",
	})

	require.True(t, result.Success)
	assert.Equal(t, models.ResponseDashboard, result.ResponseType)
	require.NotNil(t, result.Dashboard)
	require.NotNil(t, result.Payload)
	require.NotNil(t, result.Meta)
	assert.True(t, result.Meta.HasKPIs)
	assert.True(t, result.Meta.HasTimeSeries)
	assert.Greater(t, result.Meta.DatasetsCount, 0)
	assert.NotEmpty(t, result.Dashboard.Slots.Series)
	assert.NotEmpty(t, result.Dashboard.Slots.Charts)

	nodes := stepNodes(result.AgentSteps)
	assert.Equal(t, []string{cache.NodeRouter, cache.NodeDataAgent, cache.NodePresentation}, nodes)
	assert.NotZero(t, result.ExecutionMS)
}

func TestRun_SecondRunHitsCaches(t *testing.T) {
	p := demoPipeline(t)
	req := models.QueryRequest{Question: "como van las ventas de diciembre 2024"}

	first := p.Run(context.Background(), req)
	require.True(t, first.Success)

	second := p.Run(context.Background(), req)
	require.True(t, second.Success)

	for _, step := range second.AgentSteps {
		assert.Equal(t, "cached", step.Status, "node %s should be served from cache", step.Node)
	}
}

func TestRun_ComparisonQuestion(t *testing.T) {
	p := demoPipeline(t)

	result := p.Run(context.Background(), models.QueryRequest{
		Question: "comparar ventas de diciembre 2024",
	})

	require.True(t, result.Success)
	require.NotNil(t, result.Payload)
	require.NotNil(t, result.Payload.Comparison)
	assert.True(t, result.Payload.Comparison.IsComparison)
	assert.Contains(t, result.Payload.AvailableRefs, "comparison")
}

func TestRun_ComparisonWithoutPeriodAsksClarification(t *testing.T) {
	logger := testLogger()
	clarifierLLM := &fakeLLM{response: `{
		"needs_clarification": true,
		"reasoning": "no hay periodo",
		"clarification_question": "Con que periodo quieres comparar?",
		"options": ["Mes anterior", "Mismo mes del año pasado"]
	}`}

	p := New(Deps{
		Router:    router.New(nil, false, logger),
		Clarifier: router.NewClarificationAgent(clarifierLLM, logger),
		Planner:   planner.New(nil, false, logger),
		Executor:  executor.New(nil, time.Second, true, logger),
		Composer:  composer.New(nil, false, true, logger),
		Caches:    cache.NewSet(),
		Logger:    logger,
	})

	result := p.Run(context.Background(), models.QueryRequest{Question: "comparar ventas"})

	require.True(t, result.Success)
	assert.Equal(t, models.ResponseClarification, result.ResponseType)
	assert.Contains(t, result.DirectResponse, "Con que periodo quieres comparar?")
	assert.Contains(t, result.DirectResponse, "- Mes anterior")
	assert.Nil(t, result.Payload)
}

type stubRouter struct {
	decision models.RoutingDecision
}

func (s *stubRouter) Route(_ context.Context, _ string) models.RoutingDecision {
	return s.decision
}

type stubPlanner struct{}

func (s *stubPlanner) Plan(_ context.Context, _ models.QueryRequest) models.QueryPlan {
	return models.QueryPlan{
		Queries: []models.PlannedQuery{{QueryID: "kpi_sales_summary", Params: map[string]any{}}},
		Source:  "heuristic",
	}
}

// flakyExecutor fails its first N ExecutePlan calls, then succeeds.
type flakyExecutor struct {
	failures int
	calls    int
}

func (f *flakyExecutor) ExecutePlan(_ context.Context, _ models.QueryPlan) *models.DataPayload {
	f.calls++
	if f.calls <= f.failures {
		return &models.DataPayload{
			DatasetsMeta: []models.DatasetMeta{
				{QueryID: "kpi_sales_summary", Error: "connection refused"},
			},
		}
	}
	total := 100.0
	return &models.DataPayload{
		KPIs:          &models.KPIData{TotalSales: &total},
		DatasetsMeta:  []models.DatasetMeta{{QueryID: "kpi_sales_summary", RowCount: 1}},
		AvailableRefs: []string{"kpi.total_sales"},
	}
}

func (f *flakyExecutor) ExecuteComparison(_ context.Context, _, _ string) (*models.ComparisonData, error) {
	return nil, errors.New("not supported")
}

func flakyPipeline(t *testing.T, failures int) (*Pipeline, *flakyExecutor) {
	t.Helper()
	logger := testLogger()
	exec := &flakyExecutor{failures: failures}
	p := New(Deps{
		Router: &stubRouter{decision: models.RoutingDecision{
			ResponseType:   models.ResponseDashboard,
			NeedsSQL:       true,
			NeedsDashboard: true,
			Domain:         models.DomainSales,
			Confidence:     0.9,
		}},
		Planner:  &stubPlanner{},
		Executor: exec,
		Composer: composer.New(nil, false, true, logger),
		Caches:   cache.NewSet(),
		Logger:   logger,
	})
	return p, exec
}

func TestRun_RetriesRecoverFromTransientFailure(t *testing.T) {
	p, exec := flakyPipeline(t, 2)

	result := p.Run(context.Background(), models.QueryRequest{Question: "ventas totales"})

	require.True(t, result.Success)
	assert.Equal(t, 3, exec.calls)

	retries := 0
	for _, step := range result.AgentSteps {
		if step.Node == nodeReflection {
			retries++
		}
	}
	assert.Equal(t, 2, retries)
	require.NotNil(t, result.Payload)
	assert.Contains(t, result.Payload.AvailableRefs, "kpi.total_sales")
}

func TestRun_RetryBudgetExhausted(t *testing.T) {
	p, exec := flakyPipeline(t, 100)

	result := p.Run(context.Background(), models.QueryRequest{Question: "ventas totales"})

	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, CodeDatabase, result.Error.Code)
	assert.NotEmpty(t, result.DirectResponse)
	assert.Equal(t, 1+maxDataRetries, exec.calls)
	assert.Nil(t, result.Payload)

	retries := 0
	for _, step := range result.AgentSteps {
		if step.Node == nodeReflection {
			retries++
		}
	}
	assert.Equal(t, maxDataRetries, retries)
}

func TestRun_FailedDataIsNotCached(t *testing.T) {
	p, exec := flakyPipeline(t, maxDataRetries+1)

	first := p.Run(context.Background(), models.QueryRequest{Question: "ventas totales"})
	require.False(t, first.Success)

	// The failure consumed the whole retry budget, so the next run's first
	// attempt succeeds and must not be served a cached failure.
	second := p.Run(context.Background(), models.QueryRequest{Question: "ventas totales"})
	require.True(t, second.Success)
	assert.Equal(t, maxDataRetries+2, exec.calls)
}

func TestRunStreaming_EventOrder(t *testing.T) {
	p := demoPipeline(t)

	var events []Event
	for ev := range p.RunStreaming(context.Background(), models.QueryRequest{
		Question: "mostrame las ventas de diciembre 2024",
	}) {
		events = append(events, ev)
	}

	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, EventStart, events[0].Kind)

	last := events[len(events)-1]
	assert.Equal(t, EventComplete, last.Kind)
	require.NotNil(t, last.Result)
	assert.True(t, last.Result.Success)

	for _, ev := range events[1 : len(events)-1] {
		assert.Equal(t, EventStep, ev.Kind)
		require.NotNil(t, ev.Step)
		assert.NotEmpty(t, ev.Message)
		assert.Equal(t, events[0].TraceID, ev.TraceID)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"cancelled", context.Canceled, CodeCancelled},
		{"deadline", context.DeadlineExceeded, CodeCancelled},
		{"rate limited", llm.ErrRateLimited, CodeRateLimited},
		{"not configured", llm.ErrNotConfigured, CodeLLM},
		{"database", errors.New("pgx: connection refused"), CodeDatabase},
		{"unknown", errors.New("boom"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := Classify(tt.err)
			require.NotNil(t, classified)
			assert.Equal(t, tt.want, classified.Code)
			assert.NotEmpty(t, classified.UserMessage())
			assert.ErrorIs(t, classified, tt.err)
		})
	}

	assert.Nil(t, Classify(nil))
}

func TestNodeMessage(t *testing.T) {
	assert.Equal(t, "Analizando tu consulta...", NodeMessage(cache.NodeRouter))
	assert.Equal(t, "Procesando...", NodeMessage("Unknown"))
}

func stepNodes(steps []models.AgentStep) []string {
	nodes := make([]string, 0, len(steps))
	for _, s := range steps {
		nodes = append(nodes, s.Node)
	}
	return nodes
}
