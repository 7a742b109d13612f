package router

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tienda-lubbi/mirador/pkg/llm"
	"github.com/tienda-lubbi/mirador/pkg/models"
)

type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Provider() string { return "fake" }

func (f *fakeLLM) Complete(_ context.Context, _ llm.Request) (string, error) {
	f.calls++
	return f.response, f.err
}

func newTestRouter(client llm.Client, useLLM bool) *Router {
	return New(client, useLLM, slog.Default())
}

func TestRoute_Conversational(t *testing.T) {
	r := newTestRouter(nil, false)

	tests := []struct {
		question string
		contains string
	}{
		{"hola", "Soy Mirador"},
		{"Buenos dias!", "Soy Mirador"},
		{"gracias por la info", "De nada"},
		{"que puedes hacer?", "analizar tus datos"},
		{"quien eres", "asistente de BI"},
	}

	for _, tc := range tests {
		t.Run(tc.question, func(t *testing.T) {
			d := r.Route(context.Background(), tc.question)
			assert.Equal(t, models.ResponseConversational, d.ResponseType)
			assert.False(t, d.NeedsSQL)
			assert.Contains(t, d.DirectResponse, tc.contains)
			assert.InDelta(t, 0.95, d.Confidence, 0.001)
		})
	}
}

func TestRoute_DashboardKeywords(t *testing.T) {
	r := newTestRouter(nil, false)

	d := r.Route(context.Background(), "mostrame un grafico de ventas del mes")
	assert.Equal(t, models.ResponseDashboard, d.ResponseType)
	assert.True(t, d.NeedsSQL)
	assert.True(t, d.NeedsDashboard)
	assert.True(t, d.NeedsNarrative)
	assert.Equal(t, models.DomainSales, d.Domain)
	assert.InDelta(t, 0.9, d.Confidence, 0.001)
}

func TestRoute_DataOnlyKeywords(t *testing.T) {
	r := newTestRouter(nil, false)

	// "total de ordenes" has data keywords but no dashboard keyword.
	d := r.Route(context.Background(), "total de ordenes de febrero")
	assert.Equal(t, models.ResponseDataOnly, d.ResponseType)
	assert.True(t, d.NeedsSQL)
	assert.False(t, d.NeedsDashboard)
	assert.Equal(t, models.DomainSales, d.Domain)
}

func TestRoute_DashboardImpliesData(t *testing.T) {
	r := newTestRouter(nil, false)

	// "tendencia" alone is a dashboard keyword with no data keyword.
	d := r.Route(context.Background(), "tendencia del negocio")
	assert.Equal(t, models.ResponseDashboard, d.ResponseType)
	assert.True(t, d.NeedsSQL)
}

func TestRoute_DomainDetection(t *testing.T) {
	r := newTestRouter(nil, false)

	tests := []struct {
		question string
		domain   string
	}{
		{"cuanto vendimos ayer", models.DomainSales},
		{"productos con stock bajo", models.DomainInventory},
		{"como esta el agente ai", models.DomainConversations},
		{"casos escalados a soporte", models.DomainEscalations},
		{"consultas de preventa pendientes", models.DomainPresale},
	}

	for _, tc := range tests {
		t.Run(tc.question, func(t *testing.T) {
			d := r.Route(context.Background(), tc.question)
			assert.Equal(t, tc.domain, d.Domain)
		})
	}
}

func TestRoute_LLMFallback(t *testing.T) {
	fake := &fakeLLM{response: `{"response_type": "data_only", "domain": "inventory", "reasoning": "pide un numero"}`}
	r := newTestRouter(fake, true)

	d := r.Route(context.Background(), "se me esta acabando algo?")
	assert.Equal(t, models.ResponseDataOnly, d.ResponseType)
	assert.Equal(t, models.DomainInventory, d.Domain)
	assert.InDelta(t, 0.8, d.Confidence, 0.001)
	assert.Equal(t, 1, fake.calls)
}

func TestRoute_LLMErrorFallsBackToDashboard(t *testing.T) {
	fake := &fakeLLM{err: errors.New("boom")}
	r := newTestRouter(fake, true)

	d := r.Route(context.Background(), "mmm no se")
	assert.Equal(t, models.ResponseDashboard, d.ResponseType)
	assert.Equal(t, models.DomainSales, d.Domain)
	assert.InDelta(t, 0.5, d.Confidence, 0.001)
}

func TestRoute_LLMDisabled(t *testing.T) {
	r := newTestRouter(nil, true) // nil client disables semantic routing

	d := r.Route(context.Background(), "mmm no se")
	assert.Equal(t, models.ResponseDashboard, d.ResponseType)
	assert.InDelta(t, 0.5, d.Confidence, 0.001)
}

func TestClarificationAgent_Analyze(t *testing.T) {
	fake := &fakeLLM{response: `{"needs_clarification": true, "reasoning": "pide comparar sin periodos",
		"clarification_question": "Que periodos queres comparar?",
		"options": ["Este mes vs anterior", "Este año vs anterior"]}`}
	a := NewClarificationAgent(fake, slog.Default())

	res := a.Analyze(context.Background(), "comparar", models.AmbiguityComparisonWithoutPeriod)
	assert.True(t, res.NeedsClarification)
	assert.NotEmpty(t, res.ClarificationQuestion)
	assert.Len(t, res.Options, 2)
}

func TestClarificationAgent_FallsBackOnError(t *testing.T) {
	a := NewClarificationAgent(&fakeLLM{err: errors.New("boom")}, slog.Default())

	res := a.Analyze(context.Background(), "comparar", "")
	assert.False(t, res.NeedsClarification)
	assert.Equal(t, models.DomainSales, res.InferredDomain)
}

func TestClarificationAgent_NilClient(t *testing.T) {
	a := NewClarificationAgent(nil, slog.Default())

	res := a.Analyze(context.Background(), "eso", models.AmbiguityPronounWithoutContext)
	assert.False(t, res.NeedsClarification)
}

func TestDirectResponse_UnknownKeyFallsBack(t *testing.T) {
	assert.Equal(t, directResponses["clarification"], DirectResponse("nope"))
}
