package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tienda-lubbi/mirador/pkg/cache"
	"github.com/tienda-lubbi/mirador/pkg/dates"
	"github.com/tienda-lubbi/mirador/pkg/models"
	"github.com/tienda-lubbi/mirador/pkg/router"
)

// Node implementations for the supervisor loop. Each node records exactly
// one agent step and stores its output on the run state; cached nodes
// consult their LRU first and never cache failures.

func (p *Pipeline) runRouter(ctx context.Context, st *runState) {
	policy := cache.NodePolicies[cache.NodeRouter]
	key := policy.Key(cache.NodeRouter, map[string]any{"question": st.req.Question})

	if cached, ok := p.caches.For(cache.NodeRouter).Get(key); ok {
		decision := cached.(models.RoutingDecision)
		st.routing = &decision
		st.record(cache.NodeRouter, "cached", string(decision.ResponseType))
		return
	}

	decision := p.router.Route(ctx, st.req.Question)

	if decision.NeedsSQL {
		if ambiguity := p.detectAmbiguity(st); ambiguity != "" {
			p.clarify(ctx, st, &decision, ambiguity)
		}
	}

	st.routing = &decision
	if decision.ResponseType != models.ResponseClarification {
		// Clarification verdicts depend on conversation context, so only
		// stable decisions are cached.
		p.caches.For(cache.NodeRouter).Set(key, decision)
	}
	st.record(cache.NodeRouter, "done", fmt.Sprintf("%s (%.2f)", decision.ResponseType, decision.Confidence))
}

// clarify asks the clarification agent whether an ambiguous question
// should bounce back to the user. The agent is permissive: when it infers
// intent instead, its domain hint refines the routing decision.
func (p *Pipeline) clarify(ctx context.Context, st *runState, decision *models.RoutingDecision, ambiguity string) {
	if p.clarifier == nil {
		return
	}

	analysis := p.clarifier.Analyze(ctx, st.req.Question, ambiguity)
	if !analysis.NeedsClarification {
		if analysis.InferredDomain != "" {
			decision.Domain = analysis.InferredDomain
		}
		return
	}

	var b strings.Builder
	b.WriteString(analysis.ClarificationQuestion)
	for _, opt := range analysis.Options {
		b.WriteString("\n- ")
		b.WriteString(opt)
	}

	*decision = models.RoutingDecision{
		ResponseType:   models.ResponseClarification,
		DirectResponse: b.String(),
		Confidence:     0.9,
		Reasoning:      analysis.Reasoning,
	}
}

var pronounRe = regexp.MustCompile(`\b(eso|esto|aquello|los mismos|las mismas)\b`)
var comparisonWordRe = regexp.MustCompile(`\b(vs|versus)\b`)

var showVerbs = map[string]bool{
	"mostrame": true, "muestrame": true, "muestra": true, "dame": true, "ver": true,
}

// detectAmbiguity flags questions worth a clarification check. It only
// flags candidates; the clarification agent makes the final call.
func (p *Pipeline) detectAmbiguity(st *runState) string {
	q := strings.ToLower(strings.TrimSpace(st.req.Question))
	words := strings.Fields(q)

	hasDates := st.req.DateFrom != ""
	if !hasDates {
		_, hasDates = dates.ExtractRange(q)
	}

	switch {
	case isComparisonQuestion(q) && !hasDates:
		return models.AmbiguityComparisonWithoutPeriod
	case pronounRe.MatchString(q) && !st.hasContext:
		return models.AmbiguityPronounWithoutContext
	case len(words) > 0 && showVerbs[words[0]] && len(words) <= 2:
		return models.AmbiguityShowWithoutObject
	case len(words) <= 2:
		return models.AmbiguityTooShort
	case len(router.MatchedDomains(q)) >= 3:
		return models.AmbiguityMultiDomain
	}
	return ""
}

func isComparisonQuestion(q string) bool {
	return strings.Contains(q, "compar") ||
		strings.Contains(q, "diferencia") ||
		comparisonWordRe.MatchString(q)
}

func (p *Pipeline) runDirectResponse(st *runState) {
	policy := cache.NodePolicies[cache.NodeDirectResponse]
	key := policy.Key(cache.NodeDirectResponse, map[string]any{"question": st.req.Question})

	status := "done"
	if st.routing.ResponseType == models.ResponseConversational {
		if cached, ok := p.caches.For(cache.NodeDirectResponse).Get(key); ok {
			st.direct = cached.(string)
			status = "cached"
		}
	}
	if st.direct == "" {
		st.direct = st.routing.DirectResponse
		if st.routing.ResponseType == models.ResponseConversational {
			p.caches.For(cache.NodeDirectResponse).Set(key, st.direct)
		}
	}

	st.spec = directSpec(st.direct)
	st.record(cache.NodeDirectResponse, status, "")
}

// directSpec wraps a text answer in a minimal dashboard so every response
// shares one shape.
func directSpec(text string) *models.DashboardSpec {
	now := time.Now().UTC()
	return &models.DashboardSpec{
		Title:      "Mirador",
		Subtitle:   "Asistente de datos",
		Conclusion: text,
		Slots: models.SlotConfig{
			Series: []models.KPICardConfig{},
			Charts: []models.ChartSlot{},
			Narrative: []models.NarrativeConfig{
				{Type: models.NarrativeSummary, Text: text},
			},
		},
		GeneratedAt: &now,
	}
}

// dataResult is the unit stored in the DataAgent cache: the plan and the
// payload it produced, kept together so cache hits keep their provenance.
type dataResult struct {
	plan    models.QueryPlan
	payload *models.DataPayload
}

func (p *Pipeline) runDataAgent(ctx context.Context, st *runState) {
	plan := p.planner.Plan(ctx, st.req)

	policy := cache.NodePolicies[cache.NodeDataAgent]
	key := policy.Key(cache.NodeDataAgent, map[string]any{
		"question":  st.req.Question,
		"date_from": plan.DateFrom,
		"date_to":   plan.DateTo,
	})

	if cached, ok := p.caches.For(cache.NodeDataAgent).Get(key); ok {
		dr := cached.(dataResult)
		st.plan = dr.plan
		st.payload = dr.payload
		st.record(cache.NodeDataAgent, "cached", fmt.Sprintf("%d datasets", len(dr.payload.DatasetsMeta)))
		return
	}

	payload := p.executor.ExecutePlan(ctx, plan)

	if allDatasetsFailed(payload) {
		st.lastErr = &Error{
			Code:    CodeDatabase,
			Message: fmt.Sprintf("all %d datasets failed: %s", len(payload.DatasetsMeta), payload.DatasetsMeta[0].Error),
		}
		st.record(cache.NodeDataAgent, "error", payload.DatasetsMeta[0].Error)
		return
	}

	if isComparisonQuestion(strings.ToLower(st.req.Question)) && plan.DateFrom != "" && plan.DateTo != "" {
		cmp, err := p.executor.ExecuteComparison(ctx, plan.DateFrom, plan.DateTo)
		if err != nil {
			p.logger.Warn("period comparison failed", "error", err)
		} else {
			payload.Comparison = cmp
			payload.AvailableRefs = append(payload.AvailableRefs, "comparison")
		}
	}

	st.plan = plan
	st.payload = payload
	p.caches.For(cache.NodeDataAgent).Set(key, dataResult{plan: plan, payload: payload})
	st.record(cache.NodeDataAgent, "done", fmt.Sprintf("%d datasets, %d refs", len(payload.DatasetsMeta), len(payload.AvailableRefs)))
}

func allDatasetsFailed(payload *models.DataPayload) bool {
	if len(payload.DatasetsMeta) == 0 {
		return false
	}
	for _, meta := range payload.DatasetsMeta {
		if meta.Error == "" {
			return false
		}
	}
	return true
}

// runReflection consumes one retry: it clears the failed data attempt so
// the supervisor sends the question through the data agent again.
func (p *Pipeline) runReflection(st *runState) {
	st.retryCount++
	st.lastErr = nil
	st.payload = nil
	p.logger.Info("retrying data execution", "trace_id", st.traceID, "attempt", st.retryCount)
	st.record(nodeReflection, "done", fmt.Sprintf("retry %d/%d", st.retryCount, maxDataRetries))
}

func (p *Pipeline) runPresentation(ctx context.Context, st *runState) {
	policy := cache.NodePolicies[cache.NodePresentation]
	key := policy.Key(cache.NodePresentation, map[string]any{"question": st.req.Question})

	if cached, ok := p.caches.For(cache.NodePresentation).Get(key); ok {
		st.spec = cached.(*models.DashboardSpec)
		st.record(cache.NodePresentation, "cached", "")
		return
	}

	spec := p.composer.Compose(ctx, st.req.Question, st.payload)
	st.spec = spec
	p.caches.For(cache.NodePresentation).Set(key, spec)
	st.record(cache.NodePresentation, "done", fmt.Sprintf("%d cards, %d charts", len(spec.Slots.Series), len(spec.Slots.Charts)))
}
