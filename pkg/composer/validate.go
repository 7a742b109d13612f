package composer

import (
	"strings"

	"github.com/tienda-lubbi/mirador/pkg/models"
)

// validateRefs drops every component whose dataset ref does not resolve
// against the payload. A dashboard must never reference data it does not
// carry.
func validateRefs(spec *models.DashboardSpec, availableRefs []string) {
	valid := spec.Slots.Series[:0]
	for _, kpi := range spec.Slots.Series {
		if containsString(availableRefs, kpi.ValueRef) {
			valid = append(valid, kpi)
		}
	}
	spec.Slots.Series = valid

	validCharts := spec.Slots.Charts[:0]
	for _, slot := range spec.Slots.Charts {
		if slot.Comparison != nil {
			// Comparison slots resolve against the payload's comparison
			// block, not the ref list.
			validCharts = append(validCharts, slot)
			continue
		}
		if refResolves(slot.DatasetRef(), availableRefs) {
			validCharts = append(validCharts, slot)
		}
	}
	spec.Slots.Charts = validCharts
}

// refResolves accepts an exact ref match or any ref sharing the same
// family prefix (ts., top., table., kpi.).
func refResolves(ref string, availableRefs []string) bool {
	if ref == "" {
		return false
	}
	family := ref
	if i := strings.Index(ref, "."); i >= 0 {
		family = ref[:i+1]
	}
	for _, available := range availableRefs {
		if available == ref || strings.HasPrefix(available, family) {
			return true
		}
	}
	return false
}

// ensureTwoCharts guarantees at least two charts of distinct types when the
// payload has material for them. Tables do not count as charts.
func ensureTwoCharts(spec *models.DashboardSpec, payload *models.DataPayload) {
	types := map[string]bool{}
	chartCount := 0
	for _, slot := range spec.Slots.Charts {
		if slot.Chart != nil {
			types[slot.Chart.Type] = true
			chartCount++
		}
	}
	if len(types) >= 2 && chartCount >= 2 {
		return
	}

	hasLine := types[models.ComponentLineChart] || types[models.ComponentAreaChart]
	hasBar := types[models.ComponentBarChart]

	if !hasLine && len(payload.TimeSeries) > 0 {
		ts := payload.TimeSeries[0]
		trend := models.ChartSlot{Chart: &models.ChartConfig{
			Type:       models.ComponentAreaChart,
			Title:      "Tendencia: " + formatTitle(ts.SeriesName),
			DatasetRef: "ts." + ts.SeriesName,
			XAxis:      "date",
			YAxis:      "value",
			Color:      "#3b82f6",
		}}
		spec.Slots.Charts = append([]models.ChartSlot{trend}, spec.Slots.Charts...)
	}

	if !hasBar && len(payload.TopItems) > 0 {
		top := payload.TopItems[0]
		spec.Slots.Charts = append(spec.Slots.Charts, models.ChartSlot{Chart: &models.ChartConfig{
			Type:       models.ComponentBarChart,
			Title:      "Ranking: " + formatTitle(top.RankingName),
			DatasetRef: "top." + top.RankingName,
			XAxis:      "title",
			YAxis:      "value",
			Color:      "#10b981",
		}})
	}
}
