package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/tienda-lubbi/mirador/pkg/models"
)

const compareISO = "2006-01-02"

// ExecuteComparison runs the sales KPI query for the given period and for
// the immediately preceding period of equal length, then computes deltas.
// Percentage deltas are nil when the previous value is zero.
func (e *Executor) ExecuteComparison(ctx context.Context, dateFrom, dateTo string) (*models.ComparisonData, error) {
	from, err := time.Parse(compareISO, dateFrom)
	if err != nil {
		return nil, fmt.Errorf("invalid comparison date_from %q: %w", dateFrom, err)
	}
	to, err := time.Parse(compareISO, dateTo)
	if err != nil {
		return nil, fmt.Errorf("invalid comparison date_to %q: %w", dateTo, err)
	}
	if !to.After(from) {
		return nil, fmt.Errorf("comparison range is empty: %s to %s", dateFrom, dateTo)
	}

	span := to.Sub(from)
	prevFrom := from.Add(-span)
	prevTo := from

	current, err := e.salesKPIs(ctx, dateFrom, dateTo)
	if err != nil {
		return nil, err
	}
	previous, err := e.salesKPIs(ctx, prevFrom.Format(compareISO), prevTo.Format(compareISO))
	if err != nil {
		return nil, err
	}

	cmp := &models.ComparisonData{
		IsComparison: true,
		CurrentPeriod: models.ComparisonPeriod{
			Label:    "Periodo actual",
			DateFrom: dateFrom,
			DateTo:   dateTo,
			KPIs:     current,
		},
		PreviousPeriod: models.ComparisonPeriod{
			Label:    "Periodo anterior",
			DateFrom: prevFrom.Format(compareISO),
			DateTo:   prevTo.Format(compareISO),
			KPIs:     previous,
		},
	}

	cmp.DeltaSales, cmp.DeltaSalesPct = deltaFloat(current.TotalSales, previous.TotalSales)
	cmp.DeltaOrders, cmp.DeltaOrdersPct = deltaInt(current.TotalOrders, previous.TotalOrders)
	cmp.DeltaAvgOrder, cmp.DeltaAvgOrderPct = deltaFloat(current.AvgOrderValue, previous.AvgOrderValue)
	cmp.DeltaUnits, cmp.DeltaUnitsPct = deltaInt(current.TotalUnits, previous.TotalUnits)

	return cmp, nil
}

func (e *Executor) salesKPIs(ctx context.Context, dateFrom, dateTo string) (*models.KPIData, error) {
	rows, _, err := e.ExecuteQuery(ctx, "kpi_sales_summary", map[string]any{
		"date_from": dateFrom,
		"date_to":   dateTo,
	})
	if err != nil {
		return nil, err
	}
	payload := &models.DataPayload{}
	if len(rows) > 0 {
		shapeKPIs(payload, rows[0])
	}
	if payload.KPIs == nil {
		payload.KPIs = &models.KPIData{}
	}
	return payload.KPIs, nil
}

func deltaFloat(current, previous *float64) (*float64, *float64) {
	if current == nil || previous == nil {
		return nil, nil
	}
	delta := *current - *previous
	if *previous == 0 {
		return &delta, nil
	}
	pct := delta / *previous * 100
	return &delta, &pct
}

func deltaInt(current, previous *int) (*int, *float64) {
	if current == nil || previous == nil {
		return nil, nil
	}
	delta := *current - *previous
	if *previous == 0 {
		return &delta, nil
	}
	pct := float64(delta) / float64(*previous) * 100
	return &delta, &pct
}
