// Package executor runs allowlisted queries against Postgres and shapes the
// rows into the DataPayload the composer consumes. It never builds SQL from
// user input: every statement comes from the allowlist with parameters bound
// positionally.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/tienda-lubbi/mirador/pkg/allowlist"
	"github.com/tienda-lubbi/mirador/pkg/models"
)

// Executor executes query plans.
type Executor struct {
	db       *sql.DB
	timeout  time.Duration
	demoMode bool
	logger   *slog.Logger
}

// New builds an executor. db may be nil only in demo mode.
func New(db *sql.DB, timeout time.Duration, demoMode bool, logger *slog.Logger) *Executor {
	return &Executor{
		db:       db,
		timeout:  timeout,
		demoMode: demoMode,
		logger:   logger.With("component", "executor"),
	}
}

// ExecutePlan runs every query in the plan and consolidates the results.
// A failing query does not abort the plan: its error lands in the dataset
// metadata and the remaining queries still run.
func (e *Executor) ExecutePlan(ctx context.Context, plan models.QueryPlan) *models.DataPayload {
	payload := &models.DataPayload{
		DatasetsMeta:  []models.DatasetMeta{},
		AvailableRefs: []string{},
	}

	for _, planned := range plan.Queries {
		rows, meta, err := e.ExecuteQuery(ctx, planned.QueryID, planned.Params)
		payload.DatasetsMeta = append(payload.DatasetsMeta, meta)
		if err != nil {
			e.logger.Error("query failed, continuing plan",
				"query_id", planned.QueryID,
				"error", err)
			continue
		}

		t := allowlist.Get(planned.QueryID)
		shapeInto(payload, t, rows)
	}

	return payload
}

// ExecuteQuery runs one allowlisted query and returns its rows as maps.
func (e *Executor) ExecuteQuery(ctx context.Context, queryID string, params map[string]any) ([]map[string]any, models.DatasetMeta, error) {
	meta := models.DatasetMeta{QueryID: queryID, ExecutedAt: time.Now().UTC()}

	t := allowlist.Get(queryID)
	if t == nil {
		err := fmt.Errorf("query %q is not in the allowlist", queryID)
		meta.Error = err.Error()
		return nil, meta, err
	}

	if e.demoMode {
		rows := demoRows(queryID)
		meta.RowCount = len(rows)
		return rows, meta, nil
	}

	safeParams, err := allowlist.BuildParams(queryID, params)
	if err != nil {
		meta.Error = err.Error()
		return nil, meta, err
	}

	query, args, err := allowlist.Rewrite(t, safeParams)
	if err != nil {
		meta.Error = err.Error()
		return nil, meta, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	rows, err := e.queryMaps(queryCtx, query, args)
	meta.ExecutionTimeMS = float64(time.Since(start).Microseconds()) / 1000

	if err != nil {
		meta.Error = err.Error()
		return nil, meta, fmt.Errorf("failed to execute query %q: %w", queryID, err)
	}

	meta.RowCount = len(rows)
	e.logger.Debug("query executed",
		"query_id", queryID,
		"rows", meta.RowCount,
		"duration_ms", meta.ExecutionTimeMS)
	return rows, meta, nil
}

// queryMaps runs a statement and scans every row into a column-keyed map.
func (e *Executor) queryMaps(ctx context.Context, query string, args []any) ([]map[string]any, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// normalizeValue flattens driver types: byte slices become strings so
// numerics and text survive JSON encoding intact.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
