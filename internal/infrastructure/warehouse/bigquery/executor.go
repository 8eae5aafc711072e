// Package bigquery adapts the warehouse query contract to the BigQuery
// client: named parameter binding, row iteration and table metadata lookups.
package bigquery

import (
	"context"
	"fmt"
	"strings"

	bq "cloud.google.com/go/bigquery"
	"github.com/cockroachdb/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/betterbet/scout-analytics/internal/platform/resilience"
	"github.com/betterbet/scout-analytics/internal/warehouse"
)

type Executor struct {
	client    *bq.Client
	datasetID string
	source    warehouse.DataSource
	breaker   *resilience.CircuitBreaker
}

func NewExecutor(client *bq.Client, source warehouse.DataSource) *Executor {
	return &Executor{client: client, datasetID: source.DatasetID, source: source}
}

// WithCircuitBreaker guards Run with a breaker so a struggling warehouse is
// not hammered with fresh analytical queries while it recovers.
func (e *Executor) WithCircuitBreaker(cfg resilience.CircuitBreakerConfig) *Executor {
	cfg = resilience.NormalizeCircuitBreakerConfig(cfg)
	if cfg.Enabled {
		e.breaker = resilience.NewCircuitBreaker(cfg.FailureThreshold, cfg.OpenTimeout, cfg.HalfOpenMaxReq)
	}
	return e
}

// Run executes one composed query with its named parameters and drains the
// iterator into loosely typed rows.
func (e *Executor) Run(ctx context.Context, query warehouse.Query) ([]warehouse.Row, error) {
	if e.breaker != nil {
		if err := e.breaker.Allow(); err != nil {
			return nil, errors.Wrap(warehouse.ErrUnavailable, "query rejected by circuit breaker")
		}
	}

	out, err := e.run(ctx, query)
	if e.breaker != nil {
		if err != nil {
			e.breaker.RecordFailure()
		} else {
			e.breaker.RecordSuccess()
		}
	}
	return out, err
}

func (e *Executor) run(ctx context.Context, query warehouse.Query) ([]warehouse.Row, error) {
	job := e.client.Query(query.SQL)
	job.Parameters = make([]bq.QueryParameter, 0, len(query.Params))
	for _, p := range query.Params {
		job.Parameters = append(job.Parameters, bq.QueryParameter{Name: p.Name, Value: p.Value})
	}

	it, err := job.Read(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read query results")
	}

	var out []warehouse.Row
	for {
		var values map[string]bq.Value
		err := it.Next(&values)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "iterate query results")
		}
		row := make(warehouse.Row, len(values))
		for k, v := range values {
			row[k] = v
		}
		out = append(out, row)
	}
	return out, nil
}

// TableColumns returns the top-level column names of one season table, for
// startup schema validation.
func (e *Executor) TableColumns(ctx context.Context, kind warehouse.TableKind, year int) ([]string, error) {
	tableID := strings.Trim(e.source.TableName(kind, year), "`")
	parts := strings.SplitN(tableID, ".", 3)
	if len(parts) != 3 {
		return nil, errors.Newf("malformed table reference %q", tableID)
	}

	md, err := e.client.DatasetInProject(parts[0], parts[1]).Table(parts[2]).Metadata(ctx)
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 404 {
			return nil, errors.Wrapf(warehouse.ErrSchemaMismatch, "table %s does not exist", tableID)
		}
		return nil, errors.Wrapf(err, "fetch metadata for %s", tableID)
	}

	columns := make([]string, 0, len(md.Schema))
	for _, field := range md.Schema {
		columns = append(columns, field.Name)
	}
	return columns, nil
}

// Ping verifies connectivity and dataset visibility.
func (e *Executor) Ping(ctx context.Context) error {
	if _, err := e.client.Dataset(e.datasetID).Metadata(ctx); err != nil {
		return fmt.Errorf("dataset %s unavailable: %w", e.datasetID, err)
	}
	return nil
}
