// Package warehouse builds the SQL submitted to the analytics warehouse. It
// normalizes the per-season schedule and event tables into two canonical
// virtual relations, reconciles event logs against official scores, and
// composes the ranking, catalog and audit queries on top of them. Every
// function here is pure: same inputs, byte-identical SQL out.
package warehouse

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	qb "github.com/betterbet/scout-analytics/internal/platform/querybuilder"
)

var (
	// ErrSchemaMismatch marks configuration errors detected at query-build
	// time: a season table that cannot expose the canonical column set.
	ErrSchemaMismatch = errors.New("warehouse schema mismatch")

	// ErrInvalidFilter marks filter combinations rejected before any SQL is
	// constructed.
	ErrInvalidFilter = errors.New("invalid filter combination")

	// ErrUnavailable marks executor failures where the warehouse refused or
	// could not take the query, as opposed to a malformed query.
	ErrUnavailable = errors.New("warehouse unavailable")
)

// Query is executable SQL text plus the named parameter bindings it carries.
type Query struct {
	SQL    string
	Params []qb.Param
}

// Row is one result row keyed by output column name.
type Row map[string]any

// Executor submits a query once and returns its tabular result or the
// execution error verbatim. No retries happen at this layer.
type Executor interface {
	Run(ctx context.Context, q Query) ([]Row, error)
}

// DateRange optionally narrows a query to matches played inside [From, To].
// Nil bounds are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func (r DateRange) conditions(column string) []qb.Condition {
	var conds []qb.Condition
	if r.From != nil {
		conds = append(conds, qb.Expr(column+" >= ?", r.From.UTC()))
	}
	if r.To != nil {
		conds = append(conds, qb.Expr(column+" <= ?", r.To.UTC()))
	}
	return conds
}
