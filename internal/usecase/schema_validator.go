package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/betterbet/scout-analytics/internal/warehouse"
)

// TableInspector exposes live table metadata for schema validation.
type TableInspector interface {
	TableColumns(ctx context.Context, kind warehouse.TableKind, year int) ([]string, error)
}

type inspectionPool interface {
	Submit(task func()) error
	Release()
}

// SchemaValidator checks every configured season table against the canonical
// column contract at startup, so schema drift fails loudly before the first
// query instead of mid-aggregation.
type SchemaValidator struct {
	ds        warehouse.DataSource
	inspector TableInspector
	workers   int
	newPool   func(size int) (inspectionPool, error)
}

func NewSchemaValidator(ds warehouse.DataSource, inspector TableInspector, workers int) *SchemaValidator {
	if workers <= 0 {
		workers = 4
	}
	return &SchemaValidator{
		ds:        ds,
		inspector: inspector,
		workers:   workers,
		newPool: func(size int) (inspectionPool, error) {
			return ants.NewPool(size)
		},
	}
}

type SchemaIssue struct {
	Table   string   `json:"table"`
	Year    int      `json:"year"`
	Kind    string   `json:"kind"`
	Missing []string `json:"missing"`
}

// Validate inspects all season tables concurrently and returns the missing
// required columns per table. An empty result means every table satisfies
// the contract.
func (v *SchemaValidator) Validate(ctx context.Context) ([]SchemaIssue, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SchemaValidator.Validate")
	defer span.End()

	if v.inspector == nil {
		return nil, fmt.Errorf("%w: table inspector is not configured", ErrDependencyUnavailable)
	}

	type target struct {
		kind warehouse.TableKind
		year int
	}
	targets := make([]target, 0, len(v.ds.Years)*2)
	for _, year := range v.ds.Years {
		targets = append(targets, target{warehouse.TableSchedule, year}, target{warehouse.TableEvents, year})
	}

	workerCount := v.workers
	if workerCount > len(targets) {
		workerCount = len(targets)
	}
	pool, err := v.newPool(workerCount)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var mu sync.Mutex
	var issues []SchemaIssue
	var firstErr error

	var workers sync.WaitGroup
	var submitErr error
	for _, item := range targets {
		item := item
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			columns, inspectErr := v.inspector.TableColumns(ctx, item.kind, item.year)
			if inspectErr != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("inspect %s table for %d: %w", item.kind, item.year, inspectErr)
				}
				mu.Unlock()
				return
			}

			missing := missingColumns(v.ds.RequiredColumns(item.kind, item.year), columns)
			if len(missing) == 0 {
				return
			}

			mu.Lock()
			issues = append(issues, SchemaIssue{
				Table:   v.ds.TableName(item.kind, item.year),
				Year:    item.year,
				Kind:    string(item.kind),
				Missing: missing,
			})
			mu.Unlock()
		}); err != nil {
			// Balance the Add for the task that never ran, then let the
			// in-flight inspections drain before surfacing the error.
			workers.Done()
			submitErr = fmt.Errorf("submit table inspection: %w", err)
			break
		}
	}
	workers.Wait()

	if submitErr != nil {
		return nil, submitErr
	}
	if firstErr != nil {
		return nil, firstErr
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Year != issues[j].Year {
			return issues[i].Year < issues[j].Year
		}
		return issues[i].Kind < issues[j].Kind
	})
	return issues, nil
}

// MustValidate runs Validate and converts any issue into a hard error. Used
// at startup.
func (v *SchemaValidator) MustValidate(ctx context.Context) error {
	issues, err := v.Validate(ctx)
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		first := issues[0]
		return fmt.Errorf("%w: table %s is missing columns %v (%d tables affected)",
			ErrSchemaMismatch, first.Table, first.Missing, len(issues))
	}
	return nil
}

func missingColumns(required, actual []string) []string {
	present := make(map[string]struct{}, len(actual))
	for _, c := range actual {
		present[c] = struct{}{}
	}
	var missing []string
	for _, c := range required {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	sort.Strings(missing)
	return missing
}
