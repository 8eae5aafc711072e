package usecase

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/betterbet/scout-analytics/internal/warehouse"
)

type fakeInspector struct {
	columns map[string][]string
	err     error
}

func (f *fakeInspector) TableColumns(_ context.Context, kind warehouse.TableKind, year int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	key := string(kind)
	if year%2 == 1 {
		key += ":odd"
	}
	if cols, ok := f.columns[key]; ok {
		return cols, nil
	}
	return f.columns[string(kind)], nil
}

func fullScheduleColumns() []string {
	return []string{"game_id", "start_time", "home_team", "away_team", "home_score", "away_score", "status"}
}

func fullEventColumns() []string {
	return []string{
		"game_id", "team", "player", "player_id", "type", "outcome_type",
		"qualifiers", "expanded_minute", "period", "x", "y", "end_x", "end_y",
		"is_shot", "related_player_id",
	}
}

func TestSchemaValidatorPassesCompleteTables(t *testing.T) {
	inspector := &fakeInspector{columns: map[string][]string{
		"schedule": fullScheduleColumns(),
		"events":   fullEventColumns(),
	}}

	v := NewSchemaValidator(testWarehouseSource(), inspector, 2)
	issues, err := v.Validate(context.Background())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %+v", issues)
	}
	if err := v.MustValidate(context.Background()); err != nil {
		t.Fatalf("must validate: %v", err)
	}
}

func TestSchemaValidatorReportsMissingColumns(t *testing.T) {
	events := fullEventColumns()
	// Drop is_shot from the odd-year events table.
	trimmed := make([]string, 0, len(events)-1)
	for _, c := range events {
		if c != "is_shot" {
			trimmed = append(trimmed, c)
		}
	}
	inspector := &fakeInspector{columns: map[string][]string{
		"schedule":   fullScheduleColumns(),
		"events":     fullEventColumns(),
		"events:odd": trimmed,
	}}

	v := NewSchemaValidator(testWarehouseSource(), inspector, 2)
	issues, err := v.Validate(context.Background())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("expected one issue, got %+v", issues)
	}
	if issues[0].Year != 2025 || issues[0].Kind != "events" {
		t.Fatalf("unexpected issue: %+v", issues[0])
	}
	if len(issues[0].Missing) != 1 || issues[0].Missing[0] != "is_shot" {
		t.Fatalf("unexpected missing set: %+v", issues[0])
	}

	if err := v.MustValidate(context.Background()); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestSchemaValidatorPropagatesInspectorFailure(t *testing.T) {
	inspector := &fakeInspector{err: errors.New("metadata unavailable")}
	v := NewSchemaValidator(testWarehouseSource(), inspector, 2)
	if _, err := v.Validate(context.Background()); err == nil {
		t.Fatal("expected inspector error")
	}
}

// saturatedPool accepts one task, parks it, and rejects everything after. The
// parked task is released the moment the rejection happens, so the test can
// observe whether Validate waits for it.
type saturatedPool struct {
	proceed  chan struct{}
	attempts int
}

func (p *saturatedPool) Submit(task func()) error {
	p.attempts++
	if p.attempts == 1 {
		go func() {
			<-p.proceed
			task()
		}()
		return nil
	}
	if p.attempts == 2 {
		close(p.proceed)
	}
	return errors.New("no idle worker")
}

func (p *saturatedPool) Release() {}

type countingInspector struct {
	completed atomic.Int32
}

func (c *countingInspector) TableColumns(context.Context, warehouse.TableKind, int) ([]string, error) {
	c.completed.Add(1)
	return fullScheduleColumns(), nil
}

func TestSchemaValidatorDrainsWorkersOnSubmitFailure(t *testing.T) {
	inspector := &countingInspector{}
	v := NewSchemaValidator(testWarehouseSource(), inspector, 2)
	pool := &saturatedPool{proceed: make(chan struct{})}
	v.newPool = func(int) (inspectionPool, error) { return pool, nil }

	_, err := v.Validate(context.Background())
	if err == nil || !strings.Contains(err.Error(), "submit table inspection") {
		t.Fatalf("expected submit failure, got %v", err)
	}
	// The accepted inspection must have finished before Validate returned.
	if got := inspector.completed.Load(); got != 1 {
		t.Fatalf("expected exactly one completed inspection, got %d", got)
	}
}
