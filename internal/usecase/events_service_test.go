package usecase

import (
	"context"
	"testing"

	"github.com/betterbet/scout-analytics/internal/warehouse"
)

func eventRow(matchID int64, tags string) warehouse.Row {
	return warehouse.Row{
		"match_id":        matchID,
		"season":          int64(2024),
		"team":            "Cruzeiro",
		"effective_team":  "Cruzeiro",
		"type":            "Pass",
		"qualifiers":      tags,
		"expanded_minute": int64(12),
		"period":          int64(1),
		"x":               0.42,
		"y":               55.0,
	}
}

func TestEventSearchParsesAndRescales(t *testing.T) {
	exec := &fakeExecutor{responses: map[string][]warehouse.Row{
		"events_enhanced": {
			eventRow(1, `[{'type': {'displayName': 'Cross'}}, {'type': {'displayName': 'Head'}}]`),
		},
	}}

	svc := NewEventsService(testWarehouseSource(), exec, 0)
	events, err := svc.Search(context.Background(), EventSearchInput{
		EventTypes: []string{"Pass"},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("unexpected events: %+v", events)
	}

	got := events[0]
	if len(got.Tags) != 2 || got.Tags[0] != "Cross" {
		t.Fatalf("qualifier parsing wrong: %+v", got.Tags)
	}
	// 0-1 scale coordinates rescale, 0-100 pass through.
	if got.X != 42 || got.Y != 55 {
		t.Fatalf("coordinate normalization wrong: x=%v y=%v", got.X, got.Y)
	}
}

func TestEventSearchAllTagsRefinement(t *testing.T) {
	exec := &fakeExecutor{responses: map[string][]warehouse.Row{
		"events_enhanced": {
			eventRow(1, `[{'type': {'displayName': 'Cross'}}, {'type': {'displayName': 'Head'}}]`),
			eventRow(2, `[{'type': {'displayName': 'Head'}}]`),
		},
	}}

	svc := NewEventsService(testWarehouseSource(), exec, 0)

	// Any-of keeps both rows.
	events, err := svc.Search(context.Background(), EventSearchInput{
		Qualifiers: []string{"Cross", "Head"},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("any-of must keep both rows: %+v", events)
	}

	// Contains-ALL drops the row tagged only Head.
	events, err = svc.Search(context.Background(), EventSearchInput{
		Qualifiers: []string{"Cross", "Head"},
		AllTags:    true,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(events) != 1 || events[0].MatchID != 1 {
		t.Fatalf("contains-all refinement wrong: %+v", events)
	}
}
