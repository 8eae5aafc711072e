package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/betterbet/scout-analytics/internal/domain/ranking"
	"github.com/betterbet/scout-analytics/internal/warehouse"
)

// fakeExecutor routes by a distinguishing substring of the generated SQL so
// concurrent queries get independent canned results.
type fakeExecutor struct {
	responses map[string][]warehouse.Row
	err       error
}

func (f *fakeExecutor) Run(_ context.Context, query warehouse.Query) ([]warehouse.Row, error) {
	if f.err != nil {
		return nil, f.err
	}
	for marker, rows := range f.responses {
		if strings.Contains(query.SQL, marker) {
			return rows, nil
		}
	}
	return nil, nil
}

func testWarehouseSource() warehouse.DataSource {
	return warehouse.DataSource{
		ProjectID:         "betterbet-test",
		DatasetID:         "betterdata",
		SchedulePrefix:    "schedule_brasileirao_serie_a",
		EventsPrefix:      "eventos_brasileirao_serie_a",
		Years:             []int{2024, 2025},
		StartTimeFromYear: 2024,
	}
}

func TestDynamicRankingAggregatesAcrossMatches(t *testing.T) {
	exec := &fakeExecutor{responses: map[string][]warehouse.Row{
		"metric_count": {
			{"team": "Cruzeiro", "season": int64(2024), "metric_count": int64(3)},
			{"team": "Cruzeiro", "season": int64(2024), "metric_count": int64(2)},
			{"team": "Santos", "season": int64(2024), "metric_count": int64(4)},
		},
		"total_games": {
			{"team": "Cruzeiro", "season": int64(2024), "total_games": int64(10)},
			{"team": "Santos", "season": int64(2024), "total_games": int64(8)},
		},
	}}

	svc := NewRankingService(testWarehouseSource(), exec)
	entries, err := svc.Dynamic(context.Background(), ranking.Request{
		Subject: ranking.SubjectTeams,
		Filter:  ranking.FilterSelection{EventTypes: []string{"Goal"}},
	})
	if err != nil {
		t.Fatalf("dynamic ranking: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	// Totals sort descending: Cruzeiro 5 over Santos 4.
	if entries[0].Subject != "Cruzeiro" || entries[0].MetricTotal != 5 {
		t.Fatalf("unexpected leader: %+v", entries[0])
	}
	if entries[0].TotalGames != 10 || entries[0].PerGame != 0.5 {
		t.Fatalf("per-game normalization wrong: %+v", entries[0])
	}
}

func TestDynamicRankingPerGameOrdering(t *testing.T) {
	exec := &fakeExecutor{responses: map[string][]warehouse.Row{
		"metric_count": {
			{"team": "Cruzeiro", "season": int64(2024), "metric_count": int64(10)},
			{"team": "Santos", "season": int64(2024), "metric_count": int64(8)},
		},
		"total_games": {
			{"team": "Cruzeiro", "season": int64(2024), "total_games": int64(20)},
			{"team": "Santos", "season": int64(2024), "total_games": int64(8)},
		},
	}}

	svc := NewRankingService(testWarehouseSource(), exec)
	entries, err := svc.Dynamic(context.Background(), ranking.Request{
		Subject: ranking.SubjectTeams,
		Filter:  ranking.FilterSelection{EventTypes: []string{"Goal"}},
		PerGame: true,
	})
	if err != nil {
		t.Fatalf("dynamic ranking: %v", err)
	}

	// Santos averages 1.0 per game against Cruzeiro's 0.5.
	if entries[0].Subject != "Santos" {
		t.Fatalf("per-game ordering wrong: %+v", entries)
	}
}

func TestDynamicRankingFallsBackToEventMatches(t *testing.T) {
	exec := &fakeExecutor{responses: map[string][]warehouse.Row{
		"metric_count": {
			{"team": "Cruzeiro", "season": int64(2024), "metric_count": int64(3)},
			{"team": "Cruzeiro", "season": int64(2024), "metric_count": int64(1)},
		},
	}}

	svc := NewRankingService(testWarehouseSource(), exec)
	entries, err := svc.Dynamic(context.Background(), ranking.Request{
		Subject: ranking.SubjectTeams,
		Filter:  ranking.FilterSelection{EventTypes: []string{"Goal"}},
	})
	if err != nil {
		t.Fatalf("dynamic ranking: %v", err)
	}

	// No participation row; the two matches with events stand in.
	if entries[0].TotalGames != 2 || entries[0].PerGame != 2 {
		t.Fatalf("fallback normalization wrong: %+v", entries[0])
	}
}

func TestDynamicRankingTopN(t *testing.T) {
	exec := &fakeExecutor{responses: map[string][]warehouse.Row{
		"metric_count": {
			{"team": "A", "season": int64(2024), "metric_count": int64(1)},
			{"team": "B", "season": int64(2024), "metric_count": int64(2)},
			{"team": "C", "season": int64(2024), "metric_count": int64(3)},
		},
	}}

	svc := NewRankingService(testWarehouseSource(), exec)
	entries, err := svc.Dynamic(context.Background(), ranking.Request{
		Subject: ranking.SubjectTeams,
		Filter:  ranking.FilterSelection{EventTypes: []string{"Goal"}},
		TopN:    2,
	})
	if err != nil {
		t.Fatalf("dynamic ranking: %v", err)
	}
	if len(entries) != 2 || entries[0].Subject != "C" {
		t.Fatalf("top-n truncation wrong: %+v", entries)
	}
}

func TestDynamicRankingRejectsUnknownSubject(t *testing.T) {
	svc := NewRankingService(testWarehouseSource(), &fakeExecutor{})
	_, err := svc.Dynamic(context.Background(), ranking.Request{Subject: "Árbitros"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestDynamicRankingTranslatesOutcomeLabels(t *testing.T) {
	var captured warehouse.Query
	exec := &capturingExecutor{capture: &captured}

	svc := NewRankingService(testWarehouseSource(), exec)
	_, err := svc.Dynamic(context.Background(), ranking.Request{
		Subject: ranking.SubjectTeams,
		Filter: ranking.FilterSelection{
			EventTypes: []string{"Pass"},
			Outcomes:   []string{ranking.OutcomeLabelSuccess},
		},
	})
	if err != nil {
		t.Fatalf("dynamic ranking: %v", err)
	}

	found := false
	for _, p := range captured.Params {
		if values, ok := p.Value.([]string); ok {
			for _, v := range values {
				if v == "Successful" {
					found = true
				}
				if v == ranking.OutcomeLabelSuccess {
					t.Fatalf("localized label leaked into query params: %+v", captured.Params)
				}
			}
		}
	}
	if !found {
		t.Fatalf("canonical outcome missing from params: %+v", captured.Params)
	}
}

// capturingExecutor records the ranking query (identified by its metric
// column) and returns empty results.
type capturingExecutor struct {
	capture *warehouse.Query
}

func (c *capturingExecutor) Run(_ context.Context, query warehouse.Query) ([]warehouse.Row, error) {
	if strings.Contains(query.SQL, "metric_count") {
		*c.capture = query
	}
	return nil, nil
}

func TestConversionAggregatesAndRanks(t *testing.T) {
	exec := &fakeExecutor{responses: map[string][]warehouse.Row{
		"ratio": {
			{"team": "Cruzeiro", "season": int64(2024), "numerator": int64(2), "denominator": int64(10)},
			{"team": "Cruzeiro", "season": int64(2024), "numerator": int64(1), "denominator": int64(5)},
			{"team": "Santos", "season": int64(2024), "numerator": int64(0), "denominator": int64(0)},
		},
	}}

	svc := NewRankingService(testWarehouseSource(), exec)
	entries, err := svc.Conversion(context.Background(), ranking.ConversionRequest{
		Subject:     ranking.SubjectTeams,
		Numerator:   ranking.FilterSelection{EventTypes: []string{"Goal"}},
		Denominator: ranking.FilterSelection{EventTypes: []string{"Shot", "Goal"}},
	})
	if err != nil {
		t.Fatalf("conversion ranking: %v", err)
	}

	if entries[0].Subject != "Cruzeiro" || entries[0].Numerator != 3 || entries[0].Denominator != 15 {
		t.Fatalf("aggregation wrong: %+v", entries[0])
	}
	if entries[0].Ratio != 0.2 {
		t.Fatalf("ratio wrong: %+v", entries[0])
	}

	// Zero denominator stays a zero ratio, never NaN.
	for _, e := range entries {
		if e.Subject == "Santos" && e.Ratio != 0 {
			t.Fatalf("zero denominator must yield zero ratio: %+v", e)
		}
	}
}

func TestConversionRequiresEventTypes(t *testing.T) {
	svc := NewRankingService(testWarehouseSource(), &fakeExecutor{})
	_, err := svc.Conversion(context.Background(), ranking.ConversionRequest{
		Subject:   ranking.SubjectTeams,
		Numerator: ranking.FilterSelection{EventTypes: []string{"Goal"}},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
