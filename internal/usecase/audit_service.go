package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/betterbet/scout-analytics/internal/domain/ranking"
	"github.com/betterbet/scout-analytics/internal/warehouse"
)

// AuditService surfaces data-quality reports: participation counts against
// the expected fixture load, and matches whose event log disagrees with the
// official score.
type AuditService struct {
	ds              warehouse.DataSource
	exec            warehouse.Executor
	expectedMatches int64
}

func NewAuditService(ds warehouse.DataSource, exec warehouse.Executor, expectedMatches int64) *AuditService {
	return &AuditService{ds: ds, exec: exec, expectedMatches: expectedMatches}
}

type MatchCount struct {
	Subject    string `json:"subject"`
	Team       string `json:"team,omitempty"`
	Season     int    `json:"season"`
	TotalGames int64  `json:"total_games"`
	Expected   int64  `json:"expected,omitempty"`
	Short      bool   `json:"short,omitempty"`
}

func (s *AuditService) TeamMatchCounts(ctx context.Context, teams []string, from, to *time.Time) ([]MatchCount, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuditService.TeamMatchCounts")
	defer span.End()

	query, err := s.ds.TeamMatchCountsQuery(ranking.Normalize(teams), warehouse.DateRange{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("build team match counts query: %w", err)
	}
	rows, err := s.exec.Run(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("run team match counts query: %w", err)
	}

	// Expected load only applies to an unwindowed audit; a date window
	// legitimately truncates counts.
	windowed := from != nil || to != nil

	out := make([]MatchCount, 0, len(rows))
	for _, row := range rows {
		item := MatchCount{
			Subject:    rowString(row, "team"),
			Team:       rowString(row, "team"),
			Season:     int(rowInt64(row, "season")),
			TotalGames: rowInt64(row, "total_games"),
		}
		if !windowed && s.expectedMatches > 0 {
			item.Expected = s.expectedMatches
			item.Short = item.TotalGames < s.expectedMatches
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *AuditService) PlayerMatchCounts(ctx context.Context, teams, players []string, from, to *time.Time) ([]MatchCount, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuditService.PlayerMatchCounts")
	defer span.End()

	query, err := s.ds.PlayerMatchCountsQuery(
		ranking.Normalize(teams),
		ranking.Normalize(players),
		warehouse.DateRange{From: from, To: to},
	)
	if err != nil {
		return nil, fmt.Errorf("build player match counts query: %w", err)
	}
	rows, err := s.exec.Run(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("run player match counts query: %w", err)
	}

	out := make([]MatchCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, MatchCount{
			Subject:    rowString(row, "player"),
			Team:       rowString(row, "team"),
			Season:     int(rowInt64(row, "season")),
			TotalGames: rowInt64(row, "total_games"),
		})
	}
	return out, nil
}

type GoalMismatch struct {
	MatchID       int64  `json:"match_id"`
	Season        int    `json:"season"`
	Team          string `json:"team"`
	OfficialGoals int64  `json:"official_goals"`
	RecordedGoals int64  `json:"recorded_goals"`
}

// GoalReconciliation lists matches where the event log records more goals
// than the official score. Undercounts are healed by ghost-goal injection;
// overcounts cannot be and need source-data attention.
func (s *AuditService) GoalReconciliation(ctx context.Context) ([]GoalMismatch, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuditService.GoalReconciliation")
	defer span.End()

	query, err := s.ds.GoalReconciliationQuery()
	if err != nil {
		return nil, fmt.Errorf("build goal reconciliation query: %w", err)
	}
	rows, err := s.exec.Run(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("run goal reconciliation query: %w", err)
	}

	out := make([]GoalMismatch, 0, len(rows))
	for _, row := range rows {
		out = append(out, GoalMismatch{
			MatchID:       rowInt64(row, "match_id"),
			Season:        int(rowInt64(row, "season")),
			Team:          rowString(row, "team"),
			OfficialGoals: rowInt64(row, "official_goals"),
			RecordedGoals: rowInt64(row, "recorded_goals"),
		})
	}
	return out, nil
}

type Overview struct {
	TotalMatches int64 `json:"total_matches"`
	TotalEvents  int64 `json:"total_events"`
	Seasons      []int `json:"seasons"`
}

func (s *AuditService) Overview(ctx context.Context) (Overview, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuditService.Overview")
	defer span.End()

	var out Overview
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		query, err := s.ds.TotalMatchesQuery()
		if err != nil {
			return fmt.Errorf("build total matches query: %w", err)
		}
		rows, err := s.exec.Run(ctx, query)
		if err != nil {
			return fmt.Errorf("run total matches query: %w", err)
		}
		if len(rows) > 0 {
			out.TotalMatches = rowInt64(rows[0], "total")
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		query, err := s.ds.TotalEventsQuery()
		if err != nil {
			return fmt.Errorf("build total events query: %w", err)
		}
		rows, err := s.exec.Run(ctx, query)
		if err != nil {
			return fmt.Errorf("run total events query: %w", err)
		}
		if len(rows) > 0 {
			out.TotalEvents = rowInt64(rows[0], "total")
		}
		return nil
	})
	if err := p.Wait(); err != nil {
		return Overview{}, err
	}

	out.Seasons = append(out.Seasons, s.ds.Years...)
	return out, nil
}
