package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/betterbet/scout-analytics/internal/domain/match"
	"github.com/betterbet/scout-analytics/internal/warehouse"
)

// MatchService serves schedule-level views: the recent results strip and the
// per-match team stat lines.
type MatchService struct {
	ds   warehouse.DataSource
	exec warehouse.Executor
}

func NewMatchService(ds warehouse.DataSource, exec warehouse.Executor) *MatchService {
	return &MatchService{ds: ds, exec: exec}
}

func (s *MatchService) Recent(ctx context.Context, limit int64) ([]match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.Recent")
	defer span.End()

	if limit <= 0 {
		limit = 20
	}

	query, err := s.ds.RecentMatchesQuery(match.FinishedStatuses(), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}
	rows, err := s.exec.Run(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("run recent matches query: %w", err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, match.Match{
			MatchID:   rowInt64(row, "match_id"),
			Season:    int(rowInt64(row, "season")),
			Date:      rowTime(row, "match_date"),
			HomeTeam:  rowString(row, "home_team"),
			AwayTeam:  rowString(row, "away_team"),
			HomeScore: rowInt64Ptr(row, "home_score"),
			AwayScore: rowInt64Ptr(row, "away_score"),
			Status:    match.StatusFinishedText,
		})
	}
	return out, nil
}

type MatchStatLine struct {
	MatchID          int64     `json:"match_id"`
	Season           int       `json:"season"`
	Date             time.Time `json:"date"`
	Team             string    `json:"team"`
	Side             string    `json:"side"`
	GoalsFor         int64     `json:"goals_for"`
	GoalsAgainst     int64     `json:"goals_against"`
	TotalPasses      int64     `json:"total_passes"`
	SuccessfulPasses int64     `json:"successful_passes"`
	TotalShots       int64     `json:"total_shots"`
	ShotsOnTarget    int64     `json:"shots_on_target"`
}

func (s *MatchService) Stats(ctx context.Context, from, to *time.Time) ([]MatchStatLine, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.Stats")
	defer span.End()

	query, err := s.ds.MatchStatsQuery(warehouse.DateRange{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("build match stats query: %w", err)
	}
	rows, err := s.exec.Run(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("run match stats query: %w", err)
	}

	out := make([]MatchStatLine, 0, len(rows))
	for _, row := range rows {
		out = append(out, MatchStatLine{
			MatchID:          rowInt64(row, "match_id"),
			Season:           int(rowInt64(row, "season")),
			Date:             rowTime(row, "match_date"),
			Team:             rowString(row, "team"),
			Side:             rowString(row, "side"),
			GoalsFor:         rowInt64(row, "goals_for"),
			GoalsAgainst:     rowInt64(row, "goals_against"),
			TotalPasses:      rowInt64(row, "total_passes"),
			SuccessfulPasses: rowInt64(row, "successful_passes"),
			TotalShots:       rowInt64(row, "total_shots"),
			ShotsOnTarget:    rowInt64(row, "shots_on_target"),
		})
	}
	return out, nil
}
