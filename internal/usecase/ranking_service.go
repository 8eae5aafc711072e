package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/betterbet/scout-analytics/internal/domain/ranking"
	"github.com/betterbet/scout-analytics/internal/warehouse"
)

// RankingService composes and executes ranking queries and aggregates the
// per-match rows into season and all-time leaderboards.
type RankingService struct {
	ds   warehouse.DataSource
	exec warehouse.Executor
}

func NewRankingService(ds warehouse.DataSource, exec warehouse.Executor) *RankingService {
	return &RankingService{ds: ds, exec: exec}
}

func (s *RankingService) Dynamic(ctx context.Context, req ranking.Request) ([]ranking.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RankingService.Dynamic")
	defer span.End()

	subject, err := mapSubject(req.Subject)
	if err != nil {
		return nil, err
	}
	perspective, err := mapPerspective(req.Perspective)
	if err != nil {
		return nil, err
	}

	spec := warehouse.RankingSpec{
		Subject:          subject,
		Perspective:      perspective,
		Filter:           mapFilter(req.Filter),
		Scope:            mapScope(req.Teams, req.Players, req.DateFrom, req.DateTo),
		UseRelatedPlayer: req.UseRelatedPlayer,
	}

	query, err := s.ds.DynamicRankingQuery(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	// The metric rows and the true participation counts come from two
	// independent queries; run them concurrently.
	var metricRows, countRows []warehouse.Row
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		rows, runErr := s.exec.Run(ctx, query)
		if runErr != nil {
			return fmt.Errorf("run ranking query: %w", runErr)
		}
		metricRows = rows
		return nil
	})
	p.Go(func(ctx context.Context) error {
		rows, runErr := s.matchCounts(ctx, subject, req)
		if runErr != nil {
			return runErr
		}
		countRows = rows
		return nil
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	entries := aggregateDynamic(subject, metricRows, countRows)
	sortEntries(entries, req.PerGame)
	return topEntries(entries, req.TopN), nil
}

func (s *RankingService) matchCounts(ctx context.Context, subject warehouse.Subject, req ranking.Request) ([]warehouse.Row, error) {
	dates := warehouse.DateRange{From: req.DateFrom, To: req.DateTo}

	var query warehouse.Query
	var err error
	if subject == warehouse.SubjectTeam {
		query, err = s.ds.TeamMatchCountsQuery(req.Teams, dates)
	} else {
		query, err = s.ds.PlayerMatchCountsQuery(req.Teams, req.Players, dates)
	}
	if err != nil {
		return nil, fmt.Errorf("build match counts query: %w", err)
	}

	rows, err := s.exec.Run(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("run match counts query: %w", err)
	}
	return rows, nil
}

func (s *RankingService) Conversion(ctx context.Context, req ranking.ConversionRequest) ([]ranking.ConversionEntry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RankingService.Conversion")
	defer span.End()

	subject, err := mapSubject(req.Subject)
	if err != nil {
		return nil, err
	}
	perspective, err := mapPerspective(req.Perspective)
	if err != nil {
		return nil, err
	}

	spec := warehouse.ConversionSpec{
		Subject:     subject,
		Perspective: perspective,
		Numerator:   mapFilter(req.Numerator),
		Denominator: mapFilter(req.Denominator),
		Scope:       mapScope(req.Teams, req.Players, req.DateFrom, req.DateTo),
	}

	query, err := s.ds.ConversionRankingQuery(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	rows, err := s.exec.Run(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("run conversion query: %w", err)
	}

	subjectColumn := "player"
	if subject == warehouse.SubjectTeam {
		subjectColumn = "team"
	}

	type key struct {
		subject string
		season  int
	}
	totals := make(map[key]*ranking.ConversionEntry)
	order := make([]key, 0)
	for _, row := range rows {
		k := key{subject: rowString(row, subjectColumn), season: int(rowInt64(row, "season"))}
		entry, ok := totals[k]
		if !ok {
			entry = &ranking.ConversionEntry{Subject: k.subject, Season: k.season}
			totals[k] = entry
			order = append(order, k)
		}
		entry.Numerator += rowInt64(row, "numerator")
		entry.Denominator += rowInt64(row, "denominator")
	}

	out := make([]ranking.ConversionEntry, 0, len(order))
	for _, k := range order {
		entry := *totals[k]
		if entry.Denominator > 0 {
			entry.Ratio = float64(entry.Numerator) / float64(entry.Denominator)
		}
		out = append(out, entry)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Ratio != out[j].Ratio {
			return out[i].Ratio > out[j].Ratio
		}
		return out[i].Subject < out[j].Subject
	})
	if req.TopN > 0 && len(out) > req.TopN {
		out = out[:req.TopN]
	}
	return out, nil
}

func mapSubject(subject string) (warehouse.Subject, error) {
	switch subject {
	case ranking.SubjectTeams:
		return warehouse.SubjectTeam, nil
	case ranking.SubjectPlayers:
		return warehouse.SubjectPlayer, nil
	default:
		return "", fmt.Errorf("%w: unknown subject %q", ErrInvalidInput, subject)
	}
}

func mapPerspective(perspective string) (warehouse.Perspective, error) {
	switch perspective {
	case "", ranking.PerspectivePro:
		return warehouse.PerspectivePro, nil
	case ranking.PerspectiveAgainst:
		return warehouse.PerspectiveAgainst, nil
	default:
		return "", fmt.Errorf("%w: unknown perspective %q", ErrInvalidInput, perspective)
	}
}

func mapFilter(sel ranking.FilterSelection) warehouse.EventFilter {
	return warehouse.EventFilter{
		EventTypes: ranking.Normalize(sel.EventTypes),
		Outcomes:   ranking.CanonicalOutcomes(sel.Outcomes),
		Qualifiers: ranking.Normalize(sel.Qualifiers),
	}
}

func mapScope(teams, players []string, from, to *time.Time) warehouse.Scope {
	return warehouse.Scope{
		Teams:   ranking.Normalize(teams),
		Players: ranking.Normalize(players),
		Dates:   warehouse.DateRange{From: from, To: to},
	}
}

func aggregateDynamic(subject warehouse.Subject, metricRows, countRows []warehouse.Row) []ranking.Entry {
	type key struct {
		subject string
		team    string
		season  int
	}

	subjectColumn := "player"
	if subject == warehouse.SubjectTeam {
		subjectColumn = "team"
	}

	rowKey := func(row warehouse.Row) key {
		k := key{subject: rowString(row, subjectColumn), season: int(rowInt64(row, "season"))}
		if subject == warehouse.SubjectPlayer {
			k.team = rowString(row, "team")
		} else {
			k.team = k.subject
		}
		return k
	}

	totals := make(map[key]*ranking.Entry)
	matchesWithEvent := make(map[key]int64)
	order := make([]key, 0)
	for _, row := range metricRows {
		k := rowKey(row)
		entry, ok := totals[k]
		if !ok {
			entry = &ranking.Entry{Subject: k.subject, Team: k.team, Season: k.season}
			totals[k] = entry
			order = append(order, k)
		}
		entry.MetricTotal += rowFloat64(row, "metric_count")
		matchesWithEvent[k]++
	}

	games := make(map[key]int64, len(countRows))
	for _, row := range countRows {
		k := key{season: int(rowInt64(row, "season"))}
		if subject == warehouse.SubjectTeam {
			k.subject = rowString(row, "team")
			k.team = k.subject
		} else {
			k.subject = rowString(row, "player")
			k.team = rowString(row, "team")
		}
		games[k] = rowInt64(row, "total_games")
	}

	out := make([]ranking.Entry, 0, len(order))
	for _, k := range order {
		entry := *totals[k]
		entry.TotalGames = games[k]
		if entry.TotalGames == 0 {
			// No participation row; fall back to matches the subject actually
			// produced events in, so per-game stays defined.
			entry.TotalGames = matchesWithEvent[k]
		}
		if entry.TotalGames > 0 {
			entry.PerGame = entry.MetricTotal / float64(entry.TotalGames)
		}
		out = append(out, entry)
	}
	return out
}

func sortEntries(entries []ranking.Entry, perGame bool) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].MetricTotal, entries[j].MetricTotal
		if perGame {
			a, b = entries[i].PerGame, entries[j].PerGame
		}
		if a != b {
			return a > b
		}
		return entries[i].Subject < entries[j].Subject
	})
}

func topEntries(entries []ranking.Entry, n int) []ranking.Entry {
	if n > 0 && len(entries) > n {
		return entries[:n]
	}
	return entries
}
