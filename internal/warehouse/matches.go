package warehouse

import (
	"fmt"

	"github.com/cockroachdb/errors"

	qb "github.com/betterbet/scout-analytics/internal/platform/querybuilder"
)

// Side labels for the schedule unpivot, as surfaced to the presentation
// layer.
const (
	SideHome = "Mandante"
	SideAway = "Visitante"
)

// RecentMatchesQuery lists the most recently played matches. finished is the
// set of status values counting as played (codes and text drift across
// seasons).
func (ds DataSource) RecentMatchesQuery(finished []string, limit int64) (Query, error) {
	scheduleUnion, err := ds.AllScheduleSQL()
	if err != nil {
		return Query{}, err
	}
	if limit <= 0 {
		return Query{}, errors.Wrapf(ErrInvalidFilter, "recent matches limit must be positive, got %d", limit)
	}

	sql, params, err := qb.Select("game_id AS match_id", "season", "match_date", "home_team", "away_team", "home_score", "away_score").
		With("all_schedule", scheduleUnion).
		From("all_schedule").
		Where(qb.In("status", finished), qb.IsNotNull("home_score")).
		OrderBy("match_date DESC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: sql, Params: params}, nil
}

// MatchStatsQuery returns one row per played match per team with the core
// volume stats, joining the schedule unpivot to event aggregates. Teams with
// no recorded events for a match still appear with zeroed stats.
func (ds DataSource) MatchStatsQuery(dates DateRange) (Query, error) {
	scheduleUnion, err := ds.AllScheduleSQL()
	if err != nil {
		return Query{}, err
	}
	eventsUnion, err := ds.AllEventsSQL()
	if err != nil {
		return Query{}, err
	}

	var params []qb.Param
	argIndex := 1

	conds := dates.conditions("t.match_date")

	matchTeamSides := fmt.Sprintf(`SELECT game_id, season, match_date, home_team AS team, home_score AS goals_for, away_score AS goals_against, '%s' AS side
FROM match_metadata
UNION ALL
SELECT game_id, season, match_date, away_team AS team, away_score AS goals_for, home_score AS goals_against, '%s' AS side
FROM match_metadata`, SideHome, SideAway)

	ctes := []namedSQL{
		{"all_schedule", scheduleUnion},
		{"all_events", eventsUnion},
		{"match_metadata", `SELECT game_id, season, match_date, home_team, away_team, home_score, away_score
FROM all_schedule
WHERE home_score IS NOT NULL AND away_score IS NOT NULL`},
		{"match_team_sides", matchTeamSides},
		{"event_stats", `SELECT match_id, season, team,
  COUNTIF(type = 'Pass') AS total_passes,
  COUNTIF(type = 'Pass' AND outcome_type = 'Successful') AS successful_passes,
  COUNTIF(is_shot = TRUE) AS total_shots,
  COUNTIF(type = 'Goal') AS goals_from_events,
  COUNTIF(type IN ('SavedShot', 'Goal')) AS shots_on_target
FROM all_events
GROUP BY match_id, season, team`},
	}

	body := fmt.Sprintf(`SELECT
  t.game_id AS match_id,
  t.season,
  t.match_date,
  t.team,
  t.side,
  t.goals_for,
  t.goals_against,
  IFNULL(e.total_passes, 0) AS total_passes,
  IFNULL(e.successful_passes, 0) AS successful_passes,
  IFNULL(e.total_shots, 0) AS total_shots,
  IFNULL(e.shots_on_target, 0) AS shots_on_target
FROM match_team_sides t
LEFT JOIN event_stats e ON t.game_id = e.match_id AND t.season = e.season AND t.team = e.team
WHERE %s
ORDER BY t.season, t.game_id, t.side`, qb.Fragment(conds, &params, &argIndex))

	return Query{SQL: withQuery(ctes, body), Params: params}, nil
}
