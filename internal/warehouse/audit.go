package warehouse

import (
	"fmt"

	qb "github.com/betterbet/scout-analytics/internal/platform/querybuilder"
)

// matchTeamsSQL unpivots the schedule into one row per team per played match,
// independent of event presence. This is the participation relation used to
// normalize per-match metrics and to audit for missing schedule rows.
const matchTeamsSQL = `SELECT game_id, season, match_date, home_team AS team FROM all_schedule WHERE home_score IS NOT NULL
UNION ALL
SELECT game_id, season, match_date, away_team AS team FROM all_schedule WHERE home_score IS NOT NULL`

// TeamMatchCountsQuery returns true match-participation counts per
// (team, season), optionally narrowed to a team set and date window.
func (ds DataSource) TeamMatchCountsQuery(teams []string, dates DateRange) (Query, error) {
	scheduleUnion, err := ds.AllScheduleSQL()
	if err != nil {
		return Query{}, err
	}

	var params []qb.Param
	argIndex := 1

	var conds []qb.Condition
	if len(teams) > 0 {
		conds = append(conds, qb.In("team", teams))
	}
	conds = append(conds, dates.conditions("match_date")...)

	body := fmt.Sprintf(`SELECT team, season, COUNT(DISTINCT game_id) AS total_games
FROM match_teams
WHERE %s
GROUP BY team, season
ORDER BY season, team`, qb.Fragment(conds, &params, &argIndex))

	ctes := []namedSQL{
		{"all_schedule", scheduleUnion},
		{"match_teams", matchTeamsSQL},
	}
	return Query{SQL: withQuery(ctes, body), Params: params}, nil
}

// PlayerMatchCountsQuery returns per (player, team, season) counts of matches
// the player appears in. Participation is derived from the event log, the
// only signal available for players.
func (ds DataSource) PlayerMatchCountsQuery(teams, players []string, dates DateRange) (Query, error) {
	ctes, err := ds.enhancedEventsCTEs()
	if err != nil {
		return Query{}, err
	}

	var params []qb.Param
	argIndex := 1

	conds := []qb.Condition{qb.IsNotNull("player")}
	conds = append(conds, Scope{Teams: teams, Players: players, Dates: dates}.conditions("team", "player", "match_date")...)

	body := fmt.Sprintf(`SELECT player, team, season, COUNT(DISTINCT match_id) AS total_games
FROM events_enhanced
WHERE %s
GROUP BY player, team, season
ORDER BY season, team, player`, qb.Fragment(conds, &params, &argIndex))

	return Query{SQL: withQuery(ctes, body), Params: params}, nil
}

// GoalReconciliationQuery reports matches where recorded Goal events exceed
// the official score. Ghost-goal injection clips these to a zero deficit and
// leaves the event log untouched; this query makes the overcount visible
// instead of silent.
func (ds DataSource) GoalReconciliationQuery() (Query, error) {
	ctes, err := ds.reconciliationCTEs()
	if err != nil {
		return Query{}, err
	}

	body := `SELECT match_id, season, team, official_goals, recorded_goals
FROM goal_deficits
WHERE recorded_goals > official_goals
ORDER BY season, match_id, team`

	return Query{SQL: withQuery(ctes, body), Params: nil}, nil
}

// TotalMatchesQuery counts scheduled matches across all seasons.
func (ds DataSource) TotalMatchesQuery() (Query, error) {
	scheduleUnion, err := ds.AllScheduleSQL()
	if err != nil {
		return Query{}, err
	}

	sql, params, err := qb.Select("COUNT(DISTINCT game_id) AS total").
		With("all_schedule", scheduleUnion).
		From("all_schedule").
		Where(qb.IsNotNull("status")).
		ToSQL()
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: sql, Params: params}, nil
}

// TotalEventsQuery counts recorded actions across all seasons.
func (ds DataSource) TotalEventsQuery() (Query, error) {
	eventsUnion, err := ds.AllEventsSQL()
	if err != nil {
		return Query{}, err
	}

	sql, params, err := qb.Select("COUNT(*) AS total").
		With("all_events", eventsUnion).
		From("all_events").
		ToSQL()
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: sql, Params: params}, nil
}
