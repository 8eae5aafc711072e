package warehouse

import (
	qb "github.com/betterbet/scout-analytics/internal/platform/querybuilder"
)

// AllTeamsQuery lists every team appearing in the schedule across seasons.
// Derived from the schedule rather than events so teams with sparse event
// coverage still show up.
func (ds DataSource) AllTeamsQuery() (Query, error) {
	scheduleUnion, err := ds.AllScheduleSQL()
	if err != nil {
		return Query{}, err
	}

	sql, params, err := qb.Select("DISTINCT team").
		With("all_schedule", scheduleUnion).
		With("match_teams", matchTeamsSQL).
		From("match_teams").
		OrderBy("team").
		ToSQL()
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: sql, Params: params}, nil
}

// AllPlayersQuery lists distinct player names, optionally narrowed to teams
// (the hierarchical team-then-player filter of the ranking views).
func (ds DataSource) AllPlayersQuery(teams []string) (Query, error) {
	eventsUnion, err := ds.AllEventsSQL()
	if err != nil {
		return Query{}, err
	}

	conds := []qb.Condition{qb.IsNotNull("player")}
	if len(teams) > 0 {
		conds = append(conds, qb.In("team", teams))
	}

	sql, params, err := qb.Select("DISTINCT player").
		With("all_events", eventsUnion).
		From("all_events").
		Where(conds...).
		OrderBy("player").
		ToSQL()
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: sql, Params: params}, nil
}

// PlayerDirectoryQuery maps player ids to one canonical display name,
// optionally narrowed to teams. Backs related-player resolution and the
// event-browsing player picker.
func (ds DataSource) PlayerDirectoryQuery(teams []string) (Query, error) {
	eventsUnion, err := ds.AllEventsSQL()
	if err != nil {
		return Query{}, err
	}

	conds := []qb.Condition{qb.IsNotNull("player_id"), qb.IsNotNull("player")}
	if len(teams) > 0 {
		conds = append(conds, qb.In("team", teams))
	}

	sql, params, err := qb.Select("player_id", "ANY_VALUE(player) AS player").
		With("all_events", eventsUnion).
		From("all_events").
		Where(conds...).
		GroupBy("player_id").
		OrderBy("player", "player_id").
		ToSQL()
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: sql, Params: params}, nil
}
