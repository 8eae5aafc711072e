package warehouse

import "fmt"

// OwnGoalPattern matches the qualifier tags that mark a goal as an own goal
// across data vendor vocabularies.
const OwnGoalPattern = `(?i)(own[ _-]?goal|gol[ _-]?contra)`

// Ghost goal placeholder shape: null player identity, fixed minute and pitch
// position, successful outcome, empty qualifiers.
const (
	ghostGoalMinute = 90
	ghostGoalPeriod = 2
)

type namedSQL struct {
	name string
	sql  string
}

// eventColumnList is the canonical projection reused by the reconciliation
// CTEs so UNION ALL column order never drifts.
const eventColumnList = "match_id, season, team, player, player_id, type, outcome_type, qualifiers, " +
	"expanded_minute, period, x, y, end_x, end_y, is_shot, related_player_id"

// reconciliationCTEs builds the chain from the raw unions through per-team
// goal deficits: official score minus recorded Goal events, clipped at zero.
// Recorded goals exceeding the official score yield deficit 0 by design; the
// overcount itself is reported by GoalReconciliationQuery, never corrected.
func (ds DataSource) reconciliationCTEs() ([]namedSQL, error) {
	scheduleUnion, err := ds.AllScheduleSQL()
	if err != nil {
		return nil, err
	}
	eventsUnion, err := ds.AllEventsSQL()
	if err != nil {
		return nil, err
	}

	return []namedSQL{
		{"all_schedule", scheduleUnion},
		{"all_events", eventsUnion},
		{"match_metadata", `SELECT game_id, season, match_date, home_team, away_team, home_score, away_score
FROM all_schedule
WHERE home_score IS NOT NULL AND away_score IS NOT NULL`},
		{"goal_counts", `SELECT match_id, season, team, COUNTIF(type = 'Goal') AS recorded_goals
FROM all_events
GROUP BY match_id, season, team`},
		{"official_totals", `SELECT game_id AS match_id, season, home_team AS team, home_score AS official_goals FROM match_metadata
UNION ALL
SELECT game_id AS match_id, season, away_team AS team, away_score AS official_goals FROM match_metadata`},
		{"goal_deficits", `SELECT o.match_id, o.season, o.team, o.official_goals,
  IFNULL(g.recorded_goals, 0) AS recorded_goals,
  GREATEST(o.official_goals - IFNULL(g.recorded_goals, 0), 0) AS deficit
FROM official_totals o
LEFT JOIN goal_counts g
  ON o.match_id = g.match_id AND o.season = g.season AND o.team = g.team`},
	}, nil
}

// enhancedEventsCTEs extends the reconciliation chain to events_enhanced: the
// event relation with ghost goals appended and the effective_team attribution
// column computed. Team-level aggregations downstream group by effective_team,
// never raw team, so own goals credit the benefiting side.
func (ds DataSource) enhancedEventsCTEs() ([]namedSQL, error) {
	ctes, err := ds.reconciliationCTEs()
	if err != nil {
		return nil, err
	}

	ghostGoals := fmt.Sprintf(`SELECT d.match_id, d.season, d.team,
  CAST(NULL AS STRING) AS player, CAST(NULL AS INT64) AS player_id,
  'Goal' AS type, 'Successful' AS outcome_type, '' AS qualifiers,
  %d AS expanded_minute, %d AS period,
  50.0 AS x, 50.0 AS y, CAST(NULL AS FLOAT64) AS end_x, CAST(NULL AS FLOAT64) AS end_y,
  FALSE AS is_shot, CAST(NULL AS INT64) AS related_player_id
FROM goal_deficits d, UNNEST(GENERATE_ARRAY(1, d.deficit)) AS ghost_index`, ghostGoalMinute, ghostGoalPeriod)

	return append(ctes,
		namedSQL{"ghost_goals", ghostGoals},
		namedSQL{"events_unified", fmt.Sprintf(`SELECT %s FROM all_events
UNION ALL
SELECT %s FROM ghost_goals`, eventColumnList, eventColumnList)},
		namedSQL{"events_enhanced", fmt.Sprintf(`SELECT e.*, m.match_date, m.home_team, m.away_team,
  CASE
    WHEN e.type = 'Goal' AND REGEXP_CONTAINS(IFNULL(e.qualifiers, ''), r'%s')
    THEN IF(e.team = m.home_team, m.away_team, m.home_team)
    ELSE e.team
  END AS effective_team
FROM events_unified e
JOIN match_metadata m ON e.match_id = m.game_id AND e.season = m.season`, OwnGoalPattern)},
	), nil
}
