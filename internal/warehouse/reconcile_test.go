package warehouse

import (
	"strings"
	"testing"
)

func TestEnhancedEventsCTEChain(t *testing.T) {
	ds := testDataSource()
	ctes, err := ds.enhancedEventsCTEs()
	if err != nil {
		t.Fatalf("build ctes: %v", err)
	}

	order := make([]string, 0, len(ctes))
	for _, c := range ctes {
		order = append(order, c.name)
	}
	want := []string{
		"all_schedule", "all_events", "match_metadata", "goal_counts",
		"official_totals", "goal_deficits", "ghost_goals", "events_unified", "events_enhanced",
	}
	if len(order) != len(want) {
		t.Fatalf("unexpected cte chain: %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("cte %d: want %s got %s", i, want[i], order[i])
		}
	}
}

func TestGhostGoalInjectionShape(t *testing.T) {
	ds := testDataSource()
	ctes, err := ds.enhancedEventsCTEs()
	if err != nil {
		t.Fatalf("build ctes: %v", err)
	}

	var deficits, ghosts string
	for _, c := range ctes {
		switch c.name {
		case "goal_deficits":
			deficits = c.sql
		case "ghost_goals":
			ghosts = c.sql
		}
	}

	// Deficit clips at zero: recorded goals above the official score never
	// produce negative injection.
	if !strings.Contains(deficits, "GREATEST(o.official_goals - IFNULL(g.recorded_goals, 0), 0)") {
		t.Fatalf("deficit not clipped at zero:\n%s", deficits)
	}

	// One synthetic row per unit of deficit.
	if !strings.Contains(ghosts, "UNNEST(GENERATE_ARRAY(1, d.deficit))") {
		t.Fatalf("missing per-unit expansion:\n%s", ghosts)
	}

	// Placeholder shape: null identity, fixed minute, successful outcome,
	// empty qualifiers.
	for _, want := range []string{
		"CAST(NULL AS STRING) AS player",
		"CAST(NULL AS INT64) AS player_id",
		"'Goal' AS type",
		"'Successful' AS outcome_type",
		"'' AS qualifiers",
		"90 AS expanded_minute",
	} {
		if !strings.Contains(ghosts, want) {
			t.Fatalf("ghost goal shape missing %q:\n%s", want, ghosts)
		}
	}
}

func TestEffectiveTeamAttribution(t *testing.T) {
	ds := testDataSource()
	ctes, err := ds.enhancedEventsCTEs()
	if err != nil {
		t.Fatalf("build ctes: %v", err)
	}

	enhanced := ctes[len(ctes)-1].sql

	// Own goals flip to the opponent relative to the match record; everything
	// else keeps the literal team.
	if !strings.Contains(enhanced, "IF(e.team = m.home_team, m.away_team, m.home_team)") {
		t.Fatalf("own-goal swap missing:\n%s", enhanced)
	}
	if !strings.Contains(enhanced, "ELSE e.team") {
		t.Fatalf("default attribution missing:\n%s", enhanced)
	}
	if !strings.Contains(enhanced, OwnGoalPattern) {
		t.Fatalf("own-goal pattern missing:\n%s", enhanced)
	}
	if !strings.Contains(enhanced, "e.type = 'Goal'") {
		t.Fatalf("own-goal swap must be limited to Goal events:\n%s", enhanced)
	}
}

func TestGoalReconciliationReportsOvercounts(t *testing.T) {
	ds := testDataSource()
	q, err := ds.GoalReconciliationQuery()
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	if !strings.Contains(q.SQL, "WHERE recorded_goals > official_goals") {
		t.Fatalf("overcount predicate missing:\n%s", q.SQL)
	}
	if len(q.Params) != 0 {
		t.Fatalf("unexpected params: %+v", q.Params)
	}
}
