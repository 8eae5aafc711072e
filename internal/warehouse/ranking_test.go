package warehouse

import (
	"reflect"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestTeamRankingGroupsByEffectiveTeam(t *testing.T) {
	ds := testDataSource()
	q, err := ds.DynamicRankingQuery(RankingSpec{
		Subject: SubjectTeam,
		Filter:  EventFilter{EventTypes: []string{"Goal"}},
	})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}

	if !strings.Contains(q.SQL, "effective_team AS team") {
		t.Fatalf("team ranking must attribute via effective_team:\n%s", q.SQL)
	}
	if !strings.Contains(q.SQL, "GROUP BY match_id, season, match_date, team") {
		t.Fatalf("missing per-match grouping:\n%s", q.SQL)
	}
}

func TestAgainstPerspectiveFlipsAttribution(t *testing.T) {
	ds := testDataSource()
	q, err := ds.DynamicRankingQuery(RankingSpec{
		Subject:     SubjectTeam,
		Perspective: PerspectiveAgainst,
		Filter:      EventFilter{EventTypes: []string{"Goal"}},
	})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	if !strings.Contains(q.SQL, "IF(effective_team = home_team, away_team, home_team) AS team") {
		t.Fatalf("against perspective must credit the opponent:\n%s", q.SQL)
	}
}

func TestPlayerRankingRequiresNamedPlayer(t *testing.T) {
	ds := testDataSource()
	q, err := ds.DynamicRankingQuery(RankingSpec{
		Subject: SubjectPlayer,
		Filter:  EventFilter{EventTypes: []string{"Pass"}, Outcomes: []string{"Successful"}},
	})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	// Ghost goals carry a null player and must never rank.
	if !strings.Contains(q.SQL, "player IS NOT NULL") {
		t.Fatalf("null players must be excluded:\n%s", q.SQL)
	}
}

func TestRelatedPlayerRankingJoinsDirectory(t *testing.T) {
	ds := testDataSource()
	q, err := ds.DynamicRankingQuery(RankingSpec{
		Subject:          SubjectPlayer,
		Filter:           EventFilter{EventTypes: []string{"Goal"}},
		UseRelatedPlayer: true,
	})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}

	if !strings.Contains(q.SQL, "player_directory AS (") {
		t.Fatalf("missing player directory cte:\n%s", q.SQL)
	}
	if !strings.Contains(q.SQL, "JOIN player_directory d ON e.related_player_id = d.player_id") {
		t.Fatalf("missing related-player join:\n%s", q.SQL)
	}
	if !strings.Contains(q.SQL, "d.player AS player") {
		t.Fatalf("subject must resolve to the related player's name:\n%s", q.SQL)
	}
}

func TestRelatedPlayerRankingValidation(t *testing.T) {
	ds := testDataSource()

	_, err := ds.DynamicRankingQuery(RankingSpec{
		Subject:          SubjectTeam,
		Filter:           EventFilter{EventTypes: []string{"Goal"}},
		UseRelatedPlayer: true,
	})
	if !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected invalid filter for team subject, got %v", err)
	}

	_, err = ds.DynamicRankingQuery(RankingSpec{
		Subject:          SubjectPlayer,
		Filter:           EventFilter{EventTypes: []string{"Pass"}},
		UseRelatedPlayer: true,
	})
	if !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected invalid filter for non-Goal events, got %v", err)
	}
}

func TestRankingRejectsUnknownSubject(t *testing.T) {
	ds := testDataSource()
	_, err := ds.DynamicRankingQuery(RankingSpec{Subject: "referee"})
	if !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected invalid filter, got %v", err)
	}
}

func TestRankingQueryIsDeterministic(t *testing.T) {
	ds := testDataSource()
	spec := RankingSpec{
		Subject: SubjectPlayer,
		Filter: EventFilter{
			EventTypes: []string{"Pass"},
			Outcomes:   []string{"Successful"},
			Qualifiers: []string{"Cross", "Corner"},
		},
		Scope: Scope{Teams: []string{"Flamengo", "Palmeiras"}},
	}

	first, err := ds.DynamicRankingQuery(spec)
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	second, err := ds.DynamicRankingQuery(spec)
	if err != nil {
		t.Fatalf("build query: %v", err)
	}

	if first.SQL != second.SQL {
		t.Fatal("identical specs must produce byte-identical SQL")
	}
	if !reflect.DeepEqual(first.Params, second.Params) {
		t.Fatalf("params diverge:\n%+v\n%+v", first.Params, second.Params)
	}
}

func TestConversionRankingShape(t *testing.T) {
	ds := testDataSource()
	q, err := ds.ConversionRankingQuery(ConversionSpec{
		Subject:     SubjectTeam,
		Numerator:   EventFilter{EventTypes: []string{"Goal"}},
		Denominator: EventFilter{EventTypes: []string{"Shot", "Goal"}},
	})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}

	if !strings.Contains(q.SQL, "FULL OUTER JOIN denominator_counts d") {
		t.Fatalf("sides must combine via full outer join:\n%s", q.SQL)
	}
	// Zero denominator yields a zero ratio, not a division error.
	if !strings.Contains(q.SQL, "IF(IFNULL(d.denominator, 0) = 0, 0.0, IFNULL(n.numerator, 0) / d.denominator) AS ratio") {
		t.Fatalf("ratio must guard against zero denominators:\n%s", q.SQL)
	}
	if !strings.Contains(q.SQL, "IFNULL(n.numerator, 0) AS numerator") {
		t.Fatalf("one-sided subjects must surface with a zero:\n%s", q.SQL)
	}
}

func TestConversionRequiresBothEventTypeSets(t *testing.T) {
	ds := testDataSource()

	_, err := ds.ConversionRankingQuery(ConversionSpec{
		Subject:     SubjectTeam,
		Denominator: EventFilter{EventTypes: []string{"Shot"}},
	})
	if !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected invalid filter for empty numerator, got %v", err)
	}

	_, err = ds.ConversionRankingQuery(ConversionSpec{
		Subject:   SubjectTeam,
		Numerator: EventFilter{EventTypes: []string{"Goal"}},
	})
	if !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected invalid filter for empty denominator, got %v", err)
	}
}

func TestConversionPlayerSubjectGuardsNulls(t *testing.T) {
	ds := testDataSource()
	q, err := ds.ConversionRankingQuery(ConversionSpec{
		Subject:     SubjectPlayer,
		Numerator:   EventFilter{EventTypes: []string{"Goal"}},
		Denominator: EventFilter{EventTypes: []string{"Shot", "Goal"}},
	})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	if !strings.Contains(q.SQL, "player IS NOT NULL AND ") {
		t.Fatalf("player conversion must exclude null players:\n%s", q.SQL)
	}
	if !strings.Contains(q.SQL, "AS player,") {
		t.Fatalf("subject alias must be player:\n%s", q.SQL)
	}
}

func TestConversionPlayerSubjectScopesTeamsByTeamColumn(t *testing.T) {
	ds := testDataSource()
	q, err := ds.ConversionRankingQuery(ConversionSpec{
		Subject:     SubjectPlayer,
		Numerator:   EventFilter{EventTypes: []string{"Goal"}},
		Denominator: EventFilter{EventTypes: []string{"SavedShot", "Goal"}},
		Scope:       Scope{Teams: []string{"Flamengo"}},
	})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}

	// A team scope restricts rows by the team column; it must never be
	// matched against the ranked player names.
	if !strings.Contains(q.SQL, "AND team IN UNNEST(") {
		t.Fatalf("team scope must target the team column:\n%s", q.SQL)
	}
	if strings.Contains(q.SQL, "player IN UNNEST(") {
		t.Fatalf("team scope leaked onto the player column:\n%s", q.SQL)
	}

	// Both side CTEs carry the scope.
	teamBindings := 0
	for _, p := range q.Params {
		if v, ok := p.Value.([]string); ok && reflect.DeepEqual(v, []string{"Flamengo"}) {
			teamBindings++
		}
	}
	if teamBindings != 2 {
		t.Fatalf("expected the team scope bound on numerator and denominator, got %d bindings", teamBindings)
	}
}
