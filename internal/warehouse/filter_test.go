package warehouse

import (
	"reflect"
	"testing"

	qb "github.com/betterbet/scout-analytics/internal/platform/querybuilder"
)

func renderFilter(t *testing.T, f EventFilter) (string, []qb.Param) {
	t.Helper()
	var params []qb.Param
	idx := 1
	return qb.Fragment(f.conditions(""), &params, &idx), params
}

func TestEmptyFilterIsPassThrough(t *testing.T) {
	sql, params := renderFilter(t, EventFilter{})
	if sql != "TRUE" {
		t.Fatalf("expected pass-through, got %s", sql)
	}
	if len(params) != 0 {
		t.Fatalf("unexpected params: %+v", params)
	}

	// Explicitly empty selections behave like no selection at all.
	sql, _ = renderFilter(t, EventFilter{EventTypes: []string{}, Outcomes: []string{}, Qualifiers: []string{}})
	if sql != "TRUE" {
		t.Fatalf("expected pass-through for empty selections, got %s", sql)
	}
}

func TestSingletonAndListPredicatesMatch(t *testing.T) {
	single, singleParams := renderFilter(t, EventFilter{EventTypes: []string{"Goal"}})
	list, listParams := renderFilter(t, EventFilter{EventTypes: []string{"Goal"}})

	if single != list {
		t.Fatalf("singleton and single-element list diverge: %s vs %s", single, list)
	}
	if single != "type IN UNNEST(@p1)" {
		t.Fatalf("unexpected predicate: %s", single)
	}
	if !reflect.DeepEqual(singleParams, listParams) {
		t.Fatalf("params diverge: %+v vs %+v", singleParams, listParams)
	}
}

func TestDimensionsCombineByConjunction(t *testing.T) {
	sql, params := renderFilter(t, EventFilter{
		EventTypes: []string{"Pass", "Goal"},
		Outcomes:   []string{"Successful"},
	})
	want := "type IN UNNEST(@p1) AND outcome_type IN UNNEST(@p2)"
	if sql != want {
		t.Fatalf("unexpected predicate:\nwant: %s\ngot:  %s", want, sql)
	}
	if len(params) != 2 {
		t.Fatalf("unexpected params: %+v", params)
	}
}

func TestQualifierDisjunctionSemantics(t *testing.T) {
	sql, params := renderFilter(t, EventFilter{Qualifiers: []string{"Cross", "Head"}})
	if sql != "REGEXP_CONTAINS(IFNULL(qualifiers, ''), @p1)" {
		t.Fatalf("unexpected predicate: %s", sql)
	}
	// Any-of: an event tagged only Head still matches.
	if params[0].Value != "(?i)(Cross|Head)" {
		t.Fatalf("unexpected pattern: %v", params[0].Value)
	}
}

func TestQualifierPatternEscapesUserText(t *testing.T) {
	got := QualifierPattern([]string{"Big(Chance)", "a|b"})
	want := `(?i)(Big\(Chance\)|a\|b)`
	if got != want {
		t.Fatalf("unexpected pattern:\nwant: %s\ngot:  %s", want, got)
	}
}

func TestScopeNarrowsUnconstrainedQuery(t *testing.T) {
	var params []qb.Param
	idx := 1
	conds := Scope{Teams: []string{"Cruzeiro"}}.conditions("effective_team", "player", "match_date")
	sql := qb.Fragment(conds, &params, &idx)
	if sql != "effective_team IN UNNEST(@p1)" {
		t.Fatalf("unexpected scope predicate: %s", sql)
	}
}
