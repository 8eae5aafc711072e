package warehouse

import (
	"strings"

	qb "github.com/betterbet/scout-analytics/internal/platform/querybuilder"
)

// EventFilter is one structured filter request over the event relation. Every
// dimension follows the same semantics: an empty set is unconstrained
// (pass-through), a non-empty set restricts. The UI sentinel for "all" is
// translated to an empty set before reaching this layer.
type EventFilter struct {
	// EventTypes restricts the event type column (Pass, Goal, Tackle, ...).
	EventTypes []string
	// Outcomes restricts outcome_type; values are canonical Successful /
	// Unsuccessful, already translated from localized labels.
	Outcomes []string
	// Qualifiers matches tag displayNames against the serialized qualifiers
	// blob. Multiple tags are a disjunction: an event matches if it carries
	// ANY selected tag. Contains-ALL refinement happens post-fetch in the
	// event-browsing view, not warehouse-side.
	Qualifiers []string
}

// IsZero reports whether the filter constrains nothing.
func (f EventFilter) IsZero() bool {
	return len(f.EventTypes) == 0 && len(f.Outcomes) == 0 && len(f.Qualifiers) == 0
}

// conditions renders the filter as predicate conditions against columns
// prefixed with alias (empty for unqualified references). Dimensions combine
// by conjunction; membership within a dimension is disjunction.
func (f EventFilter) conditions(alias string) []qb.Condition {
	var conds []qb.Condition
	if len(f.EventTypes) > 0 {
		conds = append(conds, qb.In(alias+"type", f.EventTypes))
	}
	if len(f.Outcomes) > 0 {
		conds = append(conds, qb.In(alias+"outcome_type", f.Outcomes))
	}
	if len(f.Qualifiers) > 0 {
		conds = append(conds, qb.RegexContains("IFNULL("+alias+"qualifiers, '')", QualifierPattern(f.Qualifiers)))
	}
	return conds
}

// QualifierPattern builds the case-insensitive any-of pattern for a tag
// selection. Tag text is escaped for literal matching; tags can carry regex
// metacharacters.
func QualifierPattern(tags []string) string {
	quoted := make([]string, 0, len(tags))
	for _, tag := range tags {
		quoted = append(quoted, qb.QuoteTag(tag))
	}
	return "(?i)(" + strings.Join(quoted, "|") + ")"
}

// Scope narrows a query to specific teams, players and a date window on top
// of whatever the event filter selects.
type Scope struct {
	Teams   []string
	Players []string
	Dates   DateRange
}

func (s Scope) conditions(teamColumn, playerColumn, dateColumn string) []qb.Condition {
	var conds []qb.Condition
	if len(s.Teams) > 0 {
		conds = append(conds, qb.In(teamColumn, s.Teams))
	}
	if len(s.Players) > 0 {
		conds = append(conds, qb.In(playerColumn, s.Players))
	}
	conds = append(conds, s.Dates.conditions(dateColumn)...)
	return conds
}
