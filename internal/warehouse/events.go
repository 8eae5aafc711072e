package warehouse

import (
	"fmt"

	"github.com/cockroachdb/errors"

	qb "github.com/betterbet/scout-analytics/internal/platform/querybuilder"
)

// EventSearchSpec narrows the event browsing query. Teams, match ids and
// player ids are optional scopes; the embedded filter carries event types,
// outcomes and qualifier tags with the usual pass-through semantics.
type EventSearchSpec struct {
	Teams      []string
	MatchIDs   []int64
	PlayerIDs  []int64
	MinuteFrom *int64
	MinuteTo   *int64
	Filter     EventFilter
	Dates      DateRange
	Limit      int64
}

// EventSearchQuery fetches reconciled event rows for the pitch-map browsing
// view. Qualifier tags selected here match with ANY semantics warehouse-side;
// the caller refines to contains-ALL in memory after parsing the serialized
// qualifier blob.
func (ds DataSource) EventSearchQuery(spec EventSearchSpec) (Query, error) {
	if spec.Limit <= 0 {
		return Query{}, errors.Wrapf(ErrInvalidFilter, "event search limit must be positive, got %d", spec.Limit)
	}

	ctes, err := ds.enhancedEventsCTEs()
	if err != nil {
		return Query{}, err
	}

	var params []qb.Param
	argIndex := 1

	var conds []qb.Condition
	if len(spec.Teams) > 0 {
		conds = append(conds, qb.In("team", spec.Teams))
	}
	if len(spec.MatchIDs) > 0 {
		conds = append(conds, qb.InInt64("match_id", spec.MatchIDs))
	}
	if len(spec.PlayerIDs) > 0 {
		conds = append(conds, qb.InInt64("player_id", spec.PlayerIDs))
	}
	if spec.MinuteFrom != nil {
		conds = append(conds, qb.Expr("expanded_minute >= ?", *spec.MinuteFrom))
	}
	if spec.MinuteTo != nil {
		conds = append(conds, qb.Expr("expanded_minute <= ?", *spec.MinuteTo))
	}
	conds = append(conds, spec.Filter.conditions("")...)
	conds = append(conds, spec.Dates.conditions("match_date")...)

	where := qb.Fragment(conds, &params, &argIndex)

	body := fmt.Sprintf(`SELECT match_id, season, match_date, team, effective_team, player, player_id,
  type, outcome_type, qualifiers, expanded_minute, period, x, y, end_x, end_y, is_shot, related_player_id
FROM events_enhanced
WHERE %s
ORDER BY season, match_id, expanded_minute, period
LIMIT %s`, where, qb.Bind(&params, &argIndex, spec.Limit))

	return Query{SQL: withQuery(ctes, body), Params: params}, nil
}
