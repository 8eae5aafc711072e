package warehouse

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	qb "github.com/betterbet/scout-analytics/internal/platform/querybuilder"
)

// Subject selects the ranked entity.
type Subject string

const (
	SubjectTeam   Subject = "team"
	SubjectPlayer Subject = "player"
)

// Perspective controls team attribution direction: pro counts events credited
// to the subject, against counts events credited to the subject's opponent
// (conceded volume).
type Perspective string

const (
	PerspectivePro     Perspective = "pro"
	PerspectiveAgainst Perspective = "against"
)

// RankingSpec describes one dynamic (single-metric) ranking request. The
// composed query returns one row per (match, subject) with a metric_count of
// post-filter events; callers aggregate across matches.
type RankingSpec struct {
	Subject     Subject
	Perspective Perspective
	Filter      EventFilter
	Scope       Scope

	// UseRelatedPlayer redirects the counted subject from the acting player
	// to the player linked via related_player_id, resolving the id to a name
	// through the distinct (player_id, player) mapping of the event relation.
	// Valid only for Goal events; this is the assists ranking.
	UseRelatedPlayer bool
}

func (s RankingSpec) validate() error {
	if s.Subject != SubjectTeam && s.Subject != SubjectPlayer {
		return errors.Wrapf(ErrInvalidFilter, "unknown ranking subject %q", s.Subject)
	}
	if s.Perspective != "" && s.Perspective != PerspectivePro && s.Perspective != PerspectiveAgainst {
		return errors.Wrapf(ErrInvalidFilter, "unknown ranking perspective %q", s.Perspective)
	}
	if s.UseRelatedPlayer {
		if s.Subject != SubjectPlayer {
			return errors.Wrap(ErrInvalidFilter, "related-player mode requires the player subject")
		}
		if len(s.Filter.EventTypes) != 1 || s.Filter.EventTypes[0] != "Goal" {
			return errors.Wrap(ErrInvalidFilter, "related-player mode requires the Goal event type only")
		}
	}
	return nil
}

// teamSubjectExpr is the attribution expression for team rankings. It always
// goes through effective_team so own goals credit the benefiting side; raw
// team is never used for team-level metrics.
func teamSubjectExpr(p Perspective) string {
	if p == PerspectiveAgainst {
		return "IF(effective_team = home_team, away_team, home_team)"
	}
	return "effective_team"
}

// playerDirectorySQL maps player_id to one canonical display name derived
// from the event relation itself.
const playerDirectorySQL = `SELECT player_id, ANY_VALUE(player) AS player
FROM all_events
WHERE player_id IS NOT NULL AND player IS NOT NULL
GROUP BY player_id`

// DynamicRankingQuery composes the single-metric ranking: per (match,
// subject) counts of events passing the filter, attributed via effective_team
// for teams or the (optionally related) player for players.
func (ds DataSource) DynamicRankingQuery(spec RankingSpec) (Query, error) {
	if err := spec.validate(); err != nil {
		return Query{}, err
	}

	ctes, err := ds.enhancedEventsCTEs()
	if err != nil {
		return Query{}, err
	}

	var params []qb.Param
	argIndex := 1

	var body string
	switch {
	case spec.Subject == SubjectTeam:
		subject := teamSubjectExpr(spec.Perspective)
		conds := spec.Filter.conditions("")
		conds = append(conds, spec.Scope.conditions(subject, "player", "match_date")...)
		body = fmt.Sprintf(`SELECT match_id, season, match_date, %s AS team, COUNT(*) AS metric_count
FROM events_enhanced
WHERE %s
GROUP BY match_id, season, match_date, team
ORDER BY season, match_id, team`, subject, qb.Fragment(conds, &params, &argIndex))

	case spec.UseRelatedPlayer:
		ctes = append(ctes, namedSQL{"player_directory", playerDirectorySQL})
		conds := spec.Filter.conditions("e.")
		conds = append(conds, spec.Scope.conditions("e.team", "d.player", "e.match_date")...)
		body = fmt.Sprintf(`SELECT e.match_id, e.season, e.match_date, d.player AS player, e.team, COUNT(*) AS metric_count
FROM events_enhanced e
JOIN player_directory d ON e.related_player_id = d.player_id
WHERE %s
GROUP BY e.match_id, e.season, e.match_date, player, e.team
ORDER BY season, match_id, player, team`, qb.Fragment(conds, &params, &argIndex))

	default:
		conds := []qb.Condition{qb.IsNotNull("player")}
		conds = append(conds, spec.Filter.conditions("")...)
		conds = append(conds, spec.Scope.conditions("team", "player", "match_date")...)
		body = fmt.Sprintf(`SELECT match_id, season, match_date, player, team, COUNT(*) AS metric_count
FROM events_enhanced
WHERE %s
GROUP BY match_id, season, match_date, player, team
ORDER BY season, match_id, player, team`, qb.Fragment(conds, &params, &argIndex))
	}

	return Query{SQL: withQuery(ctes, body), Params: params}, nil
}

// ConversionSpec describes an efficiency ranking: two independent filters
// evaluated over the same subject and scope, combined per (match, subject).
type ConversionSpec struct {
	Subject     Subject
	Perspective Perspective
	Numerator   EventFilter
	Denominator EventFilter
	Scope       Scope
}

func (s ConversionSpec) validate() error {
	if s.Subject != SubjectTeam && s.Subject != SubjectPlayer {
		return errors.Wrapf(ErrInvalidFilter, "unknown ranking subject %q", s.Subject)
	}
	if len(s.Numerator.EventTypes) == 0 {
		return errors.Wrap(ErrInvalidFilter, "conversion numerator requires at least one event type")
	}
	if len(s.Denominator.EventTypes) == 0 {
		return errors.Wrap(ErrInvalidFilter, "conversion denominator requires at least one event type")
	}
	return nil
}

// ConversionRankingQuery composes the numerator/denominator efficiency query.
// The two sides are counted independently then combined with a FULL OUTER
// JOIN on (match, season, subject) so a subject appearing on only one side
// still surfaces with a zero on the other. ratio is 0 when the denominator
// is 0, never an error.
func (ds DataSource) ConversionRankingQuery(spec ConversionSpec) (Query, error) {
	if err := spec.validate(); err != nil {
		return Query{}, err
	}

	ctes, err := ds.enhancedEventsCTEs()
	if err != nil {
		return Query{}, err
	}

	subject := "player"
	subjectAlias := "player"
	teamColumn := "team"
	guard := "player IS NOT NULL AND "
	if spec.Subject == SubjectTeam {
		subject = teamSubjectExpr(spec.Perspective)
		subjectAlias = "team"
		teamColumn = subject
		guard = ""
	}

	var params []qb.Param
	argIndex := 1

	sideCTE := func(filter EventFilter, countAlias string) string {
		conds := filter.conditions("")
		conds = append(conds, spec.Scope.conditions(teamColumn, "player", "match_date")...)
		return fmt.Sprintf(`SELECT match_id, season, match_date, %s AS subject, COUNT(*) AS %s
FROM events_enhanced
WHERE %s%s
GROUP BY match_id, season, match_date, subject`, subject, countAlias, guard, qb.Fragment(conds, &params, &argIndex))
	}

	ctes = append(ctes,
		namedSQL{"numerator_counts", sideCTE(spec.Numerator, "numerator")},
		namedSQL{"denominator_counts", sideCTE(spec.Denominator, "denominator")},
	)

	body := fmt.Sprintf(`SELECT
  COALESCE(n.match_id, d.match_id) AS match_id,
  COALESCE(n.season, d.season) AS season,
  COALESCE(n.match_date, d.match_date) AS match_date,
  COALESCE(n.subject, d.subject) AS %s,
  IFNULL(n.numerator, 0) AS numerator,
  IFNULL(d.denominator, 0) AS denominator,
  IF(IFNULL(d.denominator, 0) = 0, 0.0, IFNULL(n.numerator, 0) / d.denominator) AS ratio
FROM numerator_counts n
FULL OUTER JOIN denominator_counts d
  ON n.match_id = d.match_id AND n.season = d.season AND n.subject = d.subject
ORDER BY season, match_id, %s`, subjectAlias, subjectAlias)

	return Query{SQL: withQuery(ctes, body), Params: params}, nil
}

func withQuery(ctes []namedSQL, body string) string {
	var buf strings.Builder
	buf.WriteString("WITH ")
	for i, c := range ctes {
		if i > 0 {
			buf.WriteString(",\n")
		}
		buf.WriteString(c.name)
		buf.WriteString(" AS (\n")
		buf.WriteString(c.sql)
		buf.WriteString("\n)")
	}
	buf.WriteString("\n")
	buf.WriteString(body)
	return buf.String()
}
