package warehouse

import "strings"

// AllScheduleSQL concatenates the per-season normalized schedule fragments
// with UNION ALL into the all_schedule virtual relation: one row per match,
// all seasons. Rows are assumed unique by (game_id, season); no dedup.
func (ds DataSource) AllScheduleSQL() (string, error) {
	return ds.unionSQL(TableSchedule)
}

// AllEventsSQL concatenates the per-season normalized event fragments with
// UNION ALL into the all_events virtual relation: one row per recorded
// action, all seasons.
func (ds DataSource) AllEventsSQL() (string, error) {
	return ds.unionSQL(TableEvents)
}

func (ds DataSource) unionSQL(kind TableKind) (string, error) {
	fragments := make([]string, 0, len(ds.Years))
	for _, year := range ds.Years {
		fragment, err := ds.selectFragment(kind, year)
		if err != nil {
			return "", err
		}
		fragments = append(fragments, fragment)
	}
	return strings.Join(fragments, " UNION ALL "), nil
}
