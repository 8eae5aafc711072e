package warehouse

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// TableKind selects one of the two physical table families.
type TableKind string

const (
	TableSchedule TableKind = "schedule"
	TableEvents   TableKind = "events"
)

// Canonical schedule columns, in emission order. season is injected as a
// literal and has no physical source.
var scheduleColumns = []canonicalColumn{
	{name: "game_id"},
	{name: "season", injected: true},
	{name: "match_date", cast: "TIMESTAMP"},
	{name: "home_team"},
	{name: "away_team"},
	{name: "home_score", cast: "INT64"},
	{name: "away_score", cast: "INT64"},
	{name: "status", cast: "STRING"},
}

// Canonical event columns: the intersection guaranteed present across all
// season tables. Columns added in later seasons stay out of this list or the
// UNION ALL breaks.
var eventColumns = []canonicalColumn{
	{name: "match_id", source: "game_id"},
	{name: "season", injected: true},
	{name: "team"},
	{name: "player", cast: "STRING"},
	{name: "player_id", cast: "INT64"},
	{name: "type"},
	{name: "outcome_type"},
	{name: "qualifiers", cast: "STRING"},
	{name: "expanded_minute", cast: "INT64"},
	{name: "period", cast: "INT64"},
	{name: "x", cast: "FLOAT64"},
	{name: "y", cast: "FLOAT64"},
	{name: "end_x", cast: "FLOAT64"},
	{name: "end_y", cast: "FLOAT64"},
	{name: "is_shot", cast: "BOOL"},
	{name: "related_player_id", cast: "INT64"},
}

type canonicalColumn struct {
	name     string
	source   string // physical column when it differs from the canonical name
	cast     string // target type when the physical type drifts across years
	injected bool   // literal, no physical source
}

// DataSource describes the warehouse table family for one competition. It is
// explicit configuration handed to every query-building function; nothing in
// this package reads ambient globals.
type DataSource struct {
	ProjectID      string
	DatasetID      string
	SchedulePrefix string
	EventsPrefix   string

	// Years lists the seasons to union. Order is normalized ascending by
	// Validate so generated SQL is deterministic.
	Years []int

	// StartTimeFromYear is the first season whose schedule table stores the
	// kickoff timestamp in start_time; earlier seasons use date.
	StartTimeFromYear int

	// ScheduleOverrides and EventsOverrides rename physical source columns
	// per year and canonical column, for seasons that drifted from the
	// defaults. An empty source declares the column missing, which is a
	// configuration error surfaced by Validate.
	ScheduleOverrides map[int]map[string]string
	EventsOverrides   map[int]map[string]string
}

// Validate checks the data source before any SQL is built. Per-year overrides
// naming unknown canonical columns, or declaring a canonical column missing,
// fail here rather than at execution time.
func (ds *DataSource) Validate() error {
	if strings.TrimSpace(ds.ProjectID) == "" {
		return errors.New("warehouse project id is required")
	}
	if strings.TrimSpace(ds.DatasetID) == "" {
		return errors.New("warehouse dataset id is required")
	}
	if strings.TrimSpace(ds.SchedulePrefix) == "" || strings.TrimSpace(ds.EventsPrefix) == "" {
		return errors.New("warehouse table prefixes are required")
	}
	if len(ds.Years) == 0 {
		return errors.New("warehouse years list is required")
	}
	if ds.StartTimeFromYear == 0 {
		return errors.New("warehouse start_time cutover year is required")
	}

	years := append([]int(nil), ds.Years...)
	sort.Ints(years)
	for i := 1; i < len(years); i++ {
		if years[i] == years[i-1] {
			return errors.Newf("duplicate season year %d", years[i])
		}
	}
	ds.Years = years

	if err := validateOverrides(ds.ScheduleOverrides, scheduleColumns, TableSchedule); err != nil {
		return err
	}
	return validateOverrides(ds.EventsOverrides, eventColumns, TableEvents)
}

func validateOverrides(overrides map[int]map[string]string, columns []canonicalColumn, kind TableKind) error {
	for year, mapping := range overrides {
		for canonical, source := range mapping {
			col, ok := findColumn(columns, canonical)
			if !ok {
				return errors.Wrapf(ErrSchemaMismatch,
					"%s override for season %d names unknown canonical column %q", kind, year, canonical)
			}
			if col.injected {
				return errors.Wrapf(ErrSchemaMismatch,
					"%s override for season %d targets injected column %q", kind, year, canonical)
			}
			if strings.TrimSpace(source) == "" {
				return errors.Wrapf(ErrSchemaMismatch,
					"%s table for season %d is missing canonical column %q", kind, year, canonical)
			}
		}
	}
	return nil
}

func findColumn(columns []canonicalColumn, name string) (canonicalColumn, bool) {
	for _, c := range columns {
		if c.name == name {
			return c, true
		}
	}
	return canonicalColumn{}, false
}

// TableName returns the fully qualified physical table for one season.
func (ds DataSource) TableName(kind TableKind, year int) string {
	prefix := ds.SchedulePrefix
	if kind == TableEvents {
		prefix = ds.EventsPrefix
	}
	return fmt.Sprintf("`%s.%s.%s_%d`", ds.ProjectID, ds.DatasetID, prefix, year)
}

// ScheduleSelect emits the normalized SELECT fragment for one season's
// schedule table: canonical column names, consistent types, injected season.
func (ds DataSource) ScheduleSelect(year int) (string, error) {
	return ds.selectFragment(TableSchedule, year)
}

// EventsSelect emits the normalized SELECT fragment for one season's event
// table, restricted to the intersection-safe canonical column list.
func (ds DataSource) EventsSelect(year int) (string, error) {
	return ds.selectFragment(TableEvents, year)
}

func (ds DataSource) selectFragment(kind TableKind, year int) (string, error) {
	columns := scheduleColumns
	overrides := ds.ScheduleOverrides
	if kind == TableEvents {
		columns = eventColumns
		overrides = ds.EventsOverrides
	}

	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		expr, err := ds.columnExpr(kind, year, col, overrides[year])
		if err != nil {
			return "", err
		}
		parts = append(parts, expr)
	}

	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(parts, ", "), ds.TableName(kind, year)), nil
}

func (ds DataSource) columnExpr(kind TableKind, year int, col canonicalColumn, override map[string]string) (string, error) {
	if col.injected {
		return fmt.Sprintf("%d AS %s", year, col.name), nil
	}

	source := col.name
	if col.source != "" {
		source = col.source
	}
	if kind == TableSchedule && col.name == "match_date" {
		source = "date"
		if year >= ds.StartTimeFromYear {
			source = "start_time"
		}
	}
	if mapped, ok := override[col.name]; ok {
		if strings.TrimSpace(mapped) == "" {
			return "", errors.Wrapf(ErrSchemaMismatch,
				"%s table for season %d is missing canonical column %q", kind, year, col.name)
		}
		source = mapped
	}

	switch {
	case col.cast != "":
		return fmt.Sprintf("CAST(%s AS %s) AS %s", source, col.cast, col.name), nil
	case source != col.name:
		return fmt.Sprintf("%s AS %s", source, col.name), nil
	default:
		return col.name, nil
	}
}

// RequiredColumns lists the physical source columns one season's table must
// expose for its normalized fragment to be constructible. Used by the startup
// schema check against live table metadata.
func (ds DataSource) RequiredColumns(kind TableKind, year int) []string {
	columns := scheduleColumns
	overrides := ds.ScheduleOverrides
	if kind == TableEvents {
		columns = eventColumns
		overrides = ds.EventsOverrides
	}

	out := make([]string, 0, len(columns))
	for _, col := range columns {
		if col.injected {
			continue
		}
		source := col.name
		if col.source != "" {
			source = col.source
		}
		if kind == TableSchedule && col.name == "match_date" {
			source = "date"
			if year >= ds.StartTimeFromYear {
				source = "start_time"
			}
		}
		if mapped, ok := overrides[year][col.name]; ok && strings.TrimSpace(mapped) != "" {
			source = mapped
		}
		out = append(out, source)
	}
	return out
}
