package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/betterbet/scout-analytics/internal/domain/event"
	"github.com/betterbet/scout-analytics/internal/domain/ranking"
	"github.com/betterbet/scout-analytics/internal/warehouse"
)

// EventsService backs the pitch-map browsing view: fetch reconciled events,
// parse the qualifier blobs, refine tag matching and normalize coordinates.
type EventsService struct {
	ds           warehouse.DataSource
	exec         warehouse.Executor
	defaultLimit int64
}

func NewEventsService(ds warehouse.DataSource, exec warehouse.Executor, defaultLimit int64) *EventsService {
	if defaultLimit <= 0 {
		defaultLimit = 5000
	}
	return &EventsService{ds: ds, exec: exec, defaultLimit: defaultLimit}
}

type EventSearchInput struct {
	Teams      []string
	MatchIDs   []int64
	PlayerIDs  []int64
	EventTypes []string
	Outcomes   []string
	Qualifiers []string
	// AllTags switches qualifier matching from any-of to contains-ALL. The
	// warehouse-side predicate stays any-of either way; the ALL refinement
	// happens here after parsing.
	AllTags    bool
	MinuteFrom *int64
	MinuteTo   *int64
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int64
}

func (s *EventsService) Search(ctx context.Context, input EventSearchInput) ([]event.Event, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.EventsService.Search")
	defer span.End()

	limit := input.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}

	qualifiers := ranking.Normalize(input.Qualifiers)
	spec := warehouse.EventSearchSpec{
		Teams:      ranking.Normalize(input.Teams),
		MatchIDs:   input.MatchIDs,
		PlayerIDs:  input.PlayerIDs,
		MinuteFrom: input.MinuteFrom,
		MinuteTo:   input.MinuteTo,
		Filter: warehouse.EventFilter{
			EventTypes: ranking.Normalize(input.EventTypes),
			Outcomes:   ranking.CanonicalOutcomes(input.Outcomes),
			Qualifiers: qualifiers,
		},
		Dates: warehouse.DateRange{From: input.DateFrom, To: input.DateTo},
		Limit: limit,
	}

	query, err := s.ds.EventSearchQuery(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	rows, err := s.exec.Run(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("run event search query: %w", err)
	}

	out := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		item := mapEventRow(row)
		if input.AllTags && len(qualifiers) > 1 && !event.HasAllTags(item.Tags, qualifiers) {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func mapEventRow(row warehouse.Row) event.Event {
	serialized := rowString(row, "qualifiers")
	return event.Event{
		MatchID:         rowInt64(row, "match_id"),
		Season:          int(rowInt64(row, "season")),
		MatchDate:       rowTime(row, "match_date"),
		Team:            rowString(row, "team"),
		EffectiveTeam:   rowString(row, "effective_team"),
		Player:          rowStringPtr(row, "player"),
		PlayerID:        rowInt64Ptr(row, "player_id"),
		Type:            rowString(row, "type"),
		OutcomeType:     rowStringPtr(row, "outcome_type"),
		Qualifiers:      serialized,
		Tags:            event.ParseQualifiers(serialized),
		ExpandedMinute:  rowInt64(row, "expanded_minute"),
		Period:          rowInt64(row, "period"),
		X:               event.RescaleCoordinate(rowFloat64(row, "x")),
		Y:               event.RescaleCoordinate(rowFloat64(row, "y")),
		EndX:            event.RescaleCoordinate(rowFloat64(row, "end_x")),
		EndY:            event.RescaleCoordinate(rowFloat64(row, "end_y")),
		IsShot:          rowBool(row, "is_shot"),
		RelatedPlayerID: rowInt64Ptr(row, "related_player_id"),
	}
}
