package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"github.com/betterbet/scout-analytics/internal/domain/event"
	"github.com/betterbet/scout-analytics/internal/domain/ranking"
	"github.com/betterbet/scout-analytics/internal/usecase"
)

type Handler struct {
	rankingService  *usecase.RankingService
	catalogService  *usecase.CatalogService
	auditService    *usecase.AuditService
	eventsService   *usecase.EventsService
	matchService    *usecase.MatchService
	schemaValidator *usecase.SchemaValidator
	logger          *slog.Logger
	validator       *validator.Validate
}

func NewHandler(
	rankingService *usecase.RankingService,
	catalogService *usecase.CatalogService,
	auditService *usecase.AuditService,
	eventsService *usecase.EventsService,
	matchService *usecase.MatchService,
	schemaValidator *usecase.SchemaValidator,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		rankingService:  rankingService,
		catalogService:  catalogService,
		auditService:    auditService,
		eventsService:   eventsService,
		matchService:    matchService,
		schemaValidator: schemaValidator,
		logger:          logger,
		validator:       validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListTeams")
	defer span.End()

	teams, err := h.catalogService.Teams(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list teams failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, teams)
}

func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPlayers")
	defer span.End()

	teams := queryList(r, "teams")
	players, err := h.catalogService.Players(ctx, teams)
	if err != nil {
		h.logger.WarnContext(ctx, "list players failed", "teams", teams, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, players)
}

func (h *Handler) GetFilterCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFilterCatalog")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, filterCatalogDTO{
		EventTypes: h.catalogService.EventTypes(),
		Outcomes:   h.catalogService.Outcomes(),
		Qualifiers: h.catalogService.Qualifiers(),
	})
}

func (h *Handler) RankDynamic(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RankDynamic")
	defer span.End()

	var req dynamicRankingRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	from, to, err := parseDateWindow(req.DateFrom, req.DateTo)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	entries, err := h.rankingService.Dynamic(ctx, ranking.Request{
		Subject:     req.Subject,
		Perspective: req.Perspective,
		Filter: ranking.FilterSelection{
			EventTypes: req.EventTypes,
			Outcomes:   req.Outcomes,
			Qualifiers: req.Qualifiers,
		},
		Teams:            req.Teams,
		Players:          req.Players,
		DateFrom:         from,
		DateTo:           to,
		UseRelatedPlayer: req.UseRelatedPlayer,
		PerGame:          req.PerGame,
		TopN:             req.TopN,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "dynamic ranking failed", "subject", req.Subject, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]rankingEntryDTO, 0, len(entries))
	for _, e := range entries {
		items = append(items, rankingEntryDTO{
			Subject:     e.Subject,
			Team:        e.Team,
			Season:      e.Season,
			TotalGames:  e.TotalGames,
			MetricTotal: e.MetricTotal,
			PerGame:     e.PerGame,
		})
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) RankConversion(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RankConversion")
	defer span.End()

	var req conversionRankingRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	from, to, err := parseDateWindow(req.DateFrom, req.DateTo)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	entries, err := h.rankingService.Conversion(ctx, ranking.ConversionRequest{
		Subject:     req.Subject,
		Perspective: req.Perspective,
		Numerator: ranking.FilterSelection{
			EventTypes: req.Numerator.EventTypes,
			Outcomes:   req.Numerator.Outcomes,
			Qualifiers: req.Numerator.Qualifiers,
		},
		Denominator: ranking.FilterSelection{
			EventTypes: req.Denominator.EventTypes,
			Outcomes:   req.Denominator.Outcomes,
			Qualifiers: req.Denominator.Qualifiers,
		},
		Teams:    req.Teams,
		Players:  req.Players,
		DateFrom: from,
		DateTo:   to,
		TopN:     req.TopN,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "conversion ranking failed", "subject", req.Subject, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]conversionEntryDTO, 0, len(entries))
	for _, e := range entries {
		items = append(items, conversionEntryDTO{
			Subject:     e.Subject,
			Season:      e.Season,
			Numerator:   e.Numerator,
			Denominator: e.Denominator,
			Ratio:       e.Ratio,
		})
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SearchEvents")
	defer span.End()

	var req eventSearchRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	from, to, err := parseDateWindow(req.DateFrom, req.DateTo)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	events, err := h.eventsService.Search(ctx, usecase.EventSearchInput{
		Teams:      req.Teams,
		MatchIDs:   req.MatchIDs,
		PlayerIDs:  req.PlayerIDs,
		EventTypes: req.EventTypes,
		Outcomes:   req.Outcomes,
		Qualifiers: req.Qualifiers,
		AllTags:    req.AllTags,
		MinuteFrom: req.MinuteFrom,
		MinuteTo:   req.MinuteTo,
		DateFrom:   from,
		DateTo:     to,
		Limit:      req.Limit,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "event search failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]eventDTO, 0, len(events))
	for _, e := range events {
		items = append(items, eventToDTO(e))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) ListRecentMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListRecentMatches")
	defer span.End()

	limit, err := queryInt64(r, "limit", 20)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	matches, err := h.matchService.Recent(ctx, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list recent matches failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]matchDTO, 0, len(matches))
	for _, m := range matches {
		items = append(items, matchDTO{
			MatchID:   m.MatchID,
			Season:    m.Season,
			Date:      m.Date.UTC().Format(time.RFC3339),
			HomeTeam:  m.HomeTeam,
			AwayTeam:  m.AwayTeam,
			HomeScore: m.HomeScore,
			AwayScore: m.AwayScore,
		})
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) ListMatchStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMatchStats")
	defer span.End()

	from, to, err := parseDateWindow(r.URL.Query().Get("date_from"), r.URL.Query().Get("date_to"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	stats, err := h.matchService.Stats(ctx, from, to)
	if err != nil {
		h.logger.WarnContext(ctx, "list match stats failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, stats)
}

func (h *Handler) AuditMatchCounts(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AuditMatchCounts")
	defer span.End()

	from, to, err := parseDateWindow(r.URL.Query().Get("date_from"), r.URL.Query().Get("date_to"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	teams := queryList(r, "teams")
	players := queryList(r, "players")

	var counts []usecase.MatchCount
	if r.URL.Query().Get("subject") == "players" || len(players) > 0 {
		counts, err = h.auditService.PlayerMatchCounts(ctx, teams, players, from, to)
	} else {
		counts, err = h.auditService.TeamMatchCounts(ctx, teams, from, to)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "audit match counts failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, counts)
}

func (h *Handler) AuditGoalReconciliation(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AuditGoalReconciliation")
	defer span.End()

	mismatches, err := h.auditService.GoalReconciliation(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "goal reconciliation failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, mismatches)
}

func (h *Handler) AuditOverview(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AuditOverview")
	defer span.End()

	overview, err := h.auditService.Overview(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "audit overview failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, overview)
}

func (h *Handler) AuditSchema(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AuditSchema")
	defer span.End()

	issues, err := h.schemaValidator.Validate(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "schema audit failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, schemaAuditDTO{
		Healthy: len(issues) == 0,
		Issues:  issues,
	})
}

func (h *Handler) decodeRequest(ctx context.Context, r *http.Request, payload any) error {
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(payload); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return h.validateRequest(ctx, payload)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func queryList(r *http.Request, key string) []string {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func queryInt64(r *http.Request, key string, fallback int64) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", usecase.ErrInvalidInput, key)
	}
	return value, nil
}

func parseDateWindow(from, to string) (*time.Time, *time.Time, error) {
	parse := func(raw, field string) (*time.Time, error) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, nil
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return &t, nil
			}
		}
		return nil, fmt.Errorf("%w: %s must be RFC3339 or YYYY-MM-DD", usecase.ErrInvalidInput, field)
	}

	fromT, err := parse(from, "date_from")
	if err != nil {
		return nil, nil, err
	}
	toT, err := parse(to, "date_to")
	if err != nil {
		return nil, nil, err
	}
	if fromT != nil && toT != nil && toT.Before(*fromT) {
		return nil, nil, fmt.Errorf("%w: date_to precedes date_from", usecase.ErrInvalidInput)
	}
	return fromT, toT, nil
}

type filterSelectionDTO struct {
	EventTypes []string `json:"event_types"`
	Outcomes   []string `json:"outcomes"`
	Qualifiers []string `json:"qualifiers"`
}

type dynamicRankingRequest struct {
	Subject          string   `json:"subject" validate:"required"`
	Perspective      string   `json:"perspective"`
	EventTypes       []string `json:"event_types"`
	Outcomes         []string `json:"outcomes"`
	Qualifiers       []string `json:"qualifiers"`
	Teams            []string `json:"teams"`
	Players          []string `json:"players"`
	DateFrom         string   `json:"date_from"`
	DateTo           string   `json:"date_to"`
	UseRelatedPlayer bool     `json:"use_related_player"`
	PerGame          bool     `json:"per_game"`
	TopN             int      `json:"top_n" validate:"gte=0,lte=500"`
}

type conversionRankingRequest struct {
	Subject     string             `json:"subject" validate:"required"`
	Perspective string             `json:"perspective"`
	Numerator   filterSelectionDTO `json:"numerator" validate:"required"`
	Denominator filterSelectionDTO `json:"denominator" validate:"required"`
	Teams       []string           `json:"teams"`
	Players     []string           `json:"players"`
	DateFrom    string             `json:"date_from"`
	DateTo      string             `json:"date_to"`
	TopN        int                `json:"top_n" validate:"gte=0,lte=500"`
}

type eventSearchRequest struct {
	Teams      []string `json:"teams"`
	MatchIDs   []int64  `json:"match_ids"`
	PlayerIDs  []int64  `json:"player_ids"`
	EventTypes []string `json:"event_types"`
	Outcomes   []string `json:"outcomes"`
	Qualifiers []string `json:"qualifiers"`
	AllTags    bool     `json:"all_tags"`
	MinuteFrom *int64   `json:"minute_from"`
	MinuteTo   *int64   `json:"minute_to"`
	DateFrom   string   `json:"date_from"`
	DateTo     string   `json:"date_to"`
	Limit      int64    `json:"limit" validate:"gte=0,lte=50000"`
}

type filterCatalogDTO struct {
	EventTypes []string `json:"event_types"`
	Outcomes   []string `json:"outcomes"`
	Qualifiers []string `json:"qualifiers"`
}

type rankingEntryDTO struct {
	Subject     string  `json:"subject"`
	Team        string  `json:"team,omitempty"`
	Season      int     `json:"season"`
	TotalGames  int64   `json:"total_games"`
	MetricTotal float64 `json:"metric_total"`
	PerGame     float64 `json:"per_game"`
}

type conversionEntryDTO struct {
	Subject     string  `json:"subject"`
	Season      int     `json:"season"`
	Numerator   int64   `json:"numerator"`
	Denominator int64   `json:"denominator"`
	Ratio       float64 `json:"ratio"`
}

type matchDTO struct {
	MatchID   int64  `json:"match_id"`
	Season    int    `json:"season"`
	Date      string `json:"date"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	HomeScore *int64 `json:"home_score"`
	AwayScore *int64 `json:"away_score"`
}

type eventDTO struct {
	MatchID         int64    `json:"match_id"`
	Season          int      `json:"season"`
	Date            string   `json:"date"`
	Team            string   `json:"team"`
	EffectiveTeam   string   `json:"effective_team"`
	Player          *string  `json:"player"`
	PlayerID        *int64   `json:"player_id"`
	Type            string   `json:"type"`
	OutcomeType     *string  `json:"outcome_type"`
	Tags            []string `json:"tags"`
	ExpandedMinute  int64    `json:"expanded_minute"`
	Period          int64    `json:"period"`
	X               float64  `json:"x"`
	Y               float64  `json:"y"`
	EndX            float64  `json:"end_x"`
	EndY            float64  `json:"end_y"`
	IsShot          bool     `json:"is_shot"`
	RelatedPlayerID *int64   `json:"related_player_id"`
}

type schemaAuditDTO struct {
	Healthy bool                  `json:"healthy"`
	Issues  []usecase.SchemaIssue `json:"issues"`
}

func eventToDTO(e event.Event) eventDTO {
	return eventDTO{
		MatchID:         e.MatchID,
		Season:          e.Season,
		Date:            e.MatchDate.UTC().Format(time.RFC3339),
		Team:            e.Team,
		EffectiveTeam:   e.EffectiveTeam,
		Player:          e.Player,
		PlayerID:        e.PlayerID,
		Type:            e.Type,
		OutcomeType:     e.OutcomeType,
		Tags:            e.Tags,
		ExpandedMinute:  e.ExpandedMinute,
		Period:          e.Period,
		X:               e.X,
		Y:               e.Y,
		EndX:            e.EndX,
		EndY:            e.EndY,
		IsShot:          e.IsShot,
		RelatedPlayerID: e.RelatedPlayerID,
	}
}
