package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.HandleFunc("GET /health", handler.Healthz)
}

func registerCatalogRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /api/v1/teams", handler.ListTeams)
	mux.HandleFunc("GET /api/v1/players", handler.ListPlayers)
	mux.HandleFunc("GET /api/v1/filters/catalog", handler.GetFilterCatalog)
}

func registerAnalyticsRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /api/v1/rankings/dynamic", handler.RankDynamic)
	mux.HandleFunc("POST /api/v1/rankings/conversion", handler.RankConversion)
	mux.HandleFunc("POST /api/v1/events/search", handler.SearchEvents)
	mux.HandleFunc("GET /api/v1/matches/recent", handler.ListRecentMatches)
	mux.HandleFunc("GET /api/v1/matches/stats", handler.ListMatchStats)
}

func registerAuditRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /api/v1/audit/match-counts", handler.AuditMatchCounts)
	mux.HandleFunc("GET /api/v1/audit/goal-reconciliation", handler.AuditGoalReconciliation)
	mux.HandleFunc("GET /api/v1/audit/overview", handler.AuditOverview)
	mux.HandleFunc("GET /api/v1/audit/schema", handler.AuditSchema)
}
