package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/betterbet/scout-analytics/internal/domain/event"
	"github.com/betterbet/scout-analytics/internal/domain/ranking"
	"github.com/betterbet/scout-analytics/internal/platform/cache"
	"github.com/betterbet/scout-analytics/internal/warehouse"
)

// CatalogService serves the selector catalogs backing the filter UI. Team
// and player lists come from the warehouse and are cached; the rest of the
// vocabulary is static.
type CatalogService struct {
	ds    warehouse.DataSource
	exec  warehouse.Executor
	store *cache.Store
}

func NewCatalogService(ds warehouse.DataSource, exec warehouse.Executor, store *cache.Store) *CatalogService {
	return &CatalogService{ds: ds, exec: exec, store: store}
}

func (s *CatalogService) Teams(ctx context.Context) ([]string, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CatalogService.Teams")
	defer span.End()

	value, err := s.getOrLoad(ctx, "catalog:teams", func(ctx context.Context) (any, error) {
		query, err := s.ds.AllTeamsQuery()
		if err != nil {
			return nil, fmt.Errorf("build teams query: %w", err)
		}
		rows, err := s.exec.Run(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("run teams query: %w", err)
		}
		return collectColumn(rows, "team"), nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]string), nil
}

func (s *CatalogService) Players(ctx context.Context, teams []string) ([]string, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CatalogService.Players")
	defer span.End()

	teams = ranking.Normalize(teams)
	key := "catalog:players"
	if len(teams) > 0 {
		key += ":" + strings.Join(teams, "|")
	}

	value, err := s.getOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		query, err := s.ds.AllPlayersQuery(teams)
		if err != nil {
			return nil, fmt.Errorf("build players query: %w", err)
		}
		rows, err := s.exec.Run(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("run players query: %w", err)
		}
		return collectColumn(rows, "player"), nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]string), nil
}

func (s *CatalogService) EventTypes() []string {
	return event.KnownTypes()
}

func (s *CatalogService) Qualifiers() []string {
	return event.KnownQualifiers()
}

func (s *CatalogService) Outcomes() []string {
	return ranking.OutcomeLabels()
}

func collectColumn(rows []warehouse.Row, column string) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if v := rowString(row, column); v != "" {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// getOrLoad consults the cache when one is configured and falls back to a
// direct load when caching is disabled.
func (s *CatalogService) getOrLoad(ctx context.Context, key string, loader func(context.Context) (any, error)) (any, error) {
	if s.store == nil {
		return loader(ctx)
	}
	return s.store.GetOrLoad(ctx, key, loader)
}
