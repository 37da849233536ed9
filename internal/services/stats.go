package services

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/devstackhq/boilerplate/internal/cache"
	"github.com/devstackhq/boilerplate/internal/docstore"
	"github.com/devstackhq/boilerplate/internal/response"
)

type grouper interface {
	AggregateGroup(ctx context.Context, filter docstore.Filter, grouping docstore.Grouping, proj docstore.Projection) (docstore.Result, error)
}

type joiner interface {
	AggregateJoin(ctx context.Context, spec docstore.JoinSpec) (docstore.Result, error)
}

// StatsService builds the admin overview from the two aggregation pipelines.
// Results are cached for a short TTL since both hit the store.
type StatsService struct {
	users    grouper
	payloads joiner
	cache    *cache.Cache
	log      *slog.Logger
}

func NewStatsService(users grouper, payloads joiner, c *cache.Cache, log *slog.Logger) *StatsService {
	return &StatsService{
		users:    users,
		payloads: payloads,
		cache:    c,
		log:      log,
	}
}

const statsCacheKey = "admin.stats.overview"

func (s *StatsService) Overview(ctx context.Context) (response.Response, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(statsCacheKey); ok {
			if resp, ok := cached.(response.Response); ok {
				return resp, nil
			}
		}
	}

	grouped, err := s.users.AggregateGroup(ctx, nil, docstore.Grouping{
		Key: "admin",
		Accums: []docstore.Accum{
			{As: "total", Op: "count"},
		},
	}, nil)

	if err != nil {
		s.log.Error("StatsService.Overview: user grouping failed", "err", err)
		return response.Response{}, err
	}

	// payloads joined to their submitting users; payloads whose author is
	// gone still show up (left outer join)
	joined, err := s.payloads.AggregateJoin(ctx, docstore.JoinSpec{
		From:         "users",
		LocalField:   "submittedBy",
		ForeignField: "id",
		As:           "author",
		Projection:   docstore.Projection{"id", "payloadName", "payloadDate", "submittedBy", "author"},
	})

	if err != nil {
		s.log.Error("StatsService.Overview: payload join failed", "err", err)
		return response.Response{}, err
	}

	// the joined author document is a full user record; drop the hash
	for _, d := range joined.Docs {
		if author, ok := d["author"].(docstore.Document); ok {
			delete(author, "password")
		}
	}

	resp := response.Success(http.StatusOK, map[string]any{
		"usersByAdminFlag": grouped.Docs,
		"submissions":      joined.Docs,
	})

	if s.cache != nil {
		s.cache.Set(statsCacheKey, resp)
	}

	return resp, nil
}
