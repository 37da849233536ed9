package handlers

import (
	"context"
	"time"

	"github.com/devstackhq/boilerplate/internal/config"
	"github.com/devstackhq/boilerplate/internal/response"
	"github.com/gin-gonic/gin"
)

type StatsProvider interface {
	Overview(ctx context.Context) (response.Response, error)
}

type StatsHandler struct {
	stats StatsProvider
}

func NewStatsHandler(stats StatsProvider) *StatsHandler {
	return &StatsHandler{stats: stats}
}

func (h *StatsHandler) Overview(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	resp, err := h.stats.Overview(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not build stats")
		return
	}

	RespondEnvelope(ctx, resp)
}
