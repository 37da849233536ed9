package handlers

import (
	"context"
	"time"

	"github.com/devstackhq/boilerplate/internal/config"
	"github.com/devstackhq/boilerplate/internal/http/middlewares"
	"github.com/devstackhq/boilerplate/internal/response"
	"github.com/devstackhq/boilerplate/internal/services"
	"github.com/gin-gonic/gin"
)

type PayloadSaver interface {
	SaveRequest(ctx context.Context, userID string, req services.PayloadRequest) (response.Response, error)
}

type PayloadsHandler struct {
	payloads PayloadSaver
}

func NewPayloadsHandler(payloads PayloadSaver) *PayloadsHandler {
	return &PayloadsHandler{payloads: payloads}
}

func (h *PayloadsHandler) Post(ctx *gin.Context) {
	var req services.PayloadRequest

	if !BindJSON(ctx, &req) {
		return
	}

	userID, _ := middlewares.UserIDFromContext(ctx)

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	resp, err := h.payloads.SaveRequest(cctx, userID, req)

	if err != nil {
		RespondInternal(ctx, "Could not save payload")
		return
	}

	RespondEnvelope(ctx, resp)
}
