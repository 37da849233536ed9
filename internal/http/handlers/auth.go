package handlers

import (
	"context"
	"time"

	"github.com/devstackhq/boilerplate/internal/config"
	"github.com/devstackhq/boilerplate/internal/response"
	"github.com/devstackhq/boilerplate/internal/services"
	"github.com/gin-gonic/gin"
)

type LoginService interface {
	Login(ctx context.Context, req services.LoginRequest) (response.Response, error)
}

type AuthHandler struct {
	login LoginService
}

func NewAuthHandler(login LoginService) *AuthHandler {
	return &AuthHandler{login: login}
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req services.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for the credential lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	resp, err := h.login.Login(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not log in")
		return
	}

	RespondEnvelope(ctx, resp)
}
