package handlers

import (
	"context"
	"time"

	"github.com/devstackhq/boilerplate/internal/config"
	"github.com/devstackhq/boilerplate/internal/response"
	"github.com/devstackhq/boilerplate/internal/services"
	"github.com/gin-gonic/gin"
)

type UserCreator interface {
	CreateUser(ctx context.Context, req services.CreateUserRequest) (response.Response, error)
}

type UsersHandler struct {
	users UserCreator
}

func NewUsersHandler(users UserCreator) *UsersHandler {
	return &UsersHandler{users: users}
}

func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	var req services.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	resp, err := h.users.CreateUser(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	RespondEnvelope(ctx, resp)
}
