// Package services holds the account and login flows on top of the document
// store. Handlers translate the returned envelopes to HTTP.
package services

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/devstackhq/boilerplate/internal/docstore"
	"github.com/devstackhq/boilerplate/internal/domain/user"
	"github.com/devstackhq/boilerplate/internal/response"
	"github.com/devstackhq/boilerplate/internal/security"
)

// Keep this small interface so tests can fake the collection easily.
type accountStore interface {
	Exists(ctx context.Context, filter docstore.Filter) (docstore.Result, error)
	Insert(ctx context.Context, doc docstore.Document) (docstore.Result, error)
}

type CreateUserRequest struct {
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Dob       string `json:"dob" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

type UserService struct {
	store      accountStore
	log        *slog.Logger
	bcryptCost int
}

func NewUserService(store accountStore, log *slog.Logger, bcryptCost int) *UserService {
	return &UserService{
		store:      store,
		log:        log,
		bcryptCost: bcryptCost,
	}
}

// CreateUser signs an account up: duplicate pre-check by email, hash the
// password, persist. A failed existence check aborts the signup instead of
// proceeding as if the user were new.
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (response.Response, error) {
	dob, ok := parseDate(req.Dob)

	if !ok {
		return response.Error(http.StatusBadRequest, map[string]any{
			"message": "dob must be a valid date",
		}), nil
	}

	res, err := s.store.Exists(ctx, docstore.Filter{"email": req.Email})

	if err != nil {
		s.log.Error("UserService.CreateUser: existence check failed", "err", err)
		return response.Response{}, err
	}

	if res.Exists {
		return response.Error(http.StatusBadGateway, map[string]any{
			"message": "User with this email already exist in database",
		}), nil
	}

	hash, err := security.HashPassword(req.Password, s.bcryptCost)

	if err != nil {
		s.log.Error("UserService.CreateUser: hashing failed", "err", err)
		return response.Response{}, err
	}

	u := user.User{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		DOB:          dob,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = s.store.Insert(ctx, u.Doc())

	if err != nil {
		s.log.Error("UserService.CreateUser: insert failed", "err", err)
		return response.Response{}, err
	}

	return response.Success(http.StatusOK, map[string]any{
		"email":   req.Email,
		"message": "User successfully created",
	}), nil
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
