package services

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/devstackhq/boilerplate/internal/docstore"
	"github.com/devstackhq/boilerplate/internal/domain/user"
	"github.com/devstackhq/boilerplate/internal/response"
	"github.com/devstackhq/boilerplate/internal/security"
)

type loginStore interface {
	FindOne(ctx context.Context, filter docstore.Filter, proj docstore.Projection, opts docstore.FindOptions) (docstore.Result, error)
}

type tokenIssuer interface {
	GenerateToken(userID, email string, admin bool) (string, error)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthService struct {
	store loginStore
	jwt   tokenIssuer
	log   *slog.Logger
}

func NewAuthService(store loginStore, jwt tokenIssuer, log *slog.Logger) *AuthService {
	return &AuthService{
		store: store,
		jwt:   jwt,
		log:   log,
	}
}

// Login checks credentials and issues a session token. The two unauthorized
// paths keep their distinct messages but share the status code, and neither
// ever carries the stored hash.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (response.Response, error) {
	res, err := s.store.FindOne(ctx, docstore.Filter{"email": req.Email}, nil, docstore.FindOptions{})

	if err != nil {
		s.log.Error("AuthService.Login: lookup failed", "err", err)
		return response.Response{}, err
	}

	if res.Empty() {
		return response.Error(http.StatusUnauthorized, map[string]any{
			"message": "No Such user exist in database",
		}), nil
	}

	account := user.FromDoc(res.Doc)

	err = security.CheckPassword(account.PasswordHash, req.Password)

	if err != nil {
		return response.Error(http.StatusUnauthorized, map[string]any{
			"message": "Incorrect Password",
		}), nil
	}

	token, err := s.jwt.GenerateToken(account.ID, account.Email, account.Admin)

	if err != nil {
		s.log.Error("AuthService.Login: token issue failed", "err", err)
		return response.Response{}, err
	}

	return response.Success(http.StatusOK, map[string]any{
		"token":   token,
		"message": "User successfully logged in",
	}), nil
}
