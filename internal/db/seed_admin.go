package db

import (
	"context"
	"time"

	"github.com/devstackhq/boilerplate/internal/config"
	"github.com/devstackhq/boilerplate/internal/docstore"
	"github.com/devstackhq/boilerplate/internal/domain/user"
	"github.com/devstackhq/boilerplate/internal/security"
)

// EnsureAdminUser seeds the configured admin account through the document
// store on startup. No-op when the env does not configure one or the account
// already exists.
func EnsureAdminUser(ctx context.Context, store *docstore.Store, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	users := store.Collection(user.Collection)

	res, err := users.Exists(ctx, docstore.Filter{"email": cfg.AdminEmail})

	if err != nil {
		return err
	}

	if res.Exists {
		return nil
	}

	hash, err := security.HashPassword(cfg.AdminPassword, cfg.BcryptCost)

	if err != nil {
		return err
	}

	u := user.User{
		Email:        cfg.AdminEmail,
		FirstName:    cfg.AdminFirstName,
		LastName:     cfg.AdminLastName,
		DOB:          time.Now().UTC(),
		PasswordHash: hash,
		Admin:        true,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = users.Insert(ctx, u.Doc())

	return err
}
