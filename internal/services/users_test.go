package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/devstackhq/boilerplate/internal/docstore"
	"github.com/devstackhq/boilerplate/internal/security"
	"github.com/devstackhq/boilerplate/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Fake collection implementing the store interfaces the services consume.

type fakeUserStore struct {
	existsFn  func(ctx context.Context, filter docstore.Filter) (docstore.Result, error)
	insertFn  func(ctx context.Context, doc docstore.Document) (docstore.Result, error)
	findOneFn func(ctx context.Context, filter docstore.Filter, proj docstore.Projection, opts docstore.FindOptions) (docstore.Result, error)
}

func (f *fakeUserStore) Exists(ctx context.Context, filter docstore.Filter) (docstore.Result, error) {
	if f.existsFn != nil {
		return f.existsFn(ctx, filter)
	}
	return docstore.Result{}, nil
}

func (f *fakeUserStore) Insert(ctx context.Context, doc docstore.Document) (docstore.Result, error) {
	if f.insertFn != nil {
		return f.insertFn(ctx, doc)
	}
	return docstore.Result{Doc: doc}, nil
}

func (f *fakeUserStore) FindOne(ctx context.Context, filter docstore.Filter, proj docstore.Projection, opts docstore.FindOptions) (docstore.Result, error) {
	if f.findOneFn != nil {
		return f.findOneFn(ctx, filter, proj, opts)
	}
	return docstore.Result{Outcome: docstore.OutcomeEmpty}, nil
}

func validSignup() services.CreateUserRequest {
	return services.CreateUserRequest{
		Email:     "a@x.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Dob:       "1990-05-10",
		Password:  "secret",
	}
}

func TestCreateUserSuccess(t *testing.T) {
	var stored docstore.Document

	store := &fakeUserStore{
		insertFn: func(ctx context.Context, doc docstore.Document) (docstore.Result, error) {
			stored = doc
			doc["id"] = "u1"
			return docstore.Result{Doc: doc}, nil
		},
	}

	svc := services.NewUserService(store, testLogger(), 4)

	resp, err := svc.CreateUser(context.Background(), validSignup())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.HasError {
		t.Fatalf("unexpected error response: %+v", resp)
	}

	if resp.Payload["email"] != "a@x.com" || resp.Payload["message"] != "User successfully created" {
		t.Fatalf("unexpected payload: %v", resp.Payload)
	}

	hash, _ := stored["password"].(string)

	if hash == "" || hash == "secret" {
		t.Fatal("stored password must be a hash, not the plaintext")
	}

	if err := security.CheckPassword(hash, "secret"); err != nil {
		t.Fatalf("stored hash does not verify against the plaintext: %v", err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	inserted := false

	store := &fakeUserStore{
		existsFn: func(ctx context.Context, filter docstore.Filter) (docstore.Result, error) {
			return docstore.Result{Exists: true}, nil
		},
		insertFn: func(ctx context.Context, doc docstore.Document) (docstore.Result, error) {
			inserted = true
			return docstore.Result{Doc: doc}, nil
		},
	}

	svc := services.NewUserService(store, testLogger(), 4)

	resp, err := svc.CreateUser(context.Background(), validSignup())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.HasError || resp.StatusCode != "502" {
		t.Fatalf("want hasError with statusCode 502, got %+v", resp)
	}

	msg, _ := resp.Payload["message"].(string)

	if !strings.Contains(msg, "already exist") {
		t.Fatalf("unexpected conflict message: %q", msg)
	}

	if inserted {
		t.Fatal("no record may be created for a duplicate email")
	}
}

func TestCreateUserExistenceCheckFailureAborts(t *testing.T) {
	inserted := false

	store := &fakeUserStore{
		existsFn: func(ctx context.Context, filter docstore.Filter) (docstore.Result, error) {
			return docstore.Result{}, errors.New("store down")
		},
		insertFn: func(ctx context.Context, doc docstore.Document) (docstore.Result, error) {
			inserted = true
			return docstore.Result{Doc: doc}, nil
		},
	}

	svc := services.NewUserService(store, testLogger(), 4)

	_, err := svc.CreateUser(context.Background(), validSignup())

	if err == nil {
		t.Fatal("a failed existence check must abort the signup")
	}

	if inserted {
		t.Fatal("no insert may happen when the existence check fails")
	}
}

func TestCreateUserBadDate(t *testing.T) {
	svc := services.NewUserService(&fakeUserStore{}, testLogger(), 4)

	req := validSignup()
	req.Dob = "not-a-date"

	resp, err := svc.CreateUser(context.Background(), req)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.HasError || resp.StatusCode != "400" {
		t.Fatalf("want 400 envelope, got %+v", resp)
	}
}

func TestCreateUserInsertFailure(t *testing.T) {
	store := &fakeUserStore{
		insertFn: func(ctx context.Context, doc docstore.Document) (docstore.Result, error) {
			return docstore.Result{}, errors.New("insert failed")
		},
	}

	svc := services.NewUserService(store, testLogger(), 4)

	_, err := svc.CreateUser(context.Background(), validSignup())

	if err == nil {
		t.Fatal("insert failure must surface as an internal error")
	}
}
