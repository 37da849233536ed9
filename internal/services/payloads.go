package services

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/devstackhq/boilerplate/internal/docstore"
	"github.com/devstackhq/boilerplate/internal/response"
)

const PayloadsCollection = "payloads"

type PayloadRequest struct {
	PayloadName string `json:"payloadName" binding:"omitempty"`
	PayloadDate string `json:"payloadDate" binding:"omitempty,datetime=2006-01-02"`
}

type payloadStore interface {
	Insert(ctx context.Context, doc docstore.Document) (docstore.Result, error)
}

type PayloadService struct {
	store payloadStore
	log   *slog.Logger
}

func NewPayloadService(store payloadStore, log *slog.Logger) *PayloadService {
	return &PayloadService{store: store, log: log}
}

// SaveRequest persists an authenticated caller's payload, stamped with the
// submitting user id.
func (s *PayloadService) SaveRequest(ctx context.Context, userID string, req PayloadRequest) (response.Response, error) {
	doc := docstore.Document{
		"payloadName": req.PayloadName,
		"payloadDate": req.PayloadDate,
		"submittedBy": userID,
	}

	res, err := s.store.Insert(ctx, doc)

	if err != nil {
		s.log.Error("PayloadService.SaveRequest: insert failed", "err", err)
		return response.Response{}, err
	}

	return response.Success(http.StatusCreated, map[string]any{
		"id":      res.Doc["id"],
		"message": "Payload successfully saved",
	}), nil
}
