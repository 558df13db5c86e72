package inapp

import (
	"context"
	"testing"

	"pipeline_backend/platform/apperr"
	"pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

type recordingStore struct {
	created []CreateParams
	limit   int
	offset  int
}

func (r *recordingStore) Create(_ context.Context, p CreateParams) (Notification, error) {
	r.created = append(r.created, p)
	return Notification{ID: uuid.New(), CompanyID: p.CompanyID, UserID: p.UserID, Title: p.Title, Category: p.Category}, nil
}

func (r *recordingStore) List(_ context.Context, _, _ uuid.UUID, limit, offset int) ([]Notification, int, error) {
	r.limit, r.offset = limit, offset
	return nil, 0, nil
}

func (r *recordingStore) CountUnread(context.Context, uuid.UUID, uuid.UUID) (int, error) {
	return 0, nil
}
func (r *recordingStore) MarkRead(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) error { return nil }
func (r *recordingStore) MarkAllRead(context.Context, uuid.UUID, uuid.UUID) error         { return nil }

func TestSendCleansTitleAndDefaultsCategory(t *testing.T) {
	store := &recordingStore{}
	svc := NewService(store, logger.Discard())

	n, err := svc.Send(context.Background(), SendParams{
		CompanyID:    uuid.New(),
		UserID:       uuid.New(),
		Title:        "  Deal entered <b>Negotiation</b> ",
		ResourceType: "deal",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if n.Title != "Deal entered Negotiation" || n.Category != "info" {
		t.Fatalf("unexpected notification %+v", n)
	}
	if got := store.created[0].ResourceType; got == nil || *got != "deal" {
		t.Fatalf("expected resource type deal, got %v", got)
	}
}

func TestSendRejectsMissingRecipientOrTitle(t *testing.T) {
	svc := NewService(&recordingStore{}, logger.Discard())
	ctx := context.Background()

	if _, err := svc.Send(ctx, SendParams{CompanyID: uuid.New(), Title: "x"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for missing user, got %v", err)
	}
	if _, err := svc.Send(ctx, SendParams{CompanyID: uuid.New(), UserID: uuid.New(), Title: "<p> </p>"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for blank title, got %v", err)
	}
}

func TestListClampsPaging(t *testing.T) {
	store := &recordingStore{}
	svc := NewService(store, logger.Discard())

	_, _, _ = svc.List(context.Background(), uuid.New(), uuid.New(), 0, 1000)
	if store.limit != 100 || store.offset != 0 {
		t.Fatalf("expected limit 100 offset 0, got %d %d", store.limit, store.offset)
	}
	_, _, _ = svc.List(context.Background(), uuid.New(), uuid.New(), 3, 0)
	if store.limit != 20 || store.offset != 40 {
		t.Fatalf("expected limit 20 offset 40, got %d %d", store.limit, store.offset)
	}
}
