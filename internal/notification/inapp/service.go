package inapp

import (
	"context"

	"pipeline_backend/platform/apperr"
	"pipeline_backend/platform/logger"
	"pipeline_backend/platform/sanitize"

	"github.com/google/uuid"
)

type Service struct {
	repo Store
	log  *logger.Logger
}

func NewService(repo Store, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

type SendParams struct {
	CompanyID    uuid.UUID
	UserID       uuid.UUID
	Title        string
	Content      string
	ResourceID   *uuid.UUID
	ResourceType string
	Category     string // "info", "success", "warning", "error"
	// SourceID is the outbox record that produced the notification. A second
	// Send with the same SourceID and UserID returns the existing row.
	SourceID *uuid.UUID
}

// Send persists one notification in the recipient's inbox.
func (s *Service) Send(ctx context.Context, p SendParams) (Notification, error) {
	if s == nil || s.repo == nil {
		return Notification{}, apperr.Internal("in-app notification service not configured")
	}

	if p.CompanyID == uuid.Nil || p.UserID == uuid.Nil {
		return Notification{}, apperr.Validation("notification recipient is required")
	}
	p.Title = sanitize.Text(p.Title)
	if p.Title == "" {
		return Notification{}, apperr.Validation("notification title is required")
	}
	p.Content = sanitize.Paragraph(p.Content)
	if p.Category == "" {
		p.Category = "info"
	}

	var resourceType *string
	if p.ResourceType != "" {
		resourceType = &p.ResourceType
	}

	notif, err := s.repo.Create(ctx, CreateParams{
		CompanyID:    p.CompanyID,
		UserID:       p.UserID,
		Title:        p.Title,
		Content:      p.Content,
		ResourceID:   p.ResourceID,
		ResourceType: resourceType,
		Category:     p.Category,
		SourceID:     p.SourceID,
	})
	if err != nil {
		if s.log != nil {
			s.log.Error("failed to persist in-app notification", "error", err, "userId", p.UserID)
		}
		return Notification{}, err
	}

	return notif, nil
}

func (s *Service) List(ctx context.Context, companyID, userID uuid.UUID, page, pageSize int) ([]Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	offset := (page - 1) * pageSize
	return s.repo.List(ctx, companyID, userID, pageSize, offset)
}

func (s *Service) CountUnread(ctx context.Context, companyID, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, companyID, userID)
}

func (s *Service) MarkRead(ctx context.Context, companyID, userID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, companyID, userID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, companyID, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, companyID, userID)
}
