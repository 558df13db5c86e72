package inapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pipeline_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate      = "notification.inapp.repository.create"
	opList        = "notification.inapp.repository.list"
	opCountUnread = "notification.inapp.repository.count_unread"
	opMarkRead    = "notification.inapp.repository.mark_read"
	opMarkAllRead = "notification.inapp.repository.mark_all_read"

	errRepoNotConfigured = "in-app notification repository not configured"
	errScopeRequired     = "companyId and userId are required"
)

type Notification struct {
	ID           uuid.UUID  `json:"id"`
	CompanyID    uuid.UUID  `json:"companyId"`
	UserID       uuid.UUID  `json:"userId"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	ResourceID   *uuid.UUID `json:"resourceId,omitempty"`
	ResourceType *string    `json:"resourceType,omitempty"`
	Category     string     `json:"category"`
	IsRead       bool       `json:"isRead"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type CreateParams struct {
	CompanyID    uuid.UUID
	UserID       uuid.UUID
	Title        string
	Content      string
	ResourceID   *uuid.UUID
	ResourceType *string
	Category     string
	SourceID     *uuid.UUID
}

// Store is the persistence contract of the in-app inbox.
type Store interface {
	Create(ctx context.Context, p CreateParams) (Notification, error)
	List(ctx context.Context, companyID, userID uuid.UUID, limit, offset int) ([]Notification, int, error)
	CountUnread(ctx context.Context, companyID, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, companyID, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, companyID, userID uuid.UUID) error
}

type Repository struct {
	pool *pgxpool.Pool
}

var _ Store = (*Repository)(nil)

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const notificationColumns = `id, company_id, user_id, title, content, resource_id, resource_type, category, is_read, created_at`

func (r *Repository) Create(ctx context.Context, p CreateParams) (Notification, error) {
	if r == nil || r.pool == nil {
		return Notification{}, apperr.Internal(errRepoNotConfigured).WithOp(opCreate)
	}
	if p.CompanyID == uuid.Nil || p.UserID == uuid.Nil {
		return Notification{}, apperr.Validation(errScopeRequired).WithOp(opCreate)
	}
	if p.Title == "" || p.Content == "" {
		return Notification{}, apperr.Validation("title and content are required").WithOp(opCreate)
	}

	category := p.Category
	if category == "" {
		category = "info"
	}

	var n Notification
	err := scanNotification(r.pool.QueryRow(ctx, `
		INSERT INTO pipeline_in_app_notifications
		(company_id, user_id, title, content, resource_id, resource_type, category, source_outbox_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (source_outbox_id, user_id) WHERE source_outbox_id IS NOT NULL DO NOTHING
		RETURNING `+notificationColumns,
		p.CompanyID, p.UserID, p.Title, p.Content, p.ResourceID, p.ResourceType, category, p.SourceID), &n)
	if errors.Is(err, pgx.ErrNoRows) && p.SourceID != nil {
		// Already delivered for this outbox record.
		err = scanNotification(r.pool.QueryRow(ctx, `
			SELECT `+notificationColumns+`
			FROM pipeline_in_app_notifications
			WHERE source_outbox_id = $1 AND user_id = $2`,
			*p.SourceID, p.UserID), &n)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Notification{}, apperr.Validation("invalid companyId or userId").WithOp(opCreate)
		}
		return Notification{}, apperr.Internal(fmt.Sprintf("create in-app notification failed: %v", err)).WithOp(opCreate)
	}

	return n, nil
}

func scanNotification(row pgx.Row, n *Notification) error {
	return row.Scan(&n.ID, &n.CompanyID, &n.UserID, &n.Title, &n.Content, &n.ResourceID, &n.ResourceType, &n.Category, &n.IsRead, &n.CreatedAt)
}

func (r *Repository) List(ctx context.Context, companyID, userID uuid.UUID, limit, offset int) ([]Notification, int, error) {
	if r == nil || r.pool == nil {
		return nil, 0, apperr.Internal(errRepoNotConfigured).WithOp(opList)
	}
	if companyID == uuid.Nil || userID == uuid.Nil {
		return nil, 0, apperr.Validation(errScopeRequired).WithOp(opList)
	}

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM pipeline_in_app_notifications WHERE company_id = $1 AND user_id = $2`,
		companyID, userID).Scan(&total)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("count notifications failed: %v", err)).WithOp(opList)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM pipeline_in_app_notifications
		WHERE company_id = $1 AND user_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, companyID, userID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("list notifications query failed: %v", err)).WithOp(opList)
	}
	defer rows.Close()

	items := make([]Notification, 0, limit)
	for rows.Next() {
		var n Notification
		if scanErr := scanNotification(rows, &n); scanErr != nil {
			return nil, 0, apperr.Internal(fmt.Sprintf("scan notifications failed: %v", scanErr)).WithOp(opList)
		}
		items = append(items, n)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("iterate notifications failed: %v", rowsErr)).WithOp(opList)
	}

	return items, total, nil
}

func (r *Repository) CountUnread(ctx context.Context, companyID, userID uuid.UUID) (int, error) {
	if r == nil || r.pool == nil {
		return 0, apperr.Internal(errRepoNotConfigured).WithOp(opCountUnread)
	}
	if companyID == uuid.Nil || userID == uuid.Nil {
		return 0, apperr.Validation(errScopeRequired).WithOp(opCountUnread)
	}

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM pipeline_in_app_notifications
		WHERE company_id = $1 AND user_id = $2 AND is_read = FALSE
	`, companyID, userID).Scan(&count)
	if err != nil {
		return 0, apperr.Internal(fmt.Sprintf("count unread notifications failed: %v", err)).WithOp(opCountUnread)
	}

	return count, nil
}

func (r *Repository) MarkRead(ctx context.Context, companyID, userID, notificationID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkRead)
	}
	if companyID == uuid.Nil || userID == uuid.Nil || notificationID == uuid.Nil {
		return apperr.Validation("companyId, userId and notificationId are required").WithOp(opMarkRead)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE pipeline_in_app_notifications
		SET is_read = TRUE
		WHERE id = $1 AND company_id = $2 AND user_id = $3
	`, notificationID, companyID, userID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark notification read failed: %v", err)).WithOp(opMarkRead)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification not found").WithOp(opMarkRead)
	}

	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, companyID, userID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkAllRead)
	}
	if companyID == uuid.Nil || userID == uuid.Nil {
		return apperr.Validation(errScopeRequired).WithOp(opMarkAllRead)
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE pipeline_in_app_notifications
		SET is_read = TRUE
		WHERE company_id = $1 AND user_id = $2 AND is_read = FALSE
	`, companyID, userID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark all notifications read failed: %v", err)).WithOp(opMarkAllRead)
	}

	return nil
}
