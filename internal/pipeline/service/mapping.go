package service

import (
	"time"

	"pipeline_backend/internal/events"
	"pipeline_backend/internal/pipeline/domain"
	"pipeline_backend/internal/pipeline/transport"
	"pipeline_backend/platform/sanitize"

	"github.com/google/uuid"
)

func toResponse(st domain.Stage) transport.StageResponse {
	return transport.StageResponse{
		ID:              st.ID,
		CompanyID:       st.CompanyID,
		Name:            st.Name,
		Description:     st.Description,
		Order:           st.Order,
		Category:        string(st.Category),
		Probability:     st.Probability,
		Color:           st.Color,
		IsActive:        st.IsActive,
		IsDefault:       st.IsDefault,
		AutoAdvance:     st.AutoAdvance,
		AutoAdvanceDays: st.AutoAdvanceDays,
		NotifyOnEnter:   st.NotifyOnEnter,
		NotifyOnExit:    st.NotifyOnExit,
		NotifyUsers:     orEmpty(st.NotifyUsers),
		RequiredFields:  orEmpty(st.RequiredFields),
		AllowedStages:   orEmpty(st.AllowedStages),
		DealCount:       st.DealCount,
		TotalValue:      st.TotalValue,
		CreatedBy:       st.CreatedBy,
		CreatedByName:   st.CreatedByName,
		UpdatedBy:       st.UpdatedBy,
		UpdatedByName:   st.UpdatedByName,
		CreatedAt:       st.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       st.UpdatedAt.Format(time.RFC3339),
	}
}

func toListResponse(stages []domain.Stage) transport.StageListResponse {
	items := make([]transport.StageResponse, len(stages))
	for i, st := range stages {
		items[i] = toResponse(st)
	}
	return transport.StageListResponse{Items: items, Total: len(items)}
}

func toDraft(req transport.CreateStageRequest) domain.Draft {
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	return domain.Draft{
		Name:            sanitize.Text(req.Name),
		Description:     sanitize.ParagraphPtr(req.Description),
		Category:        domain.Category(req.Category),
		Probability:     req.Probability,
		Color:           req.Color,
		IsActive:        isActive,
		AutoAdvance:     req.AutoAdvance,
		AutoAdvanceDays: req.AutoAdvanceDays,
		NotifyOnEnter:   req.NotifyOnEnter,
		NotifyOnExit:    req.NotifyOnExit,
		NotifyUsers:     req.NotifyUsers,
		RequiredFields:  req.RequiredFields,
		AllowedStages:   sanitizeNames(req.AllowedStages),
		Position:        req.Position,
	}
}

func toPatch(req transport.UpdateStageRequest) domain.Patch {
	p := domain.Patch{
		Order:           req.Order,
		Probability:     req.Probability,
		Color:           req.Color,
		IsActive:        req.IsActive,
		AutoAdvance:     req.AutoAdvance,
		AutoAdvanceDays: req.AutoAdvanceDays,
		NotifyOnEnter:   req.NotifyOnEnter,
		NotifyOnExit:    req.NotifyOnExit,
		NotifyUsers:     req.NotifyUsers,
		RequiredFields:  req.RequiredFields,
	}
	if req.Name != nil {
		name := sanitize.Text(*req.Name)
		p.Name = &name
	}
	if req.Description != nil {
		desc := sanitize.Paragraph(*req.Description)
		p.Description = &desc
	}
	if req.Category != nil {
		c := domain.Category(*req.Category)
		p.Category = &c
	}
	if req.AllowedStages != nil {
		names := sanitizeNames(*req.AllowedStages)
		p.AllowedStages = &names
	}
	return p
}

func toAdvanceResponse(e domain.AdvanceEvent) transport.AdvanceEventResponse {
	return transport.AdvanceEventResponse{
		DealID:         e.DealID,
		CompanyID:      e.CompanyID,
		FromStageID:    e.FromStageID,
		FromStageName:  e.FromStageName,
		EnteredStageAt: e.EnteredStageAt,
		EligibleAt:     e.EligibleAt,
	}
}

func toStageNotification(st domain.Stage) events.StageNotification {
	return events.StageNotification{
		StageID:       st.ID,
		Name:          st.Name,
		NotifyOnEnter: st.NotifyOnEnter,
		NotifyOnExit:  st.NotifyOnExit,
		NotifyUsers:   append([]uuid.UUID(nil), st.NotifyUsers...),
	}
}

func sanitizeNames(names []string) []string {
	if names == nil {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = sanitize.Text(n)
	}
	return out
}

func orEmpty[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
