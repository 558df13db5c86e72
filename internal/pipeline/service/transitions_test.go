package service

import (
	"context"
	"testing"

	"pipeline_backend/internal/events"
	"pipeline_backend/internal/pipeline/domain"
	"pipeline_backend/internal/pipeline/transport"

	"github.com/google/uuid"
)

func numberField(v float64) transport.FieldInput {
	return transport.FieldInput{Type: "number", Value: v}
}

// restrictQualification allows Qualification to move only to Negotiation and
// makes Closed Lost require a value.
func restrictQualification(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	allowed := []string{"Negotiation"}
	if _, err := f.svc.Update(ctx, f.company, f.actor, stageID(t, f, "Qualification"), transport.UpdateStageRequest{AllowedStages: &allowed}); err != nil {
		t.Fatalf("restrict qualification: %v", err)
	}
	required := []string{"value"}
	if _, err := f.svc.Update(ctx, f.company, f.actor, stageID(t, f, "Closed Lost"), transport.UpdateStageRequest{RequiredFields: &required}); err != nil {
		t.Fatalf("require value: %v", err)
	}
}

func place(f *fixture, dealID, stage uuid.UUID) {
	f.deals.placements[dealID] = domain.DealPlacement{CompanyID: f.company, DealID: dealID, StageID: stage, EnteredStageAt: f.svc.now()}
}

func TestTransitionRequiredFieldsBeforeAllowedStages(t *testing.T) {
	f := newFixture()
	seed(t, f)
	restrictQualification(t, f)
	deal := uuid.New()
	place(f, deal, stageID(t, f, "Qualification"))

	_, err := f.svc.TransitionDeal(context.Background(), f.company, f.actor, transport.TransitionRequest{
		DealID:    deal,
		ToStageID: stageID(t, f, "Closed Lost"),
	})
	requireCode(t, err, domain.CodeMissingRequiredFields)
}

func TestTransitionDisallowedAndAllowed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seed(t, f)
	restrictQualification(t, f)
	deal := uuid.New()
	qualification := stageID(t, f, "Qualification")
	place(f, deal, qualification)

	_, err := f.svc.TransitionDeal(ctx, f.company, f.actor, transport.TransitionRequest{
		DealID:    deal,
		ToStageID: stageID(t, f, "Closed Lost"),
		Fields:    map[string]transport.FieldInput{"value": numberField(900)},
	})
	requireCode(t, err, domain.CodeDisallowedTransition)

	negotiation := stageID(t, f, "Negotiation")
	resp, err := f.svc.TransitionDeal(ctx, f.company, f.actor, transport.TransitionRequest{
		DealID:    deal,
		ToStageID: negotiation,
		Fields:    map[string]transport.FieldInput{"value": numberField(900)},
	})
	if err != nil {
		t.Fatalf("transition to Negotiation: %v", err)
	}
	if resp.FromStageID == nil || *resp.FromStageID != qualification || resp.ToStageID != negotiation {
		t.Fatalf("unexpected response: %+v", resp)
	}

	p := f.deals.placements[deal]
	if p.StageID != negotiation || p.DealValue != 900 || !p.EnteredStageAt.Equal(f.svc.now()) {
		t.Fatalf("unexpected placement: %+v", p)
	}

	changed := f.bus.named(events.DealStageChanged{}.EventName())
	if len(changed) != 1 {
		t.Fatalf("expected one DealStageChanged, got %d", len(changed))
	}
	e := changed[0].(events.DealStageChanged)
	if e.From == nil || e.From.StageID != qualification || e.To.StageID != negotiation {
		t.Fatalf("unexpected event: %+v", e)
	}
	if !e.OccurredAt().Equal(f.svc.now()) {
		t.Fatalf("expected event stamped by the service clock, got %v", e.OccurredAt())
	}
}

func TestTransitionFirstPlacement(t *testing.T) {
	f := newFixture()
	seed(t, f)
	restrictQualification(t, f)

	resp, err := f.svc.TransitionDeal(context.Background(), f.company, f.actor, transport.TransitionRequest{
		DealID:    uuid.New(),
		ToStageID: stageID(t, f, "Closed Won"),
	})
	if err != nil {
		t.Fatalf("first placement: %v", err)
	}
	if resp.FromStageID != nil {
		t.Fatalf("expected no source stage, got %v", *resp.FromStageID)
	}
}

func TestTransitionUsesCallerSourceWithoutPlacement(t *testing.T) {
	f := newFixture()
	seed(t, f)
	restrictQualification(t, f)
	from := stageID(t, f, "Qualification")

	_, err := f.svc.TransitionDeal(context.Background(), f.company, f.actor, transport.TransitionRequest{
		DealID:      uuid.New(),
		FromStageID: &from,
		ToStageID:   stageID(t, f, "Closed Won"),
	})
	requireCode(t, err, domain.CodeDisallowedTransition)
}

func TestTransitionRejectsBadFieldsAndUnknownStage(t *testing.T) {
	f := newFixture()
	seed(t, f)

	_, err := f.svc.TransitionDeal(context.Background(), f.company, f.actor, transport.TransitionRequest{
		DealID:    uuid.New(),
		ToStageID: stageID(t, f, "Negotiation"),
		Fields:    map[string]transport.FieldInput{"value": {Type: "number", Value: "lots"}},
	})
	requireCode(t, err, domain.CodeValidationFailed)

	_, err = f.svc.TransitionDeal(context.Background(), f.company, f.actor, transport.TransitionRequest{
		DealID:    uuid.New(),
		ToStageID: uuid.New(),
	})
	requireCode(t, err, domain.CodeNotFound)
}

func TestCheckTransitionReportsReason(t *testing.T) {
	f := newFixture()
	seed(t, f)
	restrictQualification(t, f)
	deal := uuid.New()
	place(f, deal, stageID(t, f, "Qualification"))

	resp, err := f.svc.CheckTransition(context.Background(), f.company, transport.TransitionRequest{
		DealID:    deal,
		ToStageID: stageID(t, f, "Closed Lost"),
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.Allowed || resp.Code != domain.CodeMissingRequiredFields || len(resp.MissingFields) != 1 {
		t.Fatalf("unexpected check response: %+v", resp)
	}

	ok, err := f.svc.CheckTransition(context.Background(), f.company, transport.TransitionRequest{
		DealID:    deal,
		ToStageID: stageID(t, f, "Negotiation"),
	})
	if err != nil || !ok.Allowed {
		t.Fatalf("expected allowed, got %+v, %v", ok, err)
	}
	if f.deals.placements[deal].StageID != stageID(t, f, "Qualification") {
		t.Fatal("check must not move the deal")
	}
}
