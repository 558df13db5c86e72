package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"pipeline_backend/internal/events"
	"pipeline_backend/internal/pipeline/domain"
	"pipeline_backend/internal/pipeline/ports"
	"pipeline_backend/internal/pipeline/repository"
	"pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

var errStoreDown = errors.New("store unavailable")

// fakeRepo keeps stages per company and applies a transaction only when its
// callback succeeds.
type fakeRepo struct {
	mu        sync.Mutex
	stages    map[uuid.UUID][]domain.Stage
	failApply bool // ApplyOrder fails after partial writes
}

var _ repository.Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{stages: make(map[uuid.UUID][]domain.Stage)}
}

func (r *fakeRepo) GetByID(_ context.Context, companyID, id uuid.UUID) (domain.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range r.stages[companyID] {
		if st.ID == id {
			return st, nil
		}
	}
	return domain.Stage{}, domain.ErrNotFound()
}

func (r *fakeRepo) List(_ context.Context, companyID uuid.UUID, filter repository.ListFilter) ([]domain.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Stage
	for _, st := range domain.SortByOrder(r.stages[companyID]) {
		if filter.Matches(st) {
			out = append(out, st)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListAutoAdvance(_ context.Context) ([]domain.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Stage
	for _, stages := range r.stages {
		for _, st := range stages {
			if st.AutoAdvance {
				out = append(out, st)
			}
		}
	}
	return out, nil
}

func (r *fakeRepo) InCompanyTx(ctx context.Context, companyID uuid.UUID, fn func(ctx context.Context, tx repository.StageTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &fakeTx{companyID: companyID, stages: append([]domain.Stage(nil), r.stages[companyID]...), failApply: r.failApply}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.checkCommit(); err != nil {
		return err
	}
	r.stages[companyID] = tx.stages
	return nil
}

func (r *fakeRepo) snapshot(companyID uuid.UUID) []domain.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.SortByOrder(r.stages[companyID])
}

type fakeTx struct {
	companyID uuid.UUID
	stages    []domain.Stage
	failApply bool
}

func (t *fakeTx) Stages(_ context.Context) ([]domain.Stage, error) {
	return domain.SortByOrder(t.stages), nil
}

func (t *fakeTx) Insert(_ context.Context, st domain.Stage) error {
	st.CompanyID = t.companyID
	t.stages = append(t.stages, st)
	return nil
}

func (t *fakeTx) Save(_ context.Context, st domain.Stage) error {
	for i := range t.stages {
		if t.stages[i].ID == st.ID {
			st.Order = t.stages[i].Order
			t.stages[i] = st
			return nil
		}
	}
	return domain.ErrNotFound()
}

func (t *fakeTx) Delete(_ context.Context, id uuid.UUID) error {
	for i := range t.stages {
		if t.stages[i].ID == id {
			t.stages = append(t.stages[:i], t.stages[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound()
}

func (t *fakeTx) ApplyOrder(_ context.Context, plan []domain.Placement) error {
	for i, p := range plan {
		if t.failApply && i == len(plan)/2 {
			return errStoreDown
		}
		for j := range t.stages {
			if t.stages[j].ID == p.StageID {
				t.stages[j].Order = p.Order
			}
		}
	}
	return nil
}

// checkCommit mirrors the deferred unique constraints of the real table.
func (t *fakeTx) checkCommit() error {
	orders := make(map[int]bool, len(t.stages))
	names := make(map[string]bool, len(t.stages))
	for _, st := range t.stages {
		if orders[st.Order] {
			return domain.ErrInconsistent("duplicate order at commit")
		}
		orders[st.Order] = true
		key := domain.NameKey(st.Name)
		if names[key] {
			return domain.ErrNameTaken(st.Name)
		}
		names[key] = true
	}
	return nil
}

type fakeDeals struct {
	mu         sync.Mutex
	placements map[uuid.UUID]domain.DealPlacement
	failStage  map[uuid.UUID]bool
}

var _ ports.DealStore = (*fakeDeals)(nil)

func newFakeDeals() *fakeDeals {
	return &fakeDeals{placements: make(map[uuid.UUID]domain.DealPlacement), failStage: make(map[uuid.UUID]bool)}
}

func (d *fakeDeals) GetPlacement(_ context.Context, _ uuid.UUID, dealID uuid.UUID) (*domain.DealPlacement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.placements[dealID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (d *fakeDeals) ListEnteredBefore(_ context.Context, companyID, stageID uuid.UUID, cutoff time.Time) ([]domain.DealPlacement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failStage[stageID] {
		return nil, errStoreDown
	}
	var out []domain.DealPlacement
	for _, p := range d.placements {
		if p.CompanyID == companyID && p.StageID == stageID && !p.EnteredStageAt.After(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (d *fakeDeals) UpsertPlacement(_ context.Context, p domain.DealPlacement) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.placements[p.DealID] = p
	return nil
}

func (d *fakeDeals) StageMetrics(_ context.Context, companyID uuid.UUID) ([]domain.StageMetrics, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	byStage := make(map[uuid.UUID]*domain.StageMetrics)
	for _, p := range d.placements {
		if p.CompanyID != companyID {
			continue
		}
		m, ok := byStage[p.StageID]
		if !ok {
			m = &domain.StageMetrics{StageID: p.StageID}
			byStage[p.StageID] = m
		}
		m.DealCount++
		m.TotalValue += p.DealValue
	}
	out := make([]domain.StageMetrics, 0, len(byStage))
	for _, m := range byStage {
		out = append(out, *m)
	}
	return out, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) named(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	svc     *Service
	repo    *fakeRepo
	deals   *fakeDeals
	bus     *recordingBus
	company uuid.UUID
	actor   domain.Actor
}

func newFixture() *fixture {
	repo := newFakeRepo()
	deals := newFakeDeals()
	bus := &recordingBus{}
	svc := New(repo, deals, bus, logger.Discard())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return &fixture{
		svc:     svc,
		repo:    repo,
		deals:   deals,
		bus:     bus,
		company: uuid.New(),
		actor:   domain.Actor{ID: uuid.New(), Name: "Ada Lovelace"},
	}
}

var listAll = repository.ListFilter{}
