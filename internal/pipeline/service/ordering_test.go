package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"pipeline_backend/internal/pipeline/domain"
	"pipeline_backend/internal/pipeline/transport"
	"pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

func TestReorderMissingStageIsInconsistent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seed(t, f)
	before, err := f.svc.List(ctx, f.company, listAll)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	req := transport.ReorderRequest{Stages: []transport.ReorderItem{
		{ID: stageID(t, f, "Negotiation"), Order: 0},
		{ID: stageID(t, f, "Qualification"), Order: 1},
		{ID: stageID(t, f, "Closed Won"), Order: 2},
	}}
	_, err = f.svc.Reorder(ctx, f.company, f.actor, req)
	requireCode(t, err, domain.CodeInconsistent)

	after, err := f.svc.List(ctx, f.company, listAll)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i := range before.Items {
		if before.Items[i].ID != after.Items[i].ID || before.Items[i].Order != after.Items[i].Order {
			t.Fatalf("order changed after rejected reorder: before %+v after %+v", before.Items, after.Items)
		}
	}
}

func TestReorderRejectsForeignIDs(t *testing.T) {
	f := newFixture()
	seed(t, f)

	req := transport.ReorderRequest{Stages: []transport.ReorderItem{
		{ID: stageID(t, f, "Negotiation"), Order: 0},
		{ID: stageID(t, f, "Qualification"), Order: 1},
		{ID: stageID(t, f, "Closed Won"), Order: 2},
		{ID: uuid.New(), Order: 3},
	}}
	_, err := f.svc.Reorder(context.Background(), f.company, f.actor, req)
	requireCode(t, err, domain.CodeInconsistent)
}

func TestReorderRollsBackOnStoreFailure(t *testing.T) {
	f := newFixture()
	seed(t, f)
	before := orders(f.repo.snapshot(f.company))
	f.repo.failApply = true

	req := transport.ReorderRequest{Stages: []transport.ReorderItem{
		{ID: stageID(t, f, "Closed Lost"), Order: 0},
		{ID: stageID(t, f, "Closed Won"), Order: 1},
		{ID: stageID(t, f, "Negotiation"), Order: 2},
		{ID: stageID(t, f, "Qualification"), Order: 3},
	}}
	if _, err := f.svc.Reorder(context.Background(), f.company, f.actor, req); err == nil {
		t.Fatal("expected store failure")
	}

	after := orders(f.repo.snapshot(f.company))
	for name, order := range before {
		if after[name] != order {
			t.Fatalf("expected rollback, before %v after %v", before, after)
		}
	}
}

func TestReorderNormalizesSparseOrders(t *testing.T) {
	f := newFixture()
	seed(t, f)

	req := transport.ReorderRequest{Stages: []transport.ReorderItem{
		{ID: stageID(t, f, "Qualification"), Order: 10},
		{ID: stageID(t, f, "Negotiation"), Order: 20},
		{ID: stageID(t, f, "Closed Won"), Order: 40},
		{ID: stageID(t, f, "Closed Lost"), Order: 30},
	}}
	resp, err := f.svc.Reorder(context.Background(), f.company, f.actor, req)
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if resp.Items[2].Name != "Closed Lost" || resp.Items[3].Name != "Closed Won" {
		t.Fatalf("unexpected order: %+v", resp.Items)
	}
	requireDense(t, f)
}

func TestConcurrentCreateAndReorderStayDense(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seed(t, f)

	current := f.repo.snapshot(f.company)
	reversed := transport.ReorderRequest{}
	for i, st := range current {
		reversed.Stages = append(reversed.Stages, transport.ReorderItem{ID: st.ID, Order: len(current) - 1 - i})
	}

	const creates = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		createErrs []error
		reorderErr error
	)
	for i := 0; i < creates; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Create(ctx, f.company, f.actor, transport.CreateStageRequest{Name: fmt.Sprintf("Extra %d", i)})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				createErrs = append(createErrs, err)
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.svc.Reorder(ctx, f.company, f.actor, reversed)
		mu.Lock()
		reorderErr = err
		mu.Unlock()
	}()
	wg.Wait()

	if len(createErrs) != 0 {
		t.Fatalf("expected every create to succeed, got %v", createErrs)
	}
	// A reorder planned against the old stage set loses to any create that
	// committed first; it must fail whole rather than leave gaps.
	if reorderErr != nil && apperr.GetCode(reorderErr) != domain.CodeInconsistent {
		t.Fatalf("unexpected reorder error %v", reorderErr)
	}
	after := f.repo.snapshot(f.company)
	if len(after) != len(current)+creates {
		t.Fatalf("expected %d stages, got %d", len(current)+creates, len(after))
	}
	requireDense(t, f)
}
