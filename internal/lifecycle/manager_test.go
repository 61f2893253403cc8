package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/solatis/fraudkeeper/internal/core/db"
	"github.com/solatis/fraudkeeper/internal/schema"
	"github.com/solatis/fraudkeeper/internal/store"
	"github.com/solatis/fraudkeeper/internal/types"
)

type fakeInvalidator struct {
	calls int32
}

func (f *fakeInvalidator) Invalidate() { atomic.AddInt32(&f.calls, 1) }

func newTestManager(t *testing.T) (*Manager, *store.RuleStore, *fakeInvalidator) {
	t.Helper()

	database, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "fraudkeeper.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := db.MigrateUp(database); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	queries, err := db.LoadQueries()
	if err != nil {
		t.Fatalf("LoadQueries() error = %v", err)
	}

	ruleStore := store.NewRuleStore(database, queries)
	invalidator := &fakeInvalidator{}
	manager := New(ruleStore, schema.New(), invalidator, 2*time.Second, nil)
	return manager, ruleStore, invalidator
}

func rulePayload(name string) json.RawMessage {
	payload, _ := json.Marshal(map[string]any{
		"createdBy": "tester",
		"rules": []map[string]any{
			{
				"id":       "r1",
				"name":     name,
				"severity": "HIGH",
				"condition": map[string]any{
					"type": "GREATER_THAN", "field": "amount", "value": 1000,
				},
			},
		},
	})
	return payload
}

func TestCreate_ActivatesAndDeactivatesPrevious(t *testing.T) {
	manager, ruleStore, invalidator := newTestManager(t)
	ctx := context.Background()

	firstID, err := manager.Create(ctx, rulePayload("first"))
	if err != nil {
		t.Fatalf("Create() error = %v, want nil", err)
	}

	secondID, err := manager.Create(ctx, rulePayload("second"))
	if err != nil {
		t.Fatalf("Create() error = %v, want nil", err)
	}

	active, err := manager.FindActive(ctx)
	if err != nil {
		t.Fatalf("FindActive() error = %v, want nil", err)
	}
	if active.RuleID != secondID {
		t.Errorf("active RuleID = %q, want %q", active.RuleID, secondID)
	}

	first, err := ruleStore.FindByID(ctx, firstID)
	if err != nil {
		t.Fatalf("FindByID() error = %v, want nil", err)
	}
	if first.Active {
		t.Errorf("first rule Active = true, want false after swap")
	}

	all, err := manager.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll() error = %v, want nil", err)
	}
	activeCount := 0
	for _, r := range all {
		if r.Active {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Errorf("active rows = %d, want exactly 1", activeCount)
	}

	if calls := atomic.LoadInt32(&invalidator.calls); calls != 2 {
		t.Errorf("cache invalidations = %d, want 2", calls)
	}
}

func TestCreate_ConcurrentSwapsKeepSingleActive(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	const writers = 8
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = manager.Create(ctx, rulePayload(fmt.Sprintf("rule-%d", n)))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Create() #%d error = %v, want nil", i, err)
		}
	}

	all, err := manager.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll() error = %v, want nil", err)
	}
	if len(all) != writers {
		t.Fatalf("stored rules = %d, want %d", len(all), writers)
	}
	activeCount := 0
	for _, r := range all {
		if r.Active {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Errorf("active rows = %d, want exactly 1 after concurrent swaps", activeCount)
	}
}

func TestUpdate_ConcurrentStaleUpdates(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	ruleID, err := manager.Create(ctx, rulePayload("first"))
	if err != nil {
		t.Fatalf("Create() error = %v, want nil", err)
	}

	// Both writers carry the same version snapshot; the swap serializes them,
	// so the second sees the bumped version and must conflict.
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			version := int64(1)
			errs[n] = manager.Update(ctx, ruleID, RulePatch{
				Version: &version,
				Data:    rulePayload(fmt.Sprintf("v%d", n)),
			})
		}(i)
	}
	wg.Wait()

	succeeded, conflicted := 0, 0
	for i, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, types.ErrVersionConflict):
			conflicted++
		default:
			t.Fatalf("Update() #%d error = %v, want nil or ErrVersionConflict", i, err)
		}
	}
	if succeeded != 1 || conflicted != 1 {
		t.Errorf("succeeded/conflicted = %d/%d, want 1/1", succeeded, conflicted)
	}
}

func TestCreate_RejectsInvalidPayload(t *testing.T) {
	manager, ruleStore, invalidator := newTestManager(t)
	ctx := context.Background()

	_, err := manager.Create(ctx, json.RawMessage(`{"rules": []}`))
	var verr *types.SchemaValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want SchemaValidationError", err)
	}

	all, err := ruleStore.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll() error = %v, want nil", err)
	}
	if len(all) != 0 {
		t.Errorf("stored rules = %d, want 0 after rejected create", len(all))
	}
	if calls := atomic.LoadInt32(&invalidator.calls); calls != 0 {
		t.Errorf("cache invalidations = %d, want 0", calls)
	}
}

func TestUpdate_StaleVersionConflicts(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	ruleID, err := manager.Create(ctx, rulePayload("first"))
	if err != nil {
		t.Fatalf("Create() error = %v, want nil", err)
	}

	// Bump the stored version past the caller's snapshot.
	if err := manager.Update(ctx, ruleID, RulePatch{Data: rulePayload("second")}); err != nil {
		t.Fatalf("Update() error = %v, want nil", err)
	}

	stale := int64(1)
	err = manager.Update(ctx, ruleID, RulePatch{Version: &stale, Data: rulePayload("third")})
	if !errors.Is(err, types.ErrVersionConflict) {
		t.Fatalf("error = %v, want ErrVersionConflict", err)
	}
}

func TestUpdate_UnknownRule(t *testing.T) {
	manager, _, _ := newTestManager(t)

	err := manager.Update(context.Background(), types.NewRuleID(), RulePatch{Data: rulePayload("x")})
	if !errors.Is(err, types.ErrRuleNotFound) {
		t.Fatalf("error = %v, want ErrRuleNotFound", err)
	}
}

func TestUpdate_ActivationSwap(t *testing.T) {
	manager, ruleStore, _ := newTestManager(t)
	ctx := context.Background()

	firstID, err := manager.Create(ctx, rulePayload("first"))
	if err != nil {
		t.Fatalf("Create() error = %v, want nil", err)
	}
	secondID, err := manager.Create(ctx, rulePayload("second"))
	if err != nil {
		t.Fatalf("Create() error = %v, want nil", err)
	}

	// Reactivate the first rule; the second must deactivate in the same swap.
	activate := true
	if err := manager.Update(ctx, firstID, RulePatch{Active: &activate}); err != nil {
		t.Fatalf("Update() error = %v, want nil", err)
	}

	active, err := manager.FindActive(ctx)
	if err != nil {
		t.Fatalf("FindActive() error = %v, want nil", err)
	}
	if active.RuleID != firstID {
		t.Errorf("active RuleID = %q, want %q", active.RuleID, firstID)
	}

	second, err := ruleStore.FindByID(ctx, secondID)
	if err != nil {
		t.Fatalf("FindByID() error = %v, want nil", err)
	}
	if second.Active {
		t.Errorf("second rule Active = true, want false after swap")
	}
}

func TestUpdate_WithoutActivationDeactivates(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	ruleID, err := manager.Create(ctx, rulePayload("first"))
	if err != nil {
		t.Fatalf("Create() error = %v, want nil", err)
	}

	// A data-only patch demotes the rule; activation must be explicit.
	if err := manager.Update(ctx, ruleID, RulePatch{Data: rulePayload("revised")}); err != nil {
		t.Fatalf("Update() error = %v, want nil", err)
	}

	_, err = manager.FindActive(ctx)
	if !errors.Is(err, types.ErrActiveRuleNotFound) {
		t.Fatalf("FindActive() error = %v, want ErrActiveRuleNotFound", err)
	}
}

func TestDelete_ActiveRuleIsNoOp(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	ruleID, err := manager.Create(ctx, rulePayload("first"))
	if err != nil {
		t.Fatalf("Create() error = %v, want nil", err)
	}

	if err := manager.Delete(ctx, ruleID); err != nil {
		t.Fatalf("Delete() error = %v, want nil", err)
	}

	if _, err := manager.FindByID(ctx, ruleID); err != nil {
		t.Fatalf("FindByID() error = %v, want rule still present", err)
	}
}

func TestDelete_InactiveRule(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	firstID, err := manager.Create(ctx, rulePayload("first"))
	if err != nil {
		t.Fatalf("Create() error = %v, want nil", err)
	}
	if _, err := manager.Create(ctx, rulePayload("second")); err != nil {
		t.Fatalf("Create() error = %v, want nil", err)
	}

	if err := manager.Delete(ctx, firstID); err != nil {
		t.Fatalf("Delete() error = %v, want nil", err)
	}

	_, err = manager.FindByID(ctx, firstID)
	if !errors.Is(err, types.ErrRuleNotFound) {
		t.Fatalf("FindByID() error = %v, want ErrRuleNotFound after delete", err)
	}
}
