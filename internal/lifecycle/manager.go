// Package lifecycle enforces the single-active-rule invariant across rule
// mutations.
//
// Every mutation runs in one database transaction. The activation swap
// (deactivate-old, activate-new) reads the current active row under a
// write-exclusive lock, so two concurrent swaps serialize and no other
// transaction ever observes two active rows, even transiently. The cache is
// invalidated only after commit, giving read-your-writes across the
// mutation boundary.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/fraudkeeper/internal/schema"
	"github.com/solatis/fraudkeeper/internal/store"
	"github.com/solatis/fraudkeeper/internal/types"
)

// Invalidator is the cache side effect of a committed mutation.
type Invalidator interface {
	Invalidate()
}

// RulePatch is a partial rule update. Version, when present, must match the
// stored version or the update fails with ErrVersionConflict.
type RulePatch struct {
	Version *int64          `json:"version,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Active  *bool           `json:"active,omitempty"`
}

// Manager coordinates RuleStore mutations and cache invalidation.
type Manager struct {
	rules       *store.RuleStore
	validator   *schema.Validator
	cache       Invalidator
	lockTimeout time.Duration
	log         *slog.Logger
}

// New creates a lifecycle manager. lockTimeout bounds how long an activation
// swap waits on the active-row lock before surfacing ErrLockTimeout.
func New(rules *store.RuleStore, validator *schema.Validator, cache Invalidator, lockTimeout time.Duration, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		rules:       rules,
		validator:   validator,
		cache:       cache,
		lockTimeout: lockTimeout,
		log:         log,
	}
}

// Create validates and persists a new rule as the active one, deactivating
// the previous active rule in the same transaction. Returns the rule id
// (generated when the payload carries none).
func (m *Manager) Create(ctx context.Context, payload json.RawMessage) (string, error) {
	if err := m.validator.Validate(payload); err != nil {
		return "", err
	}

	ruleID := payloadRuleID(payload)
	if ruleID == "" {
		ruleID = types.NewRuleID()
	}

	err := m.inTx(ctx, func(txCtx context.Context, tx *sqlx.Tx) error {
		current, err := m.rules.FindActiveForWriteLocked(txCtx, tx)
		if err != nil {
			return lockErr(err)
		}
		if current != nil {
			current.Active = false
			if err := m.rules.Save(txCtx, tx, current); err != nil {
				return err
			}
		}

		created := &types.StoredRule{
			RuleID: ruleID,
			Data:   payload,
			Active: true,
		}
		return m.rules.Save(txCtx, tx, created)
	})
	if err != nil {
		return "", err
	}

	m.cache.Invalidate()
	m.log.InfoContext(ctx, "rule created", slog.String("rule_id", ruleID))
	return ruleID, nil
}

// Update applies a partial update to an existing rule. A patch requesting
// activation of an inactive rule performs the activation swap; any other
// patch leaves the rule inactive.
func (m *Manager) Update(ctx context.Context, ruleID string, patch RulePatch) error {
	if patch.Data != nil {
		if err := m.validator.Validate(patch.Data); err != nil {
			return err
		}
	}

	err := m.inTx(ctx, func(txCtx context.Context, tx *sqlx.Tx) error {
		rule, err := m.rules.FindByIDLocked(txCtx, tx, ruleID)
		if err != nil {
			return lockErr(err)
		}
		if rule == nil {
			return fmt.Errorf("%w: %s", types.ErrRuleNotFound, ruleID)
		}

		if patch.Version != nil && *patch.Version != rule.Version {
			return types.ErrVersionConflict
		}

		if patch.Data != nil {
			rule.Data = patch.Data
		}

		if patch.Active != nil && *patch.Active && !rule.Active {
			current, err := m.rules.FindActiveForWriteLocked(txCtx, tx)
			if err != nil {
				return lockErr(err)
			}
			if current != nil {
				current.Active = false
				if err := m.rules.Save(txCtx, tx, current); err != nil {
					return err
				}
			}
			rule.Active = true
		} else {
			rule.Active = false
		}

		return m.rules.Save(txCtx, tx, rule)
	})
	if err != nil {
		return err
	}

	m.cache.Invalidate()
	m.log.InfoContext(ctx, "rule updated", slog.String("rule_id", ruleID))
	return nil
}

// Delete removes the rule only when it is inactive. Deleting an active or
// absent rule deletes nothing. The cache is invalidated regardless;
// invalidation is idempotent.
func (m *Manager) Delete(ctx context.Context, ruleID string) error {
	deleted, err := m.rules.DeleteIfInactive(ctx, ruleID)
	m.cache.Invalidate()
	if err != nil {
		return err
	}
	if !deleted {
		m.log.WarnContext(ctx, "delete skipped: rule active or absent", slog.String("rule_id", ruleID))
	}
	return nil
}

// FindByID returns the stored rule or ErrRuleNotFound.
func (m *Manager) FindByID(ctx context.Context, ruleID string) (*types.StoredRule, error) {
	rule, err := m.rules.FindByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrRuleNotFound, ruleID)
	}
	return rule, nil
}

// FindAll returns every stored rule.
func (m *Manager) FindAll(ctx context.Context) ([]types.StoredRule, error) {
	return m.rules.FindAll(ctx)
}

// FindActive returns the active stored rule or ErrActiveRuleNotFound.
func (m *Manager) FindActive(ctx context.Context) (*types.StoredRule, error) {
	rule, err := m.rules.FindActiveForRead(ctx)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, types.ErrActiveRuleNotFound
	}
	return rule, nil
}

// inTx runs fn inside a transaction bounded by the lock timeout and commits
// on success.
func (m *Manager) inTx(ctx context.Context, fn func(context.Context, *sqlx.Tx) error) error {
	txCtx, cancel := context.WithTimeout(ctx, m.lockTimeout)
	defer cancel()

	tx, err := m.rules.Begin(txCtx)
	if err != nil {
		return err
	}

	if err := fn(txCtx, tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// lockErr maps a deadline expiry during lock acquisition to the retryable
// contention error; an expired lock wait must never look like an invariant
// violation.
func lockErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", types.ErrLockTimeout, err)
	}
	return err
}

// payloadRuleID extracts the optional ruleId from a rule payload.
func payloadRuleID(payload json.RawMessage) string {
	var p struct {
		RuleID string `json:"ruleId"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return ""
	}
	return p.RuleID
}
