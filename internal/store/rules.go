// Package store implements durable storage for rules, transactions, and
// fraud events on top of sqlx and the embedded named-query set.
//
// Locking contract: the "current active row" is the only contended resource.
// On PostgreSQL the *ForWriteLocked variants acquire a row-level
// SELECT ... FOR UPDATE lock held until transaction end. SQLite has no row
// locks; swap transactions begin immediate (see db.Open's _txlock DSN
// parameter) so they take the database write lock at BEGIN and queue behind
// each other, and the locked variants fall back to the plain queries there.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/fraudkeeper/internal/core/db"
	"github.com/solatis/fraudkeeper/internal/types"
)

// RuleStore persists StoredRule records with optimistic concurrency.
type RuleStore struct {
	db *sqlx.DB
	q  *db.Queries
}

// NewRuleStore creates a rule store over an open database.
func NewRuleStore(database *sqlx.DB, queries *db.Queries) *RuleStore {
	return &RuleStore{db: database, q: queries}
}

// Begin starts a transaction for a lifecycle mutation.
func (s *RuleStore) Begin(ctx context.Context) (*sqlx.Tx, error) {
	return s.db.BeginTxx(ctx, nil)
}

// FindActiveForRead returns the active rule, or nil when none exists.
// Runs outside any transaction; used by the cache miss path.
func (s *RuleStore) FindActiveForRead(ctx context.Context) (*types.StoredRule, error) {
	var rule types.StoredRule
	err := s.q.Get(ctx, s.db, "find-active-rule", &rule, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active rule: %w", err)
	}
	return &rule, nil
}

// FindActiveForWriteLocked returns the active rule under a write-exclusive
// lock held until the transaction ends, or nil when none exists. Two
// concurrent activation swaps serialize on this lock.
func (s *RuleStore) FindActiveForWriteLocked(ctx context.Context, tx *sqlx.Tx) (*types.StoredRule, error) {
	var rule types.StoredRule
	err := s.q.Get(ctx, tx, s.lockedQuery("find-active-rule"), &rule, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active rule for update: %w", err)
	}
	return &rule, nil
}

// FindByID returns the rule with the given id, or nil when absent.
func (s *RuleStore) FindByID(ctx context.Context, ruleID string) (*types.StoredRule, error) {
	return s.findByID(ctx, s.db, "find-rule-by-id", ruleID)
}

// FindByIDLocked returns the rule with the given id under a write-exclusive
// lock, or nil when absent. Used by update mutations.
func (s *RuleStore) FindByIDLocked(ctx context.Context, tx *sqlx.Tx, ruleID string) (*types.StoredRule, error) {
	return s.findByID(ctx, tx, s.lockedQuery("find-rule-by-id"), ruleID)
}

func (s *RuleStore) findByID(ctx context.Context, e sqlx.ExtContext, query, ruleID string) (*types.StoredRule, error) {
	var rule types.StoredRule
	err := s.q.Get(ctx, e, query, &rule, ruleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find rule %s: %w", ruleID, err)
	}
	return &rule, nil
}

// FindAll returns every stored rule, newest first.
func (s *RuleStore) FindAll(ctx context.Context) ([]types.StoredRule, error) {
	var rules []types.StoredRule
	if err := s.q.Select(ctx, s.db, "find-all-rules", &rules); err != nil {
		return nil, fmt.Errorf("find all rules: %w", err)
	}
	return rules, nil
}

// Save persists the rule inside the given transaction. A rule with Version 0
// inserts at version 1; any other version performs a version-guarded update
// and returns ErrVersionConflict when the stored version moved underneath
// the caller. The passed rule's Version and UpdatedAt reflect the persisted
// state on success.
func (s *RuleStore) Save(ctx context.Context, tx *sqlx.Tx, rule *types.StoredRule) error {
	now := time.Now().UTC()

	if rule.Version == 0 {
		rule.Version = 1
		rule.CreatedAt = now
		rule.UpdatedAt = now
		_, err := s.q.Exec(ctx, tx, "insert-rule",
			rule.RuleID, []byte(rule.Data), rule.Version, rule.Active, rule.CreatedAt, rule.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert rule %s: %w", rule.RuleID, err)
		}
		return nil
	}

	res, err := s.q.Exec(ctx, tx, "update-rule",
		[]byte(rule.Data), rule.Active, now, rule.RuleID, rule.Version)
	if err != nil {
		return fmt.Errorf("update rule %s: %w", rule.RuleID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rule %s: %w", rule.RuleID, err)
	}
	if affected == 0 {
		return types.ErrVersionConflict
	}

	rule.Version++
	rule.UpdatedAt = now
	return nil
}

// DeleteIfInactive removes the rule only when it is inactive. Returns true
// when a row was deleted; deleting an active or absent rule deletes nothing.
func (s *RuleStore) DeleteIfInactive(ctx context.Context, ruleID string) (bool, error) {
	res, err := s.q.Exec(ctx, s.db, "delete-inactive-rule", ruleID, false)
	if err != nil {
		return false, fmt.Errorf("delete rule %s: %w", ruleID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete rule %s: %w", ruleID, err)
	}
	return affected > 0, nil
}

// lockedQuery maps a read query to its FOR UPDATE variant on engines with
// row-level locks.
func (s *RuleStore) lockedQuery(name string) string {
	if s.db.DriverName() == "postgres" {
		return name + "-for-update"
	}
	return name
}
