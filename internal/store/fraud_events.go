package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/fraudkeeper/internal/core/db"
	"github.com/solatis/fraudkeeper/internal/types"
)

// FraudEventStore persists the append-only fraud event log.
type FraudEventStore struct {
	db *sqlx.DB
	q  *db.Queries
}

// NewFraudEventStore creates a fraud event store over an open database.
func NewFraudEventStore(database *sqlx.DB, queries *db.Queries) *FraudEventStore {
	return &FraudEventStore{db: database, q: queries}
}

// Save appends the event and fills in its generated id.
// Events are commutative: each is keyed by (ruleId, transactionId), so
// concurrent inserts from parallel emission need no coordination.
func (s *FraudEventStore) Save(ctx context.Context, event *types.FraudEvent) (int64, error) {
	args := []interface{}{
		event.RuleID,
		event.AccountID,
		event.TransactionID,
		event.TransactionDate.UTC(),
		event.Reason,
		event.Type,
		event.Severity,
		event.DetectedAt.UTC(),
	}

	// lib/pq has no LastInsertId; use RETURNING there
	if s.db.DriverName() == "postgres" {
		var id int64
		if err := s.q.Get(ctx, s.db, "insert-fraud-event-returning", &id, args...); err != nil {
			return 0, fmt.Errorf("insert fraud event: %w", err)
		}
		event.ID = id
		return id, nil
	}

	res, err := s.q.Exec(ctx, s.db, "insert-fraud-event", args...)
	if err != nil {
		return 0, fmt.Errorf("insert fraud event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert fraud event: %w", err)
	}
	event.ID = id
	return id, nil
}

// FindByID returns the event with the given id, or nil when absent.
func (s *FraudEventStore) FindByID(ctx context.Context, id int64) (*types.FraudEvent, error) {
	var event types.FraudEvent
	err := s.q.Get(ctx, s.db, "find-fraud-event-by-id", &event, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find fraud event %d: %w", id, err)
	}
	return &event, nil
}

// FindPage returns one page of events ordered by id. Page numbers are
// zero-based.
func (s *FraudEventStore) FindPage(ctx context.Context, pageNumber, pageSize int) (types.Page[types.FraudEvent], error) {
	if pageNumber < 0 {
		pageNumber = 0
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	var total int64
	if err := s.q.Get(ctx, s.db, "count-fraud-events", &total); err != nil {
		return types.Page[types.FraudEvent]{}, fmt.Errorf("count fraud events: %w", err)
	}

	events := make([]types.FraudEvent, 0, pageSize)
	offset := pageNumber * pageSize
	if err := s.q.Select(ctx, s.db, "find-fraud-events-page", &events, pageSize, offset); err != nil {
		return types.Page[types.FraudEvent]{}, fmt.Errorf("find fraud events page %d: %w", pageNumber, err)
	}

	return types.NewPage(events, pageNumber, pageSize, total), nil
}
