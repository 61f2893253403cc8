package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/fraudkeeper/internal/core/db"
	"github.com/solatis/fraudkeeper/internal/types"
)

// TransactionStore persists incoming transaction records.
type TransactionStore struct {
	db *sqlx.DB
	q  *db.Queries
}

// NewTransactionStore creates a transaction store over an open database.
func NewTransactionStore(database *sqlx.DB, queries *db.Queries) *TransactionStore {
	return &TransactionStore{db: database, q: queries}
}

// Save durably persists the transaction record and returns its id.
// The pipeline calls this before any rule evaluation begins.
func (s *TransactionStore) Save(ctx context.Context, record *types.TransactionRecord) (string, error) {
	_, err := s.q.Exec(ctx, s.db, "insert-transaction",
		record.TransactionID,
		record.AccountID,
		record.UserID,
		record.Currency,
		record.TransferAmount,
		record.Timestamp.UTC(),
		record.TransactionType,
		record.Channel,
		record.MerchantID,
		record.MerchantName,
		record.BeneficiaryAccount,
		record.IPAddress,
		record.DeviceID,
		record.Location,
		record.Status,
		time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert transaction %s: %w", record.TransactionID, err)
	}
	return record.TransactionID, nil
}
