// Package types provides domain models shared across Fraudkeeper components.
//
// Separation from transport: HTTP request/response shapes live in
// internal/core/api. This package contains the persisted records and the
// derived rule-set model the evaluator operates on.
package types

import (
	"encoding/json"
	"time"
)

// StoredRule is the persisted rule record. Data holds the opaque JSON rule
// payload (one or more rule definitions); Version is the optimistic
// concurrency stamp incremented on every save. At most one StoredRule has
// Active=true at any moment; the lifecycle manager enforces this.
type StoredRule struct {
	RuleID    string          `db:"rule_id" json:"ruleId"`
	Data      json.RawMessage `db:"data" json:"data"`
	Version   int64           `db:"version" json:"version"`
	Active    bool            `db:"active" json:"active"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// RuleDefinition is a single named rule with its condition tree.
// Immutable value; identity is ID.
type RuleDefinition struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Severity    string    `json:"severity,omitempty"`
	Condition   Condition `json:"condition"`
}

// RuleSet is the ordered collection of rule definitions decoded from the
// active StoredRule, plus provenance metadata. This is the unit the cache
// holds; it is derived, never persisted.
type RuleSet struct {
	RuleID    string           `json:"ruleId"`
	CreatedBy string           `json:"createdBy,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
	Rules     []RuleDefinition `json:"rules"`
}

// TransactionRecord is the evaluated subject. JSON keys are snake_case per
// the ingestion contract; the resolver exposes camelCase logical names.
type TransactionRecord struct {
	TransactionID      string    `json:"transaction_id" binding:"required"`
	AccountID          int64     `json:"account_id" binding:"required"`
	UserID             int64     `json:"user_id"`
	Currency           string    `json:"currency" binding:"required"`
	TransferAmount     float64   `json:"amount" binding:"required"`
	Timestamp          time.Time `json:"timestamp"`
	TransactionType    string    `json:"transaction_type"`
	Channel            string    `json:"channel"`
	MerchantID         string    `json:"merchant_id"`
	MerchantName       string    `json:"merchant_name"`
	BeneficiaryAccount int64     `json:"beneficiary_account"`
	IPAddress          string    `json:"ip_address"`
	DeviceID           string    `json:"device_id"`
	Location           string    `json:"geo_location"`
	Status             string    `json:"status"`
}

// FraudEvent records one rule match against one transaction. Append-only;
// created exactly once per (transaction, matched rule) pair.
type FraudEvent struct {
	ID              int64     `db:"id" json:"id"`
	RuleID          string    `db:"rule_id" json:"ruleId"`
	AccountID       int64     `db:"account_id" json:"accountId"`
	TransactionID   string    `db:"transaction_id" json:"transactionId"`
	TransactionDate time.Time `db:"transaction_date" json:"transactionDate"`
	Reason          string    `db:"reason" json:"reason"`
	Type            string    `db:"type" json:"type"`
	Severity        string    `db:"severity" json:"severity"`
	DetectedAt      time.Time `db:"detected_at" json:"detectedAt"`
}

// Page is a single page of a paginated projection.
type Page[T any] struct {
	Items      []T   `json:"items"`
	PageNumber int   `json:"pageNumber"`
	PageSize   int   `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

// NewPage computes page metadata from a total row count.
func NewPage[T any](items []T, pageNumber, pageSize int, totalItems int64) Page[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((totalItems + int64(pageSize) - 1) / int64(pageSize))
	}
	return Page[T]{
		Items:      items,
		PageNumber: pageNumber,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}
