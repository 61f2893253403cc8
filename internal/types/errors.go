package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for Fraudkeeper operations.
var (
	// ErrUnsupportedOperator indicates an unknown condition kind. The rule
	// set carrying it is misconfigured; the rule is treated as non-matching.
	ErrUnsupportedOperator = errors.New("unsupported condition type")

	// ErrMalformedCondition indicates a structurally invalid condition tree,
	// e.g. a NOT with no operands.
	ErrMalformedCondition = errors.New("malformed condition")

	// ErrInvalidNumericValue indicates a non-numeric comparand where a
	// numeric comparison was requested. Wraps the offending literal.
	ErrInvalidNumericValue = errors.New("invalid numeric value")

	// ErrVersionConflict indicates an optimistic concurrency lost update.
	// The caller must reload the rule and retry.
	ErrVersionConflict = errors.New("rule version conflict")

	// ErrRuleNotFound indicates no StoredRule exists for the requested id.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrActiveRuleNotFound indicates no active rule is configured.
	// Evaluation cannot proceed; a configuration error, not transient.
	ErrActiveRuleNotFound = errors.New("no active rule found")

	// ErrLockTimeout indicates the activation-swap lock was not acquired in
	// time. Retryable with backoff.
	ErrLockTimeout = errors.New("timed out acquiring active rule lock")
)

// InvalidNumericValue wraps ErrInvalidNumericValue with the literal that
// failed to parse.
func InvalidNumericValue(literal any) error {
	return fmt.Errorf("%w: %v", ErrInvalidNumericValue, literal)
}

// SchemaValidationError rejects a rule payload that fails structural
// validation. Nothing is persisted when it is returned.
type SchemaValidationError struct {
	Violations []string
}

func (e *SchemaValidationError) Error() string {
	return "rule payload validation failed: " + strings.Join(e.Violations, "; ")
}
