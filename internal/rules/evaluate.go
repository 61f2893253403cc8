// internal/rules/evaluate.go
package rules

import (
	"strings"

	"github.com/solatis/fraudkeeper/internal/types"
)

/*
 * Condition evaluation.
 *
 * Evaluates a condition tree against a transaction record. Pure function:
 * no side effects, deterministic for fixed inputs.
 *
 * Semantics by kind:
 *   - AND: true iff every operand is true; short-circuits on first false.
 *     Empty operand list is vacuously true.
 *   - OR: true iff any operand is true; short-circuits on first true.
 *     Empty operand list is false.
 *   - NOT: negates the first operand. Empty operands fail with
 *     ErrMalformedCondition rather than guessing a truth value.
 *   - EQUAL: both null -> true; field null -> false; numeric field values
 *     compare as doubles, and a null or unparseable comparison value against
 *     a numeric field fails with ErrInvalidNumericValue; everything else
 *     compares case-insensitively on string forms.
 *   - GREATER_THAN / GREATER_THAN_OR_EQUAL / LESS_THAN /
 *     LESS_THAN_OR_EQUAL: both sides coerce strictly to float64;
 *     null or unparseable comparands fail with ErrInvalidNumericValue.
 *   - INCLUDE: membership of the stringified field value in the normalized
 *     candidate set; null field -> false.
 *   - anything else -> ErrUnsupportedOperator.
 */

// Evaluate checks whether the condition tree matches the record.
func Evaluate(cond types.Condition, record *types.TransactionRecord) (bool, error) {
	switch cond.Kind.Normalize() {
	case types.KindAnd:
		for _, op := range cond.Operands {
			matched, err := Evaluate(op, record)
			if err != nil {
				return false, err
			}
			if !matched {
				return false, nil
			}
		}
		return true, nil

	case types.KindOr:
		for _, op := range cond.Operands {
			matched, err := Evaluate(op, record)
			if err != nil {
				return false, err
			}
			if matched {
				return true, nil
			}
		}
		return false, nil

	case types.KindNot:
		if len(cond.Operands) == 0 {
			return false, types.ErrMalformedCondition
		}
		matched, err := Evaluate(cond.Operands[0], record)
		if err != nil {
			return false, err
		}
		return !matched, nil

	case types.KindEqual:
		return evaluateEqual(cond, record)

	case types.KindGreaterThan:
		cmp, err := compareNumeric(cond, record)
		return cmp > 0, err

	case types.KindGreaterThanOrEqual:
		cmp, err := compareNumeric(cond, record)
		return cmp >= 0, err

	case types.KindLessThan:
		cmp, err := compareNumeric(cond, record)
		return cmp < 0, err

	case types.KindLessThanOrEqual:
		cmp, err := compareNumeric(cond, record)
		return cmp <= 0, err

	case types.KindInclude:
		return evaluateInclude(cond, record), nil

	default:
		return false, types.ErrUnsupportedOperator
	}
}

// evaluateEqual compares the resolved field value against the comparison
// value. Numeric field values compare as doubles, with the same strict
// coercion policy as the ordering operators; otherwise both sides stringify
// and compare case-insensitively.
func evaluateEqual(cond types.Condition, record *types.TransactionRecord) (bool, error) {
	fieldVal := Resolve(record, cond.Field)
	condVal := cond.Value

	if fieldVal == nil && condVal == nil {
		return true, nil
	}
	if fieldVal == nil {
		return false, nil
	}

	if isNumeric(fieldVal) {
		fv, err := toFloat64(fieldVal)
		if err != nil {
			return false, err
		}
		cv, err := toFloat64(condVal)
		if err != nil {
			return false, err
		}
		return fv == cv, nil
	}

	return strings.EqualFold(stringify(fieldVal), stringify(condVal)), nil
}

// compareNumeric three-way compares field value against comparison value as
// doubles. Null or non-numeric input on either side is an error.
func compareNumeric(cond types.Condition, record *types.TransactionRecord) (int, error) {
	fieldVal := Resolve(record, cond.Field)
	if fieldVal == nil {
		return 0, types.InvalidNumericValue("null field " + cond.Field)
	}

	fv, err := toFloat64(fieldVal)
	if err != nil {
		return 0, err
	}
	cv, err := toFloat64(cond.Value)
	if err != nil {
		return 0, err
	}

	switch {
	case fv < cv:
		return -1, nil
	case fv > cv:
		return 1, nil
	default:
		return 0, nil
	}
}

// evaluateInclude tests membership of the stringified field value in the
// candidate set. The raw string form and its quote-stripped form both count.
func evaluateInclude(cond types.Condition, record *types.TransactionRecord) bool {
	fieldVal := Resolve(record, cond.Field)
	if fieldVal == nil {
		return false
	}

	candidates := parseCandidates(cond.Value)
	fv := stringify(fieldVal)
	stripped := stripQuotes(fv)
	for _, candidate := range candidates {
		if candidate == fv || candidate == stripped {
			return true
		}
	}
	return false
}
