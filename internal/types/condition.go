package types

/*
 * Condition tree model.
 *
 * A Condition is a closed tagged variant: logical kinds (AND, OR, NOT) carry
 * an ordered operand list and no field; leaf kinds carry a field name and a
 * dynamically typed comparison value (number, string, or list of strings).
 * The kind discriminant replaces the open class hierarchy of the upstream
 * rule format with an exhaustive switch at evaluation time.
 */

// ConditionKind discriminates condition variants.
type ConditionKind string

// Logical kinds.
const (
	KindAnd ConditionKind = "AND"
	KindOr  ConditionKind = "OR"
	KindNot ConditionKind = "NOT"
)

// Leaf comparison kinds. KindEquals is a legacy alias of KindEqual and
// KindGreatThanOrEqualLegacy is the misspelled form found in historic rule
// documents; both normalize before evaluation.
const (
	KindEqual                 ConditionKind = "EQUAL"
	KindEquals                ConditionKind = "EQUALS"
	KindGreaterThan           ConditionKind = "GREATER_THAN"
	KindGreaterThanOrEqual    ConditionKind = "GREATER_THAN_OR_EQUAL"
	KindGreatThanOrEqualAlias ConditionKind = "GREAT_THAN_OR_EQUAL"
	KindLessThan              ConditionKind = "LESS_THAN"
	KindLessThanOrEqual       ConditionKind = "LESS_THAN_OR_EQUAL"
	KindInclude               ConditionKind = "INCLUDE"
)

// Kinds present in historic documents that never had evaluator support.
// They decode, but evaluation rejects them as unsupported operators.
const (
	KindNotEqual  ConditionKind = "NOT_EQUAL"
	KindNotEquals ConditionKind = "NOT_EQUALS"
)

// Normalize collapses legacy aliases onto their canonical kind.
func (k ConditionKind) Normalize() ConditionKind {
	switch k {
	case KindEquals:
		return KindEqual
	case KindGreatThanOrEqualAlias:
		return KindGreaterThanOrEqual
	case KindNotEquals:
		return KindNotEqual
	default:
		return k
	}
}

// Logical reports whether the kind carries operands rather than a field.
func (k ConditionKind) Logical() bool {
	switch k {
	case KindAnd, KindOr, KindNot:
		return true
	default:
		return false
	}
}

// Condition is one node of a rule's condition tree. Logical kinds never
// carry a non-empty Field; leaf kinds always carry one. Immutable once
// decoded.
type Condition struct {
	Kind     ConditionKind `json:"type"`
	Field    string        `json:"field,omitempty"`
	Value    any           `json:"value,omitempty"`
	Operands []Condition   `json:"operands,omitempty"`
}
