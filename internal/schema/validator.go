// Package schema validates rule payloads before the lifecycle manager
// accepts them. Structural validation only; condition semantics are the
// evaluator's concern.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/solatis/fraudkeeper/internal/types"
)

// payload mirrors the rule document shape with validation tags.
type payload struct {
	RuleID    string           `json:"ruleId" validate:"omitempty,uuid"`
	CreatedBy string           `json:"createdBy"`
	Rules     []ruleDefinition `json:"rules" validate:"required,min=1,dive"`
}

type ruleDefinition struct {
	ID          string          `json:"id" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Severity    string          `json:"severity" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	Condition   types.Condition `json:"condition"`
}

// Validator checks rule payloads against the structural contract.
type Validator struct {
	validate *validator.Validate
}

// New constructs a Validator. A single instance is safe for concurrent use.
func New() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate parses and structurally checks a rule payload. Returns a
// *types.SchemaValidationError carrying every violation found, or nil when
// the payload is acceptable. Nothing is persisted on failure.
func (v *Validator) Validate(raw json.RawMessage) error {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return &types.SchemaValidationError{
			Violations: []string{fmt.Sprintf("payload is not valid JSON: %v", err)},
		}
	}

	var violations []string

	if err := v.validate.Struct(&p); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				violations = append(violations, fmt.Sprintf("%s: failed %q constraint", fe.Namespace(), fe.Tag()))
			}
		} else {
			violations = append(violations, err.Error())
		}
	}

	for i, rule := range p.Rules {
		violations = append(violations, checkCondition(fmt.Sprintf("rules[%d].condition", i), rule.Condition)...)
	}

	if len(violations) > 0 {
		return &types.SchemaValidationError{Violations: violations}
	}
	return nil
}

// checkCondition walks the tree enforcing the variant invariants: logical
// kinds carry operands and no field, leaf kinds carry a field, and the kind
// itself must have evaluator support.
func checkCondition(path string, cond types.Condition) []string {
	var violations []string

	switch kind := cond.Kind.Normalize(); {
	case kind.Logical():
		if cond.Field != "" {
			violations = append(violations, fmt.Sprintf("%s: logical kind %s must not carry a field", path, cond.Kind))
		}
		if len(cond.Operands) == 0 {
			violations = append(violations, fmt.Sprintf("%s: logical kind %s requires operands", path, cond.Kind))
		}
		for i, op := range cond.Operands {
			violations = append(violations, checkCondition(fmt.Sprintf("%s.operands[%d]", path, i), op)...)
		}

	case kind == types.KindEqual,
		kind == types.KindGreaterThan,
		kind == types.KindGreaterThanOrEqual,
		kind == types.KindLessThan,
		kind == types.KindLessThanOrEqual,
		kind == types.KindInclude:
		if cond.Field == "" {
			violations = append(violations, fmt.Sprintf("%s: leaf kind %s requires a field", path, cond.Kind))
		}
		if len(cond.Operands) > 0 {
			violations = append(violations, fmt.Sprintf("%s: leaf kind %s must not carry operands", path, cond.Kind))
		}

	default:
		violations = append(violations, fmt.Sprintf("%s: unsupported condition type %q", path, cond.Kind))
	}

	return violations
}
