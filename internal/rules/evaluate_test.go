// internal/rules/evaluate_test.go
package rules

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/fraudkeeper/internal/types"
)

func sampleRecord() *types.TransactionRecord {
	return &types.TransactionRecord{
		TransactionID:      "tx-001",
		AccountID:          812,
		UserID:             55,
		Currency:           "USD",
		TransferAmount:     1500.50,
		Timestamp:          time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
		TransactionType:    "WIRE",
		Channel:            "WEB",
		BeneficiaryAccount: 32142347,
		Location:           "DE",
		Status:             "PENDING",
	}
}

func TestEvaluate_EqualStringCaseInsensitive(t *testing.T) {
	cond := types.Condition{Kind: types.KindEqual, Field: "currency", Value: "usd"}

	matched, err := Evaluate(cond, sampleRecord())
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if !matched {
		t.Errorf("Matched = false, want true")
	}
}

func TestEvaluate_EqualNumericAcrossForms(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"float literal", 1500.50, true},
		{"string literal", "1500.50", true},
		{"integral string against float field", "1500.5", true},
		{"mismatch", 999.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := types.Condition{Kind: types.KindEqual, Field: "amount", Value: tt.value}
			matched, err := Evaluate(cond, sampleRecord())
			if err != nil {
				t.Fatalf("Evaluate() error = %v, want nil", err)
			}
			if matched != tt.want {
				t.Errorf("Matched = %v, want %v", matched, tt.want)
			}
		})
	}
}

func TestEvaluate_EqualNumericComparandErrors(t *testing.T) {
	// A numeric field demands a numeric comparison value; a silent false here
	// would hide a broken rule.
	for _, value := range []any{"lots", nil} {
		cond := types.Condition{Kind: types.KindEqual, Field: "amount", Value: value}
		_, err := Evaluate(cond, sampleRecord())
		if !errors.Is(err, types.ErrInvalidNumericValue) {
			t.Errorf("Evaluate(value=%v) error = %v, want ErrInvalidNumericValue", value, err)
		}
	}
}

func TestEvaluate_EqualNullSemantics(t *testing.T) {
	// Unknown field resolves to nil: nil == nil is true, nil == value is false.
	both := types.Condition{Kind: types.KindEqual, Field: "nonexistent", Value: nil}
	matched, err := Evaluate(both, sampleRecord())
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if !matched {
		t.Errorf("nil == nil Matched = false, want true")
	}

	one := types.Condition{Kind: types.KindEqual, Field: "nonexistent", Value: "x"}
	matched, err = Evaluate(one, sampleRecord())
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if matched {
		t.Errorf("nil == value Matched = true, want false")
	}
}

func TestEvaluate_EqualsAliasBehavesAsEqual(t *testing.T) {
	cond := types.Condition{Kind: types.KindEquals, Field: "currency", Value: "USD"}
	matched, err := Evaluate(cond, sampleRecord())
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if !matched {
		t.Errorf("Matched = false, want true")
	}
}

func TestEvaluate_NumericComparisons(t *testing.T) {
	tests := []struct {
		name  string
		kind  types.ConditionKind
		value any
		want  bool
	}{
		{"gt below", types.KindGreaterThan, 1000, true},
		{"gt above", types.KindGreaterThan, 2000, false},
		{"gt boundary", types.KindGreaterThan, 1500.50, false},
		{"gte boundary", types.KindGreaterThanOrEqual, 1500.50, true},
		{"gte misspelled alias", types.KindGreatThanOrEqualAlias, 1500.50, true},
		{"lt above", types.KindLessThan, 2000, true},
		{"lte boundary", types.KindLessThanOrEqual, "1500.50", true},
		{"numeric string comparand", types.KindGreaterThan, "1000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := types.Condition{Kind: tt.kind, Field: "amount", Value: tt.value}
			matched, err := Evaluate(cond, sampleRecord())
			if err != nil {
				t.Fatalf("Evaluate() error = %v, want nil", err)
			}
			if matched != tt.want {
				t.Errorf("Matched = %v, want %v", matched, tt.want)
			}
		})
	}
}

func TestEvaluate_NumericComparisonErrors(t *testing.T) {
	nonNumeric := types.Condition{Kind: types.KindGreaterThan, Field: "amount", Value: "a lot"}
	_, err := Evaluate(nonNumeric, sampleRecord())
	if !errors.Is(err, types.ErrInvalidNumericValue) {
		t.Fatalf("error = %v, want ErrInvalidNumericValue", err)
	}

	nullField := types.Condition{Kind: types.KindGreaterThan, Field: "nonexistent", Value: 10}
	_, err = Evaluate(nullField, sampleRecord())
	if !errors.Is(err, types.ErrInvalidNumericValue) {
		t.Fatalf("error = %v, want ErrInvalidNumericValue", err)
	}
}

func TestEvaluate_IncludeEncodings(t *testing.T) {
	// Same candidate set in its three wire encodings.
	tests := []struct {
		name  string
		value any
	}{
		{"literal list", []any{"32142347", "99"}},
		{"json array string", `["32142347", "99"]`},
		{"comma separated string", "32142347, 99"},
		{"quoted elements", `"32142347","99"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := types.Condition{Kind: types.KindInclude, Field: "beneficiaryAccount", Value: tt.value}
			matched, err := Evaluate(cond, sampleRecord())
			if err != nil {
				t.Fatalf("Evaluate() error = %v, want nil", err)
			}
			if !matched {
				t.Errorf("Matched = false, want true")
			}
		})
	}
}

func TestEvaluate_IncludeMissAndNullField(t *testing.T) {
	miss := types.Condition{Kind: types.KindInclude, Field: "beneficiaryAccount", Value: "1, 2, 3"}
	matched, err := Evaluate(miss, sampleRecord())
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if matched {
		t.Errorf("Matched = true, want false")
	}

	null := types.Condition{Kind: types.KindInclude, Field: "nonexistent", Value: "1, 2"}
	matched, err = Evaluate(null, sampleRecord())
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if matched {
		t.Errorf("null field Matched = true, want false")
	}
}

func TestEvaluate_AndShortCircuit(t *testing.T) {
	// Second operand would error (unsupported kind); the false first operand
	// must short-circuit before it is reached.
	cond := types.Condition{
		Kind: types.KindAnd,
		Operands: []types.Condition{
			{Kind: types.KindEqual, Field: "currency", Value: "EUR"},
			{Kind: types.KindNotEqual, Field: "currency", Value: "USD"},
		},
	}

	matched, err := Evaluate(cond, sampleRecord())
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if matched {
		t.Errorf("Matched = true, want false")
	}
}

func TestEvaluate_OrShortCircuit(t *testing.T) {
	cond := types.Condition{
		Kind: types.KindOr,
		Operands: []types.Condition{
			{Kind: types.KindEqual, Field: "currency", Value: "USD"},
			{Kind: types.KindNotEqual, Field: "currency", Value: "EUR"},
		},
	}

	matched, err := Evaluate(cond, sampleRecord())
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if !matched {
		t.Errorf("Matched = false, want true")
	}
}

func TestEvaluate_EmptyLogicalOperands(t *testing.T) {
	matched, err := Evaluate(types.Condition{Kind: types.KindAnd}, sampleRecord())
	if err != nil {
		t.Fatalf("AND error = %v, want nil", err)
	}
	if !matched {
		t.Errorf("empty AND Matched = false, want true")
	}

	matched, err = Evaluate(types.Condition{Kind: types.KindOr}, sampleRecord())
	if err != nil {
		t.Fatalf("OR error = %v, want nil", err)
	}
	if matched {
		t.Errorf("empty OR Matched = true, want false")
	}

	_, err = Evaluate(types.Condition{Kind: types.KindNot}, sampleRecord())
	if !errors.Is(err, types.ErrMalformedCondition) {
		t.Fatalf("empty NOT error = %v, want ErrMalformedCondition", err)
	}
}

func TestEvaluate_NotNegates(t *testing.T) {
	cond := types.Condition{
		Kind: types.KindNot,
		Operands: []types.Condition{
			{Kind: types.KindEqual, Field: "currency", Value: "EUR"},
		},
	}

	matched, err := Evaluate(cond, sampleRecord())
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if !matched {
		t.Errorf("Matched = false, want true")
	}
}

func TestEvaluate_UnsupportedOperators(t *testing.T) {
	for _, kind := range []types.ConditionKind{types.KindNotEqual, types.KindNotEquals, "BETWEEN", ""} {
		cond := types.Condition{Kind: kind, Field: "currency", Value: "USD"}
		_, err := Evaluate(cond, sampleRecord())
		if !errors.Is(err, types.ErrUnsupportedOperator) {
			t.Errorf("kind %q error = %v, want ErrUnsupportedOperator", kind, err)
		}
	}
}

func TestEvaluate_NestedTree(t *testing.T) {
	// (amount > 1000 AND currency == USD) OR status INCLUDE [SETTLED]
	cond := types.Condition{
		Kind: types.KindOr,
		Operands: []types.Condition{
			{
				Kind: types.KindAnd,
				Operands: []types.Condition{
					{Kind: types.KindGreaterThan, Field: "amount", Value: 1000},
					{Kind: types.KindEqual, Field: "currency", Value: "USD"},
				},
			},
			{Kind: types.KindInclude, Field: "status", Value: "SETTLED"},
		},
	}

	matched, err := Evaluate(cond, sampleRecord())
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if !matched {
		t.Errorf("Matched = false, want true")
	}
}

func TestEvaluate_GreaterThanComplementsLessThanOrEqual(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("GT(x) == !LTE(x) over the amount field", prop.ForAll(
		func(amount float64, threshold float64) bool {
			record := sampleRecord()
			record.TransferAmount = amount

			gt := types.Condition{Kind: types.KindGreaterThan, Field: "amount", Value: threshold}
			lte := types.Condition{Kind: types.KindLessThanOrEqual, Field: "amount", Value: threshold}

			gtMatched, err1 := Evaluate(gt, record)
			lteMatched, err2 := Evaluate(lte, record)
			if err1 != nil || err2 != nil {
				return false
			}
			return gtMatched == !lteMatched
		},
		gen.Float64Range(-1e12, 1e12),
		gen.Float64Range(-1e12, 1e12),
	))

	properties.TestingRun(t)
}
