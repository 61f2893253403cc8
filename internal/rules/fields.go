// internal/rules/fields.go
package rules

import (
	"strings"

	"github.com/solatis/fraudkeeper/internal/types"
)

/*
 * Field resolution for transaction records.
 *
 * Maps a logical field name (arbitrary casing/spelling variants) to a value
 * extracted from a TransactionRecord. Known aliases normalize through a
 * static table; any unmapped name converts snake_case to camelCase before
 * lookup in the accessor table.
 *
 * The accessor table replaces reflection-based field access: one typed
 * closure per record field, built once, O(1) dispatch per leaf condition.
 *
 * A lookup miss returns nil and is non-fatal; the evaluator's null-handling
 * policy governs the outcome, not the resolver.
 */

// fieldAliases maps known spelling variants to canonical accessor keys.
var fieldAliases = map[string]string{
	"transferType":        "transactionType",
	"transactionType":     "transactionType",
	"transaction_type":    "transactionType",
	"transferAmount":      "transferAmount",
	"amount":              "transferAmount",
	"beneficiary_account": "beneficiaryAccount",
	"beneficiaryAccount":  "beneficiaryAccount",
	"accountId":           "accountId",
	"account":             "accountId",
	"currency":            "currency",
	"transactionId":       "transactionId",
	"transaction":         "transactionId",
	"geo_location":        "location",
	"geoLocation":         "location",
	"location":            "location",
}

// fieldAccessors dispatches canonical field names to typed extractors.
var fieldAccessors = map[string]func(*types.TransactionRecord) any{
	"transactionId":      func(r *types.TransactionRecord) any { return r.TransactionID },
	"accountId":          func(r *types.TransactionRecord) any { return r.AccountID },
	"userId":             func(r *types.TransactionRecord) any { return r.UserID },
	"currency":           func(r *types.TransactionRecord) any { return r.Currency },
	"transferAmount":     func(r *types.TransactionRecord) any { return r.TransferAmount },
	"timestamp":          func(r *types.TransactionRecord) any { return r.Timestamp },
	"transactionType":    func(r *types.TransactionRecord) any { return r.TransactionType },
	"channel":            func(r *types.TransactionRecord) any { return r.Channel },
	"merchantId":         func(r *types.TransactionRecord) any { return r.MerchantID },
	"merchantName":       func(r *types.TransactionRecord) any { return r.MerchantName },
	"beneficiaryAccount": func(r *types.TransactionRecord) any { return r.BeneficiaryAccount },
	"ipAddress":          func(r *types.TransactionRecord) any { return r.IPAddress },
	"deviceId":           func(r *types.TransactionRecord) any { return r.DeviceID },
	"location":           func(r *types.TransactionRecord) any { return r.Location },
	"status":             func(r *types.TransactionRecord) any { return r.Status },
}

// Resolve extracts the value for a logical field name from the record.
// Returns nil for unknown fields or a nil record.
func Resolve(record *types.TransactionRecord, fieldName string) any {
	if record == nil || fieldName == "" {
		return nil
	}
	accessor, ok := fieldAccessors[NormalizeField(fieldName)]
	if !ok {
		return nil
	}
	return accessor(record)
}

// NormalizeField maps a field name to its canonical accessor key.
// Known aliases take precedence; otherwise snake_case converts to camelCase.
func NormalizeField(fieldName string) string {
	if canonical, ok := fieldAliases[fieldName]; ok {
		return canonical
	}
	return snakeToCamel(fieldName)
}

func snakeToCamel(value string) string {
	if !strings.Contains(value, "_") {
		return value
	}
	parts := strings.Split(value, "_")
	var sb strings.Builder
	sb.WriteString(parts[0])
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(part[:1]))
		sb.WriteString(part[1:])
	}
	return sb.String()
}
