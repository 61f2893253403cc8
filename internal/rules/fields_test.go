// internal/rules/fields_test.go
package rules

import (
	"testing"

	"github.com/solatis/fraudkeeper/internal/types"
)

func TestResolve_Aliases(t *testing.T) {
	record := &types.TransactionRecord{
		TransactionID:      "tx-42",
		AccountID:          7,
		Currency:           "EUR",
		TransferAmount:     250,
		TransactionType:    "CARD",
		BeneficiaryAccount: 991,
		Location:           "NL",
	}

	tests := []struct {
		field string
		want  any
	}{
		{"amount", 250.0},
		{"transferAmount", 250.0},
		{"transferType", "CARD"},
		{"transaction_type", "CARD"},
		{"transactionType", "CARD"},
		{"beneficiary_account", int64(991)},
		{"beneficiaryAccount", int64(991)},
		{"account", int64(7)},
		{"accountId", int64(7)},
		{"transaction", "tx-42"},
		{"transactionId", "tx-42"},
		{"geo_location", "NL"},
		{"geoLocation", "NL"},
		{"location", "NL"},
		{"currency", "EUR"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got := Resolve(record, tt.field)
			if got != tt.want {
				t.Errorf("Resolve(%q) = %v, want %v", tt.field, got, tt.want)
			}
		})
	}
}

func TestResolve_SnakeCaseFallback(t *testing.T) {
	record := &types.TransactionRecord{DeviceID: "dev-1", MerchantID: "m-1", IPAddress: "10.0.0.1"}

	if got := Resolve(record, "device_id"); got != "dev-1" {
		t.Errorf("Resolve(device_id) = %v, want dev-1", got)
	}
	if got := Resolve(record, "merchant_id"); got != "m-1" {
		t.Errorf("Resolve(merchant_id) = %v, want m-1", got)
	}
	if got := Resolve(record, "ip_address"); got != "10.0.0.1" {
		t.Errorf("Resolve(ip_address) = %v, want 10.0.0.1", got)
	}
}

func TestResolve_Unknown(t *testing.T) {
	record := &types.TransactionRecord{}

	if got := Resolve(record, "no_such_field"); got != nil {
		t.Errorf("Resolve(no_such_field) = %v, want nil", got)
	}
	if got := Resolve(record, ""); got != nil {
		t.Errorf("Resolve(\"\") = %v, want nil", got)
	}
	if got := Resolve(nil, "currency"); got != nil {
		t.Errorf("Resolve on nil record = %v, want nil", got)
	}
}

func TestSnakeToCamel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"already_snake", "alreadySnake"},
		{"three_part_name", "threePartName"},
		{"plain", "plain"},
		{"trailing_", "trailing"},
	}

	for _, tt := range tests {
		if got := snakeToCamel(tt.in); got != tt.want {
			t.Errorf("snakeToCamel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
