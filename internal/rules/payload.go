// internal/rules/payload.go
package rules

import (
	"encoding/json"
	"fmt"

	"github.com/solatis/fraudkeeper/internal/types"
)

// rulePayload is the wire shape of a StoredRule's data column.
type rulePayload struct {
	RuleID    string                 `json:"ruleId"`
	CreatedBy string                 `json:"createdBy"`
	Rules     []types.RuleDefinition `json:"rules"`
}

// DecodeRuleSet parses the opaque rule payload of a StoredRule into the
// RuleSet the evaluator runs against. Provenance timestamps come from the
// stored record, not the payload.
func DecodeRuleSet(stored *types.StoredRule) (*types.RuleSet, error) {
	var payload rulePayload
	if err := json.Unmarshal(stored.Data, &payload); err != nil {
		return nil, fmt.Errorf("decode rule payload for %s: %w", stored.RuleID, err)
	}

	return &types.RuleSet{
		RuleID:    stored.RuleID,
		CreatedBy: payload.CreatedBy,
		CreatedAt: stored.CreatedAt,
		UpdatedAt: stored.UpdatedAt,
		Rules:     payload.Rules,
	}, nil
}
