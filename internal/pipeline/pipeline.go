// Package pipeline runs incoming transactions through the active rule set
// and emits fraud events for every match.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/solatis/fraudkeeper/internal/rules"
	"github.com/solatis/fraudkeeper/internal/store"
	"github.com/solatis/fraudkeeper/internal/types"
	"golang.org/x/sync/errgroup"
)

// RuleProvider yields the active rule set, typically the ActiveRuleCache.
type RuleProvider interface {
	GetActive(ctx context.Context) (*types.RuleSet, error)
}

// Observer receives pipeline instrumentation signals. Optional.
type Observer interface {
	ObserveEvaluation(duration time.Duration, matched int)
	RuleEvaluationError(reason string)
}

// Pipeline is the transaction evaluation flow: persist the record, load the
// active rule set, evaluate each rule in order, emit one fraud event per
// matching rule.
type Pipeline struct {
	transactions *store.TransactionStore
	events       *store.FraudEventStore
	provider     RuleProvider
	observer     Observer
	workerLimit  int
	log          *slog.Logger
}

// New creates a pipeline. workerLimit bounds concurrent fraud event inserts;
// values below 1 mean sequential emission. observer may be nil.
func New(transactions *store.TransactionStore, events *store.FraudEventStore, provider RuleProvider, observer Observer, workerLimit int, log *slog.Logger) *Pipeline {
	if workerLimit < 1 {
		workerLimit = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		transactions: transactions,
		events:       events,
		provider:     provider,
		observer:     observer,
		workerLimit:  workerLimit,
		log:          log,
	}
}

// Evaluate persists the transaction, then evaluates it against the active
// rule set and returns the fraud events emitted for matching rules.
//
// The transaction is persisted before any evaluation, so an evaluation
// failure never loses the record. A rule whose condition cannot be evaluated
// is treated as non-matching and logged; one bad rule never blocks the rest
// of the set or fails the pipeline.
func (p *Pipeline) Evaluate(ctx context.Context, record *types.TransactionRecord) ([]types.FraudEvent, error) {
	start := time.Now()

	if _, err := p.transactions.Save(ctx, record); err != nil {
		return nil, err
	}

	ruleSet, err := p.provider.GetActive(ctx)
	if errors.Is(err, types.ErrActiveRuleNotFound) {
		p.log.WarnContext(ctx, "no active rule set, transaction persisted without evaluation",
			slog.String("transaction_id", record.TransactionID))
		p.observe(start, 0)
		return []types.FraudEvent{}, nil
	}
	if err != nil {
		return nil, err
	}

	matched := make([]types.RuleDefinition, 0, len(ruleSet.Rules))
	for _, rule := range ruleSet.Rules {
		ok, err := rules.Evaluate(rule.Condition, record)
		if err != nil {
			p.logRuleError(ctx, ruleSet.RuleID, rule, err)
			continue
		}
		if ok {
			matched = append(matched, rule)
		}
	}

	events := make([]types.FraudEvent, len(matched))
	detectedAt := time.Now().UTC()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workerLimit)
	for i, rule := range matched {
		// Events are keyed by the matched rule definition's id, not the
		// stored rule set's: two definitions matching one transaction must
		// emit two distinguishable events.
		events[i] = types.FraudEvent{
			RuleID:          rule.ID,
			AccountID:       record.AccountID,
			TransactionID:   record.TransactionID,
			TransactionDate: record.Timestamp,
			Reason:          rule.Description,
			Type:            rule.Name,
			Severity:        rule.Severity,
			DetectedAt:      detectedAt,
		}
		event := &events[i]
		g.Go(func() error {
			_, err := p.events.Save(gctx, event)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.observe(start, len(events))
	return events, nil
}

// logRuleError records a per-rule evaluation failure. Unsupported operators
// and malformed conditions indicate a broken stored rule and log at error
// level; anything else (bad numeric literals against string fields and the
// like) is expected operational noise and logs at warn.
func (p *Pipeline) logRuleError(ctx context.Context, ruleSetID string, rule types.RuleDefinition, err error) {
	attrs := []any{
		slog.String("rule_set_id", ruleSetID),
		slog.String("rule_id", rule.ID),
		slog.String("error", err.Error()),
	}

	switch {
	case errors.Is(err, types.ErrUnsupportedOperator):
		p.ruleError("unsupported_operator")
		p.log.ErrorContext(ctx, "rule uses unsupported operator", attrs...)
	case errors.Is(err, types.ErrMalformedCondition):
		p.ruleError("malformed_condition")
		p.log.ErrorContext(ctx, "rule condition is malformed", attrs...)
	case errors.Is(err, types.ErrInvalidNumericValue):
		p.ruleError("invalid_numeric_value")
		p.log.WarnContext(ctx, "rule comparison against non-numeric value", attrs...)
	default:
		p.ruleError("evaluation_failure")
		p.log.WarnContext(ctx, "rule evaluation failed", attrs...)
	}
}

func (p *Pipeline) observe(start time.Time, matched int) {
	if p.observer != nil {
		p.observer.ObserveEvaluation(time.Since(start), matched)
	}
}

func (p *Pipeline) ruleError(reason string) {
	if p.observer != nil {
		p.observer.RuleEvaluationError(reason)
	}
}
