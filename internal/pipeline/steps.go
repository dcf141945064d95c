package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-classifier/internal/audit"
	"github.com/dvloznov/finance-classifier/internal/domain"
	"github.com/dvloznov/finance-classifier/internal/rules"
	"github.com/dvloznov/finance-classifier/internal/taxonomy"
)

// RuleClassifier is the deterministic first stage.
type RuleClassifier interface {
	Classify(tx domain.Transaction) (rules.Outcome, bool)
}

// BatchClassifier is the bounded-concurrency second stage.
type BatchClassifier interface {
	ClassifyBatch(ctx context.Context, unresolved []domain.Transaction) []domain.Transaction
}

// ApplyRulesStep runs the rule engine over every transaction. Transactions
// arriving already classified are left untouched; rule hits are recorded with
// full confidence; misses are queued for dispatch.
type ApplyRulesStep struct {
	Engine RuleClassifier
}

func (s *ApplyRulesStep) Execute(ctx context.Context, state *State) error {
	full := 1.0
	hits := 0

	for i := range state.Transactions {
		tx := state.Transactions[i]
		if tx.Classified() {
			continue
		}

		outcome, ok := s.Engine.Classify(tx)
		if !ok {
			state.Unresolved = append(state.Unresolved, i)
			continue
		}

		state.Transactions[i].Category = outcome.Category
		state.Transactions[i].Explanation = outcome.Explanation
		hits++

		state.Log.RecordClassification(tx.ID,
			audit.Input{Description: tx.Description, Direction: tx.Direction, Amount: tx.Amount},
			outcome.Category, outcome.Explanation, audit.MethodRule, outcome.Reasoning, &full)
	}

	state.Logger.Info().
		Int("rule_hits", hits).
		Int("unresolved", len(state.Unresolved)).
		Msg("Rule stage done")

	return nil
}

// DispatchStep sends the unresolved transactions to the external classifier
// and merges the results back by transaction ID.
type DispatchStep struct {
	Dispatcher BatchClassifier
}

func (s *DispatchStep) Execute(ctx context.Context, state *State) error {
	if len(state.Unresolved) == 0 {
		return nil
	}

	batch := make([]domain.Transaction, 0, len(state.Unresolved))
	for _, i := range state.Unresolved {
		batch = append(batch, state.Transactions[i])
	}

	classified := s.Dispatcher.ClassifyBatch(ctx, batch)

	byID := make(map[int]int, len(state.Unresolved))
	for _, i := range state.Unresolved {
		byID[state.Transactions[i].ID] = i
	}
	for _, tx := range classified {
		i, ok := byID[tx.ID]
		if !ok {
			return fmt.Errorf("dispatch returned unknown transaction id %d", tx.ID)
		}
		state.Transactions[i].Category = tx.Category
		state.Transactions[i].Explanation = tx.Explanation
	}

	state.Unresolved = nil
	return nil
}

// MarkUnclassifiedStep downgrades whatever is still open to the Unclassified
// sentinel. With a dispatcher in the pipeline this is a no-op; without one
// (dry runs) it is what keeps the output fully classified.
type MarkUnclassifiedStep struct{}

func (s *MarkUnclassifiedStep) Execute(ctx context.Context, state *State) error {
	zero := 0.0
	for _, i := range state.Unresolved {
		tx := state.Transactions[i]
		state.Transactions[i].Category = taxonomy.Unclassified
		state.Transactions[i].Explanation = "Classificação automática indisponível"

		state.Log.RecordClassification(tx.ID,
			audit.Input{Description: tx.Description, Direction: tx.Direction, Amount: tx.Amount},
			taxonomy.Unclassified, state.Transactions[i].Explanation, audit.MethodError,
			"Nenhuma regra correspondeu e o classificador externo não foi acionado", &zero)
	}
	state.Unresolved = nil
	return nil
}

// EnsureClassifiedStep verifies the run's postcondition: every transaction
// carries a category, even if only the sentinel.
type EnsureClassifiedStep struct{}

func (s *EnsureClassifiedStep) Execute(ctx context.Context, state *State) error {
	for _, tx := range state.Transactions {
		if !tx.Classified() {
			return fmt.Errorf("transaction %d left without a category", tx.ID)
		}
	}
	return nil
}
