// Package pipeline orchestrates the classification run: deterministic rules
// first, then the external classifier for whatever the rules left open, then
// a verification sweep. Each step reads and mutates a shared run state.
package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-classifier/internal/audit"
	"github.com/dvloznov/finance-classifier/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Step is a single stage of the classification pipeline.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State is the shared state threaded through the pipeline steps.
type State struct {
	RunID        string
	Transactions []domain.Transaction
	// Unresolved indexes the transactions the rule stage left without a
	// category. The dispatch stage consumes it; later stages see it empty.
	Unresolved []int
	Log        *audit.Log
	Logger     zerolog.Logger
}

// Pipeline executes a sequence of steps in order, stopping at the first
// failing step.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially against the state.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Result is the outcome of one classification run.
type Result struct {
	RunID        string
	Transactions []domain.Transaction
	Log          *audit.Log
	Stats        audit.Stats
}

// Runner wires the standard classification pipeline. The dispatcher is
// optional: without one, transactions the rules cannot resolve are marked
// with the Unclassified sentinel instead of being sent out.
type Runner struct {
	pipeline *Pipeline
	log      *audit.Log
	logger   zerolog.Logger
}

// NewRunner builds a runner around the standard step sequence.
func NewRunner(engine RuleClassifier, dispatcher BatchClassifier, log *audit.Log, logger zerolog.Logger) *Runner {
	steps := []Step{
		&ApplyRulesStep{Engine: engine},
	}
	if dispatcher != nil {
		steps = append(steps, &DispatchStep{Dispatcher: dispatcher})
	}
	steps = append(steps,
		&MarkUnclassifiedStep{},
		&EnsureClassifiedStep{},
	)
	return &Runner{
		pipeline: NewPipeline(steps...),
		log:      log,
		logger:   logger.With().Str("component", "pipeline").Logger(),
	}
}

// Run classifies the batch. The input slice is not modified; the returned
// transactions are in input order, every one carrying a category.
func (r *Runner) Run(ctx context.Context, txs []domain.Transaction) (*Result, error) {
	working := make([]domain.Transaction, len(txs))
	copy(working, txs)

	state := &State{
		RunID:        uuid.NewString(),
		Transactions: working,
		Log:          r.log,
		Logger:       r.logger,
	}

	r.logger.Info().
		Str("run_id", state.RunID).
		Int("transactions", len(working)).
		Msg("Classification run started")

	if err := r.pipeline.Execute(ctx, state); err != nil {
		return nil, err
	}

	stats := r.log.Stats()
	r.logger.Info().
		Str("run_id", state.RunID).
		Int("rule", stats.ByMethod[audit.MethodRule]).
		Int("ai", stats.ByMethod[audit.MethodAI]).
		Int("error", stats.ByMethod[audit.MethodError]).
		Msg("Classification run finished")

	return &Result{
		RunID:        state.RunID,
		Transactions: state.Transactions,
		Log:          r.log,
		Stats:        stats,
	}, nil
}
