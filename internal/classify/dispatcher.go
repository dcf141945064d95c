package classify

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/finance-classifier/internal/audit"
	"github.com/dvloznov/finance-classifier/internal/domain"
	"github.com/dvloznov/finance-classifier/internal/taxonomy"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds dispatcher tuning.
type Config struct {
	// ChunkSize bounds progress-reporting granularity; chunk order does not
	// affect correctness.
	ChunkSize int
	// MaxConcurrency is the hard ceiling on simultaneously outstanding
	// classifier calls, across all chunks.
	MaxConcurrency int
	// Limiter paces calls to the external capability. Nil means no pacing.
	Limiter *rate.Limiter
}

// DefaultConfig returns the default dispatcher tuning.
func DefaultConfig() Config {
	return Config{
		ChunkSize:      50,
		MaxConcurrency: 6,
	}
}

// Dispatcher fans unresolved transactions out to the external classifier.
// A single item's failure never aborts the batch: the failing transaction is
// downgraded to the Unclassified sentinel with the reason recorded.
type Dispatcher struct {
	classifier Classifier
	log        *audit.Log
	cfg        Config
	logger     zerolog.Logger
}

// NewDispatcher creates a dispatcher. The audit log receives exactly one
// record per dispatched transaction.
func NewDispatcher(classifier Classifier, log *audit.Log, cfg Config, logger zerolog.Logger) *Dispatcher {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultConfig().MaxConcurrency
	}
	return &Dispatcher{
		classifier: classifier,
		log:        log,
		cfg:        cfg,
		logger:     logger.With().Str("component", "dispatcher").Logger(),
	}
}

// ClassifyBatch classifies every transaction in unresolved and returns a new
// slice in the same order with category and explanation filled in. Results
// are re-associated by transaction ID, not by completion order.
func (d *Dispatcher) ClassifyBatch(ctx context.Context, unresolved []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(unresolved))
	copy(out, unresolved)

	if len(out) == 0 {
		return out
	}

	sem := semaphore.NewWeighted(int64(d.cfg.MaxConcurrency))

	byID := make(map[int]int, len(out))
	for i := range out {
		byID[out[i].ID] = i
	}

	results := make(map[int]Result, len(out))
	var mu sync.Mutex

	chunks := (len(out) + d.cfg.ChunkSize - 1) / d.cfg.ChunkSize
	for start := 0; start < len(out); start += d.cfg.ChunkSize {
		end := start + d.cfg.ChunkSize
		if end > len(out) {
			end = len(out)
		}
		chunk := out[start:end]

		var wg sync.WaitGroup
		for i := range chunk {
			tx := chunk[i]
			wg.Add(1)
			go func() {
				defer wg.Done()
				res := d.classifyOne(ctx, sem, tx)
				mu.Lock()
				results[tx.ID] = res
				mu.Unlock()
			}()
		}
		wg.Wait()

		d.logger.Info().
			Int("chunk", start/d.cfg.ChunkSize+1).
			Int("chunks", chunks).
			Int("classified", end).
			Int("total", len(out)).
			Msg("Chunk classified")
	}

	for id, res := range results {
		i := byID[id]
		out[i].Category = res.Category
		out[i].Explanation = res.Explanation
	}

	return out
}

// classifyOne performs one bounded call and records the decision. Failures
// (network, malformed response, out-of-set category) yield the Unclassified
// sentinel; there is no retry.
func (d *Dispatcher) classifyOne(ctx context.Context, sem *semaphore.Weighted, tx domain.Transaction) Result {
	req := requestInput(tx)
	in := audit.Input{Description: req.Description, Direction: req.Direction, Amount: req.Amount}

	if err := sem.Acquire(ctx, 1); err != nil {
		return d.failure(tx.ID, in, err)
	}
	defer sem.Release(1)

	if d.cfg.Limiter != nil {
		if err := d.cfg.Limiter.Wait(ctx); err != nil {
			return d.failure(tx.ID, in, err)
		}
	}

	res, err := d.classifier.Classify(ctx, req)
	if err != nil {
		return d.failure(tx.ID, in, err)
	}

	d.log.RecordClassification(tx.ID, in, res.Category, res.Explanation, audit.MethodAI,
		fmt.Sprintf("IA analisou a descrição %q e classificou como %q. Explicação: %s",
			truncateDesc(req.Description), res.Category, res.Explanation), nil)

	return res
}

func (d *Dispatcher) failure(txID int, in audit.Input, err error) Result {
	d.logger.Warn().Err(err).Int("transaction_id", txID).Msg("Classification failed, downgrading to Unclassified")

	res := Result{
		Category:    taxonomy.Unclassified,
		Explanation: fmt.Sprintf("Erro na classificação: %v", err),
	}

	zero := 0.0
	d.log.RecordClassification(txID, in, res.Category, res.Explanation, audit.MethodError,
		fmt.Sprintf("Erro ao classificar: %v", err), &zero)

	return res
}

func truncateDesc(s string) string {
	r := []rune(s)
	if len(r) <= 50 {
		return s
	}
	return string(r[:50]) + "..."
}
