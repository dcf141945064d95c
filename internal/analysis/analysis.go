// Package analysis derives financial views from a classified transaction
// set: income statement (DRE), cash-flow statement (DFC), per-category
// summaries, monthly trend, period comparisons, and the executive summary.
// Everything here is a pure recomputation over the inputs; calling any
// function twice with the same data yields identical output.
package analysis

import (
	"errors"
	"sort"

	"github.com/dvloznov/finance-classifier/internal/audit"
	"github.com/dvloznov/finance-classifier/internal/domain"
	"github.com/dvloznov/finance-classifier/internal/taxonomy"
	"github.com/rs/zerolog"
)

var (
	// ErrEmptyInput means no report can be produced: there is not a single
	// transaction to aggregate.
	ErrEmptyInput = errors.New("analysis: empty transaction set")

	// ErrInsufficientData marks a period comparison where one side has no
	// transactions. It is an inspectable no-result, not a failure.
	ErrInsufficientData = errors.New("analysis: insufficient data for comparison")
)

// Analyzer computes all derived views against one taxonomy. The audit log is
// optional; when present, period comparisons are recorded on it.
type Analyzer struct {
	tax    *taxonomy.Taxonomy
	log    *audit.Log
	logger zerolog.Logger
}

// New creates an analyzer. log may be nil.
func New(tax *taxonomy.Taxonomy, log *audit.Log, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		tax:    tax,
		log:    log,
		logger: logger.With().Str("component", "analysis").Logger(),
	}
}

// Enrich joins each transaction's category to its chart-of-accounts entry,
// populating the account code. Transactions whose category does not resolve
// keep an empty code: they are excluded from statement rollups but remain in
// category summaries. The input slice is not modified.
func (a *Analyzer) Enrich(txs []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(txs))
	copy(out, txs)

	for i := range out {
		if e, ok := a.tax.Lookup(out[i].Category); ok {
			out[i].AccountCode = e.Code
		}
	}
	return out
}

// Line is one (level1, level2, amount) detail row of a statement.
type Line struct {
	Level1 string  `json:"level1"`
	Level2 string  `json:"level2"`
	Amount float64 `json:"amount"`
}

// groupLines sums transaction amounts per (level1, level2) statement line.
// Transactions whose category has no level-1 label for the selected
// statement are skipped. Output is sorted by (level1, level2) so repeated
// runs produce identical detail lists.
func (a *Analyzer) groupLines(txs []domain.Transaction, labels func(taxonomy.Entry) (string, string)) []Line {
	type key struct{ n1, n2 string }
	sums := make(map[key]float64)

	for _, tx := range txs {
		e, ok := a.tax.Lookup(tx.Category)
		if !ok {
			continue
		}
		n1, n2 := labels(e)
		if n1 == "" {
			continue
		}
		sums[key{n1, n2}] += tx.Amount
	}

	lines := make([]Line, 0, len(sums))
	for k, v := range sums {
		lines = append(lines, Line{Level1: k.n1, Level2: k.n2, Amount: v})
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Level1 != lines[j].Level1 {
			return lines[i].Level1 < lines[j].Level1
		}
		return lines[i].Level2 < lines[j].Level2
	})
	return lines
}
