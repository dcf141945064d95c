// Package audit implements the append-only decision log for one pipeline
// run: every classification outcome (rule, AI, or error) is recorded exactly
// once, plus any period comparisons performed by the aggregator. The log is
// handed to the caller at run completion, never held as global state.
package audit

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dvloznov/finance-classifier/internal/domain"
	"github.com/google/uuid"
)

// Method tags how a classification decision was made.
type Method string

const (
	MethodRule  Method = "rule"
	MethodAI    Method = "ai"
	MethodError Method = "error"
)

// Input is the snapshot of the transaction fields the decision was based on.
type Input struct {
	Description string           `json:"description"`
	Direction   domain.Direction `json:"direction"`
	Amount      float64          `json:"amount"`
}

// Classification is one recorded classification decision.
type Classification struct {
	Timestamp     time.Time `json:"timestamp"`
	TransactionID int       `json:"transaction_id"`
	Input         Input     `json:"input"`
	Category      string    `json:"category"`
	Explanation   string    `json:"explanation"`
	Method        Method    `json:"method"`
	Reasoning     string    `json:"reasoning"`
	Confidence    *float64  `json:"confidence,omitempty"`
}

// Comparison is one recorded period comparison.
type Comparison struct {
	Timestamp      time.Time `json:"timestamp"`
	Kind           string    `json:"kind"` // e.g. "monthly"
	PeriodA        string    `json:"period_a"`
	PeriodB        string    `json:"period_b"`
	Interpretation string    `json:"interpretation"`
}

// Stats summarizes a log at run end.
type Stats struct {
	SessionID string         `json:"session_id"`
	Total     int            `json:"total"`
	ByMethod  map[Method]int `json:"by_method"`
}

// Log is the run-scoped decision log. Appends are serialized internally, so
// it is safe to record from many in-flight dispatch goroutines.
type Log struct {
	mu              sync.Mutex
	sessionID       string
	started         time.Time
	classifications []Classification
	comparisons     []Comparison
	byMethod        map[Method]int
}

// NewLog creates an empty log for a new pipeline run.
func NewLog() *Log {
	return &Log{
		sessionID: uuid.NewString(),
		started:   time.Now(),
		byMethod:  make(map[Method]int),
	}
}

// SessionID returns the run-scoped identifier of this log.
func (l *Log) SessionID() string {
	return l.sessionID
}

// RecordClassification appends one classification decision. Called exactly
// once per transaction.
func (l *Log) RecordClassification(txID int, in Input, category, explanation string, method Method, reasoning string, confidence *float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.classifications = append(l.classifications, Classification{
		Timestamp:     time.Now(),
		TransactionID: txID,
		Input:         in,
		Category:      category,
		Explanation:   explanation,
		Method:        method,
		Reasoning:     reasoning,
		Confidence:    confidence,
	})
	l.byMethod[method]++
}

// RecordComparison appends one period-comparison record.
func (l *Log) RecordComparison(kind, periodA, periodB, interpretation string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.comparisons = append(l.comparisons, Comparison{
		Timestamp:      time.Now(),
		Kind:           kind,
		PeriodA:        periodA,
		PeriodB:        periodB,
		Interpretation: interpretation,
	})
}

// Classifications returns the recorded decisions in insertion order.
func (l *Log) Classifications() []Classification {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Classification, len(l.classifications))
	copy(out, l.classifications)
	return out
}

// Comparisons returns the recorded comparisons in insertion order.
func (l *Log) Comparisons() []Comparison {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Comparison, len(l.comparisons))
	copy(out, l.comparisons)
	return out
}

// Stats returns the decision totals for this run.
func (l *Log) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	byMethod := make(map[Method]int, len(l.byMethod))
	for m, n := range l.byMethod {
		byMethod[m] = n
	}
	return Stats{
		SessionID: l.sessionID,
		Total:     len(l.classifications) + len(l.comparisons),
		ByMethod:  byMethod,
	}
}

// Render writes a plain-text session summary to w, for audit output.
func (l *Log) Render(w io.Writer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	const rule = "--------------------------------------------------------------------------------"

	if _, err := fmt.Fprintf(w, "Decision log %s\nStarted: %s\nDecisions: %d\n\n",
		l.sessionID, l.started.Format(time.RFC3339), len(l.classifications)+len(l.comparisons)); err != nil {
		return err
	}

	fmt.Fprintf(w, "Methods:\n")
	for _, m := range []Method{MethodRule, MethodAI, MethodError} {
		if n := l.byMethod[m]; n > 0 {
			fmt.Fprintf(w, "  %s: %d\n", m, n)
		}
	}
	fmt.Fprintln(w)

	if len(l.classifications) > 0 {
		fmt.Fprintf(w, "%s\nClassifications (%d)\n%s\n", rule, len(l.classifications), rule)
		limit := len(l.classifications)
		if limit > 5 {
			limit = 5
		}
		for i := 0; i < limit; i++ {
			c := l.classifications[i]
			fmt.Fprintf(w, "%d. tx %d [%s] %q -> %s\n   %s\n",
				i+1, c.TransactionID, c.Method, truncate(c.Input.Description, 60), c.Category, truncate(c.Reasoning, 100))
		}
		fmt.Fprintln(w)
	}

	if len(l.comparisons) > 0 {
		fmt.Fprintf(w, "%s\nComparisons (%d)\n%s\n", rule, len(l.comparisons), rule)
		for i, c := range l.comparisons {
			fmt.Fprintf(w, "%d. %s: %s vs %s\n   %s\n", i+1, c.Kind, c.PeriodA, c.PeriodB, truncate(c.Interpretation, 150))
		}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
