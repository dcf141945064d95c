package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/dvloznov/finance-classifier/internal/audit"
	"github.com/dvloznov/finance-classifier/internal/domain"
	"github.com/dvloznov/finance-classifier/internal/rules"
	"github.com/dvloznov/finance-classifier/internal/taxonomy"
	"github.com/rs/zerolog"
)

// stubBatch classifies everything with a fixed category, except descriptions
// listed in fail, which come back as the sentinel the real dispatcher would
// produce on error.
type stubBatch struct {
	category string
	fail     map[string]bool
	log      *audit.Log
	calls    int
}

func (s *stubBatch) ClassifyBatch(ctx context.Context, unresolved []domain.Transaction) []domain.Transaction {
	s.calls++
	out := make([]domain.Transaction, len(unresolved))
	copy(out, unresolved)
	for i := range out {
		in := audit.Input{Description: out[i].Description, Direction: out[i].Direction, Amount: out[i].Amount}
		if s.fail[out[i].Description] {
			zero := 0.0
			out[i].Category = taxonomy.Unclassified
			out[i].Explanation = "Erro na classificação: falha simulada"
			s.log.RecordClassification(out[i].ID, in, out[i].Category, out[i].Explanation, audit.MethodError, "falha simulada", &zero)
			continue
		}
		out[i].Category = s.category
		out[i].Explanation = "classificado externamente"
		s.log.RecordClassification(out[i].ID, in, out[i].Category, out[i].Explanation, audit.MethodAI, "stub", nil)
	}
	return out
}

func tx(id int, desc string, dir domain.Direction, amount float64) domain.Transaction {
	return domain.Transaction{ID: id, Date: "05/01/2025", Description: desc, Direction: dir, Amount: amount}
}

func TestRunMixedBatch(t *testing.T) {
	log := audit.NewLog()
	batch := &stubBatch{category: taxonomy.Other, fail: map[string]bool{"FALHA SEMPRE": true}, log: log}
	r := NewRunner(rules.Default(), batch, log, zerolog.Nop())

	input := []domain.Transaction{
		tx(1, "PIX RECEBIDO JOAO", domain.DirectionCredit, 150),
		tx(2, "PAGAMENTO SEGURO AUTO", domain.DirectionDebit, -90),
		tx(3, "PADARIA PAO QUENTE", domain.DirectionDebit, -25),
		tx(4, "FALHA SEMPRE", domain.DirectionDebit, -10),
	}

	res, err := r.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Transactions) != 4 {
		t.Fatalf("got %d transactions, want 4", len(res.Transactions))
	}

	// Output preserves input order and every row ends up classified.
	want := map[int]string{
		1: taxonomy.TransferIn,
		2: taxonomy.Insurance,
		3: taxonomy.Other,
		4: taxonomy.Unclassified,
	}
	for i, out := range res.Transactions {
		if out.ID != input[i].ID {
			t.Errorf("position %d: ID = %d, want %d", i, out.ID, input[i].ID)
		}
		if out.Category != want[out.ID] {
			t.Errorf("transaction %d: category = %q, want %q", out.ID, out.Category, want[out.ID])
		}
		if !out.Classified() {
			t.Errorf("transaction %d left unclassified", out.ID)
		}
	}

	// The input slice itself stays untouched.
	for _, in := range input {
		if in.Category != "" {
			t.Errorf("input transaction %d was mutated", in.ID)
		}
	}

	// One decision per transaction, split across methods.
	if res.Stats.Total != 4 {
		t.Errorf("decisions = %d, want 4", res.Stats.Total)
	}
	if got := res.Stats.ByMethod[audit.MethodRule]; got != 2 {
		t.Errorf("rule decisions = %d, want 2", got)
	}
	if got := res.Stats.ByMethod[audit.MethodAI]; got != 1 {
		t.Errorf("ai decisions = %d, want 1", got)
	}
	if got := res.Stats.ByMethod[audit.MethodError]; got != 1 {
		t.Errorf("error decisions = %d, want 1", got)
	}
}

func TestRunSkipsPreClassified(t *testing.T) {
	log := audit.NewLog()
	batch := &stubBatch{category: taxonomy.Other, log: log}
	r := NewRunner(rules.Default(), batch, log, zerolog.Nop())

	pre := tx(1, "PIX RECEBIDO", domain.DirectionCredit, 100)
	pre.Category = taxonomy.Gympass // manual override from a previous run

	res, err := r.Run(context.Background(), []domain.Transaction{pre})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Transactions[0].Category != taxonomy.Gympass {
		t.Errorf("pre-classified category overwritten: %q", res.Transactions[0].Category)
	}
	if got := len(log.Classifications()); got != 0 {
		t.Errorf("pre-classified transaction produced %d decisions, want 0", got)
	}
	if batch.calls != 0 {
		t.Error("pre-classified transaction was dispatched")
	}
}

func TestRunWithoutDispatcher(t *testing.T) {
	log := audit.NewLog()
	r := NewRunner(rules.Default(), nil, log, zerolog.Nop())

	res, err := r.Run(context.Background(), []domain.Transaction{
		tx(1, "SEGURO RESIDENCIAL", domain.DirectionDebit, -40),
		tx(2, "PADARIA PAO QUENTE", domain.DirectionDebit, -25),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Transactions[0].Category != taxonomy.Insurance {
		t.Errorf("rule hit = %q, want %q", res.Transactions[0].Category, taxonomy.Insurance)
	}
	// Without a dispatcher, rule misses still come out classified, as the
	// sentinel.
	if res.Transactions[1].Category != taxonomy.Unclassified {
		t.Errorf("rule miss = %q, want %q", res.Transactions[1].Category, taxonomy.Unclassified)
	}
	if got := res.Stats.ByMethod[audit.MethodError]; got != 1 {
		t.Errorf("error decisions = %d, want 1", got)
	}
}

func TestRunEmptyBatch(t *testing.T) {
	log := audit.NewLog()
	r := NewRunner(rules.Default(), nil, log, zerolog.Nop())

	res, err := r.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Transactions) != 0 {
		t.Errorf("got %d transactions, want 0", len(res.Transactions))
	}
	if res.RunID == "" {
		t.Error("missing run id")
	}
}

// dropBatch simulates a dispatcher that loses a transaction: the run must
// fail rather than return a partially classified batch.
type dropBatch struct{}

func (dropBatch) ClassifyBatch(ctx context.Context, unresolved []domain.Transaction) []domain.Transaction {
	return nil
}

func TestRunFailsWhenDispatchDropsTransactions(t *testing.T) {
	log := audit.NewLog()
	r := NewRunner(rules.Default(), dropBatch{}, log, zerolog.Nop())

	_, err := r.Run(context.Background(), []domain.Transaction{
		tx(1, "PADARIA PAO QUENTE", domain.DirectionDebit, -25),
	})
	if err == nil {
		t.Fatal("expected error for dropped transaction")
	}
	if !strings.Contains(err.Error(), "without a category") {
		t.Errorf("unexpected error: %v", err)
	}
}
