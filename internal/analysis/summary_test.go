package analysis

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dvloznov/finance-classifier/internal/audit"
	"github.com/dvloznov/finance-classifier/internal/domain"
	"github.com/dvloznov/finance-classifier/internal/taxonomy"
	"github.com/rs/zerolog"
)

func TestCategorySummaries(t *testing.T) {
	a := newAnalyzer()

	txs := []domain.Transaction{
		classified(1, "10/01/2025", "SEGURO", taxonomy.Insurance, -100),
		classified(2, "05/01/2025", "SEGURO", taxonomy.Insurance, -50),
		classified(3, "20/01/2025", "REDE", taxonomy.ServiceRevenue, 400),
		classified(4, "15/01/2025", "GYMPASS", taxonomy.Gympass, 30),
	}

	sums := a.CategorySummaries(txs)

	if len(sums) != 3 {
		t.Fatalf("got %d summaries, want 3", len(sums))
	}

	// Descending by absolute total.
	if sums[0].Category != taxonomy.ServiceRevenue || sums[1].Category != taxonomy.Insurance || sums[2].Category != taxonomy.Gympass {
		t.Errorf("unexpected order: %s, %s, %s", sums[0].Category, sums[1].Category, sums[2].Category)
	}

	ins := sums[1]
	if ins.Total != -150 || ins.Count != 2 || !almostEqual(ins.Mean, -75) {
		t.Errorf("insurance summary = %+v", ins)
	}
	// First/last are chronological, not input order.
	if ins.FirstDate != "05/01/2025" || ins.LastDate != "10/01/2025" {
		t.Errorf("insurance dates = %s..%s", ins.FirstDate, ins.LastDate)
	}
}

func TestCategorySummariesTieKeepsFirstSeenOrder(t *testing.T) {
	a := newAnalyzer()

	txs := []domain.Transaction{
		classified(1, "05/01/2025", "x", taxonomy.Gympass, 100),
		classified(2, "06/01/2025", "y", taxonomy.Insurance, -100),
	}

	sums := a.CategorySummaries(txs)
	if sums[0].Category != taxonomy.Gympass {
		t.Errorf("tie must keep first-seen order, got %s first", sums[0].Category)
	}
}

func TestMonthlyTrend(t *testing.T) {
	a := newAnalyzer()

	txs := []domain.Transaction{
		classified(1, "05/01/2025", "a", taxonomy.ServiceRevenue, 100),
		classified(2, "20/01/2025", "b", taxonomy.Insurance, -40),
		classified(3, "01/02/2025", "c", taxonomy.ServiceRevenue, 200),
	}

	trend, dropped := a.MonthlyTrend(txs)

	if dropped != 0 {
		t.Errorf("dropped = %d, want 0", dropped)
	}

	months := make([]string, len(trend))
	for i, p := range trend {
		months[i] = p.Month
	}
	if !reflect.DeepEqual(months, []string{"2025-01", "2025-02"}) {
		t.Fatalf("months = %v, want exactly [2025-01 2025-02]", months)
	}

	jan := trend[0]
	if !almostEqual(jan.Revenue, 100) || !almostEqual(jan.Expense, 40) || !almostEqual(jan.Balance, 60) {
		t.Errorf("january = %+v", jan)
	}
}

func TestMonthlyTrendDropsUnparseableDates(t *testing.T) {
	a := newAnalyzer()

	txs := []domain.Transaction{
		classified(1, "05/01/2025", "ok", taxonomy.ServiceRevenue, 100),
		classified(2, "not-a-date", "bad", taxonomy.Insurance, -40),
		classified(3, "2025-01-05", "wrong layout", taxonomy.Insurance, -40),
	}

	trend, dropped := a.MonthlyTrend(txs)

	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if len(trend) != 1 || trend[0].Month != "2025-01" {
		t.Errorf("trend = %+v", trend)
	}
	// The dropped rows must not leak into any month's totals.
	if !almostEqual(trend[0].Expense, 0) {
		t.Errorf("expense = %v, want 0", trend[0].Expense)
	}
}

func TestComparePeriods(t *testing.T) {
	log := audit.NewLog()
	a := New(taxonomy.Default(), log, zerolog.Nop())

	txs := []domain.Transaction{
		classified(1, "05/01/2025", "a", taxonomy.ServiceRevenue, 1000),
		classified(2, "10/01/2025", "b", taxonomy.Insurance, -200),
		classified(3, "05/02/2025", "c", taxonomy.ServiceRevenue, 1500),
		classified(4, "10/02/2025", "d", taxonomy.Insurance, -100),
	}

	cmp, err := a.ComparePeriods(txs, "2025-01", "2025-02")
	if err != nil {
		t.Fatalf("ComparePeriods: %v", err)
	}

	if !almostEqual(cmp.RevenueAbs, 500) || !almostEqual(cmp.RevenuePct, 50) {
		t.Errorf("revenue delta = %v (%v%%)", cmp.RevenueAbs, cmp.RevenuePct)
	}
	if !almostEqual(cmp.ExpenseAbs, -100) || !almostEqual(cmp.ExpensePct, -50) {
		t.Errorf("expense delta = %v (%v%%)", cmp.ExpenseAbs, cmp.ExpensePct)
	}
	if !almostEqual(cmp.BalanceAbs, 600) || !almostEqual(cmp.BalancePct, 75) {
		t.Errorf("balance delta = %v (%v%%)", cmp.BalanceAbs, cmp.BalancePct)
	}

	if got := len(log.Comparisons()); got != 1 {
		t.Errorf("comparisons recorded = %d, want 1", got)
	}
}

func TestComparePeriodsInsufficientData(t *testing.T) {
	a := newAnalyzer()

	txs := []domain.Transaction{
		classified(1, "05/01/2025", "a", taxonomy.ServiceRevenue, 1000),
		classified(2, "05/02/2025", "b", taxonomy.ServiceRevenue, 1500),
	}

	_, err := a.ComparePeriods(txs, "2025-02", "2025-03")
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestComparePeriodsPercentageGuards(t *testing.T) {
	a := newAnalyzer()

	// Base month nets out to a zero balance: the balance percentage must
	// stay 0 instead of dividing by it.
	txs := []domain.Transaction{
		classified(1, "05/01/2025", "a", taxonomy.Insurance, -100),
		classified(2, "06/01/2025", "b", taxonomy.ServiceRevenue, 100),
		classified(3, "05/02/2025", "c", taxonomy.ServiceRevenue, 500),
	}

	cmp, err := a.ComparePeriods(txs, "2025-01", "2025-02")
	if err != nil {
		t.Fatalf("ComparePeriods: %v", err)
	}
	if cmp.BalancePct != 0 {
		t.Errorf("BalancePct = %v, want 0 on zero base", cmp.BalancePct)
	}
	if !almostEqual(cmp.BalanceAbs, 500) {
		t.Errorf("BalanceAbs = %v, want 500", cmp.BalanceAbs)
	}
}

func TestCompareAllConsecutiveMonths(t *testing.T) {
	a := newAnalyzer()

	txs := []domain.Transaction{
		classified(1, "05/01/2025", "a", taxonomy.ServiceRevenue, 100),
		classified(2, "05/02/2025", "b", taxonomy.ServiceRevenue, 200),
		classified(3, "05/03/2025", "c", taxonomy.ServiceRevenue, 300),
	}

	cmps := a.CompareAllConsecutiveMonths(txs)
	if len(cmps) != 2 {
		t.Fatalf("got %d comparisons, want 2", len(cmps))
	}
	if cmps[0].A.Month != "2025-01" || cmps[0].B.Month != "2025-02" {
		t.Errorf("first pair = %s vs %s", cmps[0].A.Month, cmps[0].B.Month)
	}
	if cmps[1].A.Month != "2025-02" || cmps[1].B.Month != "2025-03" {
		t.Errorf("second pair = %s vs %s", cmps[1].A.Month, cmps[1].B.Month)
	}
}
