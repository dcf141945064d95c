package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dvloznov/finance-classifier/internal/domain"
)

// CategorySummary aggregates the raw transactions of one category.
type CategorySummary struct {
	Category  string  `json:"category"`
	Total     float64 `json:"total"`
	Count     int     `json:"count"`
	Mean      float64 `json:"mean"`
	FirstDate string  `json:"first_date"`
	LastDate  string  `json:"last_date"`
}

// MonthlyPoint is one month of the trend series: revenue = positive amounts,
// expense = |negative amounts|, balance = revenue - expense.
type MonthlyPoint struct {
	Month   string  `json:"month"` // YYYY-MM
	Revenue float64 `json:"revenue"`
	Expense float64 `json:"expense"`
	Balance float64 `json:"balance"`
}

// CategorySummaries groups raw transactions by category, sorted descending
// by absolute total; ties keep first-seen category order.
func (a *Analyzer) CategorySummaries(txs []domain.Transaction) []CategorySummary {
	index := make(map[string]int)
	var out []CategorySummary
	first := make(map[string]time.Time)
	last := make(map[string]time.Time)

	for _, tx := range txs {
		i, ok := index[tx.Category]
		if !ok {
			i = len(out)
			index[tx.Category] = i
			out = append(out, CategorySummary{Category: tx.Category, FirstDate: tx.Date, LastDate: tx.Date})
		}
		out[i].Total += tx.Amount
		out[i].Count++

		if d, err := tx.ParsedDate(); err == nil {
			if f, ok := first[tx.Category]; !ok || d.Before(f) {
				first[tx.Category] = d
				out[i].FirstDate = tx.Date
			}
			if l, ok := last[tx.Category]; !ok || d.After(l) {
				last[tx.Category] = d
				out[i].LastDate = tx.Date
			}
		}
	}

	for i := range out {
		out[i].Mean = out[i].Total / float64(out[i].Count)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Total) > math.Abs(out[j].Total)
	})
	return out
}

// MonthlyTrend groups transactions by calendar month, ascending. Rows whose
// date does not parse in the ingestion layout are dropped and counted; the
// returned month set is exactly the set of months present in the data.
func (a *Analyzer) MonthlyTrend(txs []domain.Transaction) ([]MonthlyPoint, int) {
	byMonth := make(map[string]*MonthlyPoint)
	dropped := 0

	for _, tx := range txs {
		month, err := tx.MonthKey()
		if err != nil {
			dropped++
			continue
		}
		p, ok := byMonth[month]
		if !ok {
			p = &MonthlyPoint{Month: month}
			byMonth[month] = p
		}
		if tx.Amount > 0 {
			p.Revenue += tx.Amount
		} else {
			p.Expense += math.Abs(tx.Amount)
		}
	}

	if dropped > 0 {
		a.logger.Warn().Int("dropped", dropped).Msg("Transactions with unparseable dates excluded from monthly trend")
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	out := make([]MonthlyPoint, 0, len(months))
	for _, m := range months {
		p := byMonth[m]
		p.Balance = p.Revenue - p.Expense
		out = append(out, *p)
	}
	return out, dropped
}

// PeriodSnapshot is one month's side of a comparison.
type PeriodSnapshot struct {
	Month        string  `json:"month"`
	Revenue      float64 `json:"revenue"`
	Expense      float64 `json:"expense"`
	Balance      float64 `json:"balance"`
	Transactions int     `json:"transactions"`
}

// PeriodComparison compares two calendar months with signed and percentage
// deltas. Percentages are 0 when the base value gives no meaningful ratio.
type PeriodComparison struct {
	A PeriodSnapshot `json:"period_a"`
	B PeriodSnapshot `json:"period_b"`

	RevenuePct float64 `json:"revenue_pct"`
	RevenueAbs float64 `json:"revenue_abs"`
	ExpensePct float64 `json:"expense_pct"`
	ExpenseAbs float64 `json:"expense_abs"`
	BalancePct float64 `json:"balance_pct"`
	BalanceAbs float64 `json:"balance_abs"`
}

func snapshot(txs []domain.Transaction, month string) PeriodSnapshot {
	s := PeriodSnapshot{Month: month}
	for _, tx := range txs {
		m, err := tx.MonthKey()
		if err != nil || m != month {
			continue
		}
		s.Transactions++
		if tx.Amount > 0 {
			s.Revenue += tx.Amount
		} else {
			s.Expense += math.Abs(tx.Amount)
		}
	}
	s.Balance = s.Revenue - s.Expense
	return s
}

// ComparePeriods compares monthA against monthB. When either month has no
// transactions it returns ErrInsufficientData: the caller gets an explicit
// no-result, never fabricated zeros presented as real data.
func (a *Analyzer) ComparePeriods(txs []domain.Transaction, monthA, monthB string) (PeriodComparison, error) {
	sa := snapshot(txs, monthA)
	sb := snapshot(txs, monthB)

	if sa.Transactions == 0 || sb.Transactions == 0 {
		a.logger.Warn().
			Str("month_a", monthA).Int("transactions_a", sa.Transactions).
			Str("month_b", monthB).Int("transactions_b", sb.Transactions).
			Msg("Insufficient data for period comparison")
		return PeriodComparison{}, fmt.Errorf("%w: %s has %d transactions, %s has %d",
			ErrInsufficientData, monthA, sa.Transactions, monthB, sb.Transactions)
	}

	cmp := PeriodComparison{
		A:          sa,
		B:          sb,
		RevenueAbs: sb.Revenue - sa.Revenue,
		ExpenseAbs: sb.Expense - sa.Expense,
		BalanceAbs: sb.Balance - sa.Balance,
	}
	if sa.Revenue > 0 {
		cmp.RevenuePct = (sb.Revenue - sa.Revenue) / sa.Revenue * 100
	}
	if sa.Expense > 0 {
		cmp.ExpensePct = (sb.Expense - sa.Expense) / sa.Expense * 100
	}
	if sa.Balance != 0 {
		cmp.BalancePct = (sb.Balance - sa.Balance) / math.Abs(sa.Balance) * 100
	}

	if a.log != nil {
		a.log.RecordComparison("monthly", monthA, monthB,
			fmt.Sprintf("Receita variou %.1f%%, despesa %.1f%%, saldo %.1f%%", cmp.RevenuePct, cmp.ExpensePct, cmp.BalancePct))
	}

	return cmp, nil
}

// CompareAllConsecutiveMonths runs ComparePeriods over every adjacent pair
// of months present in the data, skipping pairs with insufficient data.
func (a *Analyzer) CompareAllConsecutiveMonths(txs []domain.Transaction) []PeriodComparison {
	set := make(map[string]bool)
	for _, tx := range txs {
		if m, err := tx.MonthKey(); err == nil {
			set[m] = true
		}
	}

	months := make([]string, 0, len(set))
	for m := range set {
		months = append(months, m)
	}
	sort.Strings(months)

	var out []PeriodComparison
	for i := 0; i+1 < len(months); i++ {
		cmp, err := a.ComparePeriods(txs, months[i], months[i+1])
		if err != nil {
			continue
		}
		out = append(out, cmp)
	}
	return out
}
