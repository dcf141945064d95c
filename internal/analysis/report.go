package analysis

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dvloznov/finance-classifier/internal/domain"
)

// TopEntry is one of the top revenue/expense transactions in the summary.
type TopEntry struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
}

// Summary is the executive headline view over the whole period.
type Summary struct {
	PeriodStart string `json:"period_start"` // dd/mm/yyyy
	PeriodEnd   string `json:"period_end"`
	MonthStart  string `json:"month_start"` // YYYY-MM
	MonthEnd    string `json:"month_end"`

	Revenue float64 `json:"revenue"`
	Expense float64 `json:"expense"`
	Balance float64 `json:"balance"`
	Margin  float64 `json:"margin"` // balance/revenue*100, 0 when revenue <= 0

	Transactions     int     `json:"transactions"`
	RevenueCount     int     `json:"revenue_count"`
	ExpenseCount     int     `json:"expense_count"`
	AvgRevenueTicket float64 `json:"avg_revenue_ticket"`
	AvgExpenseTicket float64 `json:"avg_expense_ticket"`

	TopRevenues []TopEntry `json:"top_revenues"`
	TopExpenses []TopEntry `json:"top_expenses"`
}

// Report bundles every derived view for the reporting collaborators.
type Report struct {
	GeneratedAt  time.Time          `json:"generated_at"`
	Summary      Summary            `json:"summary"`
	Income       IncomeStatement    `json:"income_statement"`
	CashFlow     CashFlowStatement  `json:"cash_flow"`
	Categories   []CategorySummary  `json:"categories"`
	Trend        []MonthlyPoint     `json:"monthly_trend"`
	Comparisons  []PeriodComparison `json:"monthly_comparisons"`
	DroppedDates int                `json:"dropped_dates"`
}

// excluded categories for top lists: intra-entity movements must not
// masquerade as business performance.
func isIntraEntity(category string) bool {
	lower := strings.ToLower(category)
	return strings.Contains(lower, "saldo inicial") || strings.Contains(lower, "transferencia entre contas")
}

// Summary computes the executive summary. It requires at least one real
// transaction; an empty set returns ErrEmptyInput.
func (a *Analyzer) Summary(txs []domain.Transaction) (Summary, error) {
	if len(txs) == 0 {
		return Summary{}, ErrEmptyInput
	}

	s := Summary{Transactions: len(txs)}

	var minDate, maxDate time.Time
	for _, tx := range txs {
		d, err := tx.ParsedDate()
		if err != nil {
			continue
		}
		if minDate.IsZero() || d.Before(minDate) {
			minDate = d
			s.PeriodStart = tx.Date
		}
		if maxDate.IsZero() || d.After(maxDate) {
			maxDate = d
			s.PeriodEnd = tx.Date
		}
	}
	if !minDate.IsZero() {
		s.MonthStart = minDate.Format(domain.MonthKeyLayout)
		s.MonthEnd = maxDate.Format(domain.MonthKeyLayout)
	}

	for _, tx := range txs {
		if tx.Amount > 0 {
			s.Revenue += tx.Amount
			s.RevenueCount++
		} else if tx.Amount < 0 {
			s.Expense += math.Abs(tx.Amount)
			s.ExpenseCount++
		}
	}
	s.Balance = s.Revenue - s.Expense
	if s.Revenue > 0 {
		s.Margin = s.Balance / s.Revenue * 100
	}
	if s.RevenueCount > 0 {
		s.AvgRevenueTicket = s.Revenue / float64(s.RevenueCount)
	}
	if s.ExpenseCount > 0 {
		s.AvgExpenseTicket = s.Expense / float64(s.ExpenseCount)
	}

	s.TopRevenues = topRevenues(txs, 5)
	s.TopExpenses = topExpenses(txs, 5)

	return s, nil
}

func topRevenues(txs []domain.Transaction, n int) []TopEntry {
	var candidates []domain.Transaction
	for _, tx := range txs {
		if tx.Amount <= 0 || isIntraEntity(tx.Category) {
			continue
		}
		// Opening-balance rows sometimes survive upstream dedup; keep them
		// out of the revenue ranking.
		if strings.Contains(strings.ToLower(tx.Description), "saldo") {
			continue
		}
		candidates = append(candidates, tx)
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Amount > candidates[j].Amount })
	return toTopEntries(candidates, n)
}

func topExpenses(txs []domain.Transaction, n int) []TopEntry {
	var candidates []domain.Transaction
	for _, tx := range txs {
		if tx.Amount >= 0 || isIntraEntity(tx.Category) {
			continue
		}
		candidates = append(candidates, tx)
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Amount < candidates[j].Amount })
	return toTopEntries(candidates, n)
}

func toTopEntries(txs []domain.Transaction, n int) []TopEntry {
	if len(txs) > n {
		txs = txs[:n]
	}
	out := make([]TopEntry, 0, len(txs))
	for _, tx := range txs {
		desc := tx.Description
		if r := []rune(desc); len(r) > 50 {
			desc = string(r[:50])
		}
		out = append(out, TopEntry{
			Date:        tx.Date,
			Description: desc,
			Amount:      tx.Amount,
			Category:    tx.Category,
		})
	}
	return out
}

// FullReport computes every derived view over the classified set. The input
// must be fully classified; transactions are enriched here, so callers hand
// in the pipeline output as-is.
func (a *Analyzer) FullReport(txs []domain.Transaction) (*Report, error) {
	if len(txs) == 0 {
		return nil, ErrEmptyInput
	}

	a.logger.Info().Int("transactions", len(txs)).Msg("Generating financial report")

	enriched := a.Enrich(txs)

	summary, err := a.Summary(txs)
	if err != nil {
		return nil, err
	}

	trend, dropped := a.MonthlyTrend(txs)

	return &Report{
		GeneratedAt:  time.Now(),
		Summary:      summary,
		Income:       a.IncomeStatement(enriched),
		CashFlow:     a.CashFlow(enriched),
		Categories:   a.CategorySummaries(txs),
		Trend:        trend,
		Comparisons:  a.CompareAllConsecutiveMonths(txs),
		DroppedDates: dropped,
	}, nil
}
