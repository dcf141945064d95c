package analysis

import (
	"math"
	"strings"

	"github.com/dvloznov/finance-classifier/internal/domain"
	"github.com/dvloznov/finance-classifier/internal/taxonomy"
)

// IncomeStatement is the DRE-equivalent profit waterfall. Detail carries the
// per-line breakdown of tagged transactions; GrossRevenue is system-wide
// (every positive amount), so headline revenue reflects all money in even
// when lines are untagged.
type IncomeStatement struct {
	GrossRevenue      float64 `json:"gross_revenue"`
	Deductions        float64 `json:"deductions"`
	NetRevenue        float64 `json:"net_revenue"`
	Costs             float64 `json:"costs"`
	GrossProfit       float64 `json:"gross_profit"`
	OperatingExpenses float64 `json:"operating_expenses"`
	OperatingResult   float64 `json:"operating_result"`
	OtherIncome       float64 `json:"other_income"`
	OtherExpenses     float64 `json:"other_expenses"`
	NetResult         float64 `json:"net_result"`
	Detail            []Line  `json:"detail"`
}

// CashFlowStatement is the DFC-equivalent rollup of cash movements.
type CashFlowStatement struct {
	Operating      float64 `json:"operating"`
	Investing      float64 `json:"investing"`
	Financing      float64 `json:"financing"`
	Transfers      float64 `json:"transfers"`
	OpeningBalance float64 `json:"opening_balance"`
	FinalBalance   float64 `json:"final_balance"`
	Detail         []Line  `json:"detail"`
}

// IncomeStatement rolls enriched transactions into the DRE buckets. Bucket
// routing is keyword containment on the statement-line labels: "Receita
// Líquida" in level1 routes to deductions, "Lucro Bruto" in level1 or
// "CMV"/"Custo" in level2 to costs, "Despesa" in either level to operating
// expenses. The precedence chain mirrors the label conventions of the chart
// of accounts and is covered explicitly by tests.
func (a *Analyzer) IncomeStatement(txs []domain.Transaction) IncomeStatement {
	st := IncomeStatement{
		Detail: a.groupLines(txs, func(e taxonomy.Entry) (string, string) { return e.DREN1, e.DREN2 }),
	}

	for _, line := range st.Detail {
		n1, n2 := line.Level1, line.Level2
		switch {
		case strings.Contains(n1, "Receita Bruta"):
			// Tagged revenue; the headline figure below supersedes it.
		case strings.Contains(n1, "Receita Líquida"):
			st.Deductions += math.Abs(line.Amount)
		case strings.Contains(n1, "Lucro Bruto") || strings.Contains(n2, "CMV") || strings.Contains(n2, "Custo"):
			st.Costs += math.Abs(line.Amount)
		case strings.Contains(n1, "Despesa") || strings.Contains(n2, "Despesa"):
			st.OperatingExpenses += math.Abs(line.Amount)
		}
	}

	// Headline gross revenue: every positive amount, tagged or not.
	for _, tx := range txs {
		if tx.Amount > 0 {
			st.GrossRevenue += tx.Amount
		}
	}

	st.NetRevenue = st.GrossRevenue - st.Deductions
	st.GrossProfit = st.NetRevenue - st.Costs
	st.OperatingResult = st.GrossProfit - st.OperatingExpenses
	st.NetResult = st.OperatingResult + st.OtherIncome - st.OtherExpenses

	return st
}

// CashFlow rolls enriched transactions into the DFC buckets, again by
// keyword containment on the level-1 label: Operacional, Investimento,
// Financiamento, Movimentação entre Contas. The final balance excludes
// inter-account transfers.
func (a *Analyzer) CashFlow(txs []domain.Transaction) CashFlowStatement {
	st := CashFlowStatement{
		Detail: a.groupLines(txs, func(e taxonomy.Entry) (string, string) { return e.DFCN1, e.DFCN2 }),
	}

	for _, line := range st.Detail {
		switch {
		case strings.Contains(line.Level1, "Operacional"):
			st.Operating += line.Amount
		case strings.Contains(line.Level1, "Investimento"):
			st.Investing += line.Amount
		case strings.Contains(line.Level1, "Financiamento"):
			st.Financing += line.Amount
		case strings.Contains(line.Level1, "Movimentação entre Contas"):
			st.Transfers += line.Amount
		}
	}

	st.FinalBalance = st.OpeningBalance + st.Operating + st.Investing + st.Financing

	return st
}
