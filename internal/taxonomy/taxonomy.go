// Package taxonomy holds the closed set of transaction categories and the
// chart of accounts that maps each category to its income-statement (DRE)
// and cash-flow-statement (DFC) lines. The set is built once per run and
// treated as read-only afterwards.
package taxonomy

import (
	"strings"
)

// Well-known category labels. The label is what the rule engine and the
// external classifier produce; some labels carry the account code as a
// "code - name" prefix, mirroring the chart-of-accounts convention.
const (
	Unclassified        = "Nao classificado"
	OwnTransferIn       = "(+) Transferencia Entre Contas"
	OwnTransferOut      = "(-) Transferencia Entre Contas"
	InvestmentRedeem    = "Resgate Aplicação Financeira"
	FinancialInvestment = "0.006 - Aplicação Financeira"
	TransferIn          = "Entrada de Transferência"
	TransferOut         = "Saída de Transferência"
	ServiceRevenue      = "Receita com Venda de Serviços"
	Gympass             = "Gympass"
	Insurance           = "Seguros"
	Consortium          = "Consórcios"
	Investment          = "Investimento"
	SalesTaxes          = "Impostos e Taxas"
	ServiceCosts        = "Custos de Serviços Prestados"
	AdminExpenses       = "Despesas Administrativas"
	Payroll             = "Folha de Pagamento"
	OpeningBalance      = "Saldo Inicial"
	Other               = "Outros"
)

// Entry is one chart-of-accounts row: a category of the closed set together
// with its statement-line labels. Empty DRE/DFC labels mean the category does
// not feed that statement (it still appears in category summaries).
type Entry struct {
	Code  string // account code, e.g. "0.006"
	Label string // classification label, member of the closed set
	Group string // parent group, informational

	DREN1 string // income-statement level-1 line
	DREN2 string // income-statement level-2 line
	DFCN1 string // cash-flow level-1 line
	DFCN2 string // cash-flow level-2 line
}

// Taxonomy is the closed category set with code- and label-keyed lookup.
type Taxonomy struct {
	order   []Entry
	byLabel map[string]Entry
	byCode  map[string]Entry
}

// New builds a taxonomy from the given chart-of-accounts rows. The
// Unclassified sentinel is always a member, whether listed or not.
func New(entries []Entry) *Taxonomy {
	t := &Taxonomy{
		byLabel: make(map[string]Entry, len(entries)+1),
		byCode:  make(map[string]Entry, len(entries)+1),
	}
	for _, e := range entries {
		t.add(e)
	}
	if _, ok := t.byLabel[Unclassified]; !ok {
		t.add(Entry{Code: "9.998", Label: Unclassified, Group: "Sem Classificação"})
	}
	return t
}

func (t *Taxonomy) add(e Entry) {
	if _, dup := t.byLabel[e.Label]; dup {
		return
	}
	t.order = append(t.order, e)
	t.byLabel[e.Label] = e
	if e.Code != "" {
		t.byCode[e.Code] = e
	}
}

// Valid reports whether the label belongs to the closed category set.
func (t *Taxonomy) Valid(label string) bool {
	_, ok := t.byLabel[label]
	return ok
}

// Lookup resolves a classification label to its chart-of-accounts entry.
// It first tries the code extracted from a "code - name" label, then the
// label itself, so both spellings of a coded category resolve.
func (t *Taxonomy) Lookup(label string) (Entry, bool) {
	if e, ok := t.byCode[ExtractCode(label)]; ok {
		return e, true
	}
	e, ok := t.byLabel[label]
	return e, ok
}

// Labels returns the closed set in declaration order.
func (t *Taxonomy) Labels() []string {
	out := make([]string, len(t.order))
	for i, e := range t.order {
		out[i] = e.Label
	}
	return out
}

// Entries returns a copy of the chart-of-accounts rows in declaration order.
func (t *Taxonomy) Entries() []Entry {
	out := make([]Entry, len(t.order))
	copy(out, t.order)
	return out
}

// ExtractCode returns the account code prefix of a "code - name" label, or
// the label unchanged when it carries no code.
func ExtractCode(label string) string {
	if idx := strings.Index(label, " - "); idx > 0 {
		return strings.TrimSpace(label[:idx])
	}
	return label
}

// Default returns the built-in chart of accounts. Statement-line labels are
// load-bearing: the aggregator routes amounts into statement buckets by
// substring matching on these labels.
func Default() *Taxonomy {
	return New([]Entry{
		{Code: "1.001", Label: ServiceRevenue, Group: "Receitas",
			DREN1: "Receita Bruta", DREN2: "Venda de Serviços",
			DFCN1: "Operacional", DFCN2: "Recebimentos de Clientes"},
		{Code: "1.002", Label: Gympass, Group: "Receitas",
			DREN1: "Receita Bruta", DREN2: "Parcerias",
			DFCN1: "Operacional", DFCN2: "Recebimentos de Clientes"},
		{Code: "1.900", Label: SalesTaxes, Group: "Deduções",
			DREN1: "(-) Deduções da Receita Líquida", DREN2: "Impostos sobre Vendas",
			DFCN1: "Operacional", DFCN2: "Pagamentos de Impostos"},
		{Code: "2.001", Label: ServiceCosts, Group: "Custos",
			DREN1: "(-) Custos", DREN2: "Custo dos Serviços Prestados",
			DFCN1: "Operacional", DFCN2: "Pagamentos a Fornecedores"},
		{Code: "2.002", Label: AdminExpenses, Group: "Despesas",
			DREN1: "Despesa Operacional", DREN2: "Despesas Administrativas",
			DFCN1: "Operacional", DFCN2: "Pagamentos Operacionais"},
		{Code: "2.003", Label: Insurance, Group: "Despesas",
			DREN1: "Despesa Operacional", DREN2: "Seguros",
			DFCN1: "Operacional", DFCN2: "Pagamentos Operacionais"},
		{Code: "2.004", Label: Consortium, Group: "Financiamentos",
			DREN1: "Despesa Operacional", DREN2: "Consórcios",
			DFCN1: "Financiamento", DFCN2: "Consórcios"},
		{Code: "2.005", Label: Payroll, Group: "Despesas",
			DREN1: "Despesa Operacional", DREN2: "Pessoal",
			DFCN1: "Operacional", DFCN2: "Pagamentos de Pessoal"},
		{Code: "0.006", Label: FinancialInvestment, Group: "Investimentos",
			DFCN1: "Investimento", DFCN2: "Aplicações Financeiras"},
		{Code: "0.007", Label: InvestmentRedeem, Group: "Investimentos",
			DFCN1: "Investimento", DFCN2: "Resgates de Aplicações"},
		{Code: "3.001", Label: Investment, Group: "Investimentos",
			DFCN1: "Investimento", DFCN2: "Aplicações Diversas"},
		{Code: "4.001", Label: TransferIn, Group: "Transferências",
			DFCN1: "Movimentação entre Contas", DFCN2: "Entradas"},
		{Code: "4.002", Label: TransferOut, Group: "Transferências",
			DFCN1: "Movimentação entre Contas", DFCN2: "Saídas"},
		{Code: "4.003", Label: OwnTransferIn, Group: "Transferências",
			DFCN1: "Movimentação entre Contas", DFCN2: "Contas Próprias"},
		{Code: "4.004", Label: OwnTransferOut, Group: "Transferências",
			DFCN1: "Movimentação entre Contas", DFCN2: "Contas Próprias"},
		{Code: "0.001", Label: OpeningBalance, Group: "Saldos"},
		{Code: "9.999", Label: Other, Group: "Outros"},
		{Code: "9.998", Label: Unclassified, Group: "Sem Classificação"},
	})
}
