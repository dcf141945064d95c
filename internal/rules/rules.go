// Package rules implements the deterministic pre-classification rule engine:
// an ordered table of keyword predicates over the upper-cased transaction
// description and its direction. Evaluation stops at the first match.
package rules

import (
	"strings"

	"github.com/dvloznov/finance-classifier/internal/domain"
	"github.com/dvloznov/finance-classifier/internal/taxonomy"
)

// Outcome is the result of a rule match: the category to assign, the
// explanation stored on the transaction, and the reasoning for the audit log.
type Outcome struct {
	Category    string
	Explanation string
	Reasoning   string
}

// Rule is one ordered predicate. Keywords match any-of against the
// upper-cased description. A rule carries either direction-specific outcomes
// (Credit/Debit) or a single direction-agnostic outcome (Any).
type Rule struct {
	Name     string
	Keywords []string

	Credit *Outcome
	Debit  *Outcome
	Any    *Outcome
}

func (r *Rule) matches(upperDesc string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(upperDesc, kw) {
			return true
		}
	}
	return false
}

func (r *Rule) outcome(dir domain.Direction) *Outcome {
	if r.Any != nil {
		return r.Any
	}
	if dir == domain.DirectionCredit {
		return r.Credit
	}
	return r.Debit
}

// Engine evaluates the ordered rule table. It holds no mutable state and is
// safe for use from many goroutines.
type Engine struct {
	rules []Rule
}

// New creates an engine over the given ordered rule table.
func New(rules []Rule) *Engine {
	return &Engine{rules: rules}
}

// Classify runs the transaction through the table in order and returns the
// first matching outcome. ok is false when no rule applies, which signals
// fallthrough to the AI dispatcher, not an error.
func (e *Engine) Classify(tx domain.Transaction) (Outcome, bool) {
	desc := strings.ToUpper(tx.Description)
	for i := range e.rules {
		r := &e.rules[i]
		if !r.matches(desc) {
			continue
		}
		out := r.outcome(tx.Direction)
		if out == nil {
			continue
		}
		return *out, true
	}
	return Outcome{}, false
}

// Default returns the built-in rule table. Order matters: the own-account
// transfer and Rende Fácil rules must run before the generic PIX/TED rule,
// otherwise transfer keywords in their descriptions would shadow them.
func Default() *Engine {
	return New([]Rule{
		{
			Name:     "own-account-transfer",
			Keywords: []string{"BODY STATION ACADEMIA", "J E MADEIRA A"},
			Credit: &Outcome{
				Category:    taxonomy.OwnTransferIn,
				Explanation: "Transferência entre contas próprias identificada (entrada)",
				Reasoning:   "Regra: transferência entre contas próprias (BODY STATION/J E MADEIRA), entrada (CREDIT)",
			},
			Debit: &Outcome{
				Category:    taxonomy.OwnTransferOut,
				Explanation: "Transferência entre contas próprias identificada (saída)",
				Reasoning:   "Regra: transferência entre contas próprias (BODY STATION/J E MADEIRA), saída (DEBIT)",
			},
		},
		{
			Name:     "rende-facil",
			Keywords: []string{"RENDE FACIL", "RENDE FÁCIL"},
			Credit: &Outcome{
				Category:    taxonomy.InvestmentRedeem,
				Explanation: "Resgate de aplicação financeira identificado",
				Reasoning:   "Regra: Rende Fácil + CREDIT = resgate de aplicação",
			},
			Debit: &Outcome{
				Category:    taxonomy.FinancialInvestment,
				Explanation: "Aplicação financeira identificada",
				Reasoning:   "Regra: Rende Fácil + DEBIT = aplicação financeira",
			},
		},
		{
			Name:     "generic-transfer",
			Keywords: []string{"PIX", "TED"},
			Credit: &Outcome{
				Category:    taxonomy.TransferIn,
				Explanation: "Transferência genérica identificada (entrada)",
				Reasoning:   "Regra: PIX/TED + CREDIT = entrada de transferência",
			},
			Debit: &Outcome{
				Category:    taxonomy.TransferOut,
				Explanation: "Transferência genérica identificada (saída)",
				Reasoning:   "Regra: PIX/TED + DEBIT = saída de transferência",
			},
		},
		{
			Name:     "card-settlement",
			Keywords: []string{"REDE", "CARTAO", "CARTÃO"},
			Any: &Outcome{
				Category:    taxonomy.ServiceRevenue,
				Explanation: "Recebimento via cartão/maquininha",
				Reasoning:   "Regra: liquidação de cartão/maquininha",
			},
		},
		{
			Name:     "gympass",
			Keywords: []string{"GYMPASS"},
			Any: &Outcome{
				Category:    taxonomy.Gympass,
				Explanation: "Receita Gympass identificada",
				Reasoning:   "Regra: Gympass na descrição",
			},
		},
		{
			Name:     "insurance",
			Keywords: []string{"SEGURO"},
			Any: &Outcome{
				Category:    taxonomy.Insurance,
				Explanation: "Seguro identificado na descrição",
				Reasoning:   "Regra: seguro na descrição",
			},
		},
		{
			Name:     "consortium",
			Keywords: []string{"CONSORCIO", "CONSÓRCIO"},
			Any: &Outcome{
				Category:    taxonomy.Consortium,
				Explanation: "Consórcio identificado na descrição",
				Reasoning:   "Regra: consórcio na descrição",
			},
		},
		{
			Name:     "generic-investment",
			Keywords: []string{"OUROCAP", "INVEST"},
			Any: &Outcome{
				Category:    taxonomy.Investment,
				Explanation: "Investimento identificado na descrição",
				Reasoning:   "Regra: investimento na descrição",
			},
		},
	})
}
