package domain

import (
	"time"
)

// Direction marks whether a transaction is an inbound or outbound movement.
// It is independent of the sign of Amount: the sign is the source of truth
// for the revenue/expense split, the direction drives rule matching.
type Direction string

const (
	DirectionCredit Direction = "CREDIT"
	DirectionDebit  Direction = "DEBIT"
)

// DateLayout is the date format produced by the ingestion collaborator.
const DateLayout = "02/01/2006"

// MonthKeyLayout is the calendar-month key used by trend and comparison output.
const MonthKeyLayout = "2006-01"

// Transaction represents one normalized transaction as handed over by the
// ingestion collaborator. Category and Explanation stay empty until the
// classification pipeline fills them in; AccountCode is populated by the
// aggregator's enrichment step.
type Transaction struct {
	ID          int       `json:"id"`
	Date        string    `json:"date"` // dd/mm/yyyy, as ingested
	Description string    `json:"description"`
	Direction   Direction `json:"direction"`
	Amount      float64   `json:"amount"` // signed: positive = money in

	Category    string `json:"category,omitempty"`
	Explanation string `json:"explanation,omitempty"`
	AccountCode string `json:"account_code,omitempty"`
}

// Classified reports whether the transaction already carries a category.
func (t *Transaction) Classified() bool {
	return t.Category != ""
}

// ParsedDate parses the transaction date in the ingestion layout.
func (t *Transaction) ParsedDate() (time.Time, error) {
	return time.Parse(DateLayout, t.Date)
}

// MonthKey derives the "YYYY-MM" calendar month key from the transaction date.
func (t *Transaction) MonthKey() (string, error) {
	d, err := t.ParsedDate()
	if err != nil {
		return "", err
	}
	return d.Format(MonthKeyLayout), nil
}
