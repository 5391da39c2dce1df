package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one append-only entry in a user's balance audit log.
// Amount is always stored positive; Type says which way it moved.
// PreviousBalance/NewBalance snapshot the balance around the mutation so
// the log can be replayed against the stored balance.
type Transaction struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Amount          decimal.Decimal `json:"amount"`
	Type            string          `json:"type"` // credit, debit
	Description     string          `json:"description"`
	Date            time.Time       `json:"date"`
	BalanceType     string          `json:"balance_type"` // wallet, plan
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	ConsultationID  string          `json:"consultation_id,omitempty"`
}
