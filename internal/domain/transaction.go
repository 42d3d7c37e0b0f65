package domain

import (
	"time"
)

// Transaction is one row of the card transaction dataset after
// normalization and fraud-label join.
type Transaction struct {
	// Core identifiers
	ID         int64 `json:"id"`
	ClientID   int64 `json:"client_id"`
	CardID     int64 `json:"card_id"`
	MerchantID int64 `json:"merchant_id"`

	// Signed amount, currency symbols already stripped
	Amount float64 `json:"amount"`

	// Channel label, e.g. "Swipe Transaction", "Online Transaction"
	Type string `json:"type"`

	// Date is the raw timestamp text; Timestamp is zero when it did not parse.
	Date      string    `json:"date"`
	Timestamp time.Time `json:"-"`

	// Merchant details
	MerchantCity  string `json:"merchant_city,omitempty"`
	MerchantState string `json:"merchant_state,omitempty"`
	Zip           string `json:"zip,omitempty"`
	MCC           int    `json:"mcc,omitempty"`
	Errors        string `json:"errors,omitempty"`

	// Balances are only present in PaySim-style exports.
	OldBalance *float64 `json:"oldbalanceOrg,omitempty"`
	NewBalance *float64 `json:"newbalanceOrig,omitempty"`

	// IsFraud is 1 when the ground-truth label says "Yes", else 0.
	IsFraud int `json:"is_fraud"`
}

// AccountHolder is one row of the users dataset.
type AccountHolder struct {
	ID              int64   `json:"id"`
	CurrentAge      int     `json:"current_age"`
	RetirementAge   int     `json:"retirement_age"`
	BirthYear       int     `json:"birth_year"`
	BirthMonth      int     `json:"birth_month"`
	Gender          string  `json:"gender"`
	Address         string  `json:"address"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	PerCapitaIncome float64 `json:"per_capita_income"`
	YearlyIncome    float64 `json:"yearly_income"`
	TotalDebt       float64 `json:"total_debt"`
	CreditScore     int     `json:"credit_score"`
	NumCreditCards  int     `json:"num_credit_cards"`
}

// FraudLabels maps a transaction ID to its binary ground-truth label.
type FraudLabels map[int64]int

// MerchantCategories maps a merchant category code to its description.
type MerchantCategories map[int]string

// MerchantCategory is a single MCC reference entry.
type MerchantCategory struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
}

// FlowDirection selects outgoing or incoming customer flow.
type FlowDirection string

const (
	// FlowDebit is money leaving the client (client is originator, amount < 0).
	FlowDebit FlowDirection = "debit"

	// FlowCredit is money reaching the client (client is counterparty, amount > 0).
	FlowCredit FlowDirection = "credit"
)

// TransactionPage is the paginated listing response.
type TransactionPage struct {
	Page         int           `json:"page"`
	Limit        int           `json:"limit"`
	TotalResults int           `json:"total_results"`
	Transactions []Transaction `json:"transactions"`
}
