package domain

// Overview summarizes the whole working table.
// Pointer fields are nil when the table is empty.
type Overview struct {
	TotalTransactions int      `json:"total_transactions"`
	FraudRate         *float64 `json:"fraud_rate"`
	AvgAmount         *float64 `json:"avg_amount"`
	MostCommonType    *string  `json:"most_common_type"`
}

// Distribution is a histogram of amounts. Bins and Counts are parallel.
type Distribution struct {
	Bins   []string `json:"bins"`
	Counts []int    `json:"counts"`
}

// TypeStats is the per-type breakdown.
type TypeStats struct {
	Type      string  `json:"type"`
	Count     int     `json:"count"`
	AvgAmount float64 `json:"avg_amount"`
}

// FraudTypeStats is the fraud-focused per-type breakdown.
type FraudTypeStats struct {
	Type       string  `json:"type"`
	Total      int     `json:"total"`
	FraudCount int     `json:"fraud_count"`
	FraudRate  float64 `json:"fraud_rate"`
}

// DailyStats is the per-calendar-day breakdown.
type DailyStats struct {
	Date      string  `json:"date"` // YYYY-MM-DD
	Count     int     `json:"count"`
	AvgAmount float64 `json:"avg_amount"`
}

// CustomerProfile is a synthetic rollup over one client's transactions.
type CustomerProfile struct {
	ID                string  `json:"id"`
	TransactionsCount int     `json:"transactions_count"`
	AvgAmount         float64 `json:"avg_amount"`
	Fraudulent        bool    `json:"fraudulent"`
}

// CustomerVolume is one entry of the top-customers ranking.
type CustomerVolume struct {
	ID                string  `json:"id"`
	TotalVolume       float64 `json:"total_volume"`
	TransactionsCount int     `json:"transactions_count"`
}

// CustomerRef identifies a customer in the paginated list.
type CustomerRef struct {
	ID string `json:"id"`
}

// CustomerPage is the paginated customer listing.
type CustomerPage struct {
	Page      int           `json:"page"`
	Limit     int           `json:"limit"`
	Total     int           `json:"total"`
	Customers []CustomerRef `json:"customers"`
}
