package domain

import (
	"time"
)

// PredictionRequest is the API payload for scoring a transaction-like record.
type PredictionRequest struct {
	Type       string   `json:"type" validate:"required"`
	Amount     *float64 `json:"amount" validate:"required"`
	OldBalance *float64 `json:"oldbalanceOrg,omitempty"`
	NewBalance *float64 `json:"newbalanceOrig,omitempty"`
}

// Prediction is a scored request as kept in the prediction log.
type Prediction struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	OldBalance  *float64  `json:"oldbalanceOrg,omitempty"`
	NewBalance  *float64  `json:"newbalanceOrig,omitempty"`
	Probability float64   `json:"probability"`
	IsFraud     bool      `json:"isFraud"`
	RequestID   string    `json:"requestId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PredictionResponse is the API response for POST /api/fraud/predict.
type PredictionResponse struct {
	PredictionID string  `json:"predictionId"`
	IsFraud      bool    `json:"isFraud"`
	Probability  float64 `json:"probability"`
}

// ToResponse converts a Prediction to an API response.
func (p *Prediction) ToResponse() *PredictionResponse {
	return &PredictionResponse{
		PredictionID: p.ID,
		IsFraud:      p.IsFraud,
		Probability:  p.Probability,
	}
}

// FraudSummary compares the heuristic's verdicts with ground-truth labels.
type FraudSummary struct {
	TotalFrauds int     `json:"total_frauds"`
	Flagged     int     `json:"flagged"`
	Precision   float64 `json:"precision"`
	Recall      float64 `json:"recall"`

	// Confusion matrix
	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	TrueNegatives  int `json:"true_negatives"`
	FalseNegatives int `json:"false_negatives"`

	F1       float64 `json:"f1"`
	Accuracy float64 `json:"accuracy"`
}

// DeletionEvent records a delete against the in-memory working table.
type DeletionEvent struct {
	ID            string    `json:"id"`
	TransactionID int64     `json:"transactionId"`
	RequestID     string    `json:"requestId,omitempty"`
	DeletedAt     time.Time `json:"deletedAt"`
}
