// Package fraud implements the fixed additive fraud heuristic and measures it
// against ground-truth labels.
package fraud

import (
	"math"

	"github.com/opensource-finance/heron/internal/dataset"
)

// Contributions of each signal to the probability.
const (
	weightOnline    = 0.45
	weightSwipe     = 0.05
	weightAmount500 = 0.25
	weightAmount200 = 0.15
	weightAmount100 = 0.08
	weightMismatch  = 0.2

	// balanceTolerance is the allowed gap between the reported and the
	// expected post-transaction balance.
	balanceTolerance = 0.01

	maxProbability = 0.99
	fraudThreshold = 0.5
)

// Transaction types recognized by the heuristic.
const (
	TypeOnline = "Online Transaction"
	TypeSwipe  = "Swipe Transaction"
)

// Input is a transaction-like record to score.
type Input struct {
	Type       string
	Amount     float64
	OldBalance *float64
	NewBalance *float64
}

// Prediction is the heuristic's verdict.
type Prediction struct {
	Probability float64 `json:"probability"`
	IsFraud     bool    `json:"isFraud"`
}

// Score applies the heuristic. Only the magnitude of the amount counts.
// The balance check runs only when both balances are present.
func Score(in Input) Prediction {
	amount := math.Abs(in.Amount)
	p := 0.0

	switch in.Type {
	case TypeOnline:
		p += weightOnline
	case TypeSwipe:
		p += weightSwipe
	}

	switch {
	case amount > 500:
		p += weightAmount500
	case amount > 200:
		p += weightAmount200
	case amount > 100:
		p += weightAmount100
	}

	if in.OldBalance != nil && in.NewBalance != nil {
		expected := *in.OldBalance - amount
		if math.Abs(*in.NewBalance-expected) > balanceTolerance {
			p += weightMismatch
		}
	}

	p = math.Min(dataset.Round(p, 2), maxProbability)
	return Prediction{
		Probability: p,
		IsFraud:     p > fraudThreshold,
	}
}
