package fraud

import (
	"github.com/opensource-finance/heron/internal/dataset"
	"github.com/opensource-finance/heron/internal/domain"
)

// InputFor builds a scorer input from a dataset row.
func InputFor(tx *domain.Transaction) Input {
	return Input{
		Type:       tx.Type,
		Amount:     tx.Amount,
		OldBalance: tx.OldBalance,
		NewBalance: tx.NewBalance,
	}
}

// Matrix accumulates a confusion matrix of heuristic verdicts against labels.
type Matrix struct {
	TruePositives  int
	FalsePositives int
	TrueNegatives  int
	FalseNegatives int
}

// Add records one verdict.
func (m *Matrix) Add(predicted, actual bool) {
	switch {
	case predicted && actual:
		m.TruePositives++
	case predicted && !actual:
		m.FalsePositives++
	case !predicted && !actual:
		m.TrueNegatives++
	default:
		m.FalseNegatives++
	}
}

// Merge adds the counts of other into m.
func (m *Matrix) Merge(other Matrix) {
	m.TruePositives += other.TruePositives
	m.FalsePositives += other.FalsePositives
	m.TrueNegatives += other.TrueNegatives
	m.FalseNegatives += other.FalseNegatives
}

// Precision is TP/(TP+FP), or 0 without positive verdicts.
func (m Matrix) Precision() float64 {
	return ratio(m.TruePositives, m.TruePositives+m.FalsePositives)
}

// Recall is TP/(TP+FN), or 0 without actual frauds.
func (m Matrix) Recall() float64 {
	return ratio(m.TruePositives, m.TruePositives+m.FalseNegatives)
}

// F1 is the harmonic mean of precision and recall.
func (m Matrix) F1() float64 {
	p, r := m.Precision(), m.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// Accuracy is the share of correct verdicts.
func (m Matrix) Accuracy() float64 {
	total := m.TruePositives + m.FalsePositives + m.TrueNegatives + m.FalseNegatives
	return ratio(m.TruePositives+m.TrueNegatives, total)
}

// Summary renders the matrix with rounded metrics.
func (m Matrix) Summary() domain.FraudSummary {
	return domain.FraudSummary{
		TotalFrauds:    m.TruePositives + m.FalseNegatives,
		Flagged:        m.TruePositives + m.FalsePositives,
		Precision:      dataset.Round(m.Precision(), 2),
		Recall:         dataset.Round(m.Recall(), 2),
		TruePositives:  m.TruePositives,
		FalsePositives: m.FalsePositives,
		TrueNegatives:  m.TrueNegatives,
		FalseNegatives: m.FalseNegatives,
		F1:             dataset.Round(m.F1(), 4),
		Accuracy:       dataset.Round(m.Accuracy(), 4),
	}
}

// Evaluate scores every row and compares the verdict with its fraud flag.
func Evaluate(rows []domain.Transaction) domain.FraudSummary {
	var m Matrix
	for i := range rows {
		m.Add(Score(InputFor(&rows[i])).IsFraud, rows[i].IsFraud == 1)
	}
	return m.Summary()
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
