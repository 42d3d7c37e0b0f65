package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/opensource-finance/heron/internal/domain"
)

type labelFile struct {
	Target map[string]string `json:"target"`
}

// ParseLabels decodes {"target": {"<id>": "Yes"|"No"}}. Keys that are not
// integers are skipped and counted.
func ParseLabels(r io.Reader) (domain.FraudLabels, int, error) {
	var f labelFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return domain.FraudLabels{}, 0, fmt.Errorf("decode fraud labels: %w", err)
	}

	labels := make(domain.FraudLabels, len(f.Target))
	skipped := 0
	for k, v := range f.Target {
		id, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
		if err != nil {
			skipped++
			continue
		}
		if v == "Yes" {
			labels[id] = 1
		} else {
			labels[id] = 0
		}
	}
	return labels, skipped, nil
}

// JoinLabels returns a copy of txs with IsFraud set from labels.
// Transactions without a label are marked 0.
func JoinLabels(txs []domain.Transaction, labels domain.FraudLabels) []domain.Transaction {
	out := make([]domain.Transaction, len(txs))
	for i, tx := range txs {
		tx.IsFraud = labels[tx.ID]
		out[i] = tx
	}
	return out
}
