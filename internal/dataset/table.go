package dataset

import (
	"sync"

	"github.com/opensource-finance/heron/internal/domain"
)

// Table is an immutable snapshot of the working transaction table.
// Deleting produces a new Table; existing snapshots never change.
type Table struct {
	// rows and index are shared by every snapshot derived from one load.
	rows  []domain.Transaction
	index map[int64][]int

	// deleted is a bitset over rows; nil when nothing was deleted.
	deleted []uint64
	live    int
	version uint64

	viewOnce sync.Once
	view     []domain.Transaction
}

func newTable(rows []domain.Transaction) *Table {
	index := make(map[int64][]int, len(rows))
	for i, tx := range rows {
		index[tx.ID] = append(index[tx.ID], i)
	}
	return &Table{
		rows:  rows,
		index: index,
		live:  len(rows),
	}
}

// Rows returns the live rows in load order. The slice is shared between
// callers and must not be modified.
func (t *Table) Rows() []domain.Transaction {
	if t.deleted == nil {
		return t.rows
	}

	t.viewOnce.Do(func() {
		view := make([]domain.Transaction, 0, t.live)
		for i := range t.rows {
			if !t.isDeleted(i) {
				view = append(view, t.rows[i])
			}
		}
		t.view = view
	})
	return t.view
}

// Get returns the first live row with the given id.
func (t *Table) Get(id int64) (domain.Transaction, bool) {
	for _, i := range t.index[id] {
		if !t.isDeleted(i) {
			return t.rows[i], true
		}
	}
	return domain.Transaction{}, false
}

// Len returns the number of live rows.
func (t *Table) Len() int {
	return t.live
}

// Version increments on every successful delete.
func (t *Table) Version() uint64 {
	return t.version
}

func (t *Table) isDeleted(i int) bool {
	if t.deleted == nil {
		return false
	}
	return t.deleted[i/64]&(1<<(uint(i)%64)) != 0
}

// without returns a snapshot with every live row carrying id removed.
func (t *Table) without(id int64) (*Table, bool) {
	var positions []int
	for _, i := range t.index[id] {
		if !t.isDeleted(i) {
			positions = append(positions, i)
		}
	}
	if len(positions) == 0 {
		return nil, false
	}

	deleted := make([]uint64, (len(t.rows)+63)/64)
	copy(deleted, t.deleted)
	for _, i := range positions {
		deleted[i/64] |= 1 << (uint(i) % 64)
	}

	return &Table{
		rows:    t.rows,
		index:   t.index,
		deleted: deleted,
		live:    t.live - len(positions),
		version: t.version + 1,
	}, true
}
