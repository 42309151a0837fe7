// Package ledger tracks, per open order, what changed since the kitchen was
// last notified. The ledger is the single source of truth for pending kitchen
// communication: one record per order line, net changes computed against the
// baseline captured when the line was first tracked.
package ledger

import (
	"sync"
	"time"

	"comanda/internal/domain"
)

// ChangeLedger is owned by one order session. All mutations happen from inside
// queue-processed tasks; reads may come from any goroutine, so access is
// guarded anyway.
type ChangeLedger struct {
	mu      sync.Mutex
	records map[uint]*domain.ChangeRecord
	// insertion order of line ids, so Summary is stable
	order []uint
}

func New() *ChangeLedger {
	return &ChangeLedger{
		records: make(map[uint]*domain.ChangeRecord),
	}
}

// TrackNewItem records a line the kitchen has never seen. A re-entrant call
// for the same line adds to its net change instead of overwriting.
func (l *ChangeLedger) TrackNewItem(itemID uint, name string, menuItemID int, quantity int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec, ok := l.records[itemID]; ok {
		rec.NetChange += quantity
		rec.LastUpdatedAt = time.Now()
		if rec.NetChange == 0 {
			l.drop(itemID)
		}
		return
	}

	l.insert(&domain.ChangeRecord{
		ItemID:           itemID,
		Name:             name,
		MenuItemID:       menuItemID,
		ChangeType:       domain.ChangeTypeNew,
		BaselineQuantity: 0,
		NetChange:        quantity,
		LastUpdatedAt:    time.Now(),
	})
}

// TrackQuantityChange records a quantity move on an already-known line. The
// net change is always newQuantity minus the baseline captured at first
// tracking, never the intermediate value: two opposing changes that return the
// quantity to its original value cancel and the record disappears.
func (l *ChangeLedger) TrackQuantityChange(itemID uint, name string, menuItemID int, oldQuantity, newQuantity int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec, ok := l.records[itemID]; ok {
		rec.NetChange = newQuantity - rec.BaselineQuantity
		rec.LastUpdatedAt = time.Now()
		if rec.NetChange == 0 {
			l.drop(itemID)
		}
		return
	}

	if newQuantity == oldQuantity {
		return
	}

	l.insert(&domain.ChangeRecord{
		ItemID:           itemID,
		Name:             name,
		MenuItemID:       menuItemID,
		ChangeType:       domain.ChangeTypeUpdate,
		BaselineQuantity: oldQuantity,
		NetChange:        newQuantity - oldQuantity,
		LastUpdatedAt:    time.Now(),
	})
}

// TrackItemRemoval records a line removal. A line that was added and removed
// before any flush was never communicated, so its NEW record is erased and
// nothing is ever sent for it.
func (l *ChangeLedger) TrackItemRemoval(itemID uint, name string, menuItemID int, quantityAtRemoval int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec, ok := l.records[itemID]; ok {
		if rec.ChangeType == domain.ChangeTypeNew {
			l.drop(itemID)
			return
		}
		rec.ChangeType = domain.ChangeTypeRemove
		rec.NetChange = -quantityAtRemoval
		rec.LastUpdatedAt = time.Now()
		if rec.NetChange == 0 {
			l.drop(itemID)
		}
		return
	}

	if quantityAtRemoval == 0 {
		return
	}

	l.insert(&domain.ChangeRecord{
		ItemID:           itemID,
		Name:             name,
		MenuItemID:       menuItemID,
		ChangeType:       domain.ChangeTypeRemove,
		BaselineQuantity: quantityAtRemoval,
		NetChange:        -quantityAtRemoval,
		LastUpdatedAt:    time.Now(),
	})
}

// Clear empties the ledger. Called exactly once per successful flush.
func (l *ChangeLedger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = make(map[uint]*domain.ChangeRecord)
	l.order = l.order[:0]
}

func (l *ChangeLedger) HasChanges() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.records) > 0
}

func (l *ChangeLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.records)
}

// Summary returns a copy of all records in first-tracked order.
func (l *ChangeLedger) Summary() []domain.ChangeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.ChangeRecord, 0, len(l.order))
	for _, id := range l.order {
		if rec, ok := l.records[id]; ok {
			out = append(out, *rec)
		}
	}
	return out
}

func (l *ChangeLedger) CountByType() map[domain.ChangeType]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	counts := make(map[domain.ChangeType]int, 3)
	for _, rec := range l.records {
		counts[rec.ChangeType]++
	}
	return counts
}

// insert and drop assume the mutex is held.

func (l *ChangeLedger) insert(rec *domain.ChangeRecord) {
	if rec.NetChange == 0 {
		return
	}
	l.records[rec.ItemID] = rec
	l.order = append(l.order, rec.ItemID)
}

func (l *ChangeLedger) drop(itemID uint) {
	delete(l.records, itemID)
	for i, id := range l.order {
		if id == itemID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}
