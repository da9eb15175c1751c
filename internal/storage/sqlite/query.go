package sqlitestorage

import (
	"fmt"

	"github.com/tollsim/tollsim/internal/model"
)

// TickTotal is the toll revenue collected at one tick.
type TickTotal struct {
	Time   int
	Count  int
	Amount float64
}

// CollectionsByTime sums the current run's toll collections per tick,
// ascending by time. Pending rows are flushed first.
func (b *Backend) CollectionsByTime() ([]TickTotal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.flush(); err != nil {
		return nil, err
	}

	var out []TickTotal
	err := b.db.DB.Model(&model.TollCollection{}).
		Select("time, COUNT(*) AS count, SUM(charge) AS amount").
		Where("run_id = ?", b.runID).
		Group("time").
		Order("time").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate toll collections: %w", err)
	}
	return out, nil
}

// Revenue returns the total charged in the current run.
func (b *Backend) Revenue() (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.flush(); err != nil {
		return 0, err
	}

	var total float64
	err := b.db.DB.Model(&model.TollCollection{}).
		Select("COALESCE(SUM(charge), 0)").
		Where("run_id = ?", b.runID).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return total, nil
}
