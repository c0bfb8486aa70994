package store

import (
	"context"
	"fmt"

	"lorry-parking-backend/internal/clock"
	"lorry-parking-backend/internal/model"
)

// Stats aggregates dashboard counters in one pass. "Today" is the current
// calendar day in the display location.
func (s *gormStore) Stats(ctx context.Context) (Stats, error) {
	start, end := clock.DayBounds(s.now(), s.loc)

	var st Stats
	err := s.db.WithContext(ctx).
		Model(&model.ParkingRecord{}).
		Select(`
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS parked,
			COALESCE(SUM(CASE WHEN entry_at >= ? AND entry_at < ? THEN 1 ELSE 0 END), 0) AS today_entries,
			COALESCE(SUM(CASE WHEN status = ? AND exit_at >= ? AND exit_at < ? THEN 1 ELSE 0 END), 0) AS today_exits,
			COALESCE(SUM(CASE WHEN status = ? AND exit_at >= ? AND exit_at < ? THEN amount ELSE 0 END), 0) AS today_revenue,
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS exited,
			COALESCE(SUM(CASE WHEN status = ? THEN amount ELSE 0 END), 0) AS total_revenue`,
			model.StatusIn,
			start, end,
			model.StatusOut, start, end,
			model.StatusOut, start, end,
			model.StatusOut,
			model.StatusOut,
		).
		Scan(&st).Error
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}
