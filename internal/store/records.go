package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lorry-parking-backend/internal/billing"
	"lorry-parking-backend/internal/clock"
	"lorry-parking-backend/internal/model"
	"lorry-parking-backend/internal/parse"
)

// CreateRecord checks a lorry in. The duplicate check, token allocation and
// insert run in one transaction; a unique violation on commit means another
// writer won the race, and the attempt is retried or reported as a duplicate.
func (s *gormStore) CreateRecord(ctx context.Context, in NewRecord) (model.ParkingRecord, error) {
	lorry, err := parse.Lorry(in.Lorry)
	if err != nil {
		return model.ParkingRecord{}, &ValidationError{Msg: err.Error()}
	}

	now := s.now()
	entry := now
	if in.EntryAt != nil {
		entry = in.EntryAt.UTC()
	}

	rec := model.ParkingRecord{
		Lorry:        lorry,
		Driver:       parse.Text(in.Driver),
		Phone:        parse.Text(in.Phone),
		Remarks:      parse.Text(in.Remarks),
		EntryAt:      entry,
		EntryDisplay: clock.Display(entry, s.loc),
		ExitDisplay:  parse.Placeholder,
		Status:       model.StatusIn,
		CreatedAt:    now,
	}

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.ensureNotParked(tx, lorry); err != nil {
				return err
			}
			token, err := nextToken(tx)
			if err != nil {
				return err
			}
			rec.ID = 0
			rec.Token = token
			return tx.Create(&rec).Error
		})
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return model.ParkingRecord{}, wrap("create record for "+lorry, err)
		}
		// Either the same lorry was checked in concurrently or the token was
		// taken; only the former is final.
		if existing, ferr := s.activeRecord(s.db.WithContext(ctx), lorry); ferr == nil {
			return model.ParkingRecord{}, &DuplicateLorryError{Lorry: lorry, Token: existing.Token}
		}
	}
	return model.ParkingRecord{}, fmt.Errorf("allocate token for %s: %w", lorry, err)
}

// GetRecord loads a record by id.
func (s *gormStore) GetRecord(ctx context.Context, id int64) (model.ParkingRecord, error) {
	var rec model.ParkingRecord
	if err := s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ParkingRecord{}, ErrRecordNotFound
		}
		return model.ParkingRecord{}, fmt.Errorf("get record %d: %w", id, err)
	}
	return rec, nil
}

// ListRecords returns one page of records, newest token first, and the total
// number of records matching the filter.
func (s *gormStore) ListRecords(ctx context.Context, f RecordFilter) ([]model.ParkingRecord, int64, error) {
	page := max(f.Page, 1)
	size := max(f.PageSize, 1)

	base := s.db.WithContext(ctx).Model(&model.ParkingRecord{})
	if f.Status != "" {
		base = base.Where("status = ?", f.Status)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		base = base.Where(
			"(LOWER(lorry) LIKE ? OR LOWER(driver) LIKE ? OR "+s.tokenText()+" LIKE ?)",
			like, like, like,
		)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	records := make([]model.ParkingRecord, 0)
	if err := base.Session(&gorm.Session{}).
		Order("token DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	return records, total, nil
}

// CloseRecord checks a record out and bills it. The update is conditioned on
// the record still being IN, so of two racing check-outs exactly one wins.
func (s *gormStore) CloseRecord(ctx context.Context, id int64, in CloseRequest) (model.ParkingRecord, error) {
	rate, err := s.resolveRate(ctx, in.Rate)
	if err != nil {
		return model.ParkingRecord{}, err
	}

	exit := s.now()
	if in.ExitAt != nil {
		exit = in.ExitAt.UTC()
	}

	var rec model.ParkingRecord
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if s.lockingReads() {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&rec, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}
		if rec.Status == model.StatusOut {
			return &AlreadyClosedError{Token: rec.Token}
		}

		quote := billing.Compute(rec.EntryAt, exit, rate)
		days := quote.Days
		amount := quote.Amount.InexactFloat64()
		display := clock.Display(exit, s.loc)

		res := tx.Model(&model.ParkingRecord{}).
			Where("id = ? AND status = ?", id, model.StatusIn).
			Updates(map[string]any{
				"exit_at":      exit,
				"exit_display": display,
				"days":         days,
				"amount":       amount,
				"status":       model.StatusOut,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &AlreadyClosedError{Token: rec.Token}
		}

		rec.ExitAt = &exit
		rec.ExitDisplay = display
		rec.Days = &days
		rec.Amount = &amount
		rec.Status = model.StatusOut
		return nil
	})
	if err != nil {
		return model.ParkingRecord{}, wrap(fmt.Sprintf("close record %d", id), err)
	}
	return rec, nil
}

// DeleteRecord removes a single record.
func (s *gormStore) DeleteRecord(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.ParkingRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete record %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeleteAllRecords wipes the record table when confirm matches DeleteAllConfirmation.
func (s *gormStore) DeleteAllRecords(ctx context.Context, confirm string) (int64, error) {
	if confirm != DeleteAllConfirmation {
		return 0, &ValidationError{Msg: fmt.Sprintf(`Send {"confirm": %q} to confirm`, DeleteAllConfirmation)}
	}
	res := s.db.WithContext(ctx).Where("1 = 1").Delete(&model.ParkingRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete all records: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// NextToken reports the token the next check-in would receive.
func (s *gormStore) NextToken(ctx context.Context) (int64, error) {
	return nextToken(s.db.WithContext(ctx))
}

// nextToken is one more than the highest token issued, or 1 on an empty table.
func nextToken(tx *gorm.DB) (int64, error) {
	var next int64
	row := tx.Model(&model.ParkingRecord{}).Select("COALESCE(MAX(token), 0) + 1").Row()
	if err := row.Scan(&next); err != nil {
		return 0, fmt.Errorf("next token: %w", err)
	}
	return next, nil
}

// ensureNotParked fails with DuplicateLorryError when lorry has an IN record.
func (s *gormStore) ensureNotParked(tx *gorm.DB, lorry string) error {
	q := tx
	if s.lockingReads() {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	existing, err := s.activeRecord(q, lorry)
	if err == nil {
		return &DuplicateLorryError{Lorry: lorry, Token: existing.Token}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

// wrap adds op context to infrastructure errors and passes classified errors
// through untouched, so their messages reach clients verbatim.
func wrap(op string, err error) error {
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *gormStore) activeRecord(tx *gorm.DB, lorry string) (model.ParkingRecord, error) {
	var rec model.ParkingRecord
	err := tx.Where("lorry = ? AND status = ?", lorry, model.StatusIn).Take(&rec).Error
	return rec, err
}
