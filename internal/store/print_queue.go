package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lorry-parking-backend/internal/model"
)

// EnqueuePrintJob stores payload as a pending job. The payload is not
// interpreted beyond checking that it is a non-empty JSON value.
func (s *gormStore) EnqueuePrintJob(ctx context.Context, payload json.RawMessage) (model.PrintJob, error) {
	if emptyPayload(payload) {
		return model.PrintJob{}, &ValidationError{Msg: "No JSON body"}
	}
	if !json.Valid(payload) {
		return model.PrintJob{}, &ValidationError{Msg: "Invalid JSON body"}
	}
	if falsyPayload(payload) {
		return model.PrintJob{}, &ValidationError{Msg: "No JSON body"}
	}

	job := model.PrintJob{
		Payload:   datatypes.JSON(bytes.TrimSpace(payload)),
		Status:    model.JobPending,
		CreatedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&job).Error; err != nil {
		return model.PrintJob{}, fmt.Errorf("enqueue print job: %w", err)
	}
	return job, nil
}

// PendingPrintJobs returns every unacknowledged job, oldest first.
func (s *gormStore) PendingPrintJobs(ctx context.Context) ([]model.PrintJob, error) {
	jobs := make([]model.PrintJob, 0)
	if err := s.db.WithContext(ctx).
		Where("status = ?", model.JobPending).
		Order("id ASC").
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list pending print jobs: %w", err)
	}
	return jobs, nil
}

// AcknowledgePrintJob moves a pending job to done or failed. Repeating the
// same outcome is a no-op that returns the job as first acknowledged;
// reporting the opposite outcome for a finished job is a conflict.
func (s *gormStore) AcknowledgePrintJob(ctx context.Context, id int64, success bool) (model.PrintJob, error) {
	target := model.JobFailed
	if success {
		target = model.JobDone
	}

	var job model.PrintJob
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&job, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrJobNotFound
			}
			return err
		}

		if !job.Status.Terminal() {
			now := s.now()
			res := tx.Model(&model.PrintJob{}).
				Where("id = ? AND status = ?", id, model.JobPending).
				Updates(map[string]any{"status": target, "ack_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				job.Status = target
				job.AckAt = &now
				return nil
			}
			// Acknowledged concurrently; judge against what was written.
			if err := tx.First(&job, id).Error; err != nil {
				return err
			}
		}

		if job.Status != target {
			return &JobFinalizedError{ID: job.ID, Status: job.Status}
		}
		return nil
	})
	if err != nil {
		return model.PrintJob{}, wrap(fmt.Sprintf("acknowledge print job %d", id), err)
	}
	return job, nil
}

// RecentPrintJobs lists the newest jobs in any state as summaries.
func (s *gormStore) RecentPrintJobs(ctx context.Context, limit int) ([]model.PrintJobSummary, error) {
	if limit < 1 || limit > RecentJobsLimit {
		limit = RecentJobsLimit
	}

	var jobs []model.PrintJob
	if err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list print jobs: %w", err)
	}

	out := make([]model.PrintJobSummary, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, summarize(j))
	}
	return out, nil
}

// DeletePrintJob removes a job in any state.
func (s *gormStore) DeletePrintJob(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.PrintJob{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete print job %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// PurgePrintJobs deletes finished jobs created before now minus retention.
// Pending jobs are kept whatever their age.
func (s *gormStore) PurgePrintJobs(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention)
	res := s.db.WithContext(ctx).
		Where("status <> ? AND created_at < ?", model.JobPending, cutoff).
		Delete(&model.PrintJob{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge print jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func emptyPayload(payload json.RawMessage) bool {
	return len(bytes.TrimSpace(payload)) == 0
}

// falsyPayload reports a valid payload that carries nothing to print: false,
// zero, an empty string or an empty container.
func falsyPayload(payload json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case float64:
		return t == 0
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// summarize reads the few receipt fields operators care about. Payloads that
// are not objects, or lack the fields, yield nulls.
func summarize(j model.PrintJob) model.PrintJobSummary {
	sum := model.PrintJobSummary{
		ID:        j.ID,
		Status:    j.Status,
		CreatedAt: j.CreatedAt,
		AckAt:     j.AckAt,
	}
	var fields map[string]any
	if err := json.Unmarshal(j.Payload, &fields); err == nil {
		sum.Token = fields["token"]
		sum.Lorry = fields["lorry"]
		sum.Type = fields["type"]
	}
	return sum
}
