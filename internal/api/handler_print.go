package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"lorry-parking-backend/internal/model"
	"lorry-parking-backend/internal/store"
)

// pendingJob is what the printing workstation receives for each job.
type pendingJob struct {
	ID        int64           `json:"id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// EnqueuePrintJob handles POST /api/print-queue.
func (h *Handler) EnqueuePrintJob(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		respondFail(c, http.StatusBadRequest, "No JSON body")
		return
	}
	job, err := h.store.EnqueuePrintJob(c.Request.Context(), raw)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.log.WithField("job_id", job.ID).Debug("print job queued")
	respondOK(c, http.StatusOK, gin.H{"job_id": job.ID, "message": "Print job queued"}, nil)
}

// PendingPrintJobs handles GET /api/print-queue/pending.
func (h *Handler) PendingPrintJobs(c *gin.Context) {
	jobs, err := h.store.PendingPrintJobs(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	out := make([]pendingJob, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, pendingJob{ID: j.ID, Data: json.RawMessage(j.Payload), CreatedAt: j.CreatedAt})
	}
	respondOK(c, http.StatusOK, out, nil)
}

// AcknowledgePrintJob handles PATCH /api/print-queue/:id/ack.
func (h *Handler) AcknowledgePrintJob(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		respondFail(c, http.StatusNotFound, "Job not found")
		return
	}
	var req ackRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.store.AcknowledgePrintJob(c.Request.Context(), id, req.success())
	if err != nil {
		h.respondError(c, err)
		return
	}
	entry := h.log.WithFields(logrus.Fields{"job_id": job.ID, "status": job.Status})
	if job.Status == model.JobFailed {
		entry.Warn("print job failed at the workstation")
	} else {
		entry.Debug("print job acknowledged")
	}
	respondOK(c, http.StatusOK, gin.H{"job_id": job.ID, "status": job.Status}, nil)
}

// ListPrintJobs handles GET /api/print-queue.
func (h *Handler) ListPrintJobs(c *gin.Context) {
	jobs, err := h.store.RecentPrintJobs(c.Request.Context(), queryInt(c, "limit", store.RecentJobsLimit))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, jobs, nil)
}

// DeletePrintJob handles DELETE /api/print-queue/:id.
func (h *Handler) DeletePrintJob(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		respondFail(c, http.StatusNotFound, "Job not found")
		return
	}
	if err := h.store.DeletePrintJob(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	respondMessage(c, fmt.Sprintf("Job %d deleted", id))
}

// PurgePrintJobs handles DELETE /api/print-queue.
func (h *Handler) PurgePrintJobs(c *gin.Context) {
	n, err := h.store.PurgePrintJobs(c.Request.Context(), h.cfg.PrintRelay.Retention)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.log.WithField("purged", n).Info("old print jobs purged")
	respondOK(c, http.StatusOK, nil, gin.H{"message": "Old jobs cleaned up", "purged": n})
}
