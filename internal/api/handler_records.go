package api

import (
	"cmp"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"lorry-parking-backend/internal/clock"
	"lorry-parking-backend/internal/model"
	"lorry-parking-backend/internal/store"
)

// recordResponse is a parking record as the front-end expects it.
type recordResponse struct {
	ID           int64              `json:"id"`
	Token        int64              `json:"token"`
	Lorry        string             `json:"lorry"`
	Driver       string             `json:"driver"`
	Phone        string             `json:"phone"`
	Remarks      string             `json:"remarks"`
	EntryISO     string             `json:"entryISO"`
	EntryDisplay string             `json:"entryDisplay"`
	ExitISO      *string            `json:"exitISO"`
	ExitDisplay  string             `json:"exitDisplay"`
	Days         *int64             `json:"days"`
	Amount       *float64           `json:"amount"`
	Status       model.RecordStatus `json:"status"`
	CreatedAt    string             `json:"createdAt"`
}

func newRecordResponse(r model.ParkingRecord) recordResponse {
	resp := recordResponse{
		ID:           r.ID,
		Token:        r.Token,
		Lorry:        r.Lorry,
		Driver:       r.Driver,
		Phone:        r.Phone,
		Remarks:      r.Remarks,
		EntryISO:     clock.ISO(r.EntryAt),
		EntryDisplay: r.EntryDisplay,
		ExitDisplay:  r.ExitDisplay,
		Days:         r.Days,
		Amount:       r.Amount,
		Status:       r.Status,
		CreatedAt:    clock.ISO(r.CreatedAt),
	}
	if r.ExitAt != nil {
		iso := clock.ISO(*r.ExitAt)
		resp.ExitISO = &iso
	}
	return resp
}

func newRecordResponses(rs []model.ParkingRecord) []recordResponse {
	out := make([]recordResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, newRecordResponse(r))
	}
	return out
}

// ListRecords handles GET /api/records.
func (h *Handler) ListRecords(c *gin.Context) {
	status := strings.ToUpper(strings.TrimSpace(c.Query("status")))
	if status == "ALL" {
		status = ""
	}
	f := store.RecordFilter{
		Status:   model.RecordStatus(status),
		Search:   c.Query("q"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "limit", store.DefaultPageSize),
	}

	records, total, err := h.store.ListRecords(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"total": total,
		"page":  f.Page,
		"limit": f.PageSize,
		"data":  newRecordResponses(records),
	})
}

// GetRecord handles GET /api/records/:id.
func (h *Handler) GetRecord(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		respondFail(c, http.StatusNotFound, "Record not found")
		return
	}
	rec, err := h.store.GetRecord(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, newRecordResponse(rec), nil)
}

// CreateRecord handles POST /api/records.
func (h *Handler) CreateRecord(c *gin.Context) {
	var req checkInRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.toNewRecord(h.loc)
	if err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.store.CreateRecord(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.log.WithFields(logrus.Fields{"token": rec.Token, "lorry": rec.Lorry}).Info("lorry checked in")
	respondOK(c, http.StatusCreated, newRecordResponse(rec), nil)
}

// CloseRecord handles PATCH /api/records/:id/exit.
func (h *Handler) CloseRecord(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		respondFail(c, http.StatusNotFound, "Record not found")
		return
	}
	var req checkOutRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.toCloseRequest(h.loc)
	if err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.store.CloseRecord(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.log.WithFields(logrus.Fields{"token": rec.Token, "lorry": rec.Lorry, "days": *rec.Days}).Info("lorry checked out")
	respondOK(c, http.StatusOK, newRecordResponse(rec), nil)
}

// DeleteRecord handles DELETE /api/records/:id.
func (h *Handler) DeleteRecord(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		respondFail(c, http.StatusNotFound, "Record not found")
		return
	}
	if err := h.store.DeleteRecord(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	respondMessage(c, fmt.Sprintf("Record %d deleted", id))
}

// DeleteAllRecords handles DELETE /api/records.
func (h *Handler) DeleteAllRecords(c *gin.Context) {
	var req struct {
		Confirm string `json:"confirm"`
	}
	_ = bindOptionalJSON(c, &req)

	n, err := h.store.DeleteAllRecords(c.Request.Context(), req.Confirm)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.log.WithField("deleted", n).Warn("all records deleted")
	respondMessage(c, "All records deleted")
}

// ImportRecords handles POST /api/import.
func (h *Handler) ImportRecords(c *gin.Context) {
	var req struct {
		Records json.RawMessage `json:"records"`
	}
	_ = bindOptionalJSON(c, &req)

	var raws []json.RawMessage
	if err := json.Unmarshal(req.Records, &raws); err != nil || raws == nil {
		respondFail(c, http.StatusBadRequest, "records array required")
		return
	}

	rows, rejected := decodeImportRows(raws, h.loc)
	res, err := h.store.ImportRecords(c.Request.Context(), rows)
	if err != nil {
		h.respondError(c, err)
		return
	}

	rowErrors := append(rejected, res.Errors...)
	slices.SortFunc(rowErrors, func(a, b store.RowError) int { return cmp.Compare(a.Row, b.Row) })
	if rowErrors == nil {
		rowErrors = []store.RowError{}
	}

	h.log.WithFields(logrus.Fields{"added": res.Added, "rows": len(raws)}).Info("records imported")
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"added":   res.Added,
		"message": fmt.Sprintf("Imported %d of %d records", res.Added, len(raws)),
		"errors":  rowErrors,
	})
}

// NextToken handles GET /api/next-token.
func (h *Handler) NextToken(c *gin.Context) {
	next, err := h.store.NextToken(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"token": next}, nil)
}
