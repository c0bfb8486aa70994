// Package printagent is the workstation side of the print relay: it polls
// the server for pending jobs, prints them, and acknowledges each one.
package printagent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"lorry-parking-backend/config"
)

const printTokenHeader = "X-Print-Token"

// Service polls the relay and hands jobs to a Printer.
type Service struct {
	baseURL    string
	secret     string
	interval   time.Duration
	purgeEvery int
	client     *http.Client
	printer    Printer
	log        logrus.FieldLogger

	cycles int
}

// NewService creates a print agent for the relay at cfg.Agent.ServerURL.
func NewService(cfg *config.Config, printer Printer, log logrus.FieldLogger) *Service {
	return &Service{
		baseURL:    strings.TrimRight(cfg.Agent.ServerURL, "/"),
		secret:     cfg.PrintRelay.Secret,
		interval:   cfg.Agent.Interval,
		purgeEvery: cfg.Agent.PurgeEvery,
		client:     &http.Client{Timeout: 30 * time.Second},
		printer:    printer,
		log:        log.WithField("component", "printagent"),
	}
}

// Run polls until ctx is done.
func (s *Service) Run(ctx context.Context) {
	s.log.WithFields(logrus.Fields{
		"server":   s.baseURL,
		"interval": s.interval.String(),
	}).Info("starting print agent")

	s.PollOnce(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("print agent shutting down")
			return
		case <-timer.C:
			s.PollOnce(ctx)
			timer.Reset(s.interval)
		}
	}
}

// PollOnce fetches pending jobs, prints each one and acknowledges it. It
// returns the number of jobs acknowledged. A job whose ack fails stays
// pending on the server and is printed again on a later poll.
func (s *Service) PollOnce(ctx context.Context) int {
	s.cycles++
	if s.purgeEvery > 0 && s.cycles%s.purgeEvery == 0 {
		if err := s.purge(ctx); err != nil {
			s.log.WithError(err).Warn("purging old jobs failed")
		}
	}

	jobs, err := s.fetchPending(ctx)
	if err != nil {
		s.log.WithError(err).Warn("polling print queue failed")
		return 0
	}

	acked := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		entry := s.log.WithField("job_id", job.ID)

		success := true
		if err := s.printer.Print(ctx, job); err != nil {
			entry.WithError(err).Error("printing failed")
			success = false
		}
		if err := s.ack(ctx, job.ID, success); err != nil {
			entry.WithError(err).Warn("acknowledging job failed; it will be retried")
			continue
		}
		entry.WithField("success", success).Info("job acknowledged")
		acked++
	}
	return acked
}

func (s *Service) fetchPending(ctx context.Context) ([]Job, error) {
	var resp pendingResponse
	if err := s.do(ctx, http.MethodGet, "/api/print-queue/pending", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (s *Service) ack(ctx context.Context, id int64, success bool) error {
	body, err := json.Marshal(map[string]bool{"success": success})
	if err != nil {
		return err
	}
	var resp statusResponse
	return s.do(ctx, http.MethodPatch, fmt.Sprintf("/api/print-queue/%d/ack", id), body, &resp)
}

func (s *Service) purge(ctx context.Context) error {
	var resp statusResponse
	return s.do(ctx, http.MethodDelete, "/api/print-queue", nil, &resp)
}

// do sends an authenticated request to the relay and decodes the envelope
// into out.
func (s *Service) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(printTokenHeader, s.secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var env statusResponse
		if json.Unmarshal(raw, &env) == nil && env.Error != "" {
			return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, env.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
