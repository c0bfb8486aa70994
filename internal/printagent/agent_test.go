package printagent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lorry-parking-backend/config"
	"lorry-parking-backend/internal/api"
	"lorry-parking-backend/internal/db"
	"lorry-parking-backend/internal/logging"
	"lorry-parking-backend/internal/model"
	"lorry-parking-backend/internal/store"
)

const secret = "agent-secret"

// relay starts a real API server on an in-memory database.
func relay(t *testing.T) (*httptest.Server, store.Store, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Database.DSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	cfg.PrintRelay.Secret = secret

	gormDB, err := db.Init(cfg, logging.Discard())
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	s := store.NewGormStore(gormDB, store.Options{})
	server := httptest.NewServer(api.NewRouter(s, cfg, logging.Discard()))
	t.Cleanup(server.Close)

	cfg.Agent.ServerURL = server.URL
	return server, s, cfg
}

type recordingPrinter struct {
	mu   sync.Mutex
	jobs []Job
	fail map[int64]bool
}

func (p *recordingPrinter) Print(ctx context.Context, job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	if p.fail[job.ID] {
		return errors.New("paper jam")
	}
	return nil
}

func TestPollOnce_PrintsAndAcknowledges(t *testing.T) {
	_, s, cfg := relay(t)
	ctx := context.Background()

	ok, err := s.EnqueuePrintJob(ctx, json.RawMessage(`{"type":"entry","token":1,"lorry":"KA01"}`))
	require.NoError(t, err)
	jam, err := s.EnqueuePrintJob(ctx, json.RawMessage(`{"type":"exit","token":1,"lorry":"KA01"}`))
	require.NoError(t, err)

	printer := &recordingPrinter{fail: map[int64]bool{jam.ID: true}}
	log, _ := test.NewNullLogger()
	agent := NewService(cfg, printer, log)

	assert.Equal(t, 2, agent.PollOnce(ctx))
	require.Len(t, printer.jobs, 2)
	assert.Equal(t, ok.ID, printer.jobs[0].ID)
	assert.JSONEq(t, `{"type":"entry","token":1,"lorry":"KA01"}`, string(printer.jobs[0].Data))

	pending, err := s.PendingPrintJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	recent, err := s.RecentPrintJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, model.JobFailed, recent[0].Status)
	assert.Equal(t, model.JobDone, recent[1].Status)

	// Nothing left to print.
	assert.Equal(t, 0, agent.PollOnce(ctx))
	assert.Len(t, printer.jobs, 2)
}

func TestPollOnce_WrongSecret(t *testing.T) {
	_, s, cfg := relay(t)
	ctx := context.Background()

	_, err := s.EnqueuePrintJob(ctx, json.RawMessage(`{"type":"entry"}`))
	require.NoError(t, err)

	cfg.PrintRelay.Secret = "wrong"
	printer := &recordingPrinter{}
	log, hook := test.NewNullLogger()
	agent := NewService(cfg, printer, log)

	assert.Equal(t, 0, agent.PollOnce(ctx))
	assert.Empty(t, printer.jobs)
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Data["error"].(error).Error(), "Unauthorized")
}

func TestPollOnce_FailedAckLeavesJobPending(t *testing.T) {
	var mu sync.Mutex
	var purges int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, secret, r.Header.Get("X-Print-Token"))
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/print-queue/pending":
			w.Write([]byte(`{"ok":true,"data":[{"id":7,"data":{"type":"entry"},"created_at":"2025-02-14T10:00:00Z"}]}`))
		case r.Method == http.MethodPatch:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"ok":false,"error":"internal server error"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/api/print-queue":
			mu.Lock()
			purges++
			mu.Unlock()
			w.Write([]byte(`{"ok":true,"message":"Old jobs cleaned up"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.PrintRelay.Secret = secret
	cfg.Agent.ServerURL = server.URL + "/"
	cfg.Agent.PurgeEvery = 2

	printer := &recordingPrinter{}
	log, _ := test.NewNullLogger()
	agent := NewService(cfg, printer, log)

	assert.Equal(t, 0, agent.PollOnce(context.Background()))
	assert.Equal(t, 0, agent.PollOnce(context.Background()))

	// Printed on both polls because the first ack never landed.
	assert.Len(t, printer.jobs, 2)
	mu.Lock()
	assert.Equal(t, 1, purges)
	mu.Unlock()
}

func TestRun_StopsOnCancel(t *testing.T) {
	_, _, cfg := relay(t)
	cfg.Agent.Interval = 5 * time.Millisecond

	log, _ := test.NewNullLogger()
	agent := NewService(cfg, &recordingPrinter{}, log)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		agent.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("agent did not stop")
	}
}

func TestFilePrinter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "spool")
	p := &FilePrinter{Dir: dir, Now: func() time.Time { return time.Date(2025, 2, 14, 10, 0, 0, 0, time.UTC) }}

	job := Job{ID: 3, Data: json.RawMessage(`{"type":"exit","token":12,"lorry":"KA01AB1234","days":4,"amount":480,"note":"paid"}`)}
	require.NoError(t, p.Print(context.Background(), job))

	raw, err := os.ReadFile(filepath.Join(dir, "20250214T100000-job-3.txt"))
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, "PARKING RECEIPT")
	assert.Contains(t, text, "Token:   12\n")
	assert.Contains(t, text, "Lorry:   KA01AB1234\n")
	assert.Contains(t, text, "Amount:  480\n")
	assert.Contains(t, text, "note: paid\n")
	assert.True(t, strings.HasSuffix(text, "Job #3\n"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRenderReceipt_NonObjectPayload(t *testing.T) {
	text := RenderReceipt(Job{ID: 1, Data: json.RawMessage(`["a","b"]`)})
	assert.Contains(t, text, `["a","b"]`)
}
