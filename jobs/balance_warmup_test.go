package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtshare/courtshare/internal/club"
	jobmetrics "github.com/courtshare/courtshare/internal/jobs"
)

type fakeWarmer struct {
	participants []club.Participant
	listErr      error
	warmErr      error
	warmed       [][]uuid.UUID
}

func (f *fakeWarmer) ListParticipants(context.Context) ([]club.Participant, error) {
	return f.participants, f.listErr
}

func (f *fakeWarmer) WarmBalances(_ context.Context, ids []uuid.UUID) (int, error) {
	f.warmed = append(f.warmed, ids)
	if f.warmErr != nil {
		return 0, f.warmErr
	}
	return len(ids), nil
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newJob(w BalanceWarmer) *BalanceWarmupJob {
	return NewBalanceWarmupJob(w, quietLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))
}

func TestBalanceWarmupWarmsRequestedParticipants(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	task, err := NewBalanceWarmupTask(ids)
	require.NoError(t, err)
	assert.Equal(t, TaskBalanceWarmup, task.Type())

	w := &fakeWarmer{}
	require.NoError(t, newJob(w).Handle(context.Background(), task))
	require.Len(t, w.warmed, 1)
	assert.Equal(t, ids, w.warmed[0])
}

func TestBalanceWarmupDefaultsToActiveParticipants(t *testing.T) {
	active := club.Participant{ID: uuid.New(), Active: true}
	inactive := club.Participant{ID: uuid.New()}
	w := &fakeWarmer{participants: []club.Participant{active, inactive}}

	task, err := NewBalanceWarmupTask(nil)
	require.NoError(t, err)
	require.NoError(t, newJob(w).Handle(context.Background(), task))
	require.Len(t, w.warmed, 1)
	assert.Equal(t, []uuid.UUID{active.ID}, w.warmed[0])
}

func TestBalanceWarmupNothingToDo(t *testing.T) {
	w := &fakeWarmer{}
	task, err := NewBalanceWarmupTask(nil)
	require.NoError(t, err)
	require.NoError(t, newJob(w).Handle(context.Background(), task))
	assert.Empty(t, w.warmed)
}

func TestBalanceWarmupErrors(t *testing.T) {
	boom := errors.New("redis down")
	task, err := NewBalanceWarmupTask([]uuid.UUID{uuid.New()})
	require.NoError(t, err)
	require.ErrorIs(t, newJob(&fakeWarmer{warmErr: boom}).Handle(context.Background(), task), boom)

	all, err := NewBalanceWarmupTask(nil)
	require.NoError(t, err)
	require.ErrorIs(t, newJob(&fakeWarmer{listErr: boom}).Handle(context.Background(), all), boom)

	bad := asynq.NewTask(TaskBalanceWarmup, []byte("{"))
	require.ErrorIs(t, newJob(&fakeWarmer{}).Handle(context.Background(), bad), asynq.SkipRetry)

	var nilJob *BalanceWarmupJob
	require.Error(t, nilJob.Handle(context.Background(), task))
}

func TestBalanceWarmupPayloadShape(t *testing.T) {
	id := uuid.MustParse("6f1c8f9e-8a59-4c39-9a7e-2b3f0d1c4e5a")
	task, err := NewBalanceWarmupTask([]uuid.UUID{id})
	require.NoError(t, err)
	var raw map[string][]string
	require.NoError(t, json.Unmarshal(task.Payload(), &raw))
	assert.Equal(t, []string{id.String()}, raw["participant_ids"])
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func TestJobsHealth(t *testing.T) {
	cases := map[string]struct {
		inspector QueueInspector
		status    int
		pending   float64
	}{
		"no inspector": {nil, http.StatusOK, 0},
		"queue info":   {fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4}}, http.StatusOK, 4},
		"redis error":  {fakeInspector{err: errors.New("down")}, http.StatusServiceUnavailable, 0},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Route("/jobs", NewHandler(tc.inspector, quietLogger()).MountRoutes)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
			require.Equal(t, tc.status, rr.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, QueueDefault, body["queue"])
			assert.Equal(t, tc.pending, body["pending"])
		})
	}
}

func TestNilClientIsNoop(t *testing.T) {
	var c *Client
	require.NoError(t, c.EnqueueBalanceWarmup(context.Background(), []uuid.UUID{uuid.New()}))
	require.NoError(t, c.Close())
}
