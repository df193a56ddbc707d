package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtshare/courtshare/jobs"
)

type stubEnqueuer struct {
	tasks  []*asynq.Task
	closed bool
}

func (s *stubEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{ID: "t-1", Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func (s *stubEnqueuer) Close() error {
	s.closed = true
	return nil
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }
func (s stubInspector) Close() error                                  { return nil }

func TestTriggerBalanceWarmup(t *testing.T) {
	enq := &stubEnqueuer{}
	c := &JobsCLI{client: enq}

	info, err := c.Trigger(context.Background(), jobs.TaskBalanceWarmup)
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskBalanceWarmup, info.Type)
	require.Len(t, enq.tasks, 1)
	assert.JSONEq(t, `{}`, string(enq.tasks[0].Payload()))

	_, err = c.Trigger(context.Background(), "ledger:unknown")
	require.ErrorContains(t, err, "unsupported job")

	require.NoError(t, c.Close())
	assert.True(t, enq.closed)
}

func TestTriggerWithoutClient(t *testing.T) {
	var c *JobsCLI
	_, err := c.Trigger(context.Background(), jobs.TaskBalanceWarmup)
	require.Error(t, err)
}

func TestInspectQueue(t *testing.T) {
	c := &JobsCLI{inspector: stubInspector{info: &asynq.QueueInfo{Pending: 2, Active: 1, Retry: 3}}}
	stats, err := c.InspectQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, QueueStats{Queue: jobs.QueueDefault, Pending: 2, Active: 1, Retry: 3}, stats)

	c = &JobsCLI{inspector: stubInspector{err: errors.New("redis down")}}
	_, err = c.InspectQueue(context.Background())
	require.ErrorContains(t, err, "redis down")
}
