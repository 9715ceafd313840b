package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/storeledger/jobs"
)

type fakeClient struct {
	tasks  []*asynq.Task
	closed bool
}

func (f *fakeClient) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t-1", Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }
func (f fakeInspector) Close() error                                 { return nil }

func TestTriggerKnownTasks(t *testing.T) {
	client := &fakeClient{}
	c := NewJobsCLIWith(client, fakeInspector{})
	c.now = func() time.Time { return time.Date(2024, 5, 8, 9, 0, 0, 0, time.UTC) }

	for _, name := range []string{jobs.TaskInventoryValuation, jobs.TaskReportWarmup, jobs.TaskIdempotencyCleanup} {
		info, err := c.Trigger(context.Background(), name)
		require.NoError(t, err)
		require.Equal(t, name, info.Type)
	}
	require.Len(t, client.tasks, 3)

	_, err := c.Trigger(context.Background(), "ledger:rebuild")
	require.ErrorContains(t, err, "unsupported job")

	require.NoError(t, c.Close())
	require.True(t, client.closed)
}

func TestRunStats(t *testing.T) {
	c := NewJobsCLIWith(&fakeClient{}, fakeInspector{info: &asynq.QueueInfo{Pending: 2, Retry: 1}})
	var stdout, stderr bytes.Buffer

	code := c.Run(context.Background(), []string{"stats"}, &stdout, &stderr)
	require.Equal(t, 0, code)
	require.Equal(t, "queue=default pending=2 active=0 scheduled=0 retry=1\n", stdout.String())

	failing := NewJobsCLIWith(&fakeClient{}, fakeInspector{err: errors.New("redis down")})
	stdout.Reset()
	code = failing.Run(context.Background(), []string{"stats"}, &stdout, &stderr)
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "redis down")
}

func TestRunUsage(t *testing.T) {
	c := NewJobsCLIWith(&fakeClient{}, fakeInspector{})
	var stdout, stderr bytes.Buffer
	require.Equal(t, 2, c.Run(context.Background(), nil, &stdout, &stderr))
	require.Equal(t, 2, c.Run(context.Background(), []string{"trigger"}, &stdout, &stderr))
	require.Equal(t, 2, c.Run(context.Background(), []string{"purge"}, &stdout, &stderr))
}
