package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/fetchweather/wttr"
)

func TestNewPrefetchTask(t *testing.T) {
	task, err := NewPrefetchTask(PrefetchPayload{Location: "Paris", Units: "m"})
	require.NoError(t, err)
	assert.Equal(t, TaskPrefetch, task.Type())

	var p PrefetchPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, "Paris", p.Location)
	assert.Equal(t, "m", p.Units)

	_, err = NewPrefetchTask(PrefetchPayload{Location: "Paris", Format: "gif"})
	assert.ErrorIs(t, err, wttr.ErrInvalidFormat)
}

type fakeEnqueuer struct {
	ids      map[string]bool
	enqueued []*asynq.Task
	fail     error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	// task ids are not exposed on the task, so dedupe on the payload
	id := string(task.Payload())
	if f.ids[id] {
		return nil, asynq.ErrTaskIDConflict
	}
	f.ids[id] = true
	f.enqueued = append(f.enqueued, task)
	return &asynq.TaskInfo{Queue: QueuePrefetch}, nil
}

func TestEnqueue(t *testing.T) {
	enq := &fakeEnqueuer{ids: map[string]bool{}}
	payloads := []PrefetchPayload{{Location: "Paris"}, {Location: "Berlin"}, {Location: "Paris"}}

	n, err := Enqueue(context.Background(), enq, payloads)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, enq.enqueued, 2)
}

func TestEnqueueError(t *testing.T) {
	enq := &fakeEnqueuer{ids: map[string]bool{}, fail: errors.New("redis down")}

	_, err := Enqueue(context.Background(), enq, []PrefetchPayload{{Location: "Paris"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}

type fakeRegistrar struct {
	specs []string
	tasks []*asynq.Task
}

func (f *fakeRegistrar) Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error) {
	f.specs = append(f.specs, cronspec)
	f.tasks = append(f.tasks, task)
	return "entry", nil
}

func TestSchedule(t *testing.T) {
	reg := &fakeRegistrar{}
	require.NoError(t, Schedule(reg, "@every 10m", []string{"Paris", "Tokyo"}))
	assert.Equal(t, []string{"@every 10m", "@every 10m"}, reg.specs)
	assert.Len(t, reg.tasks, 2)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		meta *wttr.ResponseMetadata
		want bool
	}{
		{"nil", nil, false},
		{"network", &wttr.ResponseMetadata{ErrorType: wttr.ErrorTypeNetwork}, true},
		{"timeout", &wttr.ResponseMetadata{ErrorType: wttr.ErrorTypeTimeout}, true},
		{"rate limited", &wttr.ResponseMetadata{ErrorType: wttr.ErrorTypeHTTPStatus, StatusCode: 429}, true},
		{"server error", &wttr.ResponseMetadata{ErrorType: wttr.ErrorTypeHTTPStatus, StatusCode: 503}, true},
		{"not found", &wttr.ResponseMetadata{ErrorType: wttr.ErrorTypeHTTPStatus, StatusCode: 404}, false},
		{"decode", &wttr.ResponseMetadata{ErrorType: wttr.ErrorTypeDecode, StatusCode: 200}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.meta))
		})
	}
}

func newPrefetchTask(t *testing.T, loc string) *asynq.Task {
	t.Helper()
	task, err := NewPrefetchTask(PrefetchPayload{Location: loc})
	require.NoError(t, err)
	return task
}

func TestProcessTask(t *testing.T) {
	var status atomic.Int64
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if code := int(status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		_, _ = w.Write([]byte(`{"current_condition": [{"temp_C": "20"}]}`))
	}))
	defer srv.Close()

	client, err := wttr.New(wttr.WithBaseURL(srv.URL))
	require.NoError(t, err)
	h := NewPrefetchHandler(client, zerolog.Nop())
	ctx := context.Background()

	// live fetch warms the cache
	require.NoError(t, h.ProcessTask(ctx, newPrefetchTask(t, "Paris")))
	res, err := client.Get(ctx, "Paris", wttr.WithMetadata())
	require.NoError(t, err)
	assert.True(t, res.Metadata.IsCached)

	status.Store(http.StatusServiceUnavailable)
	assert.Error(t, h.ProcessTask(ctx, newPrefetchTask(t, "Berlin")))

	status.Store(http.StatusNotFound)
	assert.NoError(t, h.ProcessTask(ctx, newPrefetchTask(t, "Atlantis")))

	client.SetMockMode(true)
	assert.NoError(t, h.ProcessTask(ctx, newPrefetchTask(t, "Oslo")))
}

func TestProcessTaskBadPayload(t *testing.T) {
	client, err := wttr.New(wttr.WithMockMode(true))
	require.NoError(t, err)
	h := NewPrefetchHandler(client, zerolog.Nop())

	err = h.ProcessTask(context.Background(), asynq.NewTask(TaskPrefetch, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	bad, _ := json.Marshal(PrefetchPayload{Location: "Paris", Units: "kelvin"})
	err = h.ProcessTask(context.Background(), asynq.NewTask(TaskPrefetch, bad))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
