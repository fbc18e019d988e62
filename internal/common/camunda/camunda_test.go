package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opportunity-workers/internal/common/logger"
)

type handlerFunc func(ctx context.Context, client worker.JobClient, job entities.Job) error

func (f handlerFunc) HandleJob(ctx context.Context, client worker.JobClient, job entities.Job) error {
	return f(ctx, client, job)
}

type recordingTracker struct {
	taskType string
	jobKey   int64
	finished bool
	err      error
}

func (r *recordingTracker) TrackJob(ctx context.Context, taskType string, jobKey int64) (context.Context, func(error)) {
	r.taskType, r.jobKey = taskType, jobKey
	return ctx, func(err error) {
		r.finished = true
		r.err = err
	}
}

func testJob() entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 99, Type: "execute-query", Retries: 3}}
}

// ==========================
// Instrument
// ==========================

func TestInstrument(t *testing.T) {
	tests := []struct {
		name    string
		handler handlerFunc
		wantErr string
	}{
		{
			name:    "success",
			handler: func(context.Context, worker.JobClient, entities.Job) error { return nil },
		},
		{
			name:    "error is reported",
			handler: func(context.Context, worker.JobClient, entities.Job) error { return errors.New("QUERY_TIMEOUT") },
			wantErr: "QUERY_TIMEOUT",
		},
		{
			name:    "panic is recovered",
			handler: func(context.Context, worker.JobClient, entities.Job) error { panic("nil map") },
			wantErr: "handler panic: nil map",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := &recordingTracker{}
			h := Instrument("execute-query", tt.handler, tracker, logger.NewTestLogger(t))

			assert.NotPanics(t, func() { h(nil, testJob()) })
			assert.True(t, tracker.finished)
			assert.Equal(t, "execute-query", tracker.taskType)
			assert.Equal(t, int64(99), tracker.jobKey)
			if tt.wantErr == "" {
				assert.NoError(t, tracker.err)
			} else {
				assert.EqualError(t, tracker.err, tt.wantErr)
			}
		})
	}
}

// ==========================
// Retry
// ==========================

func TestRetry(t *testing.T) {
	rc := &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	calls := 0
	err := Retry(context.Background(), rc, logger.NewNoOpLogger(), "redis ping", func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = Retry(context.Background(), rc, logger.NewNoOpLogger(), "redis ping", func() error {
		calls++
		return errors.New("connection refused")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "redis ping failed after 3 attempts")
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rc := &RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Second}
	calls := 0
	err := Retry(ctx, rc, logger.NewNoOpLogger(), "postgres ping", func() error {
		calls++
		return errors.New("connection refused")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
