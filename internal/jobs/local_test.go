package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codetracker/pkg/models"
)

func okHandler(calls *int32) RefreshFunc {
	return func(ctx context.Context, req RefreshRequest) (*models.FetchResults, error) {
		atomic.AddInt32(calls, 1)
		results := models.NewFetchResults()
		for _, acc := range req.Accounts {
			results.Success = append(results.Success, models.FetchSuccess{
				Platform: models.Platform(acc.Platform),
				Username: acc.Username,
			})
		}
		return results, nil
	}
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLocalSchedulerRunsTasks(t *testing.T) {
	var calls int32
	s := NewLocalScheduler(okHandler(&calls), 2, 8)
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	task, err := s.Submit(context.Background(), RefreshRequest{
		UserID:   "user-1",
		Accounts: models.PlatformAccounts{{Platform: "leetcode", Username: "alice"}},
		Reason:   "test",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)

	result, err := task.Wait(waitCtx(t))
	require.NoError(t, err)
	require.Len(t, result.Success, 1)
	assert.Equal(t, "alice", result.Success[0].Username)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	select {
	case <-task.Done():
	default:
		t.Fatal("task should be done")
	}
}

func TestLocalSchedulerRecoversPanics(t *testing.T) {
	s := NewLocalScheduler(func(ctx context.Context, req RefreshRequest) (*models.FetchResults, error) {
		panic("boom")
	}, 1, 1)
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	task, err := s.Submit(context.Background(), RefreshRequest{UserID: "user-1"})
	require.NoError(t, err)

	_, err = task.Wait(waitCtx(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")

	// the worker survives
	task, err = s.Submit(context.Background(), RefreshRequest{UserID: "user-2"})
	require.NoError(t, err)
	_, err = task.Wait(waitCtx(t))
	assert.Error(t, err)
}

func TestLocalSchedulerQueueFullAndClose(t *testing.T) {
	var calls int32
	s := NewLocalScheduler(okHandler(&calls), 1, 1)

	queued, err := s.Submit(context.Background(), RefreshRequest{UserID: "user-1"})
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), RefreshRequest{UserID: "user-2"})
	assert.ErrorIs(t, err, ErrQueueFull)

	require.NoError(t, s.Close())
	_, err = queued.Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrSchedulerClosed)
	assert.Zero(t, atomic.LoadInt32(&calls))

	_, err = s.Submit(context.Background(), RefreshRequest{UserID: "user-3"})
	assert.ErrorIs(t, err, ErrSchedulerClosed)
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerClosed)
}

func TestTaskWaitHonoursContext(t *testing.T) {
	task := newTask("task-1", RefreshRequest{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := task.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, task.Result())
	assert.NoError(t, task.Err())

	task.complete(models.NewFetchResults(), nil)
	task.complete(nil, assert.AnError)
	assert.NotNil(t, task.Result())
	assert.NoError(t, task.Err())
}
