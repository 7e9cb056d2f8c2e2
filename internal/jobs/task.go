// Package jobs runs statistics refreshes in the background. Every submission
// returns a Task handle so callers that do not wait can still observe the outcome.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"codetracker/pkg/models"
)

var (
	ErrQueueFull       = errors.New("refresh queue is full")
	ErrSchedulerClosed = errors.New("scheduler is closed")
)

// RefreshRequest asks for one user's platforms to be fetched
type RefreshRequest struct {
	UserID   string                  `json:"userId"`
	Accounts models.PlatformAccounts `json:"accounts"`
	Reason   string                  `json:"reason"`
}

// RefreshFunc performs the refresh; it is normally the aggregator's fetch-all
type RefreshFunc func(ctx context.Context, req RefreshRequest) (*models.FetchResults, error)

// Scheduler accepts refresh requests without blocking the caller
type Scheduler interface {
	Submit(ctx context.Context, req RefreshRequest) (*Task, error)
	Start(ctx context.Context) error
	Close() error
}

// Task tracks one submitted refresh
type Task struct {
	ID          string
	Request     RefreshRequest
	SubmittedAt time.Time

	once   sync.Once
	done   chan struct{}
	mu     sync.RWMutex
	result *models.FetchResults
	err    error
}

func newTask(id string, req RefreshRequest) *Task {
	return &Task{
		ID:          id,
		Request:     req,
		SubmittedAt: time.Now(),
		done:        make(chan struct{}),
	}
}

// Done is closed once the task has finished
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes or ctx ends
func (t *Task) Wait(ctx context.Context) (*models.FetchResults, error) {
	select {
	case <-t.done:
		return t.Result(), t.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result is nil until the task finishes
func (t *Task) Result() *models.FetchResults {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.result
}

// Err is the failure that ended the task, if any
func (t *Task) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

func (t *Task) complete(result *models.FetchResults, err error) {
	t.once.Do(func() {
		t.mu.Lock()
		t.result = result
		t.err = err
		t.mu.Unlock()
		close(t.done)
	})
}

// runSafely invokes fn and converts a panic into an error
func runSafely(ctx context.Context, fn RefreshFunc, req RefreshRequest) (result *models.FetchResults, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{val: r}
		}
	}()
	return fn(ctx, req)
}

type panicError struct{ val interface{} }

func (e *panicError) Error() string { return "panic during refresh" }
