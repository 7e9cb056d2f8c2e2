package jobs

import (
	"context"
	"sync"
	"time"

	"codetracker/pkg/logger"
	"codetracker/pkg/utils"
)

// LocalScheduler is an in-process worker pool fed by a bounded queue
type LocalScheduler struct {
	handler RefreshFunc
	workers int
	queue   chan *Task

	mu      sync.RWMutex
	closed  bool
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewLocalScheduler creates a pool of workers draining a queue of queueSize
func NewLocalScheduler(handler RefreshFunc, workers, queueSize int) *LocalScheduler {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &LocalScheduler{
		handler: handler,
		workers: workers,
		queue:   make(chan *Task, queueSize),
	}
}

// Start launches the workers; they stop when ctx ends or Close is called
func (s *LocalScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}
	if s.started {
		return nil
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	logger.Infof("Starting refresh worker pool (workers=%d)", s.workers)
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.runLoop(ctx, i+1)
	}
	return nil
}

// Submit enqueues the request and returns immediately
func (s *LocalScheduler) Submit(ctx context.Context, req RefreshRequest) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSchedulerClosed
	}

	task := newTask(utils.GenerateTaskID(), req)
	select {
	case s.queue <- task:
		return task, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		return nil, ErrQueueFull
	}
}

func (s *LocalScheduler) runLoop(ctx context.Context, workerID int) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			s.drain(ctx.Err())
			return
		case task, ok := <-s.queue:
			if !ok {
				return
			}
			s.run(ctx, workerID, task)
		}
	}
}

func (s *LocalScheduler) run(ctx context.Context, workerID int, task *Task) {
	log := logger.WithFields(map[string]interface{}{
		"component": "refresh_worker",
		"worker_id": workerID,
		"task_id":   task.ID,
		"user_id":   task.Request.UserID,
		"reason":    task.Request.Reason,
	})

	start := time.Now()
	result, err := runSafely(ctx, s.handler, task.Request)
	switch {
	case err != nil:
		log.With("error", err.Error()).Error("background refresh failed")
	case result != nil:
		log.WithFields(map[string]interface{}{
			"succeeded": len(result.Success),
			"failed":    len(result.Errors),
			"duration":  time.Since(start).String(),
		}).Info("background refresh finished")
	}
	task.complete(result, err)
}

// drain fails whatever is still queued so waiters are released
func (s *LocalScheduler) drain(err error) {
	for {
		select {
		case task, ok := <-s.queue:
			if !ok {
				return
			}
			task.complete(nil, err)
		default:
			return
		}
	}
}

// Close stops the workers, waits for in-flight tasks and fails queued ones
func (s *LocalScheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.drain(ErrSchedulerClosed)
	return nil
}
