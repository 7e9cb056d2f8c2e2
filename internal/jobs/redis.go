package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"codetracker/pkg/logger"
	"codetracker/pkg/models"
	"codetracker/pkg/utils"
)

const redisPopTimeout = 2 * time.Second

// RedisOptions configures the redis-backed scheduler
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Queue    string
	Workers  int
}

// RedisScheduler pushes requests onto a redis list that workers in any
// server process pop from. Completions are published on "<queue>:done" so
// the submitting process can resolve its Task.
type RedisScheduler struct {
	rdb     *redis.Client
	handler RefreshFunc
	queue   string
	workers int

	mu      sync.Mutex
	pending map[string]*Task
	closed  bool
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type queuedRefresh struct {
	TaskID      string         `json:"taskId"`
	Request     RefreshRequest `json:"request"`
	SubmittedAt time.Time      `json:"submittedAt"`
}

type refreshCompletion struct {
	TaskID string               `json:"taskId"`
	Result *models.FetchResults `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// NewRedisScheduler connects to redis and verifies the connection
func NewRedisScheduler(opts RedisOptions, handler RefreshFunc) (*RedisScheduler, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if opts.Queue == "" {
		opts.Queue = "codetracker:refresh"
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisScheduler{
		rdb:     rdb,
		handler: handler,
		queue:   opts.Queue,
		workers: opts.Workers,
		pending: make(map[string]*Task),
	}, nil
}

func (s *RedisScheduler) doneChannel() string { return s.queue + ":done" }

// Start subscribes to completions and launches the pop workers
func (s *RedisScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}
	if s.started {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := s.rdb.Subscribe(ctx, s.doneChannel())
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	s.cancel = cancel
	s.started = true

	s.wg.Add(1)
	go s.forwardCompletions(ctx, sub)

	logger.Infof("Starting redis refresh workers (queue=%s, workers=%d)", s.queue, s.workers)
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.runLoop(ctx, i+1)
	}
	return nil
}

// Submit pushes the request and returns a handle resolved by the completion event
func (s *RedisScheduler) Submit(ctx context.Context, req RefreshRequest) (*Task, error) {
	task := newTask(utils.GenerateTaskID(), req)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSchedulerClosed
	}
	s.pending[task.ID] = task
	s.mu.Unlock()

	raw, err := json.Marshal(queuedRefresh{TaskID: task.ID, Request: req, SubmittedAt: task.SubmittedAt})
	if err == nil {
		err = s.rdb.LPush(ctx, s.queue, raw).Err()
	}
	if err != nil {
		s.forget(task.ID)
		return nil, fmt.Errorf("failed to enqueue refresh: %w", err)
	}
	return task, nil
}

func (s *RedisScheduler) forget(taskID string) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := s.pending[taskID]
	delete(s.pending, taskID)
	return task
}

func (s *RedisScheduler) runLoop(ctx context.Context, workerID int) {
	defer s.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}

		values, err := s.rdb.BRPop(ctx, redisPopTimeout, s.queue).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warnf("redis worker %d: pop failed: %v", workerID, err)
			time.Sleep(time.Second)
			continue
		}
		if len(values) != 2 {
			continue
		}

		var job queuedRefresh
		if err := json.Unmarshal([]byte(values[1]), &job); err != nil {
			logger.Warnf("redis worker %d: dropping malformed job: %v", workerID, err)
			continue
		}
		s.run(ctx, workerID, job)
	}
}

func (s *RedisScheduler) run(ctx context.Context, workerID int, job queuedRefresh) {
	log := logger.WithFields(map[string]interface{}{
		"component": "redis_refresh_worker",
		"worker_id": workerID,
		"task_id":   job.TaskID,
		"user_id":   job.Request.UserID,
		"reason":    job.Request.Reason,
	})

	result, err := runSafely(ctx, s.handler, job.Request)
	completion := refreshCompletion{TaskID: job.TaskID, Result: result}
	if err != nil {
		completion.Error = err.Error()
		log.With("error", err.Error()).Error("background refresh failed")
	} else {
		log.Info("background refresh finished")
	}

	raw, err := json.Marshal(completion)
	if err != nil {
		log.With("error", err.Error()).Error("failed to encode completion")
		return
	}
	// publish on a fresh context so a shutdown still reports the outcome
	pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.rdb.Publish(pubCtx, s.doneChannel(), raw).Err(); err != nil {
		log.With("error", err.Error()).Warn("failed to publish completion")
	}
}

func (s *RedisScheduler) forwardCompletions(ctx context.Context, sub *redis.PubSub) {
	defer s.wg.Done()
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var completion refreshCompletion
			if err := json.Unmarshal([]byte(msg.Payload), &completion); err != nil {
				logger.Warnf("ignoring malformed refresh completion: %v", err)
				continue
			}
			task := s.forget(completion.TaskID)
			if task == nil {
				// submitted by another process
				continue
			}
			var err error
			if completion.Error != "" {
				err = errors.New(completion.Error)
			}
			task.complete(completion.Result, err)
		}
	}
}

// Close stops workers, fails unresolved tasks and closes the client
func (s *RedisScheduler) Close() error {
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

	s.mu.Lock()
	for id, task := range s.pending {
		task.complete(nil, ErrSchedulerClosed)
		delete(s.pending, id)
	}
	s.mu.Unlock()

	return s.rdb.Close()
}
