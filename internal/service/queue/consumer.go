package queue

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Observer receives queue events for metrics.
type Observer interface {
	ObserveQueue(event string)
}

const (
	EventClaimed   = "claimed"
	EventCompleted = "completed"
	EventRetried   = "retried"
	EventExhausted = "exhausted"
	EventRecovered = "recovered"
)

// ExhaustedHandler is told about a job that failed its last attempt.
type ExhaustedHandler func(ctx context.Context, job Job, err error)

type ConsumerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	Workers      int
	MaxAttempts  int
	RetryDelay   time.Duration
	// LeaseTimeout bounds how long a claimed job may run before another
	// consumer takes it over.
	LeaseTimeout time.Duration
}

// Consumer polls the queue on a ticker and runs due jobs on a bounded pool.
// Several consumers may run against the same Redis; each job is claimed once.
type Consumer struct {
	queue     *Queue
	handler   Handler
	exhausted ExhaustedHandler
	config    ConsumerConfig
	logger    *zap.Logger
	observer  Observer

	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewConsumer(queue *Queue, handler Handler, cfg ConsumerConfig, logger *zap.Logger) *Consumer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.LeaseTimeout <= 0 {
		cfg.LeaseTimeout = 5 * time.Minute
	}
	return &Consumer{
		queue:   queue,
		handler: handler,
		config:  cfg,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

func (c *Consumer) WithObserver(observer Observer) *Consumer {
	c.observer = observer
	return c
}

// OnExhausted registers fn to run after a job has used all its attempts.
func (c *Consumer) OnExhausted(fn ExhaustedHandler) *Consumer {
	c.exhausted = fn
	return c
}

func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("Starting queue consumer",
		zap.Duration("poll_interval", c.config.PollInterval),
		zap.Int("workers", c.config.Workers))

	c.ticker = time.NewTicker(c.config.PollInterval)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.tick(ctx)
		for {
			select {
			case <-c.ticker.C:
				c.tick(ctx)
			case <-c.stopCh:
				c.logger.Info("Queue consumer stopped")
				return
			case <-ctx.Done():
				c.logger.Info("Queue consumer context cancelled")
				return
			}
		}
	}()

	return nil
}

// Stop ends the polling loop and waits for running jobs to finish.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		if c.ticker != nil {
			c.ticker.Stop()
		}
		close(c.stopCh)
	})
	c.wg.Wait()
	c.logger.Info("Queue consumer shutdown completed")
}

func (c *Consumer) tick(ctx context.Context) {
	if _, err := c.Poll(ctx); err != nil {
		c.logger.Error("Queue poll failed", zap.Error(err))
	}
}

// Poll returns expired leases to the queue, then claims every job due now, up
// to the batch size, runs them and waits for them to finish. It returns the
// number of jobs claimed.
func (c *Consumer) Poll(ctx context.Context) (int, error) {
	now := c.queue.now()
	recovered, err := c.queue.recoverExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if recovered > 0 {
		c.observe(EventRecovered)
		c.logger.Warn("Recovered jobs with expired leases", zap.Int("count", recovered))
	}

	members, err := c.queue.due(ctx, now, c.config.BatchSize)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Workers)

	claimed := 0
	for _, projectID := range members {
		job, err := c.queue.claim(ctx, projectID, now, now.Add(c.config.LeaseTimeout))
		if err != nil {
			c.logger.Error("Failed to claim job", zap.String("project_id", projectID), zap.Error(err))
			continue
		}
		if job == nil {
			continue
		}
		claimed++
		c.observe(EventClaimed)

		g.Go(func() error {
			c.run(gctx, *job)
			return nil
		})
	}

	_ = g.Wait()
	return claimed, nil
}

func (c *Consumer) run(ctx context.Context, job Job) {
	start := time.Now()
	err := c.invoke(ctx, job)
	if err == nil {
		c.release(ctx, job)
		c.observe(EventCompleted)
		c.logger.Info("Job completed",
			zap.String("job_id", job.ID),
			zap.String("project_id", job.ProjectID),
			zap.Duration("duration", time.Since(start)))
		return
	}

	job.Attempts++
	if job.Attempts >= c.config.MaxAttempts {
		c.release(ctx, job)
		c.observe(EventExhausted)
		c.logger.Error("Job failed, giving up",
			zap.String("job_id", job.ID),
			zap.String("project_id", job.ProjectID),
			zap.Int("attempts", job.Attempts),
			zap.Error(err))
		if c.exhausted != nil {
			c.exhausted(ctx, job, err)
		}
		return
	}

	job.DueAt = c.queue.now().Add(c.config.RetryDelay)
	requeued, rqErr := c.queue.requeue(ctx, job)
	if rqErr != nil {
		c.logger.Error("Failed to requeue job",
			zap.String("job_id", job.ID),
			zap.String("project_id", job.ProjectID),
			zap.Error(rqErr))
		return
	}
	if requeued {
		c.observe(EventRetried)
	}
	c.logger.Warn("Job failed, will retry",
		zap.String("job_id", job.ID),
		zap.String("project_id", job.ProjectID),
		zap.Int("attempts", job.Attempts),
		zap.Bool("requeued", requeued),
		zap.Time("due_at", job.DueAt),
		zap.Error(err))
}

func (c *Consumer) release(ctx context.Context, job Job) {
	if err := c.queue.ack(ctx, job); err != nil {
		c.logger.Error("Failed to release job",
			zap.String("job_id", job.ID),
			zap.String("project_id", job.ProjectID),
			zap.Error(err))
	}
}

func (c *Consumer) invoke(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Job handler panicked",
				zap.String("job_id", job.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return c.handler(ctx, job)
}

func (c *Consumer) observe(event string) {
	if c.observer != nil {
		c.observer.ObserveQueue(event)
	}
}
