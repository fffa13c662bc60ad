package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	popTimeout     = 5 * time.Second
	defaultWorkers = 4
)

// Consumer pulls job envelopes off Redis lists and dispatches them to
// registered handlers. Delivery is at-least-once: a crashed worker loses
// nothing that has not been popped, and handler failures requeue the job
// until its attempt budget is spent.
type Consumer struct {
	client      *redis.Client
	prefix      string
	workers     int
	maxAttempts int
	logger      *slog.Logger

	mu       sync.Mutex
	handlers map[string]Handler
	keys     []string
}

// NewConsumer constructs a Consumer. workers <= 0 falls back to a default.
func NewConsumer(client *redis.Client, prefix string, workers, maxAttempts int, logger *slog.Logger) *Consumer {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Consumer{
		client:      client,
		prefix:      prefix,
		workers:     workers,
		maxAttempts: maxAttempts,
		logger:      logger.With("component", "queue"),
		handlers:    make(map[string]Handler),
	}
}

// Handle registers a handler for the named queue. Must be called before Run.
func (c *Consumer) Handle(name string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[name] = handler
	c.keys = append(c.keys, c.queueKey(name))
}

// Run blocks consuming jobs until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	c.logger.Info("queue consumer started", "workers", c.workers, "queues", len(c.keys))
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.workLoop(ctx)
		}()
	}
	wg.Wait()
	c.logger.Info("queue consumer stopped")
}

func (c *Consumer) workLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		result, err := c.client.BLPop(ctx, popTimeout, c.keys...).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("queue pop failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		// BLPop returns [key, value].
		if len(result) != 2 {
			continue
		}
		c.process(ctx, result[0], []byte(result[1]))
	}
}

func (c *Consumer) process(ctx context.Context, key string, raw []byte) {
	var job Envelope
	if err := json.Unmarshal(raw, &job); err != nil {
		c.logger.Error("discarding undecodable job", "queue", key, "error", err)
		c.deadLetter(ctx, raw)
		recordJob(key, "malformed")
		return
	}

	c.mu.Lock()
	handler, ok := c.handlers[job.Name]
	c.mu.Unlock()
	if !ok {
		c.logger.Error("no handler for job", "queue", job.Name, "job_id", job.ID)
		c.deadLetter(ctx, raw)
		recordJob(job.Name, "unhandled")
		return
	}

	start := time.Now()
	err := handler(ctx, job)
	switch {
	case err == nil:
		recordJob(job.Name, "ok")
		c.logger.Debug("job done", "queue", job.Name, "job_id", job.ID, "duration", time.Since(start))
	case IsPermanent(err):
		recordJob(job.Name, "permanent")
		c.logger.Warn("job stopped permanently", "queue", job.Name, "job_id", job.ID, "error", err)
	default:
		recordJob(job.Name, "retry")
		c.retry(ctx, job, err)
	}
}

func (c *Consumer) retry(ctx context.Context, job Envelope, cause error) {
	job.Attempts++
	raw, err := json.Marshal(job)
	if err != nil {
		c.logger.Error("failed to re-encode job", "queue", job.Name, "job_id", job.ID, "error", err)
		return
	}
	if job.Attempts >= c.maxAttempts {
		c.logger.Error("job exhausted attempts", "queue", job.Name, "job_id", job.ID, "attempts", job.Attempts, "error", cause)
		c.deadLetter(ctx, raw)
		recordJob(job.Name, "dead")
		return
	}
	c.logger.Warn("job requeued", "queue", job.Name, "job_id", job.ID, "attempts", job.Attempts, "error", cause)
	if err := c.client.RPush(ctx, c.queueKey(job.Name), raw).Err(); err != nil {
		c.logger.Error("requeue failed", "queue", job.Name, "job_id", job.ID, "error", err)
	}
}

func (c *Consumer) deadLetter(ctx context.Context, raw []byte) {
	if err := c.client.RPush(ctx, c.prefix+":dead", raw).Err(); err != nil {
		c.logger.Error("dead letter push failed", "error", err)
	}
}

func (c *Consumer) queueKey(name string) string {
	return c.prefix + ":queue:" + name
}
