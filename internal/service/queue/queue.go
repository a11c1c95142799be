package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ifuryst/publish-studio/internal/models"
)

// Job is a deferred publish. At most one job is pending per project; scheduling
// again replaces it.
type Job struct {
	ID        string                `json:"id"`
	ProjectID string                `json:"project_id"`
	UserID    string                `json:"user_id"`
	Platforms []models.PlatformName `json:"platforms"`
	DueAt     time.Time             `json:"due_at"`
	Attempts  int                   `json:"attempts"`
	Payload   json.RawMessage       `json:"payload,omitempty"`

	// raw is the stored JSON the job was claimed with.
	raw string
}

// Handler processes a due job. A returned error makes the consumer retry it.
type Handler func(ctx context.Context, job Job) error

// claimScript moves a member from the due set to the lease set if it is still
// due and hands back its payload. Only one caller can win for a given member.
// The payload stays in the hash until the job is acknowledged.
var claimScript = redis.NewScript(`
local score = redis.call('ZSCORE', KEYS[1], ARGV[1])
if not score or tonumber(score) > tonumber(ARGV[2]) then
  return false
end
redis.call('ZREM', KEYS[1], ARGV[1])
local payload = redis.call('HGET', KEYS[2], ARGV[1])
if not payload then
  return false
end
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[1])
return payload
`)

// ackScript drops the lease and deletes the payload unless the project was
// rescheduled while the job ran.
var ackScript = redis.NewScript(`
redis.call('ZREM', KEYS[2], ARGV[1])
if redis.call('HGET', KEYS[1], ARGV[1]) == ARGV[2] then
  redis.call('HDEL', KEYS[1], ARGV[1])
end
return 1
`)

// requeueScript drops the lease and re-adds the job unless a newer one was
// scheduled for the project meanwhile.
var requeueScript = redis.NewScript(`
redis.call('ZREM', KEYS[3], ARGV[1])
if redis.call('HGET', KEYS[2], ARGV[1]) ~= ARGV[3] then
  return 0
end
redis.call('HSET', KEYS[2], ARGV[1], ARGV[4])
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[1])
return 1
`)

// recoverScript returns jobs whose lease expired to the due set.
var recoverScript = redis.NewScript(`
local expired = redis.call('ZRANGEBYSCORE', KEYS[3], '-inf', ARGV[1])
local recovered = 0
for _, member in ipairs(expired) do
  redis.call('ZREM', KEYS[3], member)
  if redis.call('HEXISTS', KEYS[2], member) == 1 and not redis.call('ZSCORE', KEYS[1], member) then
    redis.call('ZADD', KEYS[1], ARGV[1], member)
    recovered = recovered + 1
  end
end
return recovered
`)

// Queue stores jobs in Redis: a sorted set of project ids scored by due time
// in unix milliseconds, a hash holding each job's JSON and a sorted set of
// running jobs scored by lease deadline.
type Queue struct {
	rdb        redis.UniversalClient
	dueKey     string
	payloadKey string
	leaseKey   string
	now        func() time.Time
}

func New(rdb redis.UniversalClient, keyPrefix string) *Queue {
	return &Queue{
		rdb:        rdb,
		dueKey:     keyPrefix + ":jobs:due",
		payloadKey: keyPrefix + ":jobs:payload",
		leaseKey:   keyPrefix + ":jobs:lease",
		now:        time.Now,
	}
}

// Schedule stores job, replacing any pending job for the same project.
func (q *Queue) Schedule(ctx context.Context, job Job) error {
	if job.ProjectID == "" {
		return errors.New("job has no project id")
	}
	if job.DueAt.IsZero() {
		return errors.New("job has no due time")
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.payloadKey, job.ProjectID, data)
		pipe.ZAdd(ctx, q.dueKey, redis.Z{Score: score(job.DueAt), Member: job.ProjectID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}
	return nil
}

// Cancel removes the pending job for the project, if any.
func (q *Queue) Cancel(ctx context.Context, projectID string) error {
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, q.dueKey, projectID)
		pipe.ZRem(ctx, q.leaseKey, projectID)
		pipe.HDel(ctx, q.payloadKey, projectID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}
	return nil
}

// Pending returns the job waiting or running for the project, or nil.
func (q *Queue) Pending(ctx context.Context, projectID string) (*Job, error) {
	data, err := q.rdb.HGet(ctx, q.payloadKey, projectID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job: %w", err)
	}
	return decode(data)
}

// due lists up to limit project ids whose job is due at now.
func (q *Queue) due(ctx context.Context, now time.Time, limit int) ([]string, error) {
	members, err := q.rdb.ZRangeByScore(ctx, q.dueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list due jobs: %w", err)
	}
	return members, nil
}

// claim atomically takes a lease on the project's job until deadline. It
// returns nil when another consumer got there first or the job was
// rescheduled into the future.
func (q *Queue) claim(ctx context.Context, projectID string, now, deadline time.Time) (*Job, error) {
	data, err := claimScript.Run(ctx, q.rdb,
		[]string{q.dueKey, q.payloadKey, q.leaseKey},
		projectID, now.UnixMilli(), deadline.UnixMilli(),
	).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	job, err := decode([]byte(data))
	if err != nil {
		return nil, err
	}
	job.raw = data
	return job, nil
}

// ack releases a finished job.
func (q *Queue) ack(ctx context.Context, job Job) error {
	err := ackScript.Run(ctx, q.rdb,
		[]string{q.payloadKey, q.leaseKey},
		job.ProjectID, job.raw,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to ack job: %w", err)
	}
	return nil
}

// requeue puts a failed job back for another attempt. It reports false when a
// newer job for the project already exists.
func (q *Queue) requeue(ctx context.Context, job Job) (bool, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return false, fmt.Errorf("failed to marshal job: %w", err)
	}
	added, err := requeueScript.Run(ctx, q.rdb,
		[]string{q.dueKey, q.payloadKey, q.leaseKey},
		job.ProjectID, score(job.DueAt), job.raw, data,
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to requeue job: %w", err)
	}
	return added == 1, nil
}

// recoverExpired makes jobs whose lease ran out due again. A lease runs out
// when the consumer holding it died mid-job.
func (q *Queue) recoverExpired(ctx context.Context, now time.Time) (int, error) {
	n, err := recoverScript.Run(ctx, q.rdb,
		[]string{q.dueKey, q.payloadKey, q.leaseKey},
		now.UnixMilli(),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to recover leases: %w", err)
	}
	return n, nil
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func decode(data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &job, nil
}
