package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/forPelevin/mkshorts/internal/types"
)

const (
	JobsKey    = "mkshorts:jobs"
	ResultsKey = "mkshorts:results"
)

type Queue struct {
	rdb *redis.Client
}

// Dial connects and pings the server.
func Dial(ctx context.Context, redisURL string) (*Queue, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Queue{rdb: rdb}, nil
}

func (q *Queue) Close() error { return q.rdb.Close() }

// Enqueue pushes a job; jobs are popped from the other end in FIFO order.
func (q *Queue) Enqueue(ctx context.Context, job types.Job) (types.Job, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	b, err := json.Marshal(job)
	if err != nil {
		return job, err
	}
	if err := q.rdb.LPush(ctx, JobsKey, b).Err(); err != nil {
		return job, fmt.Errorf("redis enqueue: %w", err)
	}
	return job, nil
}

func (q *Queue) Pop(ctx context.Context, wait time.Duration) (types.Job, bool, error) {
	res, err := q.rdb.BRPop(ctx, wait, JobsKey).Result()
	if errors.Is(err, redis.Nil) {
		return types.Job{}, false, nil
	}
	if err != nil {
		return types.Job{}, false, fmt.Errorf("redis pop: %w", err)
	}
	if len(res) != 2 {
		return types.Job{}, false, fmt.Errorf("redis pop: unexpected reply %v", res)
	}
	job, err := DecodeJob(res[1])
	if err != nil {
		return types.Job{}, false, err
	}
	return job, true, nil
}

func (q *Queue) PushResult(ctx context.Context, res types.JobResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	if err := q.rdb.LPush(ctx, ResultsKey, b).Err(); err != nil {
		return fmt.Errorf("redis push result: %w", err)
	}
	return nil
}

// DecodeJob accepts a JSON job or, for convenience, a bare subject string.
func DecodeJob(raw string) (types.Job, error) {
	raw = strings.TrimSpace(raw)
	var job types.Job
	if strings.HasPrefix(raw, "{") {
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			return types.Job{}, fmt.Errorf("decode job: %w", err)
		}
	} else {
		job.Subject = raw
	}
	job.Subject = strings.TrimSpace(job.Subject)
	if job.Subject == "" {
		return types.Job{}, errors.New("decode job: empty subject")
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	return job, nil
}
