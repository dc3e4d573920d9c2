package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crewdock/crewdock/internal/models"
)

// ErrQueueUnavailable indicates the dispatch queue backend is unreachable.
// The session row is already committed when this surfaces, so callers treat
// it as retryable via a later resume.
var ErrQueueUnavailable = errors.New("dispatch queue unavailable")

// JobExecuteRun is the job name the external worker pool consumes.
const JobExecuteRun = "execute_rag"

// JobPayload is the dispatch job body.
type JobPayload struct {
	Type      models.AppType `json:"type"`
	SessionID string         `json:"sessionId"`
}

// JobOptions tell the queue backend what to do with job records after a
// terminal outcome. Retries are the worker's responsibility.
type JobOptions struct {
	RemoveOnComplete bool `json:"removeOnComplete"`
	RemoveOnFail     bool `json:"removeOnFail"`
}

// DispatchQueue is the durable, at-least-once job queue an external worker
// pool drains to perform the actual agent/crew run.
type DispatchQueue interface {
	Enqueue(ctx context.Context, name string, payload JobPayload, opts JobOptions) error
}

// StopSignal is the cooperative cancellation channel: a flag the external
// worker polls. Setting it is advisory; nothing waits for acknowledgement.
type StopSignal interface {
	Set(ctx context.Context, sessionID string) error
}

type jobEnvelope struct {
	Name       string     `json:"name"`
	Data       JobPayload `json:"data"`
	Opts       JobOptions `json:"opts"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
}

// RedisQueue dispatches jobs onto a Redis list the worker pool BRPOPs.
type RedisQueue struct {
	client  *redis.Client
	name    string
	timeout time.Duration
}

// NewRedisQueue creates a queue producer for the named Redis list.
func NewRedisQueue(client *redis.Client, name string, timeout time.Duration) *RedisQueue {
	return &RedisQueue{client: client, name: name, timeout: timeout}
}

// Enqueue pushes one job envelope. The call blocks at most the configured
// timeout; backend failures surface as ErrQueueUnavailable.
func (q *RedisQueue) Enqueue(ctx context.Context, name string, payload JobPayload, opts JobOptions) error {
	body, err := json.Marshal(jobEnvelope{
		Name:       name,
		Data:       payload,
		Opts:       opts,
		EnqueuedAt: time.Now(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	if err := q.client.LPush(ctx, q.name, body).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return nil
}

// RedisStopSignal sets the "<sessionId>_stop" flag the worker polls.
type RedisStopSignal struct {
	client *redis.Client
}

// NewRedisStopSignal creates a stop-signal writer.
func NewRedisStopSignal(client *redis.Client) *RedisStopSignal {
	return &RedisStopSignal{client: client}
}

// Set raises the stop flag for a session.
func (s *RedisStopSignal) Set(ctx context.Context, sessionID string) error {
	return s.client.Set(ctx, sessionID+"_stop", "1", 0).Err()
}

// MessageChannel returns the pub/sub channel the worker publishes session
// messages on; the stream handler relays it to viewers.
func MessageChannel(sessionID string) string {
	return "session:" + sessionID
}
