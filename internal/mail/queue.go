// queue.go
//
// Redis-list mail queue. QueuedMailer satisfies Mailer by enqueueing; the
// worker pops jobs and hands them to the wrapped Mailer (SMTP in production).
// For the reset flow a successful enqueue is what "dispatched" means: an
// enqueue failure is reported to the caller so the reset record is rolled back.
package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// QueueKey is the Redis list holding pending jobs.
const QueueKey = "blog:mail:queue"

// DefaultMaxQueueSize caps the queue when the config leaves it unset.
const DefaultMaxQueueSize int64 = 1000

// MaxAttempts is how many sends a job gets before it is dropped.
const MaxAttempts = 3

// ErrQueueFull is returned by enqueue when the queue has reached its cap.
var ErrQueueFull = errors.New("mail queue full")

// errUnknownJob marks a payload no retry can fix.
var errUnknownJob = errors.New("unknown mail job type")

const (
	jobWelcome       = "welcome"
	jobPasswordReset = "password_reset"
)

// EmailJob is the JSON payload stored on the list.
type EmailJob struct {
	Type      string            `json:"type"`
	ToEmail   string            `json:"to_email"`
	FirstName string            `json:"first_name,omitempty"`
	URL       string            `json:"url,omitempty"`
	ExpiresIn time.Duration     `json:"expires_in,omitempty"`
	Vars      map[string]string `json:"vars,omitempty"`
	Attempts  int               `json:"attempts,omitempty"`
}

// QueuedMailer is a Mailer that defers delivery to StartWorker.
type QueuedMailer struct {
	inner   Mailer
	rdb     *redis.Client
	maxSize int64 // 0 = unlimited
}

// NewQueuedMailer wraps inner; rdb is the shared client.
func NewQueuedMailer(inner Mailer, rdb *redis.Client, maxSize int64) *QueuedMailer {
	return &QueuedMailer{inner: inner, rdb: rdb, maxSize: maxSize}
}

// pushScript appends ARGV[2] to KEYS[1] unless the list already holds ARGV[1]
// items (0 disables the cap). Returns 1 when pushed, 0 when full.
var pushScript = redis.NewScript(`
local max = tonumber(ARGV[1])
if max > 0 and redis.call('LLEN', KEYS[1]) >= max then
    return 0
end
redis.call('RPUSH', KEYS[1], ARGV[2])
return 1
`)

// SendWelcome queues the registration greeting.
func (q *QueuedMailer) SendWelcome(ctx context.Context, toEmail, firstName string) error {
	return q.enqueue(ctx, EmailJob{Type: jobWelcome, ToEmail: toEmail, FirstName: firstName})
}

// SendPasswordReset queues the reset link.
func (q *QueuedMailer) SendPasswordReset(ctx context.Context, toEmail, resetURL string, expiresIn time.Duration, vars map[string]string) error {
	return q.enqueue(ctx, EmailJob{
		Type:      jobPasswordReset,
		ToEmail:   toEmail,
		URL:       resetURL,
		ExpiresIn: expiresIn,
		Vars:      vars,
	})
}

func (q *QueuedMailer) enqueue(ctx context.Context, job EmailJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling email job: %w", err)
	}
	pushed, err := pushScript.Run(ctx, q.rdb, []string{QueueKey}, q.maxSize, data).Int64()
	if err != nil {
		return fmt.Errorf("enqueuing email job: %w", err)
	}
	if pushed == 0 {
		return ErrQueueFull
	}
	return nil
}

// StartWorker pops and delivers jobs until ctx is cancelled. Run it in a goroutine.
func (q *QueuedMailer) StartWorker(ctx context.Context) {
	for {
		// the 2s block keeps the loop responsive to ctx without spinning
		res, err := q.rdb.BLPop(ctx, 2*time.Second, QueueKey).Result()
		switch {
		case ctx.Err() != nil:
			return
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			slog.Error("mail worker: queue pop failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		var job EmailJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			slog.Error("mail worker: dropping malformed job", "error", err)
			continue
		}
		q.process(ctx, job)
	}
}

// process delivers one job and re-queues it at the tail on failure until
// MaxAttempts is reached.
func (q *QueuedMailer) process(ctx context.Context, job EmailJob) {
	err := q.dispatch(ctx, job)
	if err == nil {
		return
	}
	if errors.Is(err, errUnknownJob) {
		slog.Error("mail worker: dropping job", "type", job.Type, "error", err)
		return
	}
	job.Attempts++
	if job.Attempts >= MaxAttempts {
		slog.Error("mail worker: giving up", "type", job.Type, "to", job.ToEmail, "attempts", job.Attempts, "error", err)
		return
	}
	slog.Warn("mail worker: send failed, requeueing", "type", job.Type, "to", job.ToEmail, "attempts", job.Attempts, "error", err)
	if qErr := q.enqueue(ctx, job); qErr != nil {
		slog.Error("mail worker: requeue failed", "type", job.Type, "to", job.ToEmail, "error", qErr)
	}
}

// dispatch hands job to the inner Mailer.
func (q *QueuedMailer) dispatch(ctx context.Context, job EmailJob) error {
	switch job.Type {
	case jobWelcome:
		return q.inner.SendWelcome(ctx, job.ToEmail, job.FirstName)
	case jobPasswordReset:
		return q.inner.SendPasswordReset(ctx, job.ToEmail, job.URL, job.ExpiresIn, job.Vars)
	default:
		return fmt.Errorf("%w: %q", errUnknownJob, job.Type)
	}
}
