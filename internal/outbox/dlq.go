package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DLQ outcomes recorded per entry.
const (
	outcomeRequeued    = "requeued"
	outcomeRescheduled = "rescheduled"
	outcomeQuarantined = "quarantined"
)

// RetryPolicy bounds how often a dead-lettered event is replayed.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy returns five attempts starting one minute apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 5, BaseDelay: time.Minute, MaxDelay: time.Hour}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxRetries <= 0 {
		p.MaxRetries = def.MaxRetries
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	return p
}

// Backoff returns the delay before the given 1-based attempt. It doubles per
// attempt and never exceeds MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 32 {
		return p.MaxDelay
	}
	delay := p.BaseDelay << uint(attempt-1)
	if delay <= 0 || delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// parked is an outbox message on its way to the DLQ.
type parked struct {
	msg    Message
	reason string
}

// queueDeadLetters adds one DLQ insert per entry to batch.
func queueDeadLetters(batch *pgx.Batch, entries []parked) {
	for _, p := range entries {
		batch.Queue(
			`INSERT INTO outbox_dlq (event_id, event_type, topic, payload, reason, aggregate_type, aggregate_id, schema_subject, partition_key, next_retry_at)
             VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9, NOW())`,
			p.msg.EventID, p.msg.EventType, p.msg.Topic, p.msg.Payload, p.reason,
			p.msg.AggregateType, p.msg.AggregateID, p.msg.SchemaSubject, p.msg.PartitionKey,
		)
	}
}

// deadLetter is an outbox_dlq row due for another attempt.
type deadLetter struct {
	ID         int64
	EventType  string
	Topic      string
	RetryCount int
}

// DLQManager replays dead-lettered events into the outbox and quarantines the
// ones that keep failing or can never be routed.
type DLQManager struct {
	pool   *pgxpool.Pool
	policy RetryPolicy
	logger *zap.Logger
}

// NewDLQManager constructs a DLQManager. Zero policy fields take their defaults.
func NewDLQManager(pool *pgxpool.Pool, policy RetryPolicy, logger *zap.Logger) *DLQManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DLQManager{pool: pool, policy: policy.withDefaults(), logger: logger.Named("dlq")}
}

// RunOnce handles up to limit due entries and returns how many were requeued.
func (m *DLQManager) RunOnce(ctx context.Context, limit int) (int, error) {
	due, err := m.due(ctx, limit)
	if err != nil {
		return 0, err
	}

	requeued := 0
	var errs error
	for _, entry := range due {
		outcome, err := m.handle(ctx, entry)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("dlq entry %d: %w", entry.ID, err))
			continue
		}
		dlqOutcomes.WithLabelValues(entry.Topic, entry.EventType, outcome).Inc()
		if outcome == outcomeRequeued {
			requeued++
		}
	}

	m.refreshBacklog(ctx)
	return requeued, errs
}

func (m *DLQManager) due(ctx context.Context, limit int) ([]deadLetter, error) {
	rows, err := m.pool.Query(ctx,
		`SELECT dlq_id, event_type, topic, retry_count
           FROM outbox_dlq
          WHERE quarantined_at IS NULL AND (next_retry_at IS NULL OR next_retry_at <= NOW())
          ORDER BY created_at, dlq_id
          LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (deadLetter, error) {
		var d deadLetter
		err := row.Scan(&d.ID, &d.EventType, &d.Topic, &d.RetryCount)
		return d, err
	})
}

func (m *DLQManager) handle(ctx context.Context, entry deadLetter) (string, error) {
	if _, ok := Lookup(entry.EventType); !ok {
		return outcomeQuarantined, m.quarantine(ctx, entry, "unroutable event type")
	}
	if entry.RetryCount >= m.policy.MaxRetries {
		return outcomeQuarantined, m.quarantine(ctx, entry, "retry limit reached")
	}

	err := m.replay(ctx, entry)
	if err == nil {
		m.logger.Info("dead letter requeued", zap.Int64("dlq_id", entry.ID), zap.String("event_type", entry.EventType))
		return outcomeRequeued, nil
	}
	if errors.Is(err, context.Canceled) {
		return "", err
	}

	delay := m.policy.Backoff(entry.RetryCount + 1)
	m.logger.Warn("dead letter replay failed",
		zap.Int64("dlq_id", entry.ID),
		zap.Duration("retry_in", delay),
		zap.Error(err),
	)
	_, updateErr := m.pool.Exec(ctx,
		`UPDATE outbox_dlq
            SET retry_count = retry_count + 1,
                last_attempt_at = NOW(),
                next_retry_at = NOW() + $1::interval,
                reason = $2
          WHERE dlq_id = $3`,
		delay, err.Error(), entry.ID,
	)
	return outcomeRescheduled, updateErr
}

// replay moves the entry back into the outbox in a single statement, so a
// crash never leaves it in both tables.
func (m *DLQManager) replay(ctx context.Context, entry deadLetter) error {
	tag, err := m.pool.Exec(ctx,
		`WITH moved AS (
             DELETE FROM outbox_dlq WHERE dlq_id = $1 AND quarantined_at IS NULL
             RETURNING aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload
         )
         INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
         SELECT aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload FROM moved`,
		entry.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("entry vanished before replay")
	}
	return nil
}

func (m *DLQManager) quarantine(ctx context.Context, entry deadLetter, reason string) error {
	m.logger.Warn("dead letter quarantined", zap.Int64("dlq_id", entry.ID), zap.String("reason", reason))
	_, err := m.pool.Exec(ctx,
		`UPDATE outbox_dlq SET quarantined_at = NOW(), quarantine_reason = $1 WHERE dlq_id = $2`,
		reason, entry.ID)
	return err
}

func (m *DLQManager) refreshBacklog(ctx context.Context) {
	var count int
	if err := m.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NULL`).Scan(&count); err != nil {
		m.logger.Debug("dlq backlog query failed", zap.Error(err))
		return
	}
	dlqBacklog.Set(float64(count))
}
