package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/velorek/notiq/internal/domain"
	"github.com/velorek/notiq/internal/ledger"
	"github.com/velorek/notiq/internal/observability"
	"github.com/velorek/notiq/internal/provider"
	"github.com/velorek/notiq/internal/ratelimit"
	"github.com/velorek/notiq/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultPollInterval  = 5 * time.Second
	defaultPollBatchSize = 10

	deliveryEventType = "notification_delivery"
)

// EnqueueInput is the public enqueue surface. Delivery happens
// asynchronously on a later poll; callers get the persisted job back.
type EnqueueInput struct {
	To      string
	Subject string
	HTML    string
	UserID  *int64
	Channel domain.Channel
}

// QueueProcessor drains due notification jobs on a fixed interval, applying
// primary-to-secondary failover, appending one audit record per attempt, and
// enforcing the retry/backoff/escalation state machine. Jobs in a batch are
// processed sequentially: ordering stays predictable and the audit chain
// keeps a single writer.
type QueueProcessor struct {
	jobs          repository.JobRepository
	ledger        *ledger.Ledger
	dispatcher    *Dispatcher
	limiter       ratelimit.RateLimiter
	operatorEmail string
	interval      time.Duration
	batchSize     int
	logger        *zap.Logger
	metrics       *observability.Metrics
	now           func() time.Time
}

func NewQueueProcessor(
	jobs repository.JobRepository,
	auditLedger *ledger.Ledger,
	dispatcher *Dispatcher,
	limiter ratelimit.RateLimiter,
	operatorEmail string,
	interval time.Duration,
	batchSize int,
	logger *zap.Logger,
) (*QueueProcessor, error) {
	if jobs == nil {
		return nil, fmt.Errorf("job repository is required")
	}
	if auditLedger == nil {
		return nil, fmt.Errorf("audit ledger is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if strings.TrimSpace(operatorEmail) == "" {
		return nil, fmt.Errorf("operator email is required")
	}
	if limiter == nil {
		limiter = ratelimit.NopLimiter{}
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if batchSize <= 0 {
		batchSize = defaultPollBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &QueueProcessor{
		jobs:          jobs,
		ledger:        auditLedger,
		dispatcher:    dispatcher,
		limiter:       limiter,
		operatorEmail: strings.TrimSpace(operatorEmail),
		interval:      interval,
		batchSize:     batchSize,
		logger:        logger,
		metrics:       nil,
		now:           time.Now,
	}, nil
}

func (p *QueueProcessor) SetMetrics(metrics *observability.Metrics) {
	if p == nil {
		return
	}
	p.metrics = metrics
}

// Enqueue persists a new job eligible for immediate delivery.
func (p *QueueProcessor) Enqueue(ctx context.Context, input EnqueueInput) (*domain.NotificationJob, error) {
	return p.EnqueueTx(ctx, p.jobs, input)
}

// EnqueueTx persists the job through the supplied repository so callers can
// run the insert inside an enclosing transaction, e.g. under an idempotency
// claim.
func (p *QueueProcessor) EnqueueTx(ctx context.Context, jobs repository.JobRepository, input EnqueueInput) (*domain.NotificationJob, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	channel := input.Channel
	if channel == "" {
		channel = domain.ChannelEmail
	}

	job := &domain.NotificationJob{
		Recipient:   strings.TrimSpace(input.To),
		Subject:     strings.TrimSpace(input.Subject),
		Body:        input.HTML,
		UserID:      input.UserID,
		Channel:     channel,
		MaxAttempts: domain.DefaultMaxAttempts,
		NextRunAt:   p.now().UTC(),
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}

	if err := jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist notification job: %w", err)
	}

	p.metrics.IncJobEnqueued(channel.String())
	p.logger.Info("notification job enqueued",
		zap.Int64("jobId", job.ID),
		zap.String("recipient", job.Recipient),
		zap.String("channel", channel.String()),
	)

	return job, nil
}

// Start runs the poll loop until context cancellation.
func (p *QueueProcessor) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Drain anything already due before the first ticker edge.
	if err := p.processDue(ctx); err != nil && ctx.Err() == nil {
		p.logger.Error("queue processor initial poll failed", zap.Error(err))
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.processDue(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				p.logger.Error("queue processor poll failed", zap.Error(err))
			}
		}
	}
}

func (p *QueueProcessor) processDue(ctx context.Context) error {
	dueJobs, err := p.jobs.GetDue(ctx, p.now().UTC(), p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch due jobs: %w", err)
	}

	for i := range dueJobs {
		job := dueJobs[i]
		if err := p.processJob(ctx, &job); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// One bad job must never poison the rest of the batch.
			p.logger.Error("job processing failed",
				zap.Int64("jobId", job.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (p *QueueProcessor) processJob(ctx context.Context, job *domain.NotificationJob) error {
	if err := p.limiter.Wait(ctx, job.Channel.String()); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	msg := provider.Message{
		To:      job.Recipient,
		Subject: job.Subject,
		HTML:    job.Body,
	}

	sendStart := p.now()
	result := p.dispatcher.Dispatch(ctx, msg)
	p.metrics.ObserveDeliveryDuration(result.Provider.String(), p.now().Sub(sendStart))

	p.appendAudit(ctx, job, result)

	if result.Delivered() {
		if err := p.jobs.Delete(ctx, job.ID); err != nil {
			return fmt.Errorf("failed to delete delivered job: %w", err)
		}
		p.logger.Info("notification delivered",
			zap.Int64("jobId", job.ID),
			zap.String("recipient", job.Recipient),
			zap.String("provider", result.Provider.String()),
		)
		return nil
	}

	return p.handleFailure(ctx, job, result.Err)
}

func (p *QueueProcessor) handleFailure(ctx context.Context, job *domain.NotificationJob, sendErr error) error {
	attempt := job.AttemptCount + 1
	lastError := sendErr.Error()

	if attempt >= job.MaxAttempts {
		// Terminal failure: the row stays behind for inspection and the
		// operator hears about it exactly once.
		if err := p.jobs.MarkExhausted(ctx, job.ID, attempt, lastError); err != nil {
			return fmt.Errorf("failed to mark job exhausted: %w", err)
		}
		p.logger.Error("job exhausted retry budget",
			zap.Int64("jobId", job.ID),
			zap.String("recipient", job.Recipient),
			zap.Int("attempts", attempt),
			zap.String("lastError", lastError),
		)
		p.sendBreachAlert(ctx, job, attempt, lastError)
		return nil
	}

	nextRunAt := p.now().UTC().Add(backoffDelay(attempt))
	if err := p.jobs.ScheduleRetry(ctx, job.ID, attempt, nextRunAt, lastError); err != nil {
		return fmt.Errorf("failed to schedule retry: %w", err)
	}

	p.metrics.IncRetryScheduled(job.Channel.String())
	p.logger.Warn("delivery failed, retry scheduled",
		zap.Int64("jobId", job.ID),
		zap.Int("attempt", attempt),
		zap.Time("nextRunAt", nextRunAt),
		zap.String("lastError", lastError),
	)

	return nil
}

// appendAudit writes one chain record per delivery attempt. Ledger failures
// are logged and dropped: the delivery outcome already stands and must not
// be altered by audit availability.
func (p *QueueProcessor) appendAudit(ctx context.Context, job *domain.NotificationJob, result DispatchResult) {
	var errStr *string
	if result.Err != nil {
		value := result.Err.Error()
		errStr = &value
	}

	entry := ledger.Entry{
		EventType:  deliveryEventType,
		ActorEmail: job.Recipient,
		Recipients: []string{job.Recipient},
		Delivery:   job.Channel,
		Provider:   result.Provider,
		Success:    result.Delivered(),
		Error:      errStr,
	}

	if err := p.ledger.Append(ctx, entry); err != nil {
		p.metrics.IncAuditAppendFailure()
		p.logger.Error("audit append failed",
			zap.Int64("jobId", job.ID),
			zap.Error(err),
		)
		return
	}
	p.metrics.IncAuditAppend(result.Delivered())
}

func (p *QueueProcessor) sendBreachAlert(ctx context.Context, job *domain.NotificationJob, attempts int, lastError string) {
	subject := fmt.Sprintf("SLA breach: notification job %d undeliverable", job.ID)
	body := fmt.Sprintf(
		"<p>Notification job exhausted its retry budget.</p>"+
			"<ul><li>Job ID: %d</li><li>Recipient: %s</li><li>Subject: %s</li>"+
			"<li>Attempts: %d</li><li>Last error: %s</li><li>Created: %s</li></ul>",
		job.ID, job.Recipient, job.Subject, attempts, lastError, job.CreatedAt.UTC().Format(time.RFC3339),
	)

	result := p.dispatcher.Dispatch(ctx, provider.Message{
		To:      p.operatorEmail,
		Subject: subject,
		HTML:    body,
	})
	if !result.Delivered() {
		p.logger.Error("failed to deliver SLA breach alert",
			zap.Int64("jobId", job.ID),
			zap.Error(result.Err),
		)
		return
	}

	p.metrics.IncBreachAlert()
}
