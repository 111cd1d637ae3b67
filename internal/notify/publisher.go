package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/brendondev/central-empresa/internal/config"
	"github.com/brendondev/central-empresa/internal/model"
	"github.com/brendondev/central-empresa/internal/observer"
	"github.com/brendondev/central-empresa/pkg/logger"
)

// publishTask carries one serialized notification through the worker pool.
type publishTask struct {
	subject   string
	eventType string
	payload   []byte
}

// Publisher fans notifications out to the broker through a bounded worker
// pool. Submission never blocks the caller; under overload the notification
// is dropped and counted.
type Publisher struct {
	pool           *ants.PoolWithFunc
	broker         Broker
	statusSubject  string
	messageSubject string
	baseLogger     *zap.Logger
}

// Ensure Publisher implements Notifier
var _ Notifier = (*Publisher)(nil)

// NewPublisher creates the notification worker pool on top of the broker.
// Per-session subjects are derived by appending the session id to the
// configured base subjects.
func NewPublisher(cfg config.NotifierPoolConfig, broker Broker, statusSubject, messageSubject string, baseLogger *zap.Logger) (*Publisher, error) {
	p := &Publisher{
		broker:         broker,
		statusSubject:  statusSubject,
		messageSubject: messageSubject,
		baseLogger:     baseLogger.Named("notify_publisher"),
	}

	pool, err := ants.NewPoolWithFunc(cfg.PoolSize, func(i interface{}) {
		task, ok := i.(publishTask)
		if !ok {
			p.baseLogger.Error("Invalid task data type received", zap.Any("data", i))
			return
		}
		p.publish(task)
	},
		ants.WithExpiryDuration(cfg.ExpiryTime),
		ants.WithNonblocking(true),
		ants.WithMaxBlockingTasks(cfg.QueueSize),
		ants.WithPanicHandler(func(err interface{}) {
			p.baseLogger.Error("Panic recovered in notification worker", zap.Any("panic_error", err), zap.Stack("stack"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification worker pool: %w", err)
	}
	p.pool = pool
	p.baseLogger.Info("Notification worker pool initialized",
		zap.Int("pool_size", cfg.PoolSize),
		zap.Int("queue_size", cfg.QueueSize),
		zap.Duration("expiry_time", cfg.ExpiryTime),
	)
	return p, nil
}

// NotifyStatusChanged publishes a lifecycle transition notification.
func (p *Publisher) NotifyStatusChanged(ctx context.Context, event model.StatusChangedEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.FromContextOr(ctx, p.baseLogger).Error("Failed to marshal status notification",
			zap.String("session_id", event.SessionID), zap.Error(err))
		observer.IncNotificationPublished(model.NotificationStatusChanged, err)
		return
	}
	p.submit(ctx, publishTask{
		subject:   fmt.Sprintf("%s.%s", p.statusSubject, event.SessionID),
		eventType: model.NotificationStatusChanged,
		payload:   payload,
	})
}

// NotifyMessageReceived publishes an inbound-message notification.
func (p *Publisher) NotifyMessageReceived(ctx context.Context, event model.MessageReceivedEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.FromContextOr(ctx, p.baseLogger).Error("Failed to marshal message notification",
			zap.String("session_id", event.SessionID), zap.Error(err))
		observer.IncNotificationPublished(model.NotificationMessageReceived, err)
		return
	}
	p.submit(ctx, publishTask{
		subject:   fmt.Sprintf("%s.%s", p.messageSubject, event.SessionID),
		eventType: model.NotificationMessageReceived,
		payload:   payload,
	})
}

func (p *Publisher) submit(ctx context.Context, task publishTask) {
	observer.SetNotificationQueueLength(p.pool.Waiting())

	if err := p.pool.Invoke(task); err != nil {
		// Dropped, not retried. Notifications are best-effort by contract.
		logger.FromContextOr(ctx, p.baseLogger).Warn("Dropped notification, pool overloaded",
			zap.String("subject", task.subject),
			zap.String("event_type", task.eventType),
			zap.Error(err),
		)
		observer.IncNotificationPublished(task.eventType, err)
	}
}

// publish runs on a pool worker.
func (p *Publisher) publish(task publishTask) {
	err := p.broker.Publish(task.subject, task.payload, map[string]string{
		"event_type": task.eventType,
	})
	observer.IncNotificationPublished(task.eventType, err)
	if err != nil {
		p.baseLogger.Warn("Failed to publish notification",
			zap.String("subject", task.subject),
			zap.String("event_type", task.eventType),
			zap.Error(err),
		)
		return
	}
	p.baseLogger.Debug("Published notification",
		zap.String("subject", task.subject),
		zap.String("event_type", task.eventType),
	)
}

// Stop gracefully shuts down the worker pool.
func (p *Publisher) Stop() {
	if p.pool != nil {
		p.baseLogger.Info("Releasing notification worker pool")
		p.pool.Release()
	}
}
