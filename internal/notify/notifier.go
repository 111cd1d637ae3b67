// Package notify fans session notifications out to the message broker.
// Delivery is fire-and-forget: a broker outage must never stall a session's
// event loop.
package notify

import (
	"context"

	"github.com/brendondev/central-empresa/internal/model"
)

// Notifier publishes session lifecycle and inbound-message notifications.
type Notifier interface {
	NotifyStatusChanged(ctx context.Context, event model.StatusChangedEvent)
	NotifyMessageReceived(ctx context.Context, event model.MessageReceivedEvent)
	Stop()
}

// Broker is the narrow publish contract against the message broker.
type Broker interface {
	Publish(subject string, data []byte, headers map[string]string) error
	Close()
}
