package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/brendondev/central-empresa/internal/config"
	"github.com/brendondev/central-empresa/internal/model"
	"github.com/brendondev/central-empresa/pkg/logger"
)

type capturedPublish struct {
	subject string
	data    []byte
	headers map[string]string
}

// capturingBroker records publishes on a channel so tests can wait for the
// asynchronous pool workers.
type capturingBroker struct {
	published chan capturedPublish
}

func newCapturingBroker() *capturingBroker {
	return &capturingBroker{published: make(chan capturedPublish, 16)}
}

func (b *capturingBroker) Publish(subject string, data []byte, headers map[string]string) error {
	b.published <- capturedPublish{subject: subject, data: data, headers: headers}
	return nil
}

func (b *capturingBroker) Close() {}

func newTestPublisher(t *testing.T, broker Broker) *Publisher {
	t.Helper()
	logger.Log = zaptest.NewLogger(t).Named("test")
	p, err := NewPublisher(config.NotifierPoolConfig{
		PoolSize:   2,
		QueueSize:  16,
		ExpiryTime: time.Minute,
	}, broker, "v1.sessions.status", "v1.sessions.messages", logger.Log)
	require.NoError(t, err)
	t.Cleanup(p.Stop)
	return p
}

func TestPublisher_NotifyStatusChanged(t *testing.T) {
	broker := newCapturingBroker()
	p := newTestPublisher(t, broker)

	event := model.StatusChangedEvent{
		SessionID: "session-1",
		Status:    model.SessionStatusQRPending,
		QRCode:    "data:image/png;base64,abc",
		Timestamp: time.Now().UTC(),
	}
	p.NotifyStatusChanged(context.Background(), event)

	select {
	case got := <-broker.published:
		assert.Equal(t, "v1.sessions.status.session-1", got.subject)
		assert.Equal(t, model.NotificationStatusChanged, got.headers["event_type"])

		var decoded model.StatusChangedEvent
		require.NoError(t, json.Unmarshal(got.data, &decoded))
		assert.Equal(t, event.SessionID, decoded.SessionID)
		assert.Equal(t, event.Status, decoded.Status)
		assert.Equal(t, event.QRCode, decoded.QRCode)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for status notification")
	}
}

func TestPublisher_NotifyMessageReceived(t *testing.T) {
	broker := newCapturingBroker()
	p := newTestPublisher(t, broker)

	message := model.NewFakeMessage("session-1", "contact-1")
	p.NotifyMessageReceived(context.Background(), model.MessageReceivedEvent{
		SessionID: "session-1",
		Message:   message,
		Timestamp: time.Now().UTC(),
	})

	select {
	case got := <-broker.published:
		assert.Equal(t, "v1.sessions.messages.session-1", got.subject)
		assert.Equal(t, model.NotificationMessageReceived, got.headers["event_type"])

		var decoded model.MessageReceivedEvent
		require.NoError(t, json.Unmarshal(got.data, &decoded))
		assert.Equal(t, message.MessageID, decoded.Message.MessageID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message notification")
	}
}
