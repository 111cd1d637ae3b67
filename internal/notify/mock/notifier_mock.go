package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/brendondev/central-empresa/internal/model"
	"github.com/brendondev/central-empresa/internal/notify"
)

// NotifierMock mocks the notify.Notifier interface
type NotifierMock struct {
	mock.Mock
}

// Ensure NotifierMock implements the interface
var _ notify.Notifier = (*NotifierMock)(nil)

// NotifyStatusChanged mocks the NotifyStatusChanged method
func (m *NotifierMock) NotifyStatusChanged(ctx context.Context, event model.StatusChangedEvent) {
	m.Called(ctx, event)
}

// NotifyMessageReceived mocks the NotifyMessageReceived method
func (m *NotifierMock) NotifyMessageReceived(ctx context.Context, event model.MessageReceivedEvent) {
	m.Called(ctx, event)
}

// Stop mocks the Stop method
func (m *NotifierMock) Stop() {
	m.Called()
}

// BrokerMock mocks the notify.Broker interface
type BrokerMock struct {
	mock.Mock
}

// Ensure BrokerMock implements the interface
var _ notify.Broker = (*BrokerMock)(nil)

// Publish mocks the Publish method
func (m *BrokerMock) Publish(subject string, data []byte, headers map[string]string) error {
	args := m.Called(subject, data, headers)
	return args.Error(0)
}

// Close mocks the Close method
func (m *BrokerMock) Close() {
	m.Called()
}
