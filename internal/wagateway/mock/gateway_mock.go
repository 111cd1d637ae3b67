package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/brendondev/central-empresa/internal/vault"
	"github.com/brendondev/central-empresa/internal/wagateway"
)

// GatewayMock is a testify mock for the wagateway.Gateway interface.
type GatewayMock struct {
	mock.Mock
}

// Ensure GatewayMock implements the interface
var _ wagateway.Gateway = (*GatewayMock)(nil)

// Connect mocks the Connect method.
func (m *GatewayMock) Connect(ctx context.Context, sessionID string, creds *vault.Namespace) (<-chan wagateway.Event, error) {
	args := m.Called(ctx, sessionID, creds)
	ch, _ := args.Get(0).(<-chan wagateway.Event)
	if ch == nil {
		if bidi, ok := args.Get(0).(chan wagateway.Event); ok {
			ch = bidi
		}
	}
	return ch, args.Error(1)
}

// Send mocks the Send method.
func (m *GatewayMock) Send(ctx context.Context, sessionID, recipientJID, kind, content string) (string, error) {
	args := m.Called(ctx, sessionID, recipientJID, kind, content)
	return args.String(0), args.Error(1)
}

// Logout mocks the Logout method.
func (m *GatewayMock) Logout(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}
