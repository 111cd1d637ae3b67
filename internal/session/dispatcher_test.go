package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/brendondev/central-empresa/internal/apperrors"
	"github.com/brendondev/central-empresa/internal/model"
	storagemock "github.com/brendondev/central-empresa/internal/storage/mock"
	gatewaymock "github.com/brendondev/central-empresa/internal/wagateway/mock"
)

type dispatcherFixture struct {
	registry *Registry
	gateway  *gatewaymock.GatewayMock
	sessions *storagemock.SessionRepoMock
	contacts *storagemock.ContactRepoMock
	messages *storagemock.MessageRepoMock
	disp     *Dispatcher
}

func newDispatcherFixture(t *testing.T) *dispatcherFixture {
	f := &dispatcherFixture{
		registry: NewRegistry(),
		gateway:  new(gatewaymock.GatewayMock),
		sessions: new(storagemock.SessionRepoMock),
		contacts: new(storagemock.ContactRepoMock),
		messages: new(storagemock.MessageRepoMock),
	}
	f.disp = NewDispatcher(f.registry, f.gateway, f.sessions, f.contacts, f.messages, zaptest.NewLogger(t))
	return f
}

// connected registers a live handle in connected state.
func (f *dispatcherFixture) connected(t *testing.T, sessionID string) *Handle {
	h, err := f.registry.Acquire(sessionID, func() {})
	require.NoError(t, err)
	h.setStatus(model.SessionStatusConnected)
	return h
}

func TestDispatcher_SendDeliversAndPersists(t *testing.T) {
	f := newDispatcherFixture(t)
	f.connected(t, "session-1")

	contact := &model.Contact{ID: "contact-1", SessionID: "session-1", PhoneNumber: "5511988887777"}
	f.contacts.On("FindByID", mock.Anything, "contact-1").Return(contact, nil)
	f.gateway.On("Send", mock.Anything, "session-1", "5511988887777@s.whatsapp.net", "text", "bom dia").
		Return("msg-42", nil)
	f.messages.On("Save", mock.Anything, mock.MatchedBy(func(msg model.Message) bool {
		return msg.MessageID == "msg-42" &&
			msg.SessionID == "session-1" &&
			msg.ContactID == "contact-1" &&
			msg.Direction == model.MessageDirectionOutgoing &&
			msg.Status == model.MessageStatusSent &&
			msg.Content == "bom dia"
	})).Return(nil)
	f.contacts.On("AdvanceLastMessageAt", mock.Anything, "contact-1", mock.Anything).Return(nil)

	msg, err := f.disp.Send(context.Background(), SendRequest{
		SessionID: "session-1",
		ContactID: "contact-1",
		Content:   "bom dia",
	})
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "msg-42", msg.MessageID)
	assert.Equal(t, model.MessageStatusSent, msg.Status)

	f.gateway.AssertExpectations(t)
	f.messages.AssertExpectations(t)
	f.contacts.AssertExpectations(t)
}

func TestDispatcher_SendMediaMessage(t *testing.T) {
	f := newDispatcherFixture(t)
	f.connected(t, "session-1")

	contact := &model.Contact{ID: "contact-1", SessionID: "session-1", PhoneNumber: "5511988887777"}
	f.contacts.On("FindByID", mock.Anything, "contact-1").Return(contact, nil)
	f.gateway.On("Send", mock.Anything, "session-1", "5511988887777@s.whatsapp.net", "image", "segue a foto").
		Return("msg-43", nil)
	f.messages.On("Save", mock.Anything, mock.MatchedBy(func(msg model.Message) bool {
		return msg.Type == model.MessageTypeImage &&
			msg.MediaURL == "https://cdn.example.com/foto.jpg"
	})).Return(nil)
	f.contacts.On("AdvanceLastMessageAt", mock.Anything, "contact-1", mock.Anything).Return(nil)

	msg, err := f.disp.Send(context.Background(), SendRequest{
		SessionID: "session-1",
		ContactID: "contact-1",
		Type:      model.MessageTypeImage,
		Content:   "segue a foto",
		MediaURL:  "https://cdn.example.com/foto.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-43", msg.MessageID)
}

func TestDispatcher_SendOnUnknownSession(t *testing.T) {
	f := newDispatcherFixture(t)

	f.sessions.On("FindBySessionID", mock.Anything, "ghost").
		Return(nil, apperrors.ErrNotFound)

	_, err := f.disp.Send(context.Background(), SendRequest{
		SessionID: "ghost",
		ContactID: "contact-1",
		Content:   "oi",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
	f.gateway.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatcher_SendOnSessionAtRest(t *testing.T) {
	f := newDispatcherFixture(t)

	f.sessions.On("FindBySessionID", mock.Anything, "session-1").
		Return(&model.Session{SessionID: "session-1", Status: model.SessionStatusDisconnected}, nil)

	_, err := f.disp.Send(context.Background(), SendRequest{
		SessionID: "session-1",
		ContactID: "contact-1",
		Content:   "oi",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotConnectedError(err))
}

func TestDispatcher_SendWhileStillPairing(t *testing.T) {
	f := newDispatcherFixture(t)
	h, err := f.registry.Acquire("session-1", func() {})
	require.NoError(t, err)
	h.setStatus(model.SessionStatusQRPending)

	f.sessions.On("FindBySessionID", mock.Anything, "session-1").
		Return(&model.Session{SessionID: "session-1"}, nil)

	_, err = f.disp.Send(context.Background(), SendRequest{
		SessionID: "session-1",
		ContactID: "contact-1",
		Content:   "oi",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotConnectedError(err))
}

func TestDispatcher_ContactOfAnotherSession(t *testing.T) {
	f := newDispatcherFixture(t)
	f.connected(t, "session-1")

	f.contacts.On("FindByID", mock.Anything, "contact-9").
		Return(&model.Contact{ID: "contact-9", SessionID: "session-2", PhoneNumber: "5511988887777"}, nil)

	_, err := f.disp.Send(context.Background(), SendRequest{
		SessionID: "session-1",
		ContactID: "contact-9",
		Content:   "oi",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
	f.gateway.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatcher_UnknownContact(t *testing.T) {
	f := newDispatcherFixture(t)
	f.connected(t, "session-1")

	f.contacts.On("FindByID", mock.Anything, "ghost").
		Return(nil, apperrors.ErrNotFound)

	_, err := f.disp.Send(context.Background(), SendRequest{
		SessionID: "session-1",
		ContactID: "ghost",
		Content:   "oi",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestDispatcher_GatewayRejection(t *testing.T) {
	f := newDispatcherFixture(t)
	f.connected(t, "session-1")

	f.contacts.On("FindByID", mock.Anything, "contact-1").
		Return(&model.Contact{ID: "contact-1", SessionID: "session-1", PhoneNumber: "5511988887777"}, nil)
	f.gateway.On("Send", mock.Anything, "session-1", mock.Anything, "text", "oi").
		Return("", errors.New("recipient not on network"))

	_, err := f.disp.Send(context.Background(), SendRequest{
		SessionID: "session-1",
		ContactID: "contact-1",
		Content:   "oi",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsDeliveryFailedError(err))
	// Nothing persisted on delivery failure.
	f.messages.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDispatcher_ValidationFailures(t *testing.T) {
	f := newDispatcherFixture(t)
	f.connected(t, "session-1")

	tests := []struct {
		name string
		req  SendRequest
	}{
		{"missing session", SendRequest{ContactID: "contact-1", Content: "oi"}},
		{"missing contact", SendRequest{SessionID: "session-1", Content: "oi"}},
		{"missing content and media", SendRequest{SessionID: "session-1", ContactID: "contact-1"}},
		{"bad type", SendRequest{SessionID: "session-1", ContactID: "contact-1", Content: "oi", Type: "carrier_pigeon"}},
		{"bad media url", SendRequest{SessionID: "session-1", ContactID: "contact-1", Content: "oi", MediaURL: "not a url"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.disp.Send(context.Background(), tc.req)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidationError(err))
		})
	}
}
