package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/brendondev/central-empresa/internal/apperrors"
	"github.com/brendondev/central-empresa/internal/config"
	"github.com/brendondev/central-empresa/internal/model"
	storagemock "github.com/brendondev/central-empresa/internal/storage/mock"
	"github.com/brendondev/central-empresa/internal/vault"
	"github.com/brendondev/central-empresa/internal/wagateway"
	gatewaymock "github.com/brendondev/central-empresa/internal/wagateway/mock"
	"github.com/brendondev/central-empresa/pkg/logger"
)

type managerFixture struct {
	registry *Registry
	gateway  *gatewaymock.GatewayMock
	vault    *vault.Vault
	sessions *storagemock.SessionRepoMock
	contacts *storagemock.ContactRepoMock
	messages *storagemock.MessageRepoMock
	notifier *recordingNotifier
	mgr      *Manager
}

func fastSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		ReconnectMinDelay:    5 * time.Millisecond,
		ReconnectMaxDelay:    20 * time.Millisecond,
		ReconnectMaxAttempts: 0,
		PairingTimeout:       time.Minute,
		EventBuffer:          16,
	}
}

func newManagerFixture(t *testing.T, cfg config.SessionConfig) *managerFixture {
	logger.Log = zaptest.NewLogger(t) // the vault logs through the global

	v, err := vault.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })

	f := &managerFixture{
		registry: NewRegistry(),
		gateway:  new(gatewaymock.GatewayMock),
		vault:    v,
		sessions: new(storagemock.SessionRepoMock),
		contacts: new(storagemock.ContactRepoMock),
		messages: new(storagemock.MessageRepoMock),
		notifier: &recordingNotifier{},
	}
	normalizer := NewNormalizer(f.contacts, f.messages, f.notifier, logger.Log)
	f.mgr = NewManager(cfg, f.registry, f.gateway, v, f.sessions, normalizer, f.notifier, logger.Log)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = f.mgr.Shutdown(ctx)
	})
	return f
}

// restingSession wires FindBySessionID and the status writes every runner does.
func (f *managerFixture) restingSession(sessionID string) {
	f.sessions.On("FindBySessionID", mock.Anything, sessionID).
		Return(&model.Session{SessionID: sessionID, Status: model.SessionStatusDisconnected}, nil)
	f.sessions.On("UpdateStatus", mock.Anything, sessionID, mock.Anything, mock.Anything).Return(nil)
	f.sessions.On("SetIdentity", mock.Anything, sessionID, mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func (f *managerFixture) waitStatus(t *testing.T, sessionID, want string) {
	require.Eventually(t, func() bool {
		h, ok := f.registry.Get(sessionID)
		return ok && h.Status() == want
	}, 2*time.Second, 5*time.Millisecond, "session never reached %s", want)
}

func (f *managerFixture) waitReleased(t *testing.T, sessionID string) {
	require.Eventually(t, func() bool {
		_, ok := f.registry.Get(sessionID)
		return !ok
	}, 2*time.Second, 5*time.Millisecond, "handle never released")
}

func TestManager_CreateSession(t *testing.T) {
	f := newManagerFixture(t, fastSessionConfig())

	f.sessions.On("Save", mock.Anything, mock.MatchedBy(func(s model.Session) bool {
		return s.SessionID == "session-1" && s.Status == model.SessionStatusDisconnected
	})).Return(nil)

	created, err := f.mgr.CreateSession(context.Background(), model.Session{
		SessionID: "session-1",
		UserID:    "user-1",
		Status:    model.SessionStatusConnected, // must be ignored
	})
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusDisconnected, created.Status)
	f.sessions.AssertExpectations(t)
}

func TestManager_CreateSessionValidation(t *testing.T) {
	f := newManagerFixture(t, fastSessionConfig())

	_, err := f.mgr.CreateSession(context.Background(), model.Session{UserID: "user-1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
	f.sessions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestManager_PairingFlowToConnected(t *testing.T) {
	f := newManagerFixture(t, fastSessionConfig())
	f.restingSession("session-1")

	events := make(chan wagateway.Event, 8)
	f.gateway.On("Connect", mock.Anything, "session-1", mock.Anything).Return(events, nil).Once()

	s, err := f.mgr.Connect(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusConnecting, s.Status)

	events <- wagateway.Event{Kind: wagateway.EventPairingChallenge, Challenge: "pair-me-1"}
	f.waitStatus(t, "session-1", model.SessionStatusQRPending)

	events <- wagateway.Event{Kind: wagateway.EventAuthenticated, PhoneNumber: "5511999990000", ProfileName: "Loja Central"}
	f.waitStatus(t, "session-1", model.SessionStatusConnected)

	require.NoError(t, f.mgr.Disconnect(context.Background(), "session-1"))
	f.waitReleased(t, "session-1")

	var statuses []string
	var qrEvent model.StatusChangedEvent
	for _, ev := range f.notifier.statusEvents() {
		statuses = append(statuses, ev.Status)
		if ev.Status == model.SessionStatusQRPending {
			qrEvent = ev
		}
	}
	assert.Equal(t, []string{
		model.SessionStatusConnecting,
		model.SessionStatusQRPending,
		model.SessionStatusConnected,
		model.SessionStatusDisconnected,
	}, statuses)
	assert.True(t, strings.HasPrefix(qrEvent.QRCode, "data:image/png;base64,"), "pairing event must carry the rendered code")

	f.sessions.AssertCalled(t, "SetIdentity", mock.Anything, "session-1", "5511999990000", "Loja Central", mock.Anything)
}

func TestManager_SecondConnectRejected(t *testing.T) {
	f := newManagerFixture(t, fastSessionConfig())
	f.restingSession("session-1")

	events := make(chan wagateway.Event, 1)
	f.gateway.On("Connect", mock.Anything, "session-1", mock.Anything).Return(events, nil)

	_, err := f.mgr.Connect(context.Background(), "session-1")
	require.NoError(t, err)

	_, err = f.mgr.Connect(context.Background(), "session-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsAlreadyActiveError(err))
}

func TestManager_TransientDropReconnects(t *testing.T) {
	f := newManagerFixture(t, fastSessionConfig())
	f.restingSession("session-1")

	first := make(chan wagateway.Event, 8)
	second := make(chan wagateway.Event, 8)
	f.gateway.On("Connect", mock.Anything, "session-1", mock.Anything).Return(first, nil).Once()
	f.gateway.On("Connect", mock.Anything, "session-1", mock.Anything).Return(second, nil).Once()

	_, err := f.mgr.Connect(context.Background(), "session-1")
	require.NoError(t, err)

	first <- wagateway.Event{Kind: wagateway.EventAuthenticated, PhoneNumber: "5511999990000"}
	f.waitStatus(t, "session-1", model.SessionStatusConnected)

	first <- wagateway.Event{Kind: wagateway.EventLinkDropped, Reason: "stream error"}
	f.waitStatus(t, "session-1", model.SessionStatusConnecting)

	second <- wagateway.Event{Kind: wagateway.EventAuthenticated, PhoneNumber: "5511999990000"}
	f.waitStatus(t, "session-1", model.SessionStatusConnected)

	f.gateway.AssertNumberOfCalls(t, "Connect", 2)
	require.NoError(t, f.mgr.Disconnect(context.Background(), "session-1"))
}

func TestManager_ExplicitLogoutPurgesCredentials(t *testing.T) {
	f := newManagerFixture(t, fastSessionConfig())
	f.restingSession("session-1")

	ns := f.vault.Namespace("session-1")
	require.NoError(t, ns.Put("noise-key", []byte("material")))

	events := make(chan wagateway.Event, 8)
	f.gateway.On("Connect", mock.Anything, "session-1", mock.Anything).Return(events, nil).Once()

	_, err := f.mgr.Connect(context.Background(), "session-1")
	require.NoError(t, err)

	events <- wagateway.Event{Kind: wagateway.EventAuthenticated, PhoneNumber: "5511999990000"}
	f.waitStatus(t, "session-1", model.SessionStatusConnected)

	events <- wagateway.Event{Kind: wagateway.EventLinkDropped, Reason: "logged out", IsExplicitLogout: true}
	f.waitReleased(t, "session-1")

	has, err := ns.HasCredentials()
	require.NoError(t, err)
	assert.False(t, has, "explicit logout must purge the credential namespace")

	evs := f.notifier.statusEvents()
	require.NotEmpty(t, evs)
	assert.Equal(t, model.SessionStatusDisconnected, evs[len(evs)-1].Status)
}

func TestManager_PairingTimeout(t *testing.T) {
	cfg := fastSessionConfig()
	cfg.PairingTimeout = 50 * time.Millisecond
	f := newManagerFixture(t, cfg)
	f.restingSession("session-1")

	events := make(chan wagateway.Event, 8)
	f.gateway.On("Connect", mock.Anything, "session-1", mock.Anything).Return(events, nil).Once()

	_, err := f.mgr.Connect(context.Background(), "session-1")
	require.NoError(t, err)

	events <- wagateway.Event{Kind: wagateway.EventPairingChallenge, Challenge: "pair-me-1"}
	f.waitStatus(t, "session-1", model.SessionStatusQRPending)

	// Nobody scans; the window expires and the session comes to rest.
	f.waitReleased(t, "session-1")
	evs := f.notifier.statusEvents()
	require.NotEmpty(t, evs)
	assert.Equal(t, model.SessionStatusDisconnected, evs[len(evs)-1].Status)
}

func TestManager_ReconnectBudgetExhausted(t *testing.T) {
	cfg := fastSessionConfig()
	cfg.ReconnectMaxAttempts = 2
	f := newManagerFixture(t, cfg)
	f.restingSession("session-1")

	f.gateway.On("Connect", mock.Anything, "session-1", mock.Anything).
		Return(nil, errors.New("dial tcp: connection refused"))

	_, err := f.mgr.Connect(context.Background(), "session-1")
	require.NoError(t, err)

	f.waitReleased(t, "session-1")
	evs := f.notifier.statusEvents()
	require.NotEmpty(t, evs)
	assert.Equal(t, model.SessionStatusError, evs[len(evs)-1].Status)
}

func TestManager_FatalConnectFailure(t *testing.T) {
	f := newManagerFixture(t, fastSessionConfig())
	f.restingSession("session-1")

	f.gateway.On("Connect", mock.Anything, "session-1", mock.Anything).
		Return(nil, apperrors.ErrCredentialFailure)

	// A credential failure on the first attempt belongs to the caller,
	// not to an async status event.
	_, err := f.mgr.Connect(context.Background(), "session-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsCredentialFailureError(err))

	_, ok := f.registry.Get("session-1")
	assert.False(t, ok, "a failed connect must not leave a live handle")

	evs := f.notifier.statusEvents()
	require.NotEmpty(t, evs)
	assert.Equal(t, model.SessionStatusError, evs[len(evs)-1].Status)
	f.gateway.AssertNumberOfCalls(t, "Connect", 1)
}

func TestManager_TransientConnectFailureStaysAsync(t *testing.T) {
	cfg := fastSessionConfig()
	cfg.ReconnectMaxAttempts = 1
	f := newManagerFixture(t, cfg)
	f.restingSession("session-1")

	f.gateway.On("Connect", mock.Anything, "session-1", mock.Anything).
		Return(nil, errors.New("dial tcp: connection refused"))

	_, err := f.mgr.Connect(context.Background(), "session-1")
	require.NoError(t, err, "transient failures retry in the background")

	f.waitReleased(t, "session-1")
	evs := f.notifier.statusEvents()
	require.NotEmpty(t, evs)
	assert.Equal(t, model.SessionStatusError, evs[len(evs)-1].Status)
}

func TestManager_InboundMessageFlowsThroughNormalizer(t *testing.T) {
	f := newManagerFixture(t, fastSessionConfig())
	f.restingSession("session-1")

	f.contacts.On("InsertOrFetch", mock.Anything, mock.Anything).
		Return(&model.Contact{ID: "contact-1"}, nil)
	f.contacts.On("AdvanceLastMessageAt", mock.Anything, "contact-1", mock.Anything).Return(nil)
	f.messages.On("Save", mock.Anything, mock.Anything).Return(nil)

	events := make(chan wagateway.Event, 8)
	f.gateway.On("Connect", mock.Anything, "session-1", mock.Anything).Return(events, nil).Once()

	_, err := f.mgr.Connect(context.Background(), "session-1")
	require.NoError(t, err)

	events <- wagateway.Event{Kind: wagateway.EventAuthenticated, PhoneNumber: "5511999990000"}
	f.waitStatus(t, "session-1", model.SessionStatusConnected)

	events <- wagateway.Event{Kind: wagateway.EventInboundMessage, Message: &wagateway.InboundMessage{
		MessageID: "msg-1",
		SenderJID: "5511988887777@s.whatsapp.net",
		Text:      "oi",
		Timestamp: time.Now(),
	}}

	require.Eventually(t, func() bool {
		return len(f.notifier.messageEvents()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "msg-1", f.notifier.messageEvents()[0].Message.MessageID)

	require.NoError(t, f.mgr.Disconnect(context.Background(), "session-1"))
}

func TestManager_DisconnectWithoutHandle(t *testing.T) {
	f := newManagerFixture(t, fastSessionConfig())

	f.sessions.On("FindBySessionID", mock.Anything, "session-1").
		Return(&model.Session{SessionID: "session-1"}, nil)
	err := f.mgr.Disconnect(context.Background(), "session-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotConnectedError(err))

	f.sessions.ExpectedCalls = nil
	f.sessions.On("FindBySessionID", mock.Anything, "ghost").
		Return(nil, apperrors.ErrNotFound)
	err = f.mgr.Disconnect(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestManager_DeleteLiveSession(t *testing.T) {
	f := newManagerFixture(t, fastSessionConfig())
	f.restingSession("session-1")

	ns := f.vault.Namespace("session-1")
	require.NoError(t, ns.Put("noise-key", []byte("material")))

	events := make(chan wagateway.Event, 8)
	f.gateway.On("Connect", mock.Anything, "session-1", mock.Anything).Return(events, nil).Once()
	f.gateway.On("Logout", mock.Anything, "session-1").Return(nil)
	f.sessions.On("Delete", mock.Anything, "session-1").Return(nil)

	_, err := f.mgr.Connect(context.Background(), "session-1")
	require.NoError(t, err)
	events <- wagateway.Event{Kind: wagateway.EventAuthenticated, PhoneNumber: "5511999990000"}
	f.waitStatus(t, "session-1", model.SessionStatusConnected)

	require.NoError(t, f.mgr.DeleteSession(context.Background(), "session-1"))

	_, ok := f.registry.Get("session-1")
	assert.False(t, ok)
	has, err := ns.HasCredentials()
	require.NoError(t, err)
	assert.False(t, has)
	f.gateway.AssertCalled(t, "Logout", mock.Anything, "session-1")
	f.sessions.AssertCalled(t, "Delete", mock.Anything, "session-1")
}

func TestManager_ReconcileStartup(t *testing.T) {
	f := newManagerFixture(t, fastSessionConfig())

	f.sessions.On("FindAll", mock.Anything).Return([]model.Session{
		{SessionID: "at-rest", Status: model.SessionStatusDisconnected},
		{SessionID: "stale-connected", Status: model.SessionStatusConnected},
		{SessionID: "stale-pairing", Status: model.SessionStatusQRPending},
		{SessionID: "errored", Status: model.SessionStatusError},
	}, nil)
	f.sessions.On("UpdateStatus", mock.Anything, "stale-connected", model.SessionStatusDisconnected, "").Return(nil)
	f.sessions.On("UpdateStatus", mock.Anything, "stale-pairing", model.SessionStatusDisconnected, "").Return(nil)

	require.NoError(t, f.mgr.ReconcileStartup(context.Background()))

	f.sessions.AssertExpectations(t)
	f.sessions.AssertNotCalled(t, "UpdateStatus", mock.Anything, "at-rest", mock.Anything, mock.Anything)
	f.sessions.AssertNotCalled(t, "UpdateStatus", mock.Anything, "errored", mock.Anything, mock.Anything)
}

func TestManager_GetSessionPrefersLiveStatus(t *testing.T) {
	f := newManagerFixture(t, fastSessionConfig())

	f.sessions.On("FindBySessionID", mock.Anything, "session-1").
		Return(&model.Session{SessionID: "session-1", Status: model.SessionStatusDisconnected}, nil)

	h, err := f.registry.Acquire("session-1", func() {})
	require.NoError(t, err)
	h.setStatus(model.SessionStatusConnected)

	s, err := f.mgr.GetSession(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusConnected, s.Status)
}
