package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/brendondev/central-empresa/internal/apperrors"
	"github.com/brendondev/central-empresa/internal/config"
	"github.com/brendondev/central-empresa/internal/model"
	"github.com/brendondev/central-empresa/internal/notify"
	"github.com/brendondev/central-empresa/internal/observer"
	"github.com/brendondev/central-empresa/internal/storage"
	"github.com/brendondev/central-empresa/internal/validator"
	"github.com/brendondev/central-empresa/internal/vault"
	"github.com/brendondev/central-empresa/internal/wagateway"
	"github.com/brendondev/central-empresa/pkg/logger"
	"github.com/brendondev/central-empresa/pkg/utils"
)

// persistTimeout bounds the database writes done from inside a runner, whose
// own context may already be canceled when the write happens.
const persistTimeout = 10 * time.Second

// Manager owns the session lifecycle: it creates records, starts and stops
// runners, and is the only writer of session status. One instance per process.
type Manager struct {
	cfg        config.SessionConfig
	registry   *Registry
	gateway    wagateway.Gateway
	vault      *vault.Vault
	sessions   storage.SessionRepo
	normalizer *Normalizer
	notifier   notify.Notifier
	baseLogger *zap.Logger

	wg sync.WaitGroup
}

// NewManager creates the session lifecycle manager.
func NewManager(
	cfg config.SessionConfig,
	registry *Registry,
	gateway wagateway.Gateway,
	credVault *vault.Vault,
	sessions storage.SessionRepo,
	normalizer *Normalizer,
	notifier notify.Notifier,
	baseLogger *zap.Logger,
) *Manager {
	return &Manager{
		cfg:        cfg,
		registry:   registry,
		gateway:    gateway,
		vault:      credVault,
		sessions:   sessions,
		normalizer: normalizer,
		notifier:   notifier,
		baseLogger: baseLogger.Named("session-manager"),
	}
}

// CreateSession registers a new session record at rest. The session carries no
// credentials and no runner until Connect is called.
func (m *Manager) CreateSession(ctx context.Context, session model.Session) (*model.Session, error) {
	if err := validator.Validate(session); err != nil {
		return nil, err
	}

	session.ID = 0
	session.Status = model.SessionStatusDisconnected
	session.QRCode = ""
	session.PhoneNumber = ""
	session.ProfileName = ""
	session.LastSeen = nil

	if err := m.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	logger.FromContextOr(ctx, m.baseLogger).Info("Session created",
		zap.String("session_id", session.SessionID),
		zap.String("user_id", session.UserID),
	)
	return &session, nil
}

// GetSession returns the session record. While a runner is live its in-memory
// status overrides the persisted one, which may lag by one write.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	s, err := m.sessions.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if h, ok := m.registry.Get(sessionID); ok {
		s.Status = h.Status()
	}
	return s, nil
}

// ListSessions returns all sessions, or only those of one user when userID is
// non-empty. Live statuses override persisted ones.
func (m *Manager) ListSessions(ctx context.Context, userID string) ([]model.Session, error) {
	var (
		sessions []model.Session
		err      error
	)
	if userID == "" {
		sessions, err = m.sessions.FindAll(ctx)
	} else {
		sessions, err = m.sessions.FindByUserID(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if h, ok := m.registry.Get(sessions[i].SessionID); ok {
			sessions[i].Status = h.Status()
		}
	}
	return sessions, nil
}

// UpdateSettings replaces the session's opaque settings blob.
func (m *Manager) UpdateSettings(ctx context.Context, sessionID string, settings datatypes.JSON) (*model.Session, error) {
	s, err := m.sessions.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.Settings = settings
	if err := m.sessions.Update(ctx, *s); err != nil {
		return nil, err
	}
	return s, nil
}

// Connect starts the session's lifecycle runner. At most one runner per
// session exists in the process; a second connect fails with ErrAlreadyActive
// and leaves the first untouched.
func (m *Manager) Connect(ctx context.Context, sessionID string) (*model.Session, error) {
	s, err := m.sessions.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	runnerCtx, cancel := context.WithCancel(context.Background())
	h, err := m.registry.Acquire(sessionID, cancel)
	if err != nil {
		cancel()
		return nil, err
	}

	log := logger.FromContextOr(ctx, m.baseLogger).With(zap.String("session_id", sessionID))

	if _, terr := Transition(s.Status, Input{Type: InputConnectRequested}); terr != nil {
		// A live-looking persisted status with no handle means an unclean
		// shutdown left it behind. The registry is the authority; reconcile.
		log.Warn("Persisted status inconsistent with registry, reconnecting",
			zap.String("status", s.Status))
	}

	if err := m.sessions.UpdateStatus(ctx, sessionID, model.SessionStatusConnecting, ""); err != nil {
		m.registry.Release(h)
		cancel()
		return nil, err
	}
	observer.IncSessionTransition(s.Status, model.SessionStatusConnecting)
	m.notifier.NotifyStatusChanged(ctx, model.StatusChangedEvent{
		SessionID: sessionID,
		Status:    model.SessionStatusConnecting,
		Timestamp: utils.Now(),
	})

	// The first attempt happens on the caller's goroutine so a credential
	// failure reaches the command response instead of only an async status
	// event. Reconnects after the handoff stay the runner's business.
	events, err := m.gateway.Connect(runnerCtx, sessionID, m.vault.Namespace(sessionID))
	if err != nil {
		if apperrors.IsCredentialFailureError(err) || apperrors.IsFatal(err) {
			log.Error("Unrecoverable connect failure", zap.Error(err))
			m.apply(h, Input{Type: InputFatalFailure}, nil, log)
			m.registry.Release(h)
			cancel()
			return nil, err
		}
		log.Warn("Connect attempt failed, retrying in background", zap.Error(err))
		events = nil
	}

	m.wg.Add(1)
	utils.SafeGo(func() {
		defer m.wg.Done()
		m.run(runnerCtx, h, events)
	}, func(r interface{}, stack []byte) {
		// run's defers already released the handle and canceled the context
		// during unwinding; only the terminal status is left to record.
		log.Error("Session runner panicked", zap.Any("panic", r), zap.ByteString("stack", stack))
		m.apply(h, Input{Type: InputFatalFailure}, nil, log)
	})

	s.Status = model.SessionStatusConnecting
	s.QRCode = ""
	return s, nil
}

// Disconnect stops the session's runner and waits for its teardown.
// Credentials are kept so a later connect resumes without re-pairing.
func (m *Manager) Disconnect(ctx context.Context, sessionID string) error {
	h, ok := m.registry.Get(sessionID)
	if !ok {
		if _, err := m.sessions.FindBySessionID(ctx, sessionID); err != nil {
			return err
		}
		return fmt.Errorf("%w: session %s", apperrors.ErrNotConnected, sessionID)
	}

	h.Stop()
	select {
	case <-h.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DeleteSession removes the session entirely: a live link is logged out, the
// credential namespace is purged and the record deleted. Messages, contacts,
// tags and automations of the session are removed by the storage layer.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := m.sessions.FindBySessionID(ctx, sessionID); err != nil {
		return err
	}
	log := logger.FromContextOr(ctx, m.baseLogger).With(zap.String("session_id", sessionID))

	if h, ok := m.registry.Get(sessionID); ok {
		if err := m.gateway.Logout(ctx, sessionID); err != nil {
			log.Warn("Logout failed during session deletion", zap.Error(err))
		}
		h.Stop()
		select {
		case <-h.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := m.vault.Purge(sessionID); err != nil {
		return err
	}
	if err := m.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	log.Info("Session deleted")
	return nil
}

// ReconcileStartup resets sessions left in a live-looking persisted status by
// an unclean shutdown. No runners exist yet, so anything not at rest is stale.
func (m *Manager) ReconcileStartup(ctx context.Context) error {
	sessions, err := m.sessions.FindAll(ctx)
	if err != nil {
		return err
	}
	log := logger.FromContextOr(ctx, m.baseLogger)
	for _, s := range sessions {
		if s.Status == model.SessionStatusDisconnected || s.Status == model.SessionStatusError {
			continue
		}
		if err := m.sessions.UpdateStatus(ctx, s.SessionID, model.SessionStatusDisconnected, ""); err != nil {
			log.Error("Failed to reset stale session status",
				zap.String("session_id", s.SessionID), zap.Error(err))
			continue
		}
		log.Info("Reset stale session status",
			zap.String("session_id", s.SessionID), zap.String("was", s.Status))
	}
	return nil
}

// Shutdown stops every live runner and waits for their teardown, bounded by
// the context.
func (m *Manager) Shutdown(ctx context.Context) error {
	for _, id := range m.registry.ActiveSessionIDs() {
		if h, ok := m.registry.Get(id); ok {
			h.Stop()
		}
	}
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the per-session lifecycle runner. It owns the gateway link and the
// reconnect loop, and exits only through a transition carrying
// ActionStopRunner (or a canceled context). The first link, when the connect
// command's synchronous attempt succeeded, is handed in as events; a nil
// events means that attempt failed transiently and the runner starts with a
// backoff wait.
func (m *Manager) run(ctx context.Context, h *Handle, events <-chan wagateway.Event) {
	log := m.baseLogger.With(zap.String("session_id", h.sessionID))
	defer m.registry.Release(h)
	defer h.cancel()

	creds := m.vault.Namespace(h.sessionID)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = m.cfg.ReconnectMinDelay
	bo.MaxInterval = m.cfg.ReconnectMaxDelay
	bo.MaxElapsedTime = 0 // capped per-delay, never by elapsed time
	bo.Reset()
	attempts := 0

	for {
		if events == nil {
			if !m.waitReconnect(ctx, h, bo, &attempts, log) {
				return
			}
			var err error
			events, err = m.gateway.Connect(ctx, h.sessionID, creds)
			if err != nil {
				if ctx.Err() != nil {
					m.apply(h, Input{Type: InputDisconnectRequested}, nil, log)
					return
				}
				if apperrors.IsCredentialFailureError(err) || apperrors.IsFatal(err) {
					log.Error("Unrecoverable connect failure", zap.Error(err))
					m.apply(h, Input{Type: InputFatalFailure}, nil, log)
					return
				}
				log.Warn("Connect attempt failed", zap.Error(err))
				events = nil
				continue
			}
			log.Info("Session link opened")
			bo.Reset()
			attempts = 0
		}

		if !m.consume(ctx, h, events, log) {
			return
		}
		events = nil
	}
}

// consume drains one gateway event stream until it ends. It returns true when
// the runner should reconnect and false when it should stop; the terminal
// transition has been applied either way.
func (m *Manager) consume(ctx context.Context, h *Handle, events <-chan wagateway.Event, log *zap.Logger) bool {
	var pairing *time.Timer
	var pairingC <-chan time.Time
	stopPairing := func() {
		if pairing != nil {
			pairing.Stop()
			pairing = nil
			pairingC = nil
		}
	}
	defer stopPairing()

	for {
		select {
		case <-ctx.Done():
			m.apply(h, Input{Type: InputDisconnectRequested}, nil, log)
			return false

		case <-pairingC:
			log.Warn("Pairing window expired", zap.Duration("timeout", m.cfg.PairingTimeout))
			m.apply(h, Input{Type: InputPairingTimeout}, nil, log)
			return false

		case ev, ok := <-events:
			if !ok {
				// Stream closed without an explicit drop event; same thing.
				res, applied := m.apply(h, Input{Type: InputLinkDropped}, nil, log)
				return applied && res.has(ActionScheduleReconnect)
			}

			switch ev.Kind {
			case wagateway.EventPairingChallenge:
				if _, applied := m.apply(h, Input{Type: InputPairingChallenge}, &ev, log); applied {
					stopPairing()
					pairing = time.NewTimer(m.cfg.PairingTimeout)
					pairingC = pairing.C
				}

			case wagateway.EventAuthenticated:
				if _, applied := m.apply(h, Input{Type: InputAuthenticated}, &ev, log); applied {
					stopPairing()
					log.Info("Session authenticated",
						zap.String("phone_number", ev.PhoneNumber),
						zap.String("profile_name", ev.ProfileName))
				}

			case wagateway.EventLinkDropped:
				log.Warn("Session link dropped",
					zap.String("reason", ev.Reason),
					zap.Bool("explicit_logout", ev.IsExplicitLogout))
				res, applied := m.apply(h, Input{Type: InputLinkDropped, ExplicitLogout: ev.IsExplicitLogout}, &ev, log)
				return applied && res.has(ActionScheduleReconnect)

			case wagateway.EventInboundMessage:
				if ev.Message == nil {
					continue
				}
				if err := m.normalizer.Process(ctx, h.sessionID, ev.Message); err != nil {
					// Already logged with full context by the normalizer; a bad
					// message must not take the session down.
					log.Debug("Inbound message processing failed", zap.Error(err))
				}

			default:
				log.Warn("Unknown gateway event", zap.String("kind", string(ev.Kind)))
			}
		}
	}
}

// apply runs one state machine transition and carries out its side effects:
// persist the status, update the handle, purge credentials or record identity
// when asked, and notify. Undefined edges are ignored (returns false); those
// are duplicate or late events, not errors.
func (m *Manager) apply(h *Handle, in Input, ev *wagateway.Event, log *zap.Logger) (Result, bool) {
	prev := h.Status()
	res, err := Transition(prev, in)
	if err != nil {
		log.Debug("Ignoring input with no defined transition",
			zap.String("input", in.Type.String()),
			zap.String("status", prev))
		return Result{}, false
	}

	qr := ""
	if res.has(ActionRenderQR) && ev != nil {
		rendered, rerr := RenderQRDataURL(ev.Challenge)
		if rerr != nil {
			log.Error("Failed to render pairing code", zap.Error(rerr))
		} else {
			qr = rendered
		}
	}

	// The runner's own context may already be canceled here (disconnect
	// path), so persistence gets a fresh bounded one.
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if res.has(ActionSetIdentity) && ev != nil {
		if err := m.sessions.SetIdentity(ctx, h.sessionID, ev.PhoneNumber, ev.ProfileName, utils.Now()); err != nil {
			log.Error("Failed to persist session identity", zap.Error(err))
		}
	}

	if err := m.sessions.UpdateStatus(ctx, h.sessionID, res.Next, qr); err != nil {
		log.Error("Failed to persist session status",
			zap.String("status", res.Next), zap.Error(err))
	}
	h.setStatus(res.Next)
	observer.IncSessionTransition(prev, res.Next)

	if res.has(ActionPurgeCredentials) {
		if err := m.vault.Purge(h.sessionID); err != nil {
			log.Error("Failed to purge credentials after logout", zap.Error(err))
		}
	}

	m.notifier.NotifyStatusChanged(ctx, model.StatusChangedEvent{
		SessionID: h.sessionID,
		Status:    res.Next,
		QRCode:    qr,
		Timestamp: utils.Now(),
	})
	return res, true
}

// waitReconnect sleeps out one backoff delay before the next connect attempt.
// Returns false when the runner must stop instead: budget exhausted or
// context canceled.
func (m *Manager) waitReconnect(ctx context.Context, h *Handle, bo *backoff.ExponentialBackOff, attempts *int, log *zap.Logger) bool {
	*attempts++
	if m.cfg.ReconnectMaxAttempts > 0 && *attempts > m.cfg.ReconnectMaxAttempts {
		log.Error("Reconnect attempts exhausted", zap.Int("attempts", *attempts-1))
		m.apply(h, Input{Type: InputRetriesExhausted}, nil, log)
		return false
	}

	delay := bo.NextBackOff()
	observer.IncSessionReconnect()
	log.Info("Scheduling reconnect",
		zap.Duration("delay", delay),
		zap.Int("attempt", *attempts))

	select {
	case <-ctx.Done():
		m.apply(h, Input{Type: InputDisconnectRequested}, nil, log)
		return false
	case <-time.After(delay):
		return true
	}
}
