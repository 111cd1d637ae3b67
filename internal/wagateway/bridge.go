package wagateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/brendondev/central-empresa/internal/apperrors"
	"github.com/brendondev/central-empresa/internal/vault"
	"github.com/brendondev/central-empresa/pkg/utils"
)

// BridgeConfig holds the NATS subject layout and timeouts of the protocol
// bridge.
type BridgeConfig struct {
	// SubjectPrefix roots every bridge subject, e.g. "v1.gateway".
	SubjectPrefix string
	// RequestTimeout bounds command round-trips when the caller's context
	// carries no deadline.
	RequestTimeout time.Duration
	// EventBuffer is the per-session event channel capacity.
	EventBuffer int
}

// Bridge implements Gateway against an external protocol bridge process
// reachable over NATS. The bridge owns the wire protocol; this side only
// exchanges commands and tagged events with it. Credential material travels
// with the connect command and updates flow back as events, persisted here
// into the session's vault namespace.
type Bridge struct {
	nc         *nats.Conn
	cfg        BridgeConfig
	baseLogger *zap.Logger
}

// NewBridge creates the NATS-backed gateway.
func NewBridge(nc *nats.Conn, cfg BridgeConfig, baseLogger *zap.Logger) *Bridge {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "v1.gateway"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	return &Bridge{nc: nc, cfg: cfg, baseLogger: baseLogger.Named("wagateway")}
}

var _ Gateway = (*Bridge)(nil)

type connectRequest struct {
	SessionID   string            `json:"session_id"`
	Credentials map[string][]byte `json:"credentials,omitempty"`
}

type commandAck struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	// Permanent marks failures that re-dialing cannot fix, e.g. rejected
	// credential material.
	Permanent bool `json:"permanent,omitempty"`
}

type sendRequest struct {
	RecipientJID string `json:"recipient_jid"`
	Kind         string `json:"kind"`
	Content      string `json:"content"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

// wireEvent is the bridge's event envelope. Exactly one variant's fields are
// populated, tagged by Kind.
type wireEvent struct {
	Kind             string            `json:"kind"`
	Challenge        string            `json:"challenge,omitempty"`
	PhoneNumber      string            `json:"phone_number,omitempty"`
	ProfileName      string            `json:"profile_name,omitempty"`
	Reason           string            `json:"reason,omitempty"`
	IsExplicitLogout bool              `json:"is_explicit_logout,omitempty"`
	Message          *wireMessage      `json:"message,omitempty"`
	Credentials      map[string][]byte `json:"credentials,omitempty"`
}

// wireCredentialUpdate is an internal event kind consumed by the bridge
// itself and never surfaced to the session runner.
const wireCredentialUpdate = "credential_update"

type wireMedia struct {
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

type wireLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
}

type wireContactCard struct {
	DisplayName string `json:"display_name"`
	VCard       string `json:"vcard,omitempty"`
}

type wireMessage struct {
	MessageID        string           `json:"message_id"`
	SenderJID        string           `json:"sender_jid"`
	PushName         string           `json:"push_name,omitempty"`
	Text             string           `json:"text,omitempty"`
	Image            *wireMedia       `json:"image,omitempty"`
	Audio            *wireMedia       `json:"audio,omitempty"`
	Video            *wireMedia       `json:"video,omitempty"`
	Document         *wireMedia       `json:"document,omitempty"`
	Sticker          *wireMedia       `json:"sticker,omitempty"`
	Location         *wireLocation    `json:"location,omitempty"`
	ContactCard      *wireContactCard `json:"contact_card,omitempty"`
	IsForwarded      bool             `json:"is_forwarded,omitempty"`
	IsSelfOriginated bool             `json:"is_self_originated,omitempty"`
	Timestamp        int64            `json:"timestamp,omitempty"` // unix seconds
}

func (b *Bridge) subject(parts ...string) string {
	s := b.cfg.SubjectPrefix
	for _, p := range parts {
		s += "." + p
	}
	return s
}

func (b *Bridge) request(ctx context.Context, subject string, payload interface{}) (*nats.Msg, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bridge request: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.RequestTimeout)
		defer cancel()
	}
	return b.nc.RequestWithContext(ctx, subject, data)
}

// Connect opens (or resumes) the session link on the bridge and returns its
// event stream. The stream closes after a link_dropped event or when the
// context is canceled; Connect must be called again to reopen.
func (b *Bridge) Connect(ctx context.Context, sessionID string, creds *vault.Namespace) (<-chan Event, error) {
	log := b.baseLogger.With(zap.String("session_id", sessionID))

	material, err := loadCredentials(creds)
	if err != nil {
		return nil, err
	}

	raw := make(chan *nats.Msg, b.cfg.EventBuffer)
	sub, err := b.nc.ChanSubscribe(b.subject("events", sessionID), raw)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to session events: %w", err)
	}

	msg, err := b.request(ctx, b.subject("connect", sessionID), connectRequest{
		SessionID:   sessionID,
		Credentials: material,
	})
	if err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("bridge connect request failed: %w", err)
	}
	var ack commandAck
	if err := json.Unmarshal(msg.Data, &ack); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("malformed bridge connect ack: %w", err)
	}
	if !ack.OK {
		_ = sub.Unsubscribe()
		if ack.Permanent {
			return nil, fmt.Errorf("%w: bridge rejected connect: %s", apperrors.ErrCredentialFailure, ack.Error)
		}
		return nil, fmt.Errorf("bridge rejected connect: %s", ack.Error)
	}

	out := make(chan Event, b.cfg.EventBuffer)
	utils.SafeGo(func() {
		defer close(out)
		defer func() { _ = sub.Unsubscribe() }()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-raw:
				if !ok {
					return
				}
				ev, forward, err := b.translate(m.Data, creds)
				if err != nil {
					log.Warn("Dropping undecodable bridge event", zap.Error(err))
					continue
				}
				if !forward {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				if ev.Kind == EventLinkDropped {
					// The link is gone; this stream is done.
					return
				}
			}
		}
	}, nil)

	return out, nil
}

// translate decodes one bridge event. Credential updates are absorbed into
// the vault namespace and not forwarded.
func (b *Bridge) translate(data []byte, creds *vault.Namespace) (Event, bool, error) {
	var we wireEvent
	if err := json.Unmarshal(data, &we); err != nil {
		return Event{}, false, fmt.Errorf("malformed bridge event: %w", err)
	}

	switch we.Kind {
	case wireCredentialUpdate:
		for name, blob := range we.Credentials {
			if err := creds.Put(name, blob); err != nil {
				b.baseLogger.Error("Failed to persist credential update",
					zap.String("session_id", creds.SessionID()),
					zap.String("credential", name),
					zap.Error(err))
			}
		}
		return Event{}, false, nil

	case string(EventPairingChallenge):
		return Event{Kind: EventPairingChallenge, Challenge: we.Challenge}, true, nil

	case string(EventAuthenticated):
		return Event{
			Kind:        EventAuthenticated,
			PhoneNumber: we.PhoneNumber,
			ProfileName: we.ProfileName,
		}, true, nil

	case string(EventLinkDropped):
		return Event{
			Kind:             EventLinkDropped,
			Reason:           we.Reason,
			IsExplicitLogout: we.IsExplicitLogout,
		}, true, nil

	case string(EventInboundMessage):
		if we.Message == nil {
			return Event{}, false, fmt.Errorf("inbound_message event without message body")
		}
		return Event{Kind: EventInboundMessage, Message: decodeMessage(we.Message)}, true, nil

	default:
		return Event{}, false, fmt.Errorf("unknown bridge event kind %q", we.Kind)
	}
}

func decodeMessage(wm *wireMessage) *InboundMessage {
	in := &InboundMessage{
		MessageID:        wm.MessageID,
		SenderJID:        wm.SenderJID,
		PushName:         wm.PushName,
		Text:             wm.Text,
		IsForwarded:      wm.IsForwarded,
		IsSelfOriginated: wm.IsSelfOriginated,
	}
	if wm.Timestamp > 0 {
		in.Timestamp = utils.UnixToTime(wm.Timestamp)
	}
	in.Image = decodeMedia(wm.Image)
	in.Audio = decodeMedia(wm.Audio)
	in.Video = decodeMedia(wm.Video)
	in.Document = decodeMedia(wm.Document)
	in.Sticker = decodeMedia(wm.Sticker)
	if wm.Location != nil {
		in.Location = &LocationPayload{
			Latitude:  wm.Location.Latitude,
			Longitude: wm.Location.Longitude,
			Name:      wm.Location.Name,
		}
	}
	if wm.ContactCard != nil {
		in.ContactCard = &ContactCardPayload{
			DisplayName: wm.ContactCard.DisplayName,
			VCard:       wm.ContactCard.VCard,
		}
	}
	return in
}

func decodeMedia(wm *wireMedia) *MediaPayload {
	if wm == nil {
		return nil
	}
	return &MediaPayload{
		URL:      wm.URL,
		Filename: wm.Filename,
		MimeType: wm.MimeType,
		Size:     wm.Size,
		Caption:  wm.Caption,
	}
}

func loadCredentials(creds *vault.Namespace) (map[string][]byte, error) {
	names, err := creds.Keys()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	material := make(map[string][]byte, len(names))
	for _, name := range names {
		blob, err := creds.Get(name)
		if err != nil {
			return nil, err
		}
		material[name] = blob
	}
	return material, nil
}

// Send delivers one outbound payload through the bridge.
func (b *Bridge) Send(ctx context.Context, sessionID, recipientJID, kind, content string) (string, error) {
	msg, err := b.request(ctx, b.subject("send", sessionID), sendRequest{
		RecipientJID: recipientJID,
		Kind:         kind,
		Content:      content,
	})
	if err != nil {
		return "", fmt.Errorf("bridge send request failed: %w", err)
	}
	var resp sendResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return "", fmt.Errorf("malformed bridge send response: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("bridge rejected send: %s", resp.Error)
	}
	return resp.MessageID, nil
}

// Logout terminates the session link and invalidates the remote pairing.
func (b *Bridge) Logout(ctx context.Context, sessionID string) error {
	msg, err := b.request(ctx, b.subject("logout", sessionID), struct{}{})
	if err != nil {
		return fmt.Errorf("bridge logout request failed: %w", err)
	}
	var ack commandAck
	if err := json.Unmarshal(msg.Data, &ack); err != nil {
		return fmt.Errorf("malformed bridge logout ack: %w", err)
	}
	if !ack.OK {
		return fmt.Errorf("bridge rejected logout: %s", ack.Error)
	}
	return nil
}
