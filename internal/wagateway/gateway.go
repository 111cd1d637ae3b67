// Package wagateway defines the boundary to the underlying messaging
// protocol. The wire protocol itself is opaque to this service: the gateway
// exposes connect/send/logout primitives and an event stream, nothing more.
package wagateway

import (
	"context"
	"time"

	"github.com/brendondev/central-empresa/internal/vault"
)

// EventKind tags the variants delivered on a session's event stream.
type EventKind string

const (
	// EventPairingChallenge carries a one-time pairing code the account
	// holder must scan on a trusted device.
	EventPairingChallenge EventKind = "pairing_challenge"
	// EventAuthenticated reports a successful login, with the account identity.
	EventAuthenticated EventKind = "authenticated"
	// EventLinkDropped reports the connection closing, explicit logout or not.
	EventLinkDropped EventKind = "link_dropped"
	// EventInboundMessage carries one received message.
	EventInboundMessage EventKind = "inbound_message"
)

// Event is one tagged variant from a session's event stream. Only the fields
// of the tagged kind are populated.
type Event struct {
	Kind EventKind

	// EventPairingChallenge
	Challenge string

	// EventAuthenticated
	PhoneNumber string
	ProfileName string

	// EventLinkDropped
	Reason           string
	IsExplicitLogout bool

	// EventInboundMessage
	Message *InboundMessage
}

// MediaPayload describes a media attachment on an inbound message.
type MediaPayload struct {
	URL      string
	Filename string
	MimeType string
	Size     int64
	Caption  string
}

// LocationPayload describes a shared location.
type LocationPayload struct {
	Latitude  float64
	Longitude float64
	Name      string
}

// ContactCardPayload describes a shared contact card.
type ContactCardPayload struct {
	DisplayName string
	VCard       string
}

// InboundMessage is one raw message from the protocol. Exactly one payload
// variant is expected to be set; Text doubles as caption carrier for kinds
// that have none of their own.
type InboundMessage struct {
	// MessageID is the protocol-assigned id, unique within the session.
	MessageID string
	// SenderJID is the raw sender identity and may carry a transport suffix
	// (e.g. @s.whatsapp.net); canonicalization is the consumer's job.
	SenderJID string
	// PushName is the sender's self-reported display name.
	PushName string

	Text        string
	Image       *MediaPayload
	Audio       *MediaPayload
	Video       *MediaPayload
	Document    *MediaPayload
	Sticker     *MediaPayload
	Location    *LocationPayload
	ContactCard *ContactCardPayload

	IsForwarded bool
	// IsSelfOriginated marks messages sent from the owning account itself;
	// those are not inbound and must be discarded.
	IsSelfOriginated bool
	// Timestamp is the protocol event time, not receive time.
	Timestamp time.Time
}

// Gateway is the narrow contract against the messaging protocol
// implementation. Implementations must close the returned event channel when
// the underlying link is torn down and Connect is not re-entered.
type Gateway interface {
	// Connect opens (or resumes, when the credential namespace is populated)
	// the session link and returns its event stream. The stream is owned by
	// exactly one consumer.
	Connect(ctx context.Context, sessionID string, creds *vault.Namespace) (<-chan Event, error)
	// Send delivers one outbound payload and returns the protocol-assigned
	// message id.
	Send(ctx context.Context, sessionID, recipientJID, kind, content string) (string, error)
	// Logout explicitly terminates the session link and invalidates the
	// pairing on the remote side.
	Logout(ctx context.Context, sessionID string) error
}
