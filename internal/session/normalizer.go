package session

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/brendondev/central-empresa/internal/apperrors"
	"github.com/brendondev/central-empresa/internal/model"
	"github.com/brendondev/central-empresa/internal/notify"
	"github.com/brendondev/central-empresa/internal/observer"
	"github.com/brendondev/central-empresa/internal/storage"
	"github.com/brendondev/central-empresa/internal/wagateway"
	"github.com/brendondev/central-empresa/pkg/logger"
	"github.com/brendondev/central-empresa/pkg/utils"
)

// Normalizer turns raw gateway messages into persisted contacts and
// messages. It is stateless; one instance serves every session runner.
type Normalizer struct {
	contacts   storage.ContactRepo
	messages   storage.MessageRepo
	notifier   notify.Notifier
	baseLogger *zap.Logger
}

// NewNormalizer creates the inbound normalizer.
func NewNormalizer(contacts storage.ContactRepo, messages storage.MessageRepo, notifier notify.Notifier, baseLogger *zap.Logger) *Normalizer {
	return &Normalizer{
		contacts:   contacts,
		messages:   messages,
		notifier:   notifier,
		baseLogger: baseLogger.Named("normalizer"),
	}
}

// Process normalizes and persists one inbound message. Self-originated
// events, replays and unparseable senders are discarded without error; a
// discarded event must never take the session down.
func (n *Normalizer) Process(ctx context.Context, sessionID string, in *wagateway.InboundMessage) error {
	log := logger.FromContextOr(ctx, n.baseLogger).With(
		zap.String("session_id", sessionID),
		zap.String("message_id", in.MessageID),
	)

	if in.IsSelfOriginated {
		observer.IncMessagesInboundDiscarded("self_originated")
		return nil
	}

	phone := CanonicalPhone(in.SenderJID)
	if phone == "" {
		log.Warn("Discarding inbound message with unusable sender", zap.String("sender_jid", in.SenderJID))
		observer.IncMessagesInboundDiscarded("empty_phone")
		return nil
	}

	contact, err := n.contacts.InsertOrFetch(ctx, model.Contact{
		SessionID:   sessionID,
		PhoneNumber: phone,
		DisplayName: in.PushName,
	})
	if err != nil {
		log.Error("Failed to resolve contact for inbound message", zap.Error(err))
		return err
	}

	msgType, content, media := classify(in)

	ts := in.Timestamp
	if ts.IsZero() {
		ts = utils.Now()
	}

	message := model.Message{
		MessageID:   in.MessageID,
		SessionID:   sessionID,
		ContactID:   contact.ID,
		Type:        msgType,
		Direction:   model.MessageDirectionIncoming,
		Status:      model.MessageStatusDelivered,
		Content:     content,
		IsForwarded: in.IsForwarded,
		Timestamp:   ts,
	}
	if media != nil {
		message.MediaURL = media.URL
		message.MediaFilename = media.Filename
		message.MediaMimeType = media.MimeType
		message.MediaSize = media.Size
	}

	if err := n.messages.Save(ctx, message); err != nil {
		if apperrors.IsDuplicateError(err) {
			// Replayed protocol message. First write won; nothing to do.
			observer.IncMessagesInboundDiscarded("duplicate")
			return nil
		}
		log.Error("Failed to persist inbound message", zap.Error(err))
		return err
	}

	if err := n.contacts.AdvanceLastMessageAt(ctx, contact.ID, ts); err != nil {
		// Conversation ordering is best-effort; the message itself is safe.
		log.Warn("Failed to advance contact last message time", zap.Error(err))
	}

	observer.IncMessagesInbound(msgType)

	n.notifier.NotifyMessageReceived(ctx, model.MessageReceivedEvent{
		SessionID: sessionID,
		Message:   message,
		Timestamp: utils.Now(),
	})

	return nil
}

// CanonicalPhone strips the transport suffix and formatting noise from a
// sender identity, leaving the bare phone number.
func CanonicalPhone(jid string) string {
	phone := jid
	if at := strings.IndexByte(phone, '@'); at >= 0 {
		phone = phone[:at]
	}
	// Multi-device JIDs carry a device part after the colon.
	if colon := strings.IndexByte(phone, ':'); colon >= 0 {
		phone = phone[:colon]
	}
	for _, ch := range []string{"+", "-", " ", "(", ")"} {
		phone = strings.ReplaceAll(phone, ch, "")
	}
	return phone
}

// classify maps the payload variants onto a message type, display content
// and optional media payload. Checked in fixed order so multi-payload
// messages classify deterministically.
func classify(in *wagateway.InboundMessage) (msgType, content string, media *wagateway.MediaPayload) {
	switch {
	case in.Image != nil:
		msgType = model.MessageTypeImage
		media = in.Image
	case in.Audio != nil:
		msgType = model.MessageTypeAudio
		media = in.Audio
	case in.Video != nil:
		msgType = model.MessageTypeVideo
		media = in.Video
	case in.Document != nil:
		msgType = model.MessageTypeDocument
		media = in.Document
	case in.Sticker != nil:
		msgType = model.MessageTypeSticker
		media = in.Sticker
	case in.Location != nil:
		msgType = model.MessageTypeLocation
	case in.ContactCard != nil:
		msgType = model.MessageTypeContactCard
	default:
		msgType = model.MessageTypeText
	}

	// Content precedence: body text, then media caption, then placeholder.
	content = in.Text
	if content == "" && media != nil {
		content = media.Caption
	}
	if content == "" && msgType != model.MessageTypeText {
		content = model.MediaPlaceholder
	}
	return msgType, content, media
}
