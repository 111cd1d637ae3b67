package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/brendondev/central-empresa/internal/apperrors"
	"github.com/brendondev/central-empresa/internal/model"
	"github.com/brendondev/central-empresa/internal/observer"
	"github.com/brendondev/central-empresa/internal/storage"
	"github.com/brendondev/central-empresa/internal/validator"
	"github.com/brendondev/central-empresa/internal/wagateway"
	"github.com/brendondev/central-empresa/pkg/logger"
	"github.com/brendondev/central-empresa/pkg/utils"
)

// transportSuffix completes a canonical phone number into the protocol's
// recipient address form.
const transportSuffix = "@s.whatsapp.net"

// SendRequest is one outbound message order, addressed to a known contact.
type SendRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	ContactID string `json:"contact_id" validate:"required"`
	Type      string `json:"type" validate:"omitempty,oneof=text image audio video document sticker location contact_card"`
	Content   string `json:"content" validate:"required_without=MediaURL"`
	MediaURL  string `json:"media_url" validate:"omitempty,url"`
}

// Dispatcher sends outbound messages over live session links and persists
// the result. It never starts a link; sends on a session without a connected
// handle fail fast, and it performs no retries of its own.
type Dispatcher struct {
	registry   *Registry
	gateway    wagateway.Gateway
	sessions   storage.SessionRepo
	contacts   storage.ContactRepo
	messages   storage.MessageRepo
	baseLogger *zap.Logger
}

// NewDispatcher creates the outbound dispatcher.
func NewDispatcher(
	registry *Registry,
	gateway wagateway.Gateway,
	sessions storage.SessionRepo,
	contacts storage.ContactRepo,
	messages storage.MessageRepo,
	baseLogger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry:   registry,
		gateway:    gateway,
		sessions:   sessions,
		contacts:   contacts,
		messages:   messages,
		baseLogger: baseLogger.Named("dispatcher"),
	}
}

// Send delivers one outbound message on a connected session and persists it.
// The contact must already exist and belong to the session. On gateway
// failure nothing is persisted; the caller decides whether to retry.
func (d *Dispatcher) Send(ctx context.Context, req SendRequest) (*model.Message, error) {
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	if req.Type == "" {
		req.Type = model.MessageTypeText
	}

	log := logger.FromContextOr(ctx, d.baseLogger).With(
		zap.String("session_id", req.SessionID),
		zap.String("contact_id", req.ContactID),
		zap.String("message_type", req.Type),
	)

	h, ok := d.registry.Get(req.SessionID)
	if !ok || h.Status() != model.SessionStatusConnected {
		// Distinguish an unknown session from one that is merely at rest.
		if _, err := d.sessions.FindBySessionID(ctx, req.SessionID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: session %s", apperrors.ErrNotConnected, req.SessionID)
	}

	contact, err := d.contacts.FindByID(ctx, req.ContactID)
	if err != nil {
		return nil, err
	}
	if contact.SessionID != req.SessionID {
		// A contact of another session is invisible here.
		return nil, fmt.Errorf("%w: contact %s", apperrors.ErrNotFound, req.ContactID)
	}

	start := utils.Now()
	messageID, err := d.gateway.Send(ctx, req.SessionID, contact.PhoneNumber+transportSuffix, req.Type, req.Content)
	observer.ObserveSendDuration(req.Type, utils.Now().Sub(start), err)
	if err != nil {
		log.Error("Gateway rejected outbound message", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", apperrors.ErrDeliveryFailed, err)
	}

	ts := utils.Now()
	message := model.Message{
		MessageID: messageID,
		SessionID: req.SessionID,
		ContactID: contact.ID,
		Type:      req.Type,
		Direction: model.MessageDirectionOutgoing,
		Status:    model.MessageStatusSent,
		Content:   req.Content,
		MediaURL:  req.MediaURL,
		Timestamp: ts,
	}
	if err := d.messages.Save(ctx, message); err != nil {
		// Delivered but not recorded. Surface it; the caller has the id.
		log.Error("Failed to persist delivered message",
			zap.String("message_id", messageID), zap.Error(err))
		return nil, err
	}

	if err := d.contacts.AdvanceLastMessageAt(ctx, contact.ID, ts); err != nil {
		log.Warn("Failed to advance contact last message time", zap.Error(err))
	}

	observer.IncMessagesOutbound(req.Type)
	log.Info("Outbound message delivered", zap.String("message_id", messageID))
	return &message, nil
}
