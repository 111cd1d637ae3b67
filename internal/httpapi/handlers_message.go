package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/brendondev/central-empresa/internal/model"
	"github.com/brendondev/central-empresa/internal/session"
	"github.com/brendondev/central-empresa/pkg/utils"
)

type sendMessageRequest struct {
	ContactID string `json:"contact_id"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	MediaURL  string `json:"media_url"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	var req sendMessageRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sent, err := s.sender.Send(r.Context(), session.SendRequest{
		SessionID: sessionID,
		ContactID: req.ContactID,
		Type:      req.Type,
		Content:   req.Content,
		MediaURL:  req.MediaURL,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, sent)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	limit, offset := pagination(r)

	var (
		messages []model.Message
		err      error
	)
	if contactID := r.URL.Query().Get("contact_id"); contactID != "" {
		messages, err = s.messages.FindByContactID(r.Context(), sessionID, contactID, limit, offset)
	} else {
		messages, err = s.messages.FindBySessionID(r.Context(), sessionID, limit, offset)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}
	utils.WriteJSONResponse(w, http.StatusOK, messages)
}
