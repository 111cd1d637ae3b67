package httpapi

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/datatypes"

	"github.com/brendondev/central-empresa/internal/apperrors"
	"github.com/brendondev/central-empresa/internal/model"
	"github.com/brendondev/central-empresa/internal/session"
	"github.com/brendondev/central-empresa/internal/validator"
	"github.com/brendondev/central-empresa/pkg/utils"
)

type createContactRequest struct {
	PhoneNumber  string         `json:"phone_number"`
	DisplayName  string         `json:"display_name"`
	CustomName   string         `json:"custom_name"`
	Notes        string         `json:"notes"`
	Category     string         `json:"category"`
	Color        string         `json:"color"`
	CustomFields datatypes.JSON `json:"custom_fields"`
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	var req createContactRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	contact := model.Contact{
		ID:           uuid.New().String(),
		SessionID:    sessionID,
		PhoneNumber:  session.CanonicalPhone(req.PhoneNumber),
		DisplayName:  req.DisplayName,
		CustomName:   req.CustomName,
		Notes:        req.Notes,
		Category:     req.Category,
		Color:        req.Color,
		CustomFields: req.CustomFields,
	}
	if err := validator.Validate(contact); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.contacts.Save(r.Context(), contact); err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, contact)
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	limit, offset := pagination(r)

	contacts, err := s.contacts.FindBySessionID(r.Context(), sessionID, limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if contacts == nil {
		contacts = []model.Contact{}
	}
	utils.WriteJSONResponse(w, http.StatusOK, contacts)
}

// sessionContact loads the contact and hides contacts of other sessions.
func (s *Server) sessionContact(r *http.Request) (*model.Contact, error) {
	vars := mux.Vars(r)
	contact, err := s.contacts.FindByID(r.Context(), vars["contactID"])
	if err != nil {
		return nil, err
	}
	if contact.SessionID != vars["sessionID"] {
		return nil, fmt.Errorf("%w: contact %s", apperrors.ErrNotFound, vars["contactID"])
	}
	return contact, nil
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	contact, err := s.sessionContact(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, contact)
}

type updateContactRequest struct {
	CustomName   *string         `json:"custom_name"`
	Notes        *string         `json:"notes"`
	Category     *string         `json:"category"`
	Color        *string         `json:"color"`
	IsBlocked    *bool           `json:"is_blocked"`
	IsFavorite   *bool           `json:"is_favorite"`
	CustomFields *datatypes.JSON `json:"custom_fields"`
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	contact, err := s.sessionContact(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req updateContactRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if req.CustomName != nil {
		contact.CustomName = *req.CustomName
	}
	if req.Notes != nil {
		contact.Notes = *req.Notes
	}
	if req.Category != nil {
		contact.Category = *req.Category
	}
	if req.Color != nil {
		contact.Color = *req.Color
	}
	if req.IsBlocked != nil {
		contact.IsBlocked = *req.IsBlocked
	}
	if req.IsFavorite != nil {
		contact.IsFavorite = *req.IsFavorite
	}
	if req.CustomFields != nil {
		contact.CustomFields = *req.CustomFields
	}

	if err := s.contacts.Update(r.Context(), *contact); err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, contact)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	contact, err := s.sessionContact(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.contacts.Delete(r.Context(), contact.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type replaceTagsRequest struct {
	TagIDs []string `json:"tag_ids"`
}

func (s *Server) handleReplaceContactTags(w http.ResponseWriter, r *http.Request) {
	contact, err := s.sessionContact(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req replaceTagsRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.contacts.ReplaceTags(r.Context(), contact.ID, req.TagIDs); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.contacts.FindByID(r.Context(), contact.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, updated)
}
