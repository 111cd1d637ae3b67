package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"gorm.io/datatypes"

	"github.com/brendondev/central-empresa/internal/account"
	"github.com/brendondev/central-empresa/internal/model"
	"github.com/brendondev/central-empresa/pkg/utils"
)

type createSessionRequest struct {
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id"`
	Settings  datatypes.JSON `json:"settings"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.sessions.CreateSession(r.Context(), model.Session{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Settings:  req.Settings,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, created)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		if accountID, err := account.FromContext(r.Context()); err == nil {
			userID = accountID
		}
	}
	sessions, err := s.sessions.ListSessions(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	utils.WriteJSONResponse(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	found, err := s.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, found)
}

type updateSessionRequest struct {
	Settings datatypes.JSON `json:"settings"`
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	var req updateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.sessions.UpdateSettings(r.Context(), sessionID, req.Settings)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	if err := s.sessions.DeleteSession(r.Context(), sessionID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConnectSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	connected, err := s.sessions.Connect(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusAccepted, connected)
}

func (s *Server) handleDisconnectSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	if err := s.sessions.Disconnect(r.Context(), sessionID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
