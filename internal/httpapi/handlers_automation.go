package httpapi

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/datatypes"

	"github.com/brendondev/central-empresa/internal/apperrors"
	"github.com/brendondev/central-empresa/internal/model"
	"github.com/brendondev/central-empresa/internal/validator"
	"github.com/brendondev/central-empresa/pkg/utils"
)

type createAutomationRequest struct {
	Name              string         `json:"name"`
	Description       string         `json:"description"`
	Type              string         `json:"type"`
	Trigger           string         `json:"trigger"`
	TriggerConditions datatypes.JSON `json:"trigger_conditions"`
	Actions           datatypes.JSON `json:"actions"`
}

func (s *Server) handleCreateAutomation(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	var req createAutomationRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	automation := model.Automation{
		ID:                uuid.New().String(),
		SessionID:         sessionID,
		Name:              req.Name,
		Description:       req.Description,
		Type:              req.Type,
		Trigger:           req.Trigger,
		TriggerConditions: req.TriggerConditions,
		Actions:           req.Actions,
		IsActive:          true,
	}
	if err := validator.Validate(automation); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.automations.Save(r.Context(), automation); err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, automation)
}

func (s *Server) handleListAutomations(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	automations, err := s.automations.FindBySessionID(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if automations == nil {
		automations = []model.Automation{}
	}
	utils.WriteJSONResponse(w, http.StatusOK, automations)
}

func (s *Server) sessionAutomation(r *http.Request) (*model.Automation, error) {
	vars := mux.Vars(r)
	automation, err := s.automations.FindByID(r.Context(), vars["automationID"])
	if err != nil {
		return nil, err
	}
	if automation.SessionID != vars["sessionID"] {
		return nil, fmt.Errorf("%w: automation %s", apperrors.ErrNotFound, vars["automationID"])
	}
	return automation, nil
}

type updateAutomationRequest struct {
	Name              *string         `json:"name"`
	Description       *string         `json:"description"`
	Type              *string         `json:"type"`
	Trigger           *string         `json:"trigger"`
	TriggerConditions *datatypes.JSON `json:"trigger_conditions"`
	Actions           *datatypes.JSON `json:"actions"`
	IsActive          *bool           `json:"is_active"`
}

func (s *Server) handleUpdateAutomation(w http.ResponseWriter, r *http.Request) {
	automation, err := s.sessionAutomation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req updateAutomationRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if req.Name != nil {
		automation.Name = *req.Name
	}
	if req.Description != nil {
		automation.Description = *req.Description
	}
	if req.Type != nil {
		automation.Type = *req.Type
	}
	if req.Trigger != nil {
		automation.Trigger = *req.Trigger
	}
	if req.TriggerConditions != nil {
		automation.TriggerConditions = *req.TriggerConditions
	}
	if req.Actions != nil {
		automation.Actions = *req.Actions
	}
	if req.IsActive != nil {
		automation.IsActive = *req.IsActive
	}

	if err := validator.Validate(*automation); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.automations.Update(r.Context(), *automation); err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, automation)
}

func (s *Server) handleDeleteAutomation(w http.ResponseWriter, r *http.Request) {
	automation, err := s.sessionAutomation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.automations.Delete(r.Context(), automation.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
