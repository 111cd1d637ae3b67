package httpapi

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/brendondev/central-empresa/internal/apperrors"
	"github.com/brendondev/central-empresa/internal/model"
	"github.com/brendondev/central-empresa/internal/validator"
	"github.com/brendondev/central-empresa/pkg/utils"
)

type createTagRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	var req createTagRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	tag := model.Tag{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
		IsActive:    true,
	}
	if err := validator.Validate(tag); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.tags.Save(r.Context(), tag); err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, tag)
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	tags, err := s.tags.FindBySessionID(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if tags == nil {
		tags = []model.Tag{}
	}
	utils.WriteJSONResponse(w, http.StatusOK, tags)
}

func (s *Server) sessionTag(r *http.Request) (*model.Tag, error) {
	vars := mux.Vars(r)
	tag, err := s.tags.FindByID(r.Context(), vars["tagID"])
	if err != nil {
		return nil, err
	}
	if tag.SessionID != vars["sessionID"] {
		return nil, fmt.Errorf("%w: tag %s", apperrors.ErrNotFound, vars["tagID"])
	}
	return tag, nil
}

type updateTagRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	Icon        *string `json:"icon"`
	IsActive    *bool   `json:"is_active"`
}

func (s *Server) handleUpdateTag(w http.ResponseWriter, r *http.Request) {
	tag, err := s.sessionTag(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req updateTagRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if req.Name != nil {
		tag.Name = *req.Name
	}
	if req.Description != nil {
		tag.Description = *req.Description
	}
	if req.Color != nil {
		tag.Color = *req.Color
	}
	if req.Icon != nil {
		tag.Icon = *req.Icon
	}
	if req.IsActive != nil {
		tag.IsActive = *req.IsActive
	}

	if err := s.tags.Update(r.Context(), *tag); err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, tag)
}

func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	tag, err := s.sessionTag(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.tags.Delete(r.Context(), tag.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
