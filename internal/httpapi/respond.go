package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/brendondev/central-empresa/internal/apperrors"
	"github.com/brendondev/central-empresa/pkg/logger"
	"github.com/brendondev/central-empresa/pkg/utils"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusForError maps the application error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case apperrors.IsValidationError(err), apperrors.IsBadRequestError(err):
		return http.StatusBadRequest
	case apperrors.IsNotFoundError(err):
		return http.StatusNotFound
	case apperrors.IsAlreadyActiveError(err), apperrors.IsNotConnectedError(err), apperrors.IsDuplicateError(err):
		return http.StatusConflict
	case apperrors.IsDeliveryFailedError(err), apperrors.IsCredentialFailureError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	log := logger.FromContextOr(r.Context(), s.baseLogger)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.Int("status", status), zap.Error(err))
		utils.WriteJSONResponse(w, status, errorResponse{Error: "internal server error"})
		return
	}
	log.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
	utils.WriteJSONResponse(w, status, errorResponse{Error: err.Error()})
}

// decodeBody parses the JSON request body, mapping malformed input onto the
// bad-request error class.
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %w", apperrors.ErrBadRequest, err)
	}
	return nil
}

// pagination reads limit/offset query parameters; zero values let the storage
// layer apply its defaults.
func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
