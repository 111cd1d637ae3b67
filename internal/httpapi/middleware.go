package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brendondev/central-empresa/internal/account"
	"github.com/brendondev/central-empresa/pkg/logger"
	"github.com/brendondev/central-empresa/pkg/utils"
)

const (
	requestIDHeader = "X-Request-ID"
	accountIDHeader = "X-Account-ID"
)

// requestIDMiddleware tags every request with an id, honoring one supplied by
// the caller.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx := account.WithRequestID(r.Context(), requestID)
		ctx = logger.WithLogger(ctx, s.baseLogger.With(zap.String("request_id", requestID)))
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// accountMiddleware records the calling account when the caller identifies
// itself; list endpoints scope to it unless an explicit filter is given.
func (s *Server) accountMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if accountID := r.Header.Get(accountIDHeader); accountID != "" {
			r = r.WithContext(account.WithUserID(r.Context(), accountID))
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware emits one access log line per request.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := utils.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.FromContextOr(r.Context(), s.baseLogger).Info("Request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
