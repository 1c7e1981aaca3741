package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/soaringjerry/pregate/internal/middleware"
	"github.com/soaringjerry/pregate/internal/services"
	"github.com/soaringjerry/pregate/internal/utils"
)

type errorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (rt *Router) t(r *http.Request, key string) string {
	return utils.T(middleware.LocaleFromContext(r.Context()), key)
}

func (rt *Router) writeError(w http.ResponseWriter, status int, msg string, details []string) {
	writeJSON(w, status, errorBody{Error: msg, Details: details})
}

// decodeJSON reads a bounded JSON body into v.
func (rt *Router) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, rt.bodyLimit())
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return services.NewInvalidError("request body required")
		}
		return services.NewInvalidError("malformed request body", err.Error())
	}
	return nil
}

func (rt *Router) bodyLimit() int64 {
	if rt.cfg.App.BodyLimitBytes > 0 {
		return rt.cfg.App.BodyLimitBytes
	}
	return 64 << 10
}

// fail maps a service error onto a status code. invalidKey selects the message shown for
// validation failures so each surface keeps its own wording.
func (rt *Router) fail(w http.ResponseWriter, r *http.Request, err error, invalidKey string) {
	se, ok := services.AsServiceError(err)
	if !ok {
		rt.log.Error("unhandled error",
			zap.String("correlation_id", middleware.CorrelationIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		rt.writeError(w, http.StatusInternalServerError, rt.t(r, "server.error"), nil)
		return
	}
	switch se.Code {
	case services.ErrorInvalid:
		details := se.Details
		if len(details) == 0 && se.Message != "" {
			details = []string{se.Message}
		}
		rt.writeError(w, http.StatusBadRequest, rt.t(r, invalidKey), details)
	case services.ErrorNotFound:
		if errors.Is(err, services.ErrSurveyNotFound) {
			rt.writeError(w, http.StatusNotFound, rt.t(r, "survey.not_found"), nil)
			return
		}
		rt.writeError(w, http.StatusNotFound, se.Message, nil)
	case services.ErrorUnauthorized:
		rt.writeError(w, http.StatusUnauthorized, rt.t(r, "auth.unauthorized"), nil)
	case services.ErrorForbidden:
		rt.writeError(w, http.StatusForbidden, rt.t(r, "request.forbidden"), nil)
	case services.ErrorConflict:
		rt.writeError(w, http.StatusConflict, se.Message, nil)
	case services.ErrorTooManyRequests:
		rt.writeError(w, http.StatusTooManyRequests, rt.t(r, "rate.limited"), nil)
	default:
		rt.log.Error("request failed",
			zap.String("correlation_id", middleware.CorrelationIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		rt.writeError(w, http.StatusInternalServerError, rt.t(r, "server.error"), nil)
	}
}
