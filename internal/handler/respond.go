package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/auth"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/service"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/websocket"
)

const maxBodyBytes = 1 << 20

// Publisher delivers realtime row changes. *websocket.Hub implements it.
type Publisher interface {
	Publish(msg websocket.Message)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorResponse maps a domain error onto a status code and client message.
func errorResponse(err error) (int, any) {
	var verr *service.ValidationError
	var ferrs validator.ValidationErrors
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, map[string]any{"error": verr.Error(), "fields": verr.Fields()}
	case errors.As(err, &ferrs):
		return http.StatusBadRequest, map[string]string{"error": ferrs.Error()}
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, map[string]string{"error": err.Error()}
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrNotMember), errors.Is(err, service.ErrFeatureDisabled):
		return http.StatusForbidden, map[string]string{"error": err.Error()}
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrNoAccount):
		return http.StatusNotFound, map[string]string{"error": err.Error()}
	case errors.Is(err, service.ErrAlreadyMember), errors.Is(err, service.ErrLastAdmin), errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict, map[string]string{"error": err.Error()}
	case errors.Is(err, service.ErrNoFamily):
		return http.StatusBadRequest, map[string]string{"error": err.Error()}
	default:
		return http.StatusInternalServerError, map[string]string{"error": "internal server error"}
	}
}

// writeServiceError writes err as JSON and logs it when it is unexpected.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	status, body := errorResponse(err)
	if status == http.StatusInternalServerError {
		logger.Error(msg, "error", err)
	}
	writeJSON(w, status, body)
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
// Keys listed in deprecated are dropped first so older clients keep working.
func decodeJSON(r *http.Request, v any, deprecated ...string) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(deprecated) > 0 {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		for _, k := range deprecated {
			delete(raw, k)
		}
		if data, err = json.Marshal(raw); err != nil {
			return fmt.Errorf("re-encode body: %w", err)
		}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// emptyIfNil keeps list responses as [] rather than null.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
