package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"homematch/apperrors"
	"homematch/models"

	"go.uber.org/zap"
)

// UserHeader carries the id of the acting user. Authentication happens in
// front of this service.
const UserHeader = "X-User-ID"

const maxBodyBytes = 1 << 20

// WriteJSONResponse writes data as JSON with the given status.
func WriteJSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func statusFor(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteError maps err to an HTTP status and writes {"error": "..."}.
// Internal errors are logged and hidden from the client.
func WriteError(w http.ResponseWriter, logger *zap.Logger, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("❌ request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		message = "internal server error"
	}
	WriteJSONResponse(w, status, map[string]string{"error": message})
}

// decodeBody reads a JSON body into v and runs its validate tags.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.NewValidation("request body is required")
		}
		return apperrors.NewValidation("invalid request body: %v", err)
	}
	return models.Validate(v)
}

func actor(r *http.Request) (string, error) {
	user := r.Header.Get(UserHeader)
	if user == "" {
		return "", apperrors.NewValidation("%s header is required", UserHeader)
	}
	return user, nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.NewValidation("%s must be a non-negative integer", key)
	}
	return n, nil
}

func queryBool(r *http.Request, key string) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.NewValidation("%s must be true or false", key)
	}
	return b, nil
}
