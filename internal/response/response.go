// Package response provides shared JSON response helpers for HTTP handlers.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/catalog/service/internal/apperror"
)

// Envelope is the standard API response envelope.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// JSON writes a JSON-encoded payload with the given HTTP status code.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes a 200 response with data.
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 response with data.
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// Error writes an error response with the given status and message.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: false, Error: message})
}

// BadRequest writes a 400 response.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

// Unauthorized writes a 401 response.
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message)
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

// InternalError writes a 500 response with a generic message.
func InternalError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, "internal server error")
}

// statusByKind maps each apperror kind to its HTTP status.
var statusByKind = map[error]int{
	apperror.ErrValidation:       http.StatusBadRequest,
	apperror.ErrInvalidReference: http.StatusBadRequest,
	apperror.ErrUpload:           http.StatusBadRequest,
	apperror.ErrNotFound:         http.StatusNotFound,
	apperror.ErrDuplicate:        http.StatusConflict,
	apperror.ErrConflict:         http.StatusConflict,
	apperror.ErrAuth:             http.StatusUnauthorized,
}

// StatusFor returns the HTTP status code for err.
func StatusFor(err error) int {
	if status, ok := statusByKind[apperror.Kind(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromError renders err using the apperror taxonomy. Internal and unclassified errors are
// logged with their cause and rendered with a generic message.
func FromError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	status := StatusFor(err)
	var appErr *apperror.Error
	if status == http.StatusInternalServerError || !errors.As(err, &appErr) {
		log.WithError(err).Error("request failed")
		InternalError(w)
		return
	}

	if appErr.Err != nil {
		log.WithError(appErr.Err).WithField("status", status).Warn(appErr.Message)
	}
	Error(w, status, appErr.Message)
}
