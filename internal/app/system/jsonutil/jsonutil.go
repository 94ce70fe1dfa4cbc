// Package jsonutil writes the JSON bodies the API answers with and reads
// request bodies.
//
// Error bodies always carry a "message". Validation failures add an "errors"
// object keyed by field path, and ServerError adds the cause as "error".
package jsonutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MaxBodyBytes caps request bodies read with ReadBody.
const MaxBodyBytes = 1 << 20

// JSON writes data with the given status. A nil data writes headers only.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// OK writes a 200 response.
func OK(w http.ResponseWriter, data any) { JSON(w, http.StatusOK, data) }

// Created writes a 201 response.
func Created(w http.ResponseWriter, data any) { JSON(w, http.StatusCreated, data) }

// Error writes {"message": message} with the given status.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"message": message})
}

// BadRequest writes a 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

// NotFound writes a 404.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

// ServerError writes a 500 carrying err's text. The admin frontend shows it
// to editors, so only store and storage errors should reach it.
func ServerError(w http.ResponseWriter, err error) {
	body := map[string]string{"message": "Server error"}
	if err != nil {
		body["error"] = err.Error()
	}
	JSON(w, http.StatusInternalServerError, body)
}

// ValidationError writes a 400 with per-field messages.
func ValidationError(w http.ResponseWriter, fields map[string]string) {
	JSON(w, http.StatusBadRequest, map[string]any{
		"message": "Validation failed",
		"errors":  fields,
	})
}

// Invalid writes err as a validation response when it is (or wraps)
// validation.Errors and reports whether it did.
func Invalid(w http.ResponseWriter, err error) bool {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return false
	}
	ValidationError(w, Fields(verrs))
	return true
}

// Fields flattens ozzo-validation errors into field -> message.
func Fields(verrs validation.Errors) map[string]string {
	out := make(map[string]string, len(verrs))
	for field, err := range verrs {
		if err != nil {
			out[field] = err.Error()
		}
	}
	return out
}

// Decode decodes the request body into v.
func Decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// ReadBody reads the whole request body, up to MaxBodyBytes.
func ReadBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
}
