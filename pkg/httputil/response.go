// Package httputil provides shared HTTP helpers for the stub and admin
// portals: response writers and header plumbing.
package httputil

import (
	"encoding/json"
	"net/http"
)

// Content types written by the portals.
const (
	ContentTypeJSON = "application/json"
	ContentTypeYAML = "application/yaml"
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeCSV  = "text/csv; charset=utf-8"
)

// WriteJSON writes a JSON response with the given status code.
// It sets the Content-Type header to application/json.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteBody writes body verbatim with the given content type.
func WriteBody(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if len(body) > 0 {
		_, _ = w.Write(body)
	}
}

// WriteText writes a plain-text response. Unlike http.Error it adds no
// trailing newline, so diagnostics reach the client byte for byte.
func WriteText(w http.ResponseWriter, status int, message string) {
	WriteBody(w, status, ContentTypeText, []byte(message))
}

// WriteBadRequest writes a 400 Bad Request diagnostic.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteText(w, http.StatusBadRequest, message)
}

// WriteNotFound writes a 404 Not Found diagnostic.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteText(w, http.StatusNotFound, message)
}

// WriteInternalError writes a 500 Internal Server Error diagnostic.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteText(w, http.StatusInternalServerError, message)
}

// WriteCreated writes a 201 Created response, with a Location header when
// location is set.
func WriteCreated(w http.ResponseWriter, location, message string) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	WriteText(w, http.StatusCreated, message)
}

// WriteOK writes a 200 OK plain-text response.
func WriteOK(w http.ResponseWriter, message string) {
	WriteText(w, http.StatusOK, message)
}
