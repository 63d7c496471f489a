package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
)

// apiResponse is the envelope every function route answers with.
type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// WriteJSONResponse writes a success envelope as JSON. It encodes into a
// buffer first to prevent partial writes if encoding fails. Returns false if
// the response could not be written.
func WriteJSONResponse(w http.ResponseWriter, data interface{}) bool {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(apiResponse{Success: true, Data: data}); err != nil {
		log.Printf("API: Failed to encode JSON response: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("API: Failed to write JSON response: %v", err)
		return false
	}
	return true
}

// WriteJSONError writes an error envelope with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(apiResponse{Success: false, Error: message}); err != nil {
		log.Printf("API: Failed to encode JSON error: %v", err)
	}
}

// DecodeJSONBody decodes a JSON request body into dst and writes a 400 on
// failure. Returns false when decoding failed and the error has been written.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// WithCORS wraps a handler with permissive CORS headers. Preflight OPTIONS
// requests succeed before any other handling runs.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
