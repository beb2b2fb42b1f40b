package helpers

import (
	"encoding/json"
	"io"
	"net/http"
)

func DecodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	return dec.Decode(v)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Success writes the storefront response envelope.
func Success(w http.ResponseWriter, msg string, data any) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"message": msg,
		"error":   false,
		"success": true,
		"data":    data,
	})
}

func HttpError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]any{
		"message": msg,
		"error":   true,
		"success": false,
	})
}
