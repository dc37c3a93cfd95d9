// Package httpx holds small helpers for JSON responses and content negotiation.
package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
)

// JSON writes payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			http.Error(w, `{"success":false,"message":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Result writes the {success, message, ...extra} envelope used by the AJAX endpoints.
func Result(w http.ResponseWriter, status int, success bool, message string, extra map[string]any) {
	body := make(map[string]any, len(extra)+2)
	for k, v := range extra {
		body[k] = v
	}
	body["success"] = success
	body["message"] = message
	JSON(w, status, body)
}

// OK writes a successful Result with status 200.
func OK(w http.ResponseWriter, message string, extra map[string]any) {
	Result(w, http.StatusOK, true, message, extra)
}

// Fail writes a failed Result.
func Fail(w http.ResponseWriter, status int, message string) {
	Result(w, status, false, message, nil)
}

// WantsJSON reports whether the client asked for JSON rather than HTML.
func WantsJSON(r *http.Request) bool {
	if strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest") {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}
