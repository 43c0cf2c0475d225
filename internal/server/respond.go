package server

import (
	"encoding/json"
	"net/http"

	"aura-assistant-backend/internal/capability"
	"aura-assistant-backend/internal/types"
)

// Error codes carried in the envelope.
const (
	codeInvalidJSON     = "invalid_json"
	codeInvalidInput    = "invalid_input"
	codeMessageRequired = "message_required"
	codeTooLarge        = "payload_too_large"
	codeUnsupportedMIME = "unsupported_media_type"
	codeRateLimited     = "rate_limited"
	codeUnauthorized    = "unauthorized"
	codeNotConfigured   = "capability_not_configured"
	codeUpstream        = "capability_failed"
	codeNotFound        = "not_found"
	codeInternal        = "internal_error"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, env types.Envelope) {
	env.RequestID = requestIDFrom(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, r, status, types.NewEnvelope(true, data))
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	env := types.NewEnvelope(false, nil)
	env.Error = &types.ErrorInfo{Code: code, Message: msg}
	writeJSON(w, r, status, env)
}

// writeResult maps a capability outcome onto the envelope: 503 when the
// capability is not configured, 502 when the call failed.
func writeResult[T any](w http.ResponseWriter, r *http.Request, res capability.Result[T]) {
	switch {
	case res.Disabled:
		writeError(w, r, http.StatusServiceUnavailable, codeNotConfigured, res.Error)
	case !res.Success:
		writeError(w, r, http.StatusBadGateway, codeUpstream, res.Error)
	default:
		writeData(w, r, http.StatusOK, res.Payload)
	}
}
