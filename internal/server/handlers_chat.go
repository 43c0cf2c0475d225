package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"aura-assistant-backend/internal/types"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	// base64 inflates audio by 4/3; leave room for the rest of the body
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*4/3+64<<10)
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isTooLarge(err) {
			writeError(w, r, http.StatusRequestEntityTooLarge, codeTooLarge, "request body is too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, codeInvalidJSON, "invalid JSON body")
		return
	}

	msg := types.IncomingMessage{
		Text:       req.Text,
		WantsVoice: req.WantsVoice,
		VoiceID:    req.VoiceID,
		SessionID:  resolveSession(w, r, req.SessionID),
	}
	if req.AudioBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.AudioBase64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, codeInvalidInput, "audioBase64 is not valid base64")
			return
		}
		if int64(len(data)) > s.cfg.MaxUploadBytes {
			writeError(w, r, http.StatusRequestEntityTooLarge, codeTooLarge, "audio is too large")
			return
		}
		mimeType := req.AudioMimeType
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = http.DetectContentType(data)
		}
		if !acceptedMedia(mimeType) {
			writeError(w, r, http.StatusUnsupportedMediaType, codeUnsupportedMIME, "audioBase64 must be audio/* or video/*")
			return
		}
		msg.Audio = &types.AudioPayload{Data: data, MimeType: mimeType}
	}

	s.respondComposed(w, r, msg)
}

// handleChatVoice accepts a recorded voice note as multipart field "file" and
// runs it through the same pipeline as /chat.
func (s *Server) handleChatVoice(w http.ResponseWriter, r *http.Request) {
	upload, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	wantsVoice, _ := strconv.ParseBool(r.FormValue("wantsVoice"))
	msg := types.IncomingMessage{
		Text:       r.FormValue("text"),
		WantsVoice: wantsVoice,
		VoiceID:    r.FormValue("voiceId"),
		SessionID:  resolveSession(w, r, r.FormValue("sessionId")),
		Audio:      &types.AudioPayload{Data: upload.data, MimeType: upload.mimeType, Filename: upload.filename},
	}
	s.respondComposed(w, r, msg)
}

func (s *Server) respondComposed(w http.ResponseWriter, r *http.Request, msg types.IncomingMessage) {
	body := s.composer.Handle(r.Context(), msg)
	if body.InputError {
		env := types.NewEnvelope(false, body)
		env.Error = &types.ErrorInfo{Code: codeMessageRequired, Message: body.Message}
		writeJSON(w, r, http.StatusBadRequest, env)
		return
	}
	writeData(w, r, http.StatusOK, body)
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}
