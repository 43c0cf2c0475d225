package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"aura-assistant-backend/internal/capability"
	"aura-assistant-backend/internal/intent"
	"aura-assistant-backend/internal/types"
)

const maxJSONBody = 64 << 10

// SongDownload is the result of /download/song: the hit that was downloaded
// plus the other search candidates.
type SongDownload struct {
	Query      string                  `json:"query"`
	Track      capability.MediaItem    `json:"track"`
	Link       capability.DownloadLink `json:"link"`
	Candidates []capability.MediaItem  `json:"candidates,omitempty"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if isTooLarge(err) {
			writeError(w, r, http.StatusRequestEntityTooLarge, codeTooLarge, "request body is too large")
			return false
		}
		writeError(w, r, http.StatusBadRequest, codeInvalidJSON, "invalid JSON body")
		return false
	}
	return true
}

func validMediaURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func parseFormat(raw string) (intent.Format, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", string(intent.MP3):
		return intent.MP3, true
	case string(intent.MP4):
		return intent.MP4, true
	}
	return "", false
}

func (s *Server) handleDownloadAudio(w http.ResponseWriter, r *http.Request) {
	s.handleDownloadURL(w, r, intent.MP3)
}

func (s *Server) handleDownloadVideo(w http.ResponseWriter, r *http.Request) {
	s.handleDownloadURL(w, r, intent.MP4)
}

func (s *Server) handleDownloadURL(w http.ResponseWriter, r *http.Request, format intent.Format) {
	var req types.URLRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validMediaURL(req.URL) {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, "a valid http(s) url is required")
		return
	}
	writeResult(w, r, s.download.Download(r.Context(), strings.TrimSpace(req.URL), format))
}

// handleDownloadSong searches for the query and downloads the top hit.
func (s *Server) handleDownloadSong(w http.ResponseWriter, r *http.Request) {
	var req types.SongRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, "query is required")
		return
	}
	format, ok := parseFormat(string(req.Format))
	if !ok {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, "format must be MP3 or MP4")
		return
	}

	found := s.search.Search(r.Context(), query, capability.DefaultSearchLimit)
	if !found.Success {
		writeResult(w, r, found)
		return
	}
	if len(found.Payload) == 0 {
		writeError(w, r, http.StatusNotFound, codeNotFound, "No songs matched that search.")
		return
	}
	top := found.Payload[0]
	link := s.download.Download(r.Context(), top.URL, format)
	if !link.Success {
		writeResult(w, r, link)
		return
	}
	writeData(w, r, http.StatusOK, SongDownload{
		Query:      query,
		Track:      top,
		Link:       link.Payload,
		Candidates: found.Payload[1:],
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req types.SearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, "query is required")
		return
	}
	writeResult(w, r, s.search.Search(r.Context(), query, req.Limit))
}

func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	upload, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	writeResult(w, r, s.recognizer.Recognize(r.Context(), upload.data, upload.filename))
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req types.SpeakRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, "text is required")
		return
	}
	writeResult(w, r, s.speech.Synthesize(r.Context(), text, req.VoiceID))
}
