package server

import (
	"io"
	"mime"
	"net/http"
	"strings"
)

// multipartOverhead covers boundaries and form fields around the file part.
const multipartOverhead = 1 << 20

type upload struct {
	data     []byte
	mimeType string
	filename string
}

// readUpload reads multipart field "file", enforcing the size cap and the
// audio/video media families. It writes the error response itself.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (upload, bool) {
	limit := s.cfg.MaxUploadBytes
	if r.ContentLength > limit+multipartOverhead {
		writeError(w, r, http.StatusRequestEntityTooLarge, codeTooLarge, "upload is too large")
		return upload{}, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit + multipartOverhead); err != nil {
		if isTooLarge(err) {
			writeError(w, r, http.StatusRequestEntityTooLarge, codeTooLarge, "upload is too large")
			return upload{}, false
		}
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, "invalid multipart form")
		return upload{}, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, "audio or video file is required (field 'file')")
		return upload{}, false
	}
	defer file.Close()
	if header.Size > limit {
		writeError(w, r, http.StatusRequestEntityTooLarge, codeTooLarge, "upload is too large")
		return upload{}, false
	}

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, "could not read upload")
		return upload{}, false
	}
	if int64(len(data)) > limit {
		writeError(w, r, http.StatusRequestEntityTooLarge, codeTooLarge, "upload is too large")
		return upload{}, false
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	if !acceptedMedia(mimeType) {
		writeError(w, r, http.StatusUnsupportedMediaType, codeUnsupportedMIME, "only audio/* and video/* uploads are accepted")
		return upload{}, false
	}
	return upload{data: data, mimeType: mimeType, filename: header.Filename}, true
}

func acceptedMedia(mimeType string) bool {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "audio/") || strings.HasPrefix(mediaType, "video/")
}
