package types

import (
	"time"

	"aura-assistant-backend/internal/identity"
	"aura-assistant-backend/internal/intent"
)

// Response tags that do not come from the classifier.
const (
	TypeClarification = "clarification"
	TypeError         = "error"
)

type ChatRequest struct {
	Text          string `json:"text"`
	WantsVoice    bool   `json:"wantsVoice"`
	SessionID     string `json:"sessionId,omitempty"`
	VoiceID       string `json:"voiceId,omitempty"`
	AudioBase64   string `json:"audioBase64,omitempty"`
	AudioMimeType string `json:"audioMimeType,omitempty"`
}

type AudioPayload struct {
	Data     []byte
	MimeType string
	Filename string
}

// IncomingMessage is built per request and dropped after the response is written.
type IncomingMessage struct {
	Text       string
	WantsVoice bool
	SessionID  string
	VoiceID    string
	Audio      *AudioPayload
}

type URLRequest struct {
	URL string `json:"url"`
}

type SongRequest struct {
	Query  string        `json:"query"`
	Format intent.Format `json:"format,omitempty"`
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type SpeakRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId,omitempty"`
}

// DownloadPlan describes a download the caller should run through Endpoint.
type DownloadPlan struct {
	Query      string        `json:"query,omitempty"`
	URL        string        `json:"url,omitempty"`
	Format     intent.Format `json:"format"`
	Capability string        `json:"capability"`
	Endpoint   string        `json:"endpoint"`
}

type UploadHint struct {
	Endpoint     string   `json:"endpoint"`
	Field        string   `json:"field"`
	MaxBytes     int64    `json:"maxBytes"`
	AcceptedMIME []string `json:"acceptedMime"`
}

type TempoRange struct {
	MinBPM int `json:"minBpm"`
	MaxBPM int `json:"maxBpm"`
}

// MusicSpec is a cosmetic description; nothing renders it into audio.
type MusicSpec struct {
	Genre           string     `json:"genre"`
	Mood            string     `json:"mood"`
	Tempo           TempoRange `json:"tempo"`
	Key             string     `json:"key"`
	Structure       []string   `json:"structure"`
	Instruments     []string   `json:"instruments"`
	DurationSeconds int        `json:"durationSeconds"`
}

type Capability struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Examples    []string `json:"examples,omitempty"`
}

type VoiceAudio struct {
	AudioBase64 string `json:"audioBase64"`
	MimeType    string `json:"mimeType"`
	Provider    string `json:"provider,omitempty"`
}

// ResponseBody is the composed answer to one chat message. Treat it as a
// value: helpers return modified copies.
type ResponseBody struct {
	Type         string                `json:"type"`
	Message      string                `json:"message"`
	SessionID    string                `json:"sessionId,omitempty"`
	Transcript   string                `json:"transcript,omitempty"`
	Download     *DownloadPlan         `json:"download,omitempty"`
	Upload       *UploadHint           `json:"upload,omitempty"`
	Generation   *MusicSpec            `json:"generation,omitempty"`
	Capabilities []Capability          `json:"capabilities,omitempty"`
	Identity     *identity.Declaration `json:"identity,omitempty"`
	Voice        *VoiceAudio           `json:"voice,omitempty"`

	// InputError marks a client mistake (empty message); it maps to HTTP 400.
	InputError bool `json:"-"`
}

// WithVoice returns a copy of b carrying v. Type and Message are untouched.
func (b ResponseBody) WithVoice(v VoiceAudio) ResponseBody {
	b.Voice = &v
	return b
}

// Envelope wraps every JSON response.
type Envelope struct {
	Success   bool       `json:"success"`
	System    string     `json:"system"`
	Creator   string     `json:"creator"`
	Timestamp time.Time  `json:"timestamp"`
	RequestID string     `json:"requestId,omitempty"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewEnvelope(success bool, data any) Envelope {
	return Envelope{
		Success:   success,
		System:    identity.SystemName,
		Creator:   identity.Creator,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
