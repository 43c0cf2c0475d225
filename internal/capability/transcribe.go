package capability

import (
	"bytes"
	"context"
	"errors"
	"mime"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"aura-assistant-backend/internal/config"
)

const transcribeTimeout = 60 * time.Second

var errEmptyTranscript = errors.New("empty transcription")

type Transcript struct {
	Text string `json:"text"`
}

type Transcriber struct {
	client *openai.Client
	model  string
	guard  *guard
}

func NewTranscriber(cfg config.Config, logger *zap.Logger, rec Recorder) *Transcriber {
	return &Transcriber{
		client: newOpenAIClient(cfg),
		model:  cfg.STTModel,
		guard:  newGuard("transcription", transcribeTimeout, logger, rec),
	}
}

func (t *Transcriber) Enabled() bool { return t.client != nil }

func (t *Transcriber) Status() Status {
	return Status{Name: "transcription", Configured: t.Enabled(), Provider: "openai", Breaker: t.guard.state()}
}

// Transcribe turns recorded speech into text. An empty transcript is a failure.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, mimeType, filename string) Result[Transcript] {
	if !t.Enabled() {
		return skip[Transcript](t.guard)
	}
	name := audioFilename(filename, mimeType)
	return run(ctx, t.guard, "I couldn't understand that recording.", func(ctx context.Context) (Transcript, error) {
		resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    t.model,
			Reader:   bytes.NewReader(audio),
			FilePath: name,
		})
		if err != nil {
			return Transcript{}, err
		}
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			return Transcript{}, errEmptyTranscript
		}
		return Transcript{Text: text}, nil
	})
}

// audioFilename returns a name whose extension the upstream can use to sniff
// the container format.
func audioFilename(filename, mimeType string) string {
	if filename != "" && filepath.Ext(filename) != "" {
		return filepath.Base(filename)
	}
	ext := ".webm"
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		switch mediaType {
		case "audio/mpeg", "audio/mp3":
			ext = ".mp3"
		case "audio/wav", "audio/x-wav", "audio/wave":
			ext = ".wav"
		case "audio/ogg":
			ext = ".ogg"
		case "audio/mp4", "audio/m4a", "audio/x-m4a":
			ext = ".m4a"
		case "video/mp4":
			ext = ".mp4"
		}
	}
	return "audio" + ext
}
