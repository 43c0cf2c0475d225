package capability

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"aura-assistant-backend/internal/config"
)

const speechTimeout = 30 * time.Second

const (
	ProviderElevenLabs = "elevenlabs"
	ProviderOpenAI     = "openai"
)

var errEmptyAudio = errors.New("speech provider returned no audio")

type SpeechAudio struct {
	AudioBase64 string `json:"audioBase64"`
	MimeType    string `json:"mimeType"`
	Provider    string `json:"provider"`
}

// SpeechClient prefers ElevenLabs and falls back to OpenAI speech when only
// an OpenAI key is configured.
type SpeechClient struct {
	http *http.Client

	elevenKey   string
	elevenVoice string
	elevenModel string
	elevenBase  string

	openai   *openai.Client
	ttsModel string
	ttsVoice string

	guard *guard
}

func NewSpeechClient(cfg config.Config, logger *zap.Logger, rec Recorder) *SpeechClient {
	return &SpeechClient{
		http:        &http.Client{},
		elevenKey:   cfg.ElevenAPIKey,
		elevenVoice: cfg.ElevenVoiceID,
		elevenModel: cfg.ElevenModel,
		elevenBase:  strings.TrimRight(cfg.ElevenBaseURL, "/"),
		openai:      newOpenAIClient(cfg),
		ttsModel:    cfg.TTSModel,
		ttsVoice:    cfg.TTSVoice,
		guard:       newGuard("speech", speechTimeout, logger, rec),
	}
}

// provider picks the backend for a call; an explicit voice id enables
// ElevenLabs even without a configured default voice.
func (c *SpeechClient) provider(voiceID string) string {
	if c.elevenKey != "" && (voiceID != "" || c.elevenVoice != "") {
		return ProviderElevenLabs
	}
	if c.openai != nil {
		return ProviderOpenAI
	}
	return ""
}

func (c *SpeechClient) Enabled() bool { return c.provider("") != "" }

func (c *SpeechClient) Status() Status {
	return Status{Name: "speech", Configured: c.Enabled(), Provider: c.provider(""), Breaker: c.guard.state()}
}

// Synthesize converts text to MP3 audio returned as base64.
func (c *SpeechClient) Synthesize(ctx context.Context, text, voiceID string) Result[SpeechAudio] {
	voiceID = strings.TrimSpace(voiceID)
	provider := c.provider(voiceID)
	if provider == "" {
		return skip[SpeechAudio](c.guard)
	}
	return run(ctx, c.guard, "Speech synthesis is unavailable right now.", func(ctx context.Context) (SpeechAudio, error) {
		var (
			audio []byte
			err   error
		)
		if provider == ProviderElevenLabs {
			audio, err = c.elevenLabs(ctx, text, voiceID)
		} else {
			audio, err = c.openAISpeech(ctx, text)
		}
		if err != nil {
			return SpeechAudio{}, err
		}
		if len(audio) == 0 {
			return SpeechAudio{}, errEmptyAudio
		}
		return SpeechAudio{
			AudioBase64: base64.StdEncoding.EncodeToString(audio),
			MimeType:    "audio/mpeg",
			Provider:    provider,
		}, nil
	})
}

func (c *SpeechClient) elevenLabs(ctx context.Context, text, voiceID string) ([]byte, error) {
	if voiceID == "" {
		voiceID = c.elevenVoice
	}
	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", c.elevenBase, url.PathEscape(voiceID))
	payload := map[string]any{
		"text":     text,
		"model_id": c.elevenModel,
		"voice_settings": map[string]any{
			"stability":         0.5,
			"similarity_boost":  0.7,
			"style":             0.2,
			"use_speaker_boost": true,
		},
		"output_format": "mp3_44100_128",
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode elevenlabs request: %w", err)
	}
	resp, err := do(ctx, c.http, http.MethodPost, endpoint, map[string]string{
		"xi-api-key":   c.elevenKey,
		"Content-Type": "application/json",
		"Accept":       "audio/mpeg",
	}, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus("elevenlabs", resp); err != nil {
		return nil, err
	}
	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %w", err)
	}
	return audio, nil
}

func (c *SpeechClient) openAISpeech(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.openai.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.ttsModel),
		Input:          text,
		Voice:          openai.SpeechVoice(c.ttsVoice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()
	audio, err := io.ReadAll(io.LimitReader(resp, maxBody))
	if err != nil {
		return nil, fmt.Errorf("openai speech: read audio: %w", err)
	}
	return audio, nil
}
