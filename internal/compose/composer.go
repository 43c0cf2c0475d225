// Package compose turns one incoming chat message into a response body:
// identity check, intent classification, parameter extraction, at most one
// capability call and an optional voice attachment.
package compose

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"aura-assistant-backend/internal/capability"
	"aura-assistant-backend/internal/identity"
	"aura-assistant-backend/internal/intent"
	"aura-assistant-backend/internal/types"
)

// Endpoints the composer points callers at.
const (
	EndpointSongDownload  = "/download/song"
	EndpointAudioDownload = "/download/audio"
	EndpointVideoDownload = "/download/video"
	EndpointRecognize     = "/recognize"
)

const (
	MessageRequired = "A message is required."

	messageVoiceUnclear = "I got your voice message but couldn't make out the words. Could you type it, or record it again a little closer to the mic?"
	messageAskSong      = "Which song would you like? Tell me the title, and the artist if you know it."
	messageAskURL       = "I couldn't find a link in your message. Paste the full URL you want me to download."
	messageInternal     = "Something went wrong on my side. Please try again."
)

// AcceptedUploadMIME lists the media families /recognize accepts.
var AcceptedUploadMIME = []string{"audio/*", "video/*"}

type Chatter interface {
	Complete(ctx context.Context, text string) capability.Result[capability.ChatReply]
}

type Speaker interface {
	Synthesize(ctx context.Context, text, voiceID string) capability.Result[capability.SpeechAudio]
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType, filename string) capability.Result[capability.Transcript]
}

// Observer is told the outcome of every composed message.
type Observer interface {
	RecordIntent(responseType string)
	RecordVoice(attached bool)
}

type nopObserver struct{}

func (nopObserver) RecordIntent(string) {}
func (nopObserver) RecordVoice(bool)    {}

type Options struct {
	Catalog        *Catalog
	Rand           *Rand
	Observer       Observer
	Logger         *zap.Logger
	MaxUploadBytes int64
}

type Composer struct {
	chat        Chatter
	speech      Speaker
	transcriber Transcriber

	catalog   *Catalog
	rand      *Rand
	observer  Observer
	logger    *zap.Logger
	maxUpload int64
}

func New(chat Chatter, speech Speaker, transcriber Transcriber, opts Options) (*Composer, error) {
	c := &Composer{
		chat:        chat,
		speech:      speech,
		transcriber: transcriber,
		catalog:     opts.Catalog,
		rand:        opts.Rand,
		observer:    opts.Observer,
		logger:      opts.Logger,
		maxUpload:   opts.MaxUploadBytes,
	}
	if c.catalog == nil {
		cat, err := DefaultCatalog()
		if err != nil {
			return nil, err
		}
		c.catalog = cat
	}
	if c.rand == nil {
		c.rand = newTimeSeededRand()
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.With(zap.String("component", "composer"))
	return c, nil
}

// Handle never panics and never fails; every outcome is a ResponseBody.
func (c *Composer) Handle(ctx context.Context, msg types.IncomingMessage) (body types.ResponseBody) {
	defer func() {
		if p := recover(); p != nil {
			c.logger.Error("composer panicked", zap.Any("panic", p))
			body = types.ResponseBody{Type: string(intent.General), Message: messageInternal, SessionID: msg.SessionID}
		}
	}()

	text := strings.TrimSpace(msg.Text)
	var transcript string
	if text == "" && msg.Audio != nil && len(msg.Audio.Data) > 0 {
		text = c.transcribe(ctx, msg.Audio)
		if text != intent.VoicePlaceholder {
			transcript = text
		}
	}

	body = c.compose(ctx, text)
	body.SessionID = msg.SessionID
	body.Transcript = transcript
	c.observer.RecordIntent(body.Type)
	if body.InputError || !msg.WantsVoice {
		return body
	}
	return c.attachVoice(ctx, body, msg.VoiceID)
}

// Decide reports the intent for text without calling any capability.
func Decide(text string) intent.Intent {
	if identity.Matches(text) {
		return intent.Identity
	}
	return intent.Classify(text)
}

func (c *Composer) transcribe(ctx context.Context, audio *types.AudioPayload) string {
	if c.transcriber == nil {
		return intent.VoicePlaceholder
	}
	res := c.transcriber.Transcribe(ctx, audio.Data, audio.MimeType, audio.Filename)
	if !res.Success || strings.TrimSpace(res.Payload.Text) == "" {
		return intent.VoicePlaceholder
	}
	return strings.TrimSpace(res.Payload.Text)
}

func (c *Composer) compose(ctx context.Context, text string) types.ResponseBody {
	if text == "" {
		return types.ResponseBody{Type: types.TypeError, Message: MessageRequired, InputError: true}
	}
	if text == intent.VoicePlaceholder {
		return types.ResponseBody{Type: string(intent.VoiceMessage), Message: messageVoiceUnclear}
	}
	if identity.Matches(text) {
		return identityBody()
	}

	i := intent.Classify(text)
	switch i {
	case intent.SongDownload, intent.VideoDownload, intent.URLDownload:
		return c.download(i, text)
	case intent.MusicRecognition:
		return c.recognition()
	case intent.MusicGeneration:
		return c.generation()
	case intent.Help:
		return c.help()
	default:
		return c.general(ctx, text)
	}
}

func identityBody() types.ResponseBody {
	decl := identity.Declare()
	return types.ResponseBody{Type: string(intent.Identity), Message: identity.Statement, Identity: &decl}
}

// download returns a plan; the caller runs it through the plan's endpoint.
func (c *Composer) download(i intent.Intent, text string) types.ResponseBody {
	req, ok := intent.Extract(i, text)
	if !ok {
		msg := messageAskURL
		if i == intent.SongDownload {
			msg = messageAskSong
		}
		return types.ResponseBody{Type: types.TypeClarification, Message: msg}
	}

	plan := &types.DownloadPlan{Format: req.Format, Capability: "download"}
	var msg string
	switch i {
	case intent.SongDownload:
		plan.Query = req.Query
		plan.Capability = "search"
		plan.Endpoint = EndpointSongDownload
		msg = fmt.Sprintf("Got it! I'll find %q and get it ready as %s.", req.Query, req.Format)
	default:
		plan.URL = req.URL
		plan.Endpoint = EndpointAudioDownload
		if req.Format == intent.MP4 {
			plan.Endpoint = EndpointVideoDownload
		}
		kind := "that link"
		if i == intent.VideoDownload {
			kind = "that YouTube video"
		}
		msg = fmt.Sprintf("On it! I'll prepare %s as %s.", kind, req.Format)
	}
	return types.ResponseBody{Type: string(i), Message: msg, Download: plan}
}

func (c *Composer) recognition() types.ResponseBody {
	hint := &types.UploadHint{
		Endpoint:     EndpointRecognize,
		Field:        "file",
		MaxBytes:     c.maxUpload,
		AcceptedMIME: append([]string(nil), AcceptedUploadMIME...),
	}
	msg := "I can identify that! Upload or record a short audio or video clip of the song"
	if c.maxUpload > 0 {
		msg += fmt.Sprintf(" (up to %s)", humanBytes(c.maxUpload))
	}
	msg += " and I'll tell you what it is."
	return types.ResponseBody{Type: string(intent.MusicRecognition), Message: msg, Upload: hint}
}

func (c *Composer) generation() types.ResponseBody {
	g := c.catalog.Generation
	tempo := pick(c.rand, g.Tempos)
	spec := &types.MusicSpec{
		Genre:           pick(c.rand, g.Genres),
		Mood:            pick(c.rand, g.Moods),
		Tempo:           types.TempoRange{MinBPM: tempo.Min, MaxBPM: tempo.Max},
		Key:             pick(c.rand, g.Keys),
		Structure:       append([]string(nil), pick(c.rand, g.Structures)...),
		DurationSeconds: pick(c.rand, g.Durations),
	}
	for _, idx := range c.rand.Perm(len(g.Instruments))[:g.InstrumentCount] {
		spec.Instruments = append(spec.Instruments, g.Instruments[idx])
	}
	msg := fmt.Sprintf("Here's an idea: a %s %s track in %s at %d-%d BPM, about %d seconds long, built on %s.",
		spec.Mood, spec.Genre, spec.Key, spec.Tempo.MinBPM, spec.Tempo.MaxBPM, spec.DurationSeconds,
		strings.Join(spec.Instruments, ", "))
	return types.ResponseBody{Type: string(intent.MusicGeneration), Message: msg, Generation: spec}
}

func (c *Composer) help() types.ResponseBody {
	caps := append([]types.Capability(nil), c.catalog.Capabilities...)
	names := make([]string, 0, len(caps))
	for _, cp := range caps {
		names = append(names, strings.ToLower(cp.Name))
	}
	msg := fmt.Sprintf("I'm %s. I can help with %s.", identity.SystemName, strings.Join(names, "; "))
	return types.ResponseBody{Type: string(intent.Help), Message: msg, Capabilities: caps}
}

func (c *Composer) general(ctx context.Context, text string) types.ResponseBody {
	if c.chat != nil {
		res := c.chat.Complete(ctx, text)
		if res.Success && strings.TrimSpace(res.Payload.Reply) != "" {
			return types.ResponseBody{Type: string(intent.General), Message: res.Payload.Reply}
		}
	}
	return types.ResponseBody{Type: string(intent.General), Message: pick(c.rand, c.catalog.Fallbacks)}
}

func (c *Composer) attachVoice(ctx context.Context, body types.ResponseBody, voiceID string) types.ResponseBody {
	if c.speech == nil {
		c.observer.RecordVoice(false)
		return body
	}
	res := c.speech.Synthesize(ctx, body.Message, voiceID)
	if !res.Success {
		c.observer.RecordVoice(false)
		return body
	}
	c.observer.RecordVoice(true)
	return body.WithVoice(types.VoiceAudio{
		AudioBase64: res.Payload.AudioBase64,
		MimeType:    res.Payload.MimeType,
		Provider:    res.Payload.Provider,
	})
}

func humanBytes(n int64) string {
	const mb = 1 << 20
	if n >= mb && n%mb == 0 {
		return fmt.Sprintf("%d MB", n/mb)
	}
	if n >= 1<<10 && n%(1<<10) == 0 {
		return fmt.Sprintf("%d KB", n/(1<<10))
	}
	return fmt.Sprintf("%d bytes", n)
}
