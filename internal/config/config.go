package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is read once at startup and shared read-only afterwards.
type Config struct {
	Port           string
	AllowedOrigins []string
	StaticDir      string
	LogLevel       string
	LogFormat      string

	// OpenAI: chat completion, transcription and fallback speech
	OpenAIAPIKey  string
	OpenAIBaseURL string
	Model         string
	TTSModel      string
	TTSVoice      string
	STTModel      string

	// ElevenLabs speech
	ElevenAPIKey  string
	ElevenVoiceID string
	ElevenModel   string
	ElevenBaseURL string

	// AudD recognition
	AudDAPIToken string
	AudDBaseURL  string

	// YouTube Data API search
	YouTubeAPIKey  string
	YouTubeBaseURL string

	// Media download API (cobalt compatible)
	MediaDownloadURL string
	MediaDownloadKey string

	MaxUploadBytes  int64
	RateLimitWindow time.Duration
	RateLimitMax    int
	AdminToken      string
	// Honour X-Forwarded-For / X-Real-IP; only behind a proxy that sets them
	TrustProxy bool

	// Optional Redis cache; in-memory when empty
	RedisURL string
	CacheTTL time.Duration
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:             getEnvDefault("PORT", "8080"),
		AllowedOrigins:   getEnvListDefault("ALLOWED_ORIGINS", []string{"*"}),
		StaticDir:        os.Getenv("STATIC_DIR"),
		LogLevel:         getEnvDefault("LOG_LEVEL", "info"),
		LogFormat:        getEnvDefault("LOG_FORMAT", "json"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		Model:            getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		TTSModel:         getEnvDefault("OPENAI_TTS_MODEL", "tts-1"),
		TTSVoice:         getEnvDefault("OPENAI_TTS_VOICE", "alloy"),
		STTModel:         getEnvDefault("OPENAI_STT_MODEL", "whisper-1"),
		ElevenAPIKey:     os.Getenv("ELEVEN_API_KEY"),
		ElevenVoiceID:    os.Getenv("ELEVEN_VOICE_ID"),
		ElevenModel:      getEnvDefault("ELEVEN_MODEL_ID", "eleven_multilingual_v2"),
		ElevenBaseURL:    getEnvDefault("ELEVEN_BASE_URL", "https://api.elevenlabs.io"),
		AudDAPIToken:     os.Getenv("AUDD_API_TOKEN"),
		AudDBaseURL:      getEnvDefault("AUDD_BASE_URL", "https://api.audd.io"),
		YouTubeAPIKey:    os.Getenv("YOUTUBE_API_KEY"),
		YouTubeBaseURL:   getEnvDefault("YOUTUBE_BASE_URL", "https://www.googleapis.com/youtube/v3"),
		MediaDownloadURL: os.Getenv("MEDIA_DOWNLOAD_URL"),
		MediaDownloadKey: os.Getenv("MEDIA_DOWNLOAD_KEY"),
		MaxUploadBytes:   getEnvInt64Default("MAX_UPLOAD_BYTES", 10<<20),
		RateLimitWindow:  getEnvDurationDefault("RATE_LIMIT_WINDOW", 15*time.Minute),
		RateLimitMax:     int(getEnvInt64Default("RATE_LIMIT_MAX", 100)),
		AdminToken:       os.Getenv("ADMIN_TOKEN"),
		TrustProxy:       getEnvBoolDefault("TRUST_PROXY", false),
		RedisURL:         os.Getenv("REDIS_URL"),
		CacheTTL:         getEnvDurationDefault("CACHE_TTL", 10*time.Minute),
	}
	if cfg.OpenAIAPIKey == "" {
		log.Println("warning: OPENAI_API_KEY is not set; chat will answer with fallback replies")
	}
	if cfg.AdminToken == "" {
		log.Println("warning: ADMIN_TOKEN is not set; /admin/status is disabled")
	}
	return cfg
}

// Capabilities reports which remote capabilities have enough configuration to be called.
func (c Config) Capabilities() map[string]bool {
	return map[string]bool{
		"chat":          c.OpenAIAPIKey != "",
		"speech":        (c.ElevenAPIKey != "" && c.ElevenVoiceID != "") || c.OpenAIAPIKey != "",
		"transcription": c.OpenAIAPIKey != "",
		"recognition":   c.AudDAPIToken != "",
		"search":        c.YouTubeAPIKey != "",
		"download":      c.MediaDownloadURL != "",
	}
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvListDefault(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			s := strings.TrimSpace(p)
			if s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

func getEnvInt64Default(key string, def int64) int64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
		log.Printf("warning: %s=%q is not a positive integer, using %d", key, v, def)
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("warning: %s=%q is not a boolean, using %t", key, v, def)
	}
	return def
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		// bare numbers are milliseconds
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
		log.Printf("warning: %s=%q is not a duration, using %s", key, v, def)
	}
	return def
}
