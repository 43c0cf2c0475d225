package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"aura-assistant-backend/internal/compose"
	"aura-assistant-backend/internal/config"
	"aura-assistant-backend/internal/identity"
	"aura-assistant-backend/internal/intent"
	"aura-assistant-backend/internal/store"
	"aura-assistant-backend/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type envelope struct {
	Success   bool             `json:"success"`
	System    string           `json:"system"`
	Creator   string           `json:"creator"`
	RequestID string           `json:"requestId"`
	Data      json.RawMessage  `json:"data"`
	Error     *types.ErrorInfo `json:"error"`
}

func testConfig() config.Config {
	return config.Config{
		Port:            "0",
		AllowedOrigins:  []string{"*"},
		MaxUploadBytes:  1 << 20,
		RateLimitWindow: time.Minute,
		RateLimitMax:    1000,
		AdminToken:      "admin-secret",
		CacheTTL:        time.Minute,
	}
}

func newTestServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()
	s, err := NewServer(cfg, zap.NewNop(), prometheus.NewRegistry(), store.NewMemoryCache(100))
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func postJSON(t *testing.T, s *Server, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(t, s, req)
}

func multipartRequest(t *testing.T, path, contentType string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="clip.bin"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, env envelope) types.ResponseBody {
	t.Helper()
	var body types.ResponseBody
	require.NoError(t, json.Unmarshal(env.Data, &body))
	return body
}

func TestChatIdentity(t *testing.T) {
	s := newTestServer(t, testConfig())

	w, env := postJSON(t, s, "/chat", `{"text":"Who made you? Also download this song"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, identity.SystemName, env.System)
	assert.Equal(t, identity.Creator, env.Creator)
	assert.NotEmpty(t, env.RequestID)
	assert.Equal(t, env.RequestID, w.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, w.Header().Get("X-Session-Id"))

	body := decodeBody(t, env)
	assert.Equal(t, "identity", body.Type)
	assert.Equal(t, identity.Statement, body.Message)
	assert.Equal(t, w.Header().Get("X-Session-Id"), body.SessionID)
}

func TestChatEmptyTextIsBadRequest(t *testing.T) {
	s := newTestServer(t, testConfig())

	w, env := postJSON(t, s, "/chat", `{"text":"   ","wantsVoice":true}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, codeMessageRequired, env.Error.Code)
	assert.Equal(t, compose.MessageRequired, env.Error.Message)
	body := decodeBody(t, env)
	assert.Equal(t, types.TypeError, body.Type)
	assert.Nil(t, body.Voice)
}

func TestChatInvalidJSON(t *testing.T) {
	s := newTestServer(t, testConfig())
	w, env := postJSON(t, s, "/chat", `{"text":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, codeInvalidJSON, env.Error.Code)
}

func TestChatKeepsRequestedSession(t *testing.T) {
	s := newTestServer(t, testConfig())

	w, env := postJSON(t, s, "/chat", `{"text":"help","sessionId":"session-42"}`)

	assert.Equal(t, "session-42", w.Header().Get("X-Session-Id"))
	assert.Equal(t, "session-42", decodeBody(t, env).SessionID)
	assert.Contains(t, w.Header().Get("Set-Cookie"), CookieName+"=session-42")
}

func TestChatFallsBackWhenChatUnconfigured(t *testing.T) {
	s := newTestServer(t, testConfig())

	w, env := postJSON(t, s, "/chat", `{"text":"tell me a joke"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	body := decodeBody(t, env)
	assert.Equal(t, "general", body.Type)
	cat, err := compose.DefaultCatalog()
	require.NoError(t, err)
	assert.Contains(t, cat.Fallbacks, body.Message)
}

func TestChatSongDownloadPlan(t *testing.T) {
	s := newTestServer(t, testConfig())

	_, env := postJSON(t, s, "/chat", `{"text":"Download Shape of You by Ed Sheeran"}`)

	body := decodeBody(t, env)
	assert.Equal(t, "song_download", body.Type)
	require.NotNil(t, body.Download)
	assert.Equal(t, "Shape of You by Ed Sheeran", body.Download.Query)
	assert.Equal(t, compose.EndpointSongDownload, body.Download.Endpoint)
}

func TestChatBadAudio(t *testing.T) {
	s := newTestServer(t, testConfig())
	w, env := postJSON(t, s, "/chat", `{"audioBase64":"%%%not-base64"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, codeInvalidInput, env.Error.Code)
}

func TestChatInlineAudioMustBeMedia(t *testing.T) {
	s := newTestServer(t, testConfig())
	text := base64.StdEncoding.EncodeToString([]byte("just some plain text"))

	w, env := postJSON(t, s, "/chat", `{"audioBase64":"`+text+`","audioMimeType":"text/plain"}`)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Equal(t, codeUnsupportedMIME, env.Error.Code)

	w, env = postJSON(t, s, "/chat", `{"audioBase64":"`+text+`"}`)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code, "sniffed as text")
	assert.Equal(t, codeUnsupportedMIME, env.Error.Code)

	w, env = postJSON(t, s, "/chat", `{"audioBase64":"`+text+`","audioMimeType":"audio/ogg; codecs=opus"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, env)
	assert.Equal(t, string(intent.VoiceMessage), body.Type, "no transcriber configured")
}

func TestChatVoiceWithoutTranscriber(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := multipartRequest(t, "/chat/voice", "audio/webm", []byte("webm-bytes"), map[string]string{"sessionId": "v1"})
	w, env := do(t, s, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, env)
	assert.Equal(t, "voice_message", body.Type)
	assert.Equal(t, "v1", body.SessionID)
}

func TestChatVoiceTranscribed(t *testing.T) {
	openai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"what can you do"}`)
	}))
	defer openai.Close()

	cfg := testConfig()
	cfg.OpenAIAPIKey = "sk-test"
	cfg.OpenAIBaseURL = openai.URL + "/v1"
	cfg.STTModel = "whisper-1"
	s := newTestServer(t, cfg)

	w, env := do(t, s, multipartRequest(t, "/chat/voice", "audio/ogg", []byte("OggS"), nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, env)
	assert.Equal(t, "help", body.Type)
	assert.Equal(t, "what can you do", body.Transcript)
}

func TestRecognizeRejectsNonMedia(t *testing.T) {
	s := newTestServer(t, testConfig())

	w, env := do(t, s, multipartRequest(t, "/recognize", "text/plain", []byte("hello"), nil))

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Equal(t, codeUnsupportedMIME, env.Error.Code)
}

func TestRecognizeRejectsLargeUpload(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 1024
	s := newTestServer(t, cfg)

	w, env := do(t, s, multipartRequest(t, "/recognize", "audio/mpeg", bytes.Repeat([]byte("a"), 4096), nil))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, codeTooLarge, env.Error.Code)
}

func TestRecognizeRequiresFile(t *testing.T) {
	s := newTestServer(t, testConfig())
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/recognize", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w, _ := do(t, s, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecognizeNotConfigured(t *testing.T) {
	s := newTestServer(t, testConfig())

	w, env := do(t, s, multipartRequest(t, "/recognize", "audio/mpeg", []byte("ID3"), nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, codeNotConfigured, env.Error.Code)
	assert.Equal(t, "recognition is not configured", env.Error.Message)
}

func TestRecognizeMatch(t *testing.T) {
	audd := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"success","result":{"artist":"Daft Punk","title":"One More Time"}}`)
	}))
	defer audd.Close()

	cfg := testConfig()
	cfg.AudDAPIToken = "t"
	cfg.AudDBaseURL = audd.URL
	s := newTestServer(t, cfg)

	w, env := do(t, s, multipartRequest(t, "/recognize", "video/mp4", []byte("mp4-bytes"), nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var rec struct {
		Found bool `json:"found"`
		Song  struct {
			Title  string `json:"title"`
			Artist string `json:"artist"`
		} `json:"song"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.True(t, rec.Found)
	assert.Equal(t, "One More Time", rec.Song.Title)
}

func TestDownloadAudio(t *testing.T) {
	cobalt := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"redirect","url":"https://cdn.example/a.mp3","filename":"a.mp3"}`)
	}))
	defer cobalt.Close()
	cfg := testConfig()
	cfg.MediaDownloadURL = cobalt.URL
	s := newTestServer(t, cfg)

	w, env := postJSON(t, s, "/download/audio", `{"url":"https://youtu.be/abc"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var link struct {
		URL    string `json:"url"`
		Format string `json:"format"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &link))
	assert.Equal(t, "https://cdn.example/a.mp3", link.URL)
	assert.Equal(t, "MP3", link.Format)
}

func TestDownloadValidation(t *testing.T) {
	s := newTestServer(t, testConfig())

	for _, body := range []string{`{"url":""}`, `{"url":"ftp://x/y"}`, `{"url":"not a url"}`} {
		w, env := postJSON(t, s, "/download/video", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, codeInvalidInput, env.Error.Code)
	}

	w, env := postJSON(t, s, "/download/video", `{"url":"https://youtu.be/abc"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, codeNotConfigured, env.Error.Code)
}

func TestDownloadUpstreamFailureIs502(t *testing.T) {
	cobalt := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `internal trace: db password wrong`)
	}))
	defer cobalt.Close()
	cfg := testConfig()
	cfg.MediaDownloadURL = cobalt.URL
	s := newTestServer(t, cfg)

	w, env := postJSON(t, s, "/download/audio", `{"url":"https://youtu.be/abc"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, codeUpstream, env.Error.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestDownloadSong(t *testing.T) {
	youtube := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"items":[
			{"id":{"videoId":"top"},"snippet":{"title":"Top Hit","channelTitle":"Artist"}},
			{"id":{"videoId":"second"},"snippet":{"title":"Cover","channelTitle":"Someone"}}]}`)
	}))
	defer youtube.Close()
	var downloaded string
	cobalt := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL          string `json:"url"`
			DownloadMode string `json:"downloadMode"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		downloaded = req.URL
		assert.Equal(t, "auto", req.DownloadMode)
		_, _ = io.WriteString(w, `{"status":"tunnel","url":"https://cdn.example/top.mp4"}`)
	}))
	defer cobalt.Close()

	cfg := testConfig()
	cfg.YouTubeAPIKey = "yt"
	cfg.YouTubeBaseURL = youtube.URL
	cfg.MediaDownloadURL = cobalt.URL
	s := newTestServer(t, cfg)

	w, env := postJSON(t, s, "/download/song", `{"query":"top hit","format":"mp4"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out SongDownload
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "top", out.Track.ID)
	assert.Equal(t, "https://www.youtube.com/watch?v=top", downloaded)
	assert.Equal(t, "https://cdn.example/top.mp4", out.Link.URL)
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, "second", out.Candidates[0].ID)
}

func TestDownloadSongNoResults(t *testing.T) {
	youtube := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"items":[]}`)
	}))
	defer youtube.Close()
	cfg := testConfig()
	cfg.YouTubeAPIKey = "yt"
	cfg.YouTubeBaseURL = youtube.URL
	cfg.MediaDownloadURL = "http://127.0.0.1:1"
	s := newTestServer(t, cfg)

	w, env := postJSON(t, s, "/download/song", `{"query":"nothing matches this"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, codeNotFound, env.Error.Code)
}

func TestDownloadSongValidation(t *testing.T) {
	s := newTestServer(t, testConfig())

	w, _ := postJSON(t, s, "/download/song", `{"query":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := postJSON(t, s, "/download/song", `{"query":"x","format":"flac"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Message, "MP3 or MP4")
}

func TestSearchValidationAndDisabled(t *testing.T) {
	s := newTestServer(t, testConfig())

	w, _ := postJSON(t, s, "/search", `{"query":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := postJSON(t, s, "/search", `{"query":"lofi","limit":3}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "search is not configured", env.Error.Message)
}

func TestSpeak(t *testing.T) {
	eleven := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/voice-1", r.URL.Path)
		_, _ = w.Write([]byte("mp3"))
	}))
	defer eleven.Close()
	cfg := testConfig()
	cfg.ElevenAPIKey = "xi"
	cfg.ElevenVoiceID = "voice-1"
	cfg.ElevenBaseURL = eleven.URL
	s := newTestServer(t, cfg)

	w, _ := postJSON(t, s, "/speak", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := postJSON(t, s, "/speak", `{"text":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var audio struct {
		AudioBase64 string `json:"audioBase64"`
		MimeType    string `json:"mimeType"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &audio))
	assert.Equal(t, "bXAz", audio.AudioBase64)
	assert.Equal(t, "audio/mpeg", audio.MimeType)
}

func TestHealth(t *testing.T) {
	cfg := testConfig()
	cfg.YouTubeAPIKey = "yt"
	s := newTestServer(t, cfg)

	w, env := do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var h healthResponse
	require.NoError(t, json.Unmarshal(env.Data, &h))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, map[string]bool{
		"chat": false, "speech": false, "transcription": false,
		"recognition": false, "search": true, "download": false,
	}, h.Capabilities)
}

func TestIdentityEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig())
	_, env := do(t, s, httptest.NewRequest(http.MethodGet, "/identity", nil))

	var decl identity.Declaration
	require.NoError(t, json.Unmarshal(env.Data, &decl))
	assert.Equal(t, identity.Declare(), decl)
}

func TestAdminStatus(t *testing.T) {
	s := newTestServer(t, testConfig())
	require.NoError(t, s.cache.Set(context.Background(), "search:5:x", []byte("[]"), time.Minute))

	req := httptest.NewRequest(http.MethodPost, "/admin/status", nil)
	w, env := do(t, s, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, codeUnauthorized, env.Error.Code)

	req = httptest.NewRequest(http.MethodPost, "/admin/status", nil)
	req.Header.Set("X-Admin-Token", "wrong")
	w, _ = do(t, s, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/admin/status", nil)
	req.Header.Set("X-Admin-Token", "admin-secret")
	w, env = do(t, s, req)
	require.Equal(t, http.StatusOK, w.Code)
	var st adminStatus
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, "memory", st.Cache.Backend)
	assert.True(t, st.Cache.Healthy)
	assert.Equal(t, 1, st.Cache.Entries)
	assert.Len(t, st.Capabilities, 6)
	for _, c := range st.Capabilities {
		assert.Equal(t, "closed", c.Breaker)
	}
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	cfg := testConfig()
	cfg.AdminToken = ""
	s := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/admin/status", nil)
	req.Header.Set("X-Admin-Token", "")
	w, _ := do(t, s, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig())
	postJSON(t, s, "/chat", `{"text":"help"}`)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `aura_http_requests_total{method="POST",path="/chat",status="200"} 1`)
	assert.Contains(t, w.Body.String(), `aura_intents_total{type="help"} 1`)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitMax = 2
	cfg.RateLimitWindow = time.Hour
	s := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		w, _ := do(t, s, httptest.NewRequest(http.MethodGet, "/identity", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w, env := do(t, s, httptest.NewRequest(http.MethodGet, "/identity", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, codeRateLimited, env.Error.Code)
	assert.Equal(t, "1800", w.Header().Get("Retry-After"), "one token per half hour")

	w, _ = do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code, "health is never limited")

	other := httptest.NewRequest(http.MethodGet, "/identity", nil)
	other.RemoteAddr = "198.51.100.7:4000"
	w, _ = do(t, s, other)
	assert.Equal(t, http.StatusOK, w.Code, "limits are per client")
}

func TestForwardedForIgnoredUnlessProxyTrusted(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitMax = 1
	cfg.RateLimitWindow = time.Hour

	s := newTestServer(t, cfg)
	codes := make([]int, 0, 3)
	for _, ip := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		r := httptest.NewRequest(http.MethodGet, "/identity", nil)
		r.Header.Set("X-Forwarded-For", ip)
		w, _ := do(t, s, r)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)

	cfg.TrustProxy = true
	s = newTestServer(t, cfg)
	for _, ip := range []string{"203.0.113.1", "203.0.113.2"} {
		r := httptest.NewRequest(http.MethodGet, "/identity", nil)
		r.Header.Set("X-Forwarded-For", ip)
		w, _ := do(t, s, r)
		assert.Equal(t, http.StatusOK, w.Code, ip)
	}
}

func TestRateLimiterWait(t *testing.T) {
	l := newRateLimiter(time.Minute, 2)
	now := time.Now()

	ok, _ := l.allow("a", now)
	assert.True(t, ok)
	ok, _ = l.allow("a", now)
	assert.True(t, ok)
	ok, wait := l.allow("a", now)
	assert.False(t, ok)
	assert.Equal(t, 30*time.Second, wait)

	ok, _ = l.allow("a", now.Add(30*time.Second))
	assert.True(t, ok, "a rejected request does not consume a token")
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, "1", retryAfter(0))
	assert.Equal(t, "1", retryAfter(200*time.Millisecond))
	assert.Equal(t, "9", retryAfter(9*time.Second))
	assert.Equal(t, "10", retryAfter(9*time.Second+time.Millisecond))
}

func TestRateLimiterSweep(t *testing.T) {
	l := newRateLimiter(time.Minute, 10)
	now := time.Now()
	ok, _ := l.allow("a", now.Add(-2*time.Minute))
	assert.True(t, ok)
	ok, _ = l.allow("b", now)
	assert.True(t, ok)

	assert.Equal(t, 1, l.Sweep(now))
	assert.Len(t, l.visitors, 1)
}

func TestSecurityHeadersAndNotFound(t *testing.T) {
	s := newTestServer(t, testConfig())

	w, env := do(t, s, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, codeNotFound, env.Error.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestRequestIDIsPropagated(t *testing.T) {
	s := newTestServer(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/identity", nil)
	req.Header.Set("X-Request-ID", "req-123")

	w, env := do(t, s, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-123", env.RequestID)
}

func TestAcceptedMedia(t *testing.T) {
	assert.True(t, acceptedMedia("audio/mpeg"))
	assert.True(t, acceptedMedia("video/mp4"))
	assert.True(t, acceptedMedia("audio/webm; codecs=opus"))
	assert.False(t, acceptedMedia("text/plain; charset=utf-8"))
	assert.False(t, acceptedMedia("application/octet-stream"))
	assert.False(t, acceptedMedia(""))
}
