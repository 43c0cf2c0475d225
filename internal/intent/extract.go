package intent

import (
	"regexp"
	"strings"
)

type Format string

const (
	MP3 Format = "MP3"
	MP4 Format = "MP4"
)

// DownloadRequest carries whatever the extractors could pull out of a download message.
type DownloadRequest struct {
	URL    string `json:"url,omitempty"`
	Query  string `json:"query,omitempty"`
	Format Format `json:"format"`
}

var (
	urlRe     = regexp.MustCompile(`(?i)https?://[^\s"'<>]+`)
	videoRe   = regexp.MustCompile(`\b(?:video|videos|mp4)\b`)
	audioOnly = regexp.MustCompile(`\b(?:mp3|audio)\b`)

	leadingFillerRe = regexp.MustCompile(`(?i)^(?:(?:hey|hi|hello|please|pls|kindly|can\s+you|could\s+you|would\s+you|will\s+you|i\s+want\s+to|i\s+wanna|i'd\s+like\s+to|i\s+would\s+like\s+to|help\s+me)\s+)+`)
	formatPhraseRe  = regexp.MustCompile(`(?i)\b(?:as|in|to|into)\s+(?:an?\s+)?(?:mp3|mp4|audio|video)(?:\s+(?:format|file))?\b`)
	nounPhraseRe    = regexp.MustCompile(`(?i)\b(?:a|an|the|this|that|some)\s+(?:song|songs|track|tracks|music|audio|video|mp3|mp4)\b`)
	markerRe        = regexp.MustCompile(`(?i)\b(?:called|named|titled)\b`)
	quoteRe         = regexp.MustCompile("[\"`“”«»]")
	edgeMarkerRe    = regexp.MustCompile(`(?i)^(?:(?:by|from|for\s+me|me|of)\s+)+|(?:\s+(?:by|from|for\s+me|of))+$`)
	spaceRe         = regexp.MustCompile(`\s+`)
)

var stopWords = map[string]struct{}{
	"download": {}, "downloads": {}, "get": {}, "fetch": {}, "save": {}, "find": {}, "grab": {}, "convert": {},
	"song": {}, "songs": {}, "music": {}, "track": {}, "tracks": {}, "audio": {}, "video": {},
	"mp3": {}, "mp4": {}, "youtube": {}, "please": {},
}

// ExtractURL returns the first http(s) link in text, without trailing punctuation.
func ExtractURL(text string) (string, bool) {
	u := urlRe.FindString(text)
	u = strings.TrimRight(u, ".,;:!?)]}")
	if u == "" {
		return "", false
	}
	return u, true
}

// ExtractFormat picks MP4 only for an explicit video request without an audio
// token; everything else is audio.
func ExtractFormat(text string) Format {
	m := normalize(text)
	if videoRe.MatchString(m) && !audioOnly.MatchString(m) {
		return MP4
	}
	return MP3
}

// ExtractSongQuery strips download vocabulary from text and returns what is
// left as a search query. It is best effort: odd phrasing can yield a
// degenerate query, and an empty result is reported as false.
func ExtractSongQuery(text string) (string, bool) {
	q := urlRe.ReplaceAllString(text, " ")
	q = quoteRe.ReplaceAllString(q, " ")
	q = spaceRe.ReplaceAllString(strings.TrimSpace(q), " ")

	// Matched spans are blanked in place so the remaining words keep their case.
	for _, re := range []*regexp.Regexp{leadingFillerRe, formatPhraseRe, nounPhraseRe, markerRe} {
		q = blank(q, re)
	}

	words := strings.Fields(q)
	kept := words[:0]
	for _, w := range words {
		w = strings.Trim(w, "'‘’")
		key := strings.ToLower(strings.Trim(w, ".,;:!?()[]"))
		if _, stop := stopWords[key]; stop || key == "" {
			continue
		}
		kept = append(kept, w)
	}
	q = strings.Join(kept, " ")
	q = blank(q, edgeMarkerRe)
	q = strings.Trim(strings.TrimSpace(q), ".,;:!?-")
	q = strings.TrimSpace(q)
	if q == "" {
		return "", false
	}
	return q, true
}

// Extract runs the extractors relevant to a download intent.
func Extract(i Intent, text string) (DownloadRequest, bool) {
	req := DownloadRequest{Format: ExtractFormat(text)}
	switch i {
	case VideoDownload, URLDownload:
		u, ok := ExtractURL(text)
		if !ok {
			return req, false
		}
		req.URL = u
		return req, true
	case SongDownload:
		q, ok := ExtractSongQuery(text)
		if !ok {
			return req, false
		}
		req.Query = q
		return req, true
	default:
		return req, false
	}
}

func blank(s string, re *regexp.Regexp) string {
	locs := re.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}
	var b strings.Builder
	prev := 0
	for _, loc := range locs {
		b.WriteString(s[prev:loc[0]])
		b.WriteByte(' ')
		prev = loc[1]
	}
	b.WriteString(s[prev:])
	return spaceRe.ReplaceAllString(strings.TrimSpace(b.String()), " ")
}
