package intent

import (
	"regexp"
	"strings"
)

type Intent string

const (
	Identity         Intent = "identity"
	SongDownload     Intent = "song_download"
	VideoDownload    Intent = "video_download"
	URLDownload      Intent = "url_download"
	MusicRecognition Intent = "music_recognition"
	VoiceMessage     Intent = "voice_message"
	MusicGeneration  Intent = "music_generation"
	Help             Intent = "help"
	General          Intent = "general"
)

// VoicePlaceholder stands in for text when a voice note could not be transcribed.
const VoicePlaceholder = "[voice message]"

// Rule pairs a predicate over lower-cased text with the intent it selects.
// Download rules resolve to a concrete download intent via Resolve.
type Rule struct {
	Name    string
	Intent  Intent
	Matches func(text string) bool
}

var (
	actionVerbRe  = regexp.MustCompile(`\b(?:download|convert|get|save|fetch|find|grab|rip)\b`)
	downloadRe    = regexp.MustCompile(`\bdownload(?:s|ing)?\b`)
	mediaNounRe   = regexp.MustCompile(`\b(?:youtube|videos?|audio|mp3|mp4|songs?|music|tracks?)\b`)
	youtubeHostRe = regexp.MustCompile(`(?:youtube\.com|youtu\.be)`)
	anyURLRe      = regexp.MustCompile(`https?://\S+`)

	recognitionRe = regexp.MustCompile(`\bshazam\b` +
		`|\b(?:identify|recogni[sz]e|name)\s+(?:this|that|the)?\s*(?:song|track|tune|music|audio)\b` +
		`|\bwhat(?:'s|\s+is)\s+(?:this|that)\s+(?:song|track|tune)\b` +
		`|\bwhat\s+(?:song|track|tune)\s+is\s+(?:this|that|playing)\b` +
		`|\bupload\s+(?:an?\s+|the\s+|my\s+)?(?:audio|recording|clip|voice note)\b` +
		`|\brecord\s+(?:an?\s+|some\s+|the\s+)?audio\b`)

	generationVerbRe = regexp.MustCompile(`\b(?:create|make|generate|compose|produce)\b`)
	generationNounRe = regexp.MustCompile(`\b(?:music|songs?|tracks?|beats?|melody|tune)\b`)

	helpRe = regexp.MustCompile(`\bhelp\b|\bguide\b|\bsupport\b|what\s+can\s+(?:you|u)\s+do` +
		`|how\s+(?:does|do)\s+(?:this|it|you)\s+work|\bcommands\b|\bfeatures\b|\bcapabilities\b`)
)

var rules = []Rule{
	{
		Name:   "download",
		Intent: SongDownload,
		Matches: func(m string) bool {
			return downloadRe.MatchString(m) ||
				(actionVerbRe.MatchString(m) && mediaNounRe.MatchString(m)) ||
				youtubeHostRe.MatchString(m) ||
				(actionVerbRe.MatchString(m) && anyURLRe.MatchString(m))
		},
	},
	{
		Name:    "music_recognition",
		Intent:  MusicRecognition,
		Matches: recognitionRe.MatchString,
	},
	{
		Name:   "music_generation",
		Intent: MusicGeneration,
		Matches: func(m string) bool {
			return generationVerbRe.MatchString(m) && generationNounRe.MatchString(m)
		},
	},
	{
		Name:    "help",
		Intent:  Help,
		Matches: helpRe.MatchString,
	},
}

// Rules returns the ordered classification rules. General is implied when none match.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Classify maps text to exactly one intent. Download matches are refined by
// the kind of link present: YouTube links are video downloads, other links
// are direct URL downloads, and no link means a song search.
func Classify(text string) Intent {
	m := normalize(text)
	if m == "" {
		return General
	}
	for _, r := range rules {
		if !r.Matches(m) {
			continue
		}
		if r.Intent == SongDownload {
			return resolveDownload(m)
		}
		return r.Intent
	}
	return General
}

func resolveDownload(m string) Intent {
	u, ok := ExtractURL(m)
	if !ok {
		return SongDownload
	}
	if youtubeHostRe.MatchString(u) {
		return VideoDownload
	}
	return URLDownload
}

// IsDownload reports whether i is one of the download intents.
func IsDownload(i Intent) bool {
	return i == SongDownload || i == VideoDownload || i == URLDownload
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
