// Package identity holds the fixed ownership declaration and the guard that
// answers origin questions before any other routing happens.
package identity

import (
	"regexp"
	"strings"
)

const (
	SystemName = "Aura"
	Creator    = "Aura Labs"

	// Statement is returned verbatim whenever Matches fires.
	Statement = "I am " + SystemName + ", created and exclusively owned by " + Creator + ". " +
		"Services such as OpenAI, ElevenLabs, AudD and YouTube are only tools I use; " +
		"none of them created or own me."
)

// Declaration is the structured form served by the identity endpoint and
// attached to identity responses.
type Declaration struct {
	System    string `json:"system"`
	Creator   string `json:"creator"`
	Owner     string `json:"owner"`
	Statement string `json:"statement"`
}

func Declare() Declaration {
	return Declaration{System: SystemName, Creator: Creator, Owner: Creator, Statement: Statement}
}

const thirdParties = `(?:openai|open ai|chatgpt|chat gpt|gpt(?:-?\d+o?)?|google|gemini|elevenlabs|eleven labs|audd|youtube|microsoft|meta|anthropic|cobalt)`

const originVerbs = `(?:created|create|made|make|built|build|owns|own|developed|develop|programmed|program|designed|design|trained|train|invented|coded|wrote|write)`

const roleNouns = `(?:creator|creators|owner|owners|maker|makers|developer|developers|author|father|parent company|company|boss|programmer)`

// originNouns only name who built the system; "your company" or "your boss"
// appear in ordinary requests.
const originNouns = `(?:creator|creators|owner|owners|maker|makers|developer|developers|programmer)`

// rules are evaluated in order; the first match wins.
var rules = []*regexp.Regexp{
	regexp.MustCompile(`\bwho\s+(?:\w+\s+)?` + originVerbs + `\s+(?:you|u)\b`),
	regexp.MustCompile(`\bwho(?:'s|\s+is|\s+are|\s+was)\s+(?:your|ur)\s+` + roleNouns + `\b`),
	regexp.MustCompile(`\bwho\s+do\s+(?:you|u)\s+(?:belong\s+to|work\s+for)\b`),
	regexp.MustCompile(`\bwho\s+are\s+(?:you|u)\b`),
	regexp.MustCompile(`\b(?:is|was|are)\s+` + thirdParties + `\s+(?:your|ur)\s+` + roleNouns + `\b`),
	regexp.MustCompile(`\b(?:did|does|do)\s+` + thirdParties + `\s+` + originVerbs + `\s+(?:you|u)\b`),
	regexp.MustCompile(`\bare\s+(?:you|u)\s+(?:` + thirdParties + `|(?:made|built|owned|created|developed)\s+by)\b`),
	regexp.MustCompile(`\b(?:made|built|owned|created|developed)\s+by\s+` + thirdParties + `\b.*\b(?:you|u)\b|\b(?:you|u)\b.*\b(?:made|built|owned|created|developed)\s+by\s+` + thirdParties + `\b`),
	regexp.MustCompile(`\b(?:what(?:'s|\s+is|\s+was)|tell\s+me\s+(?:about|more\s+about)|who\s+are)\s+(?:the\s+name\s+of\s+)?(?:your|ur)\s+` + originNouns + `\b`),
}

// Matches reports whether text asks about the system's origin or ownership.
func Matches(text string) bool {
	m := strings.ToLower(strings.TrimSpace(text))
	if m == "" {
		return false
	}
	for _, re := range rules {
		if re.MatchString(m) {
			return true
		}
	}
	return false
}
