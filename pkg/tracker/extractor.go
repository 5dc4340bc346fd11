package tracker

import (
	"regexp"
	"strings"
)

// FeatureExtractor pulls user-stated values and concerns out of free text.
// The patterns are a replaceable strategy, not a core invariant.
type FeatureExtractor interface {
	// Extract returns (values, concerns). Either may be empty; a no-match
	// is silent, never an error.
	Extract(text string) (values []string, concerns []string)
}

// RegexExtractor matches phrase-prefix patterns like "I feel that X matters"
// or "I'm worried about X".
type RegexExtractor struct {
	valuePatterns   []*regexp.Regexp
	concernPatterns []*regexp.Regexp
}

func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{
		valuePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)i feel (?:that )?(.+?) matters`),
			regexp.MustCompile(`(?i)i think (?:that )?(.+?) (?:is|are) important`),
			regexp.MustCompile(`(?i)what matters (?:most )?to me is (.+?)(?:\.|,|$)`),
			regexp.MustCompile(`(?i)i really care about (.+?)(?:\.|,|$)`),
			regexp.MustCompile(`(?i)(.+?) means a lot to me`),
		},
		concernPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)i(?:'m| am) worried (?:about )?(.+?)(?:\.|,|$)`),
			regexp.MustCompile(`(?i)i(?:'m| am) afraid (?:of |that )?(.+?)(?:\.|,|$)`),
			regexp.MustCompile(`(?i)i(?:'m| am) anxious about (.+?)(?:\.|,|$)`),
			regexp.MustCompile(`(?i)i keep thinking about (.+?)(?:\.|,|$)`),
			regexp.MustCompile(`(?i)it scares me (?:that )?(.+?)(?:\.|,|$)`),
		},
	}
}

func (e *RegexExtractor) Extract(text string) ([]string, []string) {
	return matchAll(e.valuePatterns, text), matchAll(e.concernPatterns, text)
}

func matchAll(patterns []*regexp.Regexp, text string) []string {
	var out []string
	for _, p := range patterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			captured := normalizePhrase(m[1])
			if captured != "" {
				out = append(out, captured)
			}
		}
	}
	return out
}

// normalizePhrase trims trailing punctuation and caps phrase length so a
// runaway capture does not dump a whole paragraph into the state.
func normalizePhrase(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, ".,;:!?\"'")
	if len(s) > 80 {
		s = s[:80]
	}
	return strings.TrimSpace(s)
}
