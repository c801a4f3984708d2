package sommelier

import (
	"regexp"
	"strings"
)

// Sentinel is the in-band command the model returns instead of a question
// when it has gathered enough information. It must never reach the user.
const Sentinel = "[PROCEED_TO_CONSULTATION]"

// segmentDelimiter separates the three consultation recommendations.
const segmentDelimiter = "---"

var (
	// moodTagPattern matches the embedded image-description tag.
	moodTagPattern = regexp.MustCompile(`\[описание по настроению: (.*?)\]`)

	// headingPattern matches a recommendation heading line: ### Title (Author).
	headingPattern = regexp.MustCompile(`(?m)^###\s*(.+?)\s*\(([^()]+)\)\s*$`)
)

// HasSentinel reports whether the reply contains the consultation sentinel.
func HasSentinel(text string) bool {
	return strings.Contains(text, Sentinel)
}

// ExtractMoodTag pulls the image-description payload out of a consultation
// reply and returns it alongside the reply with the tag stripped. The prompt
// is empty when no tag is present.
func ExtractMoodTag(text string) (prompt, cleaned string) {
	match := moodTagPattern.FindStringSubmatch(text)
	if match == nil {
		return "", strings.TrimSpace(text)
	}
	return match[1], strings.TrimSpace(moodTagPattern.ReplaceAllString(text, ""))
}

// ParseRecommendations splits a consultation reply on the segment delimiter
// and extracts one title/author pair per heading, in order. Malformed
// segments are skipped; a reply with no headings yields an empty set.
func ParseRecommendations(text string) []Recommendation {
	var recs []Recommendation
	for _, segment := range strings.Split(text, segmentDelimiter) {
		match := headingPattern.FindStringSubmatch(segment)
		if match == nil {
			continue
		}
		recs = append(recs, Recommendation{
			Title:  strings.TrimSpace(match[1]),
			Author: strings.TrimSpace(match[2]),
		})
	}
	return recs
}
