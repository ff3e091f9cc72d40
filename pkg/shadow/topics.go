package shadow

import (
	"regexp"
	"strings"
)

// headerPattern matches markdown headers (# Header, ## Header, ...),
// grounded on src/production/topic_extraction.py's extract_topics.
var headerPattern = regexp.MustCompile(`(?m)^#+\s+(.+)$`)

// ExtractTopics pulls every markdown header out of content, normalized to
// lowercase and trimmed, matching extract_topics.py exactly.
func ExtractTopics(markdown string) []string {
	matches := headerPattern.FindAllStringSubmatch(markdown, -1)
	topics := make([]string, 0, len(matches))
	for _, m := range matches {
		t := strings.ToLower(strings.TrimSpace(m[1]))
		if t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}
