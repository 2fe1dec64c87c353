package services

import "regexp"

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// ExtractMentions returns the distinct usernames tagged with @name in text,
// in order of first appearance. Matching is case-sensitive.
func ExtractMentions(text string) []string {
	seen := make(map[string]struct{})
	tags := []string{}
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		tags = append(tags, m[1])
	}
	return tags
}
