package util

import "regexp"

// Mentions are stored inline in comment bodies as @[Display Name](user-id).
var mentionRegex = regexp.MustCompile(`@\[([^\]]+)\]\(([^)\s]+)\)`)

type Mention struct {
	Display string
	UserID  string
}

// ExtractMentions returns all mentions in text in order of appearance.
func ExtractMentions(text string) []Mention {
	matches := mentionRegex.FindAllStringSubmatch(text, -1)
	mentions := make([]Mention, 0, len(matches))
	for _, m := range matches {
		mentions = append(mentions, Mention{Display: m[1], UserID: m[2]})
	}
	return mentions
}

// MentionedUserIDs returns the distinct user ids mentioned in text.
func MentionedUserIDs(text string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range ExtractMentions(text) {
		if seen[m.UserID] {
			continue
		}
		seen[m.UserID] = true
		ids = append(ids, m.UserID)
	}
	return ids
}

// RenderMentionsPlain replaces mention markup with "@Display Name".
func RenderMentionsPlain(text string) string {
	return mentionRegex.ReplaceAllString(text, "@$1")
}
