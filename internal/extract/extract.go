// Package extract pulls mentions and hashtags out of free-text comments.
package extract

import (
	"regexp"
	"strings"
)

var (
	mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_]+)`)
	hashtagPattern = regexp.MustCompile(`#([A-Za-z0-9_]+)`)
)

// Mentions returns the lowercase @mention handles found in text, in
// first-seen order, duplicates included. Empty text yields an empty list.
func Mentions(text string) []string {
	return tokens(mentionPattern, text)
}

// Hashtags returns the lowercase #hashtag tokens found in text, in
// first-seen order, duplicates included.
func Hashtags(text string) []string {
	return tokens(hashtagPattern, text)
}

func tokens(p *regexp.Regexp, text string) []string {
	out := []string{}
	for _, m := range p.FindAllStringSubmatch(text, -1) {
		out = append(out, strings.ToLower(m[1]))
	}
	return out
}

// Unique de-duplicates a token list, preserving first-seen order.
func Unique(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := []string{}
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
