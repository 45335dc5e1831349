package rtm

import (
	"regexp"
	"strings"
)

// matchThreshold is the minimum Jaccard similarity for a trace link.
const matchThreshold = 0.15

var wordPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

// stopWords are excluded from keyword sets.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "will": true,
	"with": true, "this": true, "that": true, "from": true, "have": true,
	"must": true, "should": true, "shall": true, "when": true, "then": true,
	"given": true, "user": true, "system": true, "feature": true,
	"test": true, "tests": true, "spec": true, "src": true, "lib": true,
	"app": true, "docs": true, "md": true,
}

// keywords derives the keyword set of an item from its name and path.
// Short tokens and stop words are dropped; camelCase, snake_case and path
// separators all split.
func keywords(item Item) map[string]bool {
	out := make(map[string]bool)
	for _, token := range wordPattern.FindAllString(splitCamel(item.Name+" "+item.Path), -1) {
		token = strings.ToLower(token)
		if len(token) < 3 || stopWords[token] {
			continue
		}
		out[token] = true
	}
	return out
}

// splitCamel inserts spaces at lower-to-upper transitions.
func splitCamel(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := rune(s[i-1])
			if prev >= 'a' && prev <= 'z' {
				b.WriteRune(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// jaccard computes |a∩b| / |a∪b|, zero for two empty sets.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// matches returns the ids of candidate items whose keyword similarity to
// the requirement meets the threshold.
func matches(req map[string]bool, candidates []Item, candidateKeywords []map[string]bool) []string {
	var out []string
	for i, c := range candidates {
		if jaccard(req, candidateKeywords[i]) >= matchThreshold {
			out = append(out, c.ID)
		}
	}
	return out
}
