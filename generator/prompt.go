package generator

import (
	"sort"
	"strings"
)

// defaultNegativeTerms are always enforced on every generation regardless of
// user input. This is the bullet-proof invariant: callers cannot disable them.
var defaultNegativeTerms = []string{
	"duplicate",
	"text",
	"caption",
	"speech bubble",
	"watermark",
	"logo",
}

// defaultPositiveHint keeps subjects on clean backdrops across presets.
const defaultPositiveHint = "blank background, solid background, studio backdrop, uncluttered"

// splitTerms flattens comma-separated term lists into clean individual terms.
// Preset documents in the wild mix single terms and comma-joined strings.
func splitTerms(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if term := strings.TrimSpace(part); term != "" {
				out = append(out, term)
			}
		}
	}
	return out
}

// ComposePrompt assembles the final positive prompt from the user's text,
// the preset's positive terms and the default positive hint.
func ComposePrompt(userPrompt string, presetPositive []string) string {
	terms := splitTerms(presetPositive)
	terms = append(terms, defaultPositiveHint)

	prompt := strings.TrimSpace(userPrompt)
	if prompt == "" {
		return strings.Join(terms, ", ")
	}
	return prompt + ", " + strings.Join(terms, ", ")
}

// ComposeNegative assembles the enforced negative prompt: the union of the
// preset's negative terms, the caller's extra negatives and the built-in
// default terms, deduplicated and sorted for stable output.
//
// Preset and default terms are always present in the result; there is no way
// for a caller to remove them.
func ComposeNegative(userNegative string, presetNegative []string) string {
	seen := make(map[string]struct{})

	add := func(terms []string) {
		for _, term := range terms {
			seen[term] = struct{}{}
		}
	}
	add(splitTerms(presetNegative))
	add(splitTerms([]string{userNegative}))
	add(defaultNegativeTerms)

	terms := make([]string, 0, len(seen))
	for term := range seen {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return strings.Join(terms, ", ")
}
