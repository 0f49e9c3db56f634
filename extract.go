package plansmith

import (
	"regexp"
	"strings"
)

// codeBlockRegex matches markdown code fences, optionally tagged as json.
// Oracles frequently wrap plans in fences even when told not to.
var codeBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")

// hasPlanMarker reports whether text plausibly contains a task list. The
// marker check keeps the scanner from returning unrelated JSON objects the
// oracle may have embedded in its prose.
func hasPlanMarker(text string) bool {
	return strings.Contains(text, `"tasks"`) || strings.Contains(text, `"steps"`)
}

// extractPlanJSON returns the substring of the oracle response most likely
// to be the intended JSON plan, or empty when none is found.
//
// Fenced blocks win: the first ```json block containing a "tasks"/"steps"
// marker is returned as-is. Otherwise the full text is scanned for
// brace-balanced objects and the first marked candidate wins. Braces inside
// string literals are ignored by tracking string and escape state; naive
// depth counting corrupts span detection on values like "{\"nested\": 1}".
func extractPlanJSON(text string) string {
	for _, match := range codeBlockRegex.FindAllStringSubmatch(text, -1) {
		content := strings.TrimSpace(match[1])
		if hasPlanMarker(content) {
			return content
		}
	}

	for _, candidate := range scanObjects(text) {
		if hasPlanMarker(candidate) {
			return candidate
		}
	}

	return ""
}

// scanObjects collects every top-level brace-balanced object span in text,
// left to right.
func scanObjects(text string) []string {
	var candidates []string

	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			// Quotes outside any object still toggle string state so that
			// braces in surrounding prose snippets are skipped consistently.
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue // stray closing brace in prose
			}
			depth--
			if depth == 0 && start >= 0 {
				candidates = append(candidates, text[start:i+1])
				start = -1
			}
		}
	}

	return candidates
}
