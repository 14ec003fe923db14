package genai

import "strings"

// ExtractJSONObject pulls the first JSON object out of completion output.
// Models routinely wrap JSON in markdown code fences or surround it with
// prose, so the text is scanned for the outermost brace pair after fence
// stripping. Returns the empty string when no object is found.
func ExtractJSONObject(text string) string {
	return extractDelimited(stripCodeFences(text), '{', '}')
}

// ExtractJSONArray pulls the first JSON array out of completion output.
func ExtractJSONArray(text string) string {
	return extractDelimited(stripCodeFences(text), '[', ']')
}

// stripCodeFences removes a surrounding ```json ... ``` (or bare ```) block.
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// extractDelimited returns the substring spanning the first open delimiter
// through its matching close, tracking nesting depth and string literals.
func extractDelimited(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// delimiters inside string literals don't count
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
