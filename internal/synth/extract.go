package synth

// ExtractJSON returns the first balanced JSON object in text, from the first '{'
// through its matching '}'. A backslash escapes the next character, an
// unescaped '"' toggles string context, and braces inside strings are ignored.
func ExtractJSON(text string) (string, error) {
	start := -1
	for i := 0; i < len(text); i++ {
		if text[i] == '{' {
			start = i
			break
		}
	}
	if start < 0 {
		return "", newError(CodeNoJSONFound, "no JSON object in model response", nil)
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
		switch c {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], nil
				}
			}
		}
	}
	return "", newError(CodeUnterminatedJSON, "JSON object in model response is never closed", nil)
}
