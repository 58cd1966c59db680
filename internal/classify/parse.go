// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"encoding/json"
)

// Raw is the JSON shape the classification prompt asks for.
type Raw struct {
	QueryType          string   `json:"query_type"`
	RecommendedSources []string `json:"recommended_sources"`
	SearchKeywords     []string `json:"search_keywords"`
	Reasoning          string   `json:"reasoning"`
}

// Parse returns the first balanced {...} object in text that decodes as Raw.
// Models often wrap JSON in prose or code fences, so candidates are scanned
// left to right and malformed ones are skipped.
func Parse(text string) (Raw, error) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		end := matchBrace(text, start)
		if end < 0 {
			continue
		}
		var raw Raw
		if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err == nil {
			return raw, nil
		}
	}
	return Raw{}, ErrNoObject
}

// matchBrace returns the index of the brace closing text[start], honouring
// JSON string literals, or -1 if it is never closed.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
