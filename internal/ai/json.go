package ai

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ExtractJSON pulls a JSON object out of a model response. It strips markdown
// code fences, falls back to the outermost braces, and finally tries to repair
// near-JSON (trailing commas, single quotes, unterminated objects).
func ExtractJSON(text string) ([]byte, error) {
	str := stripMarkdownCodeBlocks(text)
	if str == "" {
		return nil, errors.New("empty response")
	}

	if isJSONObject(str) {
		return []byte(str), nil
	}

	candidate := str
	start := strings.Index(str, "{")
	end := strings.LastIndex(str, "}")
	if start != -1 && end > start {
		candidate = str[start : end+1]
		if isJSONObject(candidate) {
			return []byte(candidate), nil
		}
	} else if start != -1 {
		candidate = str[start:]
	} else {
		return nil, errors.New("no JSON object found in response")
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return nil, errors.New("extracted content is not valid JSON")
	}
	if !isJSONObject(repaired) {
		return nil, errors.New("extracted content is not a JSON object")
	}
	return []byte(repaired), nil
}

func isJSONObject(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") && json.Valid([]byte(s))
}

// stripMarkdownCodeBlocks removes markdown code block markers from a string.
func stripMarkdownCodeBlocks(s string) string {
	s = strings.TrimSpace(s)
	if cut, found := strings.CutPrefix(s, "```json"); found {
		s = cut
	} else if cut, found := strings.CutPrefix(s, "```"); found {
		s = cut
	}
	if cut, found := strings.CutSuffix(s, "```"); found {
		s = cut
	}
	return strings.TrimSpace(s)
}
