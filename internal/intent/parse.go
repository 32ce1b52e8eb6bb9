package intent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Extraction output formats understood by the resolver.
const (
	FormatJSON     = "json"
	FormatKeyValue = "keyvalue"
)

// parseModelResponse turns the model's raw reply into a field map using the
// configured format. A reply that does not parse is a hard failure for this
// message; the resolver maps it to "no proposal".
func parseModelResponse(format, raw string) (map[string]interface{}, error) {
	if format == FormatKeyValue {
		fields := parseKeyValueResponse(raw)
		if len(fields) == 0 {
			return nil, fmt.Errorf("parseModelResponse: no recognized key=value lines")
		}
		return fields, nil
	}
	return parseJSONResponse(raw)
}

// parseJSONResponse decodes one JSON object, stripping Markdown fences
// first in case the model ignored instructions.
func parseJSONResponse(raw string) (map[string]interface{}, error) {
	clean := cleanModelJSON(raw)

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, fmt.Errorf("parseJSONResponse: unmarshal JSON: %w", err)
	}
	return parsed, nil
}

// cleanModelJSON strips code fences and surrounding junk, keeping the
// outermost JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			// Single-line weirdness; just return as-is.
			return s
		}
		s = strings.TrimSpace(s)
	}

	// Remove trailing ``` if present.
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Extra safety: if there's still junk around the JSON object,
	// try to keep only from the first '{' to the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = s[start : end+1]
			s = strings.TrimSpace(s)
		}
	}

	return s
}
