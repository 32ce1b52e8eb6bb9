package intent

import "strings"

// keyValueKeys is the documented key set for the key=value extraction
// format. tags and missing_info carry comma-separated lists.
var keyValueKeys = map[string]bool{
	"type":           true,
	"amount":         true,
	"description":    true,
	"source_id":      true,
	"destination_id": true,
	"currency_code":  true,
	"date":           true,
	"category_name":  true,
	"tags":           true,
	"missing_info":   true,
	"bill_id":        true,
}

// parseKeyValueResponse parses the alternate extraction output format.
// Grammar: one "key=value" pair per line; lines without "=" and keys
// outside the documented set are ignored; tags and missing_info values
// split on commas. The last occurrence of a repeated key wins.
func parseKeyValueResponse(raw string) map[string]interface{} {
	result := make(map[string]interface{})
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if !keyValueKeys[key] {
			continue
		}
		if key == "tags" || key == "missing_info" {
			result[key] = splitList(value)
			continue
		}
		result[key] = value
	}
	return result
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var items []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
