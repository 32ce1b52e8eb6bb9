package intent

import (
	"strings"
	"testing"
)

func TestParseJSONResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		wantKey string
		want    string
	}{
		{
			name:    "plain object",
			raw:     `{"type": "withdrawal", "amount": "500"}`,
			wantKey: "type",
			want:    "withdrawal",
		},
		{
			name:    "fenced object",
			raw:     "```json\n{\"type\": \"deposit\"}\n```",
			wantKey: "type",
			want:    "deposit",
		},
		{
			name:    "chatter around the object",
			raw:     "Sure! Here is the result:\n{\"type\": \"transfer\"}\nHope that helps.",
			wantKey: "type",
			want:    "transfer",
		},
		{
			name:    "not JSON at all",
			raw:     "I could not understand the request.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := parseJSONResponse(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseJSONResponse() error = nil, want failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseJSONResponse() error = %v", err)
			}
			if got := fields[tt.wantKey]; got != tt.want {
				t.Errorf("fields[%q] = %v, want %v", tt.wantKey, got, tt.want)
			}
		})
	}
}

func TestParseKeyValueResponse(t *testing.T) {
	raw := strings.Join([]string{
		"type=withdrawal",
		"amount = 500",
		"tags=housing, rent",
		"missing_info=source_id",
		"mood=confident",
		"this line has no equals sign",
		"description=Rent payment",
	}, "\n")

	fields := parseKeyValueResponse(raw)

	if got := fields["type"]; got != "withdrawal" {
		t.Errorf("type = %v, want withdrawal", got)
	}
	if got := fields["amount"]; got != "500" {
		t.Errorf("amount = %v, want 500", got)
	}
	tags, ok := fields["tags"].([]string)
	if !ok || len(tags) != 2 || tags[0] != "housing" || tags[1] != "rent" {
		t.Errorf("tags = %v, want [housing rent]", fields["tags"])
	}
	if _, ok := fields["mood"]; ok {
		t.Error("undocumented key survived parsing")
	}
	if len(fields) != 5 {
		t.Errorf("parsed %d fields, want 5", len(fields))
	}
}

func TestParseKeyValueResponseLastOccurrenceWins(t *testing.T) {
	fields := parseKeyValueResponse("amount=100\namount=250")
	if got := fields["amount"]; got != "250" {
		t.Errorf("amount = %v, want 250", got)
	}
}

func TestParseModelResponseNoRecognizedLines(t *testing.T) {
	if _, err := parseModelResponse(FormatKeyValue, "total gibberish"); err == nil {
		t.Error("parseModelResponse() error = nil, want failure")
	}
}
