package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/dvloznov/firefly-assistant/internal/domain"
)

func TestRefMarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		ref  domain.Ref
		want string
	}{
		{"resolved", domain.ModelRef(42), `"42"`},
		{"unresolved", domain.UnknownRef(), `"unknown"`},
		{"zero value", domain.Ref{}, `"unknown"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.ref)
			if err != nil {
				t.Fatalf("Marshal(%v) error: %v", tt.ref, err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal(%v) = %s, want %s", tt.ref, got, tt.want)
			}
		})
	}
}

func TestRefUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		wantID     int64
		wantStatus domain.ResolutionStatus
	}{
		{"numeric string", `"4"`, 4, domain.ResolutionUser},
		{"number", `4`, 4, domain.ResolutionUser},
		{"unknown sentinel", `"unknown"`, 0, domain.ResolutionUnresolved},
		{"empty string", `""`, 0, domain.ResolutionUnresolved},
		{"null", `null`, 0, domain.ResolutionUnresolved},
		{"garbage", `"checking account"`, 0, domain.ResolutionUnresolved},
		{"zero", `0`, 0, domain.ResolutionUnresolved},
		{"negative", `-3`, 0, domain.ResolutionUnresolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ref domain.Ref
			if err := json.Unmarshal([]byte(tt.data), &ref); err != nil {
				t.Fatalf("Unmarshal(%s) error: %v", tt.data, err)
			}
			if ref.ID != tt.wantID {
				t.Errorf("Unmarshal(%s) ID = %d, want %d", tt.data, ref.ID, tt.wantID)
			}
			if ref.Status != tt.wantStatus {
				t.Errorf("Unmarshal(%s) Status = %q, want %q", tt.data, ref.Status, tt.wantStatus)
			}
		})
	}
}

func TestProposalJSONRoundTrip(t *testing.T) {
	p := domain.Proposal{
		Type:         domain.TypeWithdrawal,
		Amount:       "1200",
		Description:  "Monthly rent",
		CurrencyCode: "JPY",
		Date:         "2025-04-01",
		Source:       domain.ModelRef(1),
		SourceName:   "Yucho",
		Destination:  domain.UnknownRef(),
		Bill:         domain.ModelRef(7),
		BillName:     "Rent",
		CategoryName: "Housing",
		Tags:         []string{"housing", "rent"},
		MissingInfo:  []string{"destination_id"},
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("Unmarshal() into map error: %v", err)
	}
	if wire["source_id"] != "1" {
		t.Errorf("source_id = %v, want %q", wire["source_id"], "1")
	}
	if wire["destination_id"] != "unknown" {
		t.Errorf("destination_id = %v, want %q", wire["destination_id"], "unknown")
	}

	var back domain.Proposal
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() into Proposal error: %v", err)
	}
	if !back.Source.Resolved() || back.Source.ID != 1 {
		t.Errorf("round-tripped Source = %+v, want resolved id 1", back.Source)
	}
	if back.Destination.Resolved() {
		t.Errorf("round-tripped Destination = %+v, want unresolved", back.Destination)
	}
}
