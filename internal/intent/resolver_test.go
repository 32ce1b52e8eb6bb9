package intent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/firefly-assistant/internal/domain"
	"github.com/dvloznov/firefly-assistant/internal/store"
)

// fakeModel returns a canned reply and records the prompt it was given.
type fakeModel struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeFinder struct {
	matches []domain.ExemplarMatch
}

func (f *fakeFinder) FindSimilar(ctx context.Context, query string, topK int) ([]domain.ExemplarMatch, error) {
	if topK < len(f.matches) {
		return f.matches[:topK], nil
	}
	return f.matches, nil
}

func testReader() *fakeReferenceReader {
	return &fakeReferenceReader{
		accounts: []*store.AccountRow{
			{ID: 1, Name: "Yucho", Type: "asset"},
			{ID: 16, Name: "PayPay", Type: "asset"},
		},
		categories: []*store.CategoryRow{{ID: 3, Name: "Transfers"}},
		tags:       []string{"topup", "wallet"},
		bills:      []*store.BillRow{{ID: 7, Name: "Rent"}},
		transactions: map[int64]*store.TransactionRow{
			10: {
				ID:              10,
				Type:            "transfer",
				Description:     "Topup PayPay",
				Amount:          decimal.NewFromInt(3000),
				SourceName:      "Yucho",
				DestinationName: "PayPay",
				CategoryName:    "Transfers",
				Tags:            []string{"topup"},
			},
		},
	}
}

func TestDetermineIntent(t *testing.T) {
	model := &fakeModel{reply: `{
		"type": "transfer",
		"amount": "3000",
		"description": "Topup PayPay from Yucho",
		"source_id": 1,
		"destination_id": 16,
		"currency_code": "JPY",
		"date": "2019-01-01",
		"category_name": "Transfers",
		"tags": ["topup"],
		"missing_info": [],
		"bill_id": "unknown"
	}`}
	finder := &fakeFinder{matches: []domain.ExemplarMatch{{TransactionID: 10, Score: 0.91}}}
	r := NewResolver(testReader(), finder, model, FormatJSON, time.Second)

	p, err := r.DetermineIntent(context.Background(), "Topped up PayPay from Yucho 3000 yen")
	if err != nil {
		t.Fatalf("DetermineIntent() error = %v", err)
	}

	if p.Type != domain.TypeTransfer {
		t.Errorf("Type = %q, want transfer", p.Type)
	}
	if p.SourceName != "Yucho" || p.DestinationName != "PayPay" {
		t.Errorf("resolved names = %q/%q, want Yucho/PayPay", p.SourceName, p.DestinationName)
	}
	if p.Date != time.Now().Format("2006-01-02") {
		t.Errorf("Date = %q, want today", p.Date)
	}
	if p.Exemplar == nil || p.Exemplar.TransactionID != 10 {
		t.Errorf("Exemplar = %+v, want transaction 10", p.Exemplar)
	}
	if len(p.MissingInfo) != 0 {
		t.Errorf("MissingInfo = %v, want empty", p.MissingInfo)
	}

	for _, fragment := range []string{
		"## KNOWN ACCOUNTS:",
		"\"PayPay\" → 16",
		"## KNOWN BILLS:",
		"previous_description: Topup PayPay",
		"Topped up PayPay from Yucho 3000 yen",
	} {
		if !strings.Contains(model.prompt, fragment) {
			t.Errorf("prompt missing %q", fragment)
		}
	}
}

func TestDetermineIntentUnparseableReply(t *testing.T) {
	model := &fakeModel{reply: "I really could not figure this one out."}
	r := NewResolver(testReader(), &fakeFinder{}, model, FormatJSON, time.Second)

	_, err := r.DetermineIntent(context.Background(), "buy socks")
	if !errors.Is(err, ErrNoProposal) {
		t.Errorf("DetermineIntent() error = %v, want ErrNoProposal", err)
	}
}

func TestDetermineIntentModelFailure(t *testing.T) {
	model := &fakeModel{err: errors.New("deadline exceeded")}
	r := NewResolver(testReader(), &fakeFinder{}, model, FormatJSON, time.Second)

	_, err := r.DetermineIntent(context.Background(), "buy socks")
	if !errors.Is(err, ErrNoProposal) {
		t.Errorf("DetermineIntent() error = %v, want ErrNoProposal", err)
	}
}

func TestDetermineIntentUserTagsSurvive(t *testing.T) {
	model := &fakeModel{reply: `{"type": "withdrawal", "amount": "30000", "source_id": 1, "tags": ["rent", "utilities"]}`}
	r := NewResolver(testReader(), &fakeFinder{}, model, FormatJSON, time.Second)

	p, err := r.DetermineIntent(context.Background(), "Pay apato rent 30000 yen tags: housing, rent")
	if err != nil {
		t.Fatalf("DetermineIntent() error = %v", err)
	}

	for _, want := range []string{"housing", "rent"} {
		if !containsField(p.Tags, want) {
			t.Errorf("Tags = %v, want user tag %q present", p.Tags, want)
		}
	}
	if p.Tags[0] != "housing" || p.Tags[1] != "rent" {
		t.Errorf("Tags = %v, want user tags first", p.Tags)
	}
	if strings.Contains(model.prompt, "tags: housing") {
		t.Error("prompt still carries the raw tag hint")
	}
}

func TestDetermineIntentKeyValueFormat(t *testing.T) {
	model := &fakeModel{reply: "type=withdrawal\namount=500\ndescription=Sukiya lunch\nsource_id=1\ntags=food\nmissing_info="}
	r := NewResolver(testReader(), &fakeFinder{}, model, FormatKeyValue, time.Second)

	p, err := r.DetermineIntent(context.Background(), "Lunch at Sukiya 500 yen")
	if err != nil {
		t.Fatalf("DetermineIntent() error = %v", err)
	}

	if p.Amount != "500" {
		t.Errorf("Amount = %q, want 500", p.Amount)
	}
	if !p.Source.Resolved() || p.SourceName != "Yucho" {
		t.Errorf("source = %v %q, want resolved Yucho", p.Source, p.SourceName)
	}
	if !containsField(p.Tags, "food") {
		t.Errorf("Tags = %v, want food", p.Tags)
	}
	if !strings.Contains(model.prompt, "key=value") {
		t.Error("prompt missing the key=value output contract")
	}
}
