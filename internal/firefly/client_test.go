package firefly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/firefly-assistant/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), srv.URL, "test-token", zerolog.Nop())
}

func TestJoinURL(t *testing.T) {
	c := NewClient(nil, "http://ledger.local/api/v1/", "t", zerolog.Nop())

	got := c.joinURL("/accounts")
	want := "http://ledger.local/api/v1/accounts"
	if got != want {
		t.Errorf("joinURL(/accounts) = %q, want %q", got, want)
	}
}

func TestListAccountsPagination(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer test-token")
		}
		if got := r.URL.Query().Get("type"); got != "asset,expense,revenue" {
			t.Errorf("type filter = %q, want asset,expense,revenue", got)
		}
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `{"data":[
				{"id":"1","attributes":{"name":"Yucho","type":"asset","currency_code":"JPY"}},
				{"id":"2","attributes":{"name":"PayPay","type":"asset","currency_code":"JPY"}}]}`)
		case "2":
			fmt.Fprint(w, `{"data":[{"id":"3","attributes":{"name":"Rent","type":"expense","currency_code":"JPY"}}]}`)
		default:
			fmt.Fprint(w, `{"data":[]}`)
		}
	}))

	var all []AccountRead
	for page := 1; ; page++ {
		reads, err := c.ListAccounts(context.Background(), page, time.Time{})
		if err != nil {
			t.Fatalf("ListAccounts(page %d) error: %v", page, err)
		}
		if len(reads) == 0 {
			break
		}
		all = append(all, reads...)
	}

	if len(all) != 3 {
		t.Fatalf("collected %d accounts, want 3", len(all))
	}
	if all[0].ID != "1" || all[0].Attributes.Name != "Yucho" {
		t.Errorf("first account = %+v, want id 1 name Yucho", all[0])
	}
}

func TestListPageSizeLimit(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "50" {
			t.Errorf("limit = %q, want 50", got)
		}
		fmt.Fprint(w, `{"data":[]}`)
	})).WithPageSize(50)

	if _, err := c.ListCategories(context.Background(), 1, time.Time{}); err != nil {
		t.Fatalf("ListCategories() error: %v", err)
	}
}

func TestListTransactionsUpdatedSinceFilter(t *testing.T) {
	since := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("updated_at"); got != "2025-03-01T00:00:00Z" {
			t.Errorf("updated_at = %q, want 2025-03-01T00:00:00Z", got)
		}
		fmt.Fprint(w, `{"data":[]}`)
	}))

	if _, err := c.ListTransactions(context.Background(), 1, since); err != nil {
		t.Fatalf("ListTransactions() error: %v", err)
	}
}

func TestListTransactionsDecodeError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>maintenance page</html>`)
	}))

	_, err := c.ListTransactions(context.Background(), 1, time.Time{})
	if !errors.Is(err, ErrDecode) {
		t.Errorf("ListTransactions() error = %v, want ErrDecode", err)
	}
}

func TestCreateTransaction(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		body           string
		wantID         string
		wantValidation bool
		wantErr        bool
	}{
		{
			name:   "created",
			status: http.StatusOK,
			body:   `{"data":{"id":"99","attributes":{"created_at":"2025-03-01T00:00:00Z"}}}`,
			wantID: "99",
		},
		{
			name:           "validation failure",
			status:         http.StatusUnprocessableEntity,
			body:           `{"message":"Invalid data","errors":{"transactions.0.source_id":["The source id is invalid."]}}`,
			wantValidation: true,
			wantErr:        true,
		},
		{
			name:    "unexpected body",
			status:  http.StatusOK,
			body:    `{"ok":true}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("method = %s, want POST", r.Method)
				}
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))

			read, err := c.CreateTransaction(context.Background(), TransactionRequest{})

			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateTransaction() error = %v, wantErr %v", err, tt.wantErr)
			}

			var vErr *ValidationError
			if got := errors.As(err, &vErr); got != tt.wantValidation {
				t.Fatalf("validation error = %v, want %v (err %v)", got, tt.wantValidation, err)
			}
			if tt.wantValidation {
				msgs := vErr.Fields["transactions.0.source_id"]
				if len(msgs) != 1 || msgs[0] != "The source id is invalid." {
					t.Errorf("Fields[transactions.0.source_id] = %v, want ledger message verbatim", msgs)
				}
			}
			if tt.wantID != "" && (read == nil || read.ID != tt.wantID) {
				t.Errorf("created = %+v, want id %s", read, tt.wantID)
			}
		})
	}
}

func TestBuildSubmission(t *testing.T) {
	p := &domain.Proposal{
		Type:         domain.TypeWithdrawal,
		Amount:       "1200",
		Description:  "Monthly rent",
		CurrencyCode: "JPY",
		Date:         "2025-04-01",
		Source:       domain.ModelRef(1),
		Destination:  domain.UnknownRef(),
		Bill:         domain.ModelRef(7),
		CategoryName: "Housing",
		Tags:         []string{"housing", "rent"},
	}

	req := BuildSubmission(p)

	if len(req.Transactions) != 1 {
		t.Fatalf("Transactions len = %d, want 1", len(req.Transactions))
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var wire struct {
		Transactions []map[string]any `json:"transactions"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	split := wire.Transactions[0]
	if split["source_id"] != "1" {
		t.Errorf("source_id = %v, want %q", split["source_id"], "1")
	}
	if _, present := split["destination_id"]; present {
		t.Errorf("destination_id present for unresolved ref: %v", split["destination_id"])
	}
	if split["bill_id"] != "7" {
		t.Errorf("bill_id = %v, want %q", split["bill_id"], "7")
	}
	if split["notes"] != SubmissionNote {
		t.Errorf("notes = %v, want %q", split["notes"], SubmissionNote)
	}
	if split["date"] != "2025-04-01" {
		t.Errorf("date = %v, want 2025-04-01", split["date"])
	}
}
