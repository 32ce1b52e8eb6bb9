package intent

import (
	"context"
	"strings"
	"testing"

	"github.com/dvloznov/firefly-assistant/internal/store"
)

// fakeReferenceReader serves canned reference data.
type fakeReferenceReader struct {
	accounts     []*store.AccountRow
	categories   []*store.CategoryRow
	bills        []*store.BillRow
	tags         []string
	transactions map[int64]*store.TransactionRow
}

func (f *fakeReferenceReader) ListAccounts(ctx context.Context) ([]*store.AccountRow, error) {
	return f.accounts, nil
}

func (f *fakeReferenceReader) ListAccountsByType(ctx context.Context, accountType string) ([]*store.AccountRow, error) {
	var rows []*store.AccountRow
	for _, acc := range f.accounts {
		if acc.Type == accountType {
			rows = append(rows, acc)
		}
	}
	return rows, nil
}

func (f *fakeReferenceReader) ListCategories(ctx context.Context) ([]*store.CategoryRow, error) {
	return f.categories, nil
}

func (f *fakeReferenceReader) ListBills(ctx context.Context) ([]*store.BillRow, error) {
	return f.bills, nil
}

func (f *fakeReferenceReader) ListDistinctTags(ctx context.Context) ([]string, error) {
	return f.tags, nil
}

func (f *fakeReferenceReader) GetTransaction(ctx context.Context, id int64) (*store.TransactionRow, error) {
	return f.transactions[id], nil
}

var _ store.ReferenceReader = (*fakeReferenceReader)(nil)

func TestBuildContext(t *testing.T) {
	reader := &fakeReferenceReader{
		accounts: []*store.AccountRow{
			{ID: 16, Name: "PayPay", Type: "asset"},
			{ID: 1, Name: "Checking", Type: "asset"},
			{ID: 20, Name: "Groceries", Type: "expense"},
		},
		categories: []*store.CategoryRow{{ID: 1, Name: "Food"}, {ID: 2, Name: "Housing"}},
		tags:       []string{"rent", "topup"},
		bills:      []*store.BillRow{{ID: 7, Name: "Rent"}},
	}

	got, err := BuildContext(context.Background(), reader)
	if err != nil {
		t.Fatalf("BuildContext() error = %v", err)
	}

	want := "## KNOWN ACCOUNTS:\n" +
		"  - \"Checking\" → 1\n" +
		"  - \"Groceries\" → 20\n" +
		"  - \"PayPay\" → 16\n" +
		"\n" +
		"## KNOWN CATEGORIES:\n" +
		"  - Food\n" +
		"  - Housing\n" +
		"\n" +
		"## KNOWN TAGS:\n" +
		"  - rent\n" +
		"  - topup\n" +
		"\n" +
		"## KNOWN BILLS:\n" +
		"  - \"Rent\" → 7\n"
	if got != want {
		t.Errorf("BuildContext() =\n%s\nwant:\n%s", got, want)
	}
}

func TestBuildContextEmptyMirror(t *testing.T) {
	got, err := BuildContext(context.Background(), &fakeReferenceReader{})
	if err != nil {
		t.Fatalf("BuildContext() error = %v", err)
	}

	for _, placeholder := range []string{
		"  (No accounts found.)\n",
		"  (No categories found.)\n",
		"  (No tags found.)\n",
		"  (No bills found.)\n",
	} {
		if !strings.Contains(got, placeholder) {
			t.Errorf("BuildContext() missing placeholder %q", placeholder)
		}
	}
}
