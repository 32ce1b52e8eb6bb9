package embedding

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/firefly-assistant/internal/store"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		tx   store.TransactionRow
		want string
	}{
		{
			name: "all fields",
			tx: store.TransactionRow{
				Description:     "Topup PayPay",
				SourceName:      "Yucho",
				DestinationName: "PayPay",
				CategoryName:    "Transfers",
				Tags:            []string{"wallet", "topup"},
				Amount:          decimal.NewFromInt(3000),
			},
			want: "Topup PayPay source Yucho from Yucho destination PayPay to PayPay category Transfers tags wallet, topup amount 3000",
		},
		{
			name: "description only",
			tx:   store.TransactionRow{Description: "Coffee"},
			want: "Coffee",
		},
		{
			name: "zero amount omitted",
			tx: store.TransactionRow{
				Description: "Adjustment",
				SourceName:  "Yucho",
				Amount:      decimal.Zero,
			},
			want: "Adjustment source Yucho from Yucho",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(&tt.tx); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	vec := []float32{0.25, -1.5, 3.75, 0}

	decoded, err := DecodeVector(EncodeVector(vec))
	if err != nil {
		t.Fatalf("DecodeVector() error: %v", err)
	}
	if len(decoded) != len(vec) {
		t.Fatalf("decoded len = %d, want %d", len(decoded), len(vec))
	}
	for i := range vec {
		if decoded[i] != vec[i] {
			t.Errorf("decoded[%d] = %v, want %v", i, decoded[i], vec[i])
		}
	}
}

func TestDecodeVectorMalformed(t *testing.T) {
	_, err := DecodeVector([]byte{1, 2, 3, 4, 5})
	if !errors.Is(err, ErrMalformedVector) {
		t.Errorf("DecodeVector() error = %v, want ErrMalformedVector", err)
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"zero magnitude", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine() = %v, want %v", got, tt.want)
			}
		})
	}
}

// bagOfWordsEmbedder is a deterministic stand-in for the real embedder:
// each vocabulary word is one dimension holding its occurrence count.
type bagOfWordsEmbedder struct {
	vocab []string
}

func (e *bagOfWordsEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, len(e.vocab))
	for _, w := range strings.Fields(strings.ToLower(text)) {
		for i, v := range e.vocab {
			if w == v {
				vec[i]++
			}
		}
	}
	return vec, nil
}

type fakeEmbeddingRepo struct {
	rows []*store.EmbeddingRow
}

func (r *fakeEmbeddingRepo) UpsertEmbedding(_ context.Context, row *store.EmbeddingRow) error {
	r.rows = append(r.rows, row)
	return nil
}

func (r *fakeEmbeddingRepo) ListEmbeddings(_ context.Context) ([]*store.EmbeddingRow, error) {
	return r.rows, nil
}

func (r *fakeEmbeddingRepo) ListTransactionsWithoutEmbedding(_ context.Context, _ int) ([]*store.TransactionRow, error) {
	return nil, nil
}

func TestFindSimilarRetrieval(t *testing.T) {
	embedder := &bagOfWordsEmbedder{vocab: []string{
		"topup", "topped", "up", "paypay", "yucho", "lawson", "grocery",
		"run", "rent", "payment", "source", "from", "destination", "to",
	}}

	txs := []*store.TransactionRow{
		{ID: 10, Description: "Topup PayPay", SourceName: "Yucho", DestinationName: "PayPay"},
		{ID: 11, Description: "Grocery run", SourceName: "Yucho", DestinationName: "Lawson"},
		{ID: 12, Description: "Rent payment", SourceName: "Yucho"},
	}

	repo := &fakeEmbeddingRepo{}
	for _, tx := range txs {
		vec, err := embedder.Embed(context.Background(), Render(tx))
		if err != nil {
			t.Fatalf("Embed() error: %v", err)
		}
		repo.rows = append(repo.rows, &store.EmbeddingRow{TransactionID: tx.ID, Vector: EncodeVector(vec)})
	}

	ix := NewIndex(repo, embedder)

	matches, err := ix.FindSimilar(context.Background(), "Topped up PayPay from Yucho", 1)
	if err != nil {
		t.Fatalf("FindSimilar() error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("FindSimilar() returned %d matches, want 1", len(matches))
	}
	if matches[0].TransactionID != 10 {
		t.Errorf("nearest transaction = %d, want 10", matches[0].TransactionID)
	}
	if matches[0].Score <= 0 {
		t.Errorf("score = %v, want > 0", matches[0].Score)
	}
}

func TestFindSimilarSkipsMalformedAndRanks(t *testing.T) {
	embedder := &bagOfWordsEmbedder{vocab: []string{"a", "b", "c"}}

	repo := &fakeEmbeddingRepo{rows: []*store.EmbeddingRow{
		{TransactionID: 1, Vector: EncodeVector([]float32{1, 0, 0})},
		{TransactionID: 2, Vector: []byte{9, 9}}, // malformed, skipped
		{TransactionID: 3, Vector: EncodeVector([]float32{1, 0, 0})},
		{TransactionID: 4, Vector: EncodeVector([]float32{0, 1, 0})},
	}}

	ix := NewIndex(repo, embedder)

	matches, err := ix.FindSimilar(context.Background(), "a", 10)
	if err != nil {
		t.Fatalf("FindSimilar() error: %v", err)
	}

	if len(matches) != 3 {
		t.Fatalf("FindSimilar() returned %d matches, want 3 (malformed skipped)", len(matches))
	}
	// Equal scores keep ascending id order; the orthogonal vector ranks last.
	if matches[0].TransactionID != 1 || matches[1].TransactionID != 3 || matches[2].TransactionID != 4 {
		t.Errorf("ranking = [%d %d %d], want [1 3 4]",
			matches[0].TransactionID, matches[1].TransactionID, matches[2].TransactionID)
	}
}

func TestFindSimilarTopKZero(t *testing.T) {
	ix := NewIndex(&fakeEmbeddingRepo{}, &bagOfWordsEmbedder{vocab: []string{"a"}})

	matches, err := ix.FindSimilar(context.Background(), "a", 0)
	if err != nil {
		t.Fatalf("FindSimilar() error: %v", err)
	}
	if matches != nil {
		t.Errorf("FindSimilar(topK=0) = %v, want nil", matches)
	}
}
