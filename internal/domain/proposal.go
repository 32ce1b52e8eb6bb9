package domain

import (
	"strconv"
	"strings"
)

// TransactionType classifies a ledger transaction.
type TransactionType string

const (
	TypeWithdrawal TransactionType = "withdrawal"
	TypeDeposit    TransactionType = "deposit"
	TypeTransfer   TransactionType = "transfer"
)

// ResolutionStatus records how a Ref got its id.
type ResolutionStatus string

const (
	// ResolutionUnresolved means no usable id was produced.
	ResolutionUnresolved ResolutionStatus = "UNRESOLVED"

	// ResolutionModel means the extraction model supplied the id.
	ResolutionModel ResolutionStatus = "MODEL"

	// ResolutionUser means the id was supplied or corrected by the user.
	ResolutionUser ResolutionStatus = "USER"
)

// Ref is a reference to a ledger entity by its remote id. A zero ID means
// the reference is unresolved; the ledger never issues id 0.
type Ref struct {
	ID     int64
	Status ResolutionStatus
}

// UnknownRef returns an unresolved reference.
func UnknownRef() Ref {
	return Ref{Status: ResolutionUnresolved}
}

// ModelRef returns a reference resolved by the extraction model.
func ModelRef(id int64) Ref {
	if id <= 0 {
		return UnknownRef()
	}
	return Ref{ID: id, Status: ResolutionModel}
}

// UserRef returns a reference supplied by the user.
func UserRef(id int64) Ref {
	if id <= 0 {
		return UnknownRef()
	}
	return Ref{ID: id, Status: ResolutionUser}
}

// Resolved reports whether the reference carries a usable id.
func (r Ref) Resolved() bool {
	return r.ID > 0
}

// String renders the id for logs, or "unknown" when unresolved.
func (r Ref) String() string {
	if !r.Resolved() {
		return "unknown"
	}
	return strconv.FormatInt(r.ID, 10)
}

// MarshalJSON writes the remote id as a string, or the "unknown" sentinel
// when the reference is unresolved. The extraction model and the web client
// both use that sentinel on the wire; inside the process only typed Refs
// exist.
func (r Ref) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// UnmarshalJSON accepts a JSON number, a numeric string, null, the empty
// string, or the "unknown" sentinel. Anything else leaves the reference
// unresolved rather than failing the whole decode.
func (r *Ref) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*r = UnknownRef()
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" || s == "unknown" {
		*r = UnknownRef()
		return nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		*r = UnknownRef()
		return nil
	}
	*r = UserRef(id)
	return nil
}

// Proposal is a structured transaction intent produced by the resolver,
// ready for user review or submission to the ledger.
type Proposal struct {
	Type         TransactionType `json:"type"`
	Amount       string          `json:"amount"`
	Description  string          `json:"description"`
	CurrencyCode string          `json:"currency_code"`
	Date         string          `json:"date"`

	Source          Ref    `json:"source_id"`
	SourceName      string `json:"source_name,omitempty"`
	Destination     Ref    `json:"destination_id"`
	DestinationName string `json:"destination_name,omitempty"`
	Bill            Ref    `json:"bill_id"`
	BillName        string `json:"bill_name,omitempty"`

	CategoryName string   `json:"category_name"`
	Tags         []string `json:"tags"`

	// MissingInfo names the fields the extractor could not determine; the
	// client uses it to drive manual selection before submitting.
	MissingInfo []string `json:"missing_info"`

	// Exemplar is the historical transaction the extraction was grounded
	// on, when the embedding index produced one.
	Exemplar *ExemplarMatch `json:"exemplar,omitempty"`
}

// ExemplarMatch identifies the nearest historical transaction used to
// ground an extraction, with its cosine similarity.
type ExemplarMatch struct {
	TransactionID int64   `json:"transaction_id"`
	Score         float64 `json:"score"`
}
