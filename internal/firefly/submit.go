package firefly

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dvloznov/firefly-assistant/internal/domain"
)

// SubmissionNote is attached to every transaction created through the
// assistant so they stay identifiable in the ledger.
const SubmissionNote = "Created by Firefly Assistant"

// TransactionRequest is the submission envelope the ledger expects: a
// group with a single split.
type TransactionRequest struct {
	Transactions []TransactionSplitRequest `json:"transactions"`
}

// TransactionSplitRequest is one split in a submission. Reference ids are
// omitted entirely when unresolved; the ledger treats a missing key
// differently from an empty string.
type TransactionSplitRequest struct {
	Type          string   `json:"type"`
	Date          string   `json:"date"`
	Amount        string   `json:"amount"`
	Description   string   `json:"description"`
	CurrencyCode  string   `json:"currency_code"`
	CategoryName  string   `json:"category_name"`
	SourceID      string   `json:"source_id,omitempty"`
	DestinationID string   `json:"destination_id,omitempty"`
	BillID        string   `json:"bill_id,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Notes         string   `json:"notes"`
}

// ValidationError reports a submission the ledger rejected. Fields maps
// field names to the ledger's own messages, verbatim, so the client can
// show them next to the offending inputs.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("firefly: validation failed: %s", e.Message)
}

// BuildSubmission maps a reviewed proposal onto the ledger's submission
// payload.
func BuildSubmission(p *domain.Proposal) TransactionRequest {
	split := TransactionSplitRequest{
		Type:         string(p.Type),
		Date:         p.Date,
		Amount:       p.Amount,
		Description:  p.Description,
		CurrencyCode: p.CurrencyCode,
		CategoryName: p.CategoryName,
		Tags:         p.Tags,
		Notes:        SubmissionNote,
	}

	if p.Source.Resolved() {
		split.SourceID = p.Source.String()
	}
	if p.Destination.Resolved() {
		split.DestinationID = p.Destination.String()
	}
	if p.Bill.Resolved() {
		split.BillID = p.Bill.String()
	}

	return TransactionRequest{Transactions: []TransactionSplitRequest{split}}
}

// CreateTransaction submits one transaction to the ledger and classifies
// the outcome by the response body, not the status code: a "data" key is
// success, an "errors" key is a validation failure returned as
// *ValidationError, anything else is a transport failure. The caller
// decides whether to resubmit; nothing here retries.
func (c *Client) CreateTransaction(ctx context.Context, req TransactionRequest) (*TransactionRead, error) {
	body, status, err := c.doRequest(ctx, http.MethodPost, "/transactions", nil, req)
	if err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}

	var resp struct {
		Data    *TransactionRead    `json:"data"`
		Message string              `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("CreateTransaction: status %d: %w: %v", status, ErrDecode, err)
	}

	switch {
	case resp.Errors != nil:
		c.log.Warn().
			Int("status", status).
			Interface("errors", resp.Errors).
			Msg("ledger rejected transaction")
		return nil, &ValidationError{Message: resp.Message, Fields: resp.Errors}
	case resp.Data != nil:
		return resp.Data, nil
	default:
		return nil, fmt.Errorf("CreateTransaction: unexpected response (status %d): %s", status, snippet(body))
	}
}
