// Package intent resolves free-form user text into structured transaction
// proposals: explicit tag hints, exemplar retrieval over the embedding
// index, a single extraction model call, and reference resolution against
// the mirrored ledger.
package intent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/firefly-assistant/internal/domain"
	"github.com/dvloznov/firefly-assistant/internal/logger"
	"github.com/dvloznov/firefly-assistant/internal/store"
)

// ErrNoProposal reports that the extraction model's reply could not be
// turned into a proposal. The caller decides whether to regenerate; the
// resolver never retries.
var ErrNoProposal = errors.New("no proposal could be formed from the model output")

// Resolver turns user messages into transaction proposals. It owns the
// lookup snapshot used for name resolution and refreshes it per message.
type Resolver struct {
	reader  store.ReferenceReader
	finder  ExemplarFinder
	model   TextModel
	format  string
	timeout time.Duration

	lookups *lookupSnapshot
}

// NewResolver creates a resolver. format selects the extraction output
// contract (FormatJSON or FormatKeyValue, defaulting to JSON); timeout
// bounds the model call, 0 means no bound.
func NewResolver(reader store.ReferenceReader, finder ExemplarFinder, model TextModel, format string, timeout time.Duration) *Resolver {
	if format != FormatKeyValue {
		format = FormatJSON
	}
	return &Resolver{
		reader:  reader,
		finder:  finder,
		model:   model,
		format:  format,
		timeout: timeout,
		lookups: newLookupSnapshot(reader),
	}
}

// DetermineIntent resolves one user message into a proposal. A reply the
// model call or parser cannot handle yields ErrNoProposal; the message is
// never retried at this layer.
func (r *Resolver) DetermineIntent(ctx context.Context, input string) (*domain.Proposal, error) {
	state := &resolveState{RawInput: input}
	if err := NewResolutionPipeline(r).Execute(ctx, state); err != nil {
		return nil, fmt.Errorf("DetermineIntent: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("type", string(state.Proposal.Type)).
		Str("amount", state.Proposal.Amount).
		Strs("missing_info", state.Proposal.MissingInfo).
		Msg("Resolved transaction intent")

	return state.Proposal, nil
}
