package intent

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/firefly-assistant/internal/domain"
	"github.com/dvloznov/firefly-assistant/internal/logger"
)

// resolveStep represents a single step in the intent resolution pipeline.
type resolveStep interface {
	Execute(ctx context.Context, state *resolveState) error
}

// resolveState holds the shared state across all resolution steps.
type resolveState struct {
	RawInput string

	UserInput string
	UserTags  []string

	Exemplar      *exemplarContext
	ExemplarMatch *domain.ExemplarMatch

	Prompt    string
	RawOutput string
	Fields    map[string]interface{}

	Proposal *domain.Proposal
}

// Step 1: ExtractHintsStep splits explicit tag hints from the raw input.
type ExtractHintsStep struct{}

func (s *ExtractHintsStep) Execute(ctx context.Context, state *resolveState) error {
	state.UserInput, state.UserTags = extractTagHints(state.RawInput)
	return nil
}

// Step 2: RetrieveExemplarStep loads grounding context from the most
// similar historical transaction. Finding none is not an error.
type RetrieveExemplarStep struct{ r *Resolver }

func (s *RetrieveExemplarStep) Execute(ctx context.Context, state *resolveState) error {
	matches, err := s.r.finder.FindSimilar(ctx, state.UserInput, 1)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return nil
	}

	match := matches[0]
	tx, err := s.r.reader.GetTransaction(ctx, match.TransactionID)
	if err != nil {
		return err
	}
	if tx == nil {
		// The index can briefly outlive a mirrored row; resolve without
		// grounding rather than failing the message.
		log := logger.FromContext(ctx)
		log.Warn().
			Int64("transaction_id", match.TransactionID).
			Msg("Exemplar transaction missing from mirror")
		return nil
	}

	state.ExemplarMatch = &match
	state.Exemplar = &exemplarContext{
		PreviousDescription: tx.Description,
		TypicalAmount:       tx.Amount.String(),
		CommonSource:        tx.SourceName,
		CommonDestination:   tx.DestinationName,
		CommonCategory:      tx.CategoryName,
		CommonTags:          tx.Tags,
	}
	return nil
}

// Step 3: BuildPromptStep renders the reference context and composes the
// extraction prompt.
type BuildPromptStep struct{ r *Resolver }

func (s *BuildPromptStep) Execute(ctx context.Context, state *resolveState) error {
	contextBlock, err := BuildContext(ctx, s.r.reader)
	if err != nil {
		return err
	}
	state.Prompt = buildPrompt(s.r.format, contextBlock, state.UserInput, state.UserTags, state.Exemplar)
	return nil
}

// Step 4: InvokeModelStep performs the single extraction call. A timeout
// counts as an extraction failure, not an infrastructure fault.
type InvokeModelStep struct{ r *Resolver }

func (s *InvokeModelStep) Execute(ctx context.Context, state *resolveState) error {
	callCtx := ctx
	if s.r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.r.timeout)
		defer cancel()
	}

	raw, err := s.r.model.GenerateText(callCtx, state.Prompt)
	if err != nil {
		return fmt.Errorf("%w: model call: %v", ErrNoProposal, err)
	}
	state.RawOutput = raw
	return nil
}

// Step 5: ParseResponseStep parses the model output in the configured
// format. A reply that does not parse fails this message for good;
// nothing is retried here.
type ParseResponseStep struct{ r *Resolver }

func (s *ParseResponseStep) Execute(ctx context.Context, state *resolveState) error {
	fields, err := parseModelResponse(s.r.format, state.RawOutput)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().
			Err(err).
			Str("raw_output", clip(state.RawOutput)).
			Msg("Model output did not parse")
		return fmt.Errorf("%w: %v", ErrNoProposal, err)
	}
	state.Fields = fields
	return nil
}

// Step 6: AssembleProposalStep refreshes the lookup snapshot and finalizes
// the proposal.
type AssembleProposalStep struct{ r *Resolver }

func (s *AssembleProposalStep) Execute(ctx context.Context, state *resolveState) error {
	if err := s.r.lookups.Refresh(ctx); err != nil {
		return err
	}
	state.Proposal = assembleProposal(state.Fields, state.UserInput, state.UserTags, s.r.lookups, state.ExemplarMatch, time.Now())
	return nil
}

// Pipeline executes a sequence of resolution steps in order.
type Pipeline struct {
	steps []resolveStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...resolveStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially, stopping at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *resolveState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("resolution step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewResolutionPipeline creates the standard 6-step pipeline behind
// DetermineIntent.
func NewResolutionPipeline(r *Resolver) *Pipeline {
	return NewPipeline(
		&ExtractHintsStep{},
		&RetrieveExemplarStep{r: r},
		&BuildPromptStep{r: r},
		&InvokeModelStep{r: r},
		&ParseResponseStep{r: r},
		&AssembleProposalStep{r: r},
	)
}

func clip(s string) string {
	const maxLen = 300
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
