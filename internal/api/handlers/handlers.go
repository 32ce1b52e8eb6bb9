package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dvloznov/firefly-assistant/internal/api/middleware"
	"github.com/dvloznov/firefly-assistant/internal/domain"
	"github.com/dvloznov/firefly-assistant/internal/firefly"
	"github.com/dvloznov/firefly-assistant/internal/fireflysync"
	"github.com/dvloznov/firefly-assistant/internal/intent"
	"github.com/dvloznov/firefly-assistant/internal/jobs"
	"github.com/dvloznov/firefly-assistant/internal/store"
	"github.com/rs/zerolog"
)

// IntentResolver turns a free-form message into a transaction proposal.
// This interface enables mocking the model-backed resolver in tests.
type IntentResolver interface {
	DetermineIntent(ctx context.Context, input string) (*domain.Proposal, error)
}

var _ IntentResolver = (*intent.Resolver)(nil)

// IntentHandler handles intent-resolution endpoints.
type IntentHandler struct {
	resolver IntentResolver
	log      zerolog.Logger
}

// NewIntentHandler creates a new intent handler.
func NewIntentHandler(resolver IntentResolver, log zerolog.Logger) *IntentHandler {
	return &IntentHandler{
		resolver: resolver,
		log:      log,
	}
}

// ResolveIntent handles POST /api/intent
func (h *IntentHandler) ResolveIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input string `json:"input"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Input) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "input is required")
		return
	}

	proposal, err := h.resolver.DetermineIntent(r.Context(), req.Input)
	if err != nil {
		if errors.Is(err, intent.ErrNoProposal) {
			h.log.Warn().Err(err).Msg("No proposal extracted from input")
			middleware.WriteError(w, http.StatusUnprocessableEntity, "No transaction could be extracted from the input")
			return
		}
		h.log.Error().Err(err).Msg("Failed to resolve intent")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to resolve intent")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, proposal)
}

// LedgerSubmitter submits a finished transaction to the remote ledger.
// This interface enables mocking the ledger client in tests.
type LedgerSubmitter interface {
	CreateTransaction(ctx context.Context, req firefly.TransactionRequest) (*firefly.TransactionRead, error)
}

var _ LedgerSubmitter = (*firefly.Client)(nil)

// TransactionsHandler handles transaction submission endpoints.
type TransactionsHandler struct {
	client LedgerSubmitter
	log    zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(client LedgerSubmitter, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		client: client,
		log:    log,
	}
}

// CreateTransaction handles POST /api/transactions
// The body is a reviewed proposal; the ledger is the validator. Rejections
// come back as a 422 carrying the ledger's field messages verbatim.
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var proposal domain.Proposal
	if err := json.NewDecoder(r.Body).Decode(&proposal); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.client.CreateTransaction(r.Context(), firefly.BuildSubmission(&proposal))
	if err != nil {
		var vErr *firefly.ValidationError
		if errors.As(err, &vErr) {
			middleware.WriteJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"message": vErr.Message,
				"errors":  vErr.Fields,
			})
			return
		}
		h.log.Error().Err(err).Msg("Failed to submit transaction")
		middleware.WriteError(w, http.StatusBadGateway, "Ledger request failed")
		return
	}

	h.log.Info().
		Str("transaction_id", created.ID).
		Str("description", proposal.Description).
		Msg("Transaction submitted")

	middleware.WriteJSON(w, http.StatusCreated, created)
}

// SyncHandler handles sync-related endpoints.
type SyncHandler struct {
	publisher jobs.Publisher
	runs      store.SyncRunRepository
	log       zerolog.Logger
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(publisher jobs.Publisher, runs store.SyncRunRepository, log zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		publisher: publisher,
		runs:      runs,
		log:       log,
	}
}

// EnqueueSync handles POST /api/sync
func (h *SyncHandler) EnqueueSync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Entity string `json:"entity"`
		Full   bool   `json:"full"`
	}

	// An empty body means "sync everything incrementally".
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Entity == "" {
		req.Entity = fireflysync.EntityAll
	}
	if !fireflysync.ValidEntity(req.Entity) {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown entity")
		return
	}

	ctx := r.Context()

	job := &jobs.SyncLedgerJob{
		Entity: req.Entity,
		Full:   req.Full,
	}

	if err := h.publisher.PublishSyncLedger(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue sync job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue sync job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("entity", req.Entity).Msg("Sync job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"entity": req.Entity,
		"status": string(job.Status),
	})
}

// ListRuns handles GET /api/sync
// It returns recorded sync runs, newest first. Jobs track in-process queue
// state; runs are the durable per-entity history.
func (h *SyncHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := h.runs.ListSyncRuns(ctx, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list sync runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list sync runs")
		return
	}

	if runs == nil {
		runs = []*store.SyncRunRow{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		Entity: query.Get("entity"),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// ReferenceHandler serves the mirrored ledger reference data.
type ReferenceHandler struct {
	reader store.ReferenceReader
	log    zerolog.Logger
}

// NewReferenceHandler creates a new reference handler.
func NewReferenceHandler(reader store.ReferenceReader, log zerolog.Logger) *ReferenceHandler {
	return &ReferenceHandler{
		reader: reader,
		log:    log,
	}
}

// ListAccounts handles GET /api/accounts
// The optional type query parameter narrows the list to one account type;
// the front end uses ?type=asset for its manual account picker.
func (h *ReferenceHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		accounts []*store.AccountRow
		err      error
	)
	if accountType := r.URL.Query().Get("type"); accountType != "" {
		accounts, err = h.reader.ListAccountsByType(ctx, accountType)
	} else {
		accounts, err = h.reader.ListAccounts(ctx)
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list accounts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list accounts")
		return
	}

	if accounts == nil {
		accounts = []*store.AccountRow{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// ListCategories handles GET /api/categories
func (h *ReferenceHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	categories, err := h.reader.ListCategories(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list categories")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}

	if categories == nil {
		categories = []*store.CategoryRow{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// ListTags handles GET /api/tags
func (h *ReferenceHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tags, err := h.reader.ListDistinctTags(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list tags")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list tags")
		return
	}

	if tags == nil {
		tags = []string{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"tags":  tags,
		"count": len(tags),
	})
}

// ListBills handles GET /api/bills
func (h *ReferenceHandler) ListBills(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bills, err := h.reader.ListBills(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list bills")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list bills")
		return
	}

	if bills == nil {
		bills = []*store.BillRow{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"bills": bills,
		"count": len(bills),
	})
}

// GetContext handles GET /api/context
// It returns the rendered reference context exactly as the extraction
// prompt embeds it, which makes prompt issues inspectable from the front end.
func (h *ReferenceHandler) GetContext(w http.ResponseWriter, r *http.Request) {
	rendered, err := intent.BuildContext(r.Context(), h.reader)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build context")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build context")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"context": rendered,
	})
}
