package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/firefly-assistant/internal/jobs"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus, timeout time.Duration) *jobs.SyncLedgerJob {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return nil
}

func TestQueuePublishAndProcess(t *testing.T) {
	store := NewStore()
	queue := NewQueue(4, store)
	defer queue.Close()

	handled := make(chan string, 1)
	handler := func(ctx context.Context, job jobs.Job) error {
		handled <- job.GetID()
		return nil
	}
	if err := queue.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.SyncLedgerJob{Entity: "accounts"}
	if err := queue.PublishSyncLedger(context.Background(), job); err != nil {
		t.Fatalf("PublishSyncLedger() error = %v", err)
	}
	if job.JobID == "" {
		t.Fatal("PublishSyncLedger() did not assign a job ID")
	}

	select {
	case got := <-handled:
		if got != job.JobID {
			t.Errorf("handler saw job %s, want %s", got, job.JobID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never invoked")
	}

	final := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted, 2*time.Second)
	if final.StartedAt == nil || final.CompletedAt == nil {
		t.Error("completed job is missing its timestamps")
	}
	if final.RetryCount != 0 {
		t.Errorf("RetryCount = %d, want 0", final.RetryCount)
	}
}

func TestQueueRetriesFailedJob(t *testing.T) {
	store := NewStore()
	queue := NewQueue(4, store)
	defer queue.Close()

	var calls int32
	handler := func(ctx context.Context, job jobs.Job) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return errors.New("ledger unavailable")
		}
		return nil
	}
	if err := queue.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.SyncLedgerJob{Entity: "transactions"}
	if err := queue.PublishSyncLedger(context.Background(), job); err != nil {
		t.Fatalf("PublishSyncLedger() error = %v", err)
	}

	// The first retry is re-enqueued after a one second backoff.
	final := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted, 5*time.Second)
	if final.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", final.RetryCount)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("handler calls = %d, want 2", got)
	}
}

func TestQueuePublishAfterClose(t *testing.T) {
	queue := NewQueue(1, NewStore())
	if err := queue.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	err := queue.PublishSyncLedger(context.Background(), &jobs.SyncLedgerJob{Entity: "all"})
	if err == nil {
		t.Error("PublishSyncLedger() after Close() error = nil, want failure")
	}
}

func TestStoreCopySemantics(t *testing.T) {
	store := NewStore()
	job := &jobs.SyncLedgerJob{JobID: "j1", Entity: "bills", Status: jobs.JobStatusPending}
	if err := store.SaveJob(context.Background(), job); err != nil {
		t.Fatalf("SaveJob() error = %v", err)
	}

	// Mutating the caller's struct must not leak into the store.
	job.Status = jobs.JobStatusFailed
	got, err := store.GetJob(context.Background(), "j1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Status != jobs.JobStatusPending {
		t.Errorf("Status = %s, want pending", got.Status)
	}

	// Mutating a returned copy must not leak either.
	got.Entity = "accounts"
	again, err := store.GetJob(context.Background(), "j1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if again.Entity != "bills" {
		t.Errorf("Entity = %s, want bills", again.Entity)
	}
}

func TestStoreListJobsFilter(t *testing.T) {
	store := NewStore()
	seed := []*jobs.SyncLedgerJob{
		{JobID: "j1", Entity: "accounts", Status: jobs.JobStatusPending},
		{JobID: "j2", Entity: "accounts", Status: jobs.JobStatusCompleted},
		{JobID: "j3", Entity: "transactions", Status: jobs.JobStatusPending},
	}
	for _, job := range seed {
		if err := store.SaveJob(context.Background(), job); err != nil {
			t.Fatalf("SaveJob(%s) error = %v", job.JobID, err)
		}
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   int
	}{
		{"by entity", jobs.JobFilter{Entity: "accounts"}, 2},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusPending}, 2},
		{"by entity and status", jobs.JobFilter{Entity: "accounts", Status: jobs.JobStatusPending}, 1},
		{"with limit", jobs.JobFilter{Limit: 1}, 1},
		{"offset past the end", jobs.JobFilter{Offset: 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListJobs(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("ListJobs() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("ListJobs() returned %d jobs, want %d", len(got), tt.want)
			}
		})
	}
}

func TestGetJobNotFound(t *testing.T) {
	if _, err := NewStore().GetJob(context.Background(), "missing"); err == nil {
		t.Error("GetJob() error = nil, want failure")
	}
}
