package intent

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/firefly-assistant/internal/domain"
	"github.com/dvloznov/firefly-assistant/internal/store"
)

// lookupSnapshot is the resolver's point-in-time view of account and bill
// names. It is rebuilt explicitly via Refresh, never implicitly at package
// load, and covers accounts of every type so any mirrored id resolves.
type lookupSnapshot struct {
	reader store.ReferenceReader

	mu           sync.RWMutex
	accountNames map[int64]string
	billNames    map[int64]string
}

func newLookupSnapshot(reader store.ReferenceReader) *lookupSnapshot {
	return &lookupSnapshot{
		reader:       reader,
		accountNames: make(map[int64]string),
		billNames:    make(map[int64]string),
	}
}

// Refresh reloads the snapshot from the reference store.
func (s *lookupSnapshot) Refresh(ctx context.Context) error {
	accounts, err := s.reader.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("Refresh: loading accounts: %w", err)
	}
	bills, err := s.reader.ListBills(ctx)
	if err != nil {
		return fmt.Errorf("Refresh: loading bills: %w", err)
	}

	accountNames := make(map[int64]string, len(accounts))
	for _, acc := range accounts {
		accountNames[acc.ID] = acc.Name
	}
	billNames := make(map[int64]string, len(bills))
	for _, bill := range bills {
		billNames[bill.ID] = bill.Name
	}

	s.mu.Lock()
	s.accountNames = accountNames
	s.billNames = billNames
	s.mu.Unlock()
	return nil
}

// AccountName returns the mirrored name behind a reference, or "" when the
// reference is unresolved or the id is not mirrored.
func (s *lookupSnapshot) AccountName(ref domain.Ref) string {
	if !ref.Resolved() {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountNames[ref.ID]
}

// BillName returns the mirrored bill name behind a reference, or "".
func (s *lookupSnapshot) BillName(ref domain.Ref) string {
	if !ref.Resolved() {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.billNames[ref.ID]
}
