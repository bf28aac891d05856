package ledger

import (
	"github.com/aymanbagabas/go-udiff"
)

// Preview is an update computed against the current file but not written.
type Preview struct {
	Path   string
	Before []byte
	After  []byte
	Update *UsageUpdate
}

// PreviewUpdate computes what UpdateUsed would write.
func (s *Store) PreviewUpdate(productID string, delta int64) (*Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, next, update, err := s.plan(productID, delta)
	if err != nil {
		return nil, err
	}
	before, err := cur.encode()
	if err != nil {
		return nil, err
	}
	after, err := next.encode()
	if err != nil {
		return nil, err
	}
	return &Preview{Path: cur.Path, Before: before, After: after, Update: update}, nil
}

// Diff renders the change as a unified diff.
func (p *Preview) Diff() string {
	return udiff.Unified("a/"+p.Path, "b/"+p.Path, string(p.Before), string(p.After))
}
