package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/letwinventory/harnessgraph/internal/model"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestHarness returns a draft "01" harness embedding children.
func createTestHarness(id, name string, children ...string) *model.Harness {
	doc := model.NewDocument(name)
	for _, c := range children {
		doc.SubHarnesses = append(doc.SubHarnesses, model.SubHarnessRef{ID: "inst-" + c, HarnessID: c})
	}
	return &model.Harness{
		ID:           id,
		Name:         name,
		Revision:     model.FirstRevision,
		Document:     doc,
		ReleaseState: model.StateDraft,
		Active:       true,
		CreatedAt:    testTime,
		UpdatedAt:    testTime,
	}
}

// mustInsert inserts harnesses and their edges in one transaction.
func mustInsert(t *testing.T, s *Store, hs ...*model.Harness) {
	t.Helper()
	err := s.RunInTx(context.Background(), func(tx *Tx) error {
		for _, h := range hs {
			if err := tx.InsertHarness(context.Background(), h); err != nil {
				return err
			}
			if err := tx.ReplaceEdges(context.Background(), h.ID, h.Document.SubHarnessTargets()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
}
