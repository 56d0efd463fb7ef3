package engine

import (
	"context"
	"fmt"

	"github.com/letwinventory/harnessgraph/internal/model"
	"github.com/letwinventory/harnessgraph/internal/store"
)

// Revert restores the document captured by a history entry onto a draft
// harness. State, revision and the other columns are left alone; the
// restore is recorded as an updated entry carrying the restored snapshot.
func (e *Engine) Revert(ctx context.Context, id, entryID, actor string) (*model.Harness, error) {
	var reverted *model.Harness

	err := e.do(ctx, "revert", id, actor, func(tx *store.Tx) error {
		h, err := getActive(ctx, tx, id)
		if err != nil {
			return err
		}
		if h.ReleaseState != model.StateDraft {
			return NewRevertUnavailableError(id,
				fmt.Sprintf("only draft harnesses can be reverted (current state %s)", h.ReleaseState))
		}

		entry, err := tx.GetHistoryEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.HarnessID != id {
			return NewNotFoundError("history entry", entryID)
		}
		if entry.Snapshot == nil {
			return NewRevertUnavailableError(id,
				fmt.Sprintf("history entry %s has no snapshot", entryID))
		}

		if err := checkDocument(ctx, tx, id, entry.Snapshot); err != nil {
			return err
		}

		h.Document = entry.Snapshot
		h.UpdatedAt = e.now()
		if err := tx.UpdateHarness(ctx, h); err != nil {
			return err
		}
		if err := writeEdges(ctx, tx, h); err != nil {
			return err
		}
		notes := fmt.Sprintf("Reverted to history entry %s", entryID)
		if err := e.appendHistory(ctx, tx, h, model.ChangeUpdated, actor, notes, entry.Snapshot); err != nil {
			return err
		}
		reverted = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reverted, nil
}
