package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/letwinventory/harnessgraph/internal/metrics"
	"github.com/letwinventory/harnessgraph/internal/model"
	"github.com/letwinventory/harnessgraph/internal/store"
)

// cascade advances every active sub-assembly of parent that is behind
// target, recursively, and returns what it changed in visit order.
//
// It runs inside the unit of work of the parent's own transition (submit
// cascades review, release cascades released), so a failure anywhere rolls
// back the parent and every child together. Children at or beyond target
// are left alone and not descended into: the propagation is monotonic and
// never downgrades. Each child is re-read through tx, so one reached by
// several paths is advanced once and listed once. The returned slice is
// empty, not nil, when nothing moved.
func (e *Engine) cascade(ctx context.Context, tx *store.Tx, parent *model.Harness, target model.ReleaseState, actor string) ([]model.CascadeChange, error) {
	changes := []model.CascadeChange{}
	if err := e.cascadeFrom(ctx, tx, parent, target, actor, 1, &changes); err != nil {
		return nil, err
	}
	metrics.ObserveCascade(len(changes))
	return changes, nil
}

// cascadeFrom is the recursive step of cascade. depth counts the embedding
// level of parent's children, starting at 1.
//
// For each distinct harness id parent's document embeds, in document order:
//  1. re-read the child through tx; a missing child is skipped (a dangling
//     ref is reported by validation, not by the cascade)
//  2. skip inactive children and children whose state ranks at or beyond
//     target; their subtrees are not visited from this path
//  3. move the child to target, stamping releasedAt/releasedBy when target
//     is released, and write it back
//  4. append a history entry whose notes name the cascading parent, and
//     record a CascadeChange
//  5. recurse into the child with depth+1
//
// The write path rejects embedding cycles, so the depth limit
// (cascade.max_depth) only trips on corrupted stored data; it returns a
// CYCLE_REJECTED error rather than recursing forever.
func (e *Engine) cascadeFrom(ctx context.Context, tx *store.Tx, parent *model.Harness, target model.ReleaseState, actor string, depth int, changes *[]model.CascadeChange) error {
	if parent.Document == nil {
		return nil
	}
	if depth > e.maxCascadeDepth {
		return NewCycleError(parent.ID,
			fmt.Sprintf("cascade exceeded depth %d; stored embedding graph may contain a cycle", e.maxCascadeDepth))
	}

	for _, childID := range parent.Document.SubHarnessTargets() {
		if err := ctx.Err(); err != nil {
			return err
		}
		child, err := tx.GetHarness(ctx, childID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return err
		}
		if !child.Active || child.ReleaseState.Rank() >= target.Rank() {
			continue
		}

		prev := child.ReleaseState
		now := e.now()
		child.ReleaseState = target
		child.UpdatedAt = now
		if target == model.StateReleased {
			child.ReleasedAt = &now
			child.ReleasedBy = model.StringPtr(actor)
		}
		if err := tx.UpdateHarness(ctx, child); err != nil {
			return err
		}
		notes := fmt.Sprintf("Cascaded from parent harness %q", parent.Name)
		if err := e.appendHistory(ctx, tx, child, changeFor(target), actor, notes, nil); err != nil {
			return err
		}
		*changes = append(*changes, model.CascadeChange{
			ID:            child.ID,
			Name:          child.Name,
			PreviousState: prev,
			NewState:      target,
		})

		if err := e.cascadeFrom(ctx, tx, child, target, actor, depth+1, changes); err != nil {
			return err
		}
	}
	return nil
}

// changeFor maps a cascade target to the history change type it records.
func changeFor(target model.ReleaseState) model.ChangeType {
	if target == model.StateReleased {
		return model.ChangeReleased
	}
	return model.ChangeSubmittedReview
}
