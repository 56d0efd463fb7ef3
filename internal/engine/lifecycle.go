package engine

import (
	"context"

	"github.com/letwinventory/harnessgraph/internal/model"
	"github.com/letwinventory/harnessgraph/internal/store"
)

// TransitionResult is the transitioned row and, for submit and release,
// the sub-assemblies the cascade advanced.
type TransitionResult struct {
	Harness *model.Harness        `json:"harness"`
	Cascade []model.CascadeChange `json:"cascade"`
}

// SubmitReview moves a draft to review and cascades review to its
// sub-assemblies.
func (e *Engine) SubmitReview(ctx context.Context, id, actor, notes string) (*TransitionResult, error) {
	return e.transition(ctx, "submit_review", id, actor, notes,
		model.StateDraft, model.StateReview, model.ChangeSubmittedReview, true)
}

// Reject returns a harness in review to draft.
func (e *Engine) Reject(ctx context.Context, id, actor, notes string) (*TransitionResult, error) {
	return e.transition(ctx, "reject", id, actor, notes,
		model.StateReview, model.StateDraft, model.ChangeRejected, false)
}

// Release moves a harness in review to released, stamps release metadata
// and cascades release to its sub-assemblies.
func (e *Engine) Release(ctx context.Context, id, actor, notes string) (*TransitionResult, error) {
	return e.transition(ctx, "release", id, actor, notes,
		model.StateReview, model.StateReleased, model.ChangeReleased, true)
}

// transition moves id from one state to the next as a single unit of work:
//  1. load the active row; a row not in from is ILLEGAL_TRANSITION with the
//     current and expected state in Details
//  2. set the new state, stamping releasedAt/releasedBy when to is
//     released, and write the row
//  3. append the change entry with notes
//  4. when cascade is set, advance the sub-assemblies to the same state and
//     attach the report
//
// A failure in any step rolls back all of them, cascade included.
func (e *Engine) transition(ctx context.Context, op, id, actor, notes string, from, to model.ReleaseState, change model.ChangeType, cascade bool) (*TransitionResult, error) {
	var result *TransitionResult

	err := e.do(ctx, op, id, actor, func(tx *store.Tx) error {
		h, err := getActive(ctx, tx, id)
		if err != nil {
			return err
		}
		if h.ReleaseState != from {
			return NewIllegalTransitionError(id, op, h.ReleaseState, from)
		}

		now := e.now()
		h.ReleaseState = to
		h.UpdatedAt = now
		if to == model.StateReleased {
			h.ReleasedAt = &now
			h.ReleasedBy = model.StringPtr(actor)
		}
		if err := tx.UpdateHarness(ctx, h); err != nil {
			return err
		}
		if err := e.appendHistory(ctx, tx, h, change, actor, notes, nil); err != nil {
			return err
		}

		result = &TransitionResult{Harness: h, Cascade: []model.CascadeChange{}}
		if cascade {
			changes, err := e.cascade(ctx, tx, h, to, actor)
			if err != nil {
				return err
			}
			result.Cascade = changes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
