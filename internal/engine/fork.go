package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/letwinventory/harnessgraph/internal/model"
	"github.com/letwinventory/harnessgraph/internal/store"
	"github.com/letwinventory/harnessgraph/internal/validate"
)

// forkOverrides are the fields an update supplies for the new revision.
type forkOverrides struct {
	name        *string
	description *string
	document    *model.Document
	partID      *string
	thumbnail   *string
}

// fork creates the next revision of src as a new draft row. src is never
// written.
//
// Steps, all inside the caller's tx:
//  1. derive the next label with model.NextRevision. "99" overflows and a
//     letter label has no fork successor (letters come only from
//     ReleaseToProduction); both are ILLEGAL_TRANSITION and nothing is written
//  2. clone src under a fresh id and apply the overrides; a replacement
//     document is validated (row findings first, then document findings,
//     with the cycle check run against the new id)
//  3. reset to draft, clear release metadata and point previousRevisionID
//     at src
//  4. insert the row and append a new_revision entry carrying the document
//     snapshot, so the fork itself can be reverted to
func (e *Engine) fork(ctx context.Context, tx *store.Tx, src *model.Harness, o forkOverrides, actor, notes string) (*model.Harness, error) {
	rev, err := model.NextRevision(src.Revision)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrRevisionOverflow):
			return nil, &Error{
				Code:      ErrCodeIllegalTransition,
				Message:   fmt.Sprintf("revision %s has no successor", src.Revision),
				HarnessID: src.ID,
				Details:   map[string]string{"revision": src.Revision},
				Err:       err,
			}
		case errors.Is(err, model.ErrProductionRevision):
			return nil, &Error{
				Code:      ErrCodeIllegalTransition,
				Message:   fmt.Sprintf("production revision %s cannot be forked", src.Revision),
				HarnessID: src.ID,
				Details: map[string]string{
					"revision":      src.Revision,
					"current_form":  "production",
					"expected_form": "pre-production",
				},
				Err: err,
			}
		}
		return nil, err
	}

	h := src.Clone()
	h.ID = e.ids.Generate()
	h.Revision = rev

	var row []validate.ValidationError
	if o.name != nil {
		if *o.name == "" {
			row = append(row, validate.ValidationError{
				Field: "name", Code: validate.ErrNameRequired, Message: "harness name is required",
			})
		}
		h.Name = *o.name
	}
	if err := checkDocument(ctx, tx, h.ID, o.document, row...); err != nil {
		return nil, err
	}
	if o.description != nil {
		h.Description = *o.description
	}
	if o.partID != nil {
		h.PartID = model.StringPtr(*o.partID)
	}
	if o.thumbnail != nil {
		h.Thumbnail = model.StringPtr(*o.thumbnail)
	}
	if o.document != nil {
		h.Document = o.document
	}

	now := e.now()
	h.ReleaseState = model.StateDraft
	h.ReleasedAt = nil
	h.ReleasedBy = nil
	h.PreviousRevisionID = model.StringPtr(src.ID)
	h.Active = true
	h.CreatedBy = model.StringPtr(actor)
	h.CreatedAt = now
	h.UpdatedAt = now

	if err := tx.InsertHarness(ctx, h); err != nil {
		return nil, err
	}
	if err := writeEdges(ctx, tx, h); err != nil {
		return nil, err
	}
	if notes == "" {
		notes = fmt.Sprintf("Forked from revision %s", src.Revision)
	}
	if err := e.appendHistory(ctx, tx, h, model.ChangeNewRevision, actor, notes, h.Document); err != nil {
		return nil, err
	}
	return h, nil
}

// ReleaseToProduction creates revision "A" of a released pre-production
// harness as a new released row. The source row is not modified and no
// cascade runs.
//
// The source must be active, released and numeric; anything else is
// ILLEGAL_TRANSITION naming the current and expected state. The new row
// records new_revision then released, with releasedAt/releasedBy stamped
// from actor. This is the only operation that mints a letter revision.
func (e *Engine) ReleaseToProduction(ctx context.Context, id, actor string) (*model.Harness, error) {
	var created *model.Harness

	err := e.do(ctx, "release_to_production", id, actor, func(tx *store.Tx) error {
		src, err := getActive(ctx, tx, id)
		if err != nil {
			return err
		}
		if src.ReleaseState != model.StateReleased {
			return NewIllegalTransitionError(id, "release to production", src.ReleaseState, model.StateReleased)
		}
		if !model.IsPreProduction(src.Revision) {
			return &Error{
				Code:      ErrCodeIllegalTransition,
				Message:   fmt.Sprintf("revision %s is already a production revision", src.Revision),
				HarnessID: id,
				Details:   map[string]string{"revision": src.Revision},
			}
		}

		now := e.now()
		h := src.Clone()
		h.ID = e.ids.Generate()
		h.Revision = model.FirstProductionRevision
		h.ReleaseState = model.StateReleased
		h.ReleasedAt = &now
		h.ReleasedBy = model.StringPtr(actor)
		h.PreviousRevisionID = model.StringPtr(src.ID)
		h.CreatedBy = model.StringPtr(actor)
		h.CreatedAt = now
		h.UpdatedAt = now

		if err := tx.InsertHarness(ctx, h); err != nil {
			return err
		}
		if err := writeEdges(ctx, tx, h); err != nil {
			return err
		}
		notes := fmt.Sprintf("Production release of revision %s", src.Revision)
		if err := e.appendHistory(ctx, tx, h, model.ChangeNewRevision, actor, notes, h.Document); err != nil {
			return err
		}
		if err := e.appendHistory(ctx, tx, h, model.ChangeReleased, actor, "", nil); err != nil {
			return err
		}
		created = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
