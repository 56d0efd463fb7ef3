package engine

import (
	"context"
	"fmt"

	"github.com/letwinventory/harnessgraph/internal/graph"
	"github.com/letwinventory/harnessgraph/internal/model"
	"github.com/letwinventory/harnessgraph/internal/store"
	"github.com/letwinventory/harnessgraph/internal/validate"
)

// CreateInput describes a new harness. Revision defaults to "01".
type CreateInput struct {
	Name        string
	Revision    string
	Description string
	Document    *model.Document
	PartID      *string
	Thumbnail   *string
	Actor       string
}

// UpdateInput is a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	ID               string
	Name             *string
	Description      *string
	Document         *model.Document
	PartID           *string
	Thumbnail        *string
	ForceNewRevision bool
	Notes            string
	Actor            string
}

// UpdateResult is the row the update produced. Forked is true when a new
// revision row was created instead of editing in place.
type UpdateResult struct {
	Harness *model.Harness `json:"harness"`
	Forked  bool           `json:"forked"`
}

// ValidateResult is the outcome of a standalone validation.
type ValidateResult struct {
	Valid  bool                       `json:"valid"`
	Errors []validate.ValidationError `json:"errors"`
}

// Create inserts a new draft harness and records a created entry.
func (e *Engine) Create(ctx context.Context, in CreateInput) (*model.Harness, error) {
	var created *model.Harness
	id := e.ids.Generate()

	err := e.do(ctx, "create", id, in.Actor, func(tx *store.Tx) error {
		rev := in.Revision
		if rev == "" {
			rev = model.FirstRevision
		}

		var row []validate.ValidationError
		if in.Name == "" {
			row = append(row, validate.ValidationError{
				Field: "name", Code: validate.ErrNameRequired, Message: "harness name is required",
			})
		}
		if !model.IsPreProduction(rev) {
			row = append(row, validate.ValidationError{
				Field: "revision", Code: validate.ErrInvalidRevision,
				Message: fmt.Sprintf("initial revision %q must be pre-production (\"01\"..\"99\")", rev),
			})
		}
		if err := checkDocument(ctx, tx, id, in.Document, row...); err != nil {
			return err
		}

		now := e.now()
		h := &model.Harness{
			ID:           id,
			Name:         in.Name,
			PartID:       in.PartID,
			Revision:     rev,
			Description:  in.Description,
			Document:     in.Document,
			Thumbnail:    in.Thumbnail,
			ReleaseState: model.StateDraft,
			Active:       true,
			CreatedBy:    model.StringPtr(in.Actor),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.InsertHarness(ctx, h); err != nil {
			return err
		}
		if err := writeEdges(ctx, tx, h); err != nil {
			return err
		}
		if err := e.appendHistory(ctx, tx, h, model.ChangeCreated, in.Actor, "", in.Document); err != nil {
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

// Update applies a partial update. Drafts are edited in place; released
// rows (or any row with ForceNewRevision) fork a new revision; rows in
// review must be rejected first.
//
// Routing on the loaded row:
//   - review: ILLEGAL_TRANSITION, nothing written
//   - released, or ForceNewRevision on any state: fork (see fork), which
//     rejects a production letter revision
//   - draft: validate the replacement document if one is given, apply the
//     non-nil fields and append an updated entry (with a snapshot only when
//     the document changed)
//
// A nil field leaves the column unchanged; an empty Name is V101.
func (e *Engine) Update(ctx context.Context, in UpdateInput) (*UpdateResult, error) {
	var result *UpdateResult

	err := e.do(ctx, "update", in.ID, in.Actor, func(tx *store.Tx) error {
		h, err := getActive(ctx, tx, in.ID)
		if err != nil {
			return err
		}

		if in.ForceNewRevision || h.ReleaseState == model.StateReleased {
			forked, err := e.fork(ctx, tx, h, forkOverrides{
				name:        in.Name,
				description: in.Description,
				document:    in.Document,
				partID:      in.PartID,
				thumbnail:   in.Thumbnail,
			}, in.Actor, in.Notes)
			if err != nil {
				return err
			}
			result = &UpdateResult{Harness: forked, Forked: true}
			return nil
		}
		if h.ReleaseState != model.StateDraft {
			return NewIllegalTransitionError(h.ID, "update", h.ReleaseState, model.StateDraft, model.StateReleased)
		}

		var row []validate.ValidationError
		if in.Name != nil {
			if *in.Name == "" {
				row = append(row, validate.ValidationError{
					Field: "name", Code: validate.ErrNameRequired, Message: "harness name is required",
				})
			}
			h.Name = *in.Name
		}
		if err := checkDocument(ctx, tx, h.ID, in.Document, row...); err != nil {
			return err
		}
		if in.Description != nil {
			h.Description = *in.Description
		}
		if in.PartID != nil {
			h.PartID = model.StringPtr(*in.PartID)
		}
		if in.Thumbnail != nil {
			h.Thumbnail = model.StringPtr(*in.Thumbnail)
		}
		if in.Document != nil {
			h.Document = in.Document
		}
		h.UpdatedAt = e.now()

		if err := tx.UpdateHarness(ctx, h); err != nil {
			return err
		}
		if in.Document != nil {
			if err := writeEdges(ctx, tx, h); err != nil {
				return err
			}
		}
		if err := e.appendHistory(ctx, tx, h, model.ChangeUpdated, in.Actor, in.Notes, in.Document); err != nil {
			return err
		}
		result = &UpdateResult{Harness: h}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Validate checks doc without writing. OwnerID, when set, enables the cycle
// check against the stored graph.
func (e *Engine) Validate(ctx context.Context, doc *model.Document, ownerID string) (*ValidateResult, error) {
	var result *ValidateResult
	err := e.read(ctx, "validate", ownerID, func(tx *store.Tx) error {
		findings, err := validate.Validate(ctx, doc, validate.Options{
			OwnerID: ownerID,
			Lookup:  txLookup{tx: tx},
		})
		if err != nil {
			return err
		}
		result = &ValidateResult{Valid: len(findings) == 0, Errors: findings}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Deactivate soft-deletes a harness. It fails with STILL_REFERENCED while
// any active harness embeds it.
func (e *Engine) Deactivate(ctx context.Context, id, actor string) error {
	return e.do(ctx, "deactivate", id, actor, func(tx *store.Tx) error {
		h, err := getActive(ctx, tx, id)
		if err != nil {
			return err
		}
		parents, err := graph.FindParents(ctx, tx, e.parentMode, id)
		if err != nil {
			return err
		}
		if len(parents) > 0 {
			return NewStillReferencedError(id, graph.Refs(parents))
		}
		h.Active = false
		h.UpdatedAt = e.now()
		return tx.UpdateHarness(ctx, h)
	})
}

// appendHistory writes one entry for h in its current state. A non-nil
// snapshot is stored with its digest.
func (e *Engine) appendHistory(ctx context.Context, tx *store.Tx, h *model.Harness, change model.ChangeType, actor, notes string, snapshot *model.Document) error {
	entry := &model.HistoryEntry{
		ID:           e.ids.Generate(),
		HarnessID:    h.ID,
		Revision:     h.Revision,
		ReleaseState: h.ReleaseState,
		ChangedBy:    model.StringPtr(actor),
		ChangeType:   change,
		ChangeNotes:  model.StringPtr(notes),
		CreatedAt:    e.now(),
	}
	if snapshot != nil {
		digest, err := model.DocumentDigest(snapshot)
		if err != nil {
			return err
		}
		entry.Snapshot = snapshot
		entry.SnapshotHash = digest
	}
	return tx.AppendHistory(ctx, entry)
}
