package engine

import (
	"context"

	"github.com/letwinventory/harnessgraph/internal/graph"
	"github.com/letwinventory/harnessgraph/internal/metrics"
	"github.com/letwinventory/harnessgraph/internal/model"
	"github.com/letwinventory/harnessgraph/internal/store"
	"github.com/letwinventory/harnessgraph/internal/validate"
)

// txLookup answers validator lookups from inside the unit of work.
type txLookup struct {
	tx *store.Tx
}

func (l txLookup) IsActiveHarness(ctx context.Context, id string) (bool, error) {
	return l.tx.IsActiveHarness(ctx, id)
}

func (l txLookup) WouldCreateCycle(ctx context.Context, parentID, childID string) (bool, error) {
	return graph.WouldCreateCycle(ctx, l.tx, parentID, childID)
}

// checkDocument validates doc for ownerID, prepending any row-level
// findings. Returns a VALIDATION_FAILED or CYCLE_REJECTED *Error when there
// is at least one finding.
func checkDocument(ctx context.Context, tx *store.Tx, ownerID string, doc *model.Document, rowFindings ...validate.ValidationError) error {
	findings := append([]validate.ValidationError{}, rowFindings...)
	if doc != nil {
		docFindings, err := validate.Validate(ctx, doc, validate.Options{
			OwnerID: ownerID,
			Lookup:  txLookup{tx: tx},
		})
		if err != nil {
			return err
		}
		findings = append(findings, docFindings...)
	}
	if len(findings) == 0 {
		return nil
	}
	for _, f := range findings {
		metrics.ObserveValidationError(f.Code)
	}
	return NewValidationError(ownerID, findings)
}

// writeEdges re-derives the edge index of h from its document.
func writeEdges(ctx context.Context, tx *store.Tx, h *model.Harness) error {
	var children []string
	if h.Document != nil {
		children = h.Document.SubHarnessTargets()
	}
	return tx.ReplaceEdges(ctx, h.ID, children)
}

// getActive loads a harness that must exist and be active.
func getActive(ctx context.Context, tx *store.Tx, id string) (*model.Harness, error) {
	h, err := tx.GetHarness(ctx, id)
	if err != nil {
		return nil, err
	}
	if !h.Active {
		return nil, NewNotFoundError("harness", id)
	}
	return h, nil
}
