package engine

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/letwinventory/harnessgraph/internal/graph"
	"github.com/letwinventory/harnessgraph/internal/model"
	"github.com/letwinventory/harnessgraph/internal/query"
	"github.com/letwinventory/harnessgraph/internal/store"
)

// ListFilter selects rows for List. Zero values match everything except
// inactive rows, which need IncludeInactive.
type ListFilter struct {
	NameLike        string
	States          []model.ReleaseState
	PartID          string
	IncludeInactive bool
}

// predicate builds the store filter.
func (f ListFilter) predicate() query.Predicate {
	var preds []query.Predicate
	if !f.IncludeInactive {
		preds = append(preds, query.Equals{Field: "active", Value: true})
	}
	if f.NameLike != "" {
		preds = append(preds, query.Like{Field: "name", Pattern: "%" + query.EscapeLike(f.NameLike) + "%"})
	}
	if len(f.States) > 0 {
		values := make([]any, len(f.States))
		for i, s := range f.States {
			values[i] = string(s)
		}
		preds = append(preds, query.In{Field: "releaseState", Values: values})
	}
	if f.PartID != "" {
		preds = append(preds, query.Equals{Field: "partId", Value: f.PartID})
	}
	return query.All(preds...)
}

// AuditReport lists integrity problems in the stored embedding graph.
type AuditReport struct {
	Cycles   []graph.CycleReport `json:"cycles"`
	Dangling []store.Edge        `json:"dangling"`
}

// OK reports whether the audit found nothing.
func (r *AuditReport) OK() bool {
	return len(r.Cycles) == 0 && len(r.Dangling) == 0
}

// Get returns a harness row, active or not.
func (e *Engine) Get(ctx context.Context, id string) (*model.Harness, error) {
	var h *model.Harness
	err := e.read(ctx, "get", id, func(tx *store.Tx) error {
		var err error
		h, err = tx.GetHarness(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// List returns rows matching f ordered by name, then id.
func (e *Engine) List(ctx context.Context, f ListFilter) ([]*model.Harness, error) {
	var hs []*model.Harness
	err := e.read(ctx, "list", "", func(tx *store.Tx) error {
		var err error
		hs, err = tx.ListHarnesses(ctx, f.predicate())
		return err
	})
	if err != nil {
		return nil, err
	}
	return hs, nil
}

// History returns a harness's entries most recent first. Inactive
// harnesses keep their history readable.
func (e *Engine) History(ctx context.Context, id string) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	err := e.read(ctx, "history", id, func(tx *store.Tx) error {
		if _, err := tx.GetHarness(ctx, id); err != nil {
			return err
		}
		var err error
		entries, err = tx.ReadHistory(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Parents returns the active harnesses that embed id.
func (e *Engine) Parents(ctx context.Context, id string) ([]model.HarnessRef, error) {
	var refs []model.HarnessRef
	err := e.read(ctx, "parents", id, func(tx *store.Tx) error {
		if _, err := tx.GetHarness(ctx, id); err != nil {
			return err
		}
		parents, err := graph.FindParents(ctx, tx, e.parentMode, id)
		if err != nil {
			return err
		}
		refs = graph.Refs(parents)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// SubData returns the documents of the given harnesses keyed by id. Rows are
// read concurrently; any unknown id fails the whole call with NOT_FOUND.
// Inactive rows are returned.
func (e *Engine) SubData(ctx context.Context, ids []string) (map[string]*model.Document, error) {
	out := make(map[string]*model.Document, len(ids))
	err := e.read(ctx, "sub_data", "", func(tx *store.Tx) error {
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.subDataConcurrency)

		for _, id := range ids {
			g.Go(func() error {
				h, err := tx.GetHarness(gctx, id)
				if err != nil {
					return err
				}
				mu.Lock()
				out[id] = h.Document
				mu.Unlock()
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Audit scans the stored embedding graph for cycles among active harnesses
// and for edges to missing or inactive sub-assemblies.
func (e *Engine) Audit(ctx context.Context) (*AuditReport, error) {
	report := &AuditReport{}
	err := e.read(ctx, "audit", "", func(tx *store.Tx) error {
		edges, err := tx.ActiveEdges(ctx)
		if err != nil {
			return err
		}
		report.Cycles = graph.AnalyzeCycles(edges)
		if report.Cycles == nil {
			report.Cycles = []graph.CycleReport{}
		}
		report.Dangling, err = tx.DanglingEdges(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if report.Dangling == nil {
		report.Dangling = []store.Edge{}
	}
	return report, nil
}
