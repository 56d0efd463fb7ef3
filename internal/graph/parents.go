package graph

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/letwinventory/harnessgraph/internal/model"
)

// ParentMode selects how FindParents locates embedding harnesses.
type ParentMode string

const (
	// ParentsIndexed reads the maintained reverse-edge index.
	ParentsIndexed ParentMode = "index"
	// ParentsScan decodes every active document and checks its references.
	ParentsScan ParentMode = "scan"
)

// Valid reports whether m names a known mode.
func (m ParentMode) Valid() bool {
	return m == ParentsIndexed || m == ParentsScan
}

// ParentSource is what FindParents reads from. The store's transaction
// handle implements it.
type ParentSource interface {
	// ParentsOf returns active harnesses with an indexed edge to childID.
	ParentsOf(ctx context.Context, childID string) ([]*model.Harness, error)
	// ListActiveHarnesses returns every active harness with its document.
	ListActiveHarnesses(ctx context.Context) ([]*model.Harness, error)
}

// FindParents returns the active harnesses that embed harnessID, ordered by
// name then id.
func FindParents(ctx context.Context, src ParentSource, mode ParentMode, harnessID string) ([]*model.Harness, error) {
	var (
		parents []*model.Harness
		err     error
	)
	switch mode {
	case ParentsScan:
		parents, err = scanParents(ctx, src, harnessID)
	case ParentsIndexed, "":
		parents, err = src.ParentsOf(ctx, harnessID)
	default:
		return nil, fmt.Errorf("unknown parent mode %q", mode)
	}
	if err != nil {
		return nil, fmt.Errorf("find parents of %s: %w", harnessID, err)
	}
	sortHarnesses(parents)
	return parents, nil
}

func scanParents(ctx context.Context, src ParentSource, harnessID string) ([]*model.Harness, error) {
	active, err := src.ListActiveHarnesses(ctx)
	if err != nil {
		return nil, err
	}
	parents := []*model.Harness{}
	for _, h := range active {
		if h.Document == nil {
			continue
		}
		if slices.Contains(h.Document.SubHarnessTargets(), harnessID) {
			parents = append(parents, h)
		}
	}
	return parents, nil
}

func sortHarnesses(hs []*model.Harness) {
	slices.SortFunc(hs, func(a, b *model.Harness) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// Refs projects harnesses to {id, name} pairs.
func Refs(hs []*model.Harness) []model.HarnessRef {
	out := make([]model.HarnessRef, len(hs))
	for i, h := range hs {
		out[i] = h.Ref()
	}
	return out
}
