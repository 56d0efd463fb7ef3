package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/letwinventory/harnessgraph/internal/model"
	"github.com/letwinventory/harnessgraph/internal/store"
	"github.com/letwinventory/harnessgraph/internal/testutil"
)

const testActor = "tester"

// newTestEngine creates an engine over a temp-dir store with a
// deterministic clock and id sequence.
func newTestEngine(t *testing.T, opts ...Option) (*Engine, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	base := []Option{
		WithClock(testutil.NewDeterministicClock()),
		WithIDGenerator(testutil.NewSequenceGenerator("id")),
	}
	return New(s, append(base, opts...)...), s
}

// doc returns a valid document named name that embeds children.
func doc(name string, children ...string) *model.Document {
	d := model.NewDocument(name)
	for _, c := range children {
		d.SubHarnesses = append(d.SubHarnesses, model.SubHarnessRef{ID: "inst-" + c, HarnessID: c})
	}
	return d
}

// mustCreate creates a draft harness embedding children.
func mustCreate(t *testing.T, e *Engine, name string, children ...string) *model.Harness {
	t.Helper()
	h, err := e.Create(context.Background(), CreateInput{
		Name:     name,
		Document: doc(name, children...),
		Actor:    testActor,
	})
	require.NoError(t, err)
	return h
}

// mustRelease walks a draft harness through review to released.
func mustRelease(t *testing.T, e *Engine, id string) *TransitionResult {
	t.Helper()
	_, err := e.SubmitReview(context.Background(), id, testActor, "")
	require.NoError(t, err)
	res, err := e.Release(context.Background(), id, testActor, "")
	require.NoError(t, err)
	return res
}

// mustGet reads a row.
func mustGet(t *testing.T, e *Engine, id string) *model.Harness {
	t.Helper()
	h, err := e.Get(context.Background(), id)
	require.NoError(t, err)
	return h
}

// mustHistory reads a harness's history.
func mustHistory(t *testing.T, e *Engine, id string) []model.HistoryEntry {
	t.Helper()
	entries, err := e.History(context.Background(), id)
	require.NoError(t, err)
	return entries
}

// changeTypes lists entry change types most recent first.
func changeTypes(entries []model.HistoryEntry) []model.ChangeType {
	out := make([]model.ChangeType, len(entries))
	for i, e := range entries {
		out[i] = e.ChangeType
	}
	return out
}

// codes lists the codes of an *Error's validation findings.
func codes(t *testing.T, err error) []string {
	t.Helper()
	var e *Error
	require.ErrorAs(t, err, &e)
	out := make([]string, len(e.Validation))
	for i, v := range e.Validation {
		out[i] = v.Code
	}
	return out
}
