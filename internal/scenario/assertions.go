package scenario

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/letwinventory/harnessgraph/internal/model"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s -> %s\n", ev.Seq, ev.Command, ev.Harness, ev.Outcome)
	}
	return buf.String()
}

// evaluate runs every assertion and returns the failure messages.
func (r *Runner) evaluate(ctx context.Context, assertions []Assertion, result *Result) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalState:
			err = r.assertFinalState(ctx, result.Trace, a)
		case AssertHistory:
			err = r.assertHistory(ctx, result.Trace, a)
		case AssertParents:
			err = r.assertParents(ctx, result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

// assertTraceContains checks for a step with the command and, when given,
// the outcome.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Command == a.Command && (a.Outcome == "" || ev.Outcome == a.Outcome) {
			return nil
		}
	}
	expected := a.Command
	if a.Outcome != "" {
		expected += " with outcome " + a.Outcome
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the commands appear in order. Intervening
// steps are allowed.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Commands) && ev.Command == a.Commands[next] {
			next++
		}
	}
	if next == len(a.Commands) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: strings.Join(a.Commands, " -> "),
		Actual:   fmt.Sprintf("matched only %v", a.Commands[:next]),
		Trace:    trace,
	}
}

// assertTraceCount checks the exact number of steps running a command.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	n := 0
	for _, ev := range trace {
		if ev.Command == a.Command {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%d %s steps", a.Count, a.Command),
		Actual:   fmt.Sprintf("%d", n),
		Trace:    trace,
	}
}

// assertFinalState compares selected fields of a harness row.
func (r *Runner) assertFinalState(ctx context.Context, trace []TraceEvent, a Assertion) error {
	h, err := r.engine.Get(ctx, r.resolve(a.Harness))
	if err != nil {
		return err
	}
	fields := map[string]any{
		"name":             h.Name,
		"revision":         h.Revision,
		"releaseState":     string(h.ReleaseState),
		"active":           h.Active,
		"description":      h.Description,
		"previousRevision": "",
	}
	if h.PreviousRevisionID != nil {
		fields["previousRevision"] = r.alias(*h.PreviousRevisionID)
	}

	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		got, ok := fields[k]
		if !ok {
			return fmt.Errorf("unknown final_state field %q", k)
		}
		if !looseEqual(a.Expect[k], got) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s.%s = %v", a.Harness, k, a.Expect[k]),
				Actual:   fmt.Sprintf("%v", got),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertHistory compares the change types of a harness's history, most
// recent first.
func (r *Runner) assertHistory(ctx context.Context, trace []TraceEvent, a Assertion) error {
	entries, err := r.engine.History(ctx, r.resolve(a.Harness))
	if err != nil {
		return err
	}
	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = string(e.ChangeType)
	}
	if slices.Equal(got, a.Changes) || (len(got) == 0 && len(a.Changes) == 0) {
		return nil
	}
	return &AssertionError{
		Type:     AssertHistory,
		Expected: fmt.Sprintf("%s history %v", a.Harness, a.Changes),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    trace,
	}
}

// assertParents compares the active parents of a harness as a set of
// aliases.
func (r *Runner) assertParents(ctx context.Context, trace []TraceEvent, a Assertion) error {
	refs, err := r.engine.Parents(ctx, r.resolve(a.Harness))
	if err != nil {
		return err
	}
	got := r.aliasesOf(refs)
	want := slices.Clone(a.Parents)
	slices.Sort(want)
	if slices.Equal(got, want) || (len(got) == 0 && len(want) == 0) {
		return nil
	}
	return &AssertionError{
		Type:     AssertParents,
		Expected: fmt.Sprintf("%s parents %v", a.Harness, want),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    trace,
	}
}

func (r *Runner) aliasesOf(refs []model.HarnessRef) []string {
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = r.alias(ref.ID)
	}
	slices.Sort(out)
	return out
}
