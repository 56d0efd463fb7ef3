package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/letwinventory/harnessgraph/internal/engine"
	"github.com/letwinventory/harnessgraph/internal/logging"
	"github.com/letwinventory/harnessgraph/internal/model"
	"github.com/letwinventory/harnessgraph/internal/store"
	"github.com/letwinventory/harnessgraph/internal/testutil"
)

// OutcomeOK is the outcome of a successful step.
const OutcomeOK = "ok"

// Runner executes one scenario against one engine.
type Runner struct {
	store   *store.Store
	engine  *engine.Engine
	logger  *slog.Logger
	seq     int64
	aliases map[string]string // alias -> id
	names   map[string]string // id -> alias
}

// Run executes a scenario in a fresh in-memory store and returns the
// result. The error return is reserved for infrastructure failures; step
// and assertion failures are reported in Result.Errors.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := logging.Discard()
	r := &Runner{
		store: st,
		engine: engine.New(st,
			engine.WithClock(testutil.NewDeterministicClock()),
			engine.WithIDGenerator(testutil.NewSequenceGenerator("id")),
			engine.WithLogger(logger),
		),
		logger:  logger,
		aliases: make(map[string]string),
		names:   make(map[string]string),
	}

	result := NewResult()
	for i, step := range s.Steps {
		if err := r.execute(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Invoke, err)
		}
	}
	for _, msg := range r.evaluate(ctx, s.Assertions, result) {
		result.AddError(msg)
	}
	return result, nil
}

// execute runs one step, records its trace event and checks its expect
// clause.
func (r *Runner) execute(ctx context.Context, index int, step Step, result *Result) error {
	r.seq++
	ev := TraceEvent{
		Seq:     r.seq,
		Command: step.Invoke,
		Harness: str(step.Args, "harness"),
		Outcome: OutcomeOK,
	}
	if step.Invoke == "create" {
		ev.Harness = step.As
	}

	boundID, res, err := r.dispatch(ctx, step)
	if err != nil {
		var ee *engine.Error
		if !errors.As(err, &ee) {
			return err
		}
		if ee.Code == engine.ErrCodeInternal {
			return err
		}
		ev.Outcome = string(ee.Code)
		for _, v := range ee.Validation {
			ev.ValidationCodes = append(ev.ValidationCodes, v.Code)
		}
	} else {
		ev.Result = res
		if step.As != "" && boundID != "" {
			r.bind(step.As, boundID)
		}
	}
	result.Trace = append(result.Trace, ev)

	want := OutcomeOK
	if step.Expect != nil && step.Expect.Outcome != "" {
		want = step.Expect.Outcome
	}
	if ev.Outcome != want {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected outcome %s, got %s (%v)",
			index, step.Invoke, want, ev.Outcome, err))
		return nil
	}
	if step.Expect != nil {
		for k, v := range step.Expect.Result {
			if got, ok := ev.Result[k]; !ok || !looseEqual(v, got) {
				result.AddError(fmt.Sprintf("steps[%d] %s: result %s = %v, expected %v",
					index, step.Invoke, k, got, v))
			}
		}
	}

	r.logger.Info("scenario step completed", "step", index, "command", step.Invoke, "outcome", ev.Outcome)
	return nil
}

// dispatch invokes the engine command for step. It returns the id to bind
// to step.As and the trace result fields.
func (r *Runner) dispatch(ctx context.Context, step Step) (string, map[string]any, error) {
	args := step.Args
	actor := str(args, "actor")
	id := r.resolve(str(args, "harness"))

	switch step.Invoke {
	case "create":
		in := engine.CreateInput{
			Name:        str(args, "name"),
			Revision:    str(args, "revision"),
			Description: str(args, "description"),
			Actor:       actor,
		}
		if !boolArg(args, "bare") {
			doc, err := r.document(args, str(args, "name"))
			if err != nil {
				return "", nil, err
			}
			in.Document = doc
		}
		h, err := r.engine.Create(ctx, in)
		if err != nil {
			return "", nil, err
		}
		return h.ID, r.harnessResult(h), nil

	case "update":
		in := engine.UpdateInput{
			ID:               id,
			ForceNewRevision: boolArg(args, "force_new_revision"),
			Notes:            str(args, "notes"),
			Actor:            actor,
		}
		if v, ok := args["name"]; ok {
			s := fmt.Sprint(v)
			in.Name = &s
		}
		if v, ok := args["description"]; ok {
			s := fmt.Sprint(v)
			in.Description = &s
		}
		if hasDocumentArgs(args) {
			doc, err := r.document(args, str(args, "doc_name"))
			if err != nil {
				return "", nil, err
			}
			in.Document = doc
		}
		res, err := r.engine.Update(ctx, in)
		if err != nil {
			return "", nil, err
		}
		out := r.harnessResult(res.Harness)
		out["forked"] = res.Forked
		return res.Harness.ID, out, nil

	case "submit", "reject", "release":
		fn := map[string]func(context.Context, string, string, string) (*engine.TransitionResult, error){
			"submit":  r.engine.SubmitReview,
			"reject":  r.engine.Reject,
			"release": r.engine.Release,
		}[step.Invoke]
		res, err := fn(ctx, id, actor, str(args, "notes"))
		if err != nil {
			return "", nil, err
		}
		out := map[string]any{"releaseState": string(res.Harness.ReleaseState)}
		if len(res.Cascade) > 0 {
			cascade := make([]any, len(res.Cascade))
			for i, c := range res.Cascade {
				cascade[i] = map[string]any{
					"harness": r.alias(c.ID),
					"from":    string(c.PreviousState),
					"to":      string(c.NewState),
				}
			}
			out["cascade"] = cascade
		}
		return res.Harness.ID, out, nil

	case "release_production":
		h, err := r.engine.ReleaseToProduction(ctx, id, actor)
		if err != nil {
			return "", nil, err
		}
		return h.ID, r.harnessResult(h), nil

	case "deactivate":
		return "", nil, r.engine.Deactivate(ctx, id, actor)

	case "revert":
		entries, err := r.engine.History(ctx, id)
		if err != nil {
			return "", nil, err
		}
		entryID := str(args, "entry_id")
		if entryID == "" {
			n := intArg(args, "entry")
			if n < 0 || n >= len(entries) {
				return "", nil, fmt.Errorf("entry %d out of range (%d entries)", n, len(entries))
			}
			entryID = entries[n].ID
		}
		h, err := r.engine.Revert(ctx, id, entryID, actor)
		if err != nil {
			return "", nil, err
		}
		return h.ID, r.harnessResult(h), nil

	case "validate":
		doc, err := r.document(args, str(args, "doc_name"))
		if err != nil {
			return "", nil, err
		}
		res, err := r.engine.Validate(ctx, doc, r.resolve(str(args, "owner")))
		if err != nil {
			return "", nil, err
		}
		out := map[string]any{"valid": res.Valid}
		if len(res.Errors) > 0 {
			codes := make([]any, len(res.Errors))
			for i, e := range res.Errors {
				codes[i] = e.Code
			}
			out["codes"] = codes
		}
		return "", out, nil

	case "audit":
		report, err := r.engine.Audit(ctx)
		if err != nil {
			return "", nil, err
		}
		return "", map[string]any{
			"cycles":   len(report.Cycles),
			"dangling": len(report.Dangling),
		}, nil
	}
	return "", nil, fmt.Errorf("unknown command %q", step.Invoke)
}

// harnessResult summarizes a row for the trace.
func (r *Runner) harnessResult(h *model.Harness) map[string]any {
	out := map[string]any{
		"revision":     h.Revision,
		"releaseState": string(h.ReleaseState),
	}
	if h.PreviousRevisionID != nil {
		out["previous"] = r.alias(*h.PreviousRevisionID)
	}
	return out
}

// document builds the step's document. "document" is an inline document
// whose sub-harness harnessId values are aliases; otherwise a minimal valid
// document named name embedding the "children" aliases is built.
func (r *Runner) document(args map[string]any, name string) (*model.Document, error) {
	if raw, ok := args["document"]; ok {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("document: %w", err)
		}
		doc, err := model.ParseDocument(data)
		if err != nil {
			return nil, err
		}
		for i := range doc.SubHarnesses {
			doc.SubHarnesses[i].HarnessID = r.resolve(doc.SubHarnesses[i].HarnessID)
		}
		return doc, nil
	}

	doc := model.NewDocument(name)
	for _, c := range list(args, "children") {
		doc.SubHarnesses = append(doc.SubHarnesses, model.SubHarnessRef{
			ID:        "inst-" + c,
			HarnessID: r.resolve(c),
		})
	}
	return doc, nil
}

func hasDocumentArgs(args map[string]any) bool {
	_, doc := args["document"]
	_, children := args["children"]
	return doc || children
}

func (r *Runner) bind(alias, id string) {
	r.aliases[alias] = id
	r.names[id] = alias
}

// resolve maps an alias to its id; unknown names pass through unchanged.
func (r *Runner) resolve(alias string) string {
	if id, ok := r.aliases[alias]; ok {
		return id
	}
	return alias
}

// alias maps an id back to its alias; unbound ids pass through unchanged.
func (r *Runner) alias(id string) string {
	if a, ok := r.names[id]; ok {
		return a
	}
	return id
}

func str(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func boolArg(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func list(args map[string]any, key string) []string {
	raw, _ := args[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, fmt.Sprint(v))
	}
	return out
}

// looseEqual compares YAML-decoded expectations with trace values by their
// printed form, so 2 matches int64(2) and "02" matches "02".
func looseEqual(expected, actual any) bool {
	return fmt.Sprint(expected) == fmt.Sprint(actual)
}
