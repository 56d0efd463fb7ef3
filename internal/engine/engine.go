package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/letwinventory/harnessgraph/internal/graph"
	"github.com/letwinventory/harnessgraph/internal/metrics"
	"github.com/letwinventory/harnessgraph/internal/store"
)

// Defaults for the tunables exposed through Options.
const (
	DefaultMaxCascadeDepth    = 64
	DefaultSubDataConcurrency = 8
)

// Engine executes harness commands against a store.
//
// Thread-safety: Engine holds no mutable state of its own. Commands may be
// called from any goroutine; the store serializes writers.
type Engine struct {
	store              *store.Store
	clock              Clock
	ids                IDGenerator
	logger             *slog.Logger
	parentMode         graph.ParentMode
	maxCascadeDepth    int
	subDataConcurrency int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the timestamp source.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator sets the id source for rows and history entries.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithParentMode selects how parents are located (index or scan).
func WithParentMode(m graph.ParentMode) Option {
	return func(e *Engine) { e.parentMode = m }
}

// WithMaxCascadeDepth bounds cascade recursion.
func WithMaxCascadeDepth(n int) Option {
	return func(e *Engine) { e.maxCascadeDepth = n }
}

// WithSubDataConcurrency bounds the SubData fan-out.
func WithSubDataConcurrency(n int) Option {
	return func(e *Engine) { e.subDataConcurrency = n }
}

// New creates an engine over s.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:              s,
		clock:              SystemClock{},
		ids:                UUIDv7Generator{},
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		parentMode:         graph.ParentsIndexed,
		maxCascadeDepth:    DefaultMaxCascadeDepth,
		subDataConcurrency: DefaultSubDataConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxCascadeDepth <= 0 {
		e.maxCascadeDepth = DefaultMaxCascadeDepth
	}
	if e.subDataConcurrency <= 0 {
		e.subDataConcurrency = DefaultSubDataConcurrency
	}
	if !e.parentMode.Valid() {
		e.parentMode = graph.ParentsIndexed
	}
	return e
}

// now returns the clock time in UTC.
func (e *Engine) now() time.Time {
	return e.clock.Now().UTC()
}

// do runs fn as one unit of work and records the outcome.
func (e *Engine) do(ctx context.Context, op, harnessID, actor string, fn func(tx *store.Tx) error) error {
	start := time.Now()
	err := classify(op, e.store.RunInTx(ctx, fn))
	e.observe(op, harnessID, actor, start, err)
	return err
}

// read runs fn against the store outside a transaction.
func (e *Engine) read(ctx context.Context, op, harnessID string, fn func(tx *store.Tx) error) error {
	start := time.Now()
	err := classify(op, fn(e.store.Read()))
	e.observe(op, harnessID, "", start, err)
	return err
}

func (e *Engine) observe(op, harnessID, actor string, start time.Time, err error) {
	elapsed := time.Since(start)
	code := CodeOf(err)
	result := "ok"
	if err != nil {
		result = string(code)
	}
	metrics.ObserveCommand(op, result, elapsed)

	attrs := []any{
		slog.String("op", op),
		slog.Duration("elapsed", elapsed),
	}
	if harnessID != "" {
		attrs = append(attrs, slog.String("harness_id", harnessID))
	}
	if actor != "" {
		attrs = append(attrs, slog.String("actor", actor))
	}

	switch {
	case err == nil:
		e.logger.Info("command completed", attrs...)
	case code == ErrCodeInternal:
		e.logger.Error("command failed", append(attrs, slog.String("error", err.Error()))...)
	default:
		e.logger.Warn("command rejected", append(attrs,
			slog.String("code", string(code)),
			slog.String("error", err.Error()))...)
	}
}

// classify converts any error into an *Error. Domain errors pass through;
// store.ErrNotFound becomes NOT_FOUND; everything else is INTERNAL with the
// cause preserved, so context cancellation still satisfies errors.Is.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, store.ErrNotFound) {
		return &Error{Code: ErrCodeNotFound, Message: err.Error(), Err: err}
	}
	return newInternalError(op, err)
}
