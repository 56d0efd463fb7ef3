package scenario

// TraceEvent records one executed step. Harnesses are named by alias.
type TraceEvent struct {
	Seq             int64          `json:"seq"`
	Command         string         `json:"command"`
	Harness         string         `json:"harness,omitempty"`
	Outcome         string         `json:"outcome"`
	Result          map[string]any `json:"result,omitempty"`
	ValidationCodes []string       `json:"validation_codes,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
