package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/letwinventory/harnessgraph/internal/model"
)

// view pairs a JSON payload with its text rendering.
type view struct {
	data any
	text func(w io.Writer)
}

func (v view) MarshalJSON() ([]byte, error) { return json.Marshal(v.data) }

func (v view) RenderText(w io.Writer) { v.text(w) }

func harnessView(h *model.Harness) view {
	return view{data: h, text: func(w io.Writer) { printHarness(w, h) }}
}

// printHarness writes the one-line summary of a row.
func printHarness(w io.Writer, h *model.Harness) {
	fmt.Fprintf(w, "%s  %s  rev %s  %s", h.ID, h.Name, h.Revision, h.ReleaseState)
	if !h.Active {
		fmt.Fprint(w, "  (inactive)")
	}
	fmt.Fprintln(w)
}

func printCascade(w io.Writer, changes []model.CascadeChange) {
	for _, c := range changes {
		fmt.Fprintf(w, "  cascade %s  %s  %s -> %s\n", c.ID, c.Name, c.PreviousState, c.NewState)
	}
}
