package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/letwinventory/harnessgraph/internal/model"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show a harness's revision history, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			eng, closeFn, err := rootOpts.openEngine()
			if err != nil {
				return err
			}
			defer closeFn()

			entries, err := eng.History(cmd.Context(), args[0])
			if err != nil {
				return formatter.CommandError("history", err)
			}
			return formatter.Success(view{data: entries, text: func(w io.Writer) {
				for _, e := range entries {
					fmt.Fprintf(w, "%s  %s  %-16s rev %s  %s",
						e.ID, e.CreatedAt.Format("2006-01-02 15:04:05"), e.ChangeType, e.Revision, e.ReleaseState)
					if e.ChangedBy != nil {
						fmt.Fprintf(w, "  by %s", *e.ChangedBy)
					}
					if e.Snapshot != nil {
						fmt.Fprint(w, "  [snapshot]")
					}
					fmt.Fprintln(w)
					if e.ChangeNotes != nil {
						fmt.Fprintf(w, "    %s\n", *e.ChangeNotes)
					}
				}
			}})
		},
	}
}

// NewParentsCommand creates the parents command.
func NewParentsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parents <id>",
		Short: "List active harnesses that embed a harness",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			eng, closeFn, err := rootOpts.openEngine()
			if err != nil {
				return err
			}
			defer closeFn()

			refs, err := eng.Parents(cmd.Context(), args[0])
			if err != nil {
				return formatter.CommandError("parents", err)
			}
			return formatter.Success(view{data: refs, text: func(w io.Writer) {
				if len(refs) == 0 {
					fmt.Fprintln(w, "No active parents.")
				}
				for _, r := range refs {
					fmt.Fprintf(w, "%s  %s\n", r.ID, r.Name)
				}
			}})
		},
	}
}

// NewSubDataCommand creates the sub-data command.
func NewSubDataCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sub-data <id>...",
		Short: "Fetch the design documents of several harnesses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			eng, closeFn, err := rootOpts.openEngine()
			if err != nil {
				return err
			}
			defer closeFn()

			docs, err := eng.SubData(cmd.Context(), args)
			if err != nil {
				return formatter.CommandError("sub-data", err)
			}
			return formatter.Success(view{data: docs, text: func(w io.Writer) {
				ids := make([]string, 0, len(docs))
				for id := range docs {
					ids = append(ids, id)
				}
				slices.Sort(ids)
				for _, id := range ids {
					printDocumentSummary(w, id, docs[id])
				}
			}})
		},
	}
}

func printDocumentSummary(w io.Writer, id string, doc *model.Document) {
	if doc == nil {
		fmt.Fprintf(w, "%s  (no document)\n", id)
		return
	}
	fmt.Fprintf(w, "%s  %s  %d connector(s)  %d sub-harness(es)\n",
		id, doc.Name, len(doc.Connectors), len(doc.SubHarnesses))
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check the stored embedding graph for cycles and dangling edges",
		Long: `Scan the stored embedding graph. Exits with status 1 when a cycle or
an edge to an inactive or missing harness is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			eng, closeFn, err := rootOpts.openEngine()
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := eng.Audit(cmd.Context())
			if err != nil {
				return formatter.CommandError("audit", err)
			}
			if err := formatter.Success(view{data: report, text: func(w io.Writer) {
				if report.OK() {
					fmt.Fprintln(w, "✓ No problems found.")
					return
				}
				for _, c := range report.Cycles {
					fmt.Fprintf(w, "✗ %s\n", c.Message)
				}
				for _, e := range report.Dangling {
					fmt.Fprintf(w, "✗ dangling edge %s -> %s\n", e.ParentID, e.ChildID)
				}
			}}); err != nil {
				return err
			}
			if !report.OK() {
				return &ExitError{
					Code:     ExitFailure,
					Message:  fmt.Sprintf("%d cycle(s), %d dangling edge(s)", len(report.Cycles), len(report.Dangling)),
					Reported: true,
				}
			}
			return nil
		},
	}
}
