package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/letwinventory/harnessgraph/internal/engine"
)

type transitionFunc func(e *engine.Engine, ctx context.Context, id, actor, notes string) (*engine.TransitionResult, error)

// newTransitionCommand builds submit, reject and release, which share flags
// and output.
func newTransitionCommand(rootOpts *RootOptions, use, short, long string, fn transitionFunc) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			eng, closeFn, err := rootOpts.openEngine()
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := fn(eng, cmd.Context(), args[0], rootOpts.Config.Actor, notes)
			if err != nil {
				return formatter.CommandError(use, err)
			}
			return formatter.Success(view{data: res, text: func(w io.Writer) {
				printHarness(w, res.Harness)
				printCascade(w, res.Cascade)
			}})
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "change notes")
	return cmd
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	return newTransitionCommand(rootOpts, "submit", "Submit a draft for review",
		`Move a draft harness to review. Active draft sub-assemblies move with it.`,
		(*engine.Engine).SubmitReview)
}

// NewRejectCommand creates the reject command.
func NewRejectCommand(rootOpts *RootOptions) *cobra.Command {
	return newTransitionCommand(rootOpts, "reject", "Return a harness in review to draft",
		`Return a harness in review to draft. Sub-assemblies are not touched.`,
		(*engine.Engine).Reject)
}

// NewReleaseCommand creates the release command.
func NewReleaseCommand(rootOpts *RootOptions) *cobra.Command {
	return newTransitionCommand(rootOpts, "release", "Release a harness in review",
		`Release a harness in review. Every active embedded sub-assembly that is
not yet released is released with it.`,
		(*engine.Engine).Release)
}

// NewReleaseProductionCommand creates the release-production command.
func NewReleaseProductionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "release-production <id>",
		Short: "Promote a released pre-production revision to revision A",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			eng, closeFn, err := rootOpts.openEngine()
			if err != nil {
				return err
			}
			defer closeFn()

			h, err := eng.ReleaseToProduction(cmd.Context(), args[0], rootOpts.Config.Actor)
			if err != nil {
				return formatter.CommandError("release-production", err)
			}
			return formatter.Success(harnessView(h))
		},
	}
}

// NewRevertCommand creates the revert command.
func NewRevertCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "revert <id> <history-entry-id>",
		Short: "Restore a draft's document from a history snapshot",
		Long: `Restore the document captured by a history entry onto a draft harness.
Use "harnessctl history <id>" to find entry ids.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			eng, closeFn, err := rootOpts.openEngine()
			if err != nil {
				return err
			}
			defer closeFn()

			h, err := eng.Revert(cmd.Context(), args[0], args[1], rootOpts.Config.Actor)
			if err != nil {
				return formatter.CommandError("revert", err)
			}
			return formatter.Success(view{data: h, text: func(w io.Writer) {
				fmt.Fprintf(w, "Reverted to %s\n", args[1])
				printHarness(w, h)
			}})
		},
	}
}
