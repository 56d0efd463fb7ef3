package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a design document without saving it",
		Long: `Validate a design document (.json, .yaml or .cue) against the structural
rules and the stored harness graph. Nothing is written.

With --owner, the document is checked as the new content of that harness,
so embedding references that would close a cycle through it are reported.

Exit codes:
  0 - Document is valid
  1 - Validation errors were found
  2 - Command error (unreadable file, database unavailable)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], owner, cmd)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "harness id the document belongs to")

	return cmd
}

func runValidate(opts *RootOptions, path, owner string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	doc, err := loadDocument(formatter, path)
	if err != nil {
		return err
	}

	eng, closeFn, err := opts.openEngine()
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := eng.Validate(cmd.Context(), doc, owner)
	if err != nil {
		return formatter.CommandError("validate", err)
	}

	if err := formatter.Success(view{data: res, text: func(w io.Writer) {
		if res.Valid {
			fmt.Fprintf(w, "✓ %s is valid\n", path)
			return
		}
		fmt.Fprintf(w, "✗ %s has %d error(s)\n", path, len(res.Errors))
		for _, e := range res.Errors {
			fmt.Fprintf(w, "  %s\n", e.Error())
		}
	}}); err != nil {
		return err
	}
	if !res.Valid {
		return &ExitError{
			Code:     ExitFailure,
			Message:  fmt.Sprintf("%d validation error(s)", len(res.Errors)),
			Reported: true,
		}
	}
	return nil
}
