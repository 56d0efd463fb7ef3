package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/letwinventory/harnessgraph/internal/docload"
	"github.com/letwinventory/harnessgraph/internal/engine"
	"github.com/letwinventory/harnessgraph/internal/model"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Name        string
	Revision    string
	Description string
	PartID      string
	Thumbnail   string
	File        string
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft harness",
		Long: `Create a new draft harness row.

The design document is read from --file (.json, .yaml or .cue). Without
--file the harness is created with no document.

Example:
  harnessctl create --name "Main Loom" --file loom.yaml
  harnessctl create --name Bracket --revision 05`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "harness name (required)")
	cmd.Flags().StringVar(&opts.Revision, "revision", "", "initial revision (default 01)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.PartID, "part-id", "", "linked part id")
	cmd.Flags().StringVar(&opts.Thumbnail, "thumbnail", "", "thumbnail reference")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "design document file")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runCreate(opts *CreateOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	doc, err := loadDocument(formatter, opts.File)
	if err != nil {
		return err
	}

	eng, closeFn, err := opts.openEngine()
	if err != nil {
		return err
	}
	defer closeFn()

	h, err := eng.Create(cmd.Context(), engine.CreateInput{
		Name:        opts.Name,
		Revision:    opts.Revision,
		Description: opts.Description,
		Document:    doc,
		PartID:      model.StringPtr(opts.PartID),
		Thumbnail:   model.StringPtr(opts.Thumbnail),
		Actor:       opts.Config.Actor,
	})
	if err != nil {
		return formatter.CommandError("create", err)
	}
	return formatter.Success(harnessView(h))
}

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	Name             string
	Description      string
	PartID           string
	File             string
	ForceNewRevision bool
	Notes            string
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a draft or fork a released harness",
		Long: `Update a harness. Drafts are edited in place; released harnesses
(or any harness with --new-revision) fork a new draft revision row.
Only the flags given are changed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "new name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "new description")
	cmd.Flags().StringVar(&opts.PartID, "part-id", "", "new part id")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "replacement design document file")
	cmd.Flags().BoolVar(&opts.ForceNewRevision, "new-revision", false, "always fork a new revision")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "change notes")

	return cmd
}

func runUpdate(opts *UpdateOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	in := engine.UpdateInput{
		ID:               id,
		ForceNewRevision: opts.ForceNewRevision,
		Notes:            opts.Notes,
		Actor:            opts.Config.Actor,
	}
	flags := cmd.Flags()
	if flags.Changed("name") {
		in.Name = &opts.Name
	}
	if flags.Changed("description") {
		in.Description = &opts.Description
	}
	if flags.Changed("part-id") {
		in.PartID = &opts.PartID
	}
	doc, err := loadDocument(formatter, opts.File)
	if err != nil {
		return err
	}
	in.Document = doc

	eng, closeFn, err := opts.openEngine()
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := eng.Update(cmd.Context(), in)
	if err != nil {
		return formatter.CommandError("update", err)
	}
	return formatter.Success(view{data: res, text: func(w io.Writer) {
		if res.Forked {
			fmt.Fprintln(w, "Forked new revision:")
		}
		printHarness(w, res.Harness)
	}})
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a harness row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			eng, closeFn, err := rootOpts.openEngine()
			if err != nil {
				return err
			}
			defer closeFn()

			h, err := eng.Get(cmd.Context(), args[0])
			if err != nil {
				return formatter.CommandError("show", err)
			}
			return formatter.Success(view{data: h, text: func(w io.Writer) {
				printHarness(w, h)
				if h.Description != "" {
					fmt.Fprintf(w, "  %s\n", h.Description)
				}
				if h.PreviousRevisionID != nil {
					fmt.Fprintf(w, "  previous revision: %s\n", *h.PreviousRevisionID)
				}
				if h.ReleasedAt != nil {
					fmt.Fprintf(w, "  released %s by %s\n", h.ReleasedAt.Format("2006-01-02 15:04:05"), model.Deref(h.ReleasedBy))
				}
				if h.Document != nil {
					fmt.Fprintf(w, "  %d connector(s), %d cable(s), %d sub-harness(es), %d connection(s)\n",
						len(h.Document.Connectors), len(h.Document.Cables),
						len(h.Document.SubHarnesses), len(h.Document.Connections))
				}
			}})
		},
	}
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Name   string
	States []string
	PartID string
	All    bool
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List harness rows",
		Long: `List harness rows ordered by name and revision.

Example:
  harnessctl list --name loom --state draft --state review`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := opts.formatter(cmd)
			filter := engine.ListFilter{
				NameLike:        opts.Name,
				PartID:          opts.PartID,
				IncludeInactive: opts.All,
			}
			for _, s := range opts.States {
				state := model.ReleaseState(s)
				if !state.Valid() {
					return NewExitError(ExitCommandError, fmt.Sprintf("invalid state %q", s))
				}
				filter.States = append(filter.States, state)
			}

			eng, closeFn, err := opts.openEngine()
			if err != nil {
				return err
			}
			defer closeFn()

			rows, err := eng.List(cmd.Context(), filter)
			if err != nil {
				return formatter.CommandError("list", err)
			}
			return formatter.Success(view{data: rows, text: func(w io.Writer) {
				if len(rows) == 0 {
					fmt.Fprintln(w, "No harnesses found.")
				}
				for _, h := range rows {
					printHarness(w, h)
				}
			}})
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "name substring")
	cmd.Flags().StringArrayVar(&opts.States, "state", nil, "release state (repeatable)")
	cmd.Flags().StringVar(&opts.PartID, "part-id", "", "linked part id")
	cmd.Flags().BoolVar(&opts.All, "all", false, "include inactive rows")

	return cmd
}

// NewDeactivateCommand creates the deactivate command.
func NewDeactivateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Soft-delete a harness no active assembly embeds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			eng, closeFn, err := rootOpts.openEngine()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := eng.Deactivate(cmd.Context(), args[0], rootOpts.Config.Actor); err != nil {
				return formatter.CommandError("deactivate", err)
			}
			return formatter.Success(view{
				data: map[string]any{"id": args[0], "active": false},
				text: func(w io.Writer) { fmt.Fprintf(w, "Deactivated %s\n", args[0]) },
			})
		},
	}
}

// loadDocument reads a design document file. An empty path yields nil.
func loadDocument(formatter *OutputFormatter, path string) (*model.Document, error) {
	if path == "" {
		return nil, nil
	}
	doc, err := docload.LoadFile(path)
	if err != nil {
		code := ErrCodeGeneric
		var le *docload.LoadError
		if errors.As(err, &le) {
			code = le.Code
		}
		_ = formatter.Error(code, err.Error(), map[string]string{"file": path})
		return nil, &ExitError{Code: ExitCommandError, Message: "failed to load document", Err: err, Reported: true}
	}
	formatter.VerboseLog("Loaded document %q from %s", doc.Name, path)
	return doc, nil
}
