package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/letwinventory/harnessgraph/internal/config"
	"github.com/letwinventory/harnessgraph/internal/engine"
	"github.com/letwinventory/harnessgraph/internal/logging"
	"github.com/letwinventory/harnessgraph/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	DBPath     string
	Actor      string

	// Config is resolved in PersistentPreRunE.
	Config *config.Config
	Logger *slog.Logger

	viper *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for harnessctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{viper: config.NewViper()}

	cmd := &cobra.Command{
		Use:   "harnessctl",
		Short: "Revision-controlled wire harness assemblies",
		Long: `harnessctl manages wire harness designs as a graph of revisioned
assemblies: create and edit drafts, move them through review and release,
fork new revisions and inspect the embedding graph.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.resolve(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default ./harnessgraph.yaml)")
	flags.StringVar(&opts.DBPath, "db", "", "path to SQLite database")
	flags.StringVar(&opts.Actor, "actor", "", "actor recorded in history entries")
	_ = opts.viper.BindPFlag(config.KeyDBPath, flags.Lookup("db"))
	_ = opts.viper.BindPFlag(config.KeyActor, flags.Lookup("actor"))

	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewDeactivateCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewRejectCommand(opts))
	cmd.AddCommand(NewReleaseCommand(opts))
	cmd.AddCommand(NewReleaseProductionCommand(opts))
	cmd.AddCommand(NewRevertCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewParentsCommand(opts))
	cmd.AddCommand(NewSubDataCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolve loads configuration and builds the logger.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.viper, o.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	level := cfg.LogLevel
	if o.Verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{
		Level:   level,
		Format:  cfg.LogFormat,
		Writer:  cmd.ErrOrStderr(),
		Service: "harnessctl",
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid logging configuration", err)
	}
	o.Config = cfg
	o.Logger = logger
	return nil
}

// openEngine opens the configured database and builds an engine over it.
// The returned close function must be called when the command finishes.
func (o *RootOptions) openEngine() (*engine.Engine, func(), error) {
	st, err := store.Open(o.Config.DBPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	eng := engine.New(st,
		engine.WithLogger(o.Logger),
		engine.WithParentMode(o.Config.ParentIndex),
		engine.WithMaxCascadeDepth(o.Config.CascadeMaxDepth),
		engine.WithSubDataConcurrency(o.Config.SubDataConcurrency),
	)
	closeFn := func() {
		if err := st.Close(); err != nil {
			o.Logger.Error("error closing database", "error", err)
		}
	}
	return eng, closeFn, nil
}

// formatter returns an output formatter bound to cmd's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
