// Package cli implements the filestore command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/filestore/internal/paths"
	"github.com/mesh-intelligence/filestore/pkg/filestore"
	"github.com/mesh-intelligence/filestore/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds the global flag values.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
}

// app carries the state shared by every subcommand of one invocation.
type app struct {
	flags     rootFlags
	configDir string
	settings  settings
	logger    *zap.Logger
}

// NewRootCmd creates the top-level "filestore" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}
	root := &cobra.Command{
		Use:   "filestore",
		Short: "Resolve datum references to data",
		Long: "filestore records resources (files in some format) and datums (slices of\n" +
			"a resource), validates their kwargs against per-spec schemas, and\n" +
			"retrieves a datum's data through the handler registered for its spec.",
		Version:           filestore.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { _ = a.logger.Sync() },
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/filestore)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.filestore)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&a.flags.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newResourceCmd(a),
		newDatumCmd(a),
		newRetrieveCmd(a),
		newSpecsCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "filestore:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// setup resolves the config directory, loads config.yaml and builds the
// logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return systemError{fmt.Errorf("resolve config dir: %w", err)}
	}
	s, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	logger, err := newLogger(a.flags.verbose)
	if err != nil {
		return systemError{fmt.Errorf("build logger: %w", err)}
	}
	a.configDir, a.settings, a.logger = configDir, s, logger
	return nil
}

// systemError marks failures of the environment rather than of the request.
type systemError struct{ err error }

func (e systemError) Error() string { return e.err.Error() }
func (e systemError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var se systemError
	if errors.As(err, &se) {
		return exitSysError
	}
	return exitUserError
}

// isUserError reports whether err is one of the domain errors a caller can
// fix by changing the request.
func isUserError(err error) bool {
	for _, target := range []error{
		types.ErrNotFound, types.ErrKeyNotFound, types.ErrValidation,
		types.ErrConflict, types.ErrDuplicateHandler,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// classify wraps err as a systemError unless it is a domain error.
func classify(err error) error {
	if err == nil || isUserError(err) {
		return err
	}
	return systemError{err}
}
