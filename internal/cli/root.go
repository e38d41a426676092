// Package cli implements the shoerack command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/shoerack/internal/paths"
	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
}

// app is the state shared by one command tree.
type app struct {
	flags     rootFlags
	configDir string
	config    *viper.Viper
}

// NewRootCmd creates the top-level "shoerack" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "shoerack",
		Short: "Track running shoe wear, defaults and personal bests",
		Long: "Shoerack keeps a collection of running shoes, assigns recorded activities to them,\n" +
			"and derives mileage, wear and personal bests from the assigned activities.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.loadConfig()
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (env "+paths.EnvConfigDir+")")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (env "+paths.EnvDataDir+")")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&a.flags.verbose, "verbose", "v", false, "log engine activity to stderr")

	root.AddCommand(newVersionCmd())
	root.AddCommand(a.newInitCmd())
	root.AddCommand(a.newServeCmd())
	root.AddCommand(a.newRestrictedCmd())
	root.AddCommand(a.newShoeCmd())
	root.AddCommand(a.newActivityCmd())
	root.AddCommand(a.newAssignCmd())
	root.AddCommand(a.newUnassignCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// userErrors are the sentinels caused by bad input rather than a failing
// system.
var userErrors = []error{
	types.ErrShoeNotFound,
	types.ErrNotFound,
	types.ErrActivityNotFound,
	types.ErrInvalidID,
	types.ErrInvalidData,
	types.ErrInvalidName,
	types.ErrInvalidLifespan,
	types.ErrInvalidRunCategory,
	types.ErrInvalidActivityCategory,
	types.ErrInvalidMode,
	types.ErrEmptyCategories,
	types.ErrInvalidActivityFile,
	types.ErrShoeRestricted,
	types.ErrBackendUnknown,
	types.ErrPostgresURLEmpty,
	types.ErrSyncStrategyUnknown,
	types.ErrBatchSizeInvalid,
	types.ErrBatchIntervalInvalid,
	errUsage,
}

// errUsage marks malformed command-line input.
var errUsage = errors.New("usage error")

func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// exitCode maps an error returned by a command to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}

// logOutput is where engine logs go.
func (a *app) logOutput() io.Writer {
	if a.flags.verbose {
		return os.Stderr
	}
	return io.Discard
}
