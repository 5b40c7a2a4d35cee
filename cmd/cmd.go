// Package cmd implements the cardimport command.
//
// Subcommands live in subpackages and register themselves with Root in
// their init functions.
package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cardimport/cardimport/config"
	"github.com/cardimport/cardimport/fserrors"
	"github.com/cardimport/cardimport/fslog"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// Global flags
var (
	configFile string
	verbose    bool
	quiet      bool
	logFile    string
	dryRun     bool
)

// Exit codes
const (
	exitCodeSuccess = iota
	exitCodeUsageError
	exitCodeUncategorizedError
	exitCodeDirNotFound
	exitCodeNotWritable
	exitCodeCopyError
	exitCodeChecksumError
)

// Root is the main cardimport command.
var Root = &cobra.Command{
	Use:   "cardimport",
	Short: "Import photos from a removable card to archive, preview and backup destinations",
	Long: `
Cardimport copies every photo on a mounted card to a raw-file archive,
a preview archive and a verbatim backup, verifying checksums at every
hop, then reorganizes the archived raw files into date-partitioned,
attribute-encoded names derived from their metadata.
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := Root.PersistentFlags()
	flags.StringVarP(&configFile, "config", "", "", "Config file (default ~/.config/cardimport/cardimport.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Print lots more stuff")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Print as little stuff as possible")
	flags.StringVarP(&logFile, "log-file", "", "", "Log everything to this file")
	flags.BoolVarP(&dryRun, "dry-run", "n", false, "Do a trial run with no permanent changes")
}

// AddFlags lets subcommands hang extra flags off the shared flag set.
func AddFlags(fn func(*pflag.FlagSet)) {
	fn(Root.PersistentFlags())
}

// Logger builds the process logger from the global flags.
func Logger() *logrus.Logger {
	opt := fslog.DefaultOptions
	opt.File = logFile
	opt.Verbose = verbose
	opt.Quiet = quiet
	return fslog.New(opt)
}

// LoadConfig reads the configuration and applies the global flag
// overrides.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if dryRun {
		cfg.DryRun = true
	}
	return cfg, nil
}

// CheckArgs checks there are between MinArgs and MaxArgs and prints a
// message if not.
func CheckArgs(MinArgs, MaxArgs int, cmd *cobra.Command, args []string) {
	if len(args) < MinArgs {
		_ = cmd.Usage()
		fmt.Fprintf(os.Stderr, "Command %s needs %d arguments minimum: you provided %d non flag arguments: %q\n", cmd.Name(), MinArgs, len(args), args)
		os.Exit(exitCodeUsageError)
	} else if len(args) > MaxArgs {
		_ = cmd.Usage()
		fmt.Fprintf(os.Stderr, "Command %s needs %d arguments maximum: you provided %d non flag arguments: %q\n", cmd.Name(), MaxArgs, len(args), args)
		os.Exit(exitCodeUsageError)
	}
}

// Run runs a command's body and exits with a code describing the error
// kind.
func Run(cmd *cobra.Command, f func() error) {
	err := f()
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Failed to %s: %v\n", cmd.Name(), err)
	os.Exit(resolveExitCode(err))
}

func resolveExitCode(err error) int {
	switch {
	case errors.Is(err, fserrors.ErrPathNotFound):
		return exitCodeDirNotFound
	case errors.Is(err, fserrors.ErrNotWritable):
		return exitCodeNotWritable
	case errors.Is(err, fserrors.ErrCopyFailed):
		return exitCodeCopyError
	case errors.Is(err, fserrors.ErrChecksumMismatch):
		return exitCodeChecksumError
	default:
		return exitCodeUncategorizedError
	}
}

// Main runs the root command and exits on error.
func Main() {
	if err := Root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(exitCodeUsageError)
	}
}
