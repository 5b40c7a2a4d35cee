// Package organize relocates staged files into the archive without
// running a copy first.
package organize

import (
	"github.com/spf13/cobra"

	"github.com/cardimport/cardimport/cmd"
	"github.com/cardimport/cardimport/meta"
	"github.com/cardimport/cardimport/naming"
	"github.com/cardimport/cardimport/organize"
)

func init() {
	cmd.Root.AddCommand(commandDefinition)
}

var commandDefinition = &cobra.Command{
	Use:   "organize",
	Short: `Reorganize the staging bucket into canonical dated archive paths.`,
	Long: `
Walk the staging bucket under the raw archive root and move every file
to its canonical date-partitioned, attribute-encoded path. Useful to
finish up after an interrupted import. Name collisions with identical
content are treated as already organized; collisions with different
content get a numeric suffix.
`,
	Run: func(command *cobra.Command, args []string) {
		cmd.CheckArgs(0, 0, command, args)
		log := cmd.Logger()
		cmd.Run(command, func() error {
			cfg, err := cmd.LoadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			staging, err := cfg.EnsureStaging()
			if err != nil {
				return err
			}

			org := &organize.Organizer{
				Namer:       &naming.Namer{Root: cfg.RawRoot, Limit: cfg.PathLimit},
				Meta:        &meta.ExifSource{Log: log},
				MaxAttempts: cfg.CollisionBound,
				DryRun:      cfg.DryRun,
				Log:         log,
			}
			res, err := org.Organize(staging)
			if err != nil {
				return err
			}
			log.Infof("organized %d files (%d unresolved, %d failed)",
				len(res.Moved), len(res.Unresolved), res.Failed)
			return nil
		})
	},
}
