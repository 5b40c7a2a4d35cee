// Package rename migrates archived raw files from the legacy
// dash-delimited naming scheme to the current canonical one.
package rename

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/cardimport/cardimport/cmd"
	"github.com/cardimport/cardimport/meta"
	"github.com/cardimport/cardimport/naming"
)

func init() {
	cmd.Root.AddCommand(commandDefinition)
}

// oldFormatRe matches the legacy name layout, capturing the shot
// number, e.g. "20230805-a7r4-1935--7-10 EV-8.27B-ISO 800-lens.arw".
var oldFormatRe = regexp.MustCompile(`^(?i)\d{8}-\w+-(\d{3,}|unknown)-(\d+( \d+))?--?\d+( \d+)?--?\d+([. ]\d+)? EV--?\d+([. ]\d+)B-ISO \d+-.*\.arw$`)

var commandDefinition = &cobra.Command{
	Use:   "rename",
	Short: `Rename legacy-format archive files to the current naming scheme.`,
	Long: `
Walk the raw archive root for files still named in the old
dash-delimited format, re-derive the canonical name from their
metadata, and rename them in place. The shot number is taken from the
old name, since the original filename tail is gone. Existing files are
never clobbered.
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

			namer := &naming.Namer{Root: cfg.RawRoot, Limit: cfg.PathLimit}
			source := &meta.ExifSource{Log: log}
			renamed := 0

			err = filepath.Walk(cfg.RawRoot, func(path string, info os.FileInfo, err error) error {
				if err != nil || info.IsDir() {
					return err
				}
				m := oldFormatRe.FindStringSubmatch(info.Name())
				if m == nil {
					return nil
				}
				rec, err := source.Extract(path)
				if err != nil {
					log.WithField("file", path).Errorf("cannot read metadata: %v", err)
					return nil
				}
				name := namer.Name(rec, false, naming.Overrides{Number: m[1]})
				dest := filepath.Join(filepath.Dir(path), name)
				if _, err := os.Stat(dest); err == nil {
					log.WithField("file", dest).Warn("target already exists, skipping")
					return nil
				}
				if cfg.DryRun {
					log.Infof("dry run: would rename %q -> %q", path, dest)
					return nil
				}
				if err := os.Rename(path, dest); err != nil {
					log.WithField("file", path).Errorf("rename failed: %v", err)
					return nil
				}
				renamed++
				return nil
			})
			if err != nil {
				return err
			}
			log.Infof("renamed %d files", renamed)
			return nil
		})
	},
}
