// Package importcmd implements the full card import workflow.
package importcmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cardimport/cardimport/card"
	"github.com/cardimport/cardimport/cmd"
	"github.com/cardimport/cardimport/copier"
	"github.com/cardimport/cardimport/meta"
	"github.com/cardimport/cardimport/pacer"
	"github.com/cardimport/cardimport/prompt"
	"github.com/cardimport/cardimport/workflow"
)

var yes bool

func init() {
	commandDefinition.Flags().BoolVarP(&yes, "yes", "y", false, "Continue past copy and checksum failures without asking")
	cmd.Root.AddCommand(commandDefinition)
}

var commandDefinition = &cobra.Command{
	Use:   "import [card-path]",
	Short: `Copy a card to all destinations, verify checksums and reorganize the archive.`,
	Long: `
Copy every file on the card to its destinations: raw files to the
archive's staging bucket, previews to the jpeg archive, everything to
the backup mirror. Checksums are captured before the copy and verified
after it, the staging bucket is reorganized into canonical dated names,
and the final layout is validated against the original card.

With no card-path the conventional media mount points are searched for
a volume with a DCIM folder.
`,
	Run: func(command *cobra.Command, args []string) {
		cmd.CheckArgs(0, 1, command, args)
		log := cmd.Logger()
		cmd.Run(command, func() error {
			cfg, err := cmd.LoadConfig()
			if err != nil {
				return err
			}

			var c *card.Card
			if len(args) == 1 {
				c, err = card.New(args[0])
			} else if cfg.CardPath != "" {
				c, err = card.New(cfg.CardPath)
			} else {
				c, err = card.Resolve()
			}
			if err != nil {
				return err
			}
			log.Infof("importing card at %q", c.Path)

			p := pacer.New(cfg.Retries, cfg.RetrySleep)
			cp := copier.NewRsync(p, log)
			cp.DryRun = cfg.DryRun
			cp.Base = c.Path

			ask := prompt.Terminal()
			if yes {
				ask = prompt.Always()
			}

			w := workflow.New(cfg, c, &meta.ExifSource{Log: log}, cp, ask, log)
			if err := w.Run(context.Background()); err != nil {
				return err
			}
			log.Info("card import successful")
			return nil
		})
	},
}
