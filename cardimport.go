// Cardimport copies photos from a removable card to archive, preview
// and backup destinations with checksum verification, then reorganizes
// the archive into date-partitioned, attribute-encoded names.
package main

import (
	"github.com/cardimport/cardimport/cmd"
	_ "github.com/cardimport/cardimport/cmd/importcmd"
	_ "github.com/cardimport/cardimport/cmd/organize"
	_ "github.com/cardimport/cardimport/cmd/rename"
	_ "github.com/cardimport/cardimport/cmd/version"
)

func main() {
	cmd.Main()
}
