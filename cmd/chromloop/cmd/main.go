package cmd

import (
	"log"

	"v.io/x/lib/cmdline"
)

// Run parses and dispatches the chromloop command tree.
func Run() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "chromloop",
			Short:    "Tools for chromatin loop overlap graphs and communities",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdAnnotate(),
				newCmdCommunities(),
				newCmdAdjust(),
				newCmdQNorm(),
			},
		})
}
