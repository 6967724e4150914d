package commands

import (
	"github.com/spf13/cobra"
)

//RootCmd is the root command for the node
var RootCmd = &cobra.Command{
	Use:              "casper-node",
	Short:            "casper blockchain node",
	TraverseChildren: true,
}
