package commands

import (
	"fmt"

	"github.com/shivlim/casper-node/src/version"
	"github.com/spf13/cobra"
)

// VersionCmd displays the node version and the API version it serves
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Version)
		fmt.Printf("API %s\n", version.APIVersion.String())
	},
}
