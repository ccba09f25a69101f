package cmd

import (
	"github.com/markusressel/controlbox/cmd/global"
	"github.com/markusressel/controlbox/internal/ui"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of controlbox",
	Long:  `All software has versions. This is controlbox's`,
	Run: func(cmd *cobra.Command, args []string) {
		ui.Printfln(global.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
