package profile

import (
	"github.com/spf13/cobra"
)

var Command = &cobra.Command{
	Use:              "profile",
	Short:            "Setpoint profile related commands",
	Long:             ``,
	TraverseChildren: true,
}
