package config

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/markusressel/controlbox/internal/configuration"
	"github.com/markusressel/controlbox/internal/ui"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validates the current configuration",
	Long:  ``,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// note: config file path parameter comes from the root command (-c)
		configuration.ReadConfigFile()

		if err := configuration.Validate(viper.ConfigFileUsed()); err != nil {
			ui.Error("Validation failed: %v", err)
			os.Exit(1)
		}

		ui.Success("Config looks good! :)")
		return nil
	},
}

func init() {
	Command.AddCommand(validateCmd)
}
