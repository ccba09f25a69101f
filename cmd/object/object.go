package object

import (
	"fmt"
	"strconv"

	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tomlazar/table"

	"github.com/markusressel/controlbox/cmd/global"
	"github.com/markusressel/controlbox/internal"
	"github.com/markusressel/controlbox/internal/box"
	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/configuration"
	"github.com/markusressel/controlbox/internal/ui"
)

var Command = &cobra.Command{
	Use:              "object",
	Short:            "Inspect and modify stored objects",
	Long:             `Works on the object storage directly, the daemon should not be running.`,
	TraverseChildren: true,
}

func openBox() (*box.Box, error) {
	configuration.ReadConfigFile()
	if err := configuration.Validate(viper.ConfigFileUsed()); err != nil {
		ui.Fatal(err.Error())
	}
	return internal.OpenBox(configuration.CurrentConfig, global.Version)
}

func parseID(arg string) (cbox.ObjectID, error) {
	id, err := strconv.ParseUint(arg, 10, 16)
	if err != nil || id == 0 {
		return cbox.InvalidID, fmt.Errorf("invalid object id: %s", arg)
	}
	return cbox.ObjectID(id), nil
}

func tableConfig() *table.Config {
	return &table.Config{
		ShowIndex:       false,
		Color:           !global.NoColor,
		AlternateColors: true,
		TitleColorCode:  ansi.ColorCode("white+buf"),
		AltColorCodes: []string{
			ansi.ColorCode("white"),
			ansi.ColorCode("white:236"),
		},
	}
}
