package cmd

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"

	"github.com/markusressel/controlbox/cmd/global"
	"github.com/markusressel/controlbox/internal/hwmon"
	"github.com/markusressel/controlbox/internal/ui"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect temperature inputs",
	Long:  `Detects all temperature inputs of this host, their paths can be used by TempSensorFile objects`,
	Run: func(cmd *cobra.Command, args []string) {
		chips := hwmon.GetChips()

		tableConfig := &table.Config{
			ShowIndex:       false,
			Color:           !global.NoColor,
			AlternateColors: true,
			TitleColorCode:  ansi.ColorCode("white+buf"),
			AltColorCodes: []string{
				ansi.ColorCode("white"),
				ansi.ColorCode("white:236"),
			},
		}

		for _, chip := range chips {
			ui.Printfln("> %s (%s)", chip.Name, chip.Platform)

			var rows [][]string
			for _, input := range chip.Inputs {
				rows = append(rows, []string{
					strconv.Itoa(input.Index), input.Label, fmt.Sprintf("%.1f", input.Value), input.Path,
				})
			}
			tab := table.Table{
				Headers: []string{"Index", "Label", "Value", "Path"},
				Rows:    rows,
			}

			var buf bytes.Buffer
			if err := tab.WriteTable(&buf, tableConfig); err != nil {
				ui.Fatal("Error printing table: %v", err)
			}
			ui.Printfln(buf.String())
		}

		if len(chips) == 0 {
			ui.Warning("No temperature inputs found")
		}
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
