package object

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tomlazar/table"

	"github.com/markusressel/controlbox/internal/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print all stored objects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBox()
		if err != nil {
			return err
		}

		var rows [][]string
		for _, snapshot := range b.Snapshots().All() {
			state := "active"
			if snapshot.Inactive {
				state = "inactive"
			}
			rows = append(rows, []string{
				strconv.Itoa(int(snapshot.ID)),
				snapshot.TypeName,
				fmt.Sprintf("%v", snapshot.Groups),
				state,
			})
		}

		tab := table.Table{
			Headers: []string{"ID", "Type", "Groups", "State"},
			Rows:    rows,
		}
		var buf bytes.Buffer
		if err := tab.WriteTable(&buf, tableConfig()); err != nil {
			return err
		}
		ui.Printfln(buf.String())
		return nil
	},
}

func init() {
	Command.AddCommand(listCmd)
}
