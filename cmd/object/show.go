package object

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markusressel/controlbox/internal/ui"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the state of a stored object as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		b, err := openBox()
		if err != nil {
			return err
		}

		snapshot, ok := b.Snapshots().Get(id)
		if !ok {
			return fmt.Errorf("no object with id %d", id)
		}
		data, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return err
		}
		ui.Printfln(string(data))
		return nil
	},
}

func init() {
	Command.AddCommand(showCmd)
}
