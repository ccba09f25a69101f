package object

import (
	"github.com/spf13/cobra"

	"github.com/markusressel/controlbox/internal/box"
	"github.com/markusressel/controlbox/internal/ui"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored object",
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

		reply := b.Execute(box.Request{Opcode: box.OpDeleteObject, Payload: box.IDPayload(id)})
		if err := reply.Err(); err != nil {
			return err
		}
		ui.Success("Deleted object %d", id)
		return nil
	},
}

func init() {
	Command.AddCommand(deleteCmd)
}
