package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/markusressel/controlbox/internal/box"
	"github.com/markusressel/controlbox/internal/connections"
	"github.com/markusressel/controlbox/internal/ui"
)

var (
	sendAddress string
	sendTimeout time.Duration
	sendOpcode  string
)

var sendCmd = &cobra.Command{
	Use:   "send <hex>",
	Short: "Send a command to a running daemon",
	Long: `Sends a command to a running daemon over TCP and prints the decoded reply.
The argument is either a complete request line, or with --op the payload
of a request that is framed for you.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		line := strings.TrimSpace(args[0])
		if sendOpcode != "" {
			op, ok := box.OpcodeByName(sendOpcode)
			if !ok {
				return fmt.Errorf("unknown opcode: %s", sendOpcode)
			}
			payload, err := hex.DecodeString(line)
			if err != nil {
				return fmt.Errorf("invalid payload: %v", err)
			}
			line = box.Request{MsgID: uint16(time.Now().UnixNano()), Opcode: op, Payload: payload}.Encode()
		}

		address := sendAddress
		if address == "" {
			_ = viper.ReadInConfig()
			address = viper.GetString("connections.tcp.address")
		}

		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		replyLine, err := connections.Send(ctx, address, line)
		if err != nil {
			return err
		}

		reply, err := box.DecodeReply(replyLine)
		if err != nil {
			return fmt.Errorf("invalid reply %q: %v", replyLine, err)
		}
		ui.Printfln("msgId:   %d", reply.MsgID)
		if err := reply.Err(); err != nil {
			ui.Error("status:  %d (%v)", reply.Status, err)
		} else {
			ui.Printfln("status:  %d", reply.Status)
		}
		ui.Printfln("payload: %s", strings.ToUpper(hex.EncodeToString(reply.Payload)))
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVarP(&sendAddress, "address", "a", "", "address of the daemon (default is connections.tcp.address)")
	sendCmd.Flags().DurationVarP(&sendTimeout, "timeout", "t", 5*time.Second, "time to wait for the reply")
	sendCmd.Flags().StringVarP(&sendOpcode, "op", "o", "", "frame the argument as payload of this opcode, e.g. READ_OBJECT")
	rootCmd.AddCommand(sendCmd)
}

