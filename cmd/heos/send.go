package main

import (
	"strings"

	"github.com/heoskit/heos/heosprotocol"
	"github.com/spf13/cobra"
)

func newSendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send <command> [key=value...]",
		Short: "Send one command and print the response",
		Long: `Send one command and print the response.

The command is a request URI, a command name followed by key=value
arguments, or a shell short form such as "volume 1 30". Type .help in the
shell for the short forms.`,
		Example: `  heos send player/get_volume pid=1
  heos send 'heos://player/set_volume?pid=1&level=30'
  heos send volume 1 30`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := heosprotocol.NewCommandParser().Parse(strings.Join(args, " "))
			if err != nil {
				return err
			}

			h, err := a.connect(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer h.Disconnect()

			msg, err := h.Command(cmd.Context(), command)
			if err != nil {
				return err
			}
			return printMessage(cmd.OutOrStdout(), msg)
		},
	}
}
