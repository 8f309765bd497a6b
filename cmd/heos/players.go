package main

import (
	"fmt"

	"github.com/heoskit/heos/heosprotocol"
	"github.com/spf13/cobra"
)

func newPlayersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "players",
		Short: "List the players in the system",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := a.connect(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer h.Disconnect()

			msg, err := h.Command(cmd.Context(), heosprotocol.NewGetPlayersCommand())
			if err != nil {
				return err
			}
			var players []player
			if err := msg.DecodePayload(&players); err != nil {
				return err
			}
			if len(players) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No players found.")
				return nil
			}

			table, err := renderPlayers(players, h.CurrentHost())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), table)
			fmt.Fprintln(cmd.OutOrStdout())

			if system := h.System(); system != nil && system.IsSignedIn() {
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", system.SignedInUsername)
			}
			return nil
		},
	}
}
