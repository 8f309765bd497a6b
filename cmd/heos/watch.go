package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/heoskit/heos/dispatch"
	"github.com/heoskit/heos/heos"
	"github.com/heoskit/heos/heosprotocol"
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	var playerID int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print device events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := a.session(true)
			if err != nil {
				return err
			}
			out := &syncWriter{w: cmd.OutOrStdout()}
			disconnect := subscribeEvents(h.Dispatcher(), out, playerID, true)
			defer disconnect()

			ctx := cmd.Context()
			if err := h.Connect(ctx); err != nil {
				h.Disconnect()
				return err
			}
			defer h.Disconnect()

			fmt.Fprintf(out, "Watching %s, press Ctrl-C to stop\n", h.CurrentHost())
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().IntVar(&playerID, "player", 0, "only show events for this player id")
	return cmd
}

// subscribeEvents prints session, reconnect and device events to w. A
// non-zero playerID limits player events to that player. Timestamps prefix
// each line when stamp is set.
func subscribeEvents(d *dispatch.Dispatcher, w io.Writer, playerID int, stamp bool) (disconnect func()) {
	printEvent := func(_ context.Context, event any) error {
		line := formatEvent(event)
		if line == "" {
			return nil
		}
		if stamp {
			line = timestamp(time.Now()) + " " + line
		}
		_, err := fmt.Fprintln(w, line)
		return err
	}

	var playerFilter dispatch.Predicate
	if playerID != 0 {
		playerFilter = heos.ForPlayer(playerID)
	}

	disconnects := []func(){
		d.Connect(heos.SignalHeos, printEvent),
		d.Connect(heosprotocol.SignalReconnecting, printEvent),
		d.ConnectFiltered(heos.SignalPlayer, playerFilter, printEvent),
		d.Connect(heos.SignalGroup, printEvent),
		d.Connect(heos.SignalController, printEvent),
	}
	return func() {
		for _, disconnect := range disconnects {
			disconnect()
		}
	}
}
