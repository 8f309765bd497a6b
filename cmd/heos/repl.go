package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/heoskit/heos/heos"
	"github.com/heoskit/heos/heosprotocol"
	"github.com/spf13/cobra"
)

func newREPLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive shell (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runREPL(cmd)
		},
	}
}

func (a *app) runREPL(cmd *cobra.Command) error {
	h, err := a.session(true)
	if err != nil {
		return err
	}

	out := &syncWriter{w: cmd.OutOrStdout()}
	editor := NewLineEditor(cmd.InOrStdin(), out, a.cfg.REPL.HistoryFile)
	r := newREPL(h, editor, out, cmd.ErrOrStderr())
	defer r.close()

	ctx := cmd.Context()
	if err := h.Connect(ctx); err != nil {
		h.Disconnect()
		return err
	}
	defer h.Disconnect()

	if editor.IsInteractive() {
		fmt.Fprint(out, welcomeBanner(h.CurrentHost()))
	}
	return r.run(ctx)
}

// repl is the interactive shell. Lines starting with a dot are shell
// commands; everything else is parsed into a device command and sent.
type repl struct {
	session *heos.Heos
	parser  *heosprotocol.CommandParser
	editor  *LineEditor
	out     io.Writer
	errOut  io.Writer
	events  atomic.Bool
	unwatch func()
}

func newREPL(h *heos.Heos, editor *LineEditor, out, errOut io.Writer) *repl {
	r := &repl{
		session: h,
		parser:  heosprotocol.NewCommandParser(),
		editor:  editor,
		out:     out,
		errOut:  errOut,
	}
	r.unwatch = subscribeEvents(h.Dispatcher(), eventGate{r}, 0, false)
	return r
}

// eventGate drops event output while events are switched off.
type eventGate struct {
	r *repl
}

func (g eventGate) Write(p []byte) (int, error) {
	if !g.r.events.Load() {
		return len(p), nil
	}
	return g.r.out.Write(p)
}

func (r *repl) close() {
	r.unwatch()
	r.editor.Close()
}

func (r *repl) run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := r.editor.GetLine(r.prompt())
		if err == io.EOF {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ".") {
			if quit := r.dotCommand(line); quit {
				return nil
			}
			continue
		}
		r.execute(ctx, line)
	}
}

func (r *repl) prompt() string {
	return prompt(r.session.State(), r.session.CurrentHost())
}

// prompt shows the host, and the connection state unless connected.
func prompt(state heosprotocol.ConnectionState, host string) string {
	if state == heosprotocol.StateConnected {
		return fmt.Sprintf("heos %s> ", host)
	}
	return fmt.Sprintf("heos %s [%s]> ", host, state)
}

func (r *repl) execute(ctx context.Context, line string) {
	command, err := r.parser.Parse(line)
	if err != nil {
		printError(r.errOut, err)
		return
	}
	msg, err := r.session.Command(ctx, command)
	if err != nil {
		printError(r.errOut, err)
		return
	}
	if err := printMessage(r.out, msg); err != nil {
		printError(r.errOut, err)
	}
}

// dotCommand runs a shell command and reports whether the shell should exit.
func (r *repl) dotCommand(line string) bool {
	fields := strings.Fields(line)
	args := fields[1:]

	switch strings.ToLower(fields[0]) {
	case ".quit", ".exit":
		return true
	case ".help":
		topic := ""
		if len(args) > 0 {
			topic = args[0]
		}
		printHelp(r.out, r.errOut, topic)
	case ".events":
		r.setEvents(args)
	case ".status":
		r.printStatus()
	default:
		fmt.Fprintf(r.errOut, "Error: Unknown command '%s'. Type .help for available commands.\n", fields[0])
	}
	return false
}

func (r *repl) setEvents(args []string) {
	switch {
	case len(args) == 0:
	case strings.EqualFold(args[0], "on"):
		r.events.Store(true)
	case strings.EqualFold(args[0], "off"):
		r.events.Store(false)
	default:
		fmt.Fprintln(r.errOut, "Error: usage: .events [on|off]")
		return
	}
	fmt.Fprintf(r.out, "Events %s\n", onOff(r.events.Load()))
}

func (r *repl) printStatus() {
	h := r.session
	user := "(not signed in)"
	if h.IsSignedIn() {
		user = h.SignedInUsername()
	}
	players := 0
	if system := h.System(); system != nil {
		players = len(system.Hosts)
	}
	failover := strings.Join(h.Connection().FailoverHosts(), ", ")
	if failover == "" {
		failover = "(none)"
	}

	fmt.Fprintf(r.out, "Host:      %s\n", h.CurrentHost())
	fmt.Fprintf(r.out, "State:     %s\n", h.State())
	fmt.Fprintf(r.out, "Account:   %s\n", user)
	fmt.Fprintf(r.out, "Players:   %d\n", players)
	fmt.Fprintf(r.out, "Failover:  %s\n", failover)
	fmt.Fprintf(r.out, "Events:    %s\n", onOff(r.events.Load()))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
