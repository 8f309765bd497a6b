package main

import (
	"context"
	"fmt"

	"github.com/heoskit/heos/heos"
	"github.com/heoskit/heos/heosprotocol"
	"github.com/heoskit/heos/internal/config"
	"github.com/heoskit/heos/internal/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app holds the state shared by every command of one invocation.
type app struct {
	viper      *viper.Viper
	configFile string
	cfg        *config.Config
	log        *logrus.Logger
}

// flagKeys maps persistent flags to configuration keys.
var flagKeys = map[string]string{
	"host":                "host",
	"port":                "connection.port",
	"timeout":             "connection.timeout",
	"reconnect":           "connection.reconnect",
	"reconnect-delay":     "connection.reconnect_delay",
	"reconnect-attempts":  "connection.reconnect_max_attempts",
	"failover":            "connection.failover",
	"failover-host":       "connection.failover_hosts",
	"heart-beat":          "connection.heart_beat",
	"heart-beat-interval": "connection.heart_beat_interval",
	"username":            "session.username",
	"password":            "session.password",
	"all-progress-events": "session.all_progress_events",
	"log-level":           "log.level",
	"log-format":          "log.format",
	"log-file":            "log.file_path",
	"history-file":        "repl.history_file",
}

func newRootCmd() *cobra.Command {
	a := &app{viper: viper.New()}

	root := &cobra.Command{
		Use:   appName,
		Short: "Command line client for HEOS devices",
		Long: `heos talks to HEOS devices over the CLI protocol (TCP port 1255).

Without a subcommand it starts an interactive shell. Settings come from
heos.yaml (current directory or $HOME/.config/heos), HEOS_* environment
variables (for example HEOS_HOST or HEOS_CONNECTION_TIMEOUT) and flags.`,
		Example: `  heos --host 192.168.1.20
  heos send -H 192.168.1.20 player/get_volume pid=1
  heos players
  heos watch --player 1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runREPL(cmd)
		},
	}

	defaults := heosprotocol.DefaultOptions()
	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default ./heos.yaml or $HOME/.config/heos/heos.yaml)")
	flags.StringP("host", "H", "", "device host name or IP address")
	flags.Int("port", defaults.Port, "device CLI port")
	flags.Duration("timeout", defaults.Timeout, "connect and response timeout")
	flags.Bool("reconnect", true, "reconnect when the connection drops")
	flags.Duration("reconnect-delay", defaults.ReconnectDelay, "pause before each reconnect attempt")
	flags.Int("reconnect-attempts", defaults.ReconnectMaxAttempts, "reconnect attempts, 0 retries forever")
	flags.Bool("failover", false, "reconnect to other devices in the system")
	flags.StringSlice("failover-host", nil, "failover host, may be repeated")
	flags.Bool("heart-beat", defaults.HeartBeat, "send heart beats on an idle connection")
	flags.Duration("heart-beat-interval", defaults.HeartBeatInterval, "idle time before a heart beat")
	flags.String("username", "", "HEOS account to sign in with")
	flags.String("password", "", "HEOS account password")
	flags.Bool("all-progress-events", false, "report now playing progress events")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("log-file", "", "write logs to this file, rotated")
	flags.String("history-file", "", "shell history file (default ~/.heos_history)")

	for name, key := range flagKeys {
		if err := a.viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}

	root.AddCommand(
		newREPLCmd(a),
		newSendCmd(a),
		newPlayersCmd(a),
		newWatchCmd(a),
		newVersionCmd(),
	)
	return root
}

// load reads the configuration and builds the logger.
func (a *app) load(cmd *cobra.Command) error {
	if cmd.Flags().Changed("log-file") {
		a.viper.Set("log.output", "file")
	}

	cfg, err := config.NewLoader(a.viper, a.configFile).Load()
	if err != nil {
		return err
	}
	log, err := logger.New(&cfg.Log)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	if used := a.viper.ConfigFileUsed(); used != "" {
		log.WithField("file", used).Debug("Loaded config")
	}
	return nil
}

// session creates a session for the configured host.
func (a *app) session(events bool) (*heos.Heos, error) {
	if err := a.cfg.RequireHost(); err != nil {
		return nil, err
	}
	opts := append(a.cfg.SessionOptions(a.log), heos.WithEvents(events))
	return heos.New(a.cfg.Host, opts...), nil
}

// connect creates a session and connects it.
func (a *app) connect(ctx context.Context, events bool) (*heos.Heos, error) {
	h, err := a.session(events)
	if err != nil {
		return nil, err
	}
	if err := h.Connect(ctx); err != nil {
		h.Disconnect()
		return nil, err
	}
	return h, nil
}
