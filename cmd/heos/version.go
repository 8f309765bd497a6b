package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

const (
	version = "0.1.0"
	appName = "heos"
)

func fullTitle() string {
	return fmt.Sprintf("%s v%s (%s)", appName, version, runtime.Version())
}

func welcomeBanner(host string) string {
	return fmt.Sprintf(`%s - HEOS CLI protocol client
Connected to %s

Type '.help' for available commands.
Type '.quit' to exit.
`, fullTitle(), host)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), fullTitle())
		},
	}
}
