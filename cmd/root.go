package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nessdb",
	Short: "A single event loop key-value server",
	Long: "nessdb serves PING, SET, MSET, GET, MGET, DEL, EXISTS and INFO over the Redis protocol\n" +
		"from one event loop, backed by a pluggable storage engine.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
