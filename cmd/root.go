package cmd

import (
	"fmt"
	"os"

	"github.com/omnikv/omnistore/cmd/kv"
	"github.com/omnikv/omnistore/cmd/lock"
	"github.com/omnikv/omnistore/cmd/mirror"
	"github.com/spf13/cobra"
)

const (
	Version = "0.4.2"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "omnistore",
		Short: "uniform key-value storage over any backend",
		Long: fmt.Sprintf(`omnistore (v%s)

A uniform key-value storage layer written in Go. One URI selects the
backend (filesystem, memory, redis, s3, sqlite, bolt); on top of it the
store adds serialization, per-entry expiry and per-key locking.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of omnistore",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("omnistore v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(lock.LockCommands)
	RootCmd.AddCommand(mirror.MirrorCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
