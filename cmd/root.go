package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/shmKV/cmd/kv"
	"github.com/ValentinKolb/shmKV/cmd/segment"
	"github.com/ValentinKolb/shmKV/cmd/serve"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "shmkv",
		Short: "shared-memory key-value store",
		Long: fmt.Sprintf(`shmKV (v%s)

A broker-less key-value store on POSIX shared memory. Processes on one
machine exchange key-value pairs through a named segment with a fixed
binary layout, synchronized by a lock embedded in the segment itself.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of shmKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("shmKV v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(segment.SegmentCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
