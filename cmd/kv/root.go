package kv

import (
	"github.com/ValentinKolb/shmKV/cmd/util"
	"github.com/ValentinKolb/shmKV/lib/store"
	"github.com/spf13/cobra"
)

var (
	kvStore store.IStore

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform key-value store operations",
		PersistentPreRunE: setupKVStore,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if kvStore != nil {
				return kvStore.Close()
			}
			return nil
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common store access flags to the KV command
	util.SetupClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(statusCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVStore attaches the store the subcommands operate on
func setupKVStore(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	kvStore, err = util.GetStore()
	return err
}
