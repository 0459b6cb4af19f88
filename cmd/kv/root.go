package kv

import (
	"github.com/omnikv/omnistore/cmd/util"
	"github.com/omnikv/omnistore/lib/store"
	"github.com/spf13/cobra"
)

var (
	kvStore store.IStore

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform key-value store operations",
		PersistentPreRunE: setupStore,
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
	cobra.OnInitialize(util.InitConfig)

	// Add the common store flags to the KV command
	util.SetupStoreFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(putCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(popCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(hasCmd)
	KeyValueCommands.AddCommand(keysCmd)
	KeyValueCommands.AddCommand(infoCmd)
	KeyValueCommands.AddCommand(touchCmd)
	KeyValueCommands.AddCommand(checksumCmd)
	KeyValueCommands.AddCommand(streamCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupStore resolves the configured URI to a ready store
func setupStore(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	kvStore, err = store.New(util.GetStoreConfig())
	return err
}
