package mirror

import (
	"fmt"

	"github.com/omnikv/omnistore/cmd/util"
	"github.com/omnikv/omnistore/lib/store"
	"github.com/spf13/cobra"
)

var (
	prefix        string
	excludePrefix string
	glob          string
	overwrite     bool

	// MirrorCmd represents the mirror command
	MirrorCmd = &cobra.Command{
		Use:   "mirror [source-uri] [target-uri]",
		Short: "Copies all keys from one store to another",
		Long: util.WrapString("Copies every key from the source store into the target store, " +
			"streaming payloads and carrying the serialization mode of each entry over. Keys " +
			"already present in the target are skipped unless --overwrite is set."),
		Args: cobra.ExactArgs(2),
		RunE: runMirror,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	MirrorCmd.Flags().StringVar(&prefix, "prefix", "", "Only mirror keys under this prefix")
	MirrorCmd.Flags().StringVar(&excludePrefix, "exclude-prefix", "", "Skip keys under this prefix")
	MirrorCmd.Flags().StringVar(&glob, "glob", "", "Only mirror keys matching this pattern")
	MirrorCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace keys that already exist in the target")
}

// runMirror opens both stores and copies the selected keys
func runMirror(cmd *cobra.Command, args []string) error {
	source, err := store.New(store.DefaultConfig(args[0]))
	if err != nil {
		return fmt.Errorf("failed to open source store: %v", err)
	}
	defer source.Close()

	target, err := store.New(store.DefaultConfig(args[1]))
	if err != nil {
		return fmt.Errorf("failed to open target store: %v", err)
	}
	defer target.Close()

	copied, err := store.Mirror(cmd.Context(), source, target, store.MirrorConfig{
		Prefix:        prefix,
		ExcludePrefix: excludePrefix,
		Glob:          glob,
		Overwrite:     overwrite,
	})
	if err != nil {
		return err
	}
	fmt.Printf("mirrored %d keys\n", copied)
	return nil
}
