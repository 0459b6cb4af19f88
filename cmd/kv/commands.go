package kv

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	putCmd = &cobra.Command{
		Use:   "put [key] [value]",
		Short: "Stores a value under a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			if err := kvStore.Put(cmd.Context(), key, value); err != nil {
				return err
			}
			fmt.Println("put successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value, err := kvStore.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			printValue(value)
			return nil
		},
	}
	popCmd = &cobra.Command{
		Use:   "pop [key]",
		Short: "Reads the value for a key and deletes the entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value, err := kvStore.Pop(cmd.Context(), key)
			if err != nil {
				return err
			}
			printValue(value)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := kvStore.Delete(cmd.Context(), key); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks if a key holds a live entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			found, err := kvStore.Exists(cmd.Context(), key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%t\n", key, found)
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys [prefix]",
		Short: "Lists all keys under an optional prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) > 0 {
				prefix = args[0]
			}
			for key, err := range kvStore.IterateKeys(cmd.Context(), prefix) {
				if err != nil {
					return err
				}
				fmt.Println(key)
			}
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info [key]",
		Short: "Prints metadata for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			info, err := kvStore.Info(cmd.Context(), key)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	touchCmd = &cobra.Command{
		Use:   "touch [key]",
		Short: "Stores the current timestamp under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			ts, err := kvStore.Touch(cmd.Context(), key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, touched=%s\n", key, ts.Format("2006-01-02T15:04:05.000Z07:00"))
			return nil
		},
	}
	checksumCmd = &cobra.Command{
		Use:   "checksum [key] [algorithm]",
		Short: "Computes a content digest for a key (sha256 default, sha1, md5, sha512)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			algorithm := ""
			if len(args) > 1 {
				algorithm = args[1]
			}
			digest, err := kvStore.Checksum(cmd.Context(), key, algorithm)
			if err != nil {
				return err
			}
			fmt.Println(digest)
			return nil
		},
	}
	streamCmd = &cobra.Command{
		Use:   "stream [key]",
		Short: "Streams the stored payload line by line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			for line, err := range kvStore.Stream(cmd.Context(), key) {
				if err != nil {
					return err
				}
				fmt.Println(string(line))
			}
			return nil
		},
	}
)

// printValue prints a decoded value; byte payloads print as-is, typed
// values through their default formatting
func printValue(value any) {
	switch v := value.(type) {
	case nil:
		// absent key under the no-raise policy
	case []byte:
		fmt.Println(string(v))
	case string:
		fmt.Println(v)
	default:
		fmt.Printf("%v\n", v)
	}
}
