package util

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/omnikv/omnistore/lib/codec"
	"github.com/omnikv/omnistore/lib/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupStoreFlags adds the common store connection flags to a command
func SetupStoreFlags(cmd *cobra.Command) {
	key := "uri"
	cmd.PersistentFlags().String(key, "", WrapString("The store URI, e.g. file:///var/data, memory://, redis://localhost:6379/0, s3://bucket/prefix, sqlite:///var/data.db, bolt:///var/data.bolt"))

	key = "mode"
	cmd.PersistentFlags().String(key, "", WrapString("Default serialization mode (raw, text, json, gob). Empty selects a mode from the value's type"))

	key = "ttl"
	cmd.PersistentFlags().Duration(key, 0, WrapString("Default time-to-live for written entries (e.g. 30s, 5m). Zero disables expiry"))

	key = "no-raise"
	cmd.PersistentFlags().Bool(key, false, WrapString("Report absent keys as empty output instead of an error"))

	key = "lock-timeout"
	cmd.PersistentFlags().Duration(key, store.DefaultLockTimeout, WrapString("How long mutating operations wait for the per-key guard"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("omnistore")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetStoreConfig reads the store configuration from viper
func GetStoreConfig() store.Config {
	return store.Config{
		URI:             viper.GetString("uri"),
		Mode:            codec.Mode(viper.GetString("mode")),
		RaiseOnNonexist: !viper.GetBool("no-raise"),
		TTL:             viper.GetDuration("ttl"),
		LockTimeout:     viper.GetDuration("lock-timeout"),
	}
}

// GetTimeout reads a duration flag with a fallback default
func GetTimeout(key string, fallback time.Duration) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
