package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/shmKV/lib/store"
	"github.com/ValentinKolb/shmKV/lib/store/shmstore"
	"github.com/ValentinKolb/shmKV/rest/client"
	"github.com/ValentinKolb/shmKV/rest/common"
	"github.com/joho/godotenv"
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

// SetupClientFlags adds the common store access flags to a command. A
// command either attaches to a local segment directly (--segment) or talks
// to a remote server (--endpoints and --store); --segment wins when both
// are set.
func SetupClientFlags(cmd *cobra.Command) {
	key := "segment"
	cmd.PersistentFlags().String(key, "", WrapString("Name of a local shared-memory segment to attach to directly. When set, no server is contacted"))

	key = "endpoints"
	cmd.PersistentFlags().String(key, "http://localhost:8080", WrapString("The address of the shmKV server. Multiple endpoints can be specified as a comma-separated list"))

	key = "store"
	cmd.PersistentFlags().String(key, "kv", WrapString("Alias of the store to use on the remote server"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to retry a request on transport failures"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "error", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("shmkv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		Endpoints:     strings.Split(viper.GetString("endpoints"), ","),
		Store:         viper.GetString("store"),
		TimeoutSecond: viper.GetInt("timeout"),
		RetryCount:    viper.GetInt("retries"),
	}
}

// GetStore creates the store a CLI command operates on. With --segment set
// it attaches to the local segment (which must already exist, see the
// segment create command), otherwise it creates a REST client.
func GetStore() (store.IStore, error) {
	common.InitLoggers(viper.GetString("log-level"))

	if segment := viper.GetString("segment"); segment != "" {
		s, err := shmstore.NewStore(segment)
		if err != nil {
			return nil, fmt.Errorf("failed to attach to segment %s: %w", segment, err)
		}
		return s, nil
	}

	return client.NewRESTStore(*GetClientConfig())
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
