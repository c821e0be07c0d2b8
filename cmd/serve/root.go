package serve

import (
	"fmt"
	"strings"

	cmdUtil "github.com/ValentinKolb/shmKV/cmd/util"
	"github.com/ValentinKolb/shmKV/rest/common"
	"github.com/ValentinKolb/shmKV/rest/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the shmKV server",
		Long:    `Start the shmKV server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is SHMKV_<flag> (e.g. SHMKV_ENDPOINT=0.0.0.0:9090)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "stores"
	ServeCmd.PersistentFlags().String(key, "kv=gitflow_kv_store", cmdUtil.WrapString("Comma-separated list of stores to serve. Format: ALIAS=SEGMENT where ALIAS is the route name and SEGMENT the shared-memory segment to attach (created if it does not exist)"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// parse stores
	storesConfig := viper.GetString("stores")
	serveCmdConfig.Stores = map[string]string{}
	for _, storeConfig := range strings.Split(storesConfig, ",") {
		parts := strings.Split(storeConfig, "=")
		if len(parts) != 2 {
			return fmt.Errorf("invalid store format: %s (expected ALIAS=SEGMENT)", storeConfig)
		}

		alias := strings.TrimSpace(parts[0])
		segment := strings.TrimSpace(parts[1])
		if alias == "" || segment == "" {
			return fmt.Errorf("invalid store format: %s (alias and segment must not be empty)", storeConfig)
		}
		if existing, ok := serveCmdConfig.Stores[alias]; ok {
			return fmt.Errorf("duplicate store alias %s (already mapped to %s)", alias, existing)
		}

		serveCmdConfig.Stores[alias] = segment
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return nil
}

// run starts the shmKV server
func run(_ *cobra.Command, _ []string) error {
	common.InitLoggers(serveCmdConfig.LogLevel)

	serv := server.NewServer(*serveCmdConfig)

	return serv.Serve()
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("shmkv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
