package cmd

import (
	"fmt"
	"reflect"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tatolab/streamlib/internal/observability"
)

// defaultsConfig mirrors the viper keys root.go and serve.go bind flags
// into, purely so `config dump` has something concrete to marshal — there
// is no internal/config.Load equivalent here since runtime configuration
// lives in the graph (per-processor config, decoded by internal/config),
// not in a single top-level application config struct.
type defaultsConfig struct {
	Server struct {
		Host      string `mapstructure:"host"`
		Port      int    `mapstructure:"port"`
		DemoGraph bool   `mapstructure:"demo_graph"`
	} `mapstructure:"server"`
	Log observability.Config `mapstructure:"log"`
}

func defaultDefaultsConfig() defaultsConfig {
	var cfg defaultsConfig
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Server.DemoGraph = true
	cfg.Log = observability.DefaultConfig()
	return cfg
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the default configuration",
	Long: `Dump the default streamlibd configuration in YAML format.

Configuration can be overridden via:
  - A config file (see --config)
  - Environment variables (STREAMLIBD_SERVER_PORT, STREAMLIBD_LOG_LEVEL, etc.)
  - Command-line flags, for the options serve exposes directly

Environment variables use the STREAMLIBD_ prefix with underscores for
nesting: server.port -> STREAMLIBD_SERVER_PORT.`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

// toMap flattens a struct into a map keyed by its mapstructure tags (or
// field name as a fallback), recursing into nested structs, so the YAML
// output uses the same keys viper binds against rather than Go field
// names.
func toMap(v any) map[string]any {
	result := make(map[string]any)
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		key := fieldType.Tag.Get("mapstructure")
		if key == "" {
			key = fieldType.Name
		}

		if field.Kind() == reflect.Struct {
			result[key] = toMap(field.Interface())
		} else {
			result[key] = field.Interface()
		}
	}
	return result
}

func runConfigDump(cmd *cobra.Command, args []string) error {
	cfgMap := toMap(defaultDefaultsConfig())

	yamlData, err := yaml.Marshal(cfgMap)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	fmt.Println("# streamlibd configuration file")
	fmt.Println("# ==============================")
	fmt.Println("#")
	fmt.Println("# All values shown below are defaults.")
	fmt.Println("#")
	fmt.Println("# Environment variable overrides:")
	fmt.Println("#   STREAMLIBD_SERVER_HOST, STREAMLIBD_SERVER_PORT, STREAMLIBD_SERVER_DEMO_GRAPH")
	fmt.Println("#   STREAMLIBD_LOG_LEVEL, STREAMLIBD_LOG_FORMAT")
	fmt.Println("#")
	fmt.Println()
	fmt.Print(string(yamlData))

	return nil
}
