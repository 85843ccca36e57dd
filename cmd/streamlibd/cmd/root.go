// Package cmd implements the streamlibd CLI commands, following
// tvarr's cmd/tvarr/cmd layout (one file per subcommand, a shared root
// with persistent flags bound into viper).
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tatolab/streamlib/internal/observability"
	"github.com/tatolab/streamlib/internal/version"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:     "streamlibd",
	Short:   "Media processing graph runtime",
	Version: version.Short(),
	Long: `streamlibd hosts a directed graph of media processors (sources,
transforms, sinks) connected by typed ring buffers, driven by a
transactional compiler that wires and starts processors against a
shared pipeline clock.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initLogging()
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.streamlibd.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	mustBindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	mustBindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/streamlibd")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".streamlibd")
	}

	viper.SetEnvPrefix("STREAMLIBD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// initLogging builds the process-wide slog logger from the bound
// log.level/log.format viper keys, via internal/observability.
func initLogging() error {
	cfg := observability.DefaultConfig()
	cfg.Level = viper.GetString("log.level")
	cfg.Format = viper.GetString("log.format")

	logger := observability.NewLogger(cfg)
	slog.SetDefault(logger)
	return nil
}

func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %q to key %q: %v", flag.Name, key, err))
	}
}
