// Package cmd provides the CLI commands for the authgate gateway.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bastion-labs/authgate"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "authgate",
	Short: "authgate - embedded authentication/authorization gateway",
	Long: `authgate is an authentication/authorization gateway: token issuance
and verification, signing-key lifecycle, and an ordered set of security
chains routing requests to basic, bearer, and session authentication.

Configuration:
  Config is loaded from authgate.yaml in the current directory,
  $HOME/.authgate/, or /etc/authgate/.

  Environment variables override config values with the AUTHGATE_ prefix.
  Example: AUTHGATE_LISTEN_ADDR=:9090`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./authgate.yaml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("authgate")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.authgate")
		viper.AddConfigPath("/etc/authgate")
	}

	viper.SetEnvPrefix("AUTHGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "failed to read config: %v\n", err)
			os.Exit(1)
		}
	}
}

func loadConfig() (authgate.Config, error) {
	cfg := authgate.Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse configuration: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}
