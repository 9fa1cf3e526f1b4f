package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/psantana5/workloop/pkg/memguard"
)

var configOutput string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective loop configuration",
	Long: `Show resolves flags, environment variables and the config file into
the effective configuration the run command would use.`,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)

	configShowCmd.Flags().StringVarP(&configOutput, "output", "o", "yaml", "output format: yaml or json")
}

// EffectiveConfig is the resolved run configuration
type EffectiveConfig struct {
	Limit            int    `json:"limit" yaml:"limit"`
	Worker           bool   `json:"worker" yaml:"worker"`
	SleepSeconds     int    `json:"sleep_seconds" yaml:"sleep_seconds"`
	MemoryLimit      string `json:"memory_limit,omitempty" yaml:"memory_limit,omitempty"`
	MemoryLimitBytes int64  `json:"memory_limit_bytes" yaml:"memory_limit_bytes"`
	SpoolDir         string `json:"spool_dir" yaml:"spool_dir"`
	Command          string `json:"command,omitempty" yaml:"command,omitempty"`
	MetricsListen    string `json:"metrics_listen,omitempty" yaml:"metrics_listen,omitempty"`
	LogLevel         string `json:"log_level" yaml:"log_level"`
	LogJSON          bool   `json:"log_json" yaml:"log_json"`
}

func resolveConfig() (EffectiveConfig, error) {
	memLimit, err := memguard.ParseByteSize(viper.GetString("memory_limit"))
	if err != nil {
		return EffectiveConfig{}, fmt.Errorf("invalid memory limit: %w", err)
	}

	return EffectiveConfig{
		Limit:            viper.GetInt("limit"),
		Worker:           viper.GetBool("worker"),
		SleepSeconds:     viper.GetInt("sleep"),
		MemoryLimit:      viper.GetString("memory_limit"),
		MemoryLimitBytes: memLimit,
		SpoolDir:         viper.GetString("spool_dir"),
		Command:          viper.GetString("command"),
		MetricsListen:    viper.GetString("metrics_listen"),
		LogLevel:         viper.GetString("log_level"),
		LogJSON:          viper.GetBool("log_json"),
	}, nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	switch configOutput {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want yaml or json)", configOutput)
	}
}
