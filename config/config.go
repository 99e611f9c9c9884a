// Package config loads the daemon's TOML configuration into immutable
// structs at startup. Unlike the teacher's core/config package (package-level
// vars mutated by flag parsing), every long-lived component here receives
// its configuration explicitly at construction, per SPEC_FULL.md §9's
// "treat it as an explicit value" design note.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Device mirrors the distilled spec's [device] table.
type Device struct {
	Backend        string `mapstructure:"backend"`
	PlatformID     int    `mapstructure:"platform_id"`
	DeviceID       int    `mapstructure:"device_id"`
	GlobalWorkSize uint32 `mapstructure:"global_work_size"`
	// LocalWorkSize and HashesNumber are retained only for configuration-file
	// compatibility with the original kernel ABI; unused by the CPU device.
	LocalWorkSize uint32 `mapstructure:"local_work_size"`
	HashesNumber  uint32 `mapstructure:"hashes_number"`
}

// Work mirrors the distilled spec's [work] table.
type Work struct {
	Address                        uint64 `mapstructure:"address"`
	Passphrase                     string `mapstructure:"passphrase"`
	WalletURL                      string `mapstructure:"wallet_url"`
	MiningInfoIntervalSeconds      uint64 `mapstructure:"mining_info_interval_seconds"`
	TargetDeadlineSeconds          uint64 `mapstructure:"target_deadline"`
	SubmissionRetryNumber          int    `mapstructure:"submission_retry_number"`
	SubmissionRetryIntervalSeconds uint64 `mapstructure:"submission_retry_interval_seconds"`
}

// Observability is an ADDED table (§6) for the metrics server and the
// submission ledger's on-disk location.
type Observability struct {
	MetricsListenAddress string `mapstructure:"metrics_listen_address"`
	DataDir              string `mapstructure:"data_dir"`
}

// Config is the fully parsed, immutable configuration for one run.
type Config struct {
	Device        Device
	Work          Work
	Observability Observability
}

// Load reads Settings-default.toml from configDir, merges an optional
// Settings.toml override on top (mirroring the original Rust config crate's
// layered-merge behaviour), and validates the result.
func Load(configDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("Settings-default")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read Settings-default.toml: %w", err)
		}
	}

	override := viper.New()
	override.SetConfigName("Settings")
	override.SetConfigType("toml")
	override.AddConfigPath(configDir)
	if err := override.ReadInConfig(); err == nil {
		if err := v.MergeConfigMap(override.AllSettings()); err != nil {
			return nil, fmt.Errorf("config: merge Settings.toml override: %w", err)
		}
	} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
		return nil, fmt.Errorf("config: read Settings.toml override: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device.backend", "cpu")
	v.SetDefault("device.global_work_size", 64)
	v.SetDefault("device.local_work_size", 64)
	v.SetDefault("work.mining_info_interval_seconds", 3)
	v.SetDefault("work.submission_retry_number", 3)
	v.SetDefault("work.submission_retry_interval_seconds", 3)
	v.SetDefault("observability.metrics_listen_address", "127.0.0.1:9091")
	v.SetDefault("observability.data_dir", "data")
}

func (c *Config) validate() error {
	if c.Device.GlobalWorkSize == 0 {
		return fmt.Errorf("config: device.global_work_size must be non-zero")
	}
	if c.Work.WalletURL == "" {
		return fmt.Errorf("config: work.wallet_url must be set")
	}
	if c.Work.Address == 0 {
		return fmt.Errorf("config: work.address must be set")
	}
	return nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Work.MiningInfoIntervalSeconds) * time.Second
}

func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.Work.SubmissionRetryIntervalSeconds) * time.Second
}
