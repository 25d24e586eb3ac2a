package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultRPC   = "https://rpc.gno.land:443"
	DefaultRealm = "gno.land/r/greg007/gnobounty_v2"
)

// Config holds the settings shared by every command.
type Config struct {
	RPCURL            string
	Realm             string
	LogLevel          string
	RateLimit         int
	MaxRetries        int
	RetryBackoff      time.Duration
	CallTimeout       time.Duration
	Concurrency       int
	MaxBounties       uint64
	IncludeValidators bool
}

// ServeConfig holds configuration for the serve command.
type ServeConfig struct {
	Config
	Addr            string
	ShutdownTimeout time.Duration
}

// SnapshotConfig holds configuration for the snapshot command.
type SnapshotConfig struct {
	Config
	Out      string
	PGDSN    string
	Interval time.Duration
}

// LoadServe merges config file, environment variables, and flags into ServeConfig.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("addr", ":8080")
		v.SetDefault("shutdown-timeout", 10*time.Second)
	})
	if err != nil {
		return ServeConfig{}, err
	}

	cfg := ServeConfig{
		Config:          base(v),
		Addr:            v.GetString("addr"),
		ShutdownTimeout: v.GetDuration("shutdown-timeout"),
	}
	return cfg, cfg.validate()
}

// LoadSnapshot merges config file, environment variables, and flags into SnapshotConfig.
func LoadSnapshot(cfgFile string, flags *pflag.FlagSet) (SnapshotConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("out", "./data")
		v.SetDefault("interval", time.Duration(0))
	})
	if err != nil {
		return SnapshotConfig{}, err
	}

	cfg := SnapshotConfig{
		Config:   base(v),
		Out:      v.GetString("out"),
		PGDSN:    v.GetString("pg-dsn"),
		Interval: v.GetDuration("interval"),
	}
	if err := cfg.validate(); err != nil {
		return SnapshotConfig{}, err
	}
	if cfg.Interval < 0 {
		return SnapshotConfig{}, fmt.Errorf("interval must not be negative")
	}
	if cfg.Out == "" && cfg.PGDSN == "" {
		return SnapshotConfig{}, fmt.Errorf("either out or pg-dsn is required")
	}
	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("GNOBOUNTY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("rpc", DefaultRPC)
	v.SetDefault("realm", DefaultRealm)
	v.SetDefault("log-level", "info")
	v.SetDefault("rate-limit", 20)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 250*time.Millisecond)
	v.SetDefault("call-timeout", 10*time.Second)
	v.SetDefault("concurrency", 4)
	v.SetDefault("max-bounties", uint64(10000))
	v.SetDefault("include-validators", true)
	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

func base(v *viper.Viper) Config {
	return Config{
		RPCURL:            strings.TrimSpace(v.GetString("rpc")),
		Realm:             strings.TrimSuffix(strings.TrimSpace(v.GetString("realm")), "."),
		LogLevel:          v.GetString("log-level"),
		RateLimit:         v.GetInt("rate-limit"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		CallTimeout:       v.GetDuration("call-timeout"),
		Concurrency:       v.GetInt("concurrency"),
		MaxBounties:       v.GetUint64("max-bounties"),
		IncludeValidators: v.GetBool("include-validators"),
	}
}

func (c Config) validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.Realm == "" {
		return fmt.Errorf("realm is required")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	if c.MaxBounties < 1 {
		return fmt.Errorf("max bounties must be at least 1")
	}
	return nil
}
