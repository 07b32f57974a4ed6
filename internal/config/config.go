package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	ListenAddr string

	RPCURL          string
	OracleAddress   string
	RegistryAddress string
	RegistryID      string
	TreasuryKeyPath string

	Owner        string
	PoolManager  string
	FeeRecipient string

	ThresholdBps     uint64
	FeeBps           uint64
	AuctionDuration  time.Duration
	VoidGrace        time.Duration
	MinOperatorStake string
	Operators        []string

	PGDSN        string
	RedisURL     string
	RedisChannel string
	JournalPath  string

	LogLevel string
	LogFile  string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LVRGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", ":8080")
	v.SetDefault("threshold-bps", uint64(50))
	v.SetDefault("fee-bps", uint64(0))
	v.SetDefault("auction-duration", time.Minute)
	v.SetDefault("void-grace", time.Hour)
	v.SetDefault("min-operator-stake", "0")
	v.SetDefault("redis-channel", "lvrguard.events")
	v.SetDefault("journal", "./data/events.jsonl")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		ListenAddr:       v.GetString("listen"),
		RPCURL:           v.GetString("rpc"),
		OracleAddress:    v.GetString("oracle-address"),
		RegistryAddress:  v.GetString("registry-address"),
		RegistryID:       v.GetString("registry-id"),
		TreasuryKeyPath:  v.GetString("treasury-key"),
		Owner:            v.GetString("owner"),
		PoolManager:      v.GetString("pool-manager"),
		FeeRecipient:     v.GetString("fee-recipient"),
		ThresholdBps:     v.GetUint64("threshold-bps"),
		FeeBps:           v.GetUint64("fee-bps"),
		AuctionDuration:  v.GetDuration("auction-duration"),
		VoidGrace:        v.GetDuration("void-grace"),
		MinOperatorStake: v.GetString("min-operator-stake"),
		Operators:        getStringSlice(v, "operator"),
		PGDSN:            v.GetString("pg-dsn"),
		RedisURL:         v.GetString("redis-url"),
		RedisChannel:     v.GetString("redis-channel"),
		JournalPath:      v.GetString("journal"),
		LogLevel:         v.GetString("log-level"),
		LogFile:          v.GetString("log-file"),
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
