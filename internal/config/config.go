package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ilyakaznacheev/cleanenv"
)

// Load reads the configuration. When path is empty only the environment is read,
// otherwise the file is parsed first and environment variables override it.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyDefaults sets default values for unset fields and normalizes lists
func applyDefaults(cfg *Config) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}
	if cfg.ChainID == "" {
		cfg.ChainID = DefaultChainID
	}
	if cfg.RPCTimeout == 0 {
		cfg.RPCTimeout = DefaultRPCTimeout
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = BackendMemory
	}
	if cfg.Cache.Size == 0 {
		cfg.Cache.Size = DefaultCacheSize
	}
	if cfg.Cache.TableName == "" {
		cfg.Cache.TableName = DefaultTableName
	}
	if cfg.Cache.RedisKeyPrefix == "" {
		cfg.Cache.RedisKeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Cache.MongoDatabase == "" {
		cfg.Cache.MongoDatabase = DefaultMongoDatabase
	}
	if cfg.Cache.BoltPath == "" {
		cfg.Cache.BoltPath = DefaultBoltPath
	}
	if cfg.Cache.Timeout == 0 {
		cfg.Cache.Timeout = DefaultStoreTimeout
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = DefaultRateBurst
	}
	if cfg.CircuitBreaker.FailureThreshold == 0 {
		cfg.CircuitBreaker.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.CircuitBreaker.RecoveryTimeout == 0 {
		cfg.CircuitBreaker.RecoveryTimeout = DefaultRecoveryTimeout
	}

	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	// "CONTRACT_ADDRESSES=" splits into a single empty element, which must mean open mode
	cfg.ContractAddresses = normalizeList(cfg.ContractAddresses, true)
	cfg.AllowedOrigins = normalizeList(cfg.AllowedOrigins, false)
}

// normalizeList trims entries, drops empty ones and optionally lowercases them
func normalizeList(items []string, lower bool) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if lower {
			item = strings.ToLower(item)
		}
		result = append(result, item)
	}
	return result
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	if cfg.RPCEndpoint == "" {
		return errors.New("rpcEndpoint (RPC_ENDPOINT) is required")
	}

	endpoint, err := url.Parse(cfg.RPCEndpoint)
	if err != nil {
		return fmt.Errorf("rpcEndpoint is not a valid URL: %w", err)
	}
	switch endpoint.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("rpcEndpoint scheme must be one of http, https, ws, wss, got '%s'", endpoint.Scheme)
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("logLevel must be one of: debug, info, warn, error")
	}

	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		return fmt.Errorf("logFormat must be one of: console, json")
	}

	if _, err := strconv.ParseUint(cfg.ChainID, 10, 64); err != nil {
		return fmt.Errorf("chainId must be a positive integer, got '%s'", cfg.ChainID)
	}

	for i, addr := range cfg.ContractAddresses {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("contractAddresses[%d]: '%s' is not a valid address", i, addr)
		}
	}

	if cfg.RPCTimeout < 0 {
		return fmt.Errorf("rpcTimeout must be non-negative")
	}

	switch cfg.Cache.Backend {
	case BackendMemory:
		if cfg.Cache.Size <= 0 {
			return fmt.Errorf("cache.size must be positive for the memory backend")
		}
	case BackendRedis:
		if cfg.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redisUrl (REDIS_URL) is required for the redis backend")
		}
	case BackendMongo:
		if cfg.Cache.MongoURI == "" {
			return fmt.Errorf("cache.mongoUri (MONGO_URI) is required for the mongo backend")
		}
	case BackendBolt:
		if cfg.Cache.BoltPath == "" {
			return fmt.Errorf("cache.boltPath is required for the bolt backend")
		}
	case BackendNone:
	default:
		return fmt.Errorf("cache.backend must be one of: memory, redis, mongo, bolt, none")
	}

	if cfg.Cache.Timeout < 0 {
		return fmt.Errorf("cache.timeout must be non-negative")
	}

	if cfg.RateLimit < 0 {
		return fmt.Errorf("rateLimit must be non-negative")
	}
	if cfg.IsRateLimitEnabled() && cfg.RateBurst <= 0 {
		return fmt.Errorf("rateBurst must be positive when rate limiting is enabled")
	}

	if cfg.CircuitBreaker.Enabled {
		if cfg.CircuitBreaker.FailureThreshold <= 0 {
			return fmt.Errorf("circuitBreaker.failureThreshold must be positive when enabled")
		}
		if cfg.CircuitBreaker.RecoveryTimeout <= 0 {
			return fmt.Errorf("circuitBreaker.recoveryTimeout must be positive when enabled")
		}
	}

	return nil
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
