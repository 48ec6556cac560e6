package config

import "time"

// Cache backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendBolt   = "bolt"
	BackendNone   = "none"
)

// Config represents the main configuration structure.
// Every field can be set from the environment; a config file is optional.
type Config struct {
	Host      string `json:"host" yaml:"host" env:"HOST" env-default:"0.0.0.0"`
	Port      int    `json:"port" yaml:"port" env:"PORT" env-default:"3000"`
	LogLevel  string `json:"logLevel" yaml:"logLevel" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `json:"logFormat" yaml:"logFormat" env:"LOG_FORMAT" env-default:"console"`

	ChainID           string   `json:"chainId" yaml:"chainId" env:"CHAIN_ID" env-default:"1"`
	ContractAddresses []string `json:"contractAddresses" yaml:"contractAddresses" env:"CONTRACT_ADDRESSES" env-separator:","`

	RPCEndpoint string `json:"rpcEndpoint" yaml:"rpcEndpoint" env:"RPC_ENDPOINT"`
	RPCTimeout  int    `json:"rpcTimeout" yaml:"rpcTimeout" env:"RPC_TIMEOUT" env-default:"5000"` // ms

	Cache          CacheConfig          `json:"cache" yaml:"cache"`
	CircuitBreaker CircuitBreakerConfig `json:"circuitBreaker" yaml:"circuitBreaker"`

	AllowedOrigins []string `json:"allowedOrigins" yaml:"allowedOrigins" env:"ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
	RateLimit      float64  `json:"rateLimit" yaml:"rateLimit" env:"RATE_LIMIT"` // requests per second per client, 0 disables
	RateBurst      int      `json:"rateBurst" yaml:"rateBurst" env:"RATE_BURST" env-default:"20"`

	CoalesceMisses bool `json:"coalesceMisses" yaml:"coalesceMisses" env:"COALESCE_MISSES"`
	MetricsEnabled bool `json:"metricsEnabled" yaml:"metricsEnabled" env:"METRICS_ENABLED" env-default:"true"`
}

// CacheConfig selects and configures the cache store backend
type CacheConfig struct {
	Backend        string `json:"backend" yaml:"backend" env:"CACHE_BACKEND" env-default:"memory"`
	Size           int    `json:"size" yaml:"size" env:"CACHE_SIZE" env-default:"10000"` // memory backend only
	TableName      string `json:"tableName" yaml:"tableName" env:"TABLE_NAME" env-default:"ca-casher-cache"`
	RedisURL       string `json:"redisUrl" yaml:"redisUrl" env:"REDIS_URL"`
	RedisKeyPrefix string `json:"redisKeyPrefix" yaml:"redisKeyPrefix" env:"REDIS_KEY_PREFIX" env-default:"contractcache:"`
	MongoURI       string `json:"mongoUri" yaml:"mongoUri" env:"MONGO_URI"`
	MongoDatabase  string `json:"mongoDatabase" yaml:"mongoDatabase" env:"MONGO_DATABASE" env-default:"contractcache"`
	BoltPath       string `json:"boltPath" yaml:"boltPath" env:"BOLT_PATH" env-default:"contractcache.db"`
	Timeout        int    `json:"timeout" yaml:"timeout" env:"STORE_TIMEOUT" env-default:"2000"` // ms
}

// CircuitBreakerConfig configures the upstream circuit breaker
type CircuitBreakerConfig struct {
	Enabled          bool `json:"enabled" yaml:"enabled" env:"CIRCUIT_BREAKER_ENABLED"`
	FailureThreshold int  `json:"failureThreshold" yaml:"failureThreshold" env:"CIRCUIT_BREAKER_THRESHOLD" env-default:"5"`
	RecoveryTimeout  int  `json:"recoveryTimeout" yaml:"recoveryTimeout" env:"CIRCUIT_BREAKER_RECOVERY" env-default:"30000"` // ms
}

// Default values
const (
	DefaultHost             = "0.0.0.0"
	DefaultPort             = 3000
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "console"
	DefaultChainID          = "1"
	DefaultRPCTimeout       = 5000 // ms
	DefaultCacheSize        = 10000
	DefaultTableName        = "ca-casher-cache"
	DefaultRedisKeyPrefix   = "contractcache:"
	DefaultMongoDatabase    = "contractcache"
	DefaultBoltPath         = "contractcache.db"
	DefaultStoreTimeout     = 2000 // ms
	DefaultRateBurst        = 20
	DefaultFailureThreshold = 5
	DefaultRecoveryTimeout  = 30000 // ms
)

// Addr returns the listen address
func (c *Config) Addr() string {
	return joinHostPort(c.Host, c.Port)
}

// GetRPCTimeoutDuration returns the upstream call timeout as time.Duration
func (c *Config) GetRPCTimeoutDuration() time.Duration {
	return time.Duration(c.RPCTimeout) * time.Millisecond
}

// IsOpenMode returns true when no contract allow-list is configured
func (c *Config) IsOpenMode() bool {
	return len(c.ContractAddresses) == 0
}

// IsRateLimitEnabled returns true if per-client throttling is configured
func (c *Config) IsRateLimitEnabled() bool {
	return c.RateLimit > 0
}

// IsCORSEnabled returns true if at least one origin is allowed
func (c *Config) IsCORSEnabled() bool {
	return len(c.AllowedOrigins) > 0
}

// GetTimeoutDuration returns the per-call store timeout as time.Duration
func (c *CacheConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// GetRecoveryTimeoutDuration returns the breaker recovery window as time.Duration
func (c *CircuitBreakerConfig) GetRecoveryTimeoutDuration() time.Duration {
	return time.Duration(c.RecoveryTimeout) * time.Millisecond
}
