package chuusen

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

// Config 生产环境配置结构
type Config struct {
	// 模拟配置
	Simulation *SimulationConfig `mapstructure:"simulation"`

	// Redis 配置
	Redis *RedisConfig `mapstructure:"redis"`

	// 熔断器配置
	CircuitBreaker *CircuitBreakerConfig `mapstructure:"circuit_breaker"`

	// 运行锁配置
	RunLock *RunLockConfig `mapstructure:"run_lock"`

	// 存储配置
	Store *StoreConfig `mapstructure:"store"`

	// 日志配置
	Logging *LoggingConfig `mapstructure:"logging"`
}

func (c *Config) Validate() error {
	if c.Simulation == nil || c.Redis == nil || c.Store == nil || c.RunLock == nil {
		return ErrConfigInvalid.WithDetails("missing configuration section")
	}

	// 验证模拟配置
	if err := c.Simulation.Validate(); err != nil {
		return err
	}

	// 验证运行锁配置
	if c.RunLock.Expiration < MinLockExpiration || c.RunLock.Expiration > MaxLockExpiration {
		return ErrInvalidLockExpiration
	}
	if c.RunLock.RetryAttempts < 0 || c.RunLock.RetryAttempts > MaxRetryAttempts {
		return ErrInvalidRetryAttempts
	}
	if c.RunLock.RetryInterval < 0 {
		return ErrInvalidRetryInterval
	}

	// 验证存储配置
	if c.Store.RetryAttempts < 0 || c.Store.RetryAttempts > MaxRetryAttempts {
		return ErrInvalidRetryAttempts
	}
	if c.Store.RetryInterval < 0 {
		return ErrInvalidRetryInterval
	}
	if c.Store.InputKey == "" {
		return ErrConfigInvalid.WithDetails("store input key is required")
	}

	// 验证 Redis 配置
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}
	if c.Redis.PoolSize <= 0 {
		return fmt.Errorf("redis pool size must be positive")
	}

	return nil
}

// SimulationConfig 模拟引擎配置
type SimulationConfig struct {
	DefaultInput   SimulationInput `mapstructure:"default_input"`
	MaxSimulations int             `mapstructure:"max_simulations"`
	ProgressWeight float64         `mapstructure:"progress_weight"`
	Binning        BinningConfig   `mapstructure:",squash"`
	RandomSource   string          `mapstructure:"random_source"`
}

// Validate 验证模拟配置
func (c *SimulationConfig) Validate() error {
	if err := c.DefaultInput.Validate(); err != nil {
		return err
	}
	if c.MaxSimulations < 0 {
		return ErrTooManySimulations.WithDetails("max_simulations cannot be negative")
	}
	if c.ProgressWeight <= 0 || c.ProgressWeight > 1 {
		return ErrConfigInvalid.WithDetails(fmt.Sprintf("progress_weight=%v must be in (0, 1]", c.ProgressWeight))
	}
	if err := c.Binning.Validate(); err != nil {
		return err
	}
	if c.RandomSource != RandomSourceFast && c.RandomSource != RandomSourceSecure {
		return ErrConfigInvalid.WithDetails(fmt.Sprintf("unknown random_source %q", c.RandomSource))
	}
	return nil
}

// DefaultSimulationConfig 返回默认模拟配置
func DefaultSimulationConfig() *SimulationConfig {
	return &SimulationConfig{
		DefaultInput:   DefaultInput(),
		MaxSimulations: DefaultMaxSimulations,
		ProgressWeight: DefaultProgressWeight,
		Binning:        DefaultBinningConfig(),
		RandomSource:   RandomSourceFast,
	}
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 连接配置
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// 连接池配置
	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`
	MaxRetries   int `mapstructure:"max_retries"`

	// 超时配置
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
}

// DefaultRedisConfig 返回默认的Redis配置
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         DefaultRedisAddr,
		Password:     DefaultRedisPassword,
		DB:           DefaultRedisDB,
		PoolSize:     DefaultRedisPoolSize,
		MinIdleConns: DefaultRedisMinIdleConns,
		MaxRetries:   DefaultRedisMaxRetries,
		DialTimeout:  DefaultRedisDialTimeout,
		ReadTimeout:  DefaultRedisReadTimeout,
		WriteTimeout: DefaultRedisWriteTimeout,
		PoolTimeout:  DefaultRedisPoolTimeout,
	}
}

// CircuitBreakerConfig 熔断器配置
type CircuitBreakerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Name          string        `mapstructure:"name"`
	MaxRequests   uint32        `mapstructure:"max_requests"`
	Interval      time.Duration `mapstructure:"interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
	FailureRatio  float64       `mapstructure:"failure_ratio"`
	MinRequests   uint32        `mapstructure:"min_requests"`
	OnStateChange bool          `mapstructure:"on_state_change"`
}

// DefaultCircuitBreakerConfig 返回默认熔断器配置
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Enabled:       true,
		Name:          DefaultCircuitBreakerName,
		MaxRequests:   DefaultCircuitBreakerMaxRequests,
		Interval:      DefaultCircuitBreakerInterval,
		Timeout:       DefaultCircuitBreakerTimeout,
		FailureRatio:  DefaultCircuitBreakerFailureRatio,
		MinRequests:   DefaultCircuitBreakerMinRequests,
		OnStateChange: DefaultCircuitBreakerOnStateChange,
	}
}

// RunLockConfig 跨进程运行锁配置
type RunLockConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Key           string        `mapstructure:"key"`
	Expiration    time.Duration `mapstructure:"expiration"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// DefaultRunLockConfig 返回默认运行锁配置
func DefaultRunLockConfig() *RunLockConfig {
	return &RunLockConfig{
		Enabled:       false,
		Key:           DefaultRunLockKey,
		Expiration:    DefaultLockExpiration,
		RetryAttempts: DefaultRetryAttempts,
		RetryInterval: DefaultRetryInterval,
	}
}

// StoreConfig 输入与结果存储配置
type StoreConfig struct {
	InputKey      string        `mapstructure:"input_key"`
	ResultTTL     time.Duration `mapstructure:"result_ttl"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// DefaultStoreConfig 返回默认存储配置
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		InputKey:      DefaultInputKey,
		ResultTTL:     DefaultResultTTL,
		RetryAttempts: DefaultRetryAttempts,
		RetryInterval: DefaultRetryInterval,
	}
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	Directory  string `mapstructure:"directory"`
	FileName   string `mapstructure:"file_name"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// DefaultLoggingConfig 返回默认日志配置 (仅控制台)
func DefaultLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		Level:      DefaultLogLevel,
		Console:    true,
		FileName:   DefaultLogFileName,
		MaxSizeMB:  DefaultLogMaxSizeMB,
		MaxBackups: DefaultLogMaxBackups,
		MaxAgeDays: DefaultLogMaxAgeDays,
		Compress:   true,
	}
}

// DefaultConfig 返回完整的默认配置
func DefaultConfig() *Config {
	return &Config{
		Simulation:     DefaultSimulationConfig(),
		Redis:          DefaultRedisConfig(),
		CircuitBreaker: DefaultCircuitBreakerConfig(),
		RunLock:        DefaultRunLockConfig(),
		Store:          DefaultStoreConfig(),
		Logging:        DefaultLoggingConfig(),
	}
}

// ConfigManager 配置管理器
type ConfigManager struct {
	viper  *viper.Viper
	config *Config
	logger Logger
}

// NewConfigManager 创建配置管理器
func NewConfigManager() *ConfigManager {
	v := viper.New()

	// 设置配置文件名和路径
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/chuusen")
	v.AddConfigPath("$HOME/.chuusen")

	// 设置环境变量前缀
	v.SetEnvPrefix("CHUUSEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &ConfigManager{
		viper:  v,
		logger: NewSilentLogger(),
	}
}

// SetConfigFile 使用指定的配置文件而不是搜索路径
func (cm *ConfigManager) SetConfigFile(path string) {
	if path != "" {
		cm.viper.SetConfigFile(path)
	}
}

// SetLogger 设置日志记录器
func (cm *ConfigManager) SetLogger(logger Logger) {
	if logger != nil {
		cm.logger = logger
	}
}

// LoadConfig 加载配置
func (cm *ConfigManager) LoadConfig() (*Config, error) {
	// 设置默认值
	cm.setDefaults()

	// 读取配置文件
	if err := cm.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// 配置文件不存在时使用默认配置
	}

	// 解析配置
	config := &Config{}
	if err := cm.viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 验证配置
	if err := cm.validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cm.config = config
	return config, nil
}

// setDefaults 设置默认配置值
func (cm *ConfigManager) setDefaults() {
	// 模拟默认配置
	cm.viper.SetDefault("simulation.default_input.total_ballots", DefaultTotalBallots)
	cm.viper.SetDefault("simulation.default_input.num_winners", DefaultNumWinners)
	cm.viper.SetDefault("simulation.default_input.avg_ballots_per_person", DefaultAvgBallotsPerPerson)
	cm.viper.SetDefault("simulation.default_input.std_dev", DefaultStdDev)
	cm.viper.SetDefault("simulation.default_input.num_channels", DefaultNumChannels)
	cm.viper.SetDefault("simulation.default_input.num_simulations", DefaultNumSimulations)
	cm.viper.SetDefault("simulation.default_input.your_ballots", DefaultYourBallots)
	cm.viper.SetDefault("simulation.max_simulations", DefaultMaxSimulations)
	cm.viper.SetDefault("simulation.progress_weight", DefaultProgressWeight)
	cm.viper.SetDefault("simulation.bin_count", DefaultBinCount)
	cm.viper.SetDefault("simulation.lower_spread", DefaultLowerSpread)
	cm.viper.SetDefault("simulation.upper_spread", DefaultUpperSpread)
	cm.viper.SetDefault("simulation.random_source", RandomSourceFast)

	// Redis 默认配置
	cm.viper.SetDefault("redis.addr", DefaultRedisAddr)
	cm.viper.SetDefault("redis.password", DefaultRedisPassword)
	cm.viper.SetDefault("redis.db", DefaultRedisDB)
	cm.viper.SetDefault("redis.pool_size", DefaultRedisPoolSize)
	cm.viper.SetDefault("redis.min_idle_conns", DefaultRedisMinIdleConns)
	cm.viper.SetDefault("redis.max_retries", DefaultRedisMaxRetries)
	cm.viper.SetDefault("redis.dial_timeout", "5s")
	cm.viper.SetDefault("redis.read_timeout", "3s")
	cm.viper.SetDefault("redis.write_timeout", "3s")
	cm.viper.SetDefault("redis.pool_timeout", "4s")

	// 熔断器默认配置
	cm.viper.SetDefault("circuit_breaker.enabled", true)
	cm.viper.SetDefault("circuit_breaker.name", DefaultCircuitBreakerName)
	cm.viper.SetDefault("circuit_breaker.max_requests", DefaultCircuitBreakerMaxRequests)
	cm.viper.SetDefault("circuit_breaker.interval", "60s")
	cm.viper.SetDefault("circuit_breaker.timeout", "30s")
	cm.viper.SetDefault("circuit_breaker.failure_ratio", DefaultCircuitBreakerFailureRatio)
	cm.viper.SetDefault("circuit_breaker.min_requests", DefaultCircuitBreakerMinRequests)
	cm.viper.SetDefault("circuit_breaker.on_state_change", DefaultCircuitBreakerOnStateChange)

	// 运行锁默认配置
	cm.viper.SetDefault("run_lock.enabled", false)
	cm.viper.SetDefault("run_lock.key", DefaultRunLockKey)
	cm.viper.SetDefault("run_lock.expiration", "10m")
	cm.viper.SetDefault("run_lock.retry_attempts", DefaultRetryAttempts)
	cm.viper.SetDefault("run_lock.retry_interval", "100ms")

	// 存储默认配置
	cm.viper.SetDefault("store.input_key", DefaultInputKey)
	cm.viper.SetDefault("store.result_ttl", "168h")
	cm.viper.SetDefault("store.retry_attempts", DefaultRetryAttempts)
	cm.viper.SetDefault("store.retry_interval", "100ms")

	// 日志默认配置
	cm.viper.SetDefault("logging.level", DefaultLogLevel)
	cm.viper.SetDefault("logging.console", true)
	cm.viper.SetDefault("logging.directory", "")
	cm.viper.SetDefault("logging.file_name", DefaultLogFileName)
	cm.viper.SetDefault("logging.max_size_mb", DefaultLogMaxSizeMB)
	cm.viper.SetDefault("logging.max_backups", DefaultLogMaxBackups)
	cm.viper.SetDefault("logging.max_age_days", DefaultLogMaxAgeDays)
	cm.viper.SetDefault("logging.compress", true)
}

// validateConfig 验证配置
func (cm *ConfigManager) validateConfig(config *Config) error { return config.Validate() }

// WatchConfig 监听配置变化
func (cm *ConfigManager) WatchConfig(callback func(*Config)) error {
	cm.viper.OnConfigChange(func(e fsnotify.Event) {
		config := &Config{}
		if err := cm.viper.Unmarshal(config); err != nil {
			// 记录错误但不中断服务
			cm.logger.Error("Config reload from %s failed: %v", e.Name, err)
			return
		}

		if err := cm.validateConfig(config); err != nil {
			// 记录错误但不中断服务
			cm.logger.Error("Config reload from %s rejected: %v", e.Name, err)
			return
		}

		cm.config = config
		cm.logger.Info("Config reloaded from %s (%s)", e.Name, e.Op)
		if callback != nil {
			callback(config)
		}
	})
	cm.viper.WatchConfig()

	return nil
}

// GetConfig 获取当前配置
func (cm *ConfigManager) GetConfig() *Config { return cm.config }

// ReloadConfig 重新加载配置
func (cm *ConfigManager) ReloadConfig() (*Config, error) { return cm.LoadConfig() }

// NewRedisClientFromConfig 从配置创建Redis客户端
func NewRedisClientFromConfig(config *RedisConfig) *redis.Client {
	if config == nil {
		config = DefaultRedisConfig()
	}

	return redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		PoolTimeout:  config.PoolTimeout,
	})
}

// NewDefaultConfigManager 创建使用默认配置的配置管理器
func NewDefaultConfigManager() *ConfigManager {
	cm := NewConfigManager()
	cm.setDefaults()
	cm.config = DefaultConfig()
	return cm
}

// NewConfigManagerFromConfig 从现有配置创建配置管理器
func NewConfigManagerFromConfig(config *Config) (*ConfigManager, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cm := NewConfigManager()
	cm.config = config
	return cm, nil
}
