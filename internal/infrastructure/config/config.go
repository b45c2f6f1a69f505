package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
	Profiling ProfilingConfig
	Worker    WorkerConfig
	Lock      LockConfig
	Scheduler SchedulerConfig
	Storage   StorageConfig
	Channels  ChannelsConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64 // applies to the CSV import body as well
	AllowedOrigins []string
	RateLimit      float64 // requests per second per client IP; 0 disables
	RateBurst      int
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string // e.g. "localhost:4317"
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	MetricsInterval   time.Duration
	// LogsEnabled also ships zap records to the collector over OTLP
	LogsEnabled          bool
	DBSlowQueryThreshold time.Duration
}

// ProfilingConfig holds Pyroscope continuous profiling settings
type ProfilingConfig struct {
	Enabled           bool
	ServerAddress     string // e.g. "http://localhost:4040"
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
	ProfileTypes      []string
	DisableGCRuns     bool
	SpanProfiles      bool // link CPU samples to trace spans
}

// WorkerConfig sizes the bounded pool used by every batch operation
type WorkerConfig struct {
	Concurrency int
	ItemTimeout time.Duration
}

// LockConfig selects the per-order saga lock backend
type LockConfig struct {
	Backend     string // memory or redis
	TTL         time.Duration
	WaitTimeout time.Duration
}

// SchedulerConfig holds allocation scheduler configuration
type SchedulerConfig struct {
	Enabled           bool
	TickInterval      time.Duration
	MaxConcurrentJobs int
	QueueSize         int
	JobTimeout        time.Duration
	OrderSyncInterval time.Duration // 0 disables the periodic order pull
	OrderSyncLookback time.Duration
}

// StorageConfig holds S3-compatible object storage settings for import archives
type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
	Prefix       string
}

// ChannelsConfig holds per-channel API credentials
type ChannelsConfig struct {
	Cafe24  Cafe24Config
	Naver   NaverConfig
	Coupang CoupangConfig
}

// Cafe24Config holds Cafe24 Admin API settings
type Cafe24Config struct {
	Enabled     bool
	MallID      string
	AccessToken string
	APIVersion  string
	BaseURL     string // overrides https://{mall_id}.cafe24api.com
	ShopNo      int
	RateLimit   float64 // requests per second
	Timeout     time.Duration
}

// NaverConfig holds Naver Commerce API settings
type NaverConfig struct {
	Enabled     bool
	AccessToken string
	BaseURL     string
	RateLimit   float64
	Timeout     time.Duration
}

// CoupangConfig holds Coupang Open API settings
type CoupangConfig struct {
	Enabled   bool
	VendorID  string
	AccessKey string
	SecretKey string
	BaseURL   string
	RateLimit float64
	Timeout   time.Duration
}

// Load loads configuration from config.toml and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with OMNI_ prefix (e.g., OMNI_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("OMNI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			AllowedOrigins: v.GetStringSlice("http.allowed_origins"),
			RateLimit:      v.GetFloat64("http.rate_limit"),
			RateBurst:      v.GetInt("http.rate_burst"),
		},
		Telemetry: TelemetryConfig{
			Enabled:              v.GetBool("telemetry.enabled"),
			CollectorEndpoint:    v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:        v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:          v.GetString("telemetry.service_name"),
			Insecure:             v.GetBool("telemetry.insecure"),
			DBTraceEnabled:       v.GetBool("telemetry.db_trace_enabled"),
			MetricsInterval:      v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:          v.GetBool("telemetry.logs_enabled"),
			DBSlowQueryThreshold: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Profiling: ProfilingConfig{
			Enabled:           v.GetBool("profiling.enabled"),
			ServerAddress:     v.GetString("profiling.server_address"),
			ApplicationName:   v.GetString("profiling.application_name"),
			BasicAuthUser:     v.GetString("profiling.basic_auth_user"),
			BasicAuthPassword: v.GetString("profiling.basic_auth_password"),
			ProfileTypes:      v.GetStringSlice("profiling.profile_types"),
			DisableGCRuns:     v.GetBool("profiling.disable_gc_runs"),
			SpanProfiles:      v.GetBool("profiling.span_profiles"),
		},
		Worker: WorkerConfig{
			Concurrency: v.GetInt("worker.concurrency"),
			ItemTimeout: v.GetDuration("worker.item_timeout"),
		},
		Lock: LockConfig{
			Backend:     v.GetString("lock.backend"),
			TTL:         v.GetDuration("lock.ttl"),
			WaitTimeout: v.GetDuration("lock.wait_timeout"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			TickInterval:      v.GetDuration("scheduler.tick_interval"),
			MaxConcurrentJobs: v.GetInt("scheduler.max_concurrent_jobs"),
			QueueSize:         v.GetInt("scheduler.queue_size"),
			JobTimeout:        v.GetDuration("scheduler.job_timeout"),
			OrderSyncInterval: v.GetDuration("scheduler.order_sync_interval"),
			OrderSyncLookback: v.GetDuration("scheduler.order_sync_lookback"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
			Prefix:       v.GetString("storage.prefix"),
		},
		Channels: ChannelsConfig{
			Cafe24: Cafe24Config{
				Enabled:     v.GetBool("channels.cafe24.enabled"),
				MallID:      v.GetString("channels.cafe24.mall_id"),
				AccessToken: v.GetString("channels.cafe24.access_token"),
				APIVersion:  v.GetString("channels.cafe24.api_version"),
				BaseURL:     v.GetString("channels.cafe24.base_url"),
				ShopNo:      v.GetInt("channels.cafe24.shop_no"),
				RateLimit:   v.GetFloat64("channels.cafe24.rate_limit"),
				Timeout:     v.GetDuration("channels.cafe24.timeout"),
			},
			Naver: NaverConfig{
				Enabled:     v.GetBool("channels.naver.enabled"),
				AccessToken: v.GetString("channels.naver.access_token"),
				BaseURL:     v.GetString("channels.naver.base_url"),
				RateLimit:   v.GetFloat64("channels.naver.rate_limit"),
				Timeout:     v.GetDuration("channels.naver.timeout"),
			},
			Coupang: CoupangConfig{
				Enabled:   v.GetBool("channels.coupang.enabled"),
				VendorID:  v.GetString("channels.coupang.vendor_id"),
				AccessKey: v.GetString("channels.coupang.access_key"),
				SecretKey: v.GetString("channels.coupang.secret_key"),
				BaseURL:   v.GetString("channels.coupang.base_url"),
				RateLimit: v.GetFloat64("channels.coupang.rate_limit"),
				Timeout:   v.GetDuration("channels.coupang.timeout"),
			},
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "omnisync-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "omnisync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// bulk invoice writes wait on channel APIs
		cfg.HTTP.WriteTimeout = 2 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20
	}
	if cfg.HTTP.RateBurst == 0 {
		cfg.HTTP.RateBurst = 40
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "omnisync-backend"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThreshold == 0 {
		cfg.Telemetry.DBSlowQueryThreshold = 200 * time.Millisecond
	}

	if cfg.Profiling.ServerAddress == "" {
		cfg.Profiling.ServerAddress = "http://localhost:4040"
	}
	if cfg.Profiling.ApplicationName == "" {
		cfg.Profiling.ApplicationName = cfg.Telemetry.ServiceName
	}

	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = 6
	}
	if cfg.Worker.ItemTimeout == 0 {
		cfg.Worker.ItemTimeout = 15 * time.Second
	}

	if cfg.Lock.Backend == "" {
		cfg.Lock.Backend = "memory"
	}
	if cfg.Lock.TTL == 0 {
		cfg.Lock.TTL = 2 * time.Minute
	}
	if cfg.Lock.WaitTimeout == 0 {
		cfg.Lock.WaitTimeout = 30 * time.Second
	}

	if cfg.Scheduler.TickInterval == 0 {
		cfg.Scheduler.TickInterval = time.Minute
	}
	if cfg.Scheduler.MaxConcurrentJobs == 0 {
		cfg.Scheduler.MaxConcurrentJobs = 2
	}
	if cfg.Scheduler.QueueSize == 0 {
		cfg.Scheduler.QueueSize = 32
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 10 * time.Minute
	}
	if cfg.Scheduler.OrderSyncLookback == 0 {
		cfg.Scheduler.OrderSyncLookback = 24 * time.Hour
	}

	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "invoice-imports/"
	}

	if cfg.Channels.Cafe24.APIVersion == "" {
		cfg.Channels.Cafe24.APIVersion = "2024-06-01"
	}
	if cfg.Channels.Cafe24.ShopNo == 0 {
		cfg.Channels.Cafe24.ShopNo = 1
	}
	if cfg.Channels.Naver.BaseURL == "" {
		cfg.Channels.Naver.BaseURL = "https://api.commerce.naver.com/external"
	}
	if cfg.Channels.Coupang.BaseURL == "" {
		cfg.Channels.Coupang.BaseURL = "https://api-gateway.coupang.com"
	}
	for _, rl := range []*float64{&cfg.Channels.Cafe24.RateLimit, &cfg.Channels.Naver.RateLimit, &cfg.Channels.Coupang.RateLimit} {
		if *rl == 0 {
			*rl = 2
		}
	}
	for _, to := range []*time.Duration{&cfg.Channels.Cafe24.Timeout, &cfg.Channels.Naver.Timeout, &cfg.Channels.Coupang.Timeout} {
		if *to == 0 {
			*to = 10 * time.Second
		}
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Worker.Concurrency < 1 || c.Worker.Concurrency > 32 {
		return fmt.Errorf("worker.concurrency must be between 1 and 32, got %d", c.Worker.Concurrency)
	}
	if c.Worker.ItemTimeout < 0 {
		return fmt.Errorf("worker.item_timeout cannot be negative")
	}

	switch c.Lock.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("lock.backend must be memory or redis, got %q", c.Lock.Backend)
	}

	if c.HTTP.RateLimit < 0 {
		return fmt.Errorf("http.rate_limit cannot be negative")
	}

	if c.Scheduler.MaxConcurrentJobs < 1 {
		return fmt.Errorf("scheduler.max_concurrent_jobs must be positive")
	}

	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}

	if c.Channels.Cafe24.Enabled && c.Channels.Cafe24.MallID == "" && c.Channels.Cafe24.BaseURL == "" {
		return fmt.Errorf("channels.cafe24.mall_id is required when cafe24 is enabled")
	}
	if c.Channels.Coupang.Enabled && c.Channels.Coupang.VendorID == "" {
		return fmt.Errorf("channels.coupang.vendor_id is required when coupang is enabled")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Lock.Backend != "redis" {
			return fmt.Errorf("lock.backend must be redis in production so saga locks span instances")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Telemetry.DBSlowQueryThreshold < 0 {
		return fmt.Errorf("telemetry.db_slow_query_threshold cannot be negative")
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
