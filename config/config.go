package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Handover HandoverConfig `mapstructure:"handover"`
	IDGen    IDGenConfig    `mapstructure:"idgen"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Claim    ClaimConfig    `mapstructure:"claim"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	CORS         CORSConfig `mapstructure:"cors"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	RateLimit    int        `mapstructure:"rate_limit"` // 每个 IP 每分钟写请求上限，0 表示关闭
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（可选，连接失败时降级）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 管理端 JWT 校验配置
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HandoverConfig 交接班业务配置
type HandoverConfig struct {
	IDPrefix string `mapstructure:"id_prefix"` // ID 前缀，如 HO-20260101-0001 中的 HO
	Timezone string `mapstructure:"timezone"`  // 决定 ID 中"当天"的时区
}

// Location 解析业务时区，非法值回退到本地时区
func (c *HandoverConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// IDGenConfig 交接单号生成器配置
type IDGenConfig struct {
	LockBackend    string        `mapstructure:"lock_backend"` // postgres | redis
	LockKey        int64         `mapstructure:"lock_key"`     // postgres advisory lock key
	RedisLockKey   string        `mapstructure:"redis_lock_key"`
	LockTimeout    time.Duration `mapstructure:"lock_timeout"`
	RedisLockTTL   time.Duration `mapstructure:"redis_lock_ttl"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
}

// RetryConfig 写路径重试策略
type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
}

// ClaimConfig 接班（领取）配置
type ClaimConfig struct {
	LockTimeout time.Duration `mapstructure:"lock_timeout"` // 行锁等待上限，超时视为瞬时错误
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.rate_limit", 60)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "shift_handover")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Ho_Chi_Minh")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "15m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("handover.id_prefix", "HO")
	v.SetDefault("handover.timezone", "Asia/Ho_Chi_Minh")

	v.SetDefault("idgen.lock_backend", "postgres")
	v.SetDefault("idgen.lock_key", 724001)
	v.SetDefault("idgen.redis_lock_key", "lock:handover:id")
	v.SetDefault("idgen.lock_timeout", "3s")
	v.SetDefault("idgen.redis_lock_ttl", "5s")
	v.SetDefault("idgen.acquire_timeout", "3s")

	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.initial_interval", "100ms")
	v.SetDefault("retry.max_interval", "2s")
	v.SetDefault("retry.multiplier", 2.0)

	v.SetDefault("claim.lock_timeout", "5s")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("HANDOVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Handover.IDPrefix == "" || strings.Contains(c.Handover.IDPrefix, "-") {
		return fmt.Errorf("配置校验失败: handover.id_prefix 不能为空且不能包含 '-'")
	}
	switch c.IDGen.LockBackend {
	case "postgres", "redis":
	default:
		return fmt.Errorf("配置校验失败: idgen.lock_backend 仅支持 postgres 或 redis")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("配置校验失败: retry.max_attempts 至少为 1")
	}
	return nil
}

