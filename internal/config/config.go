package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"
)

// 默认值
const (
	defaultHost                  = "0.0.0.0"
	defaultPort                  = 1780
	defaultMaxConnections        = 10000
	defaultHeartbeatTimeout      = 60
	defaultRedisAddr             = "localhost:6379"
	defaultTurnTimeout           = 0 // 不限时
	defaultRoomTimeout           = 120
	defaultShutdownTimeout       = 10
	defaultShutdownCheckInterval = 5
	defaultRoomCleanupDelay      = 30
	defaultRateLimitPerSecond    = 10
	defaultRateLimitPerMinute    = 60
	defaultBanDuration           = 300
	defaultMessagePerSecond      = 20
	defaultChatPerSecond         = 1
	defaultChatPerMinute         = 20
	defaultChatCooldown          = 5
	defaultChatMaxLength         = 200
	defaultAuthMode              = AuthModeJWT
	defaultTokenTTL              = 24 * 60
	defaultRecordTimeout         = 5
	defaultLogLevel              = "info"
	defaultLogFormat             = "text"
)

// 认证方式
const (
	AuthModeJWT   = "jwt"
	AuthModeRedis = "redis"
)

// Config 服务端配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Game     GameConfig     `yaml:"game"`
	Security SecurityConfig `yaml:"security"`
	Auth     AuthConfig     `yaml:"auth"`
	Record   RecordConfig   `yaml:"record"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig WebSocket 服务器配置
type ServerConfig struct {
	Host             string `yaml:"host" hcl:"host,optional"`
	Port             int    `yaml:"port" hcl:"port,optional"`
	MaxConnections   int    `yaml:"max_connections" hcl:"max_connections,optional"`
	HeartbeatTimeout int    `yaml:"heartbeat_timeout" hcl:"heartbeat_timeout,optional"` // 心跳超时（秒），超时视为离线
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `yaml:"addr" hcl:"addr,optional"`
	Password string `yaml:"password" hcl:"password,optional"`
	DB       int    `yaml:"db" hcl:"db,optional"`
}

// GameConfig 对局配置
type GameConfig struct {
	TurnTimeout           int `yaml:"turn_timeout" hcl:"turn_timeout,optional"`                       // 行动超时（秒），0 表示不限时
	RoomTimeout           int `yaml:"room_timeout" hcl:"room_timeout,optional"`                       // 房间无活动超时（分钟）
	ShutdownTimeout       int `yaml:"shutdown_timeout" hcl:"shutdown_timeout,optional"`               // 优雅关闭等待对局结束的最长时间（分钟）
	ShutdownCheckInterval int `yaml:"shutdown_check_interval" hcl:"shutdown_check_interval,optional"` // 关闭时检查间隔（秒）
	RoomCleanupDelay      int `yaml:"room_cleanup_delay" hcl:"room_cleanup_delay,optional"`           // 对局结束后保留房间的时间（秒）
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	AllowedOrigins []string           `yaml:"allowed_origins"`
	RateLimit      RateLimitConfig    `yaml:"rate_limit"`
	MessageLimit   MessageLimitConfig `yaml:"message_limit"`
	ChatLimit      ChatLimitConfig    `yaml:"chat_limit"`
}

// RateLimitConfig 连接速率限制
type RateLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second" hcl:"max_per_second,optional"`
	MaxPerMinute int `yaml:"max_per_minute" hcl:"max_per_minute,optional"`
	BanDuration  int `yaml:"ban_duration" hcl:"ban_duration,optional"` // 封禁时长（秒）
}

// MessageLimitConfig 单连接消息速率限制
type MessageLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second" hcl:"max_per_second,optional"`
}

// ChatLimitConfig 聊天限流
type ChatLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second" hcl:"max_per_second,optional"`
	MaxPerMinute int `yaml:"max_per_minute" hcl:"max_per_minute,optional"`
	Cooldown     int `yaml:"cooldown" hcl:"cooldown,optional"` // 超限后冷却（秒）
	MaxLength    int `yaml:"max_length" hcl:"max_length,optional"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	Mode      string `yaml:"mode" hcl:"mode,optional"` // jwt | redis
	JWTSecret string `yaml:"jwt_secret" hcl:"jwt_secret,optional"`
	Issuer    string `yaml:"issuer" hcl:"issuer,optional"`
	TokenTTL  int    `yaml:"token_ttl" hcl:"token_ttl,optional"` // 分钟
}

// RecordConfig 对局记录持久化
type RecordConfig struct {
	Redis       bool   `yaml:"redis" hcl:"redis,optional"`
	SQLitePath  string `yaml:"sqlite_path" hcl:"sqlite_path,optional"`
	PostgresDSN string `yaml:"postgres_dsn" hcl:"postgres_dsn,optional"`
	Timeout     int    `yaml:"timeout" hcl:"timeout,optional"` // 单次写入超时（秒）
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level" hcl:"level,optional"`
	Format string `yaml:"format" hcl:"format,optional"` // text | json | logfmt
	File   string `yaml:"file" hcl:"file,optional"`
}

// hclFile HCL 配置文件结构，块都是可选的
type hclFile struct {
	Server   *ServerConfig `hcl:"server,block"`
	Redis    *RedisConfig  `hcl:"redis,block"`
	Game     *GameConfig   `hcl:"game,block"`
	Security *hclSecurity  `hcl:"security,block"`
	Auth     *AuthConfig   `hcl:"auth,block"`
	Record   *RecordConfig `hcl:"record,block"`
	Log      *LogConfig    `hcl:"log,block"`
}

type hclSecurity struct {
	AllowedOrigins []string            `hcl:"allowed_origins,optional"`
	RateLimit      *RateLimitConfig    `hcl:"rate_limit,block"`
	MessageLimit   *MessageLimitConfig `hcl:"message_limit,block"`
	ChatLimit      *ChatLimitConfig    `hcl:"chat_limit,block"`
}

// TurnTimeoutDuration 返回行动超时时长
func (c *GameConfig) TurnTimeoutDuration() time.Duration {
	return time.Duration(c.TurnTimeout) * time.Second
}

// RoomTimeoutDuration 返回房间无活动超时时长
func (c *GameConfig) RoomTimeoutDuration() time.Duration {
	return time.Duration(c.RoomTimeout) * time.Minute
}

// ShutdownTimeoutDuration 返回优雅关闭超时时长
func (c *GameConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Minute
}

// ShutdownCheckIntervalDuration 返回关闭检查间隔
func (c *GameConfig) ShutdownCheckIntervalDuration() time.Duration {
	return time.Duration(c.ShutdownCheckInterval) * time.Second
}

// RoomCleanupDelayDuration 返回结束房间的保留时长
func (c *GameConfig) RoomCleanupDelayDuration() time.Duration {
	return time.Duration(c.RoomCleanupDelay) * time.Second
}

// HeartbeatTimeoutDuration 返回心跳超时时长
func (c *ServerConfig) HeartbeatTimeoutDuration() time.Duration {
	return time.Duration(c.HeartbeatTimeout) * time.Second
}

// Addr 监听地址
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BanDurationTime 返回封禁时长
func (c *RateLimitConfig) BanDurationTime() time.Duration {
	return time.Duration(c.BanDuration) * time.Second
}

// CooldownDuration 返回聊天冷却时长
func (c *ChatLimitConfig) CooldownDuration() time.Duration {
	return time.Duration(c.Cooldown) * time.Second
}

// TokenTTLDuration 返回令牌有效期
func (c *AuthConfig) TokenTTLDuration() time.Duration {
	return time.Duration(c.TokenTTL) * time.Minute
}

// TimeoutDuration 返回单次记录写入超时
func (c *RecordConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Load 加载配置文件，按扩展名选择 YAML 或 HCL。文件不存在时使用默认配置。
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg = Default()
	} else {
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".hcl":
			err = loadHCL(path, cfg)
		default:
			err = loadYAML(path, cfg)
		}
		if err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse yaml config: %w", err)
	}
	return nil
}

func loadHCL(path string, cfg *Config) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("parse hcl config: %s", diags.Error())
	}

	var f hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &f); diags.HasErrors() {
		return fmt.Errorf("decode hcl config: %s", diags.Error())
	}

	if f.Server != nil {
		cfg.Server = *f.Server
	}
	if f.Redis != nil {
		cfg.Redis = *f.Redis
	}
	if f.Game != nil {
		cfg.Game = *f.Game
	}
	if f.Auth != nil {
		cfg.Auth = *f.Auth
	}
	if f.Record != nil {
		cfg.Record = *f.Record
	}
	if f.Log != nil {
		cfg.Log = *f.Log
	}
	if s := f.Security; s != nil {
		cfg.Security.AllowedOrigins = s.AllowedOrigins
		if s.RateLimit != nil {
			cfg.Security.RateLimit = *s.RateLimit
		}
		if s.MessageLimit != nil {
			cfg.Security.MessageLimit = *s.MessageLimit
		}
		if s.ChatLimit != nil {
			cfg.Security.ChatLimit = *s.ChatLimit
		}
	}
	return nil
}

// applyEnv 环境变量覆盖配置文件
func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("SERVER_HOST", &cfg.Server.Host)
	setInt("SERVER_PORT", &cfg.Server.Port)
	setString("REDIS_ADDR", &cfg.Redis.Addr)
	setString("REDIS_PASSWORD", &cfg.Redis.Password)
	setInt("GAME_TURN_TIMEOUT", &cfg.Game.TurnTimeout)
	setString("AUTH_JWT_SECRET", &cfg.Auth.JWTSecret)
	setString("RECORD_SQLITE_PATH", &cfg.Record.SQLitePath)
	setString("RECORD_POSTGRES_DSN", &cfg.Record.PostgresDSN)
	setString("LOG_LEVEL", &cfg.Log.Level)

	if v := os.Getenv("SECURITY_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for o := range strings.SplitSeq(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Security.AllowedOrigins = origins
	}
}

// applyDefaults 为未设置的字段填充默认值
func applyDefaults(cfg *Config) {
	setDefault := func(dst *int, v int) {
		if *dst == 0 {
			*dst = v
		}
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultHost
	}
	setDefault(&cfg.Server.Port, defaultPort)
	setDefault(&cfg.Server.MaxConnections, defaultMaxConnections)
	setDefault(&cfg.Server.HeartbeatTimeout, defaultHeartbeatTimeout)

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = defaultRedisAddr
	}

	setDefault(&cfg.Game.RoomTimeout, defaultRoomTimeout)
	setDefault(&cfg.Game.ShutdownTimeout, defaultShutdownTimeout)
	setDefault(&cfg.Game.ShutdownCheckInterval, defaultShutdownCheckInterval)
	setDefault(&cfg.Game.RoomCleanupDelay, defaultRoomCleanupDelay)

	if len(cfg.Security.AllowedOrigins) == 0 {
		cfg.Security.AllowedOrigins = []string{"*"}
	}
	setDefault(&cfg.Security.RateLimit.MaxPerSecond, defaultRateLimitPerSecond)
	setDefault(&cfg.Security.RateLimit.MaxPerMinute, defaultRateLimitPerMinute)
	setDefault(&cfg.Security.RateLimit.BanDuration, defaultBanDuration)
	setDefault(&cfg.Security.MessageLimit.MaxPerSecond, defaultMessagePerSecond)
	setDefault(&cfg.Security.ChatLimit.MaxPerSecond, defaultChatPerSecond)
	setDefault(&cfg.Security.ChatLimit.MaxPerMinute, defaultChatPerMinute)
	setDefault(&cfg.Security.ChatLimit.Cooldown, defaultChatCooldown)
	setDefault(&cfg.Security.ChatLimit.MaxLength, defaultChatMaxLength)

	if cfg.Auth.Mode == "" {
		cfg.Auth.Mode = defaultAuthMode
	}
	setDefault(&cfg.Auth.TokenTTL, defaultTokenTTL)

	setDefault(&cfg.Record.Timeout, defaultRecordTimeout)

	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaultLogFormat
	}
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{
		Game: GameConfig{TurnTimeout: defaultTurnTimeout},
	}
	applyDefaults(cfg)
	return cfg
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.MaxConnections < 1 {
		return fmt.Errorf("max_connections must be positive: %d", c.Server.MaxConnections)
	}
	if c.Game.TurnTimeout < 0 {
		return fmt.Errorf("turn_timeout must not be negative: %d", c.Game.TurnTimeout)
	}

	switch c.Auth.Mode {
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			return errors.New("auth.jwt_secret is required in jwt mode")
		}
	case AuthModeRedis:
	default:
		return fmt.Errorf("unknown auth mode: %q", c.Auth.Mode)
	}

	switch c.Log.Format {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("unknown log format: %q", c.Log.Format)
	}
	return nil
}
