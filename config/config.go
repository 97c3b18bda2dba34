package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "MASKERASER"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Removal RemovalConfig `mapstructure:"removal"`
	Canvas  CanvasConfig  `mapstructure:"canvas"`
	Session SessionConfig `mapstructure:"session"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// MaxBodySize 请求体上限，图片以 data URL 形式上传，按 URL 下载的图片同样受限
	MaxBodySize int64 `mapstructure:"max_body_size"`
	// DownloadTimeout 按 URL 加载图片时的下载超时
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RemovalConfig 远端去除物体服务
type RemovalConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// Timeout 为 0 时不设超时
	Timeout time.Duration `mapstructure:"timeout"`
}

// CanvasConfig 请求里没有给出显示区域时使用的默认值
type CanvasConfig struct {
	ContainerWidth int     `mapstructure:"container_width"`
	ViewportHeight int     `mapstructure:"viewport_height"`
	MaxHeightRatio float64 `mapstructure:"max_height_ratio"`
	BrushSize      int     `mapstructure:"brush_size"`
}

type SessionConfig struct {
	TTL              time.Duration `mapstructure:"ttl"`
	SweepSpec        string        `mapstructure:"sweep_spec"`
	MaxNotifications int           `mapstructure:"max_notifications"`
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// New 使用默认配置路径加载配置
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		// 如果加载失败，返回默认配置
		return getDefaultConfig()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	d := getDefaultConfig()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.max_body_size", d.Server.MaxBodySize)
	v.SetDefault("server.download_timeout", d.Server.DownloadTimeout)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("removal.base_url", d.Removal.BaseURL)
	v.SetDefault("removal.timeout", d.Removal.Timeout)

	v.SetDefault("canvas.container_width", d.Canvas.ContainerWidth)
	v.SetDefault("canvas.viewport_height", d.Canvas.ViewportHeight)
	v.SetDefault("canvas.max_height_ratio", d.Canvas.MaxHeightRatio)
	v.SetDefault("canvas.brush_size", d.Canvas.BrushSize)

	v.SetDefault("session.ttl", d.Session.TTL)
	v.SetDefault("session.sweep_spec", d.Session.SweepSpec)
	v.SetDefault("session.max_notifications", d.Session.MaxNotifications)
}

func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            ":8080",
			Mode:            "debug",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			MaxBodySize:     32 * 1024 * 1024,
			DownloadTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      24 * time.Hour,
		},
		Removal: RemovalConfig{
			BaseURL: "http://localhost:3000",
			Timeout: 0,
		},
		Canvas: CanvasConfig{
			ContainerWidth: 800,
			ViewportHeight: 900,
			MaxHeightRatio: 0.7,
			BrushSize:      30,
		},
		Session: SessionConfig{
			TTL:              30 * time.Minute,
			SweepSpec:        "@every 1m",
			MaxNotifications: 20,
		},
	}
}
