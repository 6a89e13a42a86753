package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Vision     VisionConfig     `mapstructure:"vision"`
	Media      MediaConfig      `mapstructure:"media"`
	Evaluation EvaluationConfig `mapstructure:"evaluation"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

type VisionConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	Endpoint   string        `mapstructure:"endpoint"`
	Timeout    time.Duration `mapstructure:"timeout"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
	MaxLabels  int64         `mapstructure:"max_labels"`
	MaxObjects int64         `mapstructure:"max_objects"`
	MaxTexts   int64         `mapstructure:"max_texts"`
}

type MediaConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxBytes         int64         `mapstructure:"max_bytes"`
	ManagedURLMarker string        `mapstructure:"managed_url_marker"`
	UserAgent        string        `mapstructure:"user_agent"`
}

type EvaluationConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	DaylightOverride    bool    `mapstructure:"daylight_override"`
	RubricFile          string  `mapstructure:"rubric_file"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Required  bool   `mapstructure:"required"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const envPrefix = "SKATESPOT"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("vision.api_key", "")
	v.SetDefault("vision.endpoint", "")
	v.SetDefault("vision.timeout", 30*time.Second)
	v.SetDefault("vision.cache_ttl", 15*time.Minute)
	v.SetDefault("vision.max_labels", 20)
	v.SetDefault("vision.max_objects", 15)
	v.SetDefault("vision.max_texts", 5)

	v.SetDefault("media.timeout", 30*time.Second)
	v.SetDefault("media.max_bytes", 20<<20)
	v.SetDefault("media.managed_url_marker", "/storage/v1/object/public/")
	v.SetDefault("media.user_agent", "SkateSpotEvaluator/1.0")

	v.SetDefault("evaluation.confidence_threshold", 0.3)
	v.SetDefault("evaluation.daylight_override", true)
	v.SetDefault("evaluation.rubric_file", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.required", false)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "spot.rating")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads config.yaml (if any) from the given path or the default search paths,
// then applies SKATESPOT_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/skatespot")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if t := c.Evaluation.ConfidenceThreshold; math.IsNaN(t) || t < 0 || t > 1 {
		return fmt.Errorf("evaluation.confidence_threshold must be within [0,1], got %v", t)
	}
	if c.Media.MaxBytes <= 0 {
		return fmt.Errorf("media.max_bytes must be positive")
	}
	if c.Auth.Required && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.required is set but auth.jwt_secret is empty")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}
