package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	DataSource DataSourceConfig
	API        APIConfig
	Redis      RedisConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	QR         QRConfig
}

type AppConfig struct {
	Port string
	// ShortDomain домен, на котором живут короткие ссылки (для превью short_url)
	ShortDomain string
}

type DataSourceConfig struct {
	// Mode источник данных: "remote" (боевой API) или "fixture" (данные в памяти)
	Mode string
}

type APIConfig struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

type QRConfig struct {
	BaseURL string
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// отсутствие .env не ошибка: всё можно задать переменными окружения
	if err := viper.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(".env"); statErr == nil {
			return nil, err
		}
	}

	var cfg Config
	cfg.App.Port = viper.GetString("APP_PORT")
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	cfg.App.ShortDomain = viper.GetString("SHORT_DOMAIN")
	if cfg.App.ShortDomain == "" {
		cfg.App.ShortDomain = "https://lnk.example.com"
	}

	cfg.DataSource.Mode = viper.GetString("DATA_SOURCE")
	if cfg.DataSource.Mode == "" {
		cfg.DataSource.Mode = "remote"
	}

	cfg.API.BaseURL = viper.GetString("API_BASE_URL")
	cfg.API.Token = viper.GetString("API_TOKEN")
	cfg.API.Timeout = viper.GetDuration("API_TIMEOUT")
	cfg.API.RequestsPerSecond = viper.GetFloat64("API_RPS")
	cfg.API.Burst = viper.GetInt("API_BURST")

	cfg.Redis.Host = viper.GetString("REDIS_HOST")
	cfg.Redis.Port = viper.GetString("REDIS_PORT")
	cfg.Redis.Password = viper.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = viper.GetInt("REDIS_DB")

	cfg.Auth.JWTSecret = viper.GetString("JWT_SECRET")

	cfg.RateLimit.RequestsPerSecond = viper.GetFloat64("RATE_LIMIT_RPS")
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	cfg.RateLimit.BurstSize = viper.GetInt("RATE_LIMIT_BURST")
	if cfg.RateLimit.BurstSize == 0 {
		cfg.RateLimit.BurstSize = 20
	}

	cfg.QR.BaseURL = viper.GetString("QR_SERVICE_URL")

	return &cfg, nil
}
