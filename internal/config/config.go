// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config - корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
//
// В случаях 1–3 переменные окружения накладываются поверх YAML.
type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Password PasswordConfig `yaml:"password"`
	Redis    RedisConfig    `yaml:"redis"`
	DB       DBConfig       `yaml:"db"`
	Mongo    MongoConfig    `yaml:"mongo"`
}

// HTTPConfig - сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host            string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	BasePath        string        `yaml:"base_path" env:"HTTP_BASE_PATH" env-default:""`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"HTTP_REQUEST_TIMEOUT" env-default:"5s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig содержит параметры выпуска и проверки токенов.
type AuthConfig struct {
	JWTSecret                  string `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	AccessTokenLifetimeMinutes int    `yaml:"access_token_lifetime_minutes" env:"ACCESS_TOKEN_LIFETIME_MINUTES" env-required:"true"`
	RefreshTokenLifetimeDays   int    `yaml:"refresh_token_lifetime_days" env:"REFRESH_TOKEN_LIFETIME_DAYS" env-required:"true"`
	Issuer                     string `yaml:"issuer" env:"JWT_ISSUER" env-default:"news-publisher"`
}

// AccessTokenTTL - срок жизни access-токена.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenLifetimeMinutes) * time.Minute
}

// RefreshTokenTTL - срок жизни сессии (refresh-токена).
func (a AuthConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(a.RefreshTokenLifetimeDays) * 24 * time.Hour
}

// PasswordConfig - стоимость argon2id. Нули означают значения по умолчанию.
type PasswordConfig struct {
	MemoryKiB   uint32 `yaml:"memory_kib" env:"PASSWORD_MEMORY_KIB" env-default:"65536"`
	Iterations  uint32 `yaml:"iterations" env:"PASSWORD_ITERATIONS" env-default:"3"`
	Parallelism uint8  `yaml:"parallelism" env:"PASSWORD_PARALLELISM" env-default:"2"`
	SaltLength  uint32 `yaml:"salt_length" env:"PASSWORD_SALT_LENGTH" env-default:"16"`
	KeyLength   uint32 `yaml:"key_length" env:"PASSWORD_KEY_LENGTH" env-default:"32"`
}

// RedisConfig - подключение к хранилищу сессий.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-required:"true"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-required:"true"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Addr возвращает адрес в формате host:port.
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, r.Port)
}

// DBConfig - настройки подключения к PostgreSQL.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL" env-required:"true"`
}

// MongoConfig - настройки подключения к MongoDB (комментарии).
type MongoConfig struct {
	URL      string `yaml:"url" env:"MONGO_URL" env-required:"true"`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"news"`
}

// MustLoad - обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// Результат проходит Validate.
func Load(path string) (*Config, error) {
	var cfg Config

	// чтение файла + overlay ENV.
	readFile := func(p string) error {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("config file does not exist: %s", p)
			}
			return fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		return nil
	}

	switch {
	case path != "":
		if err := readFile(path); err != nil {
			return nil, err
		}
	case os.Getenv("CONFIG_PATH") != "":
		if err := readFile(os.Getenv("CONFIG_PATH")); err != nil {
			return nil, err
		}
	default:
		if _, err := os.Stat("local.yaml"); err == nil {
			if err := readFile("local.yaml"); err != nil {
				return nil, err
			}
		} else if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет значения, которые нельзя выразить тегами.
func (c *Config) Validate() error {
	switch {
	case c.Auth.AccessTokenLifetimeMinutes <= 0:
		return fmt.Errorf("invalid config: ACCESS_TOKEN_LIFETIME_MINUTES must be positive, got %d", c.Auth.AccessTokenLifetimeMinutes)
	case c.Auth.RefreshTokenLifetimeDays <= 0:
		return fmt.Errorf("invalid config: REFRESH_TOKEN_LIFETIME_DAYS must be positive, got %d", c.Auth.RefreshTokenLifetimeDays)
	case c.HTTP.RequestTimeout <= 0:
		return fmt.Errorf("invalid config: http.request_timeout must be positive")
	}

	return nil
}
