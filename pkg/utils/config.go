package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"engram/pkg/fetch"
)

type AuthConfig struct {
	AdminPasswordHash string        `yaml:"admin_password_hash"` // bcrypt; empty disables admin routes
	JWTSecret         string        `yaml:"jwt_secret"`
	JWTIssuer         string        `yaml:"jwt_issuer"`
	JWTDuration       time.Duration `yaml:"jwt_ttl"`
}

type Config struct {
	HTTPAddr     string        `yaml:"http_addr"`
	GRPCAddr     string        `yaml:"grpc_addr"`
	MirrorAddr   string        `yaml:"mirror_addr"`
	MirrorDir    string        `yaml:"mirror_dir"`
	Content      string        `yaml:"content"` // origin URL or local directory holding Content-Meta
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	LogMode      string        `yaml:"log_mode"`
	CORSOrigins  []string      `yaml:"cors_origins"`
	DBDSN        string        `yaml:"db_dsn"`
	Auth         AuthConfig    `yaml:"auth"`
}

func defaults() Config {
	return Config{
		HTTPAddr:     ":8080",
		GRPCAddr:     ":9090",
		MirrorAddr:   ":9000",
		MirrorDir:    "data",
		Content:      "http://localhost:9000",
		FetchTimeout: fetch.DefaultTimeout,
		LogMode:      "dev",
		CORSOrigins:  []string{"http://localhost:5173"},
		Auth: AuthConfig{
			// dev default (change for demo / production)
			JWTSecret:   "dev-secret-change-me",
			JWTIssuer:   "engram",
			JWTDuration: 24 * time.Hour,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named
// by ENGRAM_CONFIG (if any), then ENGRAM_* environment variables.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("ENGRAM_CONFIG"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	setString(&cfg.HTTPAddr, "ENGRAM_HTTP_ADDR")
	setString(&cfg.GRPCAddr, "ENGRAM_GRPC_ADDR")
	setString(&cfg.MirrorAddr, "ENGRAM_MIRROR_ADDR")
	setString(&cfg.MirrorDir, "ENGRAM_MIRROR_DIR")
	setString(&cfg.Content, "ENGRAM_CONTENT")
	setString(&cfg.LogMode, "ENGRAM_LOG_MODE")
	setString(&cfg.DBDSN, "ENGRAM_DB_DSN")
	if v := os.Getenv("ENGRAM_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if err := setDuration(&cfg.FetchTimeout, "ENGRAM_FETCH_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if err := loadAuth(&cfg.Auth); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadAuthConfig reads only the admin auth settings.
func LoadAuthConfig() (AuthConfig, error) {
	cfg := defaults().Auth
	if err := loadAuth(&cfg); err != nil {
		return AuthConfig{}, err
	}
	return cfg, nil
}

func loadAuth(cfg *AuthConfig) error {
	setString(&cfg.AdminPasswordHash, "ENGRAM_ADMIN_PASSWORD_HASH")
	setString(&cfg.JWTSecret, "ENGRAM_JWT_SECRET")
	setString(&cfg.JWTIssuer, "ENGRAM_JWT_ISSUER")

	if ttl := os.Getenv("ENGRAM_JWT_TTL_HOURS"); ttl != "" {
		hours, err := strconv.Atoi(ttl)
		if err != nil || hours <= 0 {
			return fmt.Errorf("ENGRAM_JWT_TTL_HOURS: want a positive number of hours, got %q", ttl)
		}
		cfg.JWTDuration = time.Duration(hours) * time.Hour
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
