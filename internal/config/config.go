// Package config はアプリケーション設定を読み込みます。
//
// 優先順位: 環境変数 > 設定ファイル(YAML) > デフォルト値。
// .env ファイルは既存の環境変数を上書きせずに読み込まれます。
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar は設定ファイルのパスを指定する環境変数です。
const ConfigPathEnvVar = "CONFIG_PATH"

// Config はアプリケーション全体の設定です。
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Google   GoogleConfig   `koanf:"google"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Host          string   `koanf:"host"`
	Port          int      `koanf:"port"`
	Debug         bool     `koanf:"debug"`
	StaticDir     string   `koanf:"static_dir"`
	CORSOrigins   []string `koanf:"cors_origins"`
	DashboardPath string   `koanf:"dashboard_path"`
	// TrustedProxies はX-Forwarded-Forを信頼するプロキシのIP・CIDRです。空の場合はどれも信頼しません。
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// Addr は listen アドレスを返します。
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type DatabaseConfig struct {
	Driver  string        `koanf:"driver"` // mongo, mysql, memory
	URI     string        `koanf:"uri"`
	Name    string        `koanf:"name"`
	Timeout time.Duration `koanf:"timeout"`
	MySQL   MySQLConfig   `koanf:"mysql"`
}

type MySQLConfig struct {
	User string `koanf:"user"`
	Pass string `koanf:"pass"`
	Host string `koanf:"host"`
	Port string `koanf:"port"`
	Name string `koanf:"name"`
}

// DSN はMySQL接続文字列 (DSN) を構築します。
func (m MySQLConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = m.User
	cfg.Passwd = m.Pass
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(m.Host, m.Port)
	cfg.DBName = m.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

type AuthConfig struct {
	SecretKey          string        `koanf:"secret_key"`
	JWTSecret          string        `koanf:"jwt_secret"`
	JWTExpiresHours    int           `koanf:"jwt_expires_hours"`
	SessionLifetime    time.Duration `koanf:"session_lifetime"`
	StateTTL           time.Duration `koanf:"state_ttl"`
	CookieSecure       bool          `koanf:"cookie_secure"`
	LoginRatePerMinute int           `koanf:"login_rate_per_minute"`
}

// TokenLifetime はアクセストークンの有効期間です。
func (a AuthConfig) TokenLifetime() time.Duration {
	return time.Duration(a.JWTExpiresHours) * time.Hour
}

type GoogleConfig struct {
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	RedirectURI  string        `koanf:"redirect_uri"`
	AuthURL      string        `koanf:"auth_url"`
	TokenURL     string        `koanf:"token_url"`
	UserinfoURL  string        `koanf:"userinfo_url"`
	Timeout      time.Duration `koanf:"timeout"`
}

// Configured はクライアントID・シークレットが両方設定されているかを返します。
func (g GoogleConfig) Configured() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default はデフォルト設定を返します。
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "127.0.0.1",
			Port:          5000,
			StaticDir:     "frontend",
			CORSOrigins:   []string{"*"},
			DashboardPath: "/dashboard.html",
		},
		Database: DatabaseConfig{
			Driver:  "mongo",
			URI:     "mongodb://localhost:27017/?directConnection=true",
			Name:    "timenest",
			Timeout: 2 * time.Second,
			MySQL: MySQLConfig{
				User: "root",
				Host: "127.0.0.1",
				Port: "3306",
				Name: "timenest",
			},
		},
		Auth: AuthConfig{
			SecretKey:          "dev-secret-key-change-me",
			JWTSecret:          "change-this-jwt-secret",
			JWTExpiresHours:    12,
			SessionLifetime:    31 * 24 * time.Hour,
			StateTTL:           10 * time.Minute,
			LoginRatePerMinute: 30,
		},
		Google: GoogleConfig{
			RedirectURI: "http://127.0.0.1:5000/auth/google/callback",
			AuthURL:     "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL:    "https://oauth2.googleapis.com/token",
			UserinfoURL: "https://www.googleapis.com/oauth2/v3/userinfo",
			Timeout:     10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load は .env、設定ファイル、環境変数から設定を読み込みます。
func Load() (*Config, error) {
	// .env が無くてもエラーにしない（本番では環境変数のみ）
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	for _, path := range []string{"server.cors_origins", "server.trusted_proxies"} {
		if err := splitCommaList(k, path); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range []string{"config.yaml", "config.yml"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envMappings は環境変数名から設定キーへの対応表です。
var envMappings = map[string]string{
	"host":            "server.host",
	"port":            "server.port",
	"debug":           "server.debug",
	"flask_debug":     "server.debug",
	"static_dir":      "server.static_dir",
	"cors_origins":    "server.cors_origins",
	"dashboard_path":  "server.dashboard_path",
	"trusted_proxies": "server.trusted_proxies",

	"db_driver":     "database.driver",
	"mongo_uri":     "database.uri",
	"mongo_db_name": "database.name",
	"db_timeout":    "database.timeout",
	"db_user":       "database.mysql.user",
	"db_pass":       "database.mysql.pass",
	"db_host":       "database.mysql.host",
	"db_port":       "database.mysql.port",
	"db_name":       "database.mysql.name",

	"secret_key":            "auth.secret_key",
	"jwt_secret_key":        "auth.jwt_secret",
	"jwt_expires_hours":     "auth.jwt_expires_hours",
	"session_lifetime":      "auth.session_lifetime",
	"oauth_state_ttl":       "auth.state_ttl",
	"session_cookie_secure": "auth.cookie_secure",
	"login_rate_per_minute": "auth.login_rate_per_minute",

	"google_client_id":     "google.client_id",
	"google_client_secret": "google.client_secret",
	"google_redirect_uri":  "google.redirect_uri",
	"google_auth_url":      "google.auth_url",
	"google_token_url":     "google.token_url",
	"google_userinfo_url":  "google.userinfo_url",
	"google_timeout":       "google.timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
}

// envTransformFunc は未知の環境変数を無視するため空文字を返します。
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

func splitCommaList(k *koanf.Koanf, path string) error {
	raw, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var items []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	if err := k.Set(path, items); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

// Validate は設定値を検証します。
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	switch c.Database.Driver {
	case "mongo", "mysql", "memory":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be one of mongo, mysql, memory, got %q", c.Database.Driver))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Auth.SecretKey == "" {
		errs = append(errs, errors.New("auth.secret_key is required"))
	}
	if c.Auth.JWTExpiresHours <= 0 {
		errs = append(errs, errors.New("auth.jwt_expires_hours must be positive"))
	}
	if c.Auth.SessionLifetime <= 0 {
		errs = append(errs, errors.New("auth.session_lifetime must be positive"))
	}
	if c.Auth.StateTTL <= 0 {
		errs = append(errs, errors.New("auth.state_ttl must be positive"))
	}
	if c.Google.Timeout <= 0 {
		errs = append(errs, errors.New("google.timeout must be positive"))
	}
	return errors.Join(errs...)
}
