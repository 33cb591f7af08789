package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

type Configs struct {
	Env      string `toml:"env" env:"ENV" envDefault:"local"`
	LogLevel string `toml:"log_level" env:"LOG_LEVEL" envDefault:"INFO"`

	Database   DatabaseConfigs   `toml:"database"`
	ApiServer  ServerConfigs     `toml:"api_server"`
	Auth       AuthConfigs       `toml:"auth"`
	Session    SessionConfigs    `toml:"session"`
	Redis      RedisConfigs      `toml:"redis"`
	OAuthState OAuthStateConfigs `toml:"oauth_state"`
	Cron       CronConfigs       `toml:"cron"`
}

type DatabaseConfigs struct {
	// Driver is either "sqlite" or "mysql".
	Driver   string `toml:"driver" env:"DB_DRIVER" envDefault:"sqlite"`
	Path     string `toml:"path" env:"DB_PATH" envDefault:"kizuna.db"`
	Host     string `toml:"host" env:"DB_HOST"`
	Port     string `toml:"port" env:"DB_PORT" envDefault:"3306"`
	Database string `toml:"database" env:"DB_NAME"`
	User     string `toml:"user" env:"DB_USER"`
	Password string `toml:"password" env:"DB_PASSWORD"`
}

func (d *DatabaseConfigs) ConnectionString() string {
	if d.Driver == "sqlite" {
		return d.Path
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type ServerConfigs struct {
	Host           string        `toml:"host" env:"API_HOST"`
	Port           string        `toml:"port" env:"API_PORT" envDefault:"8080"`
	AllowedOrigins []string      `toml:"allowed_origins" env:"API_ALLOWED_ORIGINS" envSeparator:","`
	ReadTimeout    time.Duration `toml:"read_timeout" env:"API_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `toml:"write_timeout" env:"API_WRITE_TIMEOUT" envDefault:"15s"`
}

func (s ServerConfigs) Address() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

type SessionConfigs struct {
	Secret string `toml:"secret" env:"SESSION_SECRET"`
	Name   string `toml:"name" env:"SESSION_NAME" envDefault:"kizuna_session"`
}

type AuthConfigs struct {
	TokenSecret string       `toml:"token_secret" env:"JWT_SECRET"`
	AccessToken TokenConfigs `toml:"access_token"`

	// FrontendURL receives the final redirect of the OAuth2 callback.
	FrontendURL       string        `toml:"frontend_url" env:"OAUTH_FRONTEND_URL" envDefault:"http://localhost:3000/auth/callback"`
	RedirectAllowlist []string      `toml:"redirect_allowlist" env:"OAUTH_REDIRECT_ALLOWLIST" envSeparator:","`
	ProviderTimeout   time.Duration `toml:"provider_timeout" env:"OAUTH_PROVIDER_TIMEOUT" envDefault:"10s"`

	Google OAuth2Config `toml:"google" envPrefix:"GOOGLE_"`
	GitHub OAuth2Config `toml:"github" envPrefix:"GITHUB_"`
	X      OAuth2Config `toml:"x" envPrefix:"X_"`
	Line   OAuth2Config `toml:"line" envPrefix:"LINE_"`
}

type OAuth2Config struct {
	ClientID     string   `toml:"client_id" env:"CLIENT_ID"`
	ClientSecret string   `toml:"client_secret" env:"CLIENT_SECRET"`
	RedirectURI  string   `toml:"redirect_uri" env:"REDIRECT_URI"`
	Scopes       []string `toml:"scopes" env:"SCOPES" envSeparator:","`

	// Endpoint overrides, mostly useful for tests and self-hosted gateways.
	AuthURL     string `toml:"auth_url" env:"AUTH_URL"`
	TokenURL    string `toml:"token_url" env:"TOKEN_URL"`
	UserInfoURL string `toml:"user_info_url" env:"USER_INFO_URL"`

	// Issuer enables OIDC id_token verification for providers supporting it.
	Issuer string `toml:"issuer" env:"ISSUER"`
}

func (c OAuth2Config) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURI != ""
}

type TokenConfigs struct {
	Name       string        `toml:"name" env:"ACCESS_TOKEN_NAME" envDefault:"access_token"`
	Expiration time.Duration `toml:"expiration" env:"ACCESS_TOKEN_EXPIRATION" envDefault:"24h"`
}

type RedisConfigs struct {
	Addr string `toml:"addr" env:"REDIS_ADDR"`
}

type OAuthStateConfigs struct {
	// Backend is either "db" or "redis".
	Backend string        `toml:"backend" env:"OAUTH_STATE_BACKEND" envDefault:"db"`
	TTL     time.Duration `toml:"ttl" env:"OAUTH_STATE_TTL" envDefault:"10m"`
}

type CronConfigs struct {
	StateSweepInterval time.Duration `toml:"state_sweep_interval" env:"CRON_STATE_SWEEP_INTERVAL" envDefault:"10m"`
}

// Load reads the optional TOML file at path and then applies environment overrides.
func Load(path string) (Configs, error) {
	var cfg Configs
	if err := env.Parse(&cfg); err != nil {
		return Configs{}, err
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Configs{}, fmt.Errorf("cannot read config file: %w", err)
		}

		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Configs{}, fmt.Errorf("cannot decode config file: %w", err)
		}

		// Environment always wins over the file. Defaults were applied by the first pass, so they
		// must not overwrite the values read from the file.
		if err := env.ParseWithOptions(&cfg, env.Options{DefaultValueTagName: "-"}); err != nil {
			return Configs{}, err
		}
	}

	return cfg, nil
}

func (c Configs) Validate() error {
	if c.Auth.TokenSecret == "" {
		return errors.New("auth token secret must be configured")
	}

	if c.Session.Secret == "" {
		return errors.New("session secret must be configured")
	}

	if c.OAuthState.Backend != "db" && c.OAuthState.Backend != "redis" {
		return fmt.Errorf("invalid oauth state backend %s", c.OAuthState.Backend)
	}

	if c.OAuthState.Backend == "redis" && c.Redis.Addr == "" {
		return errors.New("redis address is required by the redis oauth state backend")
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "mysql" {
		return fmt.Errorf("invalid database driver %s", c.Database.Driver)
	}

	return nil
}
