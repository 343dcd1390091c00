package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/foodgram/internal/recipes"
	"github.com/spf13/viper"
)

const (
	envPrefix                  = "FOODGRAM"
	defaultHTTPAddress         = "0.0.0.0:8080"
	defaultDatabasePath        = "foodgram.db"
	defaultLogLevel            = "info"
	defaultTokenTTL            = 7 * 24 * time.Hour
	defaultPageSize            = 6
	maxPageSize                = 100
	defaultAnonymousMembership = recipes.AnonymousMembershipAny
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress         string
	DatabasePath        string
	LogLevel            string
	SigningSecret       string
	TokenTTL            time.Duration
	PageSize            int
	AllowedOrigins      []string
	AnonymousMembership string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("auth.token_ttl", defaultTokenTTL)
	configViper.SetDefault("pagination.page_size", defaultPageSize)
	configViper.SetDefault("cors.allowed_origins", []string{"*"})
	configViper.SetDefault("recipes.anonymous_membership", defaultAnonymousMembership)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:         configViper.GetString("http.address"),
		DatabasePath:        configViper.GetString("database.path"),
		LogLevel:            configViper.GetString("log.level"),
		SigningSecret:       configViper.GetString("auth.signing_secret"),
		TokenTTL:            configViper.GetDuration("auth.token_ttl"),
		PageSize:            configViper.GetInt("pagination.page_size"),
		AllowedOrigins:      configViper.GetStringSlice("cors.allowed_origins"),
		AnonymousMembership: strings.ToLower(strings.TrimSpace(configViper.GetString("recipes.anonymous_membership"))),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if c.PageSize < 1 || c.PageSize > maxPageSize {
		return fmt.Errorf("pagination.page_size must be between 1 and %d", maxPageSize)
	}
	switch c.AnonymousMembership {
	case recipes.AnonymousMembershipAny, recipes.AnonymousMembershipNone:
	default:
		return fmt.Errorf("recipes.anonymous_membership must be %q or %q", recipes.AnonymousMembershipAny, recipes.AnonymousMembershipNone)
	}
	return nil
}
