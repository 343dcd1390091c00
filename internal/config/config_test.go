package config

import (
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/foodgram/internal/recipes"
)

func TestLoadAppliesDefaults(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddress != defaultHTTPAddress {
		t.Fatalf("unexpected address %q", cfg.HTTPAddress)
	}
	if cfg.TokenTTL != 7*24*time.Hour {
		t.Fatalf("unexpected token ttl %s", cfg.TokenTTL)
	}
	if cfg.PageSize != 6 {
		t.Fatalf("unexpected page size %d", cfg.PageSize)
	}
	if cfg.AnonymousMembership != recipes.AnonymousMembershipAny {
		t.Fatalf("unexpected anonymous membership policy %q", cfg.AnonymousMembership)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("FOODGRAM_AUTH_SIGNING_SECRET", "from-env")
	t.Setenv("FOODGRAM_RECIPES_ANONYMOUS_MEMBERSHIP", "NONE")
	t.Setenv("FOODGRAM_AUTH_TOKEN_TTL", "90m")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SigningSecret != "from-env" {
		t.Fatalf("expected signing secret from env, got %q", cfg.SigningSecret)
	}
	if cfg.AnonymousMembership != recipes.AnonymousMembershipNone {
		t.Fatalf("expected normalized policy, got %q", cfg.AnonymousMembership)
	}
	if cfg.TokenTTL != 90*time.Minute {
		t.Fatalf("unexpected ttl %s", cfg.TokenTTL)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value any
	}{
		{name: "missing-secret", key: "auth.signing_secret", value: ""},
		{name: "empty-database", key: "database.path", value: " "},
		{name: "page-size-zero", key: "pagination.page_size", value: 0},
		{name: "page-size-too-large", key: "pagination.page_size", value: 1000},
		{name: "unknown-policy", key: "recipes.anonymous_membership", value: "everyone"},
		{name: "negative-ttl", key: "auth.token_ttl", value: "-1h"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			configViper := NewViper()
			configViper.Set("auth.signing_secret", "secret")
			configViper.Set(testCase.key, testCase.value)
			if _, err := Load(configViper); err == nil {
				t.Fatalf("expected error for %s", testCase.name)
			}
		})
	}
}
