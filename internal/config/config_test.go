package config

import "testing"

func validConfig() *Config {
	cfg := &Config{}
	cfg.Auth.Issuer = "https://issuer.example.com/"
	cfg.Auth.Audience = "api://tenant-gateway"
	cfg.Auth.JWKSURL = "https://issuer.example.com/keys"
	cfg.Tenants.Source = "static"
	cfg.Tenants.Static = map[string]TenantEntry{
		"tenant-A": {DatastoreName: "tenant-a-db", DSN: "postgres://gw@db-a:5432/a"},
	}
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() on valid config = %v, want nil", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing issuer", func(c *Config) { c.Auth.Issuer = "" }},
		{"missing audience", func(c *Config) { c.Auth.Audience = "" }},
		{"missing jwks url", func(c *Config) { c.Auth.JWKSURL = "" }},
		{"static source without entries", func(c *Config) { c.Tenants.Static = nil }},
		{"redis source without url", func(c *Config) { c.Tenants.Source = "redis" }},
		{"bogus source", func(c *Config) { c.Tenants.Source = "dynamo" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
