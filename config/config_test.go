package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithMemoryDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(20<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 7*24*time.Hour, cfg.Workflow.PaymentWindow)
	assert.Equal(t, 3*24*time.Hour, cfg.Workflow.RenoticeWindow)
	assert.Equal(t, 14*24*time.Hour, cfg.Workflow.RevisionWindow)
	assert.Equal(t, "local", cfg.Lock.Driver)
	assert.False(t, cfg.IsProduction())
}

func TestLoadReadsLegacyEnvNames(t *testing.T) {
	t.Setenv("DB_DATABASE", "permits")
	t.Setenv("DB_USERNAME", "portal")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("WORKFLOW_PAYMENT_WINDOW", "48h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "permits", cfg.Database.Name)
	assert.Equal(t, "portal", cfg.Database.User)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 48*time.Hour, cfg.Workflow.PaymentWindow)
	assert.True(t, cfg.IsProduction())
	assert.Contains(t, cfg.Database.DSN(), "portal:@tcp(127.0.0.1:3306)/permits?")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{MaxUploadBytes: 1 << 20},
			Database: DatabaseConfig{Driver: "mysql", Name: "permits"},
			Storage:  StorageConfig{Driver: "local", LocalRoot: "./uploads"},
			Lock:     LockConfig{Driver: "mysql"},
			Workflow: WorkflowConfig{PaymentWindow: time.Hour, RenoticeWindow: time.Hour, RevisionWindow: time.Hour},
		}
	}
	base := valid()
	require.NoError(t, base.Validate())

	cases := map[string]func(*Config){
		"unknown database driver": func(c *Config) { c.Database.Driver = "sqlite" },
		"mysql without name":      func(c *Config) { c.Database.Name = "" },
		"s3 without bucket":       func(c *Config) { c.Storage.Driver = "s3" },
		"mysql lock on memory":    func(c *Config) { c.Database.Driver = "memory" },
		"redis without address":   func(c *Config) { c.Lock.Driver = "redis" },
		"zero upload limit":       func(c *Config) { c.Server.MaxUploadBytes = 0 },
		"zero revision window":    func(c *Config) { c.Workflow.RevisionWindow = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
