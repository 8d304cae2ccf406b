package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	cfg := FromViper(viper.New())

	assert.Equal(t, ":4455", cfg.Addr)
	assert.Empty(t, cfg.PluginDir)
	assert.Equal(t, 10*time.Second, cfg.PluginLoadTimeout)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Empty(t, cfg.Redis.URL)
	assert.True(t, cfg.UsesDefaultSigningKey())
}

func TestFromViperEnvironment(t *testing.T) {
	t.Setenv("NEBULA_PLUGIN_DIR", "/opt/nebula/plugins")
	t.Setenv("NEBULA_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("NEBULA_TOKEN_TTL", "30m")
	t.Setenv("NEBULA_JWT_SIGNING_KEY", "s3cret")

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(replacer())
	v.AutomaticEnv()
	cfg := FromViper(v)

	assert.Equal(t, "/opt/nebula/plugins", cfg.PluginDir)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.False(t, cfg.UsesDefaultSigningKey())
}
