package main

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsOverrideConfig(t *testing.T) {
	s := &setup{v: viper.New()}
	root := s.command()

	require.NoError(t, root.PersistentFlags().Set("settings-dir", "/srv/settings"))
	require.NoError(t, root.PersistentFlags().Set("database-url", "postgres://setup@db/nebula"))
	require.NoError(t, root.PersistentPreRunE(root, nil))

	assert.Equal(t, "/srv/settings", s.cfg.SettingsDir)
	assert.Equal(t, "postgres://setup@db/nebula", s.cfg.Database.URL)
	assert.NotNil(t, s.logger)
}

func TestDefaultsWithoutFlags(t *testing.T) {
	s := &setup{v: viper.New()}
	root := s.command()
	require.NoError(t, root.PersistentPreRunE(root, nil))

	assert.Equal(t, "/settings", s.cfg.SettingsDir)
}

func TestSubcommands(t *testing.T) {
	root := (&setup{v: viper.New()}).command()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"schema", "settings"})
}
