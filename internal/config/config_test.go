package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(overrides map[string]interface{}) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestDecodeDefaults(t *testing.T) {
	cfg, err := decode(newViper(map[string]interface{}{"auth.jwt_secret": "s"}))
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 10*time.Second, cfg.Scheduler.PushTimeout)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "none", cfg.Events.Driver)
	assert.False(t, cfg.Push.Configured())
	assert.False(t, cfg.Redis.Enabled())

	loc, err := cfg.Scheduler.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestDecodeRejects(t *testing.T) {
	cases := map[string]map[string]interface{}{
		"missing secret":    {},
		"bad algorithm":     {"auth.jwt_secret": "s", "auth.algorithm": "RS256"},
		"interval too long": {"auth.jwt_secret": "s", "scheduler.interval": "5m"},
		"bad timezone":      {"auth.jwt_secret": "s", "scheduler.timezone": "Mars/Olympus"},
		"lease w/o redis":   {"auth.jwt_secret": "s", "scheduler.lease.enabled": true},
		"events w/o redis":  {"auth.jwt_secret": "s", "events.driver": "redis"},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decode(newViper(overrides))
			assert.Error(t, err)
		})
	}
}

func TestPushConfigured(t *testing.T) {
	p := PushConfig{KeyID: "k", TeamID: "t", BundleID: "b", KeyPath: "/tmp/key.p8"}
	assert.True(t, p.Configured())
	p.KeyPath = ""
	assert.False(t, p.Configured())
}
