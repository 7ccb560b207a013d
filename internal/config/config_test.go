package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresMongoURI(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	cfg, err := loadWithout(t, "MONGO_URI")
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "MONGO_URI")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load("api")
	require.NoError(t, err)
	assert.Equal(t, "api", cfg.RunMode)
	assert.Equal(t, 5, cfg.SocketReconnectTries)
	assert.Equal(t, time.Second, cfg.SocketReconnectDelay)
	assert.Equal(t, 50, cfg.NotificationListLimit)
	assert.Equal(t, time.Second, cfg.NoticeDedupWindow)
}

func TestLoad_InvalidNumber(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SOCKET_RECONNECT_ATTEMPTS", "many")

	_, err := Load("api")
	assert.ErrorContains(t, err, "invalid SOCKET_RECONNECT_ATTEMPTS")
}

func loadWithout(t *testing.T, key string) (*Config, error) {
	t.Helper()
	if old, ok := os.LookupEnv(key); ok {
		require.NoError(t, os.Unsetenv(key))
		t.Cleanup(func() { os.Setenv(key, old) })
	}
	return Load("api")
}
