package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsWithMemoryStorage(t *testing.T) {
	path := writeConfig(t, `
app:
  storage: memory
jwt:
  secret: s3cr3t
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "memory", cfg.App.Storage)
	assert.Equal(t, "accessToken", cfg.JWT.CookieName)
	assert.Equal(t, 24*time.Hour, cfg.AccessTTL)
	assert.Equal(t, 25*time.Second, cfg.PingInterval)
	assert.Equal(t, 6*time.Second, cfg.TypingTimeout)
	assert.Equal(t, 50, cfg.Chat.DefaultPageSize)
	assert.Equal(t, 100, cfg.Chat.MaxPageSize)
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.S3Enabled())
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
app:
  storage: memory
  port: 9000
jwt:
  secret: from-file
`)
	t.Setenv("THRIFTIFY_JWT_SECRET", "from-env")
	t.Setenv("THRIFTIFY_APP_PORT", "9100")
	t.Setenv("THRIFTIFY_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, 9100, cfg.App.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.KafkaEnabled())
}

func TestLoadMissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("THRIFTIFY_JWT_SECRET", "x")
	t.Setenv("THRIFTIFY_APP_STORAGE", "memory")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.App.Storage)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing secret", "app:\n  storage: memory\n", "jwt.secret"},
		{"mongo without uri", "jwt:\n  secret: x\n", "mongo.uri"},
		{"unknown storage", "app:\n  storage: sqlite\njwt:\n  secret: x\n", "unknown app.storage"},
		{"page sizes", "app:\n  storage: memory\njwt:\n  secret: x\nchat:\n  default_page_size: 500\n", "exceeds"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
