package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	d := DefaultConfig()
	assert.Equal(t, d.Port, cfg.Port)
	assert.Equal(t, d.Backend, cfg.Backend)
	assert.Equal(t, d.Session, cfg.Session)
	assert.Equal(t, d.AllowedOrigins, cfg.AllowedOrigins)
	assert.Empty(t, cfg.AllowedEmailDomains)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BACKEND", "MEMORY")
	t.Setenv("ALLOWED_EMAIL_DOMAINS", "uni.edu, students.uni.edu ,")
	t.Setenv("SESSION_BACKEND", "redis")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, []string{"uni.edu", "students.uni.edu"}, cfg.AllowedEmailDomains)
	assert.Equal(t, BackendRedis, cfg.Session.Backend)
	assert.Equal(t, 2, cfg.Session.RedisDB)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoadFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BLOB_BACKEND=b2\nB2_BUCKET=studyzone-files\n"), 0600))
	t.Cleanup(func() {
		os.Unsetenv("BLOB_BACKEND")
		os.Unsetenv("B2_BUCKET")
	})

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, BackendB2, cfg.Blob.Backend)
	assert.Equal(t, "studyzone-files", cfg.Blob.B2Bucket)
}
