package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DEMO_AUTH", "JWT_TTL", "CORS_ORIGINS", "DB_DSN"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, 3000, cfg.Port)
	assert.False(t, cfg.DemoAuth)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.DBDSN)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("DEMO_AUTH", "true")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("MAX_RETRIES", "not-a-number")

	cfg := Load()

	assert.Equal(t, 8081, cfg.Port)
	assert.True(t, cfg.DemoAuth)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, 3, cfg.MaxRetries, "invalid ints fall back to the default")
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("AGENDAI_TEST_A=from-file\nAGENDAI_TEST_B=\"quoted\"\n"), 0o600))

	t.Setenv("AGENDAI_TEST_A", "from-env")
	os.Unsetenv("AGENDAI_TEST_B")
	t.Cleanup(func() { os.Unsetenv("AGENDAI_TEST_B") })

	require.NoError(t, LoadDotEnv(path))

	assert.Equal(t, "from-env", os.Getenv("AGENDAI_TEST_A"))
	assert.Equal(t, "quoted", os.Getenv("AGENDAI_TEST_B"))
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	assert.Error(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
