package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "LOG_MODE", "LLM_BASE_URL", "LLM_MODEL", "LLM_TIMEOUT_SECONDS", "AZURE_OPENAI_ENDPOINT"} {
		t.Setenv(k, "")
	}
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "https://api.deepseek.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.False(t, cfg.LLM.Azure())
}

func TestLoad_EnvFile(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LLM_TIMEOUT_SECONDS", "")
	os.Unsetenv("PORT")
	os.Unsetenv("LLM_TIMEOUT_SECONDS")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=8088\nLLM_TIMEOUT_SECONDS=20\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "8088", cfg.Port)
	assert.Equal(t, 20*time.Second, cfg.LLM.Timeout)
}

func TestLoad_RejectsNonPositiveTimeout(t *testing.T) {
	t.Setenv("LLM_TIMEOUT_SECONDS", "-5")
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.Error(t, err)
}

func TestLoad_RejectsNonIntegerTimeout(t *testing.T) {
	t.Setenv("LLM_TIMEOUT_SECONDS", "abc")
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_TIMEOUT_SECONDS")
}

func TestEnvKeys(t *testing.T) {
	t.Setenv(CriticKey, "")
	_, err := EnvKeys{}.RequireKey(CriticKey)
	var missing *MissingKeyError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, CriticKey, missing.Name)
	assert.EqualError(t, err, "missing required API key: DEEPSEEK_CRITIC_KEY")

	t.Setenv(CriticKey, " sk-critic ")
	key, err := EnvKeys{}.RequireKey(CriticKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-critic", key)
}

func TestStaticKeys(t *testing.T) {
	keys := StaticKeys{GeneratorKey: "g"}
	v, err := keys.RequireKey(GeneratorKey)
	require.NoError(t, err)
	assert.Equal(t, "g", v)

	_, err = keys.RequireKey(CollaboratorKey)
	assert.Error(t, err)
}
