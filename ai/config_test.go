package ai

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackendConfigDefaults(t *testing.T) {
	cfg := NewBackendConfig(ProviderSiliconFlow, "BAAI/bge-large-zh-v1.5")

	assert.Equal(t, 32, cfg.BatchSize)
	assert.Equal(t, 8192, cfg.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestNormalizeFillsProviderDefaults(t *testing.T) {
	cfg := NewBackendConfig("SiliconFlow", "BAAI/bge-large-zh-v1.5")
	cfg.Normalize()

	assert.Equal(t, ProviderSiliconFlow, cfg.Provider)
	assert.Equal(t, "https://api.siliconflow.cn/v1", cfg.BaseURL)
}

func TestNormalizeAppendsV1Suffix(t *testing.T) {
	cfg := NewBackendConfig(ProviderOpenAI, "text-embedding-3-small",
		WithBaseURL("https://proxy.internal/"))
	cfg.Normalize()

	assert.Equal(t, "https://proxy.internal/v1", cfg.BaseURL)
}

func TestNormalizeLeavesLocalURLAlone(t *testing.T) {
	cfg := NewBackendConfig(ProviderLocal, "bge-m3")
	cfg.Normalize()

	assert.Equal(t, "http://localhost:11434", cfg.BaseURL)
}

func TestValidateRequiresModelName(t *testing.T) {
	cfg := NewBackendConfig(ProviderLocal, "")

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingModelName))
}

func TestValidateRequiresAPIKeyForRemote(t *testing.T) {
	cfg := NewBackendConfig(ProviderOpenAI, "text-embedding-3-small")

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingAPIKey))

	cfg2 := NewBackendConfig(ProviderOpenAI, "text-embedding-3-small",
		WithAPIKey("sk-test"))
	assert.NoError(t, cfg2.Validate())
}

func TestValidateLocalWithoutKey(t *testing.T) {
	cfg := NewBackendConfig(ProviderLocal, "bge-m3")
	assert.NoError(t, cfg.Validate())
}
