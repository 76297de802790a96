package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

func TestConfigGetCmd(t *testing.T) {
	_, cleanup := setupTestServicesWith()
	defer cleanup()

	out, err := execute("config", "get", "answer.top_k")
	require.NoError(t, err)
	assert.Equal(t, "4\n", out)

	out, err = execute("config", "get")
	require.NoError(t, err)
	assert.Contains(t, out, "answer.top_k = 4")

	_, err = execute("config", "get", "llm.model")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfigSetCmd_TypedValues(t *testing.T) {
	ts, cleanup := setupTestServicesWith()
	defer cleanup()

	_, err := execute("config", "set", "answer.top_k", "6")
	require.NoError(t, err)
	assert.Equal(t, int64(6), ts.config.data["answer.top_k"])

	_, err = execute("config", "set", "llm.temperature", "0.1")
	require.NoError(t, err)
	assert.Equal(t, 0.1, ts.config.data["llm.temperature"])

	_, err = execute("config", "set", "embedding.provider", "ollama")
	require.NoError(t, err)
	assert.Equal(t, "ollama", ts.config.data["embedding.provider"])

	out, err := execute("config", "set", "monitor.tickers", "ABCD, WXYZ")
	require.NoError(t, err)
	assert.Equal(t, []string{"ABCD", "WXYZ"}, ts.config.data["monitor.tickers"])
	assert.Contains(t, out, "monitor.tickers = ABCD,WXYZ")

	_, err = execute("config", "set", "registry.ciks.ABCD", "1234567")
	require.NoError(t, err)
	assert.Equal(t, int64(1234567), ts.config.data["registry.ciks.ABCD"])
}

func TestConfigSetCmd_UnknownKey(t *testing.T) {
	ts, cleanup := setupTestServicesWith()
	defer cleanup()

	_, err := execute("config", "set", "answer.topk", "6")
	assert.ErrorIs(t, err, domain.ErrConfig)
	assert.Equal(t, 0, ts.config.saved)

	_, err = execute("config", "set", "embedding.api_key", "sk-secret")
	assert.ErrorIs(t, err, domain.ErrConfig, "keys are never stored in the file")
}

func TestConfigPathCmd(t *testing.T) {
	_, cleanup := setupTestServicesWith()
	defer cleanup()

	out, err := execute("config", "path")
	require.NoError(t, err)
	assert.Equal(t, "/home/test/.filingqa/config.toml\n", out)
}

func TestConfigCheckCmd(t *testing.T) {
	_, cleanup := setupTestServicesWith()
	defer cleanup()

	out, err := execute("config", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ configuration")
	assert.Contains(t, out, "✓ llm (openai)")
}

func TestConfigCheckCmd_ProviderDown(t *testing.T) {
	_, cleanup := setupTestServicesWith()
	defer cleanup()
	services.Check = func(context.Context) []ProviderCheck {
		return []ProviderCheck{{Name: "embedding (ollama)", Err: domain.ErrUnavailable}}
	}

	out, err := execute("config", "check")
	require.Error(t, err)
	assert.Contains(t, out, "✗ embedding (ollama)")
}

func TestConfigCheckCmd_InvalidConfig(t *testing.T) {
	_, cleanup := setupTestServicesWith()
	defer cleanup()
	SetServiceFactory(func(context.Context) (*Services, error) {
		return nil, errors.Join(domain.ErrConfig, errFactory)
	})

	out, err := execute("config", "check")
	assert.ErrorIs(t, err, domain.ErrConfig)
	assert.Contains(t, out, "✗ configuration")
}

func TestKnownKeys(t *testing.T) {
	keys, err := knownKeys()
	require.NoError(t, err)
	for _, k := range []string{"registry.user_agent", "storage.data_dir", "chunking.overlap", "embedding.api_key_env", "answer.cache_ttl", "monitor.document_types"} {
		assert.True(t, keys[k], k)
	}
	assert.False(t, keys["llm.api_key"])
}
