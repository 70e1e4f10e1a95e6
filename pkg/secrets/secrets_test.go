package secrets

import (
	"context"
	"testing"

	"emotion-character-demo/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultDisabledFallsBackToEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")

	m, err := NewVaultManager(VaultConfig{Enabled: false}, logger.Nop())
	require.NoError(t, err)

	v, err := m.GetSecret(context.Background(), "gemini-api.key")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)

	_, err = m.GetSecret(context.Background(), "MISSING_SECRET_FOR_TEST")
	assert.ErrorIs(t, err, ErrSecretNotFound)
	assert.Equal(t, "fallback", m.GetSecretWithDefault(context.Background(), "MISSING_SECRET_FOR_TEST", "fallback"))
}

func TestVaultEnabledRequiresAddressAndToken(t *testing.T) {
	_, err := NewVaultManager(VaultConfig{Enabled: true}, logger.Nop())
	assert.ErrorIs(t, err, ErrNoVaultAddress)

	_, err = NewVaultManager(VaultConfig{Enabled: true, Address: "http://127.0.0.1:8200"}, logger.Nop())
	assert.ErrorIs(t, err, ErrNoVaultToken)
}

func TestStaticManager(t *testing.T) {
	m := StaticManager{"GEMINI_API_KEY": "static"}
	v, err := m.GetSecret(context.Background(), "GEMINI_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "static", v)
}
