package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultClientID, cfg.Provider.ClientID)
	assert.Equal(t, DefaultScope, cfg.Provider.Scope)
	assert.Equal(t, DefaultCallbackPort, cfg.CallbackPort)
	assert.Empty(t, cfg.Provider.Issuer)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
provider:
  issuer: https://dex.example.com/dex
  clientID: dashboard
  scope: openid email groups
storage:
  dir: /var/lib/og-session
callbackPort: 8765
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://dex.example.com/dex", cfg.Provider.Issuer)
	assert.Equal(t, "dashboard", cfg.Provider.ClientID)
	assert.Equal(t, "openid email groups", cfg.Provider.Scope)
	assert.Equal(t, "/var/lib/og-session", cfg.Storage.Dir)
	assert.Equal(t, 8765, cfg.CallbackPort)
	assert.NoError(t, cfg.Validate())
}

func TestLoadPartialFileAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider:\n  issuer: https://idp.example.com\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultClientID, cfg.Provider.ClientID)
	assert.Equal(t, DefaultScope, cfg.Provider.Scope)
	assert.Equal(t, DefaultCallbackPort, cfg.CallbackPort)
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: [not a map"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "issuer only",
			cfg:  Config{Provider: ProviderConfig{Issuer: "https://idp.example.com"}},
		},
		{
			name: "explicit endpoints",
			cfg: Config{Provider: ProviderConfig{
				AuthorizationEndpoint: "https://idp.example.com/auth",
				TokenEndpoint:         "https://idp.example.com/token",
			}},
		},
		{
			name:    "nothing configured",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name: "authorization endpoint without token endpoint",
			cfg: Config{Provider: ProviderConfig{
				AuthorizationEndpoint: "https://idp.example.com/auth",
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
