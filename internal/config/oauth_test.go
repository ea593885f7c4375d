package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOAuthClient() *OAuthClientConfig {
	return &OAuthClientConfig{
		Installed: OAuthInstalled{
			ClientID:                "test-client-id.apps.googleusercontent.com",
			ProjectID:               "test-project",
			AuthURI:                 "https://accounts.google.com/o/oauth2/auth",
			TokenURI:                "https://oauth2.googleapis.com/token",
			AuthProviderX509CertURL: "https://www.googleapis.com/oauth2/v1/certs",
			ClientSecret:            "test-secret",
			RedirectURIs:            []string{"http://localhost"},
		},
	}
}

func TestValidateOAuthClient(t *testing.T) {
	assert.NoError(t, ValidateOAuthClient(validOAuthClient()))

	missingID := validOAuthClient()
	missingID.Installed.ClientID = ""
	err := ValidateOAuthClient(missingID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")

	badURL := validOAuthClient()
	badURL.Installed.AuthURI = "not-a-valid-url"
	assert.Error(t, ValidateOAuthClient(badURL))

	noRedirects := validOAuthClient()
	noRedirects.Installed.RedirectURIs = nil
	assert.Error(t, ValidateOAuthClient(noRedirects))
}

func TestLoadOAuthClientWithEnv(t *testing.T) {
	dir := t.TempDir()
	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", dir)

	_, err := LoadOAuthClientWithEnv("test")
	assert.Error(t, err)

	content := `{
  "installed": {
    "client_id": "id.apps.googleusercontent.com",
    "project_id": "fieldops",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "auth_provider_x509_cert_url": "https://www.googleapis.com/oauth2/v1/certs",
    "client_secret": "secret",
    "redirect_uris": ["http://localhost"]
  }
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "oauthClient.test.json"), []byte(content), 0600))

	cfg, err := LoadOAuthClientWithEnv("test")
	require.NoError(t, err)
	assert.Equal(t, "fieldops", cfg.Installed.ProjectID)
}

func TestLoadOAuthClientFromPath_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauthClient.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := LoadOAuthClientFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse oauth client file")
}
