package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yacobolo/cssloader"
)

// resetKoanf creates a fresh koanf instance for each test and points the
// state file into a temporary directory.
func resetKoanf(t *testing.T) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	k = koanf.New(".")
	require.NoError(t, k.Set("state-file", filepath.Join(t.TempDir(), "state.yaml")))
}

func patternStrings(audiences []cssloader.AudiencePattern) map[cssloader.Audience]string {
	out := make(map[cssloader.Audience]string, len(audiences))
	for _, a := range audiences {
		out[a.Audience] = a.Pattern.String()
	}
	return out
}

func TestConfigFileLoading(t *testing.T) {
	resetKoanf(t)

	dir := t.TempDir()
	configPath := filepath.Join(dir, ".cssloader.yaml")
	configContent := `
enabled: false
dir: /srv/www/assets/css
base-url: /static/css
ignore-file: .skip

audiences:
  - name: agent
    pattern: "^agent-"
  - name: client
    pattern: "(?i)portal"

detect:
  staff-path: /admin/
  api-path: /rest/
  dynamic-extensions: ["", ".aspx"]
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))
	require.NoError(t, loadConfigFromPath(configPath))

	config, err := buildConfig()
	require.NoError(t, err)

	assert.False(t, config.Enabled)
	assert.Equal(t, "/srv/www/assets/css", config.BaseDirectory)
	assert.Equal(t, "/static/css", config.BaseURL)
	assert.Equal(t, ".skip", config.IgnoreFile)
	assert.Equal(t, "/admin/", config.StaffPath)
	assert.Equal(t, "/rest/", config.APIPath)
	assert.Equal(t, []string{"", ".aspx"}, config.DynamicExtensions)

	require.Len(t, config.Audiences, 2)
	assert.Equal(t, cssloader.Audience("agent"), config.Audiences[0].Audience, "order is preserved")
	assert.Equal(t, map[cssloader.Audience]string{
		"agent":  "^agent-",
		"client": "(?i)portal",
	}, patternStrings(config.Audiences))
}

func TestConfigFileNotFound_UsesDefaults(t *testing.T) {
	resetKoanf(t)

	require.NoError(t, loadConfigFromPath("/nonexistent/.cssloader.yaml"))

	config, err := buildConfig()
	require.NoError(t, err)

	defaults := cssloader.DefaultConfig()
	assert.True(t, config.Enabled)
	assert.Equal(t, defaultDir, config.BaseDirectory)
	assert.Equal(t, defaults.BaseURL, config.BaseURL)
	assert.Equal(t, defaults.IgnoreFile, config.IgnoreFile)
	assert.Equal(t, defaults.StaffPath, config.StaffPath)
	assert.Equal(t, defaults.APIPath, config.APIPath)
	assert.Equal(t, defaults.DynamicExtensions, config.DynamicExtensions)
	assert.Equal(t, patternStrings(cssloader.DefaultAudiences()), patternStrings(config.Audiences))
}

func TestDefaultConfigFileMatchesDefaults(t *testing.T) {
	resetKoanf(t)

	path := filepath.Join(t.TempDir(), ".cssloader.yaml")
	require.NoError(t, writeDefaultConfig(path, false))
	require.NoError(t, loadConfigFromPath(path))

	fromFile, err := buildConfig()
	require.NoError(t, err)

	resetKoanf(t)
	builtin, err := buildConfig()
	require.NoError(t, err)

	assert.Equal(t, builtin.BaseDirectory, fromFile.BaseDirectory)
	assert.Equal(t, builtin.BaseURL, fromFile.BaseURL)
	assert.Equal(t, builtin.IgnoreFile, fromFile.IgnoreFile)
	assert.Equal(t, builtin.StaffPath, fromFile.StaffPath)
	assert.Equal(t, builtin.APIPath, fromFile.APIPath)
	assert.Equal(t, builtin.DynamicExtensions, fromFile.DynamicExtensions)
	assert.Equal(t, patternStrings(builtin.Audiences), patternStrings(fromFile.Audiences))

	assert.Error(t, writeDefaultConfig(path, false), "existing file is kept")
	assert.NoError(t, writeDefaultConfig(path, true))
}

func TestEnvVarOverridesConfigFile(t *testing.T) {
	resetKoanf(t)

	dir := t.TempDir()
	configPath := filepath.Join(dir, ".cssloader.yaml")
	configContent := `
base-url: /from-file
detect:
  api-path: /file-api/
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

	t.Setenv("CSSLOADER_BASE_URL", "/from-env")
	t.Setenv("CSSLOADER_DETECT__API_PATH", "/env-api/")
	t.Setenv("CSSLOADER_ENABLED", "false")

	require.NoError(t, loadConfigFromPath(configPath))

	config, err := buildConfig()
	require.NoError(t, err)
	assert.Equal(t, "/from-env", config.BaseURL)
	assert.Equal(t, "/env-api/", config.APIPath)
	assert.False(t, config.Enabled)
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"CSSLOADER_ENABLED":                    "enabled",
		"CSSLOADER_BASE_URL":                   "base-url",
		"CSSLOADER_DETECT__STAFF_PATH":         "detect.staff-path",
		"CSSLOADER_DETECT__DYNAMIC_EXTENSIONS": "detect.dynamic-extensions",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestBuildConfig_EnabledFromStateFile(t *testing.T) {
	resetKoanf(t)

	st := cssloader.State{}
	st.SetEnabled(false)
	require.NoError(t, stateStore().Save(st))

	config, err := buildConfig()
	require.NoError(t, err)
	assert.False(t, config.Enabled)

	// Explicit config wins over the state file
	require.NoError(t, k.Set("enabled", true))
	config, err = buildConfig()
	require.NoError(t, err)
	assert.True(t, config.Enabled)
}

func TestBuildConfig_InvalidAudiences(t *testing.T) {
	resetKoanf(t)

	configPath := filepath.Join(t.TempDir(), ".cssloader.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
audiences:
  - name: staff
    pattern: "(unclosed"
`), 0o644))
	require.NoError(t, loadConfigFromPath(configPath))

	_, err := buildConfig()
	assert.ErrorContains(t, err, "invalid audiences config")
}

func TestGetWithFallback(t *testing.T) {
	resetKoanf(t)
	require.NoError(t, k.Set("list.output-format", "json"))
	require.NoError(t, k.Set("verbose", true))

	assert.Equal(t, "json", getStringWithFallback("output-format", "list.output-format", ""))
	assert.Equal(t, "x", getStringWithFallback("missing", "also-missing", "x"))
	assert.True(t, getBoolWithFallback("verbose", "verbose", false))
	assert.True(t, getBoolWithFallback("missing", "missing", true))
}
