package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"github.com/yacobolo/cssloader"
)

var k = koanf.New(".")

const (
	defaultDir       = "assets/custom/css"
	defaultStateFile = ".cssloader.state.yaml"
)

// loadConfig loads configuration with precedence: flags > env > file > defaults.
// It must be called after cobra parses flags (in PreRunE or RunE).
func loadConfig(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = ".cssloader.yaml"
	}

	if err := loadConfigFromPath(configPath); err != nil {
		return err
	}

	// CLI flags (highest precedence, only flags that were explicitly set)
	if err := k.Load(posflag.Provider(cmd.Flags(), ".", k), nil); err != nil {
		return fmt.Errorf("loading command flags: %w", err)
	}

	return nil
}

// loadConfigFromPath loads configuration from a file and environment variables.
// This is separated from loadConfig to allow testing without a cobra command.
func loadConfigFromPath(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("CSSLOADER_", ".", envKey), nil); err != nil {
		return fmt.Errorf("loading environment variables: %w", err)
	}

	return nil
}

// envKey maps environment variables to config keys. A double underscore
// separates sections and a single one stands for a dash:
//
//	CSSLOADER_BASE_URL          -> base-url
//	CSSLOADER_DETECT__API_PATH  -> detect.api-path
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, "CSSLOADER_"))
	parts := strings.Split(s, "__")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, "_", "-")
	}
	return strings.Join(parts, ".")
}

// buildConfig constructs the library's Config struct from koanf state.
// The enabled flag comes from the config when set there, otherwise from
// the state file.
func buildConfig() (cssloader.Config, error) {
	defaults := cssloader.DefaultConfig()

	audiences, err := buildAudiences()
	if err != nil {
		return cssloader.Config{}, err
	}

	config := cssloader.Config{
		Enabled:           defaults.Enabled,
		BaseDirectory:     getStringWithFallback("dir", "dir", defaultDir),
		BaseURL:           getStringWithFallback("base-url", "base-url", defaults.BaseURL),
		Audiences:         audiences,
		IgnoreFile:        getStringWithFallback("ignore-file", "ignore-file", defaults.IgnoreFile),
		StaffPath:         getStringWithFallback("staff-path", "detect.staff-path", defaults.StaffPath),
		APIPath:           getStringWithFallback("api-path", "detect.api-path", defaults.APIPath),
		DynamicExtensions: defaults.DynamicExtensions,
	}

	if k.Exists("detect.dynamic-extensions") {
		config.DynamicExtensions = k.Strings("detect.dynamic-extensions")
	}

	if k.Exists("enabled") {
		config.Enabled = k.Bool("enabled")
	} else {
		st, err := stateStore().Load()
		if err != nil {
			return cssloader.Config{}, err
		}
		config.Enabled = st.IsEnabled()
	}

	return config, nil
}

// buildAudiences reads the ordered audiences list:
//
//	audiences:
//	  - name: staff
//	    pattern: "(?i)staff"
func buildAudiences() ([]cssloader.AudiencePattern, error) {
	entries := k.Slices("audiences")
	if len(entries) == 0 {
		return cssloader.DefaultAudiences(), nil
	}

	pairs := make([][2]string, 0, len(entries))
	for _, e := range entries {
		pairs = append(pairs, [2]string{e.String("name"), e.String("pattern")})
	}

	audiences, err := cssloader.ParseAudiences(pairs)
	if err != nil {
		return nil, fmt.Errorf("invalid audiences config: %w", err)
	}
	return audiences, nil
}

func stateStore() *cssloader.StateStore {
	return cssloader.NewStateStore(getStringWithFallback("state-file", "state-file", defaultStateFile))
}

// audienceOrder lists the configured audience names in match order.
func audienceOrder(patterns []cssloader.AudiencePattern) []cssloader.Audience {
	order := make([]cssloader.Audience, 0, len(patterns))
	for _, p := range patterns {
		order = append(order, p.Audience)
	}
	return order
}

// getStringWithFallback checks the flag key first, then the config file key, then returns the default.
func getStringWithFallback(flagKey, configKey, defaultVal string) string {
	if v := k.String(flagKey); v != "" {
		return v
	}
	if v := k.String(configKey); v != "" {
		return v
	}
	return defaultVal
}

// getBoolWithFallback checks the flag key first, then the config file key, then returns the default.
func getBoolWithFallback(flagKey, configKey string, defaultVal bool) bool {
	if k.Exists(flagKey) {
		return k.Bool(flagKey)
	}
	if k.Exists(configKey) {
		return k.Bool(configKey)
	}
	return defaultVal
}
