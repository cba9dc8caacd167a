package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// MockXDGDirs lets tests control path discovery
type MockXDGDirs struct {
	configPaths []string
	cachePath   string
}

func (m *MockXDGDirs) GetConfigPaths(filename string) []string {
	return m.configPaths
}

func (m *MockXDGDirs) GetCachePath(purpose string) string {
	if m.cachePath != "" {
		return filepath.Join(m.cachePath, purpose)
	}
	return ""
}

func (m *MockXDGDirs) CreateCacheDir(purpose string) error {
	return nil
}

func TestLoadDefaultConfig(t *testing.T) {
	mgr := NewConfigManager()

	config := mgr.GetDefaultConfig()

	if config.Volume < 0.0 || config.Volume > 1.0 {
		t.Errorf("Default volume %f should be between 0.0 and 1.0", config.Volume)
	}

	if config.Transport != "auto" {
		t.Errorf("Default transport should be auto, got %s", config.Transport)
	}

	if config.CacheMaxAgeDays != 7 {
		t.Errorf("Default cache max age should be 7 days, got %d", config.CacheMaxAgeDays)
	}

	if !config.HistoryEnabled {
		t.Error("History should be enabled by default")
	}

	if err := mgr.ValidateConfig(config); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestLoadConfigAutoDiscovery(t *testing.T) {
	mgr := NewConfigManager()

	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "config.json")
	testConfig := &Config{
		Volume:          0.8,
		SongsDir:        "/music/riqs",
		Transport:       "beep",
		CacheMaxAgeDays: 3,
		LogLevel:        "debug",
	}

	configData, err := json.MarshalIndent(testConfig, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal test config: %v", err)
	}
	if err := os.WriteFile(configFile, configData, 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	mgr.xdg = &MockXDGDirs{configPaths: []string{configFile}}

	loadedConfig, err := mgr.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if loadedConfig.Volume != testConfig.Volume {
		t.Errorf("Expected volume %f, got %f", testConfig.Volume, loadedConfig.Volume)
	}
	if loadedConfig.SongsDir != testConfig.SongsDir {
		t.Errorf("Expected songs dir %s, got %s", testConfig.SongsDir, loadedConfig.SongsDir)
	}
	if loadedConfig.Transport != testConfig.Transport {
		t.Errorf("Expected transport %s, got %s", testConfig.Transport, loadedConfig.Transport)
	}
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	mgr := NewConfigManager()
	mgr.xdg = &MockXDGDirs{configPaths: []string{"/nonexistent/config.json"}}

	config, err := mgr.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	defaults := mgr.GetDefaultConfig()
	if config.Volume != defaults.Volume {
		t.Errorf("Expected default volume %f, got %f", defaults.Volume, config.Volume)
	}
	if config.Transport != defaults.Transport {
		t.Errorf("Expected default transport %s, got %s", defaults.Transport, config.Transport)
	}
}

func TestSaveAndReloadConfig(t *testing.T) {
	mgr := NewConfigManager()

	configFile := filepath.Join(t.TempDir(), "nested", "config.json")
	original := &Config{
		Volume:          0.3,
		SongsDir:        "/songs",
		Transport:       "null",
		CacheMaxAgeDays: 1,
		HistoryEnabled:  true,
		LogLevel:        "info",
	}

	if err := mgr.SaveToFile(original, configFile); err != nil {
		t.Fatalf("SaveToFile() failed: %v", err)
	}

	reloaded, err := mgr.LoadFromFile(configFile)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}

	if reloaded.Volume != original.Volume {
		t.Errorf("Expected volume %f, got %f", original.Volume, reloaded.Volume)
	}
	if reloaded.Transport != original.Transport {
		t.Errorf("Expected transport %s, got %s", original.Transport, reloaded.Transport)
	}
	if reloaded.CacheMaxAgeDays != original.CacheMaxAgeDays {
		t.Errorf("Expected cache max age %d, got %d", original.CacheMaxAgeDays, reloaded.CacheMaxAgeDays)
	}
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	mgr := NewConfigManager()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "volume too high",
			mutate:  func(c *Config) { c.Volume = 1.5 },
			wantErr: "volume",
		},
		{
			name:    "volume negative",
			mutate:  func(c *Config) { c.Volume = -0.1 },
			wantErr: "volume",
		},
		{
			name:    "negative cache age",
			mutate:  func(c *Config) { c.CacheMaxAgeDays = -1 },
			wantErr: "cache_max_age_days",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: "log level",
		},
		{
			name:    "bad transport",
			mutate:  func(c *Config) { c.Transport = "pulseaudio" },
			wantErr: "transport",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := mgr.GetDefaultConfig()
			tt.mutate(config)

			err := mgr.ValidateConfig(config)
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	mgr := NewConfigManager()

	t.Setenv("RIQPREVIEW_VOLUME", "0.9")
	t.Setenv("RIQPREVIEW_SONGS_DIR", "/env/songs")
	t.Setenv("RIQPREVIEW_TRANSPORT", "beep")
	t.Setenv("RIQPREVIEW_HISTORY", "false")
	t.Setenv("RIQPREVIEW_LOG_LEVEL", "debug")

	result := mgr.ApplyEnvironmentOverrides(mgr.GetDefaultConfig())

	if result.Volume != 0.9 {
		t.Errorf("Expected volume 0.9, got %f", result.Volume)
	}
	if result.SongsDir != "/env/songs" {
		t.Errorf("Expected songs dir /env/songs, got %s", result.SongsDir)
	}
	if result.Transport != "beep" {
		t.Errorf("Expected transport beep, got %s", result.Transport)
	}
	if result.HistoryEnabled {
		t.Error("Expected history disabled via environment")
	}
	if result.LogLevel != "debug" {
		t.Errorf("Expected log level debug, got %s", result.LogLevel)
	}
}

func TestEnvironmentOverridesIgnoreInvalid(t *testing.T) {
	mgr := NewConfigManager()

	t.Setenv("RIQPREVIEW_VOLUME", "loud")
	t.Setenv("RIQPREVIEW_TRANSPORT", "gramophone")

	base := mgr.GetDefaultConfig()
	result := mgr.ApplyEnvironmentOverrides(base)

	if result.Volume != base.Volume {
		t.Errorf("Invalid volume override should be ignored, got %f", result.Volume)
	}
	if result.Transport != base.Transport {
		t.Errorf("Invalid transport override should be ignored, got %s", result.Transport)
	}
}

func TestResolveLogFilePath(t *testing.T) {
	mgr := NewConfigManager()
	mgr.xdg = &MockXDGDirs{cachePath: "/cache/riqpreview"}

	explicit := mgr.ResolveLogFilePath("/var/log/custom.log")
	if explicit != "/var/log/custom.log" {
		t.Errorf("Explicit filename should pass through, got %s", explicit)
	}

	resolved := mgr.ResolveLogFilePath("")
	if !strings.HasSuffix(resolved, "riqpreview.log") {
		t.Errorf("Empty filename should resolve to cache log path, got %s", resolved)
	}
	if !strings.Contains(resolved, "logs") {
		t.Errorf("Resolved log path should live under the logs cache dir, got %s", resolved)
	}
}

func TestIsValidTransport(t *testing.T) {
	mgr := NewConfigManager()

	for _, transport := range []string{"", "auto", "malgo", "beep", "null"} {
		if !mgr.IsValidTransport(transport) {
			t.Errorf("Transport %q should be valid", transport)
		}
	}

	for _, transport := range []string{"oss", "jack", "Auto"} {
		if mgr.IsValidTransport(transport) {
			t.Errorf("Transport %q should be invalid", transport)
		}
	}
}
