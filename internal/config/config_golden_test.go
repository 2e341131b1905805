package config

import (
	"os"
	"testing"

	"gopkg.in/yaml.v3"
)

// TestConfigDefaultsGoldenFile tests that our defaults match the golden file
func TestConfigDefaultsGoldenFile(t *testing.T) {
	quietLogger()

	goldenData, err := os.ReadFile("testdata/defaults.yaml")
	if err != nil {
		t.Fatalf("Failed to read golden defaults file: %v", err)
	}

	var goldenConfig Config
	if err := yaml.Unmarshal(goldenData, &goldenConfig); err != nil {
		t.Fatalf("Failed to parse golden config: %v", err)
	}

	testConfig := &Config{}
	ApplyDefaults(testConfig)

	if testConfig.Version != goldenConfig.Version {
		t.Errorf("Version mismatch: got %q, want %q", testConfig.Version, goldenConfig.Version)
	}
	if testConfig.Site.Name != goldenConfig.Site.Name {
		t.Errorf("Site.Name mismatch: got %q, want %q", testConfig.Site.Name, goldenConfig.Site.Name)
	}
	if testConfig.Server.Port != goldenConfig.Server.Port {
		t.Errorf("Server.Port mismatch: got %q, want %q", testConfig.Server.Port, goldenConfig.Server.Port)
	}
	if testConfig.Editor.TruncateLength != goldenConfig.Editor.TruncateLength {
		t.Errorf("Editor.TruncateLength mismatch: got %d, want %d",
			testConfig.Editor.TruncateLength, goldenConfig.Editor.TruncateLength)
	}
	if testConfig.Editor.LoadTimeout != goldenConfig.Editor.LoadTimeout {
		t.Errorf("Editor.LoadTimeout mismatch: got %s, want %s",
			testConfig.Editor.LoadTimeout, goldenConfig.Editor.LoadTimeout)
	}
	if testConfig.Backend.Type != goldenConfig.Backend.Type {
		t.Errorf("Backend.Type mismatch: got %q, want %q", testConfig.Backend.Type, goldenConfig.Backend.Type)
	}
	if testConfig.Backend.WatchInterval != goldenConfig.Backend.WatchInterval {
		t.Errorf("Backend.WatchInterval mismatch: got %s, want %s",
			testConfig.Backend.WatchInterval, goldenConfig.Backend.WatchInterval)
	}
	if testConfig.Backend.Compression != goldenConfig.Backend.Compression {
		t.Errorf("Backend.Compression mismatch: got %q, want %q",
			testConfig.Backend.Compression, goldenConfig.Backend.Compression)
	}
	if testConfig.Logging.Format != goldenConfig.Logging.Format {
		t.Errorf("Logging.Format mismatch: got %q, want %q", testConfig.Logging.Format, goldenConfig.Logging.Format)
	}
	if testConfig.Auth.Type != goldenConfig.Auth.Type {
		t.Errorf("Auth.Type mismatch: got %q, want %q", testConfig.Auth.Type, goldenConfig.Auth.Type)
	}
}
