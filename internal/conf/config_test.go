package conf

import (
	"os"
	"path/filepath"
	"testing"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get current directory: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(originalDir) })

	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Listen != "127.0.0.1:4403" {
		t.Errorf("Expected listen '127.0.0.1:4403', got '%s'", cfg.Listen)
	}
	if cfg.DataDir != "./data" {
		t.Errorf("Expected data_dir './data', got '%s'", cfg.DataDir)
	}
	if cfg.PeriodicSeconds != 60 {
		t.Errorf("Expected periodic_seconds 60, got %d", cfg.PeriodicSeconds)
	}
}

func TestLoadConfig_Success(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "meshdoor.yaml")

	configContent := `data_dir: /var/lib/meshdoor
listen: 0.0.0.0:4403
node_id: "!deadbeef"
admins:
  - "!11111111"
  - "!22222222"
`
	err := os.WriteFile(configPath, []byte(configContent), 0600)
	if err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	chdir(t, tmpDir)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.DataDir != "/var/lib/meshdoor" {
		t.Errorf("Expected data_dir '/var/lib/meshdoor', got '%s'", cfg.DataDir)
	}
	if cfg.Listen != "0.0.0.0:4403" {
		t.Errorf("Expected listen '0.0.0.0:4403', got '%s'", cfg.Listen)
	}
	if cfg.NodeID != "!deadbeef" {
		t.Errorf("Expected node_id '!deadbeef', got '%s'", cfg.NodeID)
	}
	if len(cfg.Admins) != 2 || cfg.Admins[0] != "!11111111" {
		t.Errorf("Expected two admins starting with '!11111111', got %v", cfg.Admins)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig()
	if err == nil {
		t.Error("Expected error for missing config file, got nil")
	}
	if cfg == nil {
		t.Fatal("Expected default config alongside the error")
	}
	if cfg.Listen != "127.0.0.1:4403" {
		t.Errorf("Expected default listen, got '%s'", cfg.Listen)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "meshdoor.yaml")

	invalidYAML := `data_dir: /var/lib/meshdoor
admins: [invalid yaml structure
  missing closing bracket
`
	err := os.WriteFile(configPath, []byte(invalidYAML), 0600)
	if err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	chdir(t, tmpDir)

	_, err = LoadConfig()
	if err == nil {
		t.Error("Expected error for invalid YAML, got nil")
	}
}

func TestLoadConfig_PartialConfigKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "meshdoor.yaml")

	configContent := `node_id: "!0a0b0c0d"
`
	err := os.WriteFile(configPath, []byte(configContent), 0600)
	if err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	chdir(t, tmpDir)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.NodeID != "!0a0b0c0d" {
		t.Errorf("Expected node_id '!0a0b0c0d', got '%s'", cfg.NodeID)
	}
	if cfg.Listen != "127.0.0.1:4403" {
		t.Errorf("Expected default listen, got '%s'", cfg.Listen)
	}
	if cfg.PeriodicSeconds != 60 {
		t.Errorf("Expected default periodic_seconds, got %d", cfg.PeriodicSeconds)
	}
}

func TestLoadConfig_ConfigSubdirectory(t *testing.T) {
	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, "config")
	if err := os.Mkdir(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config directory: %v", err)
	}

	configPath := filepath.Join(configDir, "meshdoor.yaml")
	configContent := `listen: 127.0.0.1:9999
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	chdir(t, tmpDir)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Listen != "127.0.0.1:9999" {
		t.Errorf("Expected listen '127.0.0.1:9999', got '%s'", cfg.Listen)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "meshdoor.yaml")

	configContent := `listen: 127.0.0.1:4403
periodic_seconds: 60
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	chdir(t, tmpDir)

	t.Setenv("MESHDOOR_LISTEN", "0.0.0.0:4404")
	t.Setenv("MESHDOOR_PERIODIC_SECONDS", "30")
	t.Setenv("MESHDOOR_ADMINS", "!11111111, !22222222")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Listen != "0.0.0.0:4404" {
		t.Errorf("Expected env override listen '0.0.0.0:4404', got '%s'", cfg.Listen)
	}
	if cfg.PeriodicSeconds != 30 {
		t.Errorf("Expected env override periodic_seconds 30, got %d", cfg.PeriodicSeconds)
	}
	if len(cfg.Admins) != 2 || cfg.Admins[1] != "!22222222" {
		t.Errorf("Expected admins from env, got %v", cfg.Admins)
	}
}

func TestLoadConfig_EnvEmptyValueIgnored(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("MESHDOOR_LISTEN", "   ")

	cfg, _ := LoadConfig()
	if cfg.Listen != "127.0.0.1:4403" {
		t.Errorf("Expected blank env value to keep default, got '%s'", cfg.Listen)
	}
}
