package cliconfig

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg.Server.Port != 8761 {
		t.Errorf("expected default port 8761, got %d", cfg.Server.Port)
	}
	if cfg.Store.Driver != "none" {
		t.Errorf("expected default store driver 'none', got %s", cfg.Store.Driver)
	}
	if cfg.Index.Workers != 4 {
		t.Errorf("expected default index.workers 4, got %d", cfg.Index.Workers)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	configContent := `
index:
  parallel: true
  workers: 8
store:
  driver: sqlite
  dsn: "file:index.db"
server:
  port: 9000
`
	os.WriteFile("gridlex.yml", []byte(configContent), 0644)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}
	if !cfg.Index.Parallel {
		t.Error("expected index.parallel to be true")
	}
	if cfg.Index.Workers != 8 {
		t.Errorf("expected index.workers 8, got %d", cfg.Index.Workers)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("expected store.driver 'sqlite', got %s", cfg.Store.Driver)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected server.port 9000, got %d", cfg.Server.Port)
	}
}

func TestLoad_RejectsStoreDriverWithoutDSN(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	os.WriteFile("gridlex.yml", []byte("store:\n  driver: postgres\n"), 0644)

	if _, err := Load(); err == nil {
		t.Error("expected error when store.driver is set without a dsn")
	}
}

func TestLoad_RejectsUnknownStoreDriver(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	os.WriteFile("gridlex.yml", []byte("store:\n  driver: mongo\n  dsn: x\n"), 0644)

	if _, err := Load(); err == nil {
		t.Error("expected error for unsupported store.driver")
	}
}

func TestLoad_ExplicitConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	otherDir := t.TempDir()
	customPath := otherDir + "/custom.yml"
	os.WriteFile(customPath, []byte("server:\n  port: 9100\n"), 0644)

	// A gridlex.yml in the working directory must be ignored in favor of
	// GRIDLEX_CONFIG when it is set.
	os.WriteFile("gridlex.yml", []byte("server:\n  port: 1\n"), 0644)

	os.Setenv("GRIDLEX_CONFIG", customPath)
	defer os.Unsetenv("GRIDLEX_CONFIG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading explicit config path, got %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("expected server.port 9100 from GRIDLEX_CONFIG path, got %d", cfg.Server.Port)
	}
}

func TestDatabaseURL_FromEnvironment(t *testing.T) {
	os.Setenv("GRIDLEX_STORE_DSN", "file:env.db")
	defer os.Unsetenv("GRIDLEX_STORE_DSN")

	if got := DatabaseURL(); got != "file:env.db" {
		t.Errorf("expected dsn from environment, got %s", got)
	}
}
