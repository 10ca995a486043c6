package config

import (
	"os"
	"path/filepath"
	"testing"
)

// unsetenv clears key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}

func writeDotEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	return path
}

func TestLoadDotEnv_LoadsValuesAndIgnoresNoise(t *testing.T) {
	unsetenv(t, "A")
	unsetenv(t, "B")
	unsetenv(t, "C")

	path := writeDotEnv(t, `
# comment

A=one
export B=two
C="three"
`)

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}

	for key, want := range map[string]string{"A": "one", "B": "two", "C": "three"} {
		if got := os.Getenv(key); got != want {
			t.Fatalf("%s=%q, want %q", key, got, want)
		}
	}
}

func TestLoadDotEnv_DoesNotOverwriteExistingEnv(t *testing.T) {
	t.Setenv("KEEP", "already")

	if err := loadDotEnv(writeDotEnv(t, "KEEP=fromfile\n")); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}

	if got := os.Getenv("KEEP"); got != "already" {
		t.Fatalf("KEEP=%q, want %q", got, "already")
	}
}

func TestLoadDotEnv_MissingFileIsIgnored(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"PORT", "DB_PATH", "ENV", "LOG_LEVEL", "STORAGE_QUOTA_BYTES", "SEED_EXAMPLES"} {
		unsetenv(t, key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DBPath != "./listprice.db" {
		t.Fatalf("DBPath = %q, want %q", cfg.DBPath, "./listprice.db")
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.StorageQuotaBytes != 5<<20 {
		t.Fatalf("StorageQuotaBytes = %d, want %d", cfg.StorageQuotaBytes, 5<<20)
	}
	if cfg.SeedExamples {
		t.Fatal("SeedExamples = true, want false")
	}
	if !cfg.IsDev() {
		t.Fatal("IsDev() = false, want true")
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("DB_PATH", "/tmp/x.db")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORAGE_QUOTA_BYTES", "1024")
	t.Setenv("SEED_EXAMPLES", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Config{
		Port:              "9090",
		DBPath:            "/tmp/x.db",
		Env:               "production",
		LogLevel:          "debug",
		StorageQuotaBytes: 1024,
		SeedExamples:      true,
	}
	if cfg != want {
		t.Fatalf("Load() = %+v, want %+v", cfg, want)
	}
	if cfg.IsDev() {
		t.Fatal("IsDev() = true, want false")
	}
}

func TestLoad_RejectsBadNumbers(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_QUOTA_BYTES", "lots")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}

	t.Setenv("STORAGE_QUOTA_BYTES", "")
	t.Setenv("SEED_EXAMPLES", "maybe")
	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
}
