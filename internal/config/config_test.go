package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		KB:   KBConfig{Path: "testdata/kb/seed.yaml"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "memcached" }, "database.driver"},
		{"unknown source", func(c *Config) { c.KB.Source = "ftp" }, "kb.source"},
		{"file without path", func(c *Config) { c.KB.Path = "" }, "kb.path"},
		{"postgres without dsn", func(c *Config) { c.KB.Source = SourcePostgres }, "kb.postgres.dsn"},
		{"s3 without key", func(c *Config) {
			c.KB.Source = SourceS3
			c.KB.S3.Bucket = "kb"
		}, "kb.s3.bucket"},
		{"negative interval", func(c *Config) { c.KB.ReloadIntervalSec = -1 }, "kb.reload_interval_sec"},
		{"provider without model", func(c *Config) { c.Embedding.Provider = "openai" }, "embedding.model"},
		{"min score above one", func(c *Config) { c.Embedding.MinScore = 1.5 }, "embedding.min_score"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 10 {
		t.Errorf("expected WriteTimeoutSec=10, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.Driver != "redis" {
		t.Errorf("expected Driver=redis, got %q", cfg.Database.Driver)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.KB.Source != SourceFile {
		t.Errorf("expected Source=file, got %q", cfg.KB.Source)
	}
	if cfg.KB.MirrorKeep != 3 {
		t.Errorf("expected MirrorKeep=3, got %d", cfg.KB.MirrorKeep)
	}
	if cfg.Safety.Parallelism != 8 {
		t.Errorf("expected Parallelism=8, got %d", cfg.Safety.Parallelism)
	}
	if cfg.Embedding.MaxBatchSize != 100 {
		t.Errorf("expected MaxBatchSize=100, got %d", cfg.Embedding.MaxBatchSize)
	}
	if cfg.Embedding.MinScore != 0.75 {
		t.Errorf("expected MinScore=0.75, got %v", cfg.Embedding.MinScore)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database:  DatabaseConfig{Driver: "valkey", ReadinessTimeout: 15},
		KB:        KBConfig{Source: SourceS3, MirrorKeep: 5},
		Safety:    SafetyConfig{Parallelism: 2},
		Embedding: EmbeddingConfig{MinScore: 0.9},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Driver != "valkey" {
		t.Errorf("expected Driver=valkey, got %q", cfg.Database.Driver)
	}
	if cfg.KB.Source != SourceS3 || cfg.KB.MirrorKeep != 5 {
		t.Errorf("kb = %+v", cfg.KB)
	}
	if cfg.Safety.Parallelism != 2 {
		t.Errorf("expected Parallelism=2, got %d", cfg.Safety.Parallelism)
	}
	if cfg.Embedding.MinScore != 0.9 {
		t.Errorf("expected MinScore=0.9, got %v", cfg.Embedding.MinScore)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("NUTRISAFE_TEST_PORT", "9090")
	t.Setenv("NUTRISAFE_TEST_EMPTY", "")

	got := string(expandEnvVars([]byte("port: ${NUTRISAFE_TEST_PORT}\nlevel: ${NUTRISAFE_TEST_EMPTY:-info}\nkey: ${NUTRISAFE_TEST_UNSET}")))
	want := "port: 9090\nlevel: info\nkey: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("NUTRISAFE_TEST_DSN", "postgres://kb@localhost/kb")
	path := filepath.Join(t.TempDir(), "test.yaml")
	data := `
http:
  port: 8080
kb:
  source: postgres
  reload_interval_sec: 300
  postgres:
    dsn: ${NUTRISAFE_TEST_DSN}
audit:
  path: ${NUTRISAFE_TEST_AUDIT:-/tmp/verdicts.db}
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.KB.Postgres.DSN != "postgres://kb@localhost/kb" || cfg.KB.ReloadIntervalSec != 300 {
		t.Errorf("kb = %+v", cfg.KB)
	}
	if cfg.Audit.Path != "/tmp/verdicts.db" {
		t.Errorf("audit path = %q", cfg.Audit.Path)
	}
	if cfg.KB.MirrorKeep != 3 {
		t.Error("defaults not applied")
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("http:\n  port: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected read error")
	}
}

func TestLoad_ShippedConfigs(t *testing.T) {
	t.Setenv("NUTRISAFE_API_KEY", "")
	for _, env := range []string{"local", "prod"} {
		t.Run(env, func(t *testing.T) {
			t.Setenv("KB_SOURCE", "")
			if _, err := Load(env); err != nil {
				t.Fatalf("Load(%s): %v", env, err)
			}
		})
	}
}
