package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Listener.PollInterval != 400*time.Millisecond {
		t.Errorf("listener.poll_interval = %v", cfg.Listener.PollInterval)
	}
	if cfg.Listener.BlockRetryDelay != 3*time.Second {
		t.Errorf("listener.block_retry_delay = %v", cfg.Listener.BlockRetryDelay)
	}
	if cfg.Oracle.RefreshInterval != 10*time.Second {
		t.Errorf("oracle.refresh_interval = %v", cfg.Oracle.RefreshInterval)
	}
	if cfg.AutoSell.PollInterval != 500*time.Millisecond {
		t.Errorf("autosell.poll_interval = %v", cfg.AutoSell.PollInterval)
	}
	if cfg.Log.Level != "info" || cfg.Metrics.Addr != ":9090" {
		t.Errorf("log.level = %q, metrics.addr = %q", cfg.Log.Level, cfg.Metrics.Addr)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := writeConfig(t, `
rpc:
  http_endpoint: http://node:8899
  ws_endpoint: ws://node:8900
storage:
  backend: postgres
  postgres_dsn: postgres://file
listener:
  start_slot: 250000000
  resume: true
  follow_tip: true
  poll_interval: 1s
autosell:
  keys_file: /etc/keys.json
`)
	t.Setenv("STORAGE_POSTGRES_DSN", "postgres://env")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.RPC.HTTPEndpoint != "http://node:8899" {
		t.Errorf("rpc.http_endpoint = %q", cfg.RPC.HTTPEndpoint)
	}
	if cfg.Storage.PostgresDSN != "postgres://env" {
		t.Errorf("env should override file, got %q", cfg.Storage.PostgresDSN)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
	if cfg.Listener.StartSlot != 250000000 || !cfg.Listener.Resume || !cfg.Listener.FollowTip {
		t.Errorf("listener = %+v", cfg.Listener)
	}
	if cfg.Listener.PollInterval != time.Second {
		t.Errorf("listener.poll_interval = %v", cfg.Listener.PollInterval)
	}
	if cfg.AutoSell.KeysFile != "/etc/keys.json" {
		t.Errorf("autosell.keys_file = %q", cfg.AutoSell.KeysFile)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Log:     LogConfig{Level: "info", Format: "text"},
			RPC:     RPCConfig{HTTPEndpoint: "http://node", Commitment: "confirmed"},
			Storage: StorageConfig{Backend: BackendMemory},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid memory", func(c *Config) {}, false},
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = BackendPostgres }, true},
		{"postgres with dsn", func(c *Config) { c.Storage.Backend = BackendPostgres; c.Storage.PostgresDSN = "postgres://x" }, false},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "mysql" }, true},
		{"missing endpoint", func(c *Config) { c.RPC.HTTPEndpoint = "" }, true},
		{"negative start slot", func(c *Config) { c.Listener.StartSlot = -1 }, true},
		{"follow tip without ws", func(c *Config) { c.Listener.FollowTip = true }, true},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, true},
		{"finalized commitment", func(c *Config) { c.RPC.Commitment = "finalized" }, false},
		{"processed commitment", func(c *Config) { c.RPC.Commitment = "processed" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_OverridesBeforeValidate(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("STORAGE_POSTGRES_DSN", "")

	// postgres without a DSN fails validation unless overridden
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected validation error for postgres backend without dsn")
	}

	cfg, err := Load(t.TempDir(), UseMemory, func(c *Config) { c.Metrics.Addr = "" })
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Backend != BackendMemory || cfg.Metrics.Addr != "" {
		t.Errorf("overrides not applied: %+v %+v", cfg.Storage, cfg.Metrics)
	}
}
