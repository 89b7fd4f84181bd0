package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nruntime_url: http://gpu:7000\ndevice: cuda\npreload: true\ncors_origins: [\"http://a\", \"http://b\"]\n")
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Addr != ":9999" || cfg.RuntimeURL != "http://gpu:7000" || cfg.Device != "cuda" || !cfg.Preload || len(cfg.CORSOrigins) != 2 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","runtime_url":"http://r","runtime_timeout_seconds":42,"device":"cpu","status_command":"rocm-smi"}`)
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Addr != ":7070" || cfg.RuntimeURL != "http://r" || cfg.RuntimeTimeoutSeconds != 42 || cfg.Device != "cpu" || cfg.StatusCommand != "rocm-smi" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nruntime_url=\"http://x\"\nmax_body_bytes=2048\nlog_format=\"json\"\n")
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Addr != ":8081" || cfg.RuntimeURL != "http://x" || cfg.MaxBodyBytes != 2048 || cfg.LogFormat != "json" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil { t.Fatalf("expected error on empty path") }
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil { t.Fatalf("expected unsupported extension error") }
}

func TestWithDefaults(t *testing.T) {
	cfg := Config{Addr: ":1"}.WithDefaults()
	d := Defaults()
	if cfg.Addr != ":1" {
		t.Fatalf("explicit addr overwritten: %q", cfg.Addr)
	}
	if cfg.Device != d.Device || cfg.StatusCommand != d.StatusCommand || cfg.MaxBodyBytes != d.MaxBodyBytes || cfg.RuntimeTimeoutSeconds != d.RuntimeTimeoutSeconds {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if err := (Config{Device: "tpu"}).Validate(); err == nil {
		t.Fatalf("expected invalid device error")
	}
	if err := (Config{LogFormat: "xml"}).Validate(); err == nil {
		t.Fatalf("expected invalid log format error")
	}
}

func TestApplyEnvOverridesFile(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nruntime_url: http://file\ndevice: cuda\n")
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	t.Setenv("DIFFUSIOND_RUNTIME_URL", "http://env")
	t.Setenv("DIFFUSIOND_PRELOAD", "true")
	t.Setenv("DIFFUSIOND_CORS_ORIGINS", "http://a,http://b")
	if err := ApplyEnv(&cfg); err != nil { t.Fatalf("env: %v", err) }
	if cfg.RuntimeURL != "http://env" {
		t.Fatalf("runtime_url not overridden: %q", cfg.RuntimeURL)
	}
	if cfg.Addr != ":9999" || cfg.Device != "cuda" {
		t.Fatalf("unset env clobbered file values: %+v", cfg)
	}
	if !cfg.Preload || len(cfg.CORSOrigins) != 2 {
		t.Fatalf("unexpected env overlay: %+v", cfg)
	}
}

func TestApplyEnvBadValue(t *testing.T) {
	t.Setenv("DIFFUSIOND_MAX_BODY_BYTES", "lots")
	var cfg Config
	if err := ApplyEnv(&cfg); err == nil {
		t.Fatalf("expected parse error for non-numeric max_body_bytes")
	}
}
