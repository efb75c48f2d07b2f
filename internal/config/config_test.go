package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindConfig_Explicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	os.WriteFile(path, []byte("work_dir: "+dir+"\n"), 0600)

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig(%q) error: %v", path, err)
	}
	if got != path {
		t.Errorf("FindConfig(%q) = %q, want %q", path, got, path)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	_, err := FindConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("FindConfig with missing explicit path should error")
	}
}

func TestFindConfig_CWD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("work_dir: "+dir+"\n"), 0600)

	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	got, err := FindConfig("")
	if err != nil {
		t.Fatalf("FindConfig(\"\") error: %v", err)
	}
	if got != "config.yaml" {
		t.Errorf("FindConfig(\"\") = %q, want %q", got, "config.yaml")
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("work_dir: ${ARALIYA_TEST_WORKDIR}\n"), 0600)
	os.Setenv("ARALIYA_TEST_WORKDIR", dir)
	defer os.Unsetenv("ARALIYA_TEST_WORKDIR")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.WorkDir != dir {
		t.Errorf("WorkDir = %q, want %q", cfg.WorkDir, dir)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("work_dir: "+dir+"\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Socket.Path != filepath.Join(dir, "araliya.sock") {
		t.Errorf("Socket.Path = %q, want %q", cfg.Socket.Path, filepath.Join(dir, "araliya.sock"))
	}
	if cfg.Bus.Buffer != 64 {
		t.Errorf("Bus.Buffer = %d, want 64", cfg.Bus.Buffer)
	}
	if cfg.Bus.ControlBuffer != 32 {
		t.Errorf("Bus.ControlBuffer = %d, want 32", cfg.Bus.ControlBuffer)
	}
	if len(cfg.Handlers) == 0 {
		t.Error("Handlers default should not be empty")
	}
}

func TestLoad_CustomHandlerList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("work_dir: "+dir+"\nhandlers:\n  - echo\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(cfg.Handlers) != 1 || cfg.Handlers[0] != "echo" {
		t.Errorf("Handlers = %v, want [echo]", cfg.Handlers)
	}
}

func TestValidate_RejectsOutOfRangePortWhenListenEnabled(t *testing.T) {
	cfg := Default()
	cfg.Listen.Enabled = true
	cfg.Listen.Port = 70000

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() error = nil, want error for out-of-range port")
	}
}

func TestValidate_IgnoresPortWhenListenDisabled(t *testing.T) {
	cfg := Default()
	cfg.Listen.Enabled = false
	cfg.Listen.Port = 70000

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil (listen disabled)", err)
	}
}

func TestValidate_RejectsUnknownHandler(t *testing.T) {
	cfg := Default()
	cfg.Handlers = []string{"not-a-real-handler"}

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() error = nil, want error for unknown handler")
	}
}

func TestValidate_RejectsNonPositiveBusBuffers(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
	}{
		{"bus buffer", func(c *Config) { c.Bus.Buffer = 0 }},
		{"control buffer", func(c *Config) { c.Bus.ControlBuffer = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() error = nil, want error")
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"", false},
		{"info", false},
		{"TRACE", false},
		{"debug", false},
		{"warn", false},
		{"error", false},
		{"nonsense", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseLogLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}
}

func TestDefault_PassesValidation(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default() failed Validate(): %v", err)
	}
}
