package main

import (
	"errors"
	"io"
	"testing"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-md2pdf-server/internal/config"
)

// ---------------------------------------------------------------------------
// TestParseServeFlags - Parsing and usage errors
// ---------------------------------------------------------------------------

func TestParseServeFlags(t *testing.T) {
	t.Parallel()

	f, err := parseServeFlags(cmdServe, []string{
		"-c", "prod", "--addr", ":8080", "-w", "4", "--no-sandbox",
		"--store", "postgres", "--log-format", "json",
	}, io.Discard)
	if err != nil {
		t.Fatalf("parseServeFlags() unexpected error: %v", err)
	}

	if f.config != "prod" || f.addr != ":8080" || f.workers != 4 || !f.noSandbox {
		t.Errorf("parsed flags = %+v", f)
	}
	if !f.changed("store") || f.changed("nats-url") {
		t.Error("changed() should report only flags set on the command line")
	}
}

func TestParseServeFlags_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		command string
		args    []string
	}{
		{"unknown flag", cmdServe, []string{"--bogus"}},
		{"bad int", cmdServe, []string{"--workers", "x"}},
		{"positional", cmdServe, []string{"file.md"}},
		{"json only on doctor", cmdServe, []string{"--json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := parseServeFlags(tt.command, tt.args, io.Discard)
			if !errors.Is(err, ErrUsage) {
				t.Errorf("error = %v, want ErrUsage", err)
			}
		})
	}
}

func TestParseServeFlags_Help(t *testing.T) {
	t.Parallel()

	_, err := parseServeFlags(cmdServe, []string{"--help"}, io.Discard)
	if !errors.Is(err, flag.ErrHelp) {
		t.Errorf("error = %v, want flag.ErrHelp", err)
	}
}

func TestParseServeFlags_DoctorJSON(t *testing.T) {
	t.Parallel()

	f, err := parseServeFlags(cmdDoctor, []string{"--json"}, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.jsonOutput {
		t.Error("--json should be set for doctor")
	}
}

// ---------------------------------------------------------------------------
// TestServeFlags_Apply - Only set flags override
// ---------------------------------------------------------------------------

func TestServeFlags_Apply(t *testing.T) {
	t.Parallel()

	f, err := parseServeFlags(cmdServe, []string{
		"--cors-origin", "*", "--contexts", "3", "--browser-bin", "/usr/bin/chromium",
		"--nats-url", "nats://bus:4222", "--storage", "local", "--log-level", "debug",
	}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Server.Addr = ":9999"
	cfg.Worker.Slots = 6
	f.apply(cfg)

	if cfg.Server.Addr != ":9999" || cfg.Worker.Slots != 6 {
		t.Error("unset flags must not override existing values")
	}
	if cfg.Server.CORSOrigin != "*" || cfg.Engine.Contexts != 3 || cfg.Engine.BrowserBin != "/usr/bin/chromium" {
		t.Errorf("server/engine = %+v %+v", cfg.Server, cfg.Engine)
	}
	if cfg.Broadcast.NATSURL != "nats://bus:4222" || cfg.Storage.Driver != config.StorageLocal || cfg.Log.Level != "debug" {
		t.Errorf("backends/log not applied: %+v %+v %+v", cfg.Broadcast, cfg.Storage, cfg.Log)
	}
}

func TestLoadConfig_FlagFalseOverridesEnvTrue(t *testing.T) {
	t.Parallel()

	f, err := parseServeFlags(cmdServe, []string{"--no-sandbox=false"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	env, _, _ := testEnv(map[string]string{"MD2PDF_NO_SANDBOX": "true"})

	cfg, err := loadConfig(f, env)
	if err != nil {
		t.Fatalf("loadConfig() unexpected error: %v", err)
	}
	if cfg.Engine.NoSandbox {
		t.Error("an explicit --no-sandbox=false must win over the environment")
	}
}
