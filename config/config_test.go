package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadAppliesDefaultsAndOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Settings-default.toml", `
[device]
backend = "cpu"
global_work_size = 128

[work]
address = "11433454602339013530"
wallet_url = "http://localhost:8125"
target_deadline = 1000000000000000
`)
	writeFile(t, dir, "Settings.toml", `
[work]
target_deadline = 500000000000000
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Device.GlobalWorkSize != 128 {
		t.Fatalf("GlobalWorkSize = %d, want 128", cfg.Device.GlobalWorkSize)
	}
	if cfg.Work.TargetDeadlineSeconds != 500000000000000 {
		t.Fatalf("TargetDeadlineSeconds = %d, override not applied", cfg.Work.TargetDeadlineSeconds)
	}
	if cfg.Work.SubmissionRetryNumber != 3 {
		t.Fatalf("SubmissionRetryNumber default not applied: %d", cfg.Work.SubmissionRetryNumber)
	}
	if cfg.Observability.MetricsListenAddress == "" {
		t.Fatalf("expected default metrics listen address")
	}
}

func TestLoadRejectsMissingWalletURL(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Settings-default.toml", `
[device]
global_work_size = 64

[work]
address = 1
`)
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected validation error for missing wallet_url")
	}
}

func TestLoadRejectsZeroGlobalWorkSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Settings-default.toml", `
[device]
global_work_size = 0

[work]
address = 1
wallet_url = "http://localhost:8125"
`)
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected validation error for zero global_work_size")
	}
}
