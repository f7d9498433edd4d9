package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Output != "table" {
		t.Errorf("Default Output = %q, want %q", cfg.Output, "table")
	}
	if cfg.LedgerPath != ".reposync/ledger.toml" {
		t.Errorf("Default LedgerPath = %q, want %q", cfg.LedgerPath, ".reposync/ledger.toml")
	}
	if cfg.Verbose {
		t.Error("Default Verbose = true, want false")
	}
	if cfg.Strict {
		t.Error("Default Strict = true, want false")
	}
	if cfg.LockTimeoutSeconds != 30 {
		t.Errorf("Default LockTimeoutSeconds = %d, want 30", cfg.LockTimeoutSeconds)
	}
	if cfg.Manifest.RepoPath != ".reposync/repo.toml" {
		t.Errorf("Default Manifest.RepoPath = %q, want %q", cfg.Manifest.RepoPath, ".reposync/repo.toml")
	}
}

func TestMerge(t *testing.T) {
	dst := Default()
	src := &Config{
		Output:     "json",
		LedgerPath: "/custom/ledger.toml",
	}

	result := merge(dst, src)

	if result.Output != "json" {
		t.Errorf("merge Output = %q, want %q", result.Output, "json")
	}
	if result.LedgerPath != "/custom/ledger.toml" {
		t.Errorf("merge LedgerPath = %q, want %q", result.LedgerPath, "/custom/ledger.toml")
	}
	if result.LockTimeoutSeconds != 30 {
		t.Errorf("merge preserved LockTimeoutSeconds = %d, want 30", result.LockTimeoutSeconds)
	}
}

func TestMerge_BooleanOverride(t *testing.T) {
	dst := Default()
	if dst.Strict {
		t.Fatal("Precondition: default Strict should be false")
	}

	src := &Config{Strict: true}
	result := merge(dst, src)

	if !result.Strict {
		t.Error("merge should override Strict to true")
	}
}

func TestMerge_NotSetLeavesDefault(t *testing.T) {
	dst := Default()
	src := &Config{Output: "json"}

	result := merge(dst, src)

	if result.LedgerPath != defaultLedgerPath {
		t.Errorf("merge should leave LedgerPath untouched, got %q", result.LedgerPath)
	}
	if result.Strict {
		t.Error("merge should leave Strict untouched")
	}
}

func TestLoad_AppliesPrecedence(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)

	if err := os.MkdirAll(filepath.Join(home, ".reposync"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(home, ".reposync", "config.yaml"), []byte("output: yaml\nverbose: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("REPOSYNC_CONFIG", filepath.Join(project, ".reposync", "config.yaml"))
	if err := os.MkdirAll(filepath.Join(project, ".reposync"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(project, ".reposync", "config.yaml"), []byte("output: json\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output != "json" {
		t.Errorf("project config should override home config, got Output = %q", cfg.Output)
	}
	if !cfg.Verbose {
		t.Error("home config's Verbose should survive since project config doesn't set it")
	}
}

func TestLoad_EnvOverridesFiles(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REPOSYNC_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("REPOSYNC_OUTPUT", "json")
	t.Setenv("REPOSYNC_STRICT", "1")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output != "json" {
		t.Errorf("Output = %q, want json", cfg.Output)
	}
	if !cfg.Strict {
		t.Error("Strict should be true from REPOSYNC_STRICT=1")
	}
}

func TestLoad_FlagOverridesEverything(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REPOSYNC_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("REPOSYNC_OUTPUT", "json")

	cfg, err := Load(&Config{Output: "table"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output != "table" {
		t.Errorf("flag override Output = %q, want table", cfg.Output)
	}
}

func TestResolve_SourceTracking(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REPOSYNC_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	rc := Resolve("", "", false, false)
	if rc.Output.Source != SourceDefault {
		t.Errorf("Output.Source = %v, want %v", rc.Output.Source, SourceDefault)
	}

	rc = Resolve("json", "", false, false)
	if rc.Output.Source != SourceFlag || rc.Output.Value != "json" {
		t.Errorf("flag-set Output = %+v, want {json SourceFlag}", rc.Output)
	}
}
