package engineconfig

import "testing"

func TestResolve_DefaultsWhenNothingSet(t *testing.T) {
	t.Setenv("REPOSYNC_LOCK_TIMEOUT_SECONDS", "")
	t.Setenv("REPOSYNC_MAX_FILE_SIZE_BYTES", "")
	t.Setenv("REPOSYNC_RETRY_CEILING", "")
	t.Setenv("HOME", t.TempDir())

	r := Resolve(Overrides{})
	if r.LockTimeout.Source != SourceDefault {
		t.Fatalf("expected default source, got %s", r.LockTimeout.Source)
	}
	if r.LockTimeoutDuration().Seconds() != 30 {
		t.Fatalf("got %v", r.LockTimeoutDuration())
	}
}

func TestResolve_EnvOverridesDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REPOSYNC_LOCK_TIMEOUT_SECONDS", "10")

	r := Resolve(Overrides{})
	if r.LockTimeout.Source != SourceEnv {
		t.Fatalf("expected env source, got %s", r.LockTimeout.Source)
	}
	if r.LockTimeoutDuration().Seconds() != 10 {
		t.Fatalf("got %v", r.LockTimeoutDuration())
	}
}

func TestResolve_FlagOverridesEverything(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REPOSYNC_LOCK_TIMEOUT_SECONDS", "10")

	r := Resolve(Overrides{LockTimeoutSeconds: 5})
	if r.LockTimeout.Source != SourceFlag {
		t.Fatalf("expected flag source, got %s", r.LockTimeout.Source)
	}
	if r.LockTimeoutDuration().Seconds() != 5 {
		t.Fatalf("got %v", r.LockTimeoutDuration())
	}
}
