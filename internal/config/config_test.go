package config

import (
	"os"
	"testing"
)

// unsetenv clears a variable for the test, restoring it afterwards.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"CHESSCALC_STORE", "CHESSCALC_MEASURE", "CHESSCALC_DELTA", "CHESSCALC_DATA_DIR",
	} {
		unsetenv(t, key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Store != "badger" {
		t.Errorf("expected badger default, got %q", cfg.Store)
	}
	if cfg.Measure != 50 {
		t.Errorf("expected measure 50, got %v", cfg.Measure)
	}
	if cfg.Delta != 1e-12 {
		t.Errorf("expected delta 1e-12, got %v", cfg.Delta)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHESSCALC_STORE", "sqlite")
	t.Setenv("CHESSCALC_MEASURE", "40")
	t.Setenv("CHESSCALC_DATA_DIR", "/tmp/chesscalc-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Store != "sqlite" || cfg.Measure != 40 || cfg.DataDir != "/tmp/chesscalc-test" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("UnknownBackend", func(t *testing.T) {
		t.Setenv("CHESSCALC_STORE", "dbm")
		if _, err := Load(); err == nil {
			t.Error("expected error for unknown backend")
		}
	})

	t.Run("NonPositiveMeasure", func(t *testing.T) {
		t.Setenv("CHESSCALC_STORE", "badger")
		t.Setenv("CHESSCALC_MEASURE", "-5")
		if _, err := Load(); err == nil {
			t.Error("expected error for negative measure")
		}
	})
}
