package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesFileWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.toml")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s != Default() {
		t.Fatalf("got %+v, want defaults", s)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("settings file not created: %v", err)
	}

	// The created file round-trips to the same settings.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again != s {
		t.Fatalf("reload mismatch: %+v vs %+v", again, s)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.toml")
	data := []byte("[Solver]\nVelocityIterations = 12\n\n[Gravity]\nY = -1.62\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Solver.VelocityIterations != 12 {
		t.Fatalf("VelocityIterations = %d, want 12", s.Solver.VelocityIterations)
	}
	if s.Gravity.Y != -1.62 {
		t.Fatalf("Gravity.Y = %v, want -1.62", s.Gravity.Y)
	}
	// Keys absent from the file keep their defaults.
	if s.Solver.PositionIterations != Default().Solver.PositionIterations {
		t.Fatalf("PositionIterations = %d, want default", s.Solver.PositionIterations)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.toml")
	if err := os.WriteFile(path, []byte("Solver = {"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected decode error")
	}
}
