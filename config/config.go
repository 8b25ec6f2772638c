package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

// Settings contains everything a scene accepts from a configuration file.
// Unknown keys are rejected at the type level: only these options exist.
type Settings struct {
	Solver struct {
		// VelocityIterations and PositionIterations are the solver pass
		// counts used by every step.
		VelocityIterations int
		PositionIterations int
	}
	Workspace struct {
		// Blocks caps the per-step scratch workspace, in 64 KiB blocks.
		Blocks int
	}
	Gravity struct {
		X float32
		Y float32
		Z float32
	}
}

// Default returns the settings a scene runs with when no file is present.
func Default() Settings {
	s := Settings{}
	s.Solver.VelocityIterations = 8
	s.Solver.PositionIterations = 4
	s.Workspace.Blocks = 16
	s.Gravity.Y = -9.81
	return s
}

// Load reads settings from the TOML file at path, creating the file with
// defaults if it does not yet exist.
func Load(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		data, err = toml.Marshal(s)
		if err != nil {
			return s, fmt.Errorf("encode default settings: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return s, fmt.Errorf("create settings file: %w", err)
		}
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings file: %w", err)
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("decode settings file: %w", err)
	}
	return s, nil
}
