// Package config turns an optional on-disk YAML file into concrete
// synthesizer construction parameters, the same shape the teacher's
// internal/config package uses to turn a reverb flag string into a
// comb.Reverber strategy.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Synth is the subset of Synthesizer construction/runtime parameters a
// companion config file may override: everything else (which soundfont,
// which song) stays a command-line argument per §6, since those change
// every run and do not belong in a persisted file.
type Synth struct {
	SampleRate float64 `yaml:"sample_rate"`
	Voices     int     `yaml:"voices"`
	BankMode   string  `yaml:"bank_mode"` // "gm" (default), "gs", "xg"
	Volume     float64 `yaml:"volume"`
}

// Default returns the configuration a freshly started sfplay uses absent
// a config file: 44100Hz, 64 voices (the spec's default pool size),
// General MIDI bank selection, unity volume.
func Default() Synth {
	return Synth{SampleRate: 44100, Voices: 64, BankMode: "gm", Volume: 1}
}

// Load reads and decodes a YAML config file, starting from Default() so a
// file that only overrides one field leaves the rest untouched.
func Load(path string) (Synth, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
