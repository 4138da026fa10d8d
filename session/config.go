package session

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vsariola/stepsynth/clock"
	"github.com/vsariola/stepsynth/graph"
	"github.com/vsariola/stepsynth/soft"
)

// Config is the configuration file of the player and the renderer. Zero
// values mean defaults.
type Config struct {
	Graph graph.Config      `yaml:"graph"`
	Beats clock.BeatsConfig `yaml:"beats"`
	Soft  soft.Config       `yaml:"soft"`
	// Song is the path of the song to play; empty plays the default song.
	Song string `yaml:"song"`
	// Seed seeds the noise of the noise instruments.
	Seed   uint64       `yaml:"seed"`
	Logger *slog.Logger `yaml:"-"`
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot open config: %w", err)
	}
	defer f.Close()
	return ReadConfig(f)
}

func ReadConfig(r io.Reader) (Config, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read config: %w", err)
	}
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("cannot parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Graph.DecayInterval < 0 || c.Beats.Interval < 0 || c.Beats.LookAhead < 0 {
		return fmt.Errorf("durations should not be negative")
	}
	if c.Beats.LookAhead > 0 && c.Beats.Interval > 0 && c.Beats.LookAhead <= c.Beats.Interval {
		return fmt.Errorf("lookAhead %v should exceed interval %v", c.Beats.LookAhead, c.Beats.Interval)
	}
	if c.Graph.DecayThreshold < 0 || c.Graph.DecayThreshold >= 1 {
		return fmt.Errorf("decayThreshold should be in [0, 1), got %v", c.Graph.DecayThreshold)
	}
	if c.Soft.SampleRate < 0 {
		return fmt.Errorf("sampleRate should not be negative, got %v", c.Soft.SampleRate)
	}
	return nil
}
