package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chazu/michelangelo/pkg/csg"
	"github.com/chazu/michelangelo/pkg/kernel/sdfx"
	"github.com/chazu/michelangelo/pkg/raymarch"
	"github.com/chewxy/math32"
	"gopkg.in/yaml.v3"
)

// Config holds the host settings. A YAML file only needs the keys it
// changes; everything else keeps its default.
type Config struct {
	Mesh   MeshConfig   `yaml:"mesh"`
	Render RenderConfig `yaml:"render"`
}

// MeshConfig controls tessellation.
type MeshConfig struct {
	Cells   int  `yaml:"cells"`
	PerLeaf bool `yaml:"per_leaf"`
}

// RenderConfig controls the preview renderer.
type RenderConfig struct {
	Width      int        `yaml:"width"`
	Height     int        `yaml:"height"`
	MaxSteps   int        `yaml:"max_steps"`
	Epsilon    float32    `yaml:"epsilon"`
	Eye        [3]float32 `yaml:"eye"`
	Target     [3]float32 `yaml:"target"`
	Up         [3]float32 `yaml:"up"`
	FovDegrees float32    `yaml:"fov_degrees"`
	Workers    int        `yaml:"workers"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	p := raymarch.DefaultParams()
	return Config{
		Mesh: MeshConfig{Cells: sdfx.DefaultMeshCells},
		Render: RenderConfig{
			Width:      p.Width,
			Height:     p.Height,
			MaxSteps:   p.MaxSteps,
			Epsilon:    p.Epsilon,
			Eye:        array(p.Eye),
			Target:     array(p.Target),
			Up:         array(p.Up),
			FovDegrees: p.FovY * 180 / math32.Pi,
			Workers:    p.Workers,
		},
	}
}

// LoadConfig reads path over the defaults. Unknown keys are an error so a
// misspelt setting does not silently fall back.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Params converts the settings to renderer parameters.
func (c RenderConfig) Params() raymarch.Params {
	return raymarch.Params{
		Width:    c.Width,
		Height:   c.Height,
		MaxSteps: c.MaxSteps,
		Epsilon:  c.Epsilon,
		Eye:      vec(c.Eye),
		Target:   vec(c.Target),
		Up:       vec(c.Up),
		FovY:     c.FovDegrees * math32.Pi / 180,
		Workers:  c.Workers,
	}
}

func array(v csg.Vec3) [3]float32 { return [3]float32{v.X, v.Y, v.Z} }
func vec(a [3]float32) csg.Vec3 { return csg.Vec3{X: a[0], Y: a[1], Z: a[2]} }
