// Package config holds the conversion run configuration: one immutable
// struct validated once at orchestrator entry and passed through the
// pipeline. Presets load from yaml.
package config

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/animbridge/axisframe"
	"github.com/mogaika/animbridge/channel"
)

type Config struct {
	// Axis conversion between the host scene convention and the clip
	// convention. Disabled means identity pass-through.
	AxisConversion bool   `yaml:"axis_conversion"`
	SourceForward  string `yaml:"source_forward"`
	SourceUp       string `yaml:"source_up"`
	TargetForward  string `yaml:"target_forward"`
	TargetUp       string `yaml:"target_up"`
	// MirrorX composes the canonical reflection into the axis frame.
	MirrorX bool `yaml:"mirror_x"`

	// BakeWorldTransform replaces local samples with full world-space
	// motion per frame.
	BakeWorldTransform bool `yaml:"bake_world_transform"`

	// BoneScale uniformly scales bone translations (and baked scale).
	BoneScale float64 `yaml:"bone_scale"`

	// AllKeys derives the frame range from the union of keyed frames
	// instead of FrameStart/FrameEnd.
	AllKeys    bool `yaml:"all_keys"`
	FrameStart int  `yaml:"frame_start"`
	FrameEnd   int  `yaml:"frame_end"`
	// FrameOffset shifts imported keys by a fixed frame count.
	FrameOffset int `yaml:"frame_offset"`

	DeformOnly   bool     `yaml:"deform_only"`
	NameSanitize string   `yaml:"name_sanitize"`
	BoneFilter   []string `yaml:"bone_filter"`

	LinearUnit  string `yaml:"linear_unit"`
	AngularUnit string `yaml:"angular_unit"`

	// Interp is the tangent tag stamped on every exported key.
	Interp string `yaml:"interp"`

	Verbose bool `yaml:"verbose"`
}

func Default() Config {
	return Config{
		SourceForward: "Y",
		SourceUp:      "Z",
		TargetForward: "-Z",
		TargetUp:      "Y",
		BoneScale:     1,
		AllKeys:       true,
		NameSanitize:  "none",
		LinearUnit:    "cm",
		AngularUnit:   "deg",
		Interp:        "linear",
	}
}

func Load(r io.Reader) (Config, error) {
	cfg := Default()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "Failed to decode config yaml")
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.BoneScale <= 0 {
		return errors.Errorf("Bone scale %v must be positive", c.BoneScale)
	}
	if !c.AllKeys && c.FrameEnd < c.FrameStart {
		return errors.Errorf("Frame range %d..%d is inverted", c.FrameStart, c.FrameEnd)
	}
	if _, ok := channel.ParseSanitizeMode(c.NameSanitize); !ok {
		return errors.Errorf("Unknown name sanitize mode %q", c.NameSanitize)
	}
	if _, err := c.Frame(); err != nil {
		return err
	}
	return nil
}

// SanitizeMode assumes Validate has already accepted the config.
func (c *Config) SanitizeMode() channel.SanitizeMode {
	m, _ := channel.ParseSanitizeMode(c.NameSanitize)
	return m
}

// Frame builds the configured axis conversion frame. Identity when
// conversion is off.
func (c *Config) Frame() (axisframe.Frame, error) {
	if !c.AxisConversion {
		return axisframe.Identity(), nil
	}
	f, err := axisframe.FromForwardUp(c.SourceForward, c.SourceUp, c.TargetForward, c.TargetUp)
	if err != nil {
		return axisframe.Frame{}, err
	}
	if c.MirrorX {
		return axisframe.FromMat3(axisframe.MirrorX().Mat3().Mul3(f.Mat3()))
	}
	return f, nil
}

// FilterAll reports whether every node passes the bone filter.
func (c *Config) FilterAll() bool { return len(c.BoneFilter) == 0 }
