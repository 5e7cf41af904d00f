package config_test

import (
	"strings"
	"testing"

	"github.com/mogaika/animbridge/channel"
	"github.com/mogaika/animbridge/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.SanitizeMode() != channel.SanitizeNone {
		t.Errorf("default sanitize mode %v", cfg.SanitizeMode())
	}
	f, err := cfg.Frame()
	if err != nil {
		t.Fatal(err)
	}
	if !f.IsIdentity() {
		t.Error("axis conversion off must yield identity frame")
	}
}

func TestLoadPreset(t *testing.T) {
	preset := `
axis_conversion: true
source_forward: Y
source_up: Z
target_forward: -Z
target_up: Y
bone_scale: 2.5
all_keys: false
frame_start: 10
frame_end: 50
deform_only: true
name_sanitize: ascii-safe
bone_filter: [root, spine]
`
	cfg, err := config.Load(strings.NewReader(preset))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.AxisConversion || cfg.BoneScale != 2.5 {
		t.Errorf("loaded config %+v", cfg)
	}
	if cfg.AllKeys || cfg.FrameStart != 10 || cfg.FrameEnd != 50 {
		t.Errorf("frame range %+v", cfg)
	}
	if cfg.SanitizeMode() != channel.SanitizeASCII {
		t.Errorf("sanitize mode %v", cfg.SanitizeMode())
	}
	if cfg.FilterAll() || len(cfg.BoneFilter) != 2 {
		t.Errorf("bone filter %v", cfg.BoneFilter)
	}
	// Defaults survive partial presets.
	if cfg.LinearUnit != "cm" || cfg.Interp != "linear" {
		t.Errorf("defaults lost: %+v", cfg)
	}
	f, err := cfg.Frame()
	if err != nil {
		t.Fatal(err)
	}
	if f.IsIdentity() || f.Reflection() {
		t.Errorf("axis frame unexpected: %+v", f)
	}
}

func TestValidateRejects(t *testing.T) {
	bad := []func(*config.Config){
		func(c *config.Config) { c.BoneScale = 0 },
		func(c *config.Config) { c.BoneScale = -1 },
		func(c *config.Config) { c.AllKeys = false; c.FrameStart = 10; c.FrameEnd = 5 },
		func(c *config.Config) { c.NameSanitize = "shouty" },
		func(c *config.Config) { c.AxisConversion = true; c.SourceForward = "W" },
	}
	for i, mutate := range bad {
		cfg := config.Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d accepted invalid config", i)
		}
	}
}

func TestEncodingSelection(t *testing.T) {
	defer config.SetEncoding("Windows 1252")

	if err := config.SetEncoding("No Such Encoding"); err == nil {
		t.Error("accepted unknown encoding")
	}
	names := config.ListEncodings()
	if len(names) == 0 {
		t.Fatal("no encodings listed")
	}
	if err := config.SetEncoding(names[0]); err != nil {
		t.Fatal(err)
	}

	if err := config.SetEncoding("Windows 1252"); err != nil {
		t.Fatal(err)
	}
	data, err := config.DecodeLegacyText([]byte("animVersion 1.1;"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "animVersion 1.1;" {
		t.Errorf("ascii text changed: %q", data)
	}
}
