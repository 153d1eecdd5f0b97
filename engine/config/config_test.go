package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Default().Validate: %v", err)
	}
	if c.Pipeline.FramesInFlight != DefaultFramesInFlight {
		t.Errorf("frames_in_flight:\nhave %d\nwant %d", c.Pipeline.FramesInFlight, DefaultFramesInFlight)
	}
	if c.Assets.LayoutsDir != DefaultLayoutsDir {
		t.Errorf("layouts_dir:\nhave %q\nwant %q", c.Assets.LayoutsDir, DefaultLayoutsDir)
	}
}

func TestDecode(t *testing.T) {
	in := `
[log]
level = "debug"

[pipeline]
frames_in_flight = 2
frames = 10

[assets]
layouts_dir = "layouts"
watch = true
`
	c, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c.Log.Level != "debug" || c.Pipeline.FramesInFlight != 2 || c.Pipeline.Frames != 10 {
		t.Errorf("Decode: have %+v", c)
	}
	if !c.Assets.Watch || c.Assets.LayoutsDir != "layouts" {
		t.Errorf("assets: have %+v", c.Assets)
	}
	// Unset keys take their defaults.
	if c.Device.BuffersPerFrame != DefaultBuffersPerFrame || c.Assets.FrameFile != DefaultFrameFile {
		t.Errorf("defaults not applied: have %+v", c)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"unknown key", "[log]\ncolour = true\n"},
		{"bad level", "[log]\nlevel = \"loud\"\n"},
		{"too many frames in flight", "[pipeline]\nframes_in_flight = 64\n"},
		{"odd buffer alignment", "[device]\nbuffer_alignment = 48\n"},
		{"negative cache", "[pipeline]\nlayout_cache_size = -1\n"},
		{"syntax", "[log\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.in)); err == nil {
				t.Fatal("have nil error")
			}
		})
	}
}

func TestLoadRoundTrip(t *testing.T) {
	c := Default()
	c.Log.Level = "warn"
	c.Assets.Watch = true

	var buf bytes.Buffer
	if err := c.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "pipeline.toml")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *loaded != *c {
		t.Fatalf("Load:\nhave %+v\nwant %+v", loaded, c)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("Load(missing): have nil error")
	}
}
