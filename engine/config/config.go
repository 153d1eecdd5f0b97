package config

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultLogLevel               = "info"
	DefaultFramesInFlight         = 3
	DefaultLayoutCacheSize        = 256
	DefaultDescriptorSetsPerFrame = 64
	DefaultBuffersPerFrame        = 64
	DefaultBufferAlignment        = 256
	DefaultLayoutsDir             = "assets/layouts"
	DefaultFrameFile              = "assets/frames/forward.toml"
)

var logLevels = []string{"debug", "info", "warn", "error", "fatal"}

type Config struct {
	Log      LogConfig      `toml:"log"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Device   DeviceConfig   `toml:"device"`
	Assets   AssetsConfig   `toml:"assets"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Prefix string `toml:"prefix"`
}

type PipelineConfig struct {
	FramesInFlight  uint32 `toml:"frames_in_flight"`
	LayoutCacheSize int    `toml:"layout_cache_size"`
	// Frames is the number of frames the engine runs before stopping. Zero
	// runs until shutdown.
	Frames uint64 `toml:"frames"`
}

type DeviceConfig struct {
	DescriptorSetsPerFrame uint32 `toml:"descriptor_sets_per_frame"`
	BuffersPerFrame        uint32 `toml:"buffers_per_frame"`
	BufferAlignment        uint32 `toml:"buffer_alignment"`
	NoDefaultSampler       bool   `toml:"no_default_sampler"`
}

type AssetsConfig struct {
	LayoutsDir string `toml:"layouts_dir"`
	FrameFile  string `toml:"frame_file"`
	// Watch reloads the layouts when a file of LayoutsDir changes.
	Watch bool `toml:"watch"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Pipeline.FramesInFlight == 0 {
		c.Pipeline.FramesInFlight = DefaultFramesInFlight
	}
	if c.Pipeline.LayoutCacheSize == 0 {
		c.Pipeline.LayoutCacheSize = DefaultLayoutCacheSize
	}
	if c.Device.DescriptorSetsPerFrame == 0 {
		c.Device.DescriptorSetsPerFrame = DefaultDescriptorSetsPerFrame
	}
	if c.Device.BuffersPerFrame == 0 {
		c.Device.BuffersPerFrame = DefaultBuffersPerFrame
	}
	if c.Device.BufferAlignment == 0 {
		c.Device.BufferAlignment = DefaultBufferAlignment
	}
	if c.Assets.LayoutsDir == "" {
		c.Assets.LayoutsDir = DefaultLayoutsDir
	}
	if c.Assets.FrameFile == "" {
		c.Assets.FrameFile = DefaultFrameFile
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	level := strings.ToLower(c.Log.Level)
	valid := false
	for _, l := range logLevels {
		if l == level {
			valid = true
			break
		}
	}
	if !valid {
		return errors.Newf("log.level: unknown level %q", c.Log.Level)
	}
	if c.Pipeline.FramesInFlight > 16 {
		return errors.Newf("pipeline.frames_in_flight: %d is more than 16", c.Pipeline.FramesInFlight)
	}
	if c.Pipeline.LayoutCacheSize < 0 {
		return errors.Newf("pipeline.layout_cache_size: %d is negative", c.Pipeline.LayoutCacheSize)
	}
	if a := c.Device.BufferAlignment; a&(a-1) != 0 {
		return errors.Newf("device.buffer_alignment: %d is not a power of two", a)
	}
	if c.Assets.LayoutsDir == "" {
		return errors.New("assets.layouts_dir is empty")
	}
	if c.Assets.FrameFile == "" {
		return errors.New("assets.frame_file is empty")
	}
	return nil
}

// Decode reads a TOML configuration, applies defaults and validates it.
func Decode(r io.Reader) (*Config, error) {
	c := &Config{}
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, errors.Wrapf(err, "config line %d column %d", row, col)
		}
		return nil, errors.Wrap(err, "failed to decode config")
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	c, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return c, nil
}

// Encode writes c as TOML.
func (c *Config) Encode(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(c)
}
