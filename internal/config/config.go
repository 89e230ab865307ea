// Package config handles fbxtool configuration loading and management.
package config

// Config holds all fbxtool settings.
type Config struct {
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Import  ImportConfig  `yaml:"import" toml:"import"`
	Output  OutputConfig  `yaml:"output" toml:"output"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// ImportConfig controls how containers are turned into assets.
type ImportConfig struct {
	// SampleRate is the animation sampling rate in frames per second.
	// Zero uses the rate stored in the container.
	SampleRate float64 `yaml:"sample_rate" toml:"sample_rate"`

	TexturePaths  []string `yaml:"texture_paths" toml:"texture_paths"`
	ProbeTextures bool     `yaml:"probe_textures" toml:"probe_textures"`

	SkipAnimations bool `yaml:"skip_animations" toml:"skip_animations"`
	SkipMaterials  bool `yaml:"skip_materials" toml:"skip_materials"`
}

// OutputConfig controls command output.
type OutputConfig struct {
	// Format is "text" or "yaml".
	Format string `yaml:"format" toml:"format"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Import: ImportConfig{
			SampleRate:    30,
			ProbeTextures: true,
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}
