package config

import "github.com/spf13/pflag"

// Flags are the command line overrides shared by every fbxtool command.
type Flags struct {
	fs *pflag.FlagSet

	Config       string
	Debug        bool
	FPS          float64
	TexturePaths []string
	LogFile      string
	Format       string
}

// BindFlags registers the shared flags on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.Config, "config", "", "Path to config file (.yaml or .toml)")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.Float64Var(&f.FPS, "fps", 0, "Animation sample rate; 0 uses the container's rate")
	fs.StringSliceVar(&f.TexturePaths, "texture-path", nil, "Extra texture search directory (repeatable)")
	fs.StringVar(&f.LogFile, "log-file", "", "Also log to this file")
	fs.StringVarP(&f.Format, "format", "o", "", "Output format: text or yaml")
	return f
}

// ApplyFlags overlays the flags that were set on the command line.
func ApplyFlags(cfg *Config, f *Flags) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.changed("fps") {
		cfg.Import.SampleRate = f.FPS
	}
	if len(f.TexturePaths) > 0 {
		cfg.Import.TexturePaths = append(cfg.Import.TexturePaths, f.TexturePaths...)
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.Format != "" {
		cfg.Output.Format = f.Format
	}
}

func (f *Flags) changed(name string) bool {
	return f.fs != nil && f.fs.Changed(name)
}
