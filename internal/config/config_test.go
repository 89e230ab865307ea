package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
	if cfg.Import.SampleRate != 30 {
		t.Errorf("expected sample rate 30, got %v", cfg.Import.SampleRate)
	}
	if !cfg.Import.ProbeTextures {
		t.Error("expected texture probing on by default")
	}
	if cfg.Output.Format != "text" {
		t.Errorf("expected text output, got %s", cfg.Output.Format)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "fbxtool.yaml",
			content: `
logging:
  level: debug
  log_file: import.log
import:
  sample_rate: 60
  texture_paths: [textures, /srv/shared]
  probe_textures: false
  skip_animations: true
output:
  format: yaml
`,
		},
		{
			name: "toml",
			file: "fbxtool.toml",
			content: `
[logging]
level = "debug"
log_file = "import.log"

[import]
sample_rate = 60.0
texture_paths = ["textures", "/srv/shared"]
probe_textures = false
skip_animations = true

[output]
format = "yaml"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if err := loadFromFile(cfg, writeFile(t, tt.file, tt.content)); err != nil {
				t.Fatalf("failed to load config: %v", err)
			}

			if cfg.Logging.Level != "debug" || cfg.Logging.LogFile != "import.log" {
				t.Errorf("logging = %+v", cfg.Logging)
			}
			if cfg.Import.SampleRate != 60 {
				t.Errorf("expected sample rate 60, got %v", cfg.Import.SampleRate)
			}
			if len(cfg.Import.TexturePaths) != 2 || cfg.Import.TexturePaths[1] != "/srv/shared" {
				t.Errorf("texture paths = %v", cfg.Import.TexturePaths)
			}
			if cfg.Import.ProbeTextures || !cfg.Import.SkipAnimations || cfg.Import.SkipMaterials {
				t.Errorf("import = %+v", cfg.Import)
			}
			if cfg.Output.Format != "yaml" {
				t.Errorf("expected yaml output, got %s", cfg.Output.Format)
			}
		})
	}
}

func TestLoadFromFileKeepsDefaults(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, writeFile(t, "partial.yaml", "output:\n  format: yaml\n")); err != nil {
		t.Fatal(err)
	}
	if cfg.Import.SampleRate != 30 || cfg.Logging.Level != "info" {
		t.Errorf("defaults lost: %+v", cfg)
	}

	if err := loadFromFile(cfg, writeFile(t, "empty.yaml", "")); err != nil {
		t.Errorf("empty file: %v", err)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad yaml", "bad.yaml", "import:\n  sample_rate: fast\n  invalid syntax here\n"},
		{"unknown yaml key", "unknown.yaml", "graphics:\n  width: 800\n"},
		{"bad toml", "bad.toml", "[import\nsample_rate = \n"},
		{"unknown toml key", "unknown.toml", "[graphics]\nwidth = 800\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := loadFromFile(Default(), writeFile(t, tt.file, tt.content)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if err := loadFromFile(Default(), "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile("fbxtool.toml", []byte("[output]\nformat = \"yaml\"\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path := findConfigFile(); path != "./fbxtool.toml" {
		t.Errorf("findConfigFile() = %q, want ./fbxtool.toml", path)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(*testing.T, *Config)
	}{
		{
			name: "no flags",
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Import.SampleRate != 30 || cfg.Logging.Level != "info" {
					t.Errorf("config changed without flags: %+v", cfg)
				}
			},
		},
		{
			name: "debug",
			args: []string{"--debug"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
		},
		{
			name: "fps zero means container rate",
			args: []string{"--fps", "0"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Import.SampleRate != 0 {
					t.Errorf("expected sample rate 0, got %v", cfg.Import.SampleRate)
				}
			},
		},
		{
			name: "texture paths append",
			args: []string{"--texture-path", "a", "--texture-path", "b"},
			verify: func(t *testing.T, cfg *Config) {
				if len(cfg.Import.TexturePaths) != 3 || cfg.Import.TexturePaths[2] != "b" {
					t.Errorf("texture paths = %v", cfg.Import.TexturePaths)
				}
			},
		},
		{
			name: "log file and format",
			args: []string{"--log-file", "out.log", "-o", "yaml"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.LogFile != "out.log" || cfg.Output.Format != "yaml" {
					t.Errorf("config = %+v", cfg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			f := BindFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatal(err)
			}
			cfg := Default()
			cfg.Import.TexturePaths = []string{"base"}
			ApplyFlags(cfg, f)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	path := writeFile(t, "fbxtool.yaml", "import:\n  sample_rate: 24\nlogging:\n  level: warn\n")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f := BindFlags(fs)
	if err := fs.Parse([]string{"--config", path, "--fps", "48"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Import.SampleRate != 48 {
		t.Errorf("flag should win: sample rate %v", cfg.Import.SampleRate)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("file should beat defaults: level %s", cfg.Logging.Level)
	}
}

func TestSaveTo(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"nested/config.yaml", "nested/config.toml"} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Import.SampleRate = 12
			cfg.Import.TexturePaths = []string{"tex"}

			path := filepath.Join(dir, name)
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo() error = %v", err)
			}

			loaded := Default()
			if err := loadFromFile(loaded, path); err != nil {
				t.Fatalf("reloading: %v", err)
			}
			if loaded.Import.SampleRate != 12 || len(loaded.Import.TexturePaths) != 1 {
				t.Errorf("reloaded import = %+v", loaded.Import)
			}
		})
	}
}
