package material

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"go.uber.org/zap"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/Faultbox/midgard-fbx/pkg/fbx"
)

// Texture is one texture bound to a material channel.
type Texture struct {
	ID      int64
	Name    string
	Channel string

	// FileName and RelativeFilename are the references as stored.
	FileName         string
	RelativeFilename string

	// Path is the file found on disk, empty when nothing was found.
	Path string

	// Embedded holds the media bytes of a connected Video object.
	Embedded []byte

	// Width, Height and Format are filled by probing.
	Width, Height int
	Format        string
	ProbeErr      error
}

// Found reports whether the texture has a file or embedded content.
func (t Texture) Found() bool { return t.Path != "" || len(t.Embedded) > 0 }

func textures(scene *fbx.Scene, material fbx.Node, o *options) ([]Texture, error) {
	var out []Texture
	var errs []error
	for _, c := range scene.Graph.Sources(material.ID()) {
		node, err := scene.Graph.RecordWithID(c.Source)
		if err != nil {
			var re *fbx.ReferenceError
			if errors.As(err, &re) {
				re.Context = fmt.Sprintf("texture of material %q", material.ObjectName())
			}
			errs = append(errs, err)
			continue
		}
		if node.Name() != "Texture" {
			continue
		}

		t := Texture{
			ID:               node.ID(),
			Name:             node.ObjectName(),
			Channel:          c.Property,
			FileName:         node.Child("FileName").PropString(0),
			RelativeFilename: node.Child("RelativeFilename").PropString(0),
		}
		videos, err := scene.Graph.ResolveSources(node.ID(), "Video")
		if err != nil {
			errs = append(errs, fmt.Errorf("media of texture %q: %w", t.Name, err))
		}
		for _, video := range videos {
			if b, err := video.Child("Content").Prop(0).AsBytes(); err == nil && len(b) > 0 {
				t.Embedded = b
				break
			}
		}
		t.Path = resolve(scene.Path, t.RelativeFilename, t.FileName, o.searchPaths)

		switch {
		case t.Path == "" && len(t.Embedded) == 0:
			o.logger.Warn("texture not found",
				zap.String("material", material.ObjectName()),
				zap.String("texture", t.Name),
				zap.String("file", t.FileName),
				zap.String("relative", t.RelativeFilename))
		case o.probe:
			t.Width, t.Height, t.Format, t.ProbeErr = probe(t)
			if t.ProbeErr != nil {
				o.logger.Warn("texture probe failed", zap.String("texture", t.Name), zap.Error(t.ProbeErr))
			}
		}
		out = append(out, t)
	}
	return out, errors.Join(errs...)
}

// resolve looks for a texture: the relative name against the container's
// directory, then the stored file name as is, then the base name in the
// container's directory and every search path.
func resolve(containerPath, relative, file string, searchPaths []string) string {
	dir := ""
	if containerPath != "" {
		dir = filepath.Dir(containerPath)
	}
	relative = nativePath(relative)
	file = nativePath(file)

	var candidates []string
	if relative != "" {
		if filepath.IsAbs(relative) {
			candidates = append(candidates, relative)
		} else if dir != "" {
			candidates = append(candidates, filepath.Join(dir, relative))
		}
	}
	if file != "" {
		candidates = append(candidates, file)
	}
	base := ""
	if file != "" {
		base = filepath.Base(file)
	} else if relative != "" {
		base = filepath.Base(relative)
	}
	if base != "" {
		if dir != "" {
			candidates = append(candidates, filepath.Join(dir, base))
		}
		for _, p := range searchPaths {
			candidates = append(candidates, filepath.Join(p, base))
		}
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// nativePath converts the Windows separators exporters commonly write.
func nativePath(p string) string {
	return filepath.FromSlash(strings.ReplaceAll(p, `\`, "/"))
}

// configDecoders reads image headers by file extension. Dispatching on the
// extension keeps headerless formats such as TGA from being sniffed.
var configDecoders = map[string]func(io.Reader) (image.Config, error){
	".png":  png.DecodeConfig,
	".jpg":  jpeg.DecodeConfig,
	".jpeg": jpeg.DecodeConfig,
	".bmp":  bmp.DecodeConfig,
	".tif":  tiff.DecodeConfig,
	".tiff": tiff.DecodeConfig,
	".webp": webp.DecodeConfig,
	".tga":  tga.DecodeConfig,
}

func probe(t Texture) (int, int, string, error) {
	name := t.Path
	if name == "" {
		name = t.RelativeFilename
		if name == "" {
			name = t.FileName
		}
	}
	ext := strings.ToLower(filepath.Ext(nativePath(name)))

	var r io.Reader
	if t.Path != "" {
		f, err := os.Open(t.Path)
		if err != nil {
			return 0, 0, "", err
		}
		defer f.Close()
		r = f
	} else {
		r = bytes.NewReader(t.Embedded)
	}

	if decode, ok := configDecoders[ext]; ok {
		cfg, err := decode(r)
		if err != nil {
			return 0, 0, "", fmt.Errorf("texture %q: %w", name, err)
		}
		return cfg.Width, cfg.Height, strings.TrimPrefix(ext, "."), nil
	}
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, "", fmt.Errorf("texture %q: %w", name, err)
	}
	return cfg.Width, cfg.Height, format, nil
}
