package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type textureReport struct {
	Channel  string `yaml:"channel"`
	Name     string `yaml:"name"`
	File     string `yaml:"file"`
	Path     string `yaml:"path,omitempty"`
	Embedded int    `yaml:"embedded_bytes,omitempty"`
	Size     string `yaml:"size,omitempty"`
	Format   string `yaml:"format,omitempty"`
	Problem  string `yaml:"problem,omitempty"`
}

type materialReport struct {
	Name      string          `yaml:"name"`
	Shading   string          `yaml:"shading"`
	Color     [3]float32      `yaml:"color,flow"`
	Roughness float32         `yaml:"roughness"`
	Emissive  [3]float32      `yaml:"emissive,flow"`
	Solidity  float32         `yaml:"solidity"`
	Textures  []textureReport `yaml:"textures,omitempty"`
}

type materialsReport struct {
	Materials []materialReport `yaml:"materials"`
	Error     string           `yaml:"error,omitempty"`
}

func newMaterialsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "materials <file.fbx>",
		Short: "List materials and resolve their textures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.cfg.Import.SkipMaterials = false
			res, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			report := materialsReport{Error: errString(res.MaterialErr)}
			for _, m := range res.Materials {
				mr := materialReport{
					Name:      m.Name,
					Shading:   m.ShadingModel,
					Color:     m.Color.Array(),
					Roughness: m.Roughness,
					Emissive:  m.Emissive.Array(),
					Solidity:  m.Solidity,
				}
				for _, t := range m.Textures {
					tr := textureReport{
						Channel:  t.Channel,
						Name:     t.Name,
						File:     t.RelativeFilename,
						Path:     t.Path,
						Embedded: len(t.Embedded),
						Format:   t.Format,
						Problem:  errString(t.ProbeErr),
					}
					if tr.File == "" {
						tr.File = t.FileName
					}
					if t.Width > 0 {
						tr.Size = fmt.Sprintf("%dx%d", t.Width, t.Height)
					}
					if !t.Found() {
						tr.Problem = "not found"
					}
					mr.Textures = append(mr.Textures, tr)
				}
				report.Materials = append(report.Materials, mr)
			}

			return a.render(cmd, report, func(w io.Writer) {
				if report.Error != "" {
					fmt.Fprintf(w, "material errors: %s\n", report.Error)
				}
				for _, m := range report.Materials {
					fmt.Fprintf(w, "%s (%s) color %.3g roughness %.3g solidity %.3g\n",
						m.Name, m.Shading, m.Color, m.Roughness, m.Solidity)
					for _, t := range m.Textures {
						where := t.Path
						switch {
						case t.Embedded > 0:
							where = fmt.Sprintf("embedded, %d bytes", t.Embedded)
						case t.Problem != "":
							where = t.Problem
						}
						fmt.Fprintf(w, "  %-20s %s [%s] %s\n", t.Channel, t.File, where, t.Size)
					}
				}
			})
		},
	}
}
