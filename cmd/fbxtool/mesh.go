package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Faultbox/midgard-fbx/pkg/math"
)

type groupReport struct {
	Influences int `yaml:"influences"`
	Sets       int `yaml:"sets"`
	Vertices   int `yaml:"vertices"`
}

type meshReport struct {
	Name       string        `yaml:"name"`
	Vertices   int           `yaml:"vertices"`
	Corners    int           `yaml:"corners"`
	Polygons   int           `yaml:"polygons"`
	Triangles  int           `yaml:"triangles"`
	Materials  []int64       `yaml:"materials,omitempty"`
	Normals    bool          `yaml:"normals"`
	UVs        bool          `yaml:"uvs"`
	BoundsMin  [3]float32    `yaml:"bounds_min,flow"`
	BoundsMax  [3]float32    `yaml:"bounds_max,flow"`
	WeightSets int           `yaml:"weight_sets,omitempty"`
	Groups     []groupReport `yaml:"weight_groups,omitempty"`
	SkinError  string        `yaml:"skin_error,omitempty"`
}

type meshesReport struct {
	Meshes []meshReport `yaml:"meshes"`
	Error  string       `yaml:"error,omitempty"`
}

func newMeshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mesh <file.fbx>",
		Short: "Summarize mesh geometry and skin weights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			report := meshesReport{Error: errString(res.MeshErr)}
			for _, m := range res.Meshes {
				mr := meshReport{
					Name:      m.Name,
					Vertices:  len(m.Positions),
					Corners:   len(m.Corners),
					Polygons:  m.Polygons,
					Triangles: len(m.Triangles),
					Materials: m.Materials,
					Normals:   m.HasNormals,
					UVs:       m.HasUVs,
					SkinError: errString(m.SkinErr),
				}
				lo, hi := bounds(m.Positions)
				mr.BoundsMin, mr.BoundsMax = lo.Array(), hi.Array()
				if m.Weights != nil {
					mr.WeightSets = len(m.Weights.Sets)
					for _, g := range m.Weights.Groups {
						mr.Groups = append(mr.Groups, groupReport{g.Influences, g.Sets, g.Vertices})
					}
				}
				report.Meshes = append(report.Meshes, mr)
			}

			return a.render(cmd, report, func(w io.Writer) {
				if report.Error != "" {
					fmt.Fprintf(w, "mesh errors: %s\n", report.Error)
				}
				for _, m := range report.Meshes {
					fmt.Fprintf(w, "%s: %d vertices, %d polygons, %d triangles\n",
						m.Name, m.Vertices, m.Polygons, m.Triangles)
					fmt.Fprintf(w, "  bounds %.4g .. %.4g\n", m.BoundsMin, m.BoundsMax)
					if m.SkinError != "" {
						fmt.Fprintf(w, "  static (skin: %s)\n", m.SkinError)
					}
					for _, g := range m.Groups {
						fmt.Fprintf(w, "  %d-bone: %d sets, %d vertices\n", g.Influences, g.Sets, g.Vertices)
					}
				}
			})
		},
	}
}

func bounds(ps []math.Vec3) (math.Vec3, math.Vec3) {
	if len(ps) == 0 {
		return math.Vec3{}, math.Vec3{}
	}
	lo, hi := ps[0], ps[0]
	for _, p := range ps[1:] {
		lo = math.Vec3{X: min(lo.X, p.X), Y: min(lo.Y, p.Y), Z: min(lo.Z, p.Z)}
		hi = math.Vec3{X: max(hi.X, p.X), Y: max(hi.Y, p.Y), Z: max(hi.Z, p.Z)}
	}
	return lo, hi
}
