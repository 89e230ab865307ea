package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Faultbox/midgard-fbx/pkg/fbx"
)

type infoReport struct {
	Path        string         `yaml:"path"`
	Version     string         `yaml:"version"`
	Objects     int            `yaml:"objects"`
	Connections int            `yaml:"connections"`
	ByType      map[string]int `yaml:"by_type"`
	UpAxis      int            `yaml:"up_axis"`
	UpAxisSign  int            `yaml:"up_axis_sign"`
	FrontAxis   int            `yaml:"front_axis"`
	FrontSign   int            `yaml:"front_axis_sign"`
	CoordAxis   int            `yaml:"coord_axis"`
	CoordSign   int            `yaml:"coord_axis_sign"`
	UnitScale   float64        `yaml:"unit_scale"`
	FrameRate   float64        `yaml:"frame_rate"`
	AxisDefault bool           `yaml:"axis_fallback,omitempty"`
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file.fbx>",
		Short: "Show container version, settings and object counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := fbx.DecodeFile(args[0])
			if err != nil {
				return err
			}
			scene, err := fbx.Prepare(doc, args[0])
			if err != nil {
				return err
			}

			gs := scene.Settings
			r := infoReport{
				Path:        args[0],
				Version:     doc.VersionString(),
				Objects:     scene.Graph.ObjectCount(),
				Connections: len(scene.Graph.Connections()),
				ByType:      make(map[string]int),
				UpAxis:      gs.UpAxis,
				UpAxisSign:  gs.UpAxisSign,
				FrontAxis:   gs.FrontAxis,
				FrontSign:   gs.FrontAxisSign,
				CoordAxis:   gs.CoordAxis,
				CoordSign:   gs.CoordAxisSign,
				UnitScale:   gs.UnitScaleFactor,
				FrameRate:   gs.FrameRate(),
				AxisDefault: gs.AxisFallback,
			}
			for _, obj := range doc.Root().Child("Objects").Children() {
				key := obj.Name()
				if kind := obj.Kind(); kind != "" {
					key += "/" + kind
				}
				r.ByType[key]++
			}

			return a.render(cmd, r, func(w io.Writer) {
				fmt.Fprintf(w, "Container:   %s\n", r.Path)
				fmt.Fprintf(w, "Version:     %s\n", r.Version)
				fmt.Fprintf(w, "Objects:     %d\n", r.Objects)
				fmt.Fprintf(w, "Connections: %d\n", r.Connections)
				fmt.Fprintf(w, "Axes:        up %+d*%d, front %+d*%d, coord %+d*%d\n",
					r.UpAxisSign, r.UpAxis, r.FrontSign, r.FrontAxis, r.CoordSign, r.CoordAxis)
				if r.AxisDefault {
					fmt.Fprintln(w, "             (stored axes invalid, defaults used)")
				}
				fmt.Fprintf(w, "Unit scale:  %g cm\n", r.UnitScale)
				if r.FrameRate > 0 {
					fmt.Fprintf(w, "Frame rate:  %g fps\n", r.FrameRate)
				}
				fmt.Fprintln(w)
				fmt.Fprintln(w, "Objects by type:")

				type stat struct {
					key   string
					count int
				}
				var stats []stat
				for k, c := range r.ByType {
					stats = append(stats, stat{k, c})
				}
				sort.Slice(stats, func(i, j int) bool {
					if stats[i].count != stats[j].count {
						return stats[i].count > stats[j].count
					}
					return stats[i].key < stats[j].key
				})
				for _, s := range stats {
					fmt.Fprintf(w, "  %-28s %d\n", s.key, s.count)
				}
			})
		},
	}
}
