package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Faultbox/midgard-fbx/pkg/rig"
)

type boneReport struct {
	Index    int        `yaml:"index"`
	Name     string     `yaml:"name"`
	Kind     string     `yaml:"kind"`
	Parent   int        `yaml:"parent"`
	Position [3]float32 `yaml:"position,flow"`
	Rotation [4]float32 `yaml:"rotation,flow"`
	Scale    [3]float32 `yaml:"scale,flow"`
	HasBind  bool       `yaml:"has_bind,omitempty"`
}

type diagnosticReport struct {
	Kind    string `yaml:"kind"`
	Bone    string `yaml:"bone"`
	ModelID int64  `yaml:"object_id"`
	Reason  string `yaml:"reason"`
}

type rigReport struct {
	Bones       []boneReport       `yaml:"bones"`
	Diagnostics []diagnosticReport `yaml:"diagnostics,omitempty"`
	Error       string             `yaml:"error,omitempty"`
}

func newRigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rig <file.fbx>",
		Short: "Print the bone hierarchy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			report := rigReport{Error: errString(res.RigErr)}
			if res.Rig != nil {
				for _, b := range res.Rig.Bones {
					report.Bones = append(report.Bones, boneReport{
						Index:    b.Index,
						Name:     b.Name,
						Kind:     b.Kind,
						Parent:   b.Parent,
						Position: b.Position.Array(),
						Rotation: [4]float32{b.Rotation.X, b.Rotation.Y, b.Rotation.Z, b.Rotation.W},
						Scale:    b.Scale.Array(),
						HasBind:  b.HasBind,
					})
				}
				for _, d := range res.Rig.Diagnostics {
					report.Diagnostics = append(report.Diagnostics, diagnosticReport{
						Kind: d.Kind.String(), Bone: d.Bone, ModelID: d.ModelID, Reason: errString(d.Err),
					})
				}
			}

			return a.render(cmd, report, func(w io.Writer) {
				if report.Error != "" {
					fmt.Fprintf(w, "rig error: %s\n", report.Error)
				}
				fmt.Fprintf(w, "%d bones\n", len(report.Bones))
				depth := make([]int, len(report.Bones))
				for _, b := range report.Bones {
					if b.Parent != rig.NoParent {
						depth[b.Index] = depth[b.Parent] + 1
					}
					fmt.Fprintf(w, "%3d %s%s (%s) at %.4g\n",
						b.Index, strings.Repeat("  ", depth[b.Index]), b.Name, b.Kind, b.Position)
				}
				for _, d := range report.Diagnostics {
					fmt.Fprintf(w, "  %s: %s\n", d.Kind, d.Reason)
				}
			})
		},
	}
}
