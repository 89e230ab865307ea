package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Faultbox/midgard-fbx/pkg/anim"
)

type trackReport struct {
	Target  string               `yaml:"target"`
	Channel string               `yaml:"channel"`
	Bone    int                  `yaml:"bone"`
	Keys    [3]int               `yaml:"keys,flow"`
	Samples map[string][]float32 `yaml:"samples,omitempty"`
}

type clipReport struct {
	Name     string        `yaml:"name"`
	Fps      float64       `yaml:"fps"`
	Frames   int           `yaml:"frames"`
	Duration float64       `yaml:"duration"`
	Moves    int           `yaml:"moves"`
	Tracks   []trackReport `yaml:"tracks"`
}

type animReport struct {
	Clips []clipReport `yaml:"clips"`
	Error string       `yaml:"error,omitempty"`
}

var axisNames = [3]string{"x", "y", "z"}

func newAnimCmd(a *app) *cobra.Command {
	var clipName string
	var samples int

	cmd := &cobra.Command{
		Use:   "anim <file.fbx>",
		Short: "List animation clips and their curves",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.cfg.Import.SkipAnimations = false
			res, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			report := animReport{Error: errString(res.AnimErr)}
			for _, c := range res.Clips {
				if clipName != "" && c.Name != clipName {
					continue
				}
				cr := clipReport{
					Name:     c.Name,
					Fps:      c.FrameRate,
					Frames:   c.Frames,
					Duration: c.Duration(),
					Moves:    len(c.Moves),
				}
				for _, t := range c.Tracks {
					tr := trackReport{Target: t.Target, Channel: t.Channel.String(), Bone: t.Bone}
					for axis, curve := range t.Curves {
						if curve == nil {
							continue
						}
						tr.Keys[axis] = len(curve.KeyTimes)
						if samples > 0 {
							if tr.Samples == nil {
								tr.Samples = make(map[string][]float32)
							}
							first := anim.FrameIndex(c.Start, c.FrameRate)
							for _, v := range curve.Samples(c.FrameRate, first, min(samples, c.Frames)) {
								tr.Samples[axisNames[axis]] = append(tr.Samples[axisNames[axis]], v)
							}
						}
					}
					cr.Tracks = append(cr.Tracks, tr)
				}
				report.Clips = append(report.Clips, cr)
			}
			if clipName != "" && len(report.Clips) == 0 {
				return fmt.Errorf("no clip named %q", clipName)
			}

			return a.render(cmd, report, func(w io.Writer) {
				if report.Error != "" {
					fmt.Fprintf(w, "animation errors: %s\n", report.Error)
				}
				for _, c := range report.Clips {
					fmt.Fprintf(w, "%s: %d frames at %g fps (%.3fs), %d animated bones\n",
						c.Name, c.Frames, c.Fps, c.Duration, c.Moves)
					for _, t := range c.Tracks {
						bone := "unbound"
						if t.Bone >= 0 {
							bone = fmt.Sprintf("bone %d", t.Bone)
						}
						fmt.Fprintf(w, "  %-24s %-12s %-9s keys %v\n", t.Target, t.Channel, bone, t.Keys)
						for _, axis := range axisNames {
							if vs, ok := t.Samples[axis]; ok {
								parts := make([]string, len(vs))
								for i, v := range vs {
									parts[i] = fmt.Sprintf("%.4g", v)
								}
								fmt.Fprintf(w, "    %s: %s\n", axis, strings.Join(parts, " "))
							}
						}
					}
				}
			})
		},
	}

	cmd.Flags().StringVar(&clipName, "clip", "", "only show the clip with this name")
	cmd.Flags().IntVar(&samples, "samples", 0, "print the first N sampled frames of every curve")
	return cmd
}
