package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Faultbox/midgard-fbx/internal/importer"
)

type importReport struct {
	Path      string   `yaml:"path"`
	LoadID    string   `yaml:"load_id,omitempty"`
	Version   string   `yaml:"version,omitempty"`
	Bones     int      `yaml:"bones"`
	Meshes    int      `yaml:"meshes"`
	Materials int      `yaml:"materials"`
	Clips     int      `yaml:"clips"`
	Elapsed   string   `yaml:"elapsed,omitempty"`
	Errors    []string `yaml:"errors,omitempty"`
}

func summarize(path string, res *importer.Result, err error) importReport {
	r := importReport{Path: path}
	if err != nil {
		r.Errors = []string{err.Error()}
		return r
	}
	r.LoadID = res.LoadID.String()
	r.Version = res.Version
	if res.Rig != nil {
		r.Bones = len(res.Rig.Bones)
	}
	r.Meshes = len(res.Meshes)
	r.Materials = len(res.Materials)
	r.Clips = len(res.Clips)
	r.Elapsed = res.Elapsed.String()
	for _, e := range []struct {
		asset string
		err   error
	}{
		{"rig", res.RigErr},
		{"mesh", res.MeshErr},
		{"material", res.MaterialErr},
		{"animation", res.AnimErr},
	} {
		if e.err != nil {
			r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", e.asset, e.err))
		}
	}
	return r
}

func printSummary(w io.Writer, r importReport) {
	if r.LoadID == "" {
		fmt.Fprintf(w, "%s: failed: %s\n", r.Path, r.Errors[0])
		return
	}
	fmt.Fprintf(w, "%s: v%s, %d bones, %d meshes, %d materials, %d clips in %s\n",
		r.Path, r.Version, r.Bones, r.Meshes, r.Materials, r.Clips, r.Elapsed)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func newImportCmd(a *app) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "import <file.fbx>...",
		Short: "Import containers and report what was built",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reports []importReport
			var errs []error
			for _, path := range args {
				res, err := a.load(cmd.Context(), path)
				reports = append(reports, summarize(path, res, err))
				if err == nil && strict {
					err = res.Err()
				}
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", path, err))
				}
			}

			if err := a.render(cmd, reports, func(w io.Writer) {
				for _, r := range reports {
					printSummary(w, r)
				}
			}); err != nil {
				return err
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail when any asset type could not be built")
	return cmd
}
