package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// render writes report as YAML when the yaml format is selected and calls
// text otherwise.
func (a *app) render(cmd *cobra.Command, report any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	switch a.cfg.Output.Format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		text(w)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", a.cfg.Output.Format)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
