package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Faultbox/midgard-fbx/pkg/fbx"
)

type dumpRecord struct {
	Name     string       `yaml:"name"`
	Offset   int64        `yaml:"offset"`
	Props    []string     `yaml:"props,omitempty"`
	Children []dumpRecord `yaml:"children,omitempty"`
}

func newDumpCmd(a *app) *cobra.Command {
	var depth int
	var path string

	cmd := &cobra.Command{
		Use:   "dump <file.fbx>",
		Short: "Print the record tree with property types and array counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := fbx.DecodeFile(args[0])
			if err != nil {
				return err
			}

			start := doc.Root()
			if path != "" {
				for _, name := range strings.Split(path, "/") {
					start = start.Child(name)
					if !start.Valid() {
						return fmt.Errorf("no record at %q", path)
					}
				}
			}

			var records []dumpRecord
			if path == "" {
				for _, n := range start.Children() {
					records = append(records, dumpNode(n, depth, 1))
				}
			} else {
				records = append(records, dumpNode(start, depth, 1))
			}

			return a.render(cmd, records, func(w io.Writer) {
				for _, r := range records {
					printRecord(w, r, 0)
				}
			})
		},
	}

	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "maximum depth to print (0 = all)")
	cmd.Flags().StringVar(&path, "path", "", "start at a record path, e.g. Objects/Geometry")
	return cmd
}

func dumpNode(n fbx.Node, maxDepth, depth int) dumpRecord {
	r := dumpRecord{Name: n.Name(), Offset: n.Offset()}
	for _, p := range n.Props() {
		r.Props = append(r.Props, describe(p))
	}
	if maxDepth == 0 || depth < maxDepth {
		for _, c := range n.Children() {
			r.Children = append(r.Children, dumpNode(c, maxDepth, depth+1))
		}
	}
	return r
}

func describe(p fbx.Property) string {
	if p.Type().IsArray() {
		return fmt.Sprintf("%s len %d", p.Type(), p.ValueCount())
	}
	if p.Type() != fbx.TypeString {
		return fmt.Sprintf("%s %s", p.Type(), p)
	}
	s, _ := p.AsString()
	s = strings.ReplaceAll(s, "\x00\x01", "::")
	if len(s) > 64 {
		s = s[:61] + "..."
	}
	return strconv.Quote(s)
}

func printRecord(w io.Writer, r dumpRecord, indent int) {
	fmt.Fprintf(w, "%s%s", strings.Repeat("  ", indent), r.Name)
	if len(r.Props) > 0 {
		fmt.Fprintf(w, ": %s", strings.Join(r.Props, ", "))
	}
	fmt.Fprintln(w)
	for _, c := range r.Children {
		printRecord(w, c, indent+1)
	}
}
