package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/filestore/internal/sqlite"
	"github.com/mesh-intelligence/filestore/pkg/types"
)

func newRetrieveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "retrieve <datum-id>",
		Short: "Read the data a datum refers to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session) error {
				out, err := s.fs.Retrieve(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.emit(cmd, out, func(w io.Writer) { printResult(w, out) })
			})
		},
	}
}

func printResult(w io.Writer, v any) {
	switch out := v.(type) {
	case []string:
		for _, s := range out {
			fmt.Fprintln(w, s)
		}
	case *types.Array:
		fmt.Fprintf(w, "shape: %v\ndata:  %v\n", out.Shape, out.Data)
	default:
		fmt.Fprintf(w, "%+v\n", out)
	}
}

// specRow describes one spec for the specs command.
type specRow struct {
	Spec    string `json:"spec"`
	Handler string `json:"handler,omitempty"`
	Schema  bool   `json:"schema"`
}

func newSpecsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "specs",
		Short: "List specs with a registered handler or a schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session) error {
				rows := map[string]*specRow{}
				for _, name := range s.fs.KnownSpecs() {
					rows[name] = &specRow{Spec: name, Schema: true}
				}
				for _, name := range s.fs.Specs() {
					row, ok := rows[name]
					if !ok {
						row = &specRow{Spec: name}
						rows[name] = row
					}
					if f, err := s.fs.Registry().Resolve(name); err == nil {
						row.Handler = f.Name()
					}
				}
				list := make([]specRow, 0, len(rows))
				for _, r := range rows {
					list = append(list, *r)
				}
				sort.Slice(list, func(i, j int) bool { return list[i].Spec < list[j].Spec })

				return a.emit(cmd, list, func(w io.Writer) {
					for _, r := range list {
						handler := r.Handler
						if handler == "" {
							handler = "-"
						}
						schema := "no schema"
						if r.Schema {
							schema = "schema"
						}
						fmt.Fprintf(w, "%-16s %-22s %s\n", r.Spec, handler, schema)
					}
				})
			})
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all resources and datums as JSONL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session) error {
				if err := s.backend.Export(dir); err != nil {
					return err
				}
				return a.emit(cmd, map[string]string{"dir": dir}, func(w io.Writer) {
					fmt.Fprintln(w, "exported to", dir)
				})
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "output directory (required)")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load resources and datums from JSONL",
		Long:  "Import reads resource.jsonl and datum.jsonl from --dir. Records that are\nmalformed or collide with existing ids are skipped.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session) error {
				res, err := s.backend.Import(dir)
				if err != nil {
					return err
				}
				return a.emit(cmd, importSummary(res), func(w io.Writer) {
					fmt.Fprintf(w, "imported %d resources, %d datums (%d skipped)\n", res.Resources, res.Datums, res.Skipped)
				})
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "input directory (required)")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func importSummary(r sqlite.ImportResult) map[string]int {
	return map[string]int{"resources": r.Resources, "datums": r.Datums, "skipped": r.Skipped}
}
