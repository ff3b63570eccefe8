package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/filestore/pkg/types"
)

func newDatumCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datum",
		Short: "Insert and inspect datums",
	}
	cmd.AddCommand(newDatumAddCmd(a), newDatumBulkAddCmd(a), newDatumGetCmd(a), newDatumListCmd(a))
	return cmd
}

func newDatumAddCmd(a *app) *cobra.Command {
	var resourceID, datumID, kwargs string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Insert a datum",
		Long: `Add validates the kwargs against the datum schema of the resource's spec
and stores a new datum. Without --id a UUID is generated.

Example:
  filestore datum add --resource <resource-id> --kwargs '{"point_number": 0}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kw, err := parseKwargs(kwargs)
			if err != nil {
				return err
			}
			if datumID == "" {
				datumID = uuid.NewString()
			}
			return a.withSession(func(s *session) error {
				d, err := s.fs.InsertDatum(cmd.Context(), types.ResourceID(resourceID), datumID, kw)
				if err != nil {
					return err
				}
				return a.emit(cmd, d, func(w io.Writer) { printDatum(w, d) })
			})
		},
	}
	cmd.Flags().StringVar(&resourceID, "resource", "", "resource id (required)")
	cmd.Flags().StringVar(&datumID, "id", "", "datum id (default: generated)")
	cmd.Flags().StringVar(&kwargs, "kwargs", "", "datum kwargs as a JSON object")
	_ = cmd.MarkFlagRequired("resource")
	return cmd
}

// bulkLine is one line of a bulk-add file.
type bulkLine struct {
	DatumID     string       `json:"datum_id"`
	DatumKwargs types.Kwargs `json:"datum_kwargs"`
}

// readBulkFile parses a JSONL file of bulkLine records. Blank lines are
// skipped; missing ids are generated.
func readBulkFile(r io.Reader) ([]string, []types.Kwargs, error) {
	var (
		ids    []string
		kwargs []types.Kwargs
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for n := 1; scanner.Scan(); n++ {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec bulkLine
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, nil, &types.ValidationError{Err: fmt.Errorf("line %d: %w", n, err)}
		}
		if rec.DatumID == "" {
			rec.DatumID = uuid.NewString()
		}
		ids = append(ids, rec.DatumID)
		kwargs = append(kwargs, rec.DatumKwargs)
	}
	return ids, kwargs, scanner.Err()
}

func newDatumBulkAddCmd(a *app) *cobra.Command {
	var resourceID, file string
	cmd := &cobra.Command{
		Use:   "bulk-add",
		Short: "Insert many datums for one resource",
		Long: `Bulk-add reads a JSONL file with one {"datum_id": ..., "datum_kwargs": {...}}
object per line and inserts all datums in one transaction. Every line is
validated first; any failure inserts nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open %s: %w", file, err)
			}
			ids, kwargs, err := readBulkFile(f)
			_ = f.Close()
			if err != nil {
				return err
			}
			return a.withSession(func(s *session) error {
				ds, err := s.fs.BulkInsertDatum(cmd.Context(), types.ResourceID(resourceID), ids, kwargs)
				if err != nil {
					return err
				}
				return a.emit(cmd, ds, func(w io.Writer) {
					fmt.Fprintf(w, "inserted %d datums\n", len(ds))
					for _, d := range ds {
						fmt.Fprintln(w, " ", d.DatumID)
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&resourceID, "resource", "", "resource id (required)")
	cmd.Flags().StringVar(&file, "file", "", "JSONL file of datums (required)")
	_ = cmd.MarkFlagRequired("resource")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newDatumGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <datum-id>",
		Short: "Show a datum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session) error {
				d, err := s.fs.GetDatum(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.emit(cmd, d, func(w io.Writer) { printDatum(w, d) })
			})
		},
	}
}

func newDatumListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <resource-id>",
		Short: "List the datums of a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session) error {
				r, err := s.fs.GetResource(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				ds, err := s.backend.FindDatumsByResource(cmd.Context(), r.ID)
				if err != nil {
					return err
				}
				return a.emit(cmd, ds, func(w io.Writer) {
					for _, d := range ds {
						fmt.Fprintf(w, "%s\t%s\n", d.DatumID, kwargsText(d.DatumKwargs))
					}
				})
			})
		},
	}
}
