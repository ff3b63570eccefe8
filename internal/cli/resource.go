package cli

import (
	"io"

	"github.com/spf13/cobra"
)

func newResourceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resource",
		Short: "Insert and inspect resources",
	}
	cmd.AddCommand(newResourceAddCmd(a), newResourceGetCmd(a))
	return cmd
}

func newResourceAddCmd(a *app) *cobra.Command {
	var specName, path, kwargs string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Insert a resource",
		Long: `Add validates the kwargs against the spec's resource schema and stores
a new resource with a generated id.

Example:
  filestore resource add --spec AD_TIFF --path /data/ \
    --kwargs '{"template": "%s%s_%6.6d.tiff", "filename": "scan", "frame_per_point": 1}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kw, err := parseKwargs(kwargs)
			if err != nil {
				return err
			}
			return a.withSession(func(s *session) error {
				r, err := s.fs.InsertResource(cmd.Context(), specName, path, kw)
				if err != nil {
					return err
				}
				return a.emit(cmd, r, func(w io.Writer) { printResource(w, r) })
			})
		},
	}
	cmd.Flags().StringVar(&specName, "spec", "", "resource spec (required)")
	cmd.Flags().StringVar(&path, "path", "", "resource path")
	cmd.Flags().StringVar(&kwargs, "kwargs", "", "resource kwargs as a JSON object")
	_ = cmd.MarkFlagRequired("spec")
	return cmd
}

func newResourceGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(s *session) error {
				r, err := s.fs.GetResource(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.emit(cmd, r, func(w io.Writer) { printResource(w, r) })
			})
		},
	}
}
