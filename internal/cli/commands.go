package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/filestore/pkg/filestore"
)

const modulePath = "github.com/mesh-intelligence/filestore"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the filestore version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "filestore v%s\nmodule: %s\n", filestore.Version, modulePath)
			return nil
		},
	}
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize filestore configuration and storage",
		Long:  "Write a default config.yaml if none exists, then create the data directory and database.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := writeConfigIfMissing(a.configDir, a.flags.dataDir)
			if err != nil {
				return systemError{err}
			}
			if created {
				// Pick up the data_dir just written.
				if a.settings, err = loadConfig(a.configDir); err != nil {
					return err
				}
			}
			return a.withSession(func(s *session) error {
				out := map[string]string{"config_dir": a.configDir, "data_dir": s.dataDir}
				return a.emit(cmd, out, func(w io.Writer) {
					fmt.Fprintln(w, "filestore initialized")
					fmt.Fprintln(w, "  config:", a.configDir)
					fmt.Fprintln(w, "  data:  ", s.dataDir)
				})
			})
		},
	}
}

// withSession opens a session, runs fn and closes the session.
func (a *app) withSession(fn func(*session) error) (err error) {
	s, err := a.open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = systemError{cerr}
		}
	}()
	return classify(fn(s))
}
