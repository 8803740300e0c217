package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	DryRun bool
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the archive tables",
		Long: `Create the base tables, one table per registered object type and the
schema version record. Existing tables are left untouched.

Example:
  dbarchive init --db sqlite3://events.db
  dbarchive init --db postgresql://sysop@localhost/seiscomp --dry-run`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the statements without executing them")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.close()

	ddl := s.archive.DDL()
	if opts.DryRun {
		if s.out.Format == "json" {
			return s.out.Success(ddl)
		}
		return s.out.Success(strings.Join(ddl, ";\n") + ";")
	}

	if err := s.archive.CreateTables(s.ctx); err != nil {
		return s.fail("failed to create tables", err)
	}

	version := s.archive.SchemaVersion().String()
	if s.out.Format == "json" {
		return s.out.Success(map[string]any{
			"statements":     len(ddl),
			"schema_version": version,
		})
	}
	return s.out.Success(fmt.Sprintf("Archive ready: %d statements, schema version %s", len(ddl), version))
}
