package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/dbarchive/internal/archive"
	"github.com/roach88/dbarchive/internal/datamodel"
	"github.com/roach88/dbarchive/internal/schema"
)

// session is an archive opened for one command.
type session struct {
	ctx     context.Context
	archive *archive.Archive
	types   *schema.Registry
	out     *OutputFormatter
}

func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	if opts.Config == nil {
		if err := opts.resolveConfig(); err != nil {
			return nil, err
		}
	}
	cfg := opts.Config
	if cfg.DB == "" {
		return nil, NewExitError(ExitCommandError, "no data source: set --db or db in the config file")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.Level(),
	}))
	types := datamodel.Registry()
	archiveOpts := append([]archive.Option{
		archive.WithLogger(logger),
		archive.WithObjectRegistry(schema.NewObjectRegistry()),
	}, cfg.ArchiveOptions()...)

	a, err := archive.Open(ctx, cfg.DB, types, archiveOpts...)
	if err != nil {
		if archive.IsSchemaVersion(err) {
			return nil, WrapExitError(ExitFailure, "unsupported database", err)
		}
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	return &session{
		ctx:     ctx,
		archive: a,
		types:   types,
		out: &OutputFormatter{
			Format:  opts.Format,
			Writer:  cmd.OutOrStdout(),
			Verbose: opts.Verbose,
		},
	}, nil
}

func (s *session) close() {
	if err := s.archive.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// lookupType resolves a class name argument.
func (s *session) lookupType(name string) (*schema.Type, error) {
	t, ok := s.types.Lookup(name)
	if !ok {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown type %q", name))
	}
	return t, nil
}

// fail reports err on the command output and returns it as a failure.
func (s *session) fail(message string, err error) error {
	if outErr := s.out.Error(err); outErr != nil {
		return WrapExitError(ExitCommandError, "failed to write output", outErr)
	}
	return WrapExitError(ExitFailure, message, err)
}

// parentFlag turns the --parent flag into a query parent.
func parentFlag(publicID string) archive.Parent {
	if publicID == "" {
		return archive.NoParent
	}
	return archive.ParentPublicID(publicID)
}
