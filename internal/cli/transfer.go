package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/dbarchive/internal/archive"
	"github.com/roach88/dbarchive/internal/schema"
)

// Document is one object tree of an import or export file. Files hold a
// stream of YAML documents separated by "---".
type Document struct {
	Type   string         `yaml:"type" json:"type"`
	Parent string         `yaml:"parent,omitempty" json:"parent,omitempty"`
	Object map[string]any `yaml:"object" json:"object"`
}

// readDocuments parses every document of a YAML stream.
func readDocuments(data []byte) ([]Document, error) {
	var docs []Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	for {
		var doc Document
		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML document %d: %w", len(docs)+1, err)
		}
		if doc.Type == "" {
			return nil, fmt.Errorf("document %d: type is required", len(docs)+1)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Parent string

	// IDGenerator allows overriding the public ID generator (for testing).
	// If nil, defaults to UUIDGenerator.
	IDGenerator schema.PublicIDGenerator
}

// importResult summarizes one import run.
type importResult struct {
	Documents   int `json:"documents"`
	Objects     int `json:"objects"`
	Failed      int `json:"failed"`
	AssignedIDs int `json:"assigned_ids"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return newImportCommand(&ImportOptions{RootOptions: rootOpts})
}

func newImportCommand(opts *ImportOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Store object trees from a YAML file",
		Long: `Store the object trees of a YAML file. Each document names the class of
its root object and, optionally, the public ID of an already stored parent:

  type: Origin
  parent: EventParameters
  object:
    publicID: Origin/20240301.1
    methodID: LOCSAT
    arrivals:
      - pickID: Pick/1
        phase: P

Public objects without a public ID get a generated one. Objects that fail to
store are reported and skipped.

Example:
  dbarchive import --db sqlite3://events.db events.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Parent, "parent", "", "public ID of the parent for documents that name none")

	return cmd
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read import file", err)
	}
	docs, err := readDocuments(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid import file", err)
	}

	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.close()

	gen := opts.IDGenerator
	if gen == nil {
		gen = schema.UUIDGenerator{}
	}

	// Build every tree before storing any of them
	roots := make([]schema.Object, len(docs))
	for i, doc := range docs {
		t, err := s.lookupType(doc.Type)
		if err != nil {
			return err
		}
		obj, err := schema.FromDocument(t, doc.Object)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("invalid document %d", i+1), err)
		}
		roots[i] = obj
	}

	result := importResult{Documents: len(docs)}
	var errs []error
	for i, obj := range roots {
		result.AssignedIDs += schema.AssignPublicIDs(obj, gen)
		parent := docs[i].Parent
		if parent == "" {
			parent = opts.Parent
		}

		n, err := s.archive.AddTree(s.ctx, obj, parent)
		result.Objects += n
		if err != nil {
			var treeErr *archive.TreeError
			if errors.As(err, &treeErr) {
				result.Failed += treeErr.Failed
			}
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return s.fail(fmt.Sprintf("%d of %d objects failed", result.Failed, result.Objects), errors.Join(errs...))
	}
	if s.out.Format == "json" {
		return s.out.Success(result)
	}
	return s.out.Success(fmt.Sprintf("Imported %d object(s) from %d document(s)", result.Objects, result.Documents))
}

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <type> <public-id>",
		Short: "Write an object tree as YAML",
		Long: `Read a public object and everything it owns and write it in the format
accepted by import.

Example:
  dbarchive export --db sqlite3://events.db Event Event/20240301.1 -o event.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func runExport(opts *ExportOptions, typeName, publicID string, cmd *cobra.Command) error {
	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.close()

	t, err := s.lookupType(typeName)
	if err != nil {
		return err
	}
	obj, err := s.archive.GetObject(s.ctx, t, publicID)
	if err != nil {
		return s.fail("failed to get object", err)
	}
	if _, err := s.archive.LoadChildren(s.ctx, obj); err != nil {
		return s.fail("failed to load children", err)
	}
	parentID, _, err := s.archive.ParentPublicID(s.ctx, obj)
	if err != nil {
		return s.fail("failed to resolve parent", err)
	}

	doc := Document{Type: t.Name(), Parent: parentID, Object: schema.ToDocument(obj)}

	if opts.Output == "" && s.out.Format == "json" {
		return s.out.Success(doc)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return WrapExitError(ExitFailure, "failed to encode document", err)
	}
	if err := enc.Close(); err != nil {
		return WrapExitError(ExitFailure, "failed to encode document", err)
	}

	if opts.Output == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(opts.Output, buf.Bytes(), 0644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output file", err)
	}
	return s.out.Success(fmt.Sprintf("Exported %s to %s", publicID, opts.Output))
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <type> <public-id>",
		Short: "Remove an object tree",
		Long: `Remove a public object and everything it owns, children first.

Example:
  dbarchive remove --db sqlite3://events.db Event Event/20240301.1`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runRemove(opts *RootOptions, typeName, publicID string, cmd *cobra.Command) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.close()

	t, err := s.lookupType(typeName)
	if err != nil {
		return err
	}
	obj, err := s.archive.GetObject(s.ctx, t, publicID)
	if err != nil {
		return s.fail("failed to get object", err)
	}
	if _, err := s.archive.LoadChildren(s.ctx, obj); err != nil {
		return s.fail("failed to load children", err)
	}

	n, err := s.archive.RemoveTree(s.ctx, obj, "")
	if err != nil {
		return s.fail("failed to remove tree", err)
	}
	if s.out.Format == "json" {
		return s.out.Success(map[string]any{"removed": n})
	}
	return s.out.Success(fmt.Sprintf("Removed %d object(s)", n))
}
