package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dbarchive/internal/schema"
)

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	Children bool
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <type> <public-id>",
		Short: "Print a public object",
		Long: `Print the public object with the given public ID as a YAML document.

Example:
  dbarchive get --db sqlite3://events.db Origin Origin/20240301.1
  dbarchive get --db sqlite3://events.db EventParameters EventParameters --children`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Children, "children", false, "load the owned objects as well")

	return cmd
}

func runGet(opts *GetOptions, typeName, publicID string, cmd *cobra.Command) error {
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
	if opts.Children {
		if _, err := s.archive.LoadChildren(s.ctx, obj); err != nil {
			return s.fail("failed to load children", err)
		}
	}
	return s.out.Success(schema.ToDocument(obj))
}

// ListOptions holds flags for the list and count commands.
type ListOptions struct {
	*RootOptions
	Parent string
}

// listEntry is one row of the list output.
type listEntry struct {
	OID       int64  `json:"oid"`
	ParentOID int64  `json:"parent_oid,omitempty"`
	PublicID  string `json:"public_id,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list <type>",
		Short: "List stored objects of a type",
		Long: `List the stored objects of a type in storage order, optionally restricted
to the children of one parent.

Example:
  dbarchive list --db sqlite3://events.db Pick
  dbarchive list --db sqlite3://events.db Arrival --parent Origin/20240301.1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Parent, "parent", "", "public ID of the parent object")

	return cmd
}

func runList(opts *ListOptions, typeName string, cmd *cobra.Command) error {
	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.close()

	t, err := s.lookupType(typeName)
	if err != nil {
		return err
	}

	c, err := s.archive.GetObjects(s.ctx, parentFlag(opts.Parent), t, false)
	if err != nil {
		return s.fail("failed to list objects", err)
	}
	defer c.Close()

	entries := []listEntry{}
	for c.Next() {
		e := listEntry{OID: c.OID(), ParentOID: c.ParentOID()}
		if po, ok := c.Object().(schema.PublicObject); ok {
			e.PublicID = po.PublicID()
		}
		entries = append(entries, e)
	}
	if err := c.Err(); err != nil {
		return s.fail("failed to list objects", err)
	}

	if s.out.Format == "json" {
		return s.out.Success(entries)
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%d\t%d\t%s\n", e.OID, e.ParentOID, e.PublicID)
	}
	fmt.Fprintf(&b, "%d %s object(s)", len(entries), t.Name())
	return s.out.Success(b.String())
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "count <type>",
		Short: "Count stored objects of a type",
		Long: `Count the stored objects of a type, optionally restricted to the
children of one parent.

Example:
  dbarchive count --db sqlite3://events.db Origin
  dbarchive count --db sqlite3://events.db Arrival --parent Origin/20240301.1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Parent, "parent", "", "public ID of the parent object")

	return cmd
}

func runCount(opts *ListOptions, typeName string, cmd *cobra.Command) error {
	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.close()

	t, err := s.lookupType(typeName)
	if err != nil {
		return err
	}

	n, err := s.archive.GetObjectCount(s.ctx, parentFlag(opts.Parent), t)
	if err != nil {
		return s.fail("failed to count objects", err)
	}
	if s.out.Format == "json" {
		return s.out.Success(map[string]any{"type": t.Name(), "count": n})
	}
	return s.out.Success(fmt.Sprint(n))
}
