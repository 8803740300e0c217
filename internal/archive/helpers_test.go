package archive

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/dbarchive/internal/dbdriver"
	"github.com/roach88/dbarchive/internal/schema"
	"github.com/roach88/dbarchive/internal/testutil"
)

type measure struct {
	Value       float64
	Uncertainty *float64
}

var measureType = schema.NewType("Measure",
	schema.FloatField("value", func(m *measure) float64 { return m.Value }, func(m *measure, v float64) { m.Value = v }),
	schema.OptionalFloatField("uncertainty", func(m *measure) *float64 { return m.Uncertainty }, func(m *measure, v *float64) { m.Uncertainty = v }),
)

type attachment struct {
	Size  int64
	Label string
}

var attachmentType = schema.NewType("Attachment",
	schema.IntField("size", func(a *attachment) int64 { return a.Size }, func(a *attachment, v int64) { a.Size = v }),
	schema.StringField("label", func(a *attachment) string { return a.Label }, func(a *attachment, v string) { a.Label = v }),
)

// sample carries one attribute of every kind.
type sample struct {
	schema.PublicBase

	Count int64
	Ratio float64
	Flag  bool
	Name  string
	At    time.Time
	Seen  time.Time
	Z     complex128

	Ints   []int64
	Floats []float64
	Names  []string
	Times  []time.Time
	Zs     []complex128

	OptCount *int64
	OptFlag  *bool
	OptAt    *time.Time

	Measure    measure
	Extra      *measure
	Attachment *attachment

	Entries []*entry
	Plains  []*plain
}

func (*sample) Type() *schema.Type { return sampleType }

func (s *sample) addEntry(e *entry) error {
	if err := schema.Attach(s, e); err != nil {
		return err
	}
	s.Entries = append(s.Entries, e)
	return nil
}

func (s *sample) addPlain(p *plain) error {
	if err := schema.Attach(s, p); err != nil {
		return err
	}
	s.Plains = append(s.Plains, p)
	return nil
}

var sampleType = schema.NewPublicObjectType("Sample", func() *sample { return &sample{} },
	schema.IntField("count", func(s *sample) int64 { return s.Count }, func(s *sample, v int64) { s.Count = v }),
	schema.FloatField("ratio", func(s *sample) float64 { return s.Ratio }, func(s *sample, v float64) { s.Ratio = v }),
	schema.BoolField("flag", func(s *sample) bool { return s.Flag }, func(s *sample, v bool) { s.Flag = v }),
	schema.StringField("name", func(s *sample) string { return s.Name }, func(s *sample, v string) { s.Name = v }),
	schema.TimeField("at", func(s *sample) time.Time { return s.At }, func(s *sample, v time.Time) { s.At = v }, schema.SplitTime()),
	schema.TimeField("seen", func(s *sample) time.Time { return s.Seen }, func(s *sample, v time.Time) { s.Seen = v }),
	schema.ComplexField("z", func(s *sample) complex128 { return s.Z }, func(s *sample, v complex128) { s.Z = v }),
	schema.IntsField("ints", func(s *sample) []int64 { return s.Ints }, func(s *sample, v []int64) { s.Ints = v }),
	schema.FloatsField("floats", func(s *sample) []float64 { return s.Floats }, func(s *sample, v []float64) { s.Floats = v }),
	schema.StringsField("names", func(s *sample) []string { return s.Names }, func(s *sample, v []string) { s.Names = v }),
	schema.TimesField("times", func(s *sample) []time.Time { return s.Times }, func(s *sample, v []time.Time) { s.Times = v }),
	schema.ComplexesField("zs", func(s *sample) []complex128 { return s.Zs }, func(s *sample, v []complex128) { s.Zs = v }),
	schema.OptionalIntField("optCount", func(s *sample) *int64 { return s.OptCount }, func(s *sample, v *int64) { s.OptCount = v }),
	schema.OptionalBoolField("optFlag", func(s *sample) *bool { return s.OptFlag }, func(s *sample, v *bool) { s.OptFlag = v }),
	schema.OptionalTimeField("optAt", func(s *sample) *time.Time { return s.OptAt }, func(s *sample, v *time.Time) { s.OptAt = v }),
	schema.EmbeddedField("measure", measureType, func(s *sample) *measure { return &s.Measure }),
	schema.OptionalField("extra", measureType, func(s *sample) *measure { return s.Extra }, func(s *sample, v *measure) { s.Extra = v }),
	schema.OptionalField("attachment", attachmentType,
		func(s *sample) *attachment { return s.Attachment },
		func(s *sample, v *attachment) { s.Attachment = v },
		schema.InTable()),
	schema.ChildrenField("entries", entryType, func(s *sample) []*entry { return s.Entries }, (*sample).addEntry),
	schema.ChildrenField("plains", plainType, func(s *sample) []*plain { return s.Plains }, (*sample).addPlain),
)

// entry is identified by name and kind within its sample.
type entry struct {
	schema.Base
	Name  string
	Kind  string
	Value float64
	Notes []*note
}

func (*entry) Type() *schema.Type { return entryType }

func (e *entry) addNote(n *note) error {
	if err := schema.Attach(e, n); err != nil {
		return err
	}
	e.Notes = append(e.Notes, n)
	return nil
}

var entryType = schema.NewObjectType("Entry", func() *entry { return &entry{} },
	schema.StringField("name", func(e *entry) string { return e.Name }, func(e *entry, v string) { e.Name = v }, schema.AsIndex()),
	schema.StringField("kind", func(e *entry) string { return e.Kind }, func(e *entry, v string) { e.Kind = v }, schema.AsIndex()),
	schema.FloatField("value", func(e *entry) float64 { return e.Value }, func(e *entry, v float64) { e.Value = v }),
	schema.ChildrenField("notes", noteType, func(e *entry) []*note { return e.Notes }, (*entry).addNote),
)

type note struct {
	schema.PublicBase
	Text string
}

func (*note) Type() *schema.Type { return noteType }

var noteType = schema.NewPublicObjectType("Note", func() *note { return &note{} },
	schema.StringField("text", func(n *note) string { return n.Text }, func(n *note, v string) { n.Text = v }),
)

// plain has no index attributes.
type plain struct {
	schema.Base
	A string
	B int64
}

func (*plain) Type() *schema.Type { return plainType }

var plainType = schema.NewObjectType("Plain", func() *plain { return &plain{} },
	schema.StringField("a", func(p *plain) string { return p.A }, func(p *plain, v string) { p.A = v }),
	schema.IntField("b", func(p *plain) int64 { return p.B }, func(p *plain, v int64) { p.B = v }),
)

func testRegistry() *schema.Registry {
	return schema.NewRegistry(sampleType, entryType, noteType, plainType)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// bufferLogger returns a debug level logger writing to the returned buffer.
func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

// createTestArchive opens an archive with created tables on a fresh sqlite
// file. Statements are recorded by the returned driver.
func createTestArchive(t *testing.T, types *schema.Registry, opts ...Option) (*Archive, *testutil.RecordingDriver) {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	drv, err := dbdriver.Open(ctx, "sqlite3://"+path, dbdriver.WithLogger(discardLogger()))
	require.NoError(t, err)
	rec := testutil.NewRecordingDriver(drv)

	a, err := New(ctx, rec, types, append([]Option{WithLogger(discardLogger())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	require.NoError(t, a.CreateTables(ctx))
	rec.Reset()
	return a, rec
}

// rowCount counts the rows of table.
func rowCount(t *testing.T, a *Archive, table string) int64 {
	t.Helper()
	n, _, err := a.queryInt(context.Background(), "SELECT COUNT(*) FROM "+table)
	require.NoError(t, err)
	return n
}

func ptr[T any](v T) *T {
	return &v
}
