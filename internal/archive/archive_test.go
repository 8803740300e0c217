package archive

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dbarchive/internal/datamodel"
	"github.com/roach88/dbarchive/internal/schema"
)

func TestVersion_ParseCompare(t *testing.T) {
	v, err := ParseVersion("1.2")
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 1, Minor: 2}, v)
	assert.Equal(t, "1.2", v.String())

	v, err = ParseVersion("3")
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 3}, v)

	_, err = ParseVersion("one")
	assert.Error(t, err)

	assert.Equal(t, 1, Version{1, 1}.Compare(Version{1, 0}))
	assert.Equal(t, -1, Version{0, 9}.Compare(Version{1, 0}))
	assert.Equal(t, 0, CurrentVersion.Compare(CurrentVersion))
}

func TestOpen_FreshDatabaseHasNoVersion(t *testing.T) {
	ctx := context.Background()
	source := "sqlite3://" + filepath.Join(t.TempDir(), "fresh.db")

	a, err := Open(ctx, source, testRegistry(), WithLogger(discardLogger()))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, Version{}, a.SchemaVersion())
	require.NoError(t, a.CreateTables(ctx))
	assert.Equal(t, CurrentVersion, a.SchemaVersion())
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	ctx := context.Background()
	source := "sqlite3://" + filepath.Join(t.TempDir(), "versioned.db")

	a, err := Open(ctx, source, testRegistry(), WithLogger(discardLogger()))
	require.NoError(t, err)
	require.NoError(t, a.CreateTables(ctx))
	require.NoError(t, a.Close())

	_, err = Open(ctx, source, testRegistry(), WithLogger(discardLogger()), WithSupportedVersion(Version{Major: 0, Minor: 9}))
	require.Error(t, err)
	assert.True(t, IsSchemaVersion(err))

	// Older stored versions are accepted
	b, err := Open(ctx, source, testRegistry(), WithLogger(discardLogger()), WithSupportedVersion(Version{Major: 1, Minor: 1}))
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, b.SchemaVersion())
	require.NoError(t, b.Close())
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	_, err := Open(context.Background(), "oracle://db", testRegistry(), WithLogger(discardLogger()))
	require.Error(t, err)
	assert.Equal(t, ErrCodeDriver, CodeOf(err))
}

func newFullSample() *sample {
	s := &sample{
		Count:    -7,
		Ratio:    -0.125,
		Flag:     true,
		Name:     "O'Brien",
		At:       time.Date(1970, 1, 1, 0, 0, 0, 123456000, time.UTC),
		Seen:     time.Date(2024, 2, 29, 23, 59, 59, 999999000, time.UTC),
		Z:        complex(1.5, -2),
		Ints:     []int64{1, -2, 3},
		Floats:   []float64{0.5, -1e-9},
		Names:    []string{"a b", "it's", ""},
		Times:    []time.Time{time.Date(2020, 1, 2, 3, 4, 5, 6000, time.UTC)},
		Zs:       []complex128{complex(0, 1)},
		OptCount: ptr(int64(12)),
		OptFlag:  ptr(false),
		OptAt:    ptr(time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC)),
		Measure:  measure{Value: 3.25, Uncertainty: ptr(0.5)},
		Extra:    &measure{Value: -1},
		Attachment: &attachment{
			Size:  4096,
			Label: "scan.png",
		},
	}
	s.SetPublicID("Sample/1")
	return s
}

func TestWrite_GetObjectRoundTrip(t *testing.T) {
	a, _ := createTestArchive(t, testRegistry())
	ctx := context.Background()
	want := newFullSample()

	require.NoError(t, a.Write(ctx, want, ""))

	obj, err := a.GetObject(ctx, sampleType, "Sample/1")
	require.NoError(t, err)
	got := obj.(*sample)
	require.NotSame(t, want, got)

	assert.Equal(t, "Sample/1", got.PublicID())
	assert.Equal(t, want.Count, got.Count)
	assert.Equal(t, want.Ratio, got.Ratio)
	assert.Equal(t, want.Flag, got.Flag)
	assert.Equal(t, "O'Brien", got.Name)
	assert.True(t, want.At.Equal(got.At), "split time: got %v", got.At)
	assert.True(t, want.Seen.Equal(got.Seen), "time: got %v", got.Seen)
	assert.Equal(t, want.Z, got.Z)
	assert.Equal(t, want.Ints, got.Ints)
	assert.Equal(t, want.Floats, got.Floats)
	assert.Equal(t, want.Names, got.Names)
	require.Len(t, got.Times, 1)
	assert.True(t, want.Times[0].Equal(got.Times[0]))
	assert.Equal(t, want.Zs, got.Zs)
	assert.Equal(t, want.OptCount, got.OptCount)
	assert.Equal(t, want.OptFlag, got.OptFlag)
	require.NotNil(t, got.OptAt)
	assert.True(t, want.OptAt.Equal(*got.OptAt))
	assert.Equal(t, want.Measure, got.Measure)
	assert.Equal(t, want.Extra, got.Extra)
	assert.Equal(t, want.Attachment, got.Attachment)
	assert.False(t, got.LastModified().IsZero())

	id, ok := a.CachedID(got)
	require.True(t, ok)
	wantID, _ := a.CachedID(want)
	assert.Equal(t, wantID, id)
}

func TestWrite_GetObjectAbsentValues(t *testing.T) {
	a, _ := createTestArchive(t, testRegistry())
	ctx := context.Background()
	want := &sample{Name: ""}
	want.SetPublicID("Sample/empty")

	require.NoError(t, a.Write(ctx, want, ""))

	obj, err := a.GetObject(ctx, sampleType, "Sample/empty")
	require.NoError(t, err)
	got := obj.(*sample)

	assert.Nil(t, got.OptCount)
	assert.Nil(t, got.OptFlag)
	assert.Nil(t, got.OptAt)
	assert.Nil(t, got.Extra)
	assert.Nil(t, got.Attachment)
	assert.Nil(t, got.Measure.Uncertainty)
	assert.Empty(t, got.Names)
	assert.Empty(t, got.Ints)
	assert.Equal(t, "", got.Name)
}

func TestWrite_NonFiniteFloatsReadBackAsNaN(t *testing.T) {
	a, _ := createTestArchive(t, testRegistry())
	ctx := context.Background()
	want := &sample{Ratio: math.NaN(), Measure: measure{Value: math.Inf(1)}}
	want.SetPublicID("Sample/nan")

	require.NoError(t, a.Write(ctx, want, ""))

	obj, err := a.GetObject(ctx, sampleType, "Sample/nan")
	require.NoError(t, err)
	got := obj.(*sample)
	assert.True(t, math.IsNaN(got.Ratio))
	assert.True(t, math.IsNaN(got.Measure.Value))

	c, err := a.GetObjects(ctx, NoParent, sampleType, false)
	require.NoError(t, err)
	var n int
	for range c.All() {
		n++
	}
	require.NoError(t, c.Err())
	assert.Equal(t, 1, n)
}

func TestGetObject_NotFound(t *testing.T) {
	a, _ := createTestArchive(t, testRegistry())

	_, err := a.GetObject(context.Background(), sampleType, "Sample/missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var ae *Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "Sample/missing", ae.PublicID)
}

func TestGetObject_RejectsNonPublicType(t *testing.T) {
	a, _ := createTestArchive(t, testRegistry())

	_, err := a.GetObject(context.Background(), entryType, "x")
	assert.Equal(t, ErrCodeInvalidObject, CodeOf(err))
}

func newOrigin() *datamodel.Origin {
	o := &datamodel.Origin{
		Time:         datamodel.TimeQuantity{Value: time.Date(1970, 1, 1, 0, 0, 0, 123456000, time.UTC)},
		CreationInfo: &datamodel.CreationInfo{AgencyID: "XX"},
	}
	o.SetPublicID("Origin#19700101000000.000000.1")
	return o
}

func TestOrigin_SimpleRoundTrip(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	origin := newOrigin()

	require.NoError(t, a.Write(ctx, origin, ""))

	obj, err := a.GetObject(ctx, datamodel.OriginType, "Origin#19700101000000.000000.1")
	require.NoError(t, err)
	got := obj.(*datamodel.Origin)

	require.NotNil(t, got.CreationInfo)
	assert.Equal(t, "XX", got.CreationInfo.AgencyID)
	assert.True(t, origin.Time.Value.Equal(got.Time.Value), "got %v", got.Time.Value)
	assert.Equal(t, 123456000, got.Time.Value.Nanosecond())
	assert.Nil(t, got.Depth)
	assert.Nil(t, got.Quality)
}

func TestUpdate_ChangesOnlyTargetedColumns(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	origin := newOrigin()
	require.NoError(t, a.Write(ctx, origin, ""))

	origin.CreationInfo.AgencyID = "YY"
	require.NoError(t, a.Update(ctx, origin, ""))

	obj, err := a.GetObject(ctx, datamodel.OriginType, origin.PublicID())
	require.NoError(t, err)
	got := obj.(*datamodel.Origin)
	assert.Equal(t, "YY", got.CreationInfo.AgencyID)
	assert.True(t, origin.Time.Value.Equal(got.Time.Value))
}

func TestUpdate_ByPublicIDWithoutCache(t *testing.T) {
	a, rec := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	origin := newOrigin()
	require.NoError(t, a.Write(ctx, origin, ""))
	a.EvictID(origin)
	rec.Reset()

	origin.MethodID = "LOCSAT"
	require.NoError(t, a.Update(ctx, origin, ""))

	assert.NotEmpty(t, rec.Matching("SELECT _oid FROM PublicObject"))
	obj, err := a.GetObject(ctx, datamodel.OriginType, origin.PublicID())
	require.NoError(t, err)
	assert.Equal(t, "LOCSAT", obj.(*datamodel.Origin).MethodID)
}

func TestUpdate_UnstoredPublicObject(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())

	err := a.Update(context.Background(), newOrigin(), "")
	assert.True(t, IsNotFound(err))
}

func TestCache_CoherentAcrossWriteUpdateDestroy(t *testing.T) {
	a, rec := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	pick := &datamodel.Pick{PhaseHint: "P"}
	pick.SetPublicID("Pick/1")

	require.NoError(t, a.Write(ctx, pick, ""))
	id, ok := a.CachedID(pick)
	require.True(t, ok)
	assert.Equal(t, 1, a.CacheSize())

	rec.Reset()
	pick.PhaseHint = "S"
	require.NoError(t, a.Update(ctx, pick, ""))

	stmts := rec.Statements()
	require.Len(t, stmts, 1, "update must not resolve the identifier again: %v", stmts)
	assert.True(t, strings.HasPrefix(stmts[0], "UPDATE Pick SET "))
	assert.True(t, strings.HasSuffix(stmts[0], " WHERE _oid="+strconv.FormatInt(id, 10)))

	schema.Destroy(pick)
	_, ok = a.CachedID(pick)
	assert.False(t, ok)
	assert.Equal(t, 0, a.CacheSize())
}

func TestClose_DetachesCacheFromObjects(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	pick := &datamodel.Pick{PhaseHint: "P"}
	pick.SetPublicID("Pick/1")
	require.NoError(t, a.Write(ctx, pick, ""))
	require.Equal(t, 1, a.CacheSize())
	watcher := a.cache.watcher

	require.NoError(t, a.Close())
	assert.Equal(t, 0, a.CacheSize())
	assert.Nil(t, watcher.cache, "objects cached before close must not reach the cache")
	assert.NotSame(t, watcher, a.cache.watcher)

	assert.NotPanics(t, func() { schema.Destroy(pick) })
	assert.Equal(t, 0, a.CacheSize())
}

func TestRemove_Idempotent(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	pick := &datamodel.Pick{}
	pick.SetPublicID("Pick/1")
	require.NoError(t, a.Write(ctx, pick, ""))

	require.NoError(t, a.Remove(ctx, pick, ""))
	assert.Equal(t, int64(0), rowCount(t, a, "Pick"))
	assert.Equal(t, int64(0), rowCount(t, a, "PublicObject"))
	assert.Equal(t, int64(0), rowCount(t, a, "Object"))
	_, ok := a.CachedID(pick)
	assert.False(t, ok)

	require.NoError(t, a.Remove(ctx, pick, ""))
}

func TestWrite_DuplicatePublicID(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	first := &datamodel.Pick{}
	first.SetPublicID("Pick/1")
	second := &datamodel.Pick{}
	second.SetPublicID("Pick/1")

	require.NoError(t, a.Write(ctx, first, ""))
	err := a.Write(ctx, second, "")
	assert.True(t, IsDuplicate(err))
	assert.Equal(t, int64(1), rowCount(t, a, "Object"))
}

func TestWrite_PublicObjectWithoutID(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())

	err := a.Write(context.Background(), &datamodel.Pick{}, "")
	assert.Equal(t, ErrCodeInvalidObject, CodeOf(err))
}

func TestWrite_MissingParent(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())

	err := a.Write(context.Background(), &datamodel.Arrival{PickID: "Pick/1"}, "Origin/missing")
	assert.True(t, IsMissingParent(err))
	assert.Equal(t, int64(0), rowCount(t, a, "Object"))
}

func TestWrite_CompensatesFailedInsert(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	require.NoError(t, a.Driver().Execute(ctx, "DROP TABLE Pick"))

	pick := &datamodel.Pick{}
	pick.SetPublicID("Pick/1")
	err := a.Write(ctx, pick, "")

	require.Error(t, err)
	assert.Equal(t, ErrCodeDriver, CodeOf(err))
	assert.True(t, strings.HasPrefix(LastQuery(err), "INSERT INTO Pick("), LastQuery(err))
	assert.Equal(t, int64(0), rowCount(t, a, "PublicObject"))
	assert.Equal(t, int64(0), rowCount(t, a, "Object"))
	_, ok := a.CachedID(pick)
	assert.False(t, ok)
}

func TestWrite_DetachedChildWithParentID(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	origin := newOrigin()
	require.NoError(t, a.Write(ctx, origin, ""))

	arrival := &datamodel.Arrival{PickID: "Pick/1", Phase: "P"}
	require.NoError(t, a.Write(ctx, arrival, origin.PublicID()))

	n, err := a.GetObjectCount(ctx, ParentPublicID(origin.PublicID()), datamodel.ArrivalType)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpdate_NaturalKeyKeepsIndexColumns(t *testing.T) {
	a, rec := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	origin := newOrigin()
	arrival := &datamodel.Arrival{PickID: "Pick/1", Phase: "P"}
	require.NoError(t, origin.AddArrival(arrival))
	_, err := a.AddTree(ctx, origin, "")
	require.NoError(t, err)

	a.EvictID(arrival)
	rec.Reset()
	arrival.Phase = "S"
	require.NoError(t, a.Update(ctx, arrival, ""))

	updates := rec.Matching("UPDATE Arrival SET ")
	require.Len(t, updates, 1)
	set, where, ok := strings.Cut(updates[0], " WHERE ")
	require.True(t, ok)
	assert.NotContains(t, set, "m_pickID")
	assert.Contains(t, set, "m_phase='S'")
	assert.Contains(t, where, "m_pickID='Pick/1'")
	assert.Contains(t, where, "_parent_oid=")

	c, err := a.GetObjects(ctx, ParentObject(origin), datamodel.ArrivalType, false)
	require.NoError(t, err)
	require.True(t, c.Next())
	assert.Equal(t, "S", c.Object().(*datamodel.Arrival).Phase)
	c.Close()
}

func TestUpdate_MissingParent(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())

	err := a.Update(context.Background(), &datamodel.Arrival{PickID: "Pick/1"}, "Origin/missing")
	assert.True(t, IsMissingParent(err))
}

func TestUpdate_WithoutDataAttributesIsNoop(t *testing.T) {
	a, rec := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	ref := &datamodel.OriginReference{OriginID: "Origin/1"}
	event := &datamodel.Event{}
	event.SetPublicID("Event/1")
	require.NoError(t, event.AddOriginReference(ref))
	_, err := a.AddTree(ctx, event, "")
	require.NoError(t, err)

	a.EvictID(ref)
	rec.Reset()
	require.NoError(t, a.Update(ctx, ref, ""))
	assert.Empty(t, rec.Matching("UPDATE"))
}

func TestUpdate_UnstoredNonPublicObjectMatchesNothing(t *testing.T) {
	a, rec := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	origin := &datamodel.Origin{}
	origin.SetPublicID("Origin/1")
	require.NoError(t, a.Write(ctx, origin, ""))

	arrival := &datamodel.Arrival{PickID: "Pick/1", Phase: "P"}
	require.NoError(t, origin.AddArrival(arrival))
	rec.Reset()

	require.NoError(t, a.Update(ctx, arrival, ""))
	assert.Len(t, rec.Matching("UPDATE Arrival SET"), 1)
	assert.Equal(t, int64(0), rowCount(t, a, "Arrival"))
	_, cached := a.CachedID(arrival)
	assert.False(t, cached)
}

func TestTableComposite_ReplacedAndRemoved(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	origin := newOrigin()
	origin.Quality = &datamodel.OriginQuality{AssociatedPhaseCount: 12, UsedPhaseCount: 10, StandardError: ptr(0.8)}

	require.NoError(t, a.Write(ctx, origin, ""))
	assert.Equal(t, int64(1), rowCount(t, a, "OriginQuality"))

	origin.Quality.UsedPhaseCount = 9
	require.NoError(t, a.Update(ctx, origin, ""))
	assert.Equal(t, int64(1), rowCount(t, a, "OriginQuality"))

	obj, err := a.GetObject(ctx, datamodel.OriginType, origin.PublicID())
	require.NoError(t, err)
	got := obj.(*datamodel.Origin)
	require.NotNil(t, got.Quality)
	assert.Equal(t, int64(12), got.Quality.AssociatedPhaseCount)
	assert.Equal(t, int64(9), got.Quality.UsedPhaseCount)
	assert.Equal(t, ptr(0.8), got.Quality.StandardError)
	assert.Nil(t, got.Quality.AzimuthalGap)

	origin.Quality = nil
	require.NoError(t, a.Update(ctx, origin, ""))
	assert.Equal(t, int64(0), rowCount(t, a, "OriginQuality"))

	origin.Quality = &datamodel.OriginQuality{UsedPhaseCount: 3}
	require.NoError(t, a.Update(ctx, origin, ""))
	require.NoError(t, a.Remove(ctx, origin, ""))
	assert.Equal(t, int64(0), rowCount(t, a, "OriginQuality"))
}

func TestObjectID_DuplicateNaturalKeyReturnsFirst(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	origin := newOrigin()
	first := &datamodel.Arrival{PickID: "Pick/1", Phase: "P"}
	second := &datamodel.Arrival{PickID: "Pick/1", Phase: "S"}
	require.NoError(t, origin.AddArrival(first))
	require.NoError(t, origin.AddArrival(second))

	_, err := a.AddTree(ctx, origin, "")
	require.NoError(t, err)

	firstID, ok := a.CachedID(first)
	require.True(t, ok)
	secondID, ok := a.CachedID(second)
	require.True(t, ok)
	require.NotEqual(t, firstID, secondID)

	id, found, err := a.ObjectID(ctx, second, "")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, firstID, id)
}

func TestObjectID_FallsBackToAllAttributes(t *testing.T) {
	a, rec := createTestArchive(t, testRegistry())
	ctx := context.Background()
	s := &sample{}
	s.SetPublicID("Sample/1")
	p := &plain{A: "x", B: 2}
	require.NoError(t, s.addPlain(p))
	_, err := a.AddTree(ctx, s, "")
	require.NoError(t, err)

	rec.Reset()
	id, found, err := a.ObjectID(ctx, p, "")
	require.NoError(t, err)
	require.True(t, found)
	cached, _ := a.CachedID(p)
	assert.Equal(t, cached, id)

	selects := rec.Matching("SELECT _oid FROM Plain")
	require.Len(t, selects, 1)
	assert.Contains(t, selects[0], "m_a='x'")
	assert.Contains(t, selects[0], "m_b=2")
}

func TestParentPublicID(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	ep := &datamodel.EventParameters{}
	ep.SetPublicID("EventParameters")
	pick := &datamodel.Pick{}
	pick.SetPublicID("Pick/1")
	require.NoError(t, ep.AddPick(pick))
	_, err := a.AddTree(ctx, ep, "")
	require.NoError(t, err)

	id, ok, err := a.ParentPublicID(ctx, pick)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "EventParameters", id)

	_, ok, err = a.ParentPublicID(ctx, ep)
	require.NoError(t, err)
	assert.False(t, ok)
}
