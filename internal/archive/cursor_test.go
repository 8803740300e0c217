package archive

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dbarchive/internal/datamodel"
	"github.com/roach88/dbarchive/internal/schema"
)

func writePicks(t *testing.T, a *Archive, n int) []*datamodel.Pick {
	t.Helper()
	picks := make([]*datamodel.Pick, n)
	for i := range picks {
		p := &datamodel.Pick{
			Time:      datamodel.TimeQuantity{Value: time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC)},
			PhaseHint: "P",
		}
		p.SetPublicID(fmt.Sprintf("Pick/%d", i+1))
		require.NoError(t, a.Write(context.Background(), p, ""))
		picks[i] = p
	}
	return picks
}

func TestCursor_IteratesInStorageOrder(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	writePicks(t, a, 3)

	c, err := a.GetObjects(ctx, NoParent, datamodel.PickType, false)
	require.NoError(t, err)

	var ids []string
	for obj := range c.All() {
		ids = append(ids, obj.(*datamodel.Pick).PublicID())
	}
	require.NoError(t, c.Err())
	assert.Equal(t, []string{"Pick/1", "Pick/2", "Pick/3"}, ids)
	assert.Equal(t, 3, c.Count())
	assert.False(t, c.Next())
}

func TestCursor_SkipsCorruptRows(t *testing.T) {
	logger, logs := bufferLogger()
	a, _ := createTestArchive(t, datamodel.Registry(), WithLogger(logger))
	ctx := context.Background()
	picks := writePicks(t, a, 5)

	bad, ok := a.CachedID(picks[2])
	require.True(t, ok)
	require.NoError(t, a.Driver().Execute(ctx,
		fmt.Sprintf("UPDATE Pick SET m_time_value='not a time' WHERE _oid=%d", bad)))

	c, err := a.GetObjects(ctx, NoParent, datamodel.PickType, false)
	require.NoError(t, err)

	var got []string
	for c.Next() {
		got = append(got, c.Object().(*datamodel.Pick).PublicID())
	}
	require.NoError(t, c.Err())
	assert.Equal(t, []string{"Pick/1", "Pick/2", "Pick/4", "Pick/5"}, got)
	assert.Equal(t, 4, c.Count())
	assert.Contains(t, logs.String(), "skipping unreadable row")
}

func TestCursor_ExposesRowMetadata(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	ep := &datamodel.EventParameters{}
	ep.SetPublicID("EventParameters")
	pick := &datamodel.Pick{}
	pick.SetPublicID("Pick/1")
	require.NoError(t, ep.AddPick(pick))
	_, err := a.AddTree(ctx, ep, "")
	require.NoError(t, err)

	epID, _ := a.CachedID(ep)
	pickID, _ := a.CachedID(pick)

	c, err := a.GetObjects(ctx, ParentObject(ep), datamodel.PickType, false)
	require.NoError(t, err)
	defer c.Close()

	require.True(t, c.Next())
	assert.Equal(t, pickID, c.OID())
	assert.Equal(t, epID, c.ParentOID())
	assert.False(t, c.LastModified().IsZero())
	assert.False(t, c.Next())
}

func TestCursor_ReleasedByNewQuery(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	writePicks(t, a, 2)

	c, err := a.GetObjects(ctx, NoParent, datamodel.PickType, false)
	require.NoError(t, err)
	require.True(t, c.Next())

	n, err := a.GetObjectCount(ctx, NoParent, datamodel.PickType)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.False(t, c.Next())
	assert.ErrorIs(t, c.Err(), errCursorSuperseded)
	assert.Nil(t, c.Object())
	assert.NoError(t, c.Close())
}

func TestCursor_BreakClosesResultSet(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	writePicks(t, a, 3)

	c, err := a.GetObjects(ctx, NoParent, datamodel.PickType, false)
	require.NoError(t, err)
	for range c.All() {
		break
	}
	assert.False(t, c.Next())
	assert.NoError(t, c.Err())

	// The driver is free for the next query
	n, err := a.GetObjectCount(ctx, NoParent, datamodel.PickType)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCursor_CacheLookupReturnsResidentInstance(t *testing.T) {
	objects := schema.NewObjectRegistry()
	a, _ := createTestArchive(t, datamodel.Registry(),
		WithObjectRegistry(objects),
		WithPublicObjectCacheLookup(true))
	ctx := context.Background()
	picks := writePicks(t, a, 1)
	assert.Same(t, picks[0], objects.Find("Pick/1"))

	c, err := a.GetObjects(ctx, NoParent, datamodel.PickType, false)
	require.NoError(t, err)
	defer c.Close()

	require.True(t, c.Next())
	assert.Same(t, picks[0], c.Object())
}

func TestCursor_WithoutCacheLookupConstructsNewInstance(t *testing.T) {
	objects := schema.NewObjectRegistry()
	a, _ := createTestArchive(t, datamodel.Registry(), WithObjectRegistry(objects))
	ctx := context.Background()
	picks := writePicks(t, a, 1)

	c, err := a.GetObjects(ctx, NoParent, datamodel.PickType, false)
	require.NoError(t, err)
	defer c.Close()

	require.True(t, c.Next())
	assert.NotSame(t, picks[0], c.Object())
	assert.Equal(t, "Pick/1", c.Object().(*datamodel.Pick).PublicID())
}

func TestGetObjects_IgnorePublicObjectJoin(t *testing.T) {
	a, rec := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	writePicks(t, a, 1)
	rec.Reset()

	c, err := a.GetObjects(ctx, NoParent, datamodel.PickType, true)
	require.NoError(t, err)
	defer c.Close()

	require.True(t, c.Next())
	assert.Equal(t, "", c.Object().(*datamodel.Pick).PublicID())
	stmts := rec.Statements()
	require.Len(t, stmts, 1)
	assert.NotContains(t, stmts[0], "PublicObject")
	assert.True(t, strings.HasSuffix(stmts[0], "ORDER BY Pick._oid"))
}

func TestGetObjects_MissingParent(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()

	_, err := a.GetObjects(ctx, ParentPublicID("EventParameters/missing"), datamodel.PickType, false)
	assert.True(t, IsMissingParent(err))

	_, err = a.GetObjectCount(ctx, ParentPublicID("EventParameters/missing"), datamodel.PickType)
	assert.True(t, IsMissingParent(err))
}

func TestQueryObjects_CustomQuery(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())
	ctx := context.Background()
	writePicks(t, a, 4)

	c, err := a.QueryObjects(ctx, datamodel.PickType,
		"SELECT PublicObject.m_publicID, Pick.* FROM Pick, PublicObject"+
			" WHERE PublicObject._oid=Pick._oid AND Pick.m_time_value>='2024-01-01 00:00:02' ORDER BY Pick._oid")
	require.NoError(t, err)

	var ids []string
	for obj := range c.All() {
		ids = append(ids, obj.(*datamodel.Pick).PublicID())
	}
	assert.Equal(t, []string{"Pick/3", "Pick/4"}, ids)

	obj, err := a.QueryObject(ctx, datamodel.PickType, "SELECT * FROM Pick WHERE m_phaseHint='P' ORDER BY _oid DESC")
	require.NoError(t, err)
	assert.True(t, obj.(*datamodel.Pick).Time.Value.Equal(time.Date(2024, 1, 1, 0, 0, 3, 0, time.UTC)))

	_, err = a.QueryObject(ctx, datamodel.PickType, "SELECT * FROM Pick WHERE m_phaseHint='S'")
	assert.True(t, IsNotFound(err))
}

func TestQueryObjects_UnregisteredType(t *testing.T) {
	a, _ := createTestArchive(t, datamodel.Registry())

	_, err := a.QueryObjects(context.Background(), sampleType, "SELECT * FROM Sample")
	assert.Equal(t, ErrCodeInvalidObject, CodeOf(err))
}
