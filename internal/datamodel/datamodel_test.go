package datamodel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/dbarchive/internal/schema"
)

func TestRegistry_AllTypesConstructible(t *testing.T) {
	reg := Registry()

	names := make([]string, 0, len(reg.Types()))
	for _, typ := range reg.Types() {
		names = append(names, typ.Name())
		obj, err := reg.New(typ.Name())
		require.NoError(t, err)
		assert.Same(t, typ, obj.Type())
	}
	assert.Equal(t, []string{
		"EventParameters", "Pick", "Origin", "Arrival", "Comment",
		"Event", "OriginReference", "EventDescription",
	}, names)
}

func TestTypes_Identity(t *testing.T) {
	for _, typ := range []*schema.Type{EventParametersType, PickType, OriginType, EventType} {
		assert.True(t, typ.IsPublic(), typ.Name())
	}
	for _, typ := range []*schema.Type{ArrivalType, CommentType, OriginReferenceType, EventDescriptionType} {
		assert.False(t, typ.IsPublic(), typ.Name())
		assert.True(t, typ.HasIndex(), typ.Name())
	}

	quality, ok := OriginType.Field("quality")
	require.True(t, ok)
	assert.True(t, quality.HasHint(schema.HintTable))

	timeField, ok := TimeQuantityType.Field("value")
	require.True(t, ok)
	assert.True(t, timeField.HasHint(schema.HintSplitTime))
}

func TestEventParameters_DocumentRoundTrip(t *testing.T) {
	ep := &EventParameters{}
	ep.SetPublicID("EventParameters")

	origin := &Origin{
		Time:         TimeQuantity{Value: time.Date(1970, 1, 1, 0, 0, 0, 123456000, time.UTC)},
		Latitude:     RealQuantity{Value: 52.38},
		Longitude:    RealQuantity{Value: 13.06},
		Quality:      &OriginQuality{AssociatedPhaseCount: 12, UsedPhaseCount: 10},
		CreationInfo: &CreationInfo{AgencyID: "XX"},
	}
	origin.SetPublicID("Origin#19700101000000.000000.1")
	require.NoError(t, origin.AddArrival(&Arrival{PickID: "Pick/1", Phase: "P"}))
	require.NoError(t, ep.AddOrigin(origin))

	event := &Event{PreferredOriginID: origin.PublicID()}
	event.SetPublicID("Event/1")
	require.NoError(t, event.AddDescription(&EventDescription{Text: "Berlin", DescriptionType: "region name"}))
	require.NoError(t, ep.AddEvent(event))

	out, err := yaml.Marshal(schema.ToDocument(ep))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(out, &doc))

	obj, err := schema.FromDocument(EventParametersType, doc)
	require.NoError(t, err)
	got := obj.(*EventParameters)

	require.Len(t, got.Origins, 1)
	o := got.Origins[0]
	assert.Equal(t, "Origin#19700101000000.000000.1", o.PublicID())
	assert.True(t, origin.Time.Value.Equal(o.Time.Value))
	require.NotNil(t, o.Quality)
	assert.Equal(t, int64(12), o.Quality.AssociatedPhaseCount)
	require.NotNil(t, o.CreationInfo)
	assert.Equal(t, "XX", o.CreationInfo.AgencyID)
	assert.Nil(t, o.Depth)
	require.Len(t, o.Arrivals, 1)
	assert.Same(t, o, o.Arrivals[0].Parent())

	require.Len(t, got.Events, 1)
	require.Len(t, got.Events[0].Descriptions, 1)
	assert.Equal(t, "region name", got.Events[0].Descriptions[0].DescriptionType)
}
