package datamodel

import (
	"github.com/roach88/dbarchive/internal/schema"
)

var ArrivalType = schema.NewObjectType("Arrival", func() *Arrival { return &Arrival{} },
	schema.StringField("pickID",
		func(a *Arrival) string { return a.PickID },
		func(a *Arrival, v string) { a.PickID = v },
		schema.AsIndex()),
	schema.StringField("phase",
		func(a *Arrival) string { return a.Phase },
		func(a *Arrival, v string) { a.Phase = v }),
	schema.OptionalFloatField("distance",
		func(a *Arrival) *float64 { return a.Distance },
		func(a *Arrival, v *float64) { a.Distance = v }),
	schema.OptionalFloatField("azimuth",
		func(a *Arrival) *float64 { return a.Azimuth },
		func(a *Arrival, v *float64) { a.Azimuth = v }),
	schema.OptionalFloatField("timeResidual",
		func(a *Arrival) *float64 { return a.TimeResidual },
		func(a *Arrival, v *float64) { a.TimeResidual = v }),
	schema.OptionalFloatField("weight",
		func(a *Arrival) *float64 { return a.Weight },
		func(a *Arrival, v *float64) { a.Weight = v }),
)

var CommentType = schema.NewObjectType("Comment", func() *Comment { return &Comment{} },
	schema.StringField("id",
		func(c *Comment) string { return c.ID },
		func(c *Comment, v string) { c.ID = v },
		schema.AsIndex()),
	schema.StringField("text",
		func(c *Comment) string { return c.Text },
		func(c *Comment, v string) { c.Text = v }),
)

var OriginReferenceType = schema.NewObjectType("OriginReference", func() *OriginReference { return &OriginReference{} },
	schema.StringField("originID",
		func(r *OriginReference) string { return r.OriginID },
		func(r *OriginReference, v string) { r.OriginID = v },
		schema.AsIndex()),
)

var EventDescriptionType = schema.NewObjectType("EventDescription", func() *EventDescription { return &EventDescription{} },
	schema.StringField("text",
		func(d *EventDescription) string { return d.Text },
		func(d *EventDescription, v string) { d.Text = v },
		schema.AsIndex()),
	schema.StringField("type",
		func(d *EventDescription) string { return d.DescriptionType },
		func(d *EventDescription, v string) { d.DescriptionType = v },
		schema.AsIndex()),
)

var PickType = schema.NewPublicObjectType("Pick", func() *Pick { return &Pick{} },
	schema.EmbeddedField("time", TimeQuantityType, func(p *Pick) *TimeQuantity { return &p.Time }),
	schema.EmbeddedField("waveformID", WaveformStreamIDType, func(p *Pick) *WaveformStreamID { return &p.WaveformID }),
	schema.StringField("phaseHint",
		func(p *Pick) string { return p.PhaseHint },
		func(p *Pick, v string) { p.PhaseHint = v }),
	schema.OptionalField("creationInfo", CreationInfoType,
		func(p *Pick) *CreationInfo { return p.CreationInfo },
		func(p *Pick, v *CreationInfo) { p.CreationInfo = v }),
)

var OriginType = schema.NewPublicObjectType("Origin", func() *Origin { return &Origin{} },
	schema.EmbeddedField("time", TimeQuantityType, func(o *Origin) *TimeQuantity { return &o.Time }),
	schema.EmbeddedField("latitude", RealQuantityType, func(o *Origin) *RealQuantity { return &o.Latitude }),
	schema.EmbeddedField("longitude", RealQuantityType, func(o *Origin) *RealQuantity { return &o.Longitude }),
	schema.OptionalField("depth", RealQuantityType,
		func(o *Origin) *RealQuantity { return o.Depth },
		func(o *Origin, v *RealQuantity) { o.Depth = v }),
	schema.StringField("methodID",
		func(o *Origin) string { return o.MethodID },
		func(o *Origin, v string) { o.MethodID = v }),
	schema.OptionalField("quality", OriginQualityType,
		func(o *Origin) *OriginQuality { return o.Quality },
		func(o *Origin, v *OriginQuality) { o.Quality = v },
		schema.InTable()),
	schema.OptionalField("creationInfo", CreationInfoType,
		func(o *Origin) *CreationInfo { return o.CreationInfo },
		func(o *Origin, v *CreationInfo) { o.CreationInfo = v }),
	schema.ChildrenField("arrivals", ArrivalType, func(o *Origin) []*Arrival { return o.Arrivals }, (*Origin).AddArrival),
	schema.ChildrenField("comments", CommentType, func(o *Origin) []*Comment { return o.Comments }, (*Origin).AddComment),
)

var EventType = schema.NewPublicObjectType("Event", func() *Event { return &Event{} },
	schema.StringField("preferredOriginID",
		func(e *Event) string { return e.PreferredOriginID },
		func(e *Event, v string) { e.PreferredOriginID = v }),
	schema.StringField("type",
		func(e *Event) string { return e.EventType },
		func(e *Event, v string) { e.EventType = v }),
	schema.OptionalField("creationInfo", CreationInfoType,
		func(e *Event) *CreationInfo { return e.CreationInfo },
		func(e *Event, v *CreationInfo) { e.CreationInfo = v }),
	schema.ChildrenField("originReferences", OriginReferenceType,
		func(e *Event) []*OriginReference { return e.OriginReferences }, (*Event).AddOriginReference),
	schema.ChildrenField("descriptions", EventDescriptionType,
		func(e *Event) []*EventDescription { return e.Descriptions }, (*Event).AddDescription),
)

var EventParametersType = schema.NewPublicObjectType("EventParameters", func() *EventParameters { return &EventParameters{} },
	schema.ChildrenField("picks", PickType,
		func(ep *EventParameters) []*Pick { return ep.Picks }, (*EventParameters).AddPick),
	schema.ChildrenField("origins", OriginType,
		func(ep *EventParameters) []*Origin { return ep.Origins }, (*EventParameters).AddOrigin),
	schema.ChildrenField("events", EventType,
		func(ep *EventParameters) []*Event { return ep.Events }, (*EventParameters).AddEvent),
)

// Registry returns a registry of all object types, roots first.
func Registry() *schema.Registry {
	return schema.NewRegistry(
		EventParametersType,
		PickType,
		OriginType,
		ArrivalType,
		CommentType,
		EventType,
		OriginReferenceType,
		EventDescriptionType,
	)
}
