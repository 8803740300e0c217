package datamodel

import (
	"github.com/roach88/dbarchive/internal/schema"
)

// EventParameters is the root of a bulletin. It owns picks, origins and
// events.
type EventParameters struct {
	schema.PublicBase
	Picks   []*Pick
	Origins []*Origin
	Events  []*Event
}

func (*EventParameters) Type() *schema.Type { return EventParametersType }

// AddPick makes p a child of ep.
func (ep *EventParameters) AddPick(p *Pick) error {
	if err := schema.Attach(ep, p); err != nil {
		return err
	}
	ep.Picks = append(ep.Picks, p)
	return nil
}

// AddOrigin makes o a child of ep.
func (ep *EventParameters) AddOrigin(o *Origin) error {
	if err := schema.Attach(ep, o); err != nil {
		return err
	}
	ep.Origins = append(ep.Origins, o)
	return nil
}

// AddEvent makes e a child of ep.
func (ep *EventParameters) AddEvent(e *Event) error {
	if err := schema.Attach(ep, e); err != nil {
		return err
	}
	ep.Events = append(ep.Events, e)
	return nil
}

// Pick is a phase onset picked on one waveform stream.
type Pick struct {
	schema.PublicBase
	Time         TimeQuantity
	WaveformID   WaveformStreamID
	PhaseHint    string
	CreationInfo *CreationInfo
}

func (*Pick) Type() *schema.Type { return PickType }

// Origin is a hypocenter solution.
type Origin struct {
	schema.PublicBase
	Time         TimeQuantity
	Latitude     RealQuantity
	Longitude    RealQuantity
	Depth        *RealQuantity
	MethodID     string
	Quality      *OriginQuality
	CreationInfo *CreationInfo
	Arrivals     []*Arrival
	Comments     []*Comment
}

func (*Origin) Type() *schema.Type { return OriginType }

// AddArrival makes a a child of o.
func (o *Origin) AddArrival(a *Arrival) error {
	if err := schema.Attach(o, a); err != nil {
		return err
	}
	o.Arrivals = append(o.Arrivals, a)
	return nil
}

// AddComment makes c a child of o.
func (o *Origin) AddComment(c *Comment) error {
	if err := schema.Attach(o, c); err != nil {
		return err
	}
	o.Comments = append(o.Comments, c)
	return nil
}

// Arrival associates a pick with an origin. It is identified by the pick
// within its origin.
type Arrival struct {
	schema.Base
	PickID       string
	Phase        string
	Distance     *float64
	Azimuth      *float64
	TimeResidual *float64
	Weight       *float64
}

func (*Arrival) Type() *schema.Type { return ArrivalType }

// Comment is free text attached to an origin.
type Comment struct {
	schema.Base
	ID   string
	Text string
}

func (*Comment) Type() *schema.Type { return CommentType }

// Event groups the origins describing one earthquake.
type Event struct {
	schema.PublicBase
	PreferredOriginID string
	EventType         string
	CreationInfo      *CreationInfo
	OriginReferences  []*OriginReference
	Descriptions      []*EventDescription
}

func (*Event) Type() *schema.Type { return EventType }

// AddOriginReference makes r a child of e.
func (e *Event) AddOriginReference(r *OriginReference) error {
	if err := schema.Attach(e, r); err != nil {
		return err
	}
	e.OriginReferences = append(e.OriginReferences, r)
	return nil
}

// AddDescription makes d a child of e.
func (e *Event) AddDescription(d *EventDescription) error {
	if err := schema.Attach(e, d); err != nil {
		return err
	}
	e.Descriptions = append(e.Descriptions, d)
	return nil
}

// OriginReference links an event to one of its origins.
type OriginReference struct {
	schema.Base
	OriginID string
}

func (*OriginReference) Type() *schema.Type { return OriginReferenceType }

// EventDescription is a named description of an event, identified by its
// text and type together.
type EventDescription struct {
	schema.Base
	Text            string
	DescriptionType string
}

func (*EventDescription) Type() *schema.Type { return EventDescriptionType }
