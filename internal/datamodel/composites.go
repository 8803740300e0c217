package datamodel

import (
	"time"

	"github.com/roach88/dbarchive/internal/schema"
)

// TimeQuantity is a point in time with an optional uncertainty in seconds.
type TimeQuantity struct {
	Value       time.Time
	Uncertainty *float64
}

// TimeQuantityType stores the value split into seconds and microseconds.
var TimeQuantityType = schema.NewType("TimeQuantity",
	schema.TimeField("value",
		func(q *TimeQuantity) time.Time { return q.Value },
		func(q *TimeQuantity, v time.Time) { q.Value = v },
		schema.SplitTime()),
	schema.OptionalFloatField("uncertainty",
		func(q *TimeQuantity) *float64 { return q.Uncertainty },
		func(q *TimeQuantity, v *float64) { q.Uncertainty = v }),
)

// RealQuantity is a measured value with an optional uncertainty.
type RealQuantity struct {
	Value       float64
	Uncertainty *float64
}

var RealQuantityType = schema.NewType("RealQuantity",
	schema.FloatField("value",
		func(q *RealQuantity) float64 { return q.Value },
		func(q *RealQuantity, v float64) { q.Value = v }),
	schema.OptionalFloatField("uncertainty",
		func(q *RealQuantity) *float64 { return q.Uncertainty },
		func(q *RealQuantity, v *float64) { q.Uncertainty = v }),
)

// CreationInfo records who created an object and when.
type CreationInfo struct {
	AgencyID     string
	Author       string
	CreationTime *time.Time
}

var CreationInfoType = schema.NewType("CreationInfo",
	schema.StringField("agencyID",
		func(c *CreationInfo) string { return c.AgencyID },
		func(c *CreationInfo, v string) { c.AgencyID = v }),
	schema.StringField("author",
		func(c *CreationInfo) string { return c.Author },
		func(c *CreationInfo, v string) { c.Author = v }),
	schema.OptionalTimeField("creationTime",
		func(c *CreationInfo) *time.Time { return c.CreationTime },
		func(c *CreationInfo, v *time.Time) { c.CreationTime = v }),
)

// WaveformStreamID names the channel a pick was made on.
type WaveformStreamID struct {
	NetworkCode  string
	StationCode  string
	LocationCode string
	ChannelCode  string
}

var WaveformStreamIDType = schema.NewType("WaveformStreamID",
	schema.StringField("networkCode",
		func(w *WaveformStreamID) string { return w.NetworkCode },
		func(w *WaveformStreamID, v string) { w.NetworkCode = v }),
	schema.StringField("stationCode",
		func(w *WaveformStreamID) string { return w.StationCode },
		func(w *WaveformStreamID, v string) { w.StationCode = v }),
	schema.StringField("locationCode",
		func(w *WaveformStreamID) string { return w.LocationCode },
		func(w *WaveformStreamID, v string) { w.LocationCode = v }),
	schema.StringField("channelCode",
		func(w *WaveformStreamID) string { return w.ChannelCode },
		func(w *WaveformStreamID, v string) { w.ChannelCode = v }),
)

// OriginQuality summarizes the phase data an origin was located with.
type OriginQuality struct {
	AssociatedPhaseCount int64
	UsedPhaseCount       int64
	StandardError        *float64
	AzimuthalGap         *float64
}

// OriginQualityType is stored in its own table and referenced by the origin.
var OriginQualityType = schema.NewType("OriginQuality",
	schema.IntField("associatedPhaseCount",
		func(q *OriginQuality) int64 { return q.AssociatedPhaseCount },
		func(q *OriginQuality, v int64) { q.AssociatedPhaseCount = v }),
	schema.IntField("usedPhaseCount",
		func(q *OriginQuality) int64 { return q.UsedPhaseCount },
		func(q *OriginQuality, v int64) { q.UsedPhaseCount = v }),
	schema.OptionalFloatField("standardError",
		func(q *OriginQuality) *float64 { return q.StandardError },
		func(q *OriginQuality, v *float64) { q.StandardError = v }),
	schema.OptionalFloatField("azimuthalGap",
		func(q *OriginQuality) *float64 { return q.AzimuthalGap },
		func(q *OriginQuality, v *float64) { q.AzimuthalGap = v }),
)
