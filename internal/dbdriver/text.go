package dbdriver

import (
	"fmt"
	"time"
)

// ColumnPrefix is prepended to attribute column names so they can never
// collide with SQL keywords or the underscore-led pseudo columns.
const ColumnPrefix = "m_"

// TimeLayout is the canonical textual timestamp form. Fractional seconds are
// written with up to microsecond precision and omitted when zero.
const TimeLayout = "2006-01-02 15:04:05.999999"

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02",
}

// FormatTime renders t in UTC using TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts the canonical form as well as the renderings
// database/sql backends produce for native timestamp columns.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// ConvertColumnName maps an attribute column name to its stored form.
func ConvertColumnName(name string) string {
	return ColumnPrefix + name
}
