package archive

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/dbarchive/internal/schema"
	"github.com/roach88/dbarchive/internal/sqlstmt"
)

// timeFormatter is the part of the driver the codec needs.
type timeFormatter interface {
	TimeToString(t time.Time) string
	StringToTime(s string) (time.Time, error)
}

// renderValue converts v into an SQL literal. It returns nil for values
// stored as NULL.
func renderValue(v schema.Value, tf timeFormatter) *string {
	var s string
	switch v := v.(type) {
	case nil, schema.Null:
		return nil
	case schema.Int:
		s = strconv.FormatInt(int64(v), 10)
	case schema.Float:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		s = strconv.FormatFloat(f, 'g', -1, 64)
	case schema.Bool:
		if v {
			s = "'1'"
		} else {
			s = "'0'"
		}
	case schema.String:
		s = sqlstmt.Quote(string(v))
	case schema.Time:
		s = sqlstmt.Quote(tf.TimeToString(time.Time(v)))
	default:
		s = sqlstmt.Quote(encodeText(v))
	}
	return &s
}

// encodeText renders complex and vector values into their single column
// textual form. Vector elements are separated by a blank.
func encodeText(v schema.Value) string {
	switch v := v.(type) {
	case schema.Complex:
		return formatComplex(complex128(v))
	case schema.Ints:
		parts := make([]string, len(v))
		for i, n := range v {
			parts[i] = strconv.FormatInt(n, 10)
		}
		return strings.Join(parts, " ")
	case schema.Floats:
		parts := make([]string, len(v))
		for i, f := range v {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return strings.Join(parts, " ")
	case schema.Strings:
		parts := make([]string, len(v))
		for i, s := range v {
			parts[i] = strconv.Quote(s)
		}
		return strings.Join(parts, " ")
	case schema.Times:
		parts := make([]string, len(v))
		for i, t := range v {
			parts[i] = t.UTC().Format(time.RFC3339Nano)
		}
		return strings.Join(parts, " ")
	case schema.Complexes:
		parts := make([]string, len(v))
		for i, c := range v {
			parts[i] = formatComplex(c)
		}
		return strings.Join(parts, " ")
	default:
		panic(fmt.Sprintf("archive: no text encoding for %T", v))
	}
}

func formatComplex(c complex128) string {
	return "(" + strconv.FormatFloat(real(c), 'g', -1, 64) + "," + strconv.FormatFloat(imag(c), 'g', -1, 64) + ")"
}

func parseComplex(s string) (complex128, error) {
	inner, ok := strings.CutPrefix(s, "(")
	if ok {
		inner, ok = strings.CutSuffix(inner, ")")
	}
	if !ok {
		return 0, fmt.Errorf("invalid complex %q", s)
	}
	re, im, ok := strings.Cut(inner, ",")
	if !ok {
		return 0, fmt.Errorf("invalid complex %q", s)
	}
	r, err := strconv.ParseFloat(strings.TrimSpace(re), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid complex %q: %w", s, err)
	}
	i, err := strconv.ParseFloat(strings.TrimSpace(im), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid complex %q: %w", s, err)
	}
	return complex(r, i), nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes":
		return true, nil
	case "0", "f", "false", "n", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// parseValue is the inverse of renderValue for the raw field text returned
// by the driver.
func parseValue(kind schema.Kind, raw string, tf timeFormatter) (schema.Value, error) {
	switch kind {
	case schema.KindInt:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, err
		}
		return schema.Int(n), nil
	case schema.KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, err
		}
		return schema.Float(f), nil
	case schema.KindBool:
		b, err := parseBool(raw)
		if err != nil {
			return nil, err
		}
		return schema.Bool(b), nil
	case schema.KindString:
		return schema.String(raw), nil
	case schema.KindTime:
		t, err := tf.StringToTime(raw)
		if err != nil {
			return nil, err
		}
		return schema.Time(t), nil
	case schema.KindComplex:
		c, err := parseComplex(raw)
		if err != nil {
			return nil, err
		}
		return schema.Complex(c), nil
	case schema.KindInts:
		fields := strings.Fields(raw)
		out := make([]int64, len(fields))
		for i, f := range fields {
			n, err := strconv.ParseInt(f, 10, 64)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return schema.Ints(out), nil
	case schema.KindFloats:
		fields := strings.Fields(raw)
		out := make([]float64, len(fields))
		for i, f := range fields {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return schema.Floats(out), nil
	case schema.KindStrings:
		out, err := parseQuotedList(raw)
		if err != nil {
			return nil, err
		}
		return schema.Strings(out), nil
	case schema.KindTimes:
		fields := strings.Fields(raw)
		out := make([]time.Time, len(fields))
		for i, f := range fields {
			t, err := time.Parse(time.RFC3339Nano, f)
			if err != nil {
				return nil, err
			}
			out[i] = t.UTC()
		}
		return schema.Times(out), nil
	case schema.KindComplexes:
		fields := strings.Fields(raw)
		out := make([]complex128, len(fields))
		for i, f := range fields {
			c, err := parseComplex(f)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return schema.Complexes(out), nil
	}
	return nil, fmt.Errorf("cannot parse %s attribute", kind)
}

// parseQuotedList splits a blank separated list of Go quoted strings.
func parseQuotedList(raw string) ([]string, error) {
	out := []string{}
	rest := strings.TrimLeft(raw, " ")
	for rest != "" {
		q, err := strconv.QuotedPrefix(rest)
		if err != nil {
			return nil, fmt.Errorf("invalid string list %q: %w", raw, err)
		}
		s, err := strconv.Unquote(q)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
		rest = strings.TrimLeft(rest[len(q):], " ")
	}
	return out, nil
}
