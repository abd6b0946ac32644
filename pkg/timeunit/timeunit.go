// Package timeunit converts between integer timestamps, durations and
// calendar times, the way a scientific dataset's "<unit> since <epoch>"
// metadata does. The gregorian calendar has a direct-arithmetic fast path;
// other calendars must be supplied by the caller via the Calendar interface.
package timeunit

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cairnfield/tempo/pkg/tempoerr"
)

// Unit is one of the fixed-size time units a "<unit> since <epoch>" spec can
// name.
type Unit string

const (
	Nanoseconds  Unit = "nanoseconds"
	Microseconds Unit = "microseconds"
	Milliseconds Unit = "milliseconds"
	Seconds      Unit = "seconds"
	Minutes      Unit = "minutes"
	Hours        Unit = "hours"
	Days         Unit = "days"
)

// duration returns the time.Duration represented by one instance of u.
func (u Unit) duration() (time.Duration, error) {
	switch u {
	case Nanoseconds:
		return time.Nanosecond, nil
	case Microseconds:
		return time.Microsecond, nil
	case Milliseconds:
		return time.Millisecond, nil
	case Seconds:
		return time.Second, nil
	case Minutes:
		return time.Minute, nil
	case Hours:
		return time.Hour, nil
	case Days:
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: unrecognized unit %q", tempoerr.ErrInvalidUnit, u)
	}
}

// Spec is a parsed "<unit> since <epoch>" time-units declaration.
type Spec struct {
	Unit  Unit
	Epoch time.Time
}

// ParseTimeUnits parses a spec of the form "<unit> since <epoch>", e.g.
// "seconds since 1970-01-01 00:00:00" or "days since 2000-01-01".
func ParseTimeUnits(spec string) (Spec, error) {
	const sep = " since "
	idx := strings.Index(spec, sep)
	if idx < 0 {
		return Spec{}, fmt.Errorf("%w: malformed unit spec %q, expected \"<unit> since <epoch>\"", tempoerr.ErrInvalidUnit, spec)
	}
	unit := Unit(strings.TrimSpace(spec[:idx]))
	if _, err := unit.duration(); err != nil {
		return Spec{}, err
	}
	epochStr := strings.TrimSpace(spec[idx+len(sep):])
	epoch, err := ToTime(epochStr)
	if err != nil {
		return Spec{}, fmt.Errorf("%w: cannot parse epoch %q: %v", tempoerr.ErrInvalidUnit, epochStr, err)
	}
	return Spec{Unit: unit, Epoch: epoch}, nil
}

// Calendar abstracts the arithmetic needed to turn an integer offset into a
// calendar time. GregorianCalendar is the only implementation built in;
// callers needing another calendar system supply their own.
type Calendar interface {
	// Name identifies the calendar, e.g. "gregorian", "julian", "360_day".
	Name() string
	// FromOffset turns n units-of-d since epoch into a time.Time.
	FromOffset(epoch time.Time, n int64, d time.Duration) time.Time
	// ToOffset is the inverse of FromOffset, truncating toward epoch.
	ToOffset(epoch time.Time, t time.Time, d time.Duration) int64
}

// GregorianCalendar is the standard-calendar fast path: direct integer
// arithmetic on time.Time, which already uses a proleptic Gregorian
// calendar internally.
type GregorianCalendar struct{}

func (GregorianCalendar) Name() string { return "gregorian" }

func (GregorianCalendar) FromOffset(epoch time.Time, n int64, d time.Duration) time.Time {
	return epoch.Add(time.Duration(n) * d)
}

func (GregorianCalendar) ToOffset(epoch time.Time, t time.Time, d time.Duration) int64 {
	delta := t.Sub(epoch)
	return int64(delta / d) // truncates toward zero, i.e. toward epoch
}

// Num2Date converts integer offsets to calendar times using spec and an
// optional calendar (defaults to GregorianCalendar when cal is nil; a
// supplied Calendar is used as given). It fails only when spec.Unit has no
// fixed duration.
func Num2Date(values []int64, spec Spec, cal Calendar) ([]time.Time, error) {
	if cal == nil {
		cal = GregorianCalendar{}
	}
	d, err := spec.Unit.duration()
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(values))
	for i, v := range values {
		out[i] = cal.FromOffset(spec.Epoch, v, d)
	}
	return out, nil
}

// Date2Num is the inverse of Num2Date; offsets truncate toward the epoch.
func Date2Num(times []time.Time, spec Spec, cal Calendar) ([]int64, error) {
	if cal == nil {
		cal = GregorianCalendar{}
	}
	d, err := spec.Unit.duration()
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(times))
	for i, t := range times {
		out[i] = cal.ToOffset(spec.Epoch, t, d)
	}
	return out, nil
}

// layouts tried in order by ToTime for string inputs that aren't pure numbers.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000000",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ToTime accepts a time.Time, a Unix-epoch-seconds number, or an
// ISO-8601-like string and returns a time.Time.
func ToTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, fmt.Errorf("tempo: empty time string")
		}
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			whole := int64(secs)
			frac := secs - float64(whole)
			return time.Unix(whole, int64(frac*1e9)).UTC(), nil
		}
		var lastErr error
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			} else {
				lastErr = err
			}
		}
		return time.Time{}, fmt.Errorf("tempo: cannot parse time %q: %w", s, lastErr)
	case int64:
		return time.Unix(x, 0).UTC(), nil
	case int:
		return time.Unix(int64(x), 0).UTC(), nil
	case float64:
		whole := int64(x)
		frac := x - float64(whole)
		return time.Unix(whole, int64(frac*1e9)).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("tempo: unsupported time value of type %T", v)
	}
}

// ToDuration accepts a time.Duration, a number of seconds, or a "<n> <unit>"
// string (e.g. "3 hours", "90 minutes") and returns a time.Duration.
func ToDuration(v any) (time.Duration, error) {
	switch x := v.(type) {
	case time.Duration:
		return x, nil
	case int:
		return time.Duration(x) * time.Second, nil
	case int64:
		return time.Duration(x) * time.Second, nil
	case float64:
		return time.Duration(x * float64(time.Second)), nil
	case string:
		s := strings.TrimSpace(x)
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
		fields := strings.Fields(s)
		if len(fields) == 2 {
			n, err := strconv.ParseFloat(fields[0], 64)
			if err == nil {
				if d, err := Unit(normalizeUnitWord(fields[1])).duration(); err == nil {
					return time.Duration(n * float64(d)), nil
				}
			}
		}
		return 0, fmt.Errorf("tempo: cannot parse duration %q", s)
	default:
		return 0, fmt.Errorf("tempo: unsupported duration value of type %T", v)
	}
}

// normalizeUnitWord maps common pluralized/abbreviated duration words onto
// the Unit constants. Full spellings and the short forms "sec", "min" and
// "hr" are accepted, with or without a trailing "s"; there is no month unit,
// so "months" is rejected.
func normalizeUnitWord(w string) string {
	w = strings.ToLower(strings.TrimSuffix(w, "s"))
	switch w {
	case "nanosecond":
		return string(Nanoseconds)
	case "microsecond":
		return string(Microseconds)
	case "millisecond":
		return string(Milliseconds)
	case "second", "sec":
		return string(Seconds)
	case "minute", "min":
		return string(Minutes)
	case "hour", "hr":
		return string(Hours)
	case "day":
		return string(Days)
	default:
		return w
	}
}
