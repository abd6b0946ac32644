// Package template compiles path templates — a mix of literal path
// separators, glob wildcards, and temporal/user placeholders — into
// structured matchers that can render a filename from a time interval and
// attribute set, and parse a filename back into one.
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cairnfield/tempo/pkg/pattern"
	"github.com/cairnfield/tempo/pkg/tempoerr"
)

// specialChars are the characters that mark a template component as
// "templated" rather than a plain literal path segment.
const specialChars = "{*[\\<(?!|"

// Unit ranks temporal placeholder coarseness, finest to coarsest.
type Unit int

const (
	UnitNone Unit = iota
	UnitMillisecond
	UnitSecond
	UnitMinute
	UnitHour
	UnitDay
	UnitMonth
	UnitYear
)

var allUnitsAscending = []Unit{UnitMillisecond, UnitSecond, UnitMinute, UnitHour, UnitDay, UnitMonth, UnitYear}

func unitOfBase(base string) Unit {
	switch base {
	case "millisecond":
		return UnitMillisecond
	case "second":
		return UnitSecond
	case "minute":
		return UnitMinute
	case "hour":
		return UnitHour
	case "day", "doy":
		return UnitDay
	case "month":
		return UnitMonth
	case "year", "year2":
		return UnitYear
	default:
		return UnitNone
	}
}

func regexOfBase(base string) string {
	switch base {
	case "year":
		return `\d{4}`
	case "year2":
		return `\d{2}`
	case "month", "day", "hour", "minute", "second":
		return `\d{2}`
	case "doy", "millisecond":
		return `\d{3}`
	default:
		return ""
	}
}

// recognizeTemporal reports whether name is a temporal placeholder (one of
// the fixed set, optionally prefixed with "end_"), and if so its base name
// and end-ness.
func recognizeTemporal(name string) (isTemporal bool, base string, isEnd bool) {
	base = name
	if strings.HasPrefix(name, "end_") {
		base = name[len("end_"):]
		isEnd = true
	}
	switch base {
	case "year", "year2", "month", "day", "doy", "hour", "minute", "second", "millisecond":
		return true, base, isEnd
	default:
		return false, name, false
	}
}

var placeholderNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// FieldSpec describes one distinct (first-occurrence) placeholder captured
// by a compiled Matcher.
type FieldSpec struct {
	Name       string
	Base       string
	IsEnd      bool
	IsTemporal bool
	Unit       Unit
	Zone       string // "subdir" or "filename"
}

// ChunkMatcher is the compiled form of a single path component (one
// subdirectory level, or the filename).
type ChunkMatcher struct {
	Raw        string
	Source     string // unanchored regexp source for this component
	Regex      *regexp.Regexp
	HasSpecial bool
	FinestUnit Unit
}

// Matcher is the compiled form of a path template.
type Matcher struct {
	Template             string
	BaseDir              string
	SubDirChunks         []*ChunkMatcher
	FilenameChunk        *ChunkMatcher
	Full                 *regexp.Regexp
	Fields               []FieldSpec
	SubDirTimeResolution Unit
	EndSuperior          Unit
	SingleFile           bool
}

// IsTemporal reports whether the template carries any temporal placeholder.
func (m *Matcher) IsTemporal() bool {
	for _, f := range m.Fields {
		if f.IsTemporal {
			return true
		}
	}
	return false
}

// UserAttrs returns the subset of captures that are user placeholders
// (i.e. not one of the fixed temporal fields), for attaching to a FileInfo.
func (m *Matcher) UserAttrs(captures map[string]string) map[string]string {
	temporal := make(map[string]bool, len(m.Fields))
	for _, f := range m.Fields {
		if f.IsTemporal {
			temporal[f.Name] = true
		}
	}
	out := make(map[string]string, len(captures))
	for k, v := range captures {
		if !temporal[k] {
			out[k] = v
		}
	}
	return out
}

func containsSpecial(s string) bool {
	return strings.ContainsAny(s, specialChars)
}

// Compile translates tmpl (and its user-supplied placeholder regexes) into
// a Matcher. A template containing none of the special characters
// `{ * [ \ < ( ? ! |` is treated as a single-file dataset (spec.md §3).
func Compile(tmpl string, userPlaceholders map[string]string) (*Matcher, error) {
	if tmpl == "" {
		return nil, fmt.Errorf("%w: empty template", tempoerr.ErrInvalidTemplate)
	}
	if !containsSpecial(tmpl) {
		return &Matcher{Template: tmpl, SingleFile: true}, nil
	}

	parts := strings.Split(tmpl, "/")
	i := 0
	for i < len(parts)-1 && !containsSpecial(parts[i]) {
		i++
	}
	baseDir := strings.Join(parts[:i], "/")
	remaining := parts[i:]
	subDirRaw := remaining[:len(remaining)-1]
	filenameRaw := remaining[len(remaining)-1]

	seen := make(map[string]bool)
	var fields []FieldSpec

	subDirChunks := make([]*ChunkMatcher, 0, len(subDirRaw))
	for _, raw := range subDirRaw {
		cm, err := compileChunk(raw, userPlaceholders, seen, &fields, "subdir")
		if err != nil {
			return nil, err
		}
		subDirChunks = append(subDirChunks, cm)
	}
	filenameChunk, err := compileChunk(filenameRaw, userPlaceholders, seen, &fields, "filename")
	if err != nil {
		return nil, err
	}

	fullParts := make([]string, 0, len(subDirChunks)+2)
	if baseDir != "" {
		fullParts = append(fullParts, regexp.QuoteMeta(baseDir))
	}
	for _, c := range subDirChunks {
		fullParts = append(fullParts, c.Source)
	}
	fullParts = append(fullParts, filenameChunk.Source)
	full, err := regexp.Compile("^" + strings.Join(fullParts, "/") + "$")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tempoerr.ErrInvalidTemplate, err)
	}

	subDirRes := UnitNone
	for _, c := range subDirChunks {
		if c.FinestUnit != UnitNone && (subDirRes == UnitNone || c.FinestUnit < subDirRes) {
			subDirRes = c.FinestUnit
		}
	}

	return &Matcher{
		Template:             tmpl,
		BaseDir:              baseDir,
		SubDirChunks:         subDirChunks,
		FilenameChunk:        filenameChunk,
		Full:                 full,
		Fields:               fields,
		SubDirTimeResolution: subDirRes,
		EndSuperior:          computeEndSuperior(fields),
	}, nil
}

func compileChunk(raw string, userPlaceholders map[string]string, seen map[string]bool, fields *[]FieldSpec, zone string) (*ChunkMatcher, error) {
	var src strings.Builder
	finest := UnitNone
	hasSpecial := containsSpecial(raw)

	i := 0
	for i < len(raw) {
		c := raw[i]
		switch {
		case c == '{':
			end := strings.IndexByte(raw[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated placeholder in %q", tempoerr.ErrInvalidTemplate, raw)
			}
			name := raw[i+1 : i+end]
			if !placeholderNameRe.MatchString(name) {
				return nil, fmt.Errorf("%w: invalid placeholder name %q", tempoerr.ErrInvalidTemplate, name)
			}
			isTemporal, base, isEnd := recognizeTemporal(name)
			var fieldRegex string
			if isTemporal {
				fieldRegex = regexOfBase(base)
			} else {
				fieldRegex = userPlaceholders[name]
				if fieldRegex == "" {
					fieldRegex = `.*?`
				}
				if _, err := regexp.Compile(fieldRegex); err != nil {
					return nil, fmt.Errorf("%w: placeholder %q: %v", tempoerr.ErrPlaceholderRegex, name, err)
				}
			}
			if !seen[name] {
				seen[name] = true
				src.WriteString(fmt.Sprintf("(?P<%s>%s)", name, fieldRegex))
				unit := UnitNone
				if isTemporal {
					unit = unitOfBase(base)
					if zone == "subdir" && (finest == UnitNone || unit < finest) {
						finest = unit
					}
				}
				*fields = append(*fields, FieldSpec{
					Name: name, Base: base, IsEnd: isEnd,
					IsTemporal: isTemporal, Unit: unit, Zone: zone,
				})
			} else {
				// A placeholder's later occurrences must refer back to the
				// first capture. RE2 (Go's regexp engine) has no
				// backreferences, so we re-emit the same pattern
				// non-capturing rather than enforcing textual equality.
				src.WriteString(fmt.Sprintf("(?:%s)", fieldRegex))
			}
			i += end + 1
		case c == '*':
			src.WriteString(".*?")
			i++
		default:
			start := i
			for i < len(raw) && raw[i] != '{' && raw[i] != '*' {
				i++
			}
			lit, err := pattern.GlobToRegexp(escapeForGlob(raw[start:i]))
			if err != nil {
				// empty literal runs are harmless no-ops between tokens
				lit = ""
			}
			src.WriteString(lit)
		}
	}

	re, err := regexp.Compile("^" + src.String() + "$")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tempoerr.ErrInvalidTemplate, err)
	}
	return &ChunkMatcher{
		Raw: raw, Source: src.String(), Regex: re,
		HasSpecial: hasSpecial, FinestUnit: finest,
	}, nil
}

// escapeForGlob substitutes a single space for an empty literal run, which
// pattern.GlobToRegexp would reject. compileChunk only calls it with a
// non-empty run (adjacent placeholders produce no literal run at all), so the
// substitute is never emitted in practice.
func escapeForGlob(s string) string {
	if s == "" {
		return " "
	}
	return s
}

// computeEndSuperior finds the roll-forward unit for an end time that comes
// out earlier than the start time: the unit one step coarser than the
// coarsest end_* placeholder present, per the original's
// _get_superior_time_resolution (run over end_time_placeholders only, never
// over the full placeholder set). A template with no end_* placeholders, or
// whose coarsest end_* placeholder is already the coarsest unit (year), has
// no superior unit to roll forward into.
func computeEndSuperior(fields []FieldSpec) Unit {
	coarsestEnd := UnitNone
	for _, f := range fields {
		if !f.IsTemporal || !f.IsEnd {
			continue
		}
		if f.Unit > coarsestEnd {
			coarsestEnd = f.Unit
		}
	}
	if coarsestEnd == UnitNone {
		return UnitNone
	}
	for i, u := range allUnitsAscending {
		if u == coarsestEnd {
			if i+1 < len(allUnitsAscending) {
				return allUnitsAscending[i+1]
			}
			return UnitNone
		}
	}
	return UnitNone
}

func addUnit(t time.Time, u Unit) time.Time {
	switch u {
	case UnitMillisecond:
		return t.Add(time.Millisecond)
	case UnitSecond:
		return t.Add(time.Second)
	case UnitMinute:
		return t.Add(time.Minute)
	case UnitHour:
		return t.Add(time.Hour)
	case UnitDay:
		return t.AddDate(0, 0, 1)
	case UnitMonth:
		return t.AddDate(0, 1, 0)
	case UnitYear:
		return t.AddDate(1, 0, 0)
	default:
		return t
	}
}

var placeholderTokenRe = regexp.MustCompile(`\{[A-Za-z_][A-Za-z0-9_]*\}`)

// Render fills tmpl's placeholders using t0 (non-end_ placeholders) and t1
// (end_ placeholders) plus attrs (user placeholders). It fails with
// ErrUnknownPlaceholder if a user placeholder has no value, or with
// ErrUnfilledPlaceholder if any special character remains afterward.
func (m *Matcher) Render(t0, t1 time.Time, attrs map[string]string) (string, error) {
	var renderErr error
	out := placeholderTokenRe.ReplaceAllStringFunc(m.Template, func(tok string) string {
		if renderErr != nil {
			return tok
		}
		name := tok[1 : len(tok)-1]
		if isTemporal, base, isEnd := recognizeTemporal(name); isTemporal {
			return formatTemporal(base, isEnd, t0, t1)
		}
		val, ok := attrs[name]
		if !ok {
			renderErr = fmt.Errorf("%w: %q", tempoerr.ErrUnknownPlaceholder, name)
			return tok
		}
		return val
	})
	if renderErr != nil {
		return "", renderErr
	}
	if containsSpecial(out) {
		return "", fmt.Errorf("%w: %q", tempoerr.ErrUnfilledPlaceholder, out)
	}
	return out, nil
}

func formatTemporal(base string, isEnd bool, t0, t1 time.Time) string {
	t := t0
	if isEnd {
		t = t1
	}
	switch base {
	case "year":
		return fmt.Sprintf("%04d", t.Year())
	case "year2":
		return fmt.Sprintf("%02d", t.Year()%100)
	case "month":
		return fmt.Sprintf("%02d", int(t.Month()))
	case "day":
		return fmt.Sprintf("%02d", t.Day())
	case "doy":
		return fmt.Sprintf("%03d", t.YearDay())
	case "hour":
		return fmt.Sprintf("%02d", t.Hour())
	case "minute":
		return fmt.Sprintf("%02d", t.Minute())
	case "second":
		return fmt.Sprintf("%02d", t.Second())
	case "millisecond":
		return fmt.Sprintf("%03d", t.Nanosecond()/1_000_000)
	default:
		return ""
	}
}

// Parse matches path (relative to the dataset root, including BaseDir)
// against the compiled Full regex and returns the named captures.
func (m *Matcher) Parse(path string) (map[string]string, error) {
	match := m.Full.FindStringSubmatch(path)
	if match == nil {
		return nil, fmt.Errorf("tempo: path %q does not match template %q", path, m.Template)
	}
	names := m.Full.SubexpNames()
	out := make(map[string]string, len(names))
	for i, n := range names {
		if n == "" {
			continue
		}
		out[n] = match[i]
	}
	return out, nil
}

// ToTimeRange builds the (start, end) time coverage implied by captures,
// per spec.md §4.3. Non-temporal templates should not call this; callers
// should consult Matcher.IsTemporal first.
func (m *Matcher) ToTimeRange(captures map[string]string) (time.Time, time.Time, error) {
	start := make(map[string]int)
	for name, val := range captures {
		isTemporal, base, isEnd := recognizeTemporal(name)
		if !isTemporal || isEnd {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("tempo: field %q: %w", name, err)
		}
		start[base] = n
	}
	end := make(map[string]int, len(start))
	for k, v := range start {
		end[k] = v
	}
	for name, val := range captures {
		isTemporal, base, isEnd := recognizeTemporal(name)
		if !isTemporal || !isEnd {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("tempo: field %q: %w", name, err)
		}
		end[base] = n
	}

	t0 := resolveFields(start)
	t1 := resolveFields(end)
	if t1.Before(t0) {
		if m.EndSuperior == UnitNone {
			return t0, t1, tempoerr.ErrUnfixableInterval
		}
		t1 = addUnit(t1, m.EndSuperior)
	}
	return t0, t1, nil
}

func resolveFields(f map[string]int) time.Time {
	year, hasYear := f["year"]
	if !hasYear {
		if y2, ok := f["year2"]; ok {
			if y2 >= 65 {
				year = 1900 + y2
			} else {
				year = 2000 + y2
			}
		}
	}
	month := f["month"]
	day := f["day"]
	if doy, ok := f["doy"]; ok && doy > 0 {
		base := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1)
		month = int(base.Month())
		day = base.Day()
	} else if day == 0 {
		day = 1
	}
	if month == 0 {
		month = 1
	}
	hour := f["hour"]
	minute := f["minute"]
	second := f["second"]
	ms := f["millisecond"]
	return time.Date(year, time.Month(month), day, hour, minute, second, ms*1_000_000, time.UTC)
}
