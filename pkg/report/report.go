// Package report renders a human-readable summary of a dataset's template,
// grounded in goneat's Handlebars-based assessment report
// (internal/assess/formatter.go's renderHandlebars), adapted from an HTML
// report to a short terminal-friendly one.
package report

import (
	"fmt"
	"strconv"

	"github.com/aymerick/raymond"

	"github.com/cairnfield/tempo/pkg/template"
)

const describeTemplate = `Dataset: {{Template}}
{{#if SingleFile}}  single file (no temporal placeholders)
{{else}}  base dir:    {{BaseDir}}
  resolution:  {{Resolution}}
  end rule:    {{EndSuperior}}
{{/if}}{{#if HasFields}}  placeholders:
{{#each Fields}}    {{Name}} ({{Kind}})
{{/each}}{{/if}}{{#if HasCache}}  cache:       {{CacheCount}} entries
{{/if}}`

type fieldRow struct {
	Name string
	Kind string
}

type describeData struct {
	Template    string
	SingleFile  bool
	BaseDir     string
	Resolution  string
	EndSuperior string
	HasFields   bool
	Fields      []fieldRow
	HasCache    bool
	CacheCount  string
}

// Describe renders a short report of m: base directory, time resolution,
// declared placeholders, and (if cacheCount >= 0) cache population, using a
// Handlebars template the same way goneat renders its assessment report.
// cacheCount is -1 when the dataset has no configured cache.
func Describe(m *template.Matcher, cacheCount int) (string, error) {
	data := describeData{
		Template:    m.Template,
		SingleFile:  m.SingleFile,
		BaseDir:     m.BaseDir,
		Resolution:  unitName(m.SubDirTimeResolution),
		EndSuperior: unitName(m.EndSuperior),
	}
	for _, f := range m.Fields {
		kind := "user"
		if f.IsTemporal {
			kind = "temporal:" + f.Base
		}
		data.Fields = append(data.Fields, fieldRow{Name: f.Name, Kind: kind})
	}
	data.HasFields = len(data.Fields) > 0

	if cacheCount >= 0 {
		data.HasCache = true
		data.CacheCount = strconv.Itoa(cacheCount)
	}

	out, err := raymond.Render(describeTemplate, data)
	if err != nil {
		return "", fmt.Errorf("tempo: rendering describe report: %w", err)
	}
	return out, nil
}

func unitName(u template.Unit) string {
	switch u {
	case template.UnitNone:
		return "none"
	case template.UnitMillisecond:
		return "millisecond"
	case template.UnitSecond:
		return "second"
	case template.UnitMinute:
		return "minute"
	case template.UnitHour:
		return "hour"
	case template.UnitDay:
		return "day"
	case template.UnitMonth:
		return "month"
	case template.UnitYear:
		return "year"
	default:
		return "unknown"
	}
}
