package admin

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type formOption struct {
	Value    string
	Label    string
	Selected bool
}

type formField struct {
	Name        string
	Label       string
	Widget      string
	Value       string
	Placeholder string
	HelpText    string
	Error       string
	Required    bool
	ReadOnly    bool
	Checked     bool
	Options     []formOption
}

type detailRow struct {
	Label string
	Value string
}

type listCell struct {
	Value string
	Link  string
}

type listRow struct {
	ID        string
	Cells     []listCell
	EditURL   string
	DeleteURL string
}

// fieldSource yields the display value and checkbox state of a field.
type fieldSource func(f Field) (value string, checked bool)

func fromRecord(rec Record) fieldSource {
	return func(f Field) (string, bool) {
		v := rec[f.Name]
		return inputValue(f, v), truthy(v)
	}
}

// fromSubmission echoes submitted values back. Read-only fields are not
// submitted, so they fall back to the stored record when there is one.
func fromSubmission(raw url.Values, rec Record) fieldSource {
	return func(f Field) (string, bool) {
		if f.ReadOnly {
			if rec == nil {
				return "", false
			}
			return fromRecord(rec)(f)
		}
		_, present := raw[f.Name]
		return raw.Get(f.Name), present
	}
}

func buildFormFields(fields []Field, src fieldSource, errs FieldErrors) []formField {
	out := make([]formField, 0, len(fields))
	for _, f := range fields {
		value, checked := src(f)
		ff := formField{
			Name:        f.Name,
			Label:       f.Label,
			Widget:      widget(f.Type),
			Value:       value,
			Placeholder: f.Placeholder,
			HelpText:    f.HelpText,
			Error:       errs[f.Name],
			Required:    f.Required(),
			ReadOnly:    f.ReadOnly,
			Checked:     checked,
		}
		for _, ch := range f.Choices {
			ff.Options = append(ff.Options, formOption{Value: ch.Value, Label: ch.Label, Selected: ch.Value == value})
		}
		out = append(out, ff)
	}
	return out
}

func widget(t FieldType) string {
	switch t {
	case FieldNumber:
		return "number"
	case FieldBoolean:
		return "checkbox"
	case FieldDate:
		return "date"
	case FieldDatetime:
		return "datetime-local"
	case FieldSelect:
		return "select"
	case FieldTextarea:
		return "textarea"
	default:
		return "text"
	}
}

// detailRows lists the resource's columns followed by any form fields not
// already shown.
func detailRows(r *Resource, rec Record) []detailRow {
	seen := map[string]bool{}
	var rows []detailRow
	for _, col := range r.Columns() {
		seen[col.Name] = true
		rows = append(rows, detailRow{Label: col.Label, Value: formatValue(rec[col.Name])})
	}
	for _, f := range r.Fields() {
		if seen[f.Name] {
			continue
		}
		rows = append(rows, detailRow{Label: f.Label, Value: formatValue(rec[f.Name])})
	}
	return rows
}

func inputValue(f Field, v any) string {
	if t, ok := v.(time.Time); ok {
		switch f.Type {
		case FieldDate:
			return t.Format("2006-01-02")
		case FieldDatetime:
			return t.Format("2006-01-02T15:04")
		}
	}
	if b, ok := v.(bool); ok {
		return strconv.FormatBool(b)
	}
	return formatValue(v)
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case *time.Time:
		if val == nil {
			return ""
		}
		return val.Format("2006-01-02 15:04:05")
	case *string:
		if val == nil {
			return ""
		}
		return *val
	default:
		return fmt.Sprint(val)
	}
}

func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(val) {
		case "1", "true", "on", "yes":
			return true
		}
	case int:
		return val != 0
	case int64:
		return val != 0
	}
	return false
}
