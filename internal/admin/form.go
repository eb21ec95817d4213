package admin

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Validation messages shown next to form fields.
const (
	MsgRequired      = "This field is required."
	MsgInvalidNumber = "Must be a number."
	MsgInvalidChoice = "Invalid choice."
)

// decimalNumber accepts plain decimal notation with an optional sign,
// fraction and exponent. Hex floats, digit separators, NaN and Inf are
// rejected even though strconv would parse them.
var decimalNumber = regexp.MustCompile(`^[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?$`)

// FieldErrors maps a field name to its single validation message.
type FieldErrors map[string]string

// ValidateForm checks a raw submission against fields. Read-only fields are
// skipped. Each field reports at most one message, checked in order:
// required, number, select choice.
func ValidateForm(fields []Field, raw url.Values) FieldErrors {
	errs := FieldErrors{}
	for _, f := range fields {
		if f.ReadOnly {
			continue
		}
		value := strings.TrimSpace(raw.Get(f.Name))

		if f.Required() && f.Type != FieldBoolean && value == "" {
			errs[f.Name] = MsgRequired
			continue
		}
		if value == "" {
			continue
		}

		switch f.Type {
		case FieldNumber:
			if _, ok := parseNumber(value); !ok {
				errs[f.Name] = MsgInvalidNumber
			}
		case FieldSelect:
			if !hasChoice(f.Choices, value) {
				errs[f.Name] = MsgInvalidChoice
			}
		}
	}
	return errs
}

// CoerceForm converts a submission that passed ValidateForm into typed
// values. Booleans are true when the field name is present at all. Numbers
// become int64 unless they carry a decimal point or exponent, or overflow,
// in which case they become float64. Blank values are nil for optional
// fields and "" for required ones.
func CoerceForm(fields []Field, raw url.Values) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if f.ReadOnly {
			continue
		}
		if f.Type == FieldBoolean {
			_, present := raw[f.Name]
			out[f.Name] = present
			continue
		}

		value := strings.TrimSpace(raw.Get(f.Name))
		if value == "" {
			if f.Required() {
				out[f.Name] = ""
			} else {
				out[f.Name] = nil
			}
			continue
		}

		if f.Type == FieldNumber {
			if n, ok := parseNumber(value); ok {
				out[f.Name] = n
				continue
			}
		}
		out[f.Name] = value
	}
	return out
}

func parseNumber(s string) (any, bool) {
	if !decimalNumber.MatchString(s) {
		return nil, false
	}
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return f, true
}

func hasChoice(choices []Choice, value string) bool {
	for _, c := range choices {
		if c.Value == value {
			return true
		}
	}
	return false
}
