package admin

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

var formFields = []Field{
	{Name: "name", Type: FieldText},
	{Name: "age", Type: FieldNumber, Optional: true},
	{Name: "score", Type: FieldNumber},
	{Name: "role", Type: FieldSelect, Choices: []Choice{{"admin", "Admin"}, {"user", "User"}}},
	{Name: "active", Type: FieldBoolean},
	{Name: "bio", Type: FieldTextarea, Optional: true},
	{Name: "created_at", Type: FieldDatetime, ReadOnly: true},
}

func TestValidateForm(t *testing.T) {
	cases := map[string]struct {
		raw  url.Values
		want FieldErrors
	}{
		"valid": {
			raw:  url.Values{"name": {"Alice"}, "score": {"1.5"}, "role": {"admin"}},
			want: FieldErrors{},
		},
		"blank required wins over type checks": {
			raw:  url.Values{"name": {"   "}, "score": {""}, "role": {""}},
			want: FieldErrors{"name": MsgRequired, "score": MsgRequired, "role": MsgRequired},
		},
		"bad number and choice": {
			raw:  url.Values{"name": {"A"}, "age": {"ten"}, "score": {"NaN"}, "role": {"root"}},
			want: FieldErrors{"age": MsgInvalidNumber, "score": MsgInvalidNumber, "role": MsgInvalidChoice},
		},
		"infinite numbers are rejected": {
			raw:  url.Values{"name": {"A"}, "score": {"1e400"}, "role": {"user"}},
			want: FieldErrors{"score": MsgInvalidNumber},
		},
		"non-decimal notations are rejected": {
			raw:  url.Values{"name": {"A"}, "age": {"0x1p-2"}, "score": {"1_000"}, "role": {"user"}},
			want: FieldErrors{"age": MsgInvalidNumber, "score": MsgInvalidNumber},
		},
		"inf spelled out is rejected": {
			raw:  url.Values{"name": {"A"}, "score": {"Inf"}, "role": {"user"}},
			want: FieldErrors{"score": MsgInvalidNumber},
		},
		"required boolean may be absent": {
			raw:  url.Values{"name": {"A"}, "score": {"-3"}, "role": {"user"}},
			want: FieldErrors{},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidateForm(formFields, tc.raw))
		})
	}
}

func TestCoerceForm(t *testing.T) {
	raw := url.Values{
		"name":       {"  Alice "},
		"age":        {""},
		"score":      {"42"},
		"role":       {"user"},
		"active":     {""},
		"created_at": {"2020-01-01T00:00"},
	}
	got := CoerceForm(formFields, raw)

	assert.Equal(t, map[string]any{
		"name":   "Alice",
		"age":    nil,
		"score":  int64(42),
		"role":   "user",
		"active": true,
		"bio":    nil,
	}, got)
}

func TestCoerceNumbers(t *testing.T) {
	fields := []Field{{Name: "n", Type: FieldNumber}}
	cases := map[string]any{
		"7":                    int64(7),
		"-12":                  int64(-12),
		"2.50":                 2.5,
		"1e3":                  1000.0,
		"1E-2":                 0.01,
		"99999999999999999999": 1e20,
		"0x10":                 "0x10",
	}
	for in, want := range cases {
		got := CoerceForm(fields, url.Values{"n": {in}})
		assert.Equal(t, want, got["n"], in)
	}
}

func TestCoerceRequiredBlankIsEmptyString(t *testing.T) {
	got := CoerceForm([]Field{{Name: "title"}}, url.Values{})
	assert.Equal(t, "", got["title"])
	_, hasBool := CoerceForm([]Field{{Name: "flag", Type: FieldBoolean}}, url.Values{})["flag"]
	assert.True(t, hasBool)
}

func TestSelectChoices(t *testing.T) {
	fields := []Field{{Name: "role", Type: FieldSelect, Choices: []Choice{{"admin", "Admin"}, {"user", "User"}}}}
	assert.Equal(t, MsgInvalidChoice, ValidateForm(fields, url.Values{"role": {"root"}})["role"])
	assert.Empty(t, ValidateForm(fields, url.Values{"role": {"admin"}}))
}
