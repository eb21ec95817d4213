package admin

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Resource construction errors.
var (
	ErrInvalidSlug          = errors.New("admin: resource name must be a lowercase slug")
	ErrEmptyColumnList      = errors.New("admin: resource needs at least one list column")
	ErrEmptyFieldList       = errors.New("admin: resource needs at least one form field")
	ErrMissingIDField       = errors.New("admin: id field must name a column or a form field")
	ErrSelectMissingChoices = errors.New("admin: select field needs at least one choice")
	ErrInvalidPageSize      = errors.New("admin: page size must be positive")
	ErrUnknownFieldType     = errors.New("admin: unknown field type")
	ErrInvalidFieldName     = errors.New("admin: field and column names must not be empty")
	ErrMissingDAO           = errors.New("admin: resource needs a DAO")
)

// DefaultPageSize applies when a resource does not set one.
const DefaultPageSize = 25

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// FieldType selects the form widget and the validation applied to a field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldBoolean  FieldType = "boolean"
	FieldDate     FieldType = "date"
	FieldDatetime FieldType = "datetime"
	FieldSelect   FieldType = "select"
	FieldTextarea FieldType = "textarea"
)

func (t FieldType) valid() bool {
	switch t {
	case FieldText, FieldNumber, FieldBoolean, FieldDate, FieldDatetime, FieldSelect, FieldTextarea:
		return true
	}
	return false
}

// Choice is one option of a select field.
type Choice struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

// Field describes one form input. Fields are required unless Optional is set.
type Field struct {
	Name        string    `yaml:"name"`
	Label       string    `yaml:"label"`
	Type        FieldType `yaml:"type"`
	Optional    bool      `yaml:"optional"`
	Choices     []Choice  `yaml:"choices"`
	Placeholder string    `yaml:"placeholder"`
	HelpText    string    `yaml:"help_text"`
	ReadOnly    bool      `yaml:"readonly"`
}

// Required reports whether a blank submission is rejected.
func (f Field) Required() bool { return !f.Optional }

// Column describes one column of the list view.
type Column struct {
	Name         string `yaml:"name"`
	Label        string `yaml:"label"`
	LinkToDetail bool   `yaml:"link_to_detail"`
}

// ResourceOptions is the input to NewResource.
type ResourceOptions struct {
	Name        string
	DisplayName string
	DAO         DAO
	Columns     []Column
	Fields      []Field
	IDField     string
	Icon        string
	PageSize    int
}

// Resource is a validated, immutable description of an entity managed
// through the admin panel.
type Resource struct {
	name        string
	displayName string
	dao         DAO
	columns     []Column
	fields      []Field
	idField     string
	icon        string
	pageSize    int
}

// NewResource validates opts and returns the resource.
func NewResource(opts ResourceOptions) (*Resource, error) {
	if !slugPattern.MatchString(opts.Name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlug, opts.Name)
	}
	if opts.DAO == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingDAO, opts.Name)
	}
	if len(opts.Columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyColumnList, opts.Name)
	}
	if len(opts.Fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFieldList, opts.Name)
	}
	if opts.PageSize < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPageSize, opts.PageSize)
	}

	r := &Resource{
		name:        opts.Name,
		displayName: opts.DisplayName,
		dao:         opts.DAO,
		columns:     make([]Column, len(opts.Columns)),
		fields:      make([]Field, len(opts.Fields)),
		idField:     opts.IDField,
		icon:        opts.Icon,
		pageSize:    opts.PageSize,
	}
	if r.displayName == "" {
		r.displayName = humanize(r.name)
	}
	if r.idField == "" {
		r.idField = "id"
	}
	if r.pageSize == 0 {
		r.pageSize = DefaultPageSize
	}

	known := map[string]bool{}
	for i, col := range opts.Columns {
		if col.Name == "" {
			return nil, fmt.Errorf("%w: column %d of %s", ErrInvalidFieldName, i, opts.Name)
		}
		if col.Label == "" {
			col.Label = humanize(col.Name)
		}
		r.columns[i] = col
		known[col.Name] = true
	}
	for i, f := range opts.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field %d of %s", ErrInvalidFieldName, i, opts.Name)
		}
		if f.Type == "" {
			f.Type = FieldText
		}
		if !f.Type.valid() {
			return nil, fmt.Errorf("%w: %q on %s.%s", ErrUnknownFieldType, f.Type, opts.Name, f.Name)
		}
		if f.Type == FieldSelect && len(f.Choices) == 0 {
			return nil, fmt.Errorf("%w: %s.%s", ErrSelectMissingChoices, opts.Name, f.Name)
		}
		if f.Label == "" {
			f.Label = humanize(f.Name)
		}
		f.Choices = append([]Choice(nil), f.Choices...)
		r.fields[i] = f
		known[f.Name] = true
	}
	if !known[r.idField] {
		return nil, fmt.Errorf("%w: %q on %s", ErrMissingIDField, r.idField, opts.Name)
	}

	return r, nil
}

// Name returns the URL slug.
func (r *Resource) Name() string { return r.name }

// DisplayName returns the human-readable name.
func (r *Resource) DisplayName() string { return r.displayName }

// DAO returns the data access object backing the resource.
func (r *Resource) DAO() DAO { return r.dao }

// IDField returns the record key holding the identifier.
func (r *Resource) IDField() string { return r.idField }

// Icon returns the optional dashboard icon name.
func (r *Resource) Icon() string { return r.icon }

// PageSize returns the list page size.
func (r *Resource) PageSize() int { return r.pageSize }

// Columns returns a copy of the list columns.
func (r *Resource) Columns() []Column {
	return append([]Column(nil), r.columns...)
}

// Fields returns a copy of the form fields.
func (r *Resource) Fields() []Field {
	out := make([]Field, len(r.fields))
	for i, f := range r.fields {
		f.Choices = append([]Choice(nil), f.Choices...)
		out[i] = f
	}
	return out
}

func humanize(name string) string {
	s := strings.NewReplacer("_", " ", "-", " ").Replace(name)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
