package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userOptions() ResourceOptions {
	return ResourceOptions{
		Name: "users",
		DAO:  newFakeDAO(),
		Columns: []Column{
			{Name: "id", Label: "ID", LinkToDetail: true},
			{Name: "name", Label: "Name"},
		},
		Fields: []Field{
			{Name: "name", Label: "Name", Type: FieldText},
			{Name: "email", Type: FieldText},
			{Name: "role", Type: FieldSelect, Choices: []Choice{{"admin", "Admin"}, {"user", "User"}}},
			{Name: "active", Type: FieldBoolean, Optional: true},
		},
	}
}

func TestNewResourceDefaults(t *testing.T) {
	r, err := NewResource(userOptions())
	require.NoError(t, err)

	assert.Equal(t, "users", r.Name())
	assert.Equal(t, "Users", r.DisplayName())
	assert.Equal(t, "id", r.IDField())
	assert.Equal(t, DefaultPageSize, r.PageSize())
	assert.Equal(t, "Email", r.Fields()[1].Label)
	assert.True(t, r.Fields()[0].Required())
	assert.False(t, r.Fields()[3].Required())
}

func TestNewResourceCopiesInput(t *testing.T) {
	opts := userOptions()
	r, err := NewResource(opts)
	require.NoError(t, err)

	opts.Columns[0].Label = "changed"
	opts.Fields[2].Choices[0].Value = "root"
	assert.Equal(t, "ID", r.Columns()[0].Label)
	assert.Equal(t, "admin", r.Fields()[2].Choices[0].Value)

	fields := r.Fields()
	fields[2].Choices[0].Value = "root"
	assert.Equal(t, "admin", r.Fields()[2].Choices[0].Value)
}

func TestNewResourceRejectsInvalidConfig(t *testing.T) {
	cases := map[string]struct {
		mutate func(*ResourceOptions)
		want   error
	}{
		"uppercase slug":    {func(o *ResourceOptions) { o.Name = "Users" }, ErrInvalidSlug},
		"trailing hyphen":   {func(o *ResourceOptions) { o.Name = "users-" }, ErrInvalidSlug},
		"underscore":        {func(o *ResourceOptions) { o.Name = "user_accounts" }, ErrInvalidSlug},
		"no columns":        {func(o *ResourceOptions) { o.Columns = nil }, ErrEmptyColumnList},
		"no fields":         {func(o *ResourceOptions) { o.Fields = nil }, ErrEmptyFieldList},
		"unknown id field":  {func(o *ResourceOptions) { o.IDField = "uuid" }, ErrMissingIDField},
		"negative page":     {func(o *ResourceOptions) { o.PageSize = -1 }, ErrInvalidPageSize},
		"missing dao":       {func(o *ResourceOptions) { o.DAO = nil }, ErrMissingDAO},
		"unknown type":      {func(o *ResourceOptions) { o.Fields[0].Type = "color" }, ErrUnknownFieldType},
		"empty field name":  {func(o *ResourceOptions) { o.Fields[0].Name = "" }, ErrInvalidFieldName},
		"select no choices": {func(o *ResourceOptions) { o.Fields[2].Choices = nil }, ErrSelectMissingChoices},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			opts := userOptions()
			tc.mutate(&opts)
			r, err := NewResource(opts)
			assert.Nil(t, r)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestNewResourceIDFieldFromFormFields(t *testing.T) {
	opts := userOptions()
	opts.Name = "user-accounts"
	opts.IDField = "email"
	opts.PageSize = 10
	r, err := NewResource(opts)
	require.NoError(t, err)
	assert.Equal(t, "email", r.IDField())
	assert.Equal(t, 10, r.PageSize())
	assert.Equal(t, "User accounts", r.DisplayName())
}
