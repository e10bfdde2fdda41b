package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"", RoleHolder, true},
		{"student", RoleHolder, true},
		{"University", RoleInstitution, true},
		{"institution", RoleInstitution, true},
		{"employer", RoleVerifier, true},
		{"verifier", RoleVerifier, true},
		{"admin", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLayout_JSON(t *testing.T) {
	in := `{"Name":{"x":10,"y":20,"font_size":30},"gpa":{"x":1,"y":2,"fontSize":12},"qr":{"x":5,"y":6,"size":100}}`

	var l Layout
	require.NoError(t, json.Unmarshal([]byte(in), &l))

	assert.Equal(t, FieldPlacement{X: 10, Y: 20, FontSize: 30}, l.Fields["name"])
	assert.Equal(t, FieldPlacement{X: 1, Y: 2, FontSize: 12}, l.Fields["gpa"])
	require.NotNil(t, l.QR)
	assert.Equal(t, QRPlacement{X: 5, Y: 6, Size: 100}, *l.QR)
	require.NoError(t, l.Validate())

	out, err := json.Marshal(l)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"name":{"x":10,"y":20,"font_size":30},"gpa":{"x":1,"y":2,"font_size":12},"qr":{"x":5,"y":6,"size":100}}`,
		string(out))
}

func TestLayout_Validate(t *testing.T) {
	bad := Layout{Fields: map[string]FieldPlacement{"name": {X: -1, Y: 0}}}
	assert.Error(t, bad.Validate())

	badQR := Layout{QR: &QRPlacement{X: 0, Y: 0, Size: 0}}
	assert.Error(t, badQR.Validate())

	assert.NoError(t, Layout{}.Validate())
}

func TestLayout_UnmarshalRejectsNonObject(t *testing.T) {
	var l Layout
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &l))
	assert.Error(t, json.Unmarshal([]byte(`{"name":"top"}`), &l))
}

func TestCertificate_Field(t *testing.T) {
	c := &Certificate{Fields: map[string]string{
		"Student_Name": "Ada Lovelace",
		"roll_no":      " 42 ",
		"Degree":       "",
		"Hobby":        "chess",
		"email":        "ada@x.com",
	}}

	v, ok := c.Field(FieldName)
	assert.True(t, ok)
	assert.Equal(t, "Ada Lovelace", v)

	v, ok = c.Field(FieldEnrollmentNo)
	assert.True(t, ok)
	assert.Equal(t, "42", v)

	_, ok = c.Field(FieldDegree)
	assert.False(t, ok, "empty values are absent")

	_, ok = c.Field(FieldGPA)
	assert.False(t, ok)

	assert.Equal(t, []string{"Hobby", "email"}, c.ExtraFieldKeys())
}
