package models

import (
	"sort"
	"strings"
	"time"
)

// Certificate is one issued credential. Fields holds the ingested row as-is;
// the recognized holder attributes are read through Field.
type Certificate struct {
	ID          int64             `json:"cert_id"`
	Fields      map[string]string `json:"student_data"`
	GeneratedAt time.Time         `json:"generated_at"`
	TemplateID  *string           `json:"template_id,omitempty"`
	EmailedTo   *string           `json:"emailed_to,omitempty"`
	EmailedAt   *time.Time        `json:"emailed_at,omitempty"`
}

// Recognized holder fields, in the order they are rendered.
const (
	FieldName           = "name"
	FieldEnrollmentNo   = "enrollment_no"
	FieldDegree         = "degree"
	FieldMajor          = "major"
	FieldGraduationYear = "graduation_year"
	FieldGPA            = "gpa"
)

// FieldEmail is not rendered but drives dispatch and holder lookups.
const FieldEmail = "email"

var RecognizedFields = []string{
	FieldName, FieldEnrollmentNo, FieldDegree, FieldMajor, FieldGraduationYear, FieldGPA,
}

var fieldAliases = map[string][]string{
	FieldName:         {"name", "student_name", "full_name"},
	FieldEnrollmentNo: {"enrollment_no", "student_id", "roll_no", "id"},
	FieldEmail:        {"email", "student_email", "email_address"},
}

// Field looks a recognized field up by canonical name or alias, ignoring
// case. Empty values count as absent.
func (c *Certificate) Field(name string) (string, bool) {
	return LookupField(c.Fields, name)
}

// LookupField is Field for a bare field map.
func LookupField(fields map[string]string, name string) (string, bool) {
	keys, ok := fieldAliases[name]
	if !ok {
		keys = []string{name}
	}

	for _, k := range keys {
		if v, ok := fields[k]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	for _, k := range keys {
		for fk, v := range fields {
			if strings.EqualFold(fk, k) && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v), true
			}
		}
	}
	return "", false
}

// ExtraFieldKeys returns the keys that are neither recognized fields nor
// their aliases, sorted. Email counts as extra.
func (c *Certificate) ExtraFieldKeys() []string {
	known := map[string]struct{}{}
	for _, n := range RecognizedFields {
		known[n] = struct{}{}
		for _, alias := range fieldAliases[n] {
			known[alias] = struct{}{}
		}
	}

	var out []string
	for k := range c.Fields {
		if _, ok := known[strings.ToLower(k)]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Proof is the content digest recorded for a certificate at issuance.
type Proof struct {
	ID        int64
	CertID    int64
	Digest    string
	CreatedAt time.Time
}
