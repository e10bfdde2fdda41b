package render

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/certhub/internal/server/models"
)

var fieldLabels = map[string]string{
	models.FieldName:           "Name",
	models.FieldEnrollmentNo:   "Enrollment No",
	models.FieldDegree:         "Degree",
	models.FieldMajor:          "Major",
	models.FieldGraduationYear: "Graduation Year",
	models.FieldGPA:            "GPA",
}

// Text renders the fixed-format plain-text certificate. Recognized fields
// always appear (N/A when absent), followed by any other fields by key.
func Text(c *models.Certificate) *Artifact {
	var b strings.Builder

	b.WriteString("CERTIFICATE\n")
	b.WriteString("===========\n")
	fmt.Fprintf(&b, "Certificate ID: %d\n", c.ID)
	fmt.Fprintf(&b, "Issue Date: %s\n", c.GeneratedAt.UTC().Format("2006-01-02"))
	b.WriteString("\n")

	for _, f := range models.RecognizedFields {
		v, ok := c.Field(f)
		if !ok {
			v = "N/A"
		}
		fmt.Fprintf(&b, "%s: %s\n", fieldLabels[f], v)
	}

	if extra := c.ExtraFieldKeys(); len(extra) > 0 {
		b.WriteString("\n")
		for _, k := range extra {
			fmt.Fprintf(&b, "%s: %s\n", k, c.Fields[k])
		}
	}

	return &Artifact{
		Data:        []byte(b.String()),
		ContentType: ContentTypeText,
		Filename:    fmt.Sprintf("certificate_%d.txt", c.ID),
	}
}
