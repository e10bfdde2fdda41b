package api

import "time"

// User is the account summary returned on register and login.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Verified bool   `json:"verified"`
}

// Session is a signed-in user and their bearer token.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// RegisterRequest is the body of POST /auth/register. Code is only
// needed by institution accounts that did not call verify_code first.
type RegisterRequest struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
	Code     string `json:"code,omitempty"`
}

type Certificate struct {
	ID          int64             `json:"cert_id"`
	Fields      map[string]string `json:"student_data"`
	GeneratedAt time.Time         `json:"generated_at"`
	TemplateID  *string           `json:"template_id,omitempty"`
	EmailedTo   *string           `json:"emailed_to,omitempty"`
	EmailedAt   *time.Time        `json:"emailed_at,omitempty"`
}

type Template struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadedBy string    `json:"uploaded_by,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// IssuedRow pairs an ingested row with the id it was issued under.
type IssuedRow struct {
	Student map[string]string `json:"student"`
	CertID  int64             `json:"cert_id"`
}

type Verification struct {
	Valid       bool         `json:"valid"`
	Certificate *Certificate `json:"certificate,omitempty"`
}

type SearchResult struct {
	Certificate Certificate `json:"certificate"`
	Matched     bool        `json:"matched"`
}

type QRCode struct {
	Base64  string            `json:"qr_base64"`
	Payload map[string]string `json:"payload"`
}

type ClearResult struct {
	Certificates int64 `json:"certificates"`
	Templates    int64 `json:"templates"`
	Proofs       int64 `json:"proofs"`
}

// Artifact is a downloaded certificate file.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}
