package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/dmitrijs2005/certhub/internal/cryptox"
	"github.com/dmitrijs2005/certhub/internal/logging"
	"github.com/dmitrijs2005/certhub/internal/server/auth"
	"github.com/dmitrijs2005/certhub/internal/server/models"
	"github.com/dmitrijs2005/certhub/internal/server/qr"
	"github.com/dmitrijs2005/certhub/internal/server/render"
	"github.com/dmitrijs2005/certhub/internal/server/store"
)

// Digest is the hex sha256 of the fields as JSON with sorted keys.
func Digest(fields map[string]string) string {
	if fields == nil {
		fields = map[string]string{}
	}
	b, _ := json.Marshal(fields)
	return cryptox.SHA256Hex(b)
}

// Verification is a membership and integrity answer from the local store.
// It is not a ledger proof.
type Verification struct {
	Valid       bool                `json:"valid"`
	Certificate *models.Certificate `json:"certificate,omitempty"`
}

type SearchResult struct {
	Certificate models.Certificate `json:"certificate"`
	Matched     bool               `json:"matched"`
}

// VerificationQueryService answers whether an identifier belongs to an
// issued, unmodified certificate.
type VerificationQueryService struct {
	store     *store.Store
	jwtSecret []byte
	logger    logging.Logger
}

func NewVerificationQueryService(s *store.Store, secretKey string, logger logging.Logger) *VerificationQueryService {
	return &VerificationQueryService{store: s, jwtSecret: []byte(secretKey), logger: logger.With("module", "verification")}
}

// Lookup finds the certificate for identifier: a numeric certificate id,
// or else the holder enrollment number. The lowest matching id wins.
func (s *VerificationQueryService) Lookup(ctx context.Context, identifier string) (*models.Certificate, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("%w: identifier required", common.ErrValidation)
	}

	repos := s.store.Repos()
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil && id > 0 {
		c, err := repos.Certificates.Get(ctx, id)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
	}

	all, err := repos.Certificates.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if v, ok := all[i].Field(models.FieldEnrollmentNo); ok && strings.EqualFold(v, identifier) {
			return &all[i], nil
		}
	}
	return nil, common.ErrorNotFound
}

// VerifyByIdentifier is valid iff a certificate matches and its latest
// proof digest equals the digest of its current fields.
func (s *VerificationQueryService) VerifyByIdentifier(ctx context.Context, identifier string) (*Verification, error) {
	c, err := s.Lookup(ctx, identifier)
	if errors.Is(err, common.ErrorNotFound) {
		return &Verification{Valid: false}, nil
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.intact(ctx, c)
	if err != nil {
		return nil, err
	}
	return &Verification{Valid: ok, Certificate: c}, nil
}

// VerifyToken checks a signed verification token and then the identifier
// it names.
func (s *VerificationQueryService) VerifyToken(ctx context.Context, token string) (*Verification, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: token required", common.ErrValidation)
	}
	claims, err := auth.ParseVerificationToken(token, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	return s.VerifyByIdentifier(ctx, claims.Identifier())
}

// Search matches q case-insensitively against holder name, email,
// enrollment number and certificate id. An empty query matches nothing.
func (s *VerificationQueryService) Search(ctx context.Context, q string) ([]SearchResult, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	out := []SearchResult{}
	if q == "" {
		return out, nil
	}

	all, err := s.store.Repos().Certificates.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if !matches(&c, q) {
			continue
		}
		ok, err := s.intact(ctx, &c)
		if err != nil {
			return nil, err
		}
		out = append(out, SearchResult{Certificate: c, Matched: ok})
	}
	return out, nil
}

func matches(c *models.Certificate, q string) bool {
	if strings.Contains(strconv.FormatInt(c.ID, 10), q) {
		return true
	}
	for _, f := range []string{models.FieldName, models.FieldEmail, models.FieldEnrollmentNo} {
		if v, ok := c.Field(f); ok && strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

func (s *VerificationQueryService) intact(ctx context.Context, c *models.Certificate) (bool, error) {
	p, err := s.store.Repos().Proofs.Latest(ctx, c.ID)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.Digest == Digest(c.Fields), nil
}

// IssueToken signs identifier for a QR payload.
func (s *VerificationQueryService) IssueToken(identifier string, issuedAt time.Time) (string, error) {
	return auth.GenerateVerificationToken(identifier, issuedAt, s.jwtSecret)
}

// CertificateQR returns the QR drawn on rendered certificates: a link to the
// token verification endpoint. It depends only on the certificate.
func CertificateQR(publicBaseURL, secretKey string) render.QRFunc {
	base := strings.TrimRight(publicBaseURL, "/")
	return func(c *models.Certificate) ([]byte, error) {
		token, err := auth.GenerateVerificationToken(strconv.FormatInt(c.ID, 10), c.GeneratedAt, []byte(secretKey))
		if err != nil {
			return nil, err
		}
		return qr.Encode(base+"/verify_token?token="+url.QueryEscape(token), qr.DefaultSize)
	}
}
