// Package services contains server-side business logic. Every service reads
// and writes through the record store; multi-row changes run in a single
// transaction.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/dmitrijs2005/certhub/internal/cryptox"
	"github.com/dmitrijs2005/certhub/internal/logging"
	"github.com/dmitrijs2005/certhub/internal/server/auth"
	"github.com/dmitrijs2005/certhub/internal/server/models"
	"github.com/dmitrijs2005/certhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/certhub/internal/server/store"
)

// CodeChecker is the part of the one-time-code service registration needs.
type CodeChecker interface {
	IsInstitutional(email string) bool
	Verify(ctx context.Context, email, code string) error
	ConsumeProof(ctx context.Context, email string) error
	RecordProof(ctx context.Context, email string) error
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
	// Code is an optional one-time code; without it an institution must
	// have verified its code beforehand.
	Code string
}

// Session is a signed bearer token and the actor it was issued to.
type Session struct {
	Token string
	Actor *models.Actor
}

type AuthService struct {
	store     *store.Store
	codes     CodeChecker
	jwtSecret []byte
	validity  time.Duration
	logger    logging.Logger
	now       func() time.Time

	// dummyHash is checked for unknown emails so both login failures cost
	// the same.
	dummyHash string
}

func NewAuthService(s *store.Store, codes CodeChecker, secretKey string, validity time.Duration, logger logging.Logger) *AuthService {
	return &AuthService{
		store:     s,
		codes:     codes,
		jwtSecret: []byte(secretKey),
		validity:  validity,
		logger:    logger.With("module", "auth"),
		now:       time.Now,
		dummyHash: cryptox.HashPassword(string(common.GenerateRandByteArray(16))),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	a, err := mail.ParseAddress(email)
	return err == nil && a.Address == email
}

// Register creates an actor and signs a session for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	if !validEmail(email) {
		return nil, fmt.Errorf("%w: invalid email", common.ErrValidation)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password required", common.ErrValidation)
	}
	role, ok := models.ParseRole(in.Role)
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrValidation, in.Role)
	}

	institutional := s.codes.IsInstitutional(email)
	switch {
	case role == models.RoleHolder && institutional:
		return nil, fmt.Errorf("%w: institutional addresses cannot register as holder", common.ErrPolicyViolation)
	case role == models.RoleInstitution && !institutional:
		return nil, fmt.Errorf("%w: institution accounts need an institutional address", common.ErrPolicyViolation)
	}

	repos := s.store.Repos()
	if _, err := repos.Actors.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email %s is registered", common.ErrConflict, email)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = email[:strings.LastIndex(email, "@")]
	}
	actor := &models.Actor{
		Username:       username,
		Email:          email,
		PasswordHash:   cryptox.HashPassword(in.Password),
		Role:           role,
		DomainVerified: role == models.RoleInstitution,
		CreatedAt:      s.now().UTC(),
	}

	// Ownership is checked last so that only the insert itself can fail
	// after a code or proof is used up. A failed insert hands the proof back.
	if role == models.RoleInstitution {
		if err := s.proveOwnership(ctx, email, in.Code); err != nil {
			return nil, err
		}
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, r *repomanager.Repos) error {
		id, err := r.Counters.Next(ctx, store.CollectionActors)
		if err != nil {
			return err
		}
		actor.ID = id
		return r.Actors.Create(ctx, actor)
	})
	if err != nil {
		if role == models.RoleInstitution {
			if perr := s.codes.RecordProof(ctx, email); perr != nil {
				s.logger.Warn(ctx, "could not restore ownership proof", "email", email, "error", perr)
			}
		}
		return nil, err
	}

	s.logger.Info(ctx, "actor registered", "actor_id", actor.ID, "role", string(actor.Role))
	return s.session(actor)
}

// proveOwnership consumes either the given code or a proof left by an
// earlier successful code check.
func (s *AuthService) proveOwnership(ctx context.Context, email, code string) error {
	var err error
	if strings.TrimSpace(code) != "" {
		err = s.codes.Verify(ctx, email, code)
	} else {
		err = s.codes.ConsumeProof(ctx, email)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrCodeNotFound),
		errors.Is(err, common.ErrCodeExpired),
		errors.Is(err, common.ErrCodeMismatch):
		return fmt.Errorf("%w: email ownership not proven (%v)", common.ErrPolicyViolation, err)
	default:
		return err
	}
}

// Login returns common.ErrInvalidCredentials for both an unknown email and
// a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)

	actor, err := s.store.Repos().Actors.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = cryptox.VerifyPassword(s.dummyHash, password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := cryptox.VerifyPassword(actor.PasswordHash, password)
	if err != nil {
		s.logger.Error(ctx, "stored password hash unreadable", "actor_id", actor.ID, "error", err)
		return nil, common.ErrInvalidCredentials
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}
	return s.session(actor)
}

// Authenticate validates a bearer token and checks that its actor still
// exists.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Repos().Actors.GetByID(ctx, claims.ActorID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: unknown actor %d", common.ErrorUnauthorized, claims.ActorID)
		}
		return nil, err
	}
	return claims, nil
}

func (s *AuthService) session(actor *models.Actor) (*Session, error) {
	token, err := auth.GenerateToken(actor, s.jwtSecret, s.validity, s.now())
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &Session{Token: token, Actor: actor}, nil
}
