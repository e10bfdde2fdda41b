// Package otp issues and checks the one-time codes that prove ownership of
// an institutional email address.
package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/dmitrijs2005/certhub/internal/cryptox"
	"github.com/dmitrijs2005/certhub/internal/logging"
)

const CodeLength = 6

// MaxAttempts is how many wrong guesses a pending code tolerates.
const MaxAttempts = 5

// Notifier delivers a code to its owner.
type Notifier interface {
	SendCode(ctx context.Context, email, code string) error
}

type Service struct {
	// mu serializes every read-modify-write on the store.
	mu       sync.Mutex
	store    Store
	domain   string
	ttl      time.Duration
	notifier Notifier
	logger   logging.Logger

	now      func() time.Time
	generate func() (string, error)
}

func NewService(store Store, domain string, ttl time.Duration, notifier Notifier, logger logging.Logger) *Service {
	return &Service{
		store:    store,
		domain:   strings.ToLower(strings.TrimSpace(domain)),
		ttl:      ttl,
		notifier: notifier,
		logger:   logger.With("module", "otp"),
		now:      time.Now,
		generate: func() (string, error) { return cryptox.RandomDigits(CodeLength) },
	}
}

func codeKey(email string) string  { return "code:" + email }
func proofKey(email string) string { return "proof:" + email }

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DomainOf returns the lower-cased part after the last '@', or "".
func DomainOf(email string) string {
	i := strings.LastIndex(email, "@")
	if i < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[i+1:]))
}

// IsInstitutional reports whether email belongs to the institutional domain.
func (s *Service) IsInstitutional(email string) bool {
	return s.domain != "" && DomainOf(email) == s.domain
}

// Send issues a fresh code for email, replacing any pending one.
func (s *Service) Send(ctx context.Context, email string) error {
	email = normalize(email)
	if !s.IsInstitutional(email) {
		return fmt.Errorf("%w: %s", common.ErrDomainRejected, DomainOf(email))
	}

	code, err := s.generate()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	s.mu.Lock()
	err = s.store.Put(ctx, codeKey(email), Entry{Code: code, IssuedAt: s.now()})
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if s.notifier != nil {
		if err := s.notifier.SendCode(ctx, email, code); err != nil {
			s.logger.Warn(ctx, "code delivery failed", "email", email, "error", err)
		}
	}
	return nil
}

// Verify checks code against the pending one. A match consumes the code and
// records an ownership proof for ConsumeProof. A mismatch keeps the code for
// another try until MaxAttempts wrong guesses, then discards it. An expired
// code is discarded.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	email = normalize(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.live(ctx, codeKey(email))
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(e.Code), []byte(strings.TrimSpace(code))) != 1 {
		e.Attempts++
		if e.Attempts >= MaxAttempts {
			s.logger.Warn(ctx, "code discarded after repeated mismatches", "email", email)
			err = s.store.Delete(ctx, codeKey(email))
		} else {
			err = s.store.Put(ctx, codeKey(email), *e)
		}
		if err != nil {
			return err
		}
		return common.ErrCodeMismatch
	}

	if err := s.store.Delete(ctx, codeKey(email)); err != nil {
		return err
	}
	return s.store.Put(ctx, proofKey(email), Entry{IssuedAt: s.now()})
}

// ConsumeProof uses up the ownership proof left by a successful Verify.
func (s *Service) ConsumeProof(ctx context.Context, email string) error {
	email = normalize(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.live(ctx, proofKey(email)); err != nil {
		return err
	}
	return s.store.Delete(ctx, proofKey(email))
}

// RecordProof stores a fresh ownership proof for email, as a successful
// Verify does. Registration uses it to hand back a proof it consumed when
// the account could not be created.
func (s *Service) RecordProof(ctx context.Context, email string) error {
	email = normalize(email)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Put(ctx, proofKey(email), Entry{IssuedAt: s.now()})
}

// live loads key, discarding it when older than the TTL. Callers hold mu.
func (s *Service) live(ctx context.Context, key string) (*Entry, error) {
	e, err := s.store.Get(ctx, key)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrCodeNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.now().Sub(e.IssuedAt) > s.ttl {
		if err := s.store.Delete(ctx, key); err != nil {
			return nil, err
		}
		return nil, common.ErrCodeExpired
	}
	return e, nil
}

// LogNotifier prints codes to the log. Development only.
type LogNotifier struct {
	Logger logging.Logger
}

func (n LogNotifier) SendCode(ctx context.Context, email, code string) error {
	n.Logger.Warn(ctx, "mail disabled, verification code logged", "email", email, "code", code)
	return nil
}
