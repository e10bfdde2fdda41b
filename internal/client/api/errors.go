package api

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/certhub/internal/common"
)

// ErrUnavailable means the server could not be reached at all.
var ErrUnavailable = errors.New("server unavailable")

// Error is a non-2xx response. It unwraps to the common sentinel matching
// its kind, so callers can use errors.Is(err, common.ErrorNotFound).
type Error struct {
	Status  int
	Kind    string
	Message string
}

func (e *Error) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Kind)
}

var kindErrors = map[string]error{
	common.KindValidation:      common.ErrValidation,
	common.KindConflict:        common.ErrConflict,
	common.KindPolicyViolation: common.ErrPolicyViolation,
	common.KindAuth:            common.ErrorUnauthorized,
	common.KindForbidden:       common.ErrForbidden,
	common.KindNotFound:        common.ErrorNotFound,
	common.KindPersistence:     common.ErrPersistence,
}

func (e *Error) Unwrap() error {
	return kindErrors[e.Kind]
}
