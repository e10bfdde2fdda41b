package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/certhub/internal/client/api"
	"github.com/dmitrijs2005/certhub/internal/common"
)

var errRequired = errors.New("value required")

// Register prompts for the account details and creates the account.
// Institution accounts are asked for the one-time code sent by send-code;
// an empty answer relies on an earlier verify-code.
func (a *App) Register(ctx context.Context) error {
	role, err := getSimpleText(a.reader, "Role (student|university)", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	username, err := getSimpleText(a.reader, "Enter user name (empty to use the email)", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	in := api.RegisterRequest{Username: username, Email: email, Password: string(password), Role: role}
	if role == "university" || role == "institution" {
		code, err := getSimpleText(a.reader, "Verification code (empty if already verified)", a.out)
		if err != nil {
			return err
		}
		in.Code = code
	}

	s, err := a.api.Register(ctx, in)
	if err != nil {
		return err
	}
	a.user = &s.User
	fmt.Fprintf(a.out, "Registered as %s (%s)\n", s.User.Email, s.User.Role)
	return nil
}

// SendCode asks the server to mail a one-time code to an institutional address.
func (a *App) SendCode(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter institutional email", a.out)
	if err != nil {
		return err
	}
	if err := a.api.SendVerification(ctx, email); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Verification code sent")
	return nil
}

func (a *App) VerifyCode(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter institutional email", a.out)
	if err != nil {
		return err
	}
	code, err := getSimpleText(a.reader, "Enter code", a.out)
	if err != nil {
		return err
	}
	if err := a.api.VerifyCode(ctx, email, code); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Email verified, you can register now")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	if email == "" {
		return fmt.Errorf("email: %w", errRequired)
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.api.Login(ctx, email, string(password))
	if err != nil {
		return err
	}
	a.user = &s.User
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", s.User.Email, s.User.Role)
	return nil
}

// Logout forgets the session token.
func (a *App) Logout(ctx context.Context) error {
	a.api.SetToken("")
	a.user = nil
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
