package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/certhub/internal/client/api"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	SendCode(ctx context.Context) error
	VerifyCode(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	UploadTemplate(ctx context.Context, imagePath, layoutPath string) error
	Templates(ctx context.Context) error
	Issue(ctx context.Context, csvPath, templateID string) error
	List(ctx context.Context) error
	Download(ctx context.Context, id, dir string) error
	Resend(ctx context.Context, id string) error
	Mine(ctx context.Context) error
	Verify(ctx context.Context, identifier string) error
	VerifyToken(ctx context.Context, token string) error
	Search(ctx context.Context, query string) error
	QR(ctx context.Context, identifier string) error
	ClearAll(ctx context.Context) error
}

const (
	helpAnonymous = "Available commands: register, send-code, verify-code, login, download, verify, verify-token, search, qr, exit"
	helpSignedIn  = "Available commands: upload-template, templates, issue, list, resend, clear-all, mine, download, verify, verify-token, search, qr, logout, exit"
)

// runREPL reads one command per line and dispatches it to a. It exits on
// EOF or "exit"/"quit". Command errors are printed and the loop continues.
//
//	register | send-code | verify-code | login | logout
//	upload-template <image> [layout.json]
//	templates
//	issue <csv> [template_id]
//	list | mine
//	download <id> [dir]
//	resend <id>
//	verify <id|enrollment_no>
//	verify-token <token>
//	search <query>
//	qr <id|enrollment_no>
//	clear-all
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("certhub %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpSignedIn)
			} else {
				printlnFn(helpAnonymous)
			}

		case "register":
			cmdErr = a.Register(ctx)
		case "send-code":
			cmdErr = a.SendCode(ctx)
		case "verify-code":
			cmdErr = a.VerifyCode(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)

		case "upload-template":
			if len(args) == 0 {
				printlnFn("Usage: upload-template <image> [layout.json]")
				continue
			}
			cmdErr = a.UploadTemplate(ctx, args[0], argOr(args, 1, ""))
		case "templates":
			cmdErr = a.Templates(ctx)
		case "issue":
			if len(args) == 0 {
				printlnFn("Usage: issue <csv> [template_id]")
				continue
			}
			cmdErr = a.Issue(ctx, args[0], argOr(args, 1, ""))
		case "l", "list":
			cmdErr = a.List(ctx)
		case "mine":
			cmdErr = a.Mine(ctx)
		case "download":
			if len(args) == 0 {
				printlnFn("Usage: download <id> [dir]")
				continue
			}
			cmdErr = a.Download(ctx, args[0], argOr(args, 1, ""))
		case "resend":
			if len(args) == 0 {
				printlnFn("Usage: resend <id>")
				continue
			}
			cmdErr = a.Resend(ctx, args[0])
		case "clear-all":
			cmdErr = a.ClearAll(ctx)

		case "verify":
			if len(args) == 0 {
				printlnFn("Usage: verify <id|enrollment_no>")
				continue
			}
			cmdErr = a.Verify(ctx, args[0])
		case "verify-token":
			if len(args) == 0 {
				printlnFn("Usage: verify-token <token>")
				continue
			}
			cmdErr = a.VerifyToken(ctx, args[0])
		case "search":
			if len(args) == 0 {
				printlnFn("Usage: search <query>")
				continue
			}
			cmdErr = a.Search(ctx, strings.Join(args, " "))
		case "qr":
			if len(args) == 0 {
				printlnFn("Usage: qr <id|enrollment_no>")
				continue
			}
			cmdErr = a.QR(ctx, args[0])

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn(describeError(cmdErr))
		}
	}
}

func argOr(args []string, i int, def string) string {
	if i < len(args) {
		return args[i]
	}
	return def
}

func describeError(err error) string {
	if api.IsUnavailable(err) {
		return "Error: server unavailable, try again later"
	}
	return "Error: " + err.Error()
}
