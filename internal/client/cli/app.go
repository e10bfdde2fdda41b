package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/certhub/internal/client/api"
	"github.com/dmitrijs2005/certhub/internal/client/config"
	"github.com/dmitrijs2005/certhub/internal/logging"
)

// apiClient is the part of *api.Client the commands use.
type apiClient interface {
	SetToken(token string)
	Health(ctx context.Context) error
	SendVerification(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) error
	Register(ctx context.Context, in api.RegisterRequest) (*api.Session, error)
	Login(ctx context.Context, email, password string) (*api.Session, error)
	UploadTemplate(ctx context.Context, filename string, image, layout []byte) (*api.Template, error)
	Templates(ctx context.Context) (map[string]api.Template, error)
	Issue(ctx context.Context, filename string, csv []byte, templateID string) ([]api.IssuedRow, error)
	Certificates(ctx context.Context) ([]api.Certificate, error)
	HolderCertificates(ctx context.Context, email string) ([]api.Certificate, error)
	Download(ctx context.Context, certID int64) (*api.Artifact, error)
	Resend(ctx context.Context, certID int64) (string, error)
	Verify(ctx context.Context, identifier string) (*api.Verification, error)
	VerifyToken(ctx context.Context, token string) (*api.Verification, error)
	Search(ctx context.Context, query string) ([]api.SearchResult, error)
	GenerateQR(ctx context.Context, identifier string) (*api.QRCode, error)
	ClearAll(ctx context.Context) (*api.ClearResult, error)
}

type App struct {
	config *config.Config
	api    apiClient
	logger logging.Logger
	user   *api.User
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config, logger logging.Logger) *App {
	return &App{
		config: c,
		api:    api.New(c.ServerURL, c.RequestTimeout, logger),
		logger: logger,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

// Run checks the server is reachable and starts the REPL.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to certhub CLI (type 'help' for commands)")

	if err := a.api.Health(ctx); err != nil {
		a.logger.Warn(ctx, "server not reachable", "url", a.config.ServerURL, "error", err)
	}

	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.user != nil
}

func (a *App) isInstitution() bool {
	return a.user != nil && a.user.Role == "institution"
}

func (a *App) status() string {
	if a.user == nil {
		return ""
	}
	return fmt.Sprintf("(%s %s)", a.user.Email, a.user.Role)
}
