// Package server wires the record store, blob storage, code store, mail
// dispatcher and services together and runs the HTTP API until the process
// is told to stop.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/dmitrijs2005/certhub/internal/filex"
	"github.com/dmitrijs2005/certhub/internal/logging"
	"github.com/dmitrijs2005/certhub/internal/server/blob"
	"github.com/dmitrijs2005/certhub/internal/server/config"
	httpapi "github.com/dmitrijs2005/certhub/internal/server/http"
	"github.com/dmitrijs2005/certhub/internal/server/mail"
	"github.com/dmitrijs2005/certhub/internal/server/otp"
	"github.com/dmitrijs2005/certhub/internal/server/render"
	"github.com/dmitrijs2005/certhub/internal/server/services"
	"github.com/dmitrijs2005/certhub/internal/server/store"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	store      *store.Store
	codeStore  *otp.MemoryStore
	redis      *redis.Client
	dispatcher *mail.Dispatcher
	server     *httpapi.Server
}

// newRedisClient is a seam for tests.
var newRedisClient = func(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password})
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)
	app := &App{config: c, logger: logger}

	if c.SecretKey == "" {
		key, err := common.MakeRandHexString(32)
		if err != nil {
			return nil, fmt.Errorf("secret key: %w", err)
		}
		c.SecretKey = key
		logger.Warn(ctx, "no secret key configured, using a random one; tokens will not survive a restart")
	}
	if _, err := filex.EnsureDir(c.DataDir); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	st, err := store.Open(ctx, c.DatabaseDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.store = st

	blobs, err := app.openBlobs(ctx)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("blob init error: %w", err)
	}

	renderer := render.New(st.Repos().Templates, blobs,
		services.CertificateQR(c.PublicBaseURL, c.SecretKey), c.MaxTemplatePixels, logger)
	certs := services.NewCertificateService(st, renderer, blobs, logger)

	var (
		notifier otp.Notifier = otp.LogNotifier{Logger: logger}
		dispatch services.Dispatcher
	)
	mc := mail.Config{Host: c.SMTPHost, Port: c.SMTPPort, Username: c.SMTPUser, Password: c.SMTPPassword, From: c.SMTPFrom}
	if mc.Enabled() {
		m, err := mail.NewMailer(mc)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("mail init error: %w", err)
		}
		app.dispatcher = mail.NewDispatcher(m, certs, c.MailQueueSize, c.MailWorkers, logger)
		notifier, dispatch = app.dispatcher, app.dispatcher
	} else {
		logger.Warn(ctx, "SMTP not configured, certificates will not be mailed")
	}

	codes, err := app.openCodeStore(ctx)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("code store init error: %w", err)
	}
	codeService := otp.NewService(codes, c.InstitutionDomain, c.CodeTTL, notifier, logger)

	h := httpapi.NewHandler(httpapi.Services{
		Auth:         services.NewAuthService(st, codeService, c.SecretKey, c.TokenValidity, logger),
		Codes:        codeService,
		Templates:    services.NewTemplateRegistry(st, blobs, c.MaxTemplatePixels, logger),
		Issuer:       services.NewCredentialIssuer(st, dispatch, logger),
		Certificates: certs,
		Verification: services.NewVerificationQueryService(st, c.SecretKey, logger),
		Admin:        services.NewAdminService(st, blobs, logger),
	}, httpapi.Options{
		AuthRatePerMinute: c.AuthRatePerMinute,
		MaxUploadBytes:    c.MaxUploadBytes,
		TrustedProxies:    c.TrustedProxies,
	}, logger)
	app.server = httpapi.NewServer(c.HTTPAddr, h, logger)

	return app, nil
}

func (app *App) openBlobs(ctx context.Context) (blob.Store, error) {
	c := app.config
	switch c.BlobBackend {
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Config{
			User:         c.S3RootUser,
			Password:     c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	case "", "fs":
		return blob.NewFSStore(filepath.Join(c.DataDir, "files"))
	default:
		return nil, fmt.Errorf("unknown blob backend %q", c.BlobBackend)
	}
}

// openCodeStore keeps codes in Redis when configured, otherwise in memory.
// Entries are retained for twice the code TTL.
func (app *App) openCodeStore(ctx context.Context) (otp.Store, error) {
	retention := 2 * app.config.CodeTTL
	if app.config.RedisAddr == "" {
		app.codeStore = otp.NewMemoryStore(retention)
		return app.codeStore, nil
	}

	app.redis = newRedisClient(app.config.RedisAddr, app.config.RedisPassword)
	if err := app.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return otp.NewRedisStore(app.redis, retention), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	if app.codeStore != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.codeStore.RunSweeper(ctx, app.config.CodeTTL)
		}()
	}
	if app.dispatcher != nil {
		app.dispatcher.Start(ctx)
	}

	err := app.server.Run(ctx)
	cancelFunc()

	wg.Wait()
	if app.dispatcher != nil {
		app.dispatcher.Wait()
	}
	app.Close()
	return err
}

func (app *App) Close() {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.store != nil {
		_ = app.store.Close()
	}
}
