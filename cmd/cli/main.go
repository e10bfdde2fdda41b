package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/certhub/internal/client/cli"
	"github.com/dmitrijs2005/certhub/internal/client/config"
	"github.com/dmitrijs2005/certhub/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.New(os.Stderr, cfg.LogLevel, "text")

	cli.NewApp(cfg, logger).Run(ctx)
}
