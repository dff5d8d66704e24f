// userhub is a user-management microservice sitting behind a trusted
// gateway. This entrypoint loads the immutable configuration, wires the
// authentication core and serves HTTP until interrupted.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexa-sys/userhub/api"
	"github.com/nexa-sys/userhub/pkg/auth"
	"github.com/nexa-sys/userhub/pkg/config"
	"github.com/nexa-sys/userhub/pkg/logger"
	"github.com/nexa-sys/userhub/pkg/users"
)

const sessionSweepInterval = time.Hour

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	log := logger.NewLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Configuration errors are fatal; the service must not start
		// serving traffic with a missing or weak signing secret.
		log.Fatal("invalid configuration", err)
	}

	log = logger.NewConsoleLogger(cfg.LogLevel)

	repo, err := users.NewRepository(cfg.DatabasePath)
	if err != nil {
		log.Fatal("failed to open user store", err)
	}
	defer repo.Close()

	issuer, err := auth.NewBearerTokenIssuer(cfg)
	if err != nil {
		log.Fatal("failed to construct token issuer", err)
	}

	flow := auth.NewAuthenticationFlow(
		repo,
		auth.NewPasswordHasher(),
		issuer,
		auth.NewOpaqueTokenGenerator(),
		log,
	)

	server := api.NewServer(cfg, log, flow, issuer, repo)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go sweepExpiredSessions(ctx, repo, log)

	if err := server.Start(ctx); err != nil {
		log.Error("server shutdown failed", err)
	}
}

// sweepExpiredSessions periodically removes session rows past their
// expiry. Expired sessions are already treated as invalid on read; the
// sweep only keeps the table from growing without bound.
func sweepExpiredSessions(ctx context.Context, repo *users.Repository, log logger.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := repo.CleanupExpiredSessions()
			if err != nil {
				log.Error("expired session sweep failed", err)
				continue
			}
			if removed > 0 {
				log.Debug("expired sessions removed", map[string]interface{}{"count": removed})
			}
		}
	}
}
