// Package main is the entry point for the newsdesk local bridge.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main" package.
// The main package should be kept minimal. Its job is to:
//  1. Read configuration (env vars and an optional .env file)
//  2. Create dependencies (logger, database, services, session machine)
//  3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/service, etc.).
//
// WHY cmd/server/?
// The cmd/ directory is a Go convention for executable entry points.
// Each executable gets its own directory with its own main.go.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/newsdesk/internal/auth"
	"github.com/sakif/newsdesk/internal/config"
	"github.com/sakif/newsdesk/internal/repository/sqlite"
	"github.com/sakif/newsdesk/internal/server"
	"github.com/sakif/newsdesk/internal/service"
	"github.com/sakif/newsdesk/internal/session"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// config.Load reads .env when present, then the environment.
	// Every malformed variable is reported at once.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// slog.NewTextHandler outputs human-readable logs. LOG_LEVEL picks the
	// threshold (debug, info, warn, error).
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// run owns every resource; returning from it runs the deferred closes,
	// which os.Exit would skip.
	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	// === 3. DATA DIRECTORIES ===
	// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
	for _, dir := range []string{filepath.Dir(cfg.DBPath), filepath.Dir(cfg.SessionFile)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	// === 4. DATABASE ===
	// Nothing is opened yet: the first repository call opens the file and
	// brings the schema up to date.
	conn := sqlite.Open(cfg.DBPath, sqlite.DefaultSchema,
		sqlite.WithLogger(logger),
		sqlite.WithOpenTimeout(cfg.DBOpenTimeout),
	)
	defer conn.Close()
	repos := sqlite.NewFactory(conn, logger)

	// === 5. SERVICES ===
	authService := service.NewAuthService(repos, auth.NewPasswordHasher(), logger,
		service.WithDemoSeeding(cfg.SeedDemoAccounts),
		service.WithLatency(cfg.LatencyMin, cfg.LatencyMax),
	)
	newsService := service.NewNewsService(repos, service.CatalogSource{}, logger,
		service.WithCacheTTL(cfg.NewsCacheTTL),
		service.WithFetchLatency(cfg.LatencyMin, cfg.LatencyMax),
	)

	// === 6. SESSION STATE MACHINE ===
	// The remembered token lives in SESSION_FILE between runs.
	machine := session.New(authService, session.NewFileTokenStore(cfg.SessionFile), logger, session.Config{
		MonitorInterval: cfg.SessionMonitorInterval,
		ExpiryHorizon:   cfg.SessionExpiryHorizon,
		CleanupInterval: cfg.SessionCleanupInterval,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	machine.Start(ctx)
	state := machine.InitializeSession(ctx)
	logger.Info("session restored",
		slog.String("status", string(state.Status)),
		slog.Bool("signedIn", state.CurrentUser != nil),
	)

	// === 7. CREATE THE SERVER ===
	srv := server.New(server.Config{Port: cfg.Port}, server.Deps{
		Machine:     machine,
		Users:       service.NewUserManagementService(repos, logger),
		Articles:    service.NewArticleService(repos, logger),
		News:        newsService,
		Preferences: service.NewPreferencesService(repos, logger),
	}, logger)

	// === 8. RUN ===
	// The server and the news cache sweeper share one errgroup. Start()
	// blocks until the server is shut down (via Ctrl+C or SIGTERM); its
	// return cancels gctx, which stops the sweeper. g.Wait reports the
	// server's error.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return srv.Start()
	})
	g.Go(func() error {
		sweepNewsCache(gctx, newsService, cfg.NewsCacheTTL)
		return nil
	})
	return g.Wait()
}

// sweepNewsCache removes lapsed feed responses every interval until ctx
// is done.
func sweepNewsCache(ctx context.Context, news *service.NewsService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			news.CleanupExpiredCache(ctx)
		}
	}
}
