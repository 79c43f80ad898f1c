package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	server "ebike_tours/internal/adapters/http_server"
	"ebike_tours/internal/adapters/observability"
	"ebike_tours/internal/adapters/ratelimit"
	redisad "ebike_tours/internal/adapters/redis"
	"ebike_tours/internal/adapters/tourapi"
	"ebike_tours/internal/app"
	"ebike_tours/internal/catalog"
	"ebike_tours/internal/domain"
	"ebike_tours/internal/shared"
	mysqlrepo "ebike_tours/internal/storage/mysql"
	"ebike_tours/internal/view"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "web")

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	client, err := tourapi.New(cfg.CatalogURL, cfg.CatalogTimeout, cfg.CatalogRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize catalog client")
	}

	// optional fetch log
	var fetchLog domain.FetchLog
	opts := []catalog.Option{catalog.WithFetchTimeout(cfg.CatalogTimeout)}
	if cfg.MySQLDSN != "" {
		repo := openFetchLog(cfg.MySQLDSN)
		fetchLog = repo
		opts = append(opts, catalog.WithFetchLog(repo))
	}

	// retry limiter: shared through Redis when configured
	var limiter domain.RetryLimiter
	if cfg.RedisAddr != "" {
		rl := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.RetryLimit, cfg.RetryWindow)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rl.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, retry limiter will fail open")
		}
		cancel()
		limiter = rl
	} else {
		limiter = ratelimit.NewMemory(cfg.RetryLimit, cfg.RetryWindow)
	}

	store := catalog.New(client, opts...)
	// subscribe before the warm-up so its transitions are seen
	transitions, _ := store.Subscribe()
	go logTransitions(transitions)

	// warm the catalog so the first visitor does not pay for the read
	go store.EnsureLoaded(context.Background())

	views, err := view.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse templates")
	}
	svc := app.NewCatalogService(store, limiter, fetchLog, cfg.RenderWait)

	// http
	srv := server.New(cfg.TrustProxy)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Svc: svc, View: views})

	log.Info().Str("addr", cfg.HTTPAddr).Str("catalog", cfg.CatalogURL).Msg("web listening")
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

func openFetchLog(dsn string) *mysqlrepo.Repo {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := mysqlrepo.Open(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("fetch log database unavailable")
	}
	repo := mysqlrepo.New(db)
	if err := repo.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("fetch log migration failed")
	}
	log.Info().Msg("database connection ok")
	return repo
}

func logTransitions(ch <-chan catalog.Snapshot) {
	for snap := range ch {
		log.Debug().
			Str("state", snap.State.String()).
			Int("tours", len(snap.Tours)).
			Uint64("generation", snap.Generation).
			Msg("catalog transition")
	}
}
