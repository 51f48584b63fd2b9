package main

import (
	"net/http"

	"github.com/rs/zerolog/log"

	server "tripmate/internal/adapters/http_server"
	"tripmate/internal/adapters/observability"
	"tripmate/internal/adapters/planstore"
	redisad "tripmate/internal/adapters/redis"
	"tripmate/internal/app"
	"tripmate/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// deps
	store, err := planstore.New(cfg.PlansBase, cfg.PlansToken, cfg.ClientRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("planstore client init failed")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	hub := app.NewOutcomeHub()
	defer hub.Close()

	q := app.NewQueryService(store, cache, cfg.CacheTTL)
	c := app.NewCommandService(store, cache, store, hub)

	// log every terminal command outcome; UI collaborators subscribe the
	// same way
	token, outcomes := hub.Subscribe()
	defer hub.Unsubscribe(token)
	go func() {
		for o := range outcomes {
			ev := log.Info()
			if o.Err != nil {
				ev = log.Warn().Err(o.Err)
			}
			ev.Str("op", o.Op).Msg("command_outcome")
		}
	}()

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, C: c, Me: store})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
