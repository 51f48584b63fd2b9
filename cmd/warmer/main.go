package main

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"tripmate/internal/adapters/observability"
	"tripmate/internal/adapters/planstore"
	redisad "tripmate/internal/adapters/redis"
	"tripmate/internal/app"
	"tripmate/internal/domain"
	"tripmate/internal/shared"
)

// warmer prefetches the hot read keys so a cold cache is populated before
// the facade takes traffic.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("base", cfg.PlansBase).
		Int("workers", cfg.WarmWorkers).
		Msg("warmer starting")

	store, err := planstore.New(cfg.PlansBase, cfg.PlansToken, cfg.ClientRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("planstore client init failed")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	q := app.NewQueryService(store, cache, cfg.CacheTTL)

	// the listing read also seeds the ids to prefetch
	plans, err := q.SearchPlans(ctx, domain.PlanFilter{})
	if err != nil {
		log.Fatal().Err(err).Msg("listing plans failed")
	}
	log.Info().Int("plans", len(plans)).Msg("listing warmed")

	sem := semaphore.NewWeighted(int64(cfg.WarmWorkers))
	var wg sync.WaitGroup

	for _, p := range plans {
		id := p.ID

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(planID string) {
			defer wg.Done()
			defer sem.Release(1)

			if _, err := q.GetPlan(ctx, planID); err != nil {
				log.Warn().Str("id", planID).Err(err).Msg("warm detail failed")
				return
			}
			if _, err := q.PlanRequests(ctx, planID); err != nil {
				log.Warn().Str("id", planID).Err(err).Msg("warm requests failed")
				return
			}
			log.Info().Str("id", planID).Msg("warm ok")
		}(id)
	}

	wg.Wait()
	log.Info().Msg("warmup completed")
}
