package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"job-collector/internal/archive"
	"job-collector/internal/collector"
	"job-collector/internal/config"
	"job-collector/internal/filter"
	"job-collector/internal/index"
	"job-collector/internal/ratelimit"
	"job-collector/internal/retention"
	"job-collector/internal/scheduler"
	"job-collector/internal/source"
	"job-collector/internal/store"
)

// deps holds everything a command needs, built once from config.
type deps struct {
	cfg       config.Config
	store     store.Store
	collector *collector.Collector
	engine    *retention.Engine
	sched     *scheduler.Service
	policy    retention.Policy
	cleanup   func()
}

func buildDeps(ctx context.Context, cfg config.Config) (*deps, error) {
	var (
		idx     index.Index
		st      store.Store
		limiter source.Limiter
		cleanup = func() {}
	)

	switch cfg.StoreDriver {
	case "memory":
		idx = index.NewMemory()
		st = store.NewMemory(idx)
	case "postgres":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		idx = index.NewRedis(rdb)
		limiter = ratelimit.NewTokenBucket(rdb, cfg.RateLimitCapacity, cfg.RateLimitRefill, time.Hour)

		pg, err := store.NewPostgres(ctx, cfg.PostgresDSN, idx)
		if err != nil {
			_ = rdb.Close()
			return nil, err
		}
		st = pg
		cleanup = func() {
			pg.Close()
			_ = rdb.Close()
		}
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	registry := source.NewRegistry(buildAdapters(cfg, limiter)...)
	relevance := filter.NewKeyword(cfg.Keywords, cfg.RedFlags)
	col := collector.New(registry, relevance, cfg.SourceTimeout, cfg.OverallDeadline)

	var archiver retention.Archiver
	if cfg.ArchiveBucket != "" {
		a, err := archive.NewS3Archiver(ctx, cfg.AWSRegion, cfg.ArchiveBucket, cfg.ArchivePrefix)
		if err != nil {
			cleanup()
			return nil, err
		}
		archiver = a
	}
	engine := retention.New(st, archiver)

	policy := retention.Policy{
		ExpirationDays: cfg.ExpirationDays,
		MaxRecords:     cfg.MaxRecords,
		BatchSize:      cfg.BatchSize,
	}
	cadence := scheduler.Cadence{
		DailyTime:      cfg.DailySweepTime,
		WeeklyDay:      cfg.WeeklySweepDay,
		WeeklyTime:     cfg.WeeklySweepTime,
		SizeSweepEvery: cfg.SizeSweepEvery,
	}
	sched := scheduler.New(engine, policy, cadence)

	return &deps{
		cfg:       cfg,
		store:     st,
		collector: col,
		engine:    engine,
		sched:     sched,
		policy:    policy,
		cleanup:   cleanup,
	}, nil
}

// buildAdapters instantiates the configured sources in priority order.
func buildAdapters(cfg config.Config, limiter source.Limiter) []source.Adapter {
	var adapters []source.Adapter
	for _, name := range cfg.Sources {
		switch name {
		case "adzuna":
			adapters = append(adapters,
				source.NewAdzuna(cfg.AdzunaAppID, cfg.AdzunaAppKey, cfg.AdzunaCountry, cfg.PageDelay, limiter))
		case "remoteok":
			adapters = append(adapters, source.NewRemoteOK(limiter))
		}
	}
	return adapters
}
