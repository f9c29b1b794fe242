package application

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const jobTimeout = 5 * time.Minute

// Scheduler runs the cache warm and snapshot export jobs.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers the jobs enabled by the configuration. Jobs run with
// a context derived from ctx.
func (a *Application) NewScheduler(ctx context.Context) (*Scheduler, error) {
	c := cron.New()

	if a.Cache.Enabled() && a.Config.CacheWarmSchedule != "" {
		_, err := c.AddFunc(a.Config.CacheWarmSchedule, a.job(ctx, "cache_warm", a.Articles.Warm))
		if err != nil {
			return nil, fmt.Errorf("scheduling cache warm %q: %w", a.Config.CacheWarmSchedule, err)
		}
	}

	if a.Exporter != nil && a.Config.ExportSchedule != "" {
		_, err := c.AddFunc(a.Config.ExportSchedule, a.job(ctx, "export", a.RunExport))
		if err != nil {
			return nil, fmt.Errorf("scheduling export %q: %w", a.Config.ExportSchedule, err)
		}
	}

	return &Scheduler{cron: c}, nil
}

// RunExport writes one snapshot.
func (a *Application) RunExport(ctx context.Context) error {
	if a.Exporter == nil {
		return fmt.Errorf("export is not configured")
	}
	_, err := a.Exporter.Run(ctx)
	return err
}

func (a *Application) job(ctx context.Context, name string, fn func(context.Context) error) func() {
	return func() {
		jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()

		start := time.Now()
		if err := fn(jobCtx); err != nil {
			log.Error().Err(err).Str("job", name).Msg("Scheduled job failed")
			return
		}
		log.Info().Str("job", name).Dur("duration", time.Since(start)).Msg("Scheduled job finished")
	}
}

// Start runs the scheduler in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Jobs returns the number of registered jobs
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}
