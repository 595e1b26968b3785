package main

import (
	"context"
	"time"
)

type PostProcessorConfig struct {
	Interval  time.Duration `env:"INTERVAL" envDefault:"1h"`
	Retention time.Duration `env:"RETENTION" envDefault:"168h"`
}

// RoundPurger forgets reconciled round ids so the replay table doesn't grow forever
type RoundPurger interface {
	PurgeRounds(ctx context.Context, olderThan time.Time) (int64, error)
}

func NewPostProcessor(ctx context.Context, cfg PostProcessorConfig, purger RoundPurger) Runnable {
	return &postProcessor{
		ctx:       ctx,
		interval:  cfg.Interval,
		retention: cfg.Retention,
		purger:    purger,
		now:       time.Now,
	}
}

type postProcessor struct {
	interval  time.Duration
	retention time.Duration
	ctx       context.Context
	purger    RoundPurger
	now       func() time.Time
}

func (pp *postProcessor) Run() {

	defer func() {
		if r := recover(); r != nil {
			Log("Recovered in post-processing %v", r)
			go pp.Run()
		}
	}()

	Log("Starting post-processing system")

	ticker := time.NewTicker(pp.interval)
	defer ticker.Stop()
	for {
		select {
		case <-pp.ctx.Done():
			return
		case <-ticker.C:
			if err := pp.purgeRounds(); err != nil {
				Log("failed to purge rounds older than %v %v", pp.retention, err)
			}
		}
	}

}

func (pp *postProcessor) purgeRounds() error {
	_, err := pp.purger.PurgeRounds(pp.ctx, pp.now().Add(-pp.retention))
	return err
}
