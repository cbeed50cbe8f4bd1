// Package scheduler runs a task on a fixed interval on top of robfig/cron.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"
)

type Task func(ctx context.Context) error

// Scheduler fires a Task every interval, measured from tick to tick rather than
// from the end of the previous run. A tick that arrives while the previous run is
// still going is skipped. cron rounds intervals to whole seconds (minimum 1s).
type Scheduler struct {
	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup
	name   string
}

// Every starts the schedule and runs the task once immediately.
// Task errors are logged; the next tick runs regardless.
func Every(parent context.Context, interval time.Duration, name string, task Task) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("scheduler %s: interval must be > 0", name)
	}
	ctx, cancel := context.WithCancel(parent)

	logger := cronLogger{name: name}
	job := cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		if err := task(ctx); err != nil {
			log.Error().Str("component", "scheduler").Str("task", name).Err(err).Msg("task failed")
		}
	}))

	s := &Scheduler{cron: cron.New(), cancel: cancel, name: name}
	s.cron.Schedule(cron.Every(interval), job)
	s.cron.Start()
	log.Info().Str("component", "scheduler").Str("task", name).Dur("interval", interval).Msg("started")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		job.Run()
	}()

	return s, nil
}

// Stop cancels the task context and waits for running tasks to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	log.Info().Str("component", "scheduler").Str("task", s.name).Msg("stopped")
}

// cronLogger adapts cron's logr-style logger to phuslu/log.
type cronLogger struct{ name string }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Str("component", "cron").Str("task", l.name).Msgf("%s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Str("component", "cron").Str("task", l.name).Err(err).Msgf("%s %v", msg, keysAndValues)
}
