package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
)

// Job is one scheduled activation. It receives the runner's context.
type Job func(ctx context.Context)

// Runner fires a job on a cron schedule until its context is cancelled.
// Activations that arrive while the previous one is still running are
// skipped.
type Runner struct {
	schedule Schedule
	logger   *log.Logger
}

func NewRunner(expr string, logger *log.Logger) (*Runner, error) {
	s, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return &Runner{schedule: s, logger: logger}, nil
}

func (r *Runner) Schedule() Schedule {
	return r.schedule
}

// Run blocks until ctx is done, then waits for a running job to return.
func (r *Runner) Run(ctx context.Context, job Job) error {
	cl := cronLogger{r.logger}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := c.AddFunc(r.schedule.Expr(), func() {
		r.logger.Info("scheduled backup starting", "schedule", r.schedule.Expr())
		job(ctx)
		r.logger.Info("scheduled backup finished", "next", r.schedule.Next(time.Now()))
	}); err != nil {
		return fmt.Errorf("failed to register schedule: %w", err)
	}

	c.Start()
	r.logger.Info("scheduler started", "schedule", r.schedule.Expr(), "next", r.schedule.Next(time.Now()))

	<-ctx.Done()
	r.logger.Info("scheduler stopping")
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts the process logger to cron's logging interface.
type cronLogger struct {
	logger *log.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "err", err)...)
}
