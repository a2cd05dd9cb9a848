// Package scheduler fires one selection pass per week at a fixed local time.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"photocurator/internal/logger"
)

// DefaultCooldown is the pause after every pass before the next run is computed.
const DefaultCooldown = 5 * time.Second

// Pass runs one selection pass.
type Pass func(ctx context.Context) error

// Config configures the weekly trigger.
type Config struct {
	Weekday  time.Weekday
	Hour     int
	Minute   int
	Cooldown time.Duration
}

func (c *Config) defaults() {
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
}

// State is the scheduler's only mutable data: the instant of the next run.
type State struct {
	NextRun time.Time
}

// ComputeNextRun returns the next weekday at hour:minute in now's location.
// On the target weekday at or after the target time the result is a week out.
func ComputeNextRun(weekday time.Weekday, hour, minute int, now time.Time) time.Time {
	days := (int(weekday) - int(now.Weekday()) + 7) % 7
	next := time.Date(now.Year(), now.Month(), now.Day()+days, hour, minute, 0, 0, now.Location())

	if days == 0 && !now.Before(next) {
		next = time.Date(now.Year(), now.Month(), now.Day()+7, hour, minute, 0, 0, now.Location())
	}
	return next
}

// Scheduler sleeps until State.NextRun, runs a Pass, cools down and
// recomputes the next run from the wall clock. Missed runs are not replayed.
type Scheduler struct {
	config Config
	pass   Pass
	logger *logger.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu    sync.RWMutex
	state State
}

// New creates a Scheduler. The first NextRun is computed immediately.
func New(cfg Config, pass Pass, logger *logger.Logger) *Scheduler {
	cfg.defaults()
	s := &Scheduler{
		config: cfg,
		pass:   pass,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
	s.state = s.Next(s.now())
	return s
}

// Next computes the state for the given wall clock reading.
func (s *Scheduler) Next(now time.Time) State {
	return State{NextRun: ComputeNextRun(s.config.Weekday, s.config.Hour, s.config.Minute, now)}
}

// NextRun returns the instant of the upcoming run.
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.NextRun
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run blocks until ctx is cancelled. A failing or panicking pass is logged
// and never stops the loop.
func (s *Scheduler) Run(ctx context.Context) {
	state := s.Next(s.now())
	s.setState(state)

	for {
		wait := state.NextRun.Sub(s.now())
		if wait < 0 {
			wait = 0
		}
		s.logger.Info("⏰ Scheduler sleeping for %d seconds until next run at %s", int(wait.Seconds()), state.NextRun.Format("2006/01/02:15:04"))

		if err := s.sleep(ctx, wait); err != nil {
			s.logger.Info("🛑 Scheduler stopped")
			return
		}

		if err := s.runOnce(ctx); err != nil {
			s.logger.Error("Error in scheduled pass: %v", err)
		}

		if err := s.sleep(ctx, s.config.Cooldown); err != nil {
			s.logger.Info("🛑 Scheduler stopped")
			return
		}

		state = s.Next(s.now())
		s.setState(state)
	}
}

// runOnce invokes the pass, converting a panic into an error.
func (s *Scheduler) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduled pass panicked: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("pass panicked: %v", r)
		}
	}()

	return s.pass(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
