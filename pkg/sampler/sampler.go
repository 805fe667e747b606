// Package sampler runs capture cycles: once, or on a cron schedule.
package sampler

import (
	"context"
	"fmt"
	"time"

	"github.com/teslashibe/go-sampler/internal/log"
	"github.com/teslashibe/go-sampler/pkg/camera"
	"github.com/teslashibe/go-sampler/pkg/persist"
	"github.com/teslashibe/go-sampler/pkg/schedule"
)

// Event describes one finished capture cycle.
type Event struct {
	Cycle     int
	Stream    string
	Started   time.Time
	Frame     camera.Frame // zero on failure
	Err       error
	NextAfter time.Time // next scheduled trigger, zero in single-shot mode
}

// Observer is notified after every cycle.
type Observer interface {
	CycleDone(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// CycleDone calls f.
func (f ObserverFunc) CycleDone(e Event) { f(e) }

// Sampler captures frames from one stream and persists them.
type Sampler struct {
	Source    camera.Source
	Persister persist.Persister
	Stream    string
	Clock     Clock
	Observer  Observer // optional

	cycles int
}

// New creates a sampler using the system clock.
func New(src camera.Source, p persist.Persister, stream string) *Sampler {
	return &Sampler{
		Source:    src,
		Persister: p,
		Stream:    stream,
		Clock:     SystemClock{},
	}
}

// RunOnce performs a single capture and persist cycle.
func (s *Sampler) RunOnce(ctx context.Context) error {
	return s.cycle(ctx, time.Time{})
}

func (s *Sampler) cycle(ctx context.Context, next time.Time) error {
	s.cycles++
	ev := Event{Cycle: s.cycles, Stream: s.Stream, Started: s.Clock.Now(), NextAfter: next}

	log.Info("capturing", "stream", s.Stream, "cycle", s.cycles)
	frame, err := camera.Capture(ctx, s.Source, s.Stream)
	if err != nil {
		ev.Err = err
		s.notify(ev)
		return fmt.Errorf("capture: %w", err)
	}

	if err := s.Persister.Persist(ctx, frame); err != nil {
		ev.Err = err
		s.notify(ev)
		return fmt.Errorf("persist: %w", err)
	}

	ev.Frame = frame
	s.notify(ev)
	return nil
}

// RunSchedule captures at every trigger of sched until a cycle fails or
// ctx is cancelled. It never returns nil.
func (s *Sampler) RunSchedule(ctx context.Context, sched *schedule.Schedule) error {
	it := schedule.NewIterator(sched, s.Clock.Now())
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		next, err := it.Next()
		if err != nil {
			return err
		}

		if wait := next.Sub(s.Clock.Now()); wait > 0 {
			log.Info("sleeping", "seconds", wait.Seconds(), "until", next.Format(time.RFC3339))
			if err := s.Clock.Sleep(ctx, wait); err != nil {
				return err
			}
		}

		upcoming := sched.Next(next)
		if err := s.cycle(ctx, upcoming); err != nil {
			return err
		}
	}
}

// Cycles returns how many cycles have started.
func (s *Sampler) Cycles() int {
	return s.cycles
}

func (s *Sampler) notify(ev Event) {
	if s.Observer != nil {
		s.Observer.CycleDone(ev)
	}
}
