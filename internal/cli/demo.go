package cli

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/aretw0/stately/internal/demo"
	"github.com/aretw0/stately/pkg/store"
	"golang.org/x/sync/errgroup"
)

// DemoOptions configures RunDemo.
type DemoOptions struct {
	Workers    int
	Dispatches int
	// Append keeps the existing log and restores the store from it first.
	Append bool
}

// DemoReport summarizes a demo run.
type DemoReport struct {
	Expected   int
	Final      int
	Regressive int64
	Recorded   int
}

// RunDemo increments the counter from concurrent workers while a listener
// checks that it never observes the count going back. It finishes with a
// decrement the reducer rejects, so the log also holds a failure to replay.
func RunDemo(ctx context.Context, s *Session, opts DemoOptions, p *Printer) (DemoReport, error) {
	if opts.Append {
		if err := s.Restore(ctx); err != nil {
			return DemoReport{}, fmt.Errorf("failed to restore from log: %w", err)
		}
	} else if err := s.Recorder.Clear(ctx); err != nil {
		return DemoReport{}, err
	}

	start := s.Store.GetState().Count
	var last, regressive atomic.Int64
	last.Store(int64(start))
	unsubscribe, err := store.Listen(store.Source[*demo.Counter](s.Store),
		func(c *demo.Counter) int { return c.Count },
		func(ctx context.Context, n int) {
			if int64(n) < last.Load() {
				regressive.Add(1)
			}
			last.Store(int64(n))
		},
	)
	if err != nil {
		return DemoReport{}, err
	}
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.Workers; w++ {
		g.Go(func() error {
			for i := 0; i < opts.Dispatches; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				if _, err := s.Store.Dispatch(gctx, demo.Increment{By: 1}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return DemoReport{}, err
	}

	final := s.Store.GetState().Count
	if _, err := s.Store.Dispatch(ctx, demo.Decrement{By: final + 1}); !errors.Is(err, demo.ErrNegative) {
		return DemoReport{}, fmt.Errorf("expected the overdraft to be rejected, got %v", err)
	}

	recorded, err := s.Recorder.Count(ctx)
	if err != nil {
		return DemoReport{}, err
	}
	report := DemoReport{
		Expected:   start + opts.Workers*opts.Dispatches,
		Final:      final,
		Regressive: regressive.Load(),
		Recorded:   recorded,
	}

	if report.Final == report.Expected {
		p.Success("counter reached %d (%d workers x %d dispatches)", report.Final, opts.Workers, opts.Dispatches)
	} else {
		p.Failure("counter reached %d, expected %d", report.Final, report.Expected)
	}
	if report.Regressive == 0 {
		p.Success("listener never observed the count going back")
	} else {
		p.Failure("listener observed %d regressions", report.Regressive)
	}
	p.Info("%d actions recorded", report.Recorded)
	return report, nil
}
