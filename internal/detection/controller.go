// Package detection runs the detect-until-found polling loop over a frame source.
package detection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/justestif/go-mood-recommender/internal/emotion"
	"github.com/justestif/go-mood-recommender/internal/frame"
	"github.com/justestif/go-mood-recommender/internal/logging"
	"github.com/justestif/go-mood-recommender/internal/metrics"
)

// DefaultInterval is the polling cadence.
const DefaultInterval = 2 * time.Second

// ErrNotResolved is returned by Wait when the controller is neither Resolved nor Failed.
var ErrNotResolved = errors.New("detection not resolved")

// State is a controller state.
type State int

const (
	Idle State = iota
	Loading
	Polling
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Polling:
		return "polling"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Inferer loads a model and infers emotions from frames.
// *inference.Adapter satisfies it.
type Inferer interface {
	Load(ctx context.Context) error
	Loaded() bool
	Infer(ctx context.Context, src frame.Source) (emotion.Sample, error)
}

// Options configures a Controller.
type Options struct {
	// Interval between inference attempts. Zero means DefaultInterval.
	Interval time.Duration
	// OnResult is called once per cycle that resolves.
	OnResult func(emotion.Sample)
	// OnError is called once per cycle that fails.
	OnError func(error)
}

// cycle is one Loading -> Polling -> Resolved|Failed run.
type cycle struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Controller drives detection as a state machine:
//
//	Idle -> Loading -> Polling -> Resolved | Failed
//
// At most one cycle runs at a time. Callbacks run on the cycle goroutine
// after the state has changed, and may call Stop, Start or Redetect.
type Controller struct {
	inf  Inferer
	src  frame.Source
	opts Options

	mu     sync.Mutex
	state  State
	sample *emotion.Sample
	err    error
	cur    *cycle

	// stopping is closed when the most recently stopped cycle has exited.
	stopping chan struct{}

	active atomic.Int32
}

// New creates an idle Controller.
func New(inf Inferer, src frame.Source, opts Options) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Controller{inf: inf, src: src, opts: opts}
}

// Start begins a detection cycle. It is a no-op while Loading or Polling.
// Starting from Resolved or Failed discards the previous outcome.
// A cycle that is still shutting down after Stop is waited for first.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.stopping != nil {
		ch := c.stopping
		c.mu.Unlock()
		<-ch
		c.mu.Lock()
		if c.stopping == ch {
			c.stopping = nil
		}
	}

	if c.state == Loading || c.state == Polling {
		return
	}

	c.sample = nil
	c.err = nil

	id := logging.NewRunID()
	cctx, cancel := context.WithCancel(logging.WithRunID(ctx, id))
	cy := &cycle{id: id, ctx: cctx, cancel: cancel, done: make(chan struct{})}
	c.cur = cy

	if c.inf.Loaded() {
		c.state = Polling
	} else {
		c.state = Loading
	}
	logging.Ctx(cctx).Debug().Str("state", c.state.String()).Msg("detection started")

	c.active.Add(1)
	go c.run(cy)
}

// Stop cancels the running cycle, if any, and waits for it to exit.
// A stopped cycle emits nothing and leaves the controller Idle.
// Stop is safe to call in any state and more than once.
func (c *Controller) Stop() {
	c.mu.Lock()
	cy := c.cur
	if cy == nil {
		ch := c.stopping
		c.mu.Unlock()
		if ch != nil {
			<-ch
		}
		return
	}
	c.cur = nil
	c.state = Idle
	c.stopping = cy.done
	c.mu.Unlock()

	cy.cancel()
	<-cy.done
}

// Redetect discards any held sample, cancels in-flight polling and starts over.
func (c *Controller) Redetect(ctx context.Context) {
	c.Stop()
	c.Start(ctx)
}

// Wait blocks until the current cycle ends or ctx is done, then reports the outcome.
func (c *Controller) Wait(ctx context.Context) (emotion.Sample, error) {
	c.mu.Lock()
	cy := c.cur
	c.mu.Unlock()

	if cy != nil {
		select {
		case <-cy.done:
		case <-ctx.Done():
			return emotion.Sample{}, ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case Resolved:
		return *c.sample, nil
	case Failed:
		return emotion.Sample{}, c.err
	default:
		return emotion.Sample{}, ErrNotResolved
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Sample returns the resolved sample, if any.
func (c *Controller) Sample() (emotion.Sample, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sample == nil {
		return emotion.Sample{}, false
	}
	return *c.sample, true
}

// Err returns the error that failed the last cycle.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Active returns the number of cycle goroutines currently polling or loading.
func (c *Controller) Active() int {
	return int(c.active.Load())
}

func (c *Controller) run(cy *cycle) {
	sample, err := c.poll(cy)
	c.active.Add(-1)

	emit := c.finish(cy, sample, err)
	close(cy.done)

	if !emit {
		return
	}
	if err != nil {
		if c.opts.OnError != nil {
			c.opts.OnError(err)
		}
		return
	}
	if c.opts.OnResult != nil {
		c.opts.OnResult(sample)
	}
}

func (c *Controller) poll(cy *cycle) (emotion.Sample, error) {
	ctx := cy.ctx
	log := logging.Ctx(ctx)

	if !c.inf.Loaded() {
		if err := c.inf.Load(ctx); err != nil {
			return emotion.Sample{}, err
		}
		c.mu.Lock()
		if c.cur == cy && c.state == Loading {
			c.state = Polling
		}
		c.mu.Unlock()
		log.Debug().Msg("models loaded, polling")
	}

	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return emotion.Sample{}, ctx.Err()
		case <-ticker.C:
		}

		if !frame.Ready(c.src) {
			log.Debug().Msg("frame source not ready")
			continue
		}

		sample, err := c.inf.Infer(ctx, c.src)
		if errors.Is(err, emotion.ErrNoFace) {
			continue
		}
		return sample, err
	}
}

// finish records the cycle outcome and reports whether it should be emitted.
// Outcomes of cycles that were stopped or superseded are dropped.
func (c *Controller) finish(cy *cycle, sample emotion.Sample, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur != cy {
		return false
	}
	c.cur = nil
	cancelled := cy.ctx.Err() != nil
	cy.cancel()

	log := logging.Ctx(cy.ctx)
	if cancelled && err != nil {
		c.state = Idle
		log.Debug().Msg("detection cancelled")
		return false
	}
	if err != nil {
		c.state = Failed
		c.err = err
		metrics.DetectionOutcomes.WithLabelValues(Failed.String()).Inc()
		log.Error().Err(err).Msg("detection failed")
		return true
	}

	c.state = Resolved
	c.sample = &sample
	metrics.DetectionOutcomes.WithLabelValues(Resolved.String()).Inc()
	log.Info().
		Str("emotion", string(sample.Emotion)).
		Int("confidence", sample.Confidence).
		Bool("degraded", sample.Degraded).
		Msg("emotion detected")
	return true
}
