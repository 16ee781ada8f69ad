// Package inference turns video frames into emotion samples using a face expression model.
package inference

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/justestif/go-mood-recommender/internal/emotion"
	"github.com/justestif/go-mood-recommender/internal/frame"
	"github.com/justestif/go-mood-recommender/internal/logging"
	"github.com/justestif/go-mood-recommender/internal/metrics"
)

// DefaultTimeout is the wall-clock budget for a single inference call.
const DefaultTimeout = 5 * time.Second

// Detection is one face found in a frame.
type Detection struct {
	Box    emotion.Box
	Scores []emotion.Score // in model output order
}

// Model is a face expression model.
type Model interface {
	// Load fetches and initializes the model weights.
	Load(ctx context.Context) error
	// Detect returns the faces found in img, most confident first.
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
}

// CapabilityChecker reports whether the runtime can execute the model.
// It returns a *emotion.CapabilityError when the runtime is unsupported.
type CapabilityChecker interface {
	CheckCapability(ctx context.Context) error
}

// Options configures an Adapter.
type Options struct {
	// Timeout bounds each Detect call. Zero means DefaultTimeout.
	Timeout time.Duration
	// Degraded substitutes a synthetic sample when inference fails for
	// reasons other than capability.
	Degraded bool
	// Rand drives degraded samples. Nil means emotion.DefaultRand.
	Rand emotion.Rand
}

// Adapter wraps a Model with one-time capability checking, memoized loading,
// a timeout, and the confidence floor.
type Adapter struct {
	model   Model
	checker CapabilityChecker
	opts    Options

	mu         sync.Mutex
	capChecked bool
	capErr     error
	loaded     bool
}

// NewAdapter creates an Adapter. If model also implements CapabilityChecker,
// it is used for the capability check; otherwise the check always passes.
func NewAdapter(model Model, opts Options) *Adapter {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Rand == nil {
		opts.Rand = emotion.DefaultRand
	}
	a := &Adapter{model: model, opts: opts}
	if c, ok := model.(CapabilityChecker); ok {
		a.checker = c
	}
	return a
}

// Loaded reports whether the model weights have been loaded.
func (a *Adapter) Loaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loaded
}

// Load runs the capability check and loads the model. A successful load is
// remembered for the life of the Adapter; a failed one is retried on the next call.
func (a *Adapter) Load(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.loaded {
		return nil
	}
	if err := a.checkCapability(ctx); err != nil {
		return err
	}

	start := time.Now()
	if err := a.model.Load(ctx); err != nil {
		if emotion.IsCapability(err) || emotion.IsConnectivity(err) {
			return err
		}
		return &emotion.ConnectivityError{Err: err}
	}
	a.loaded = true

	logging.Ctx(ctx).Info().
		Dur("duration", time.Since(start)).
		Msg("face models loaded")
	return nil
}

// checkCapability must be called with a.mu held.
func (a *Adapter) checkCapability(ctx context.Context) error {
	if a.capChecked {
		return a.capErr
	}
	if a.checker == nil {
		a.capChecked = true
		return nil
	}

	err := a.checker.CheckCapability(ctx)
	switch {
	case err == nil:
	case emotion.IsCapability(err):
		logging.Ctx(ctx).Error().Err(err).Msg("emotion detection unsupported")
	default:
		// Could not reach whatever answers the check; ask again next time.
		return &emotion.ConnectivityError{Err: err}
	}
	a.capChecked = true
	a.capErr = err
	return err
}

// Infer detects the dominant emotion in the current frame of src.
//
// It returns emotion.ErrNoFace when src is not ready, no face is found, or the top
// expression is below emotion.MinConfidence. Capability and load failures are returned
// as is. Other failures, timeouts included, yield a degraded sample when enabled.
func (a *Adapter) Infer(ctx context.Context, src frame.Source) (emotion.Sample, error) {
	if !frame.Ready(src) {
		return emotion.Sample{}, emotion.ErrNoFace
	}
	if err := a.Load(ctx); err != nil {
		return emotion.Sample{}, err
	}

	img, err := src.Frame()
	if errors.Is(err, frame.ErrNotReady) {
		return emotion.Sample{}, emotion.ErrNoFace
	}
	if err == nil {
		var dets []Detection
		dets, err = a.detect(ctx, img)
		if err == nil {
			if len(dets) == 0 {
				return emotion.Sample{}, emotion.ErrNoFace
			}
			box := dets[0].Box
			return emotion.FromScores(dets[0].Scores, &box)
		}
	}

	if ctx.Err() != nil {
		return emotion.Sample{}, ctx.Err()
	}
	if emotion.IsCapability(err) || !a.opts.Degraded {
		return emotion.Sample{}, err
	}

	w, h := src.Dimensions()
	sample := emotion.Degraded(a.opts.Rand, w, h)
	metrics.DegradedSamples.Inc()
	logging.Ctx(ctx).Warn().
		Err(err).
		Str("emotion", string(sample.Emotion)).
		Msg("inference failed, using degraded sample")
	return sample, nil
}

type detectResult struct {
	dets []Detection
	err  error
}

// detect runs the model under the timeout budget, even if the model ignores ctx.
func (a *Adapter) detect(ctx context.Context, img image.Image) ([]Detection, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	ch := make(chan detectResult, 1)
	go func() {
		dets, err := a.model.Detect(ctx, img)
		ch <- detectResult{dets, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &emotion.TimeoutError{Budget: a.opts.Timeout}
		}
		return r.dets, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &emotion.TimeoutError{Budget: a.opts.Timeout}
		}
		return nil, ctx.Err()
	}
}
