package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-stems/bridge"
	"github.com/cwbudde/algo-stems/control"
	"github.com/cwbudde/algo-stems/dsp/buffer"
	"github.com/cwbudde/algo-stems/internal/observe"
	"github.com/cwbudde/algo-stems/measure/level"
	"github.com/cwbudde/algo-stems/separate/neural"
	"go.opentelemetry.io/otel/metric"
)

// ErrAlreadyRunning is returned by Run when the inference task is already
// running or has finished.
var ErrAlreadyRunning = errors.New("engine: inference task already started")

// Engine is a complete stem separation engine.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	plane    *control.Plane
	bridge   *bridge.Bridge
	worker   *neural.Worker
	sup      *Supervisor
	renderer *Renderer

	telemetry chan Telemetry
	counters  *counters
	reg       metric.Registration

	running    atomic.Bool
	workerDone chan struct{}
	closeOnce  sync.Once
}

// New validates the configuration and builds an engine. The inference task
// is not started until Run.
func New(opts ...Option) (*Engine, error) {
	cfg := ApplyOptions(opts...)
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("engine: sample rate must be > 0: %f", cfg.SampleRate)
	}
	if cfg.BlockSize <= 0 {
		return nil, fmt.Errorf("engine: quantum must be > 0: %d", cfg.BlockSize)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}

	e := &Engine{
		cfg:        cfg,
		logger:     cfg.Logger,
		plane:      control.NewPlane(cfg.Initial, control.WithLogger(cfg.Logger)),
		telemetry:  make(chan Telemetry, cfg.TelemetryBuffer),
		counters:   &counters{},
		workerDone: make(chan struct{}),
	}

	var status loadStatus
	if cfg.Neural {
		if len(cfg.Backends) == 0 {
			return nil, fmt.Errorf("engine: %w", neural.ErrNoBackend)
		}
		b, err := bridge.New(bridge.Config{
			Quantum:       cfg.BlockSize,
			ChunkPool:     cfg.ChunkPool,
			FragmentQueue: cfg.FragmentQueue,
		})
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		w, err := neural.NewWorker(b, neural.WorkerConfig{
			Locator:           cfg.Locator,
			Backends:          cfg.Backends,
			Window:            cfg.Window,
			MaxPendingWindows: cfg.MaxPendingWindows,
			Logger:            cfg.Logger,
			Metrics:           cfg.Metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		e.bridge, e.worker, status = b, w, w
	}

	e.sup = newSupervisor(cfg.BlockSize, e.bridge, status, e.counters)
	meter := level.NewMeter(level.WithSampleRate(cfg.SampleRate), level.WithInterval(cfg.TelemetryInterval))
	e.renderer = newRenderer(e.plane, e.sup, meter, e.telemetry, e.counters)

	reg, err := cfg.Metrics.ObserveRender(e.renderCounters)
	if err != nil {
		return nil, fmt.Errorf("engine: registering metrics: %w", err)
	}
	e.reg = reg

	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Plane returns the control plane.
func (e *Engine) Plane() *control.Plane { return e.plane }

// Process renders one quantum. It must be called from a single goroutine.
func (e *Engine) Process(dst, src *buffer.Block) control.Mode {
	return e.renderer.Process(dst, src)
}

// Apply merges a control patch. Safe from any goroutine.
func (e *Engine) Apply(p control.Patch) control.State {
	return e.plane.Apply(p)
}

// ApplyJSON merges a JSON control message. Malformed messages are logged
// and dropped.
func (e *Engine) ApplyJSON(data []byte) (control.State, error) {
	return e.plane.ApplyJSON(data)
}

// Telemetry returns the channel meter readings are delivered on. Readings
// are dropped while the channel is full.
func (e *Engine) Telemetry() <-chan Telemetry {
	return e.telemetry
}

// LoadResult returns the model load outcome. It is nil while loading and
// when the neural path is disabled.
func (e *Engine) LoadResult() *neural.LoadResult {
	if e.worker == nil {
		return nil
	}
	return e.worker.LoadResult()
}

// Loaded is closed when the model load has finished. It is nil when the
// neural path is disabled.
func (e *Engine) Loaded() <-chan struct{} {
	if e.worker == nil {
		return nil
	}
	return e.worker.Loaded()
}

// Run runs the inference task until the engine stops or ctx ends. With the
// neural path disabled it returns immediately.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(e.workerDone)
	if e.worker == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.sup.setCancel(cancel)
	if e.sup.stopReq.Load() {
		// Stopped before the task started.
		return nil
	}

	go e.watchLoad(ctx)
	return e.worker.Run(ctx)
}

func (e *Engine) watchLoad(ctx context.Context) {
	select {
	case <-e.worker.Loaded():
	case <-ctx.Done():
		return
	}
	if res := e.worker.LoadResult(); res != nil && !res.OK {
		e.logger.Warn("neural path disabled, rendering heuristic only", "load", res.String())
	}
}

// Stop asks the render goroutine to shut the neural path down on its next
// quantum. Safe from any goroutine; it does not wait.
func (e *Engine) Stop() {
	e.sup.RequestStop()
}

// Close tears the engine down once the render goroutine has stopped
// calling Process, and waits for the inference task to exit if it was
// started. Close must not run concurrently with Process.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.sup.RequestStop()
		if !e.sup.Stopped() {
			e.sup.shutdown()
		}
		if e.running.Load() {
			<-e.workerDone
		}
		if e.reg != nil {
			err = e.reg.Unregister()
		}
	})
	return err
}

// Stats returns the current counters. Safe from any goroutine.
func (e *Engine) Stats() Stats {
	st := Stats{
		Quanta:           e.counters.quanta.Load(),
		NeuralQuanta:     e.counters.neuralQuanta.Load(),
		Fallbacks:        e.counters.fallbacks.Load(),
		ModeSwitches:     e.counters.modeSwitches.Load(),
		TelemetryDropped: e.counters.telemetryDropped.Load(),
	}
	if e.bridge != nil {
		bs := e.bridge.Stats()
		st.DroppedChunks = bs.Dropped
		st.StaleHops = bs.Stale
	}
	if e.worker != nil {
		ws := e.worker.Stats()
		st.Windows = ws.Windows
		st.WindowFailures = ws.Failures
		st.DroppedFrames = ws.DroppedFrames
	}
	return st
}

func (e *Engine) renderCounters() observe.RenderCounters {
	rc := e.counters.render()
	if e.bridge != nil {
		rc.DroppedChunks = e.bridge.Stats().Dropped
	}
	return rc
}
