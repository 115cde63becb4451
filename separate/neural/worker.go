package neural

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-stems/bridge"
	"github.com/cwbudde/algo-stems/internal/observe"
)

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	// Locator names the model resource handed to the backends.
	Locator string
	// Backends are tried in order at load time.
	Backends []Backend
	// Window is the analysis window size. Default DefaultWindow.
	Window int
	// MaxPendingWindows bounds the input backlog. Default
	// DefaultMaxPendingWindows.
	MaxPendingWindows int

	Logger  *slog.Logger
	Metrics *observe.Metrics
}

// Worker is the inference task. It owns the model session and the OLA
// state; Run must be called once, on its own goroutine.
type Worker struct {
	cfg    WorkerConfig
	bridge *bridge.Bridge
	ola    *OLA

	loaded chan struct{}
	result atomic.Pointer[LoadResult]

	windows  atomic.Uint64
	failures atomic.Uint64
	dropped  atomic.Uint64
}

// NewWorker validates cfg and returns a Worker reading from b.
func NewWorker(b *bridge.Bridge, cfg WorkerConfig) (*Worker, error) {
	if b == nil {
		return nil, errors.New("neural: worker needs a bridge")
	}
	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxPendingWindows == 0 {
		cfg.MaxPendingWindows = DefaultMaxPendingWindows
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}

	ola, err := NewOLA(cfg.Window, cfg.MaxPendingWindows)
	if err != nil {
		return nil, fmt.Errorf("neural: worker: %w", err)
	}

	return &Worker{
		cfg:    cfg,
		bridge: b,
		ola:    ola,
		loaded: make(chan struct{}),
	}, nil
}

// Loaded is closed once the load attempt has finished.
func (w *Worker) Loaded() <-chan struct{} {
	return w.loaded
}

// LoadResult returns the load outcome, or nil while loading.
func (w *Worker) LoadResult() *LoadResult {
	return w.result.Load()
}

// WorkerStats is a snapshot of the worker counters.
type WorkerStats struct {
	Windows       uint64
	Failures      uint64
	DroppedFrames uint64
}

// Stats returns the current counters. Safe from any goroutine.
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		Windows:       w.windows.Load(),
		Failures:      w.failures.Load(),
		DroppedFrames: w.dropped.Load(),
	}
}

// Run loads the model and then processes chunks until the bridge closes or
// ctx ends. A load failure is not an error: it is published through
// LoadResult and Run returns nil. The session is closed before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	log := w.cfg.Logger

	sess, res := Load(ctx, w.cfg.Locator, w.cfg.Backends...)
	w.result.Store(&res)
	close(w.loaded)

	if !res.OK {
		log.Warn("separation model failed to load", "locator", w.cfg.Locator, "err", res.Error)
		w.discardChunks(ctx)
		return nil
	}
	log.Info("separation model loaded", "locator", w.cfg.Locator, "backend", res.Backend)

	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("closing separation session", "err", err)
		}
		st := w.Stats()
		log.Info("inference worker stopped", "windows", st.Windows, "failures", st.Failures, "dropped_frames", st.DroppedFrames)
	}()

	epoch := w.bridge.Epoch()
	for {
		var c *bridge.Chunk
		var ok bool
		select {
		case c, ok = <-w.bridge.Chunks():
			if !ok {
				return nil
			}
		case <-ctx.Done():
			return nil
		}

		// Fold in everything already queued so the backlog bound sees it.
		for c != nil {
			if c.Epoch != epoch {
				epoch = c.Epoch
				w.ola.Reset()
			}
			w.write(ctx, c)
			c = w.tryChunk()
		}

		if err := w.drainWindows(ctx, sess, epoch); err != nil {
			if errors.Is(err, bridge.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (w *Worker) write(ctx context.Context, c *bridge.Chunk) {
	if dropped := w.ola.Write(c.L, c.R); dropped > 0 {
		w.dropped.Add(uint64(dropped))
		w.cfg.Metrics.RecordDroppedFrames(ctx, dropped)
		w.cfg.Logger.Debug("inference backlog full, dropped input", "frames", dropped)
	}
	w.bridge.Release(c)
}

func (w *Worker) tryChunk() *bridge.Chunk {
	select {
	case c, ok := <-w.bridge.Chunks():
		if !ok {
			return nil
		}
		return c
	default:
		return nil
	}
}

func (w *Worker) drainWindows(ctx context.Context, sess *Session, epoch uint64) error {
	backend := sess.Backend()
	for w.ola.Ready() {
		start := time.Now()
		hop, _, inferErr := w.ola.Next(ctx, sess)
		w.windows.Add(1)
		w.cfg.Metrics.RecordInference(ctx, backend, time.Since(start).Seconds(), inferErr != nil)
		if inferErr != nil {
			w.failures.Add(1)
			w.cfg.Logger.Debug("window inference failed, passing through", "err", inferErr)
		}

		if err := w.bridge.Emit(ctx, epoch, hop.VoiceL, hop.VoiceR, hop.BgL, hop.BgR); err != nil {
			return err
		}
	}
	return nil
}

// discardChunks keeps the chunk pool cycling after a failed load so the
// render side's pushes keep finding free chunks.
func (w *Worker) discardChunks(ctx context.Context) {
	for {
		select {
		case c, ok := <-w.bridge.Chunks():
			if !ok {
				return
			}
			w.bridge.Release(c)
		case <-ctx.Done():
			return
		}
	}
}
