// Command stemmix separates a PCM stream into voice and background stems
// and renders the configured mix.
//
// It reads interleaved little-endian float32 frames from -in, renders them
// one quantum at a time and writes the mix in the same format to -out.
// Control messages are replayed from a JSON-lines schedule:
//
//	{"at": 1.5, "patch": {"aiMode": "onnx", "voiceGain": 1.4}}
//
// Usage:
//
//	stemmix [flags]
//
// Examples:
//
//	stemmix -in speech.f32 -out mix.f32
//	stemmix -config stemmix.yaml -control cues.jsonl < in.f32 > out.f32
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-stems/dsp/buffer"
	"github.com/cwbudde/algo-stems/dsp/core"
	"github.com/cwbudde/algo-stems/engine"
	"github.com/cwbudde/algo-stems/internal/config"
	"github.com/cwbudde/algo-stems/internal/observe"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the YAML configuration file (defaults when empty)")
	inPath := flag.String("in", "-", "input PCM file, - for stdin")
	outPath := flag.String("out", "-", "output PCM file, - for stdout")
	controlPath := flag.String("control", "", "JSON-lines control schedule")
	realtime := flag.Bool("realtime", false, "pace rendering at the stream's sample rate")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: stemmix [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Renders a voice/background mix of interleaved float32 PCM.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "stemmix: %v\n", err)
			return 1
		}
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sched *schedule
	if *controlPath != "" {
		f, err := os.Open(*controlPath)
		if err != nil {
			logger.Error("failed to open control schedule", "err", err)
			return 1
		}
		sched, err = parseSchedule(f, cfg.Audio.SampleRate)
		f.Close()
		if err != nil {
			logger.Error("failed to parse control schedule", "err", err)
			return 1
		}
	}

	in, closeIn, err := openInput(*inPath)
	if err != nil {
		logger.Error("failed to open input", "err", err)
		return 1
	}
	defer closeIn()

	out, closeOut, err := openOutput(*outPath)
	if err != nil {
		logger.Error("failed to open output", "err", err)
		return 1
	}
	defer closeOut()

	var (
		metrics *observe.Metrics
		reg     *prometheus.Registry
	)
	if cfg.Metrics.ListenAddr != "" {
		reg = prometheus.NewRegistry()
		mp, shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{Registerer: reg})
		if err != nil {
			logger.Error("failed to initialise metrics", "err", err)
			return 1
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("metrics shutdown", "err", err)
			}
		}()
		if metrics, err = observe.NewMetrics(mp); err != nil {
			logger.Error("failed to create metrics", "err", err)
			return 1
		}
	}

	e, err := newEngine(cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to build engine", "err", err)
		return 1
	}

	logger.Info("stemmix starting",
		"config", *configPath,
		"sample_rate", cfg.Audio.SampleRate,
		"quantum", cfg.Audio.Quantum,
		"channels", cfg.Audio.Channels,
		"neural", cfg.Neural.Enabled,
		"mode", e.Plane().Load().Mode,
	)

	g, gctx := errgroup.WithContext(ctx)
	// aux scopes the tasks that only live as long as the render loop.
	aux, auxCancel := context.WithCancel(gctx)
	defer auxCancel()

	g.Go(func() error { return e.Run(gctx) })

	g.Go(func() error {
		defer auxCancel()
		st := stream{
			engine:     e,
			in:         newPCMReader(in, cfg.Audio.Channels),
			out:        newPCMWriter(out, cfg.Audio.Channels),
			sched:      sched,
			channels:   cfg.Audio.Channels,
			quantum:    cfg.Audio.Quantum,
			sampleRate: cfg.Audio.SampleRate,
			realtime:   *realtime,
			logger:     logger,
		}
		frames, err := st.render(gctx)
		e.Stop()
		if cerr := e.Close(); cerr != nil {
			logger.Warn("closing engine", "err", cerr)
		}
		logger.Info("render finished", "frames", frames, "stats", fmt.Sprintf("%+v", e.Stats()))
		return err
	})

	g.Go(func() error {
		logTelemetry(aux, e, logger)
		return nil
	})

	if reg != nil {
		srv := &http.Server{
			Addr:              cfg.Metrics.ListenAddr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics endpoint listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-aux.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("stemmix failed", "err", err)
		return 1
	}
	return 0
}

func newEngine(cfg *config.Config, logger *slog.Logger, metrics *observe.Metrics) (*engine.Engine, error) {
	opts := []engine.Option{
		engine.WithProcessorOptions(
			core.WithSampleRate(cfg.Audio.SampleRate),
			core.WithBlockSize(cfg.Audio.Quantum),
			core.WithChannels(cfg.Audio.Channels),
		),
		engine.WithInitialState(cfg.InitialState()),
		engine.WithTelemetry(cfg.Telemetry.Interval.Seconds(), 0),
		engine.WithLogger(logger),
	}
	if metrics != nil {
		opts = append(opts, engine.WithMetrics(metrics))
	}
	if cfg.Neural.Enabled {
		backends, err := newBackends(cfg.Neural.Backends, cfg.Audio.SampleRate)
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			engine.WithNeural(cfg.Neural.Locator, backends...),
			engine.WithWindow(cfg.Neural.Window, cfg.Neural.MaxPendingWindows),
			engine.WithBridge(cfg.Neural.ChunkPool, cfg.Neural.FragmentQueue),
		)
	}
	return engine.New(opts...)
}

// stream drives the engine from a PCM source in place of an audio device.
type stream struct {
	engine     *engine.Engine
	in         *pcmReader
	out        *pcmWriter
	sched      *schedule
	channels   int
	quantum    int
	sampleRate float64
	realtime   bool
	logger     *slog.Logger
}

// render processes the input until EOF or ctx ends and returns the number
// of frames written. The final partial quantum is zero padded and only its
// input frames are written.
func (s *stream) render(ctx context.Context) (uint64, error) {
	block := buffer.New(s.channels, s.quantum)

	var tick <-chan time.Time
	if s.realtime {
		period := time.Duration(float64(s.quantum) / s.sampleRate * float64(time.Second))
		t := time.NewTicker(period)
		defer t.Stop()
		tick = t.C
	}

	var pos uint64
	for {
		if err := ctx.Err(); err != nil {
			return pos, nil
		}
		n, err := s.in.ReadBlock(block)
		if errors.Is(err, io.EOF) {
			return pos, nil
		}
		if err != nil {
			return pos, err
		}

		for _, msg := range s.sched.Due(pos + uint64(s.quantum)) {
			if _, err := s.engine.ApplyJSON(msg); err != nil {
				s.logger.Warn("dropped control message", "frame", pos, "err", err)
			}
		}

		if tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				return pos, nil
			}
		}

		s.engine.Process(block, block)
		if err := s.out.WriteBlock(block, n); err != nil {
			return pos, err
		}
		pos += uint64(n)
	}
}

func logTelemetry(ctx context.Context, e *engine.Engine, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-e.Telemetry():
			logger.Debug("level",
				"db", fmt.Sprintf("%.1f", t.RMSDB()),
				"peak_db", fmt.Sprintf("%.1f", t.PeakDB()),
				"activity", fmt.Sprintf("%.2f", t.Activity),
				"mode", t.Mode,
				"frame", t.Frame,
			)
		}
	}
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" || path == "" {
		return bufio.NewReader(os.Stdin), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return bufio.NewReader(f), func() { f.Close() }, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	f := os.Stdout
	if path != "-" && path != "" {
		var err error
		if f, err = os.Create(path); err != nil {
			return nil, nil, err
		}
	}
	w := bufio.NewWriter(f)
	return w, func() {
		if err := w.Flush(); err != nil {
			slog.Error("flushing output", "err", err)
		}
		if f != os.Stdout {
			f.Close()
		}
	}, nil
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
