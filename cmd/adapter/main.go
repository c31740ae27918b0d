package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vadcore/segmenter/internal/classify"
	"github.com/vadcore/segmenter/internal/config"
	"github.com/vadcore/segmenter/internal/driver"
	"github.com/vadcore/segmenter/internal/eventbus"
	"github.com/vadcore/segmenter/internal/frame"
	"github.com/vadcore/segmenter/internal/health"
	"github.com/vadcore/segmenter/internal/httpapi"
	"github.com/vadcore/segmenter/internal/persist"
	"github.com/vadcore/segmenter/internal/segment"
	"github.com/vadcore/segmenter/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

// lazyHandler wraps an http.Handler that is not yet ready, returning 503
// until the real mux is swapped in. Adapted from the teacher's
// lazyVADServer (atomic.Pointer-backed deferred-init wrapper), applied to
// a plain http.Handler rather than a gRPC service.
type lazyHandler struct {
	h atomic.Pointer[http.Handler]
}

func (l *lazyHandler) setHandler(h http.Handler) { l.h.Store(&h) }

func (l *lazyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := l.h.Load()
	if h == nil {
		http.Error(w, "segmentation engine is initializing, please retry in a moment", http.StatusServiceUnavailable)
		return
	}
	(*h).ServeHTTP(w, r)
}

// frameSource adapts a streaming HTTP response body into a segment.Source
// for the driver loop, the same shape as httpapi's unexported
// httpFrameSource but bound to a long-lived signal rather than a single
// /listen request.
type frameSource struct {
	body   io.ReadCloser
	params httpapi.AudioParams
}

func (s *frameSource) Next() (frame.Frame, bool, error) {
	buf := make([]byte, s.params.BytesPerFrame())
	if _, err := io.ReadFull(s.body, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return frame.Frame{}, false, nil
		}
		return frame.Frame{}, false, err
	}
	f, err := frame.New(buf, s.params.Rate, s.params.Channels)
	if err != nil {
		return frame.Frame{}, false, err
	}
	return f, true, nil
}

// httpDialer implements httpapi.SourceDialer over a plain GET request.
func httpDialer(url string) (io.ReadCloser, httpapi.AudioParams, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, httpapi.AudioParams{}, err
	}
	params, err := httpapi.ParseContentType(resp.Header.Get("Content-Type"))
	if err != nil {
		resp.Body.Close()
		return nil, httpapi.AudioParams{}, err
	}
	return resp.Body, params, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Loader{}.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	logger.Info("starting vadcore adapter",
		"version", version,
		"listen_addr", cfg.ListenAddr,
		"detector", cfg.Detector,
		"activity_window_ms", cfg.VAD.ActivityWindowMs,
		"activity_threshold", cfg.VAD.ActivityThreshold,
		"allow_gap_ms", cfg.VAD.AllowGapMs,
		"padding_ms", cfg.VAD.PaddingMs,
	)

	// STEP 1: Bind port IMMEDIATELY (before classifier/telemetry init), so
	// a load balancer's TCP-connect probe succeeds the instant the process
	// starts, even while the rest of the engine is still coming up.
	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Error("failed to bind listener", "error", err)
		os.Exit(1)
	}
	defer lis.Close()
	logger.Info("listener bound, port ready", "addr", lis.Addr().String())

	// STEP 2: Start the HTTP server in the background against a lazy
	// handler that answers 503 until the real mux is ready.
	lazy := &lazyHandler{}
	httpServer := &http.Server{Handler: lazy}

	serverErr := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	logger.Info("http server started (503 while initializing)")

	// STEP 3: Resolve the classifier backend.
	resolvedDetector := cfg.Detector
	isAutoMode := resolvedDetector == "" || resolvedDetector == "auto"
	if isAutoMode {
		if classify.NativeAvailable() {
			resolvedDetector = "webrtcvad"
		} else {
			resolvedDetector = "stub"
			logger.Warn("auto-detected detector: stub (webrtcvad not compiled in, build with -tags webrtcvad for production)")
		}
	}

	var classifier classify.Classifier
	switch resolvedDetector {
	case "webrtcvad":
		if !classify.NativeAvailable() {
			logger.Error("detector \"webrtcvad\" requested but native backend not compiled in (build with -tags webrtcvad)")
			os.Exit(1)
		}
		c, err := classify.NewNative(3)
		if err != nil {
			logger.Error("native classifier init failed — cannot start", "error", err)
			os.Exit(1)
		}
		classifier = c
		logger.Info("classifier ready", "detector", "webrtcvad")
	case "stub":
		logger.Warn("using stub classifier — detection is a simple energy threshold, not a trained model")
		classifier = classify.NewStubClassifier()
	default:
		logger.Error("unknown detector", "detector", resolvedDetector)
		os.Exit(1)
	}
	defer classifier.Close()

	// STEP 4: Telemetry.
	shutdownTelemetry, err := telemetry.InitProvider(ctx, telemetry.ProviderConfig{
		ServiceName:    "vadcore-adapter",
		ServiceVersion: version,
	})
	if err != nil {
		logger.Error("failed to init telemetry provider", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown error", "error", err)
		}
	}()
	metrics := telemetry.DefaultMetrics()

	// STEP 5: Optional audit sink, gated on PersistDSN being configured
	// (spec §1's non-goal excludes raw PCM, not mention metadata).
	var store *persist.Store
	if cfg.PersistDSN != "" {
		store, err = persist.Open(ctx, cfg.PersistDSN)
		if err != nil {
			logger.Error("failed to open persistence store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		logger.Info("audit sink ready")
	} else {
		logger.Warn("no persist_dsn configured, mentions will not be recorded")
	}

	// STEP 6: Segmentation engine plumbing.
	segConfig := cfg.VAD.ToSegmentConfig()
	newSegmenter := func() httpapi.Segmenter {
		return segment.New(classifier, segConfig)
	}
	bus := eventbus.New(logger)

	sourceOpener := func(ctx context.Context, url string) (eventbus.Runner, error) {
		body, params, err := httpDialer(url)
		if err != nil {
			return nil, err
		}
		src := &frameSource{body: body, params: params}
		d := driver.New(segment.New(classifier, segConfig), params.BytesPerFrame(), logger)
		return &eventbus.DriverRunner{
			Driver:       d,
			Source:       src,
			DetectorName: resolvedDetector,
			Now:          func() int64 { return time.Now().UnixNano() },
		}, nil
	}
	worker := eventbus.NewWorker(bus, sourceOpener, logger)

	unsubMetrics := subscribeMentionMetrics(ctx, bus, metrics)
	defer unsubMetrics()
	if store != nil {
		unsubPersist := subscribeMentionPersistence(ctx, bus, store, resolvedDetector, logger)
		defer unsubPersist()
	}

	// STEP 7: Build the real mux.
	mux := http.NewServeMux()

	httpapiServer := &httpapi.Server{
		NewSegmenter: newSegmenter,
		Dial:         httpDialer,
		Logger:       logger,
	}
	httpapiServer.RegisterRoutes(mux)

	broadcaster := eventbus.NewBroadcaster(bus, logger)
	mux.Handle("GET /ws/mentions", broadcaster)

	mux.HandleFunc("POST /signals/start", handleStartSignal(worker, metrics))
	mux.HandleFunc("POST /signals/stop", handleStopSignal(worker, metrics))

	healthHandler := health.New(buildCheckers(store)...)
	healthHandler.Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	// STEP 8: Swap the lazy handler for the real one; the server is now
	// actually serving traffic instead of 503s.
	lazy.setHandler(mux)
	logger.Info("adapter ready to serve requests", "detector", resolvedDetector)

	// STEP 9: Graceful shutdown.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		logger.Info("shutdown requested, draining http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown timed out, closing listener", "error", err)
			httpServer.Close()
		}
		close(shutdownDone)
	}()

	select {
	case err := <-serverErr:
		logger.Error("http server terminated with error", "error", err)
		os.Exit(1)
	case <-shutdownDone:
	}

	logger.Info("adapter stopped")
}

func buildCheckers(store *persist.Store) []health.Checker {
	checkers := []health.Checker{
		{Name: "classifier", Check: func(ctx context.Context) error { return nil }},
	}
	if store != nil {
		checkers = append(checkers, health.Checker{
			Name: "persist",
			Check: func(ctx context.Context) error {
				_, err := store.RecentMentions(ctx, "__healthcheck__", time.Second)
				return err
			},
		})
	}
	return checkers
}

func handleStartSignal(worker *eventbus.Worker, metrics *telemetry.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		signalID := r.URL.Query().Get("signal_id")
		url := r.URL.Query().Get("url")
		if signalID == "" || url == "" {
			http.Error(w, "signal_id and url are required", http.StatusBadRequest)
			return
		}
		// The task outlives this request; it ends on /signals/stop.
		worker.HandleStarted(context.WithoutCancel(r.Context()), eventbus.AudioSignalStarted{SignalID: signalID, Files: []string{url}})
		metrics.ActiveSignals.Add(r.Context(), 1)
		w.WriteHeader(http.StatusAccepted)
	}
}

func handleStopSignal(worker *eventbus.Worker, metrics *telemetry.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		signalID := r.URL.Query().Get("signal_id")
		if signalID == "" {
			http.Error(w, "signal_id is required", http.StatusBadRequest)
			return
		}
		worker.HandleStopped(eventbus.AudioSignalStopped{SignalID: signalID})
		metrics.ActiveSignals.Add(r.Context(), -1)
		w.WriteHeader(http.StatusOK)
	}
}

// subscribeMentionMetrics records every published mention into
// metrics.SegmentsEmitted, regardless of whether persistence is enabled.
func subscribeMentionMetrics(ctx context.Context, bus *eventbus.Bus, metrics *telemetry.Metrics) func() {
	mentions, unsubscribe := bus.SubscribeMentions(ctx, 64)
	go func() {
		for ev := range mentions {
			durationMs := float64(ev.Segment.Stop-ev.Segment.Start) / 32 // 16kHz mono s16le: 32 bytes/ms
			metrics.RecordSegment(ctx, ev.Annotation.Source, durationMs)
		}
	}()
	return unsubscribe
}

func subscribeMentionPersistence(ctx context.Context, bus *eventbus.Bus, store *persist.Store, detector string, logger *slog.Logger) func() {
	mentions, unsubscribe := bus.SubscribeMentions(ctx, 64)
	go func() {
		for ev := range mentions {
			m := driver.Mention{SignalID: ev.Segment.SignalID, Start: ev.Segment.Start, Stop: ev.Segment.Stop}
			if err := store.RecordMention(ctx, m, detector); err != nil {
				logger.Error("failed to record mention", "signal_id", m.SignalID, "error", err)
			}
		}
	}()
	return unsubscribe
}

func newLogger(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(value string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
