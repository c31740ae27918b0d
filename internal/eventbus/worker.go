package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// SourceOpener opens an audio source for a signal's URL and returns a
// Runner bound to it. It is supplied by the caller
// so eventbus stays independent of any particular transport
// (HTTP `/mic`, a local file, a test fixture).
type SourceOpener func(ctx context.Context, url string) (Runner, error)

// Runner is satisfied by DriverRunner (a driver.Driver bound to a
// source): it runs to completion against one
// signal's source, publishing mentions as it goes.
type Runner interface {
	Run(ctx context.Context, signalID string, emit func(VadMentionEvent)) error
}

// Worker is the Go analogue of the teacher's VadService._process /
// _vad_task: it dispatches AudioSignalStarted to a new background task per
// signal, and joins that task on AudioSignalStopped, mirroring the
// teacher's self._tasks dict of in-flight futures.
type Worker struct {
	bus    *Bus
	open   SourceOpener
	logger *slog.Logger

	mu     sync.Mutex
	tasks  map[string]context.CancelFunc
	groups map[string]*errgroup.Group
}

// NewWorker creates a Worker publishing mentions onto bus, opening sources
// via open.
func NewWorker(bus *Bus, open SourceOpener, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		bus:    bus,
		open:   open,
		logger: logger,
		tasks:  make(map[string]context.CancelFunc),
		groups: make(map[string]*errgroup.Group),
	}
}

// HandleStarted starts a background VAD task for the signal, mirroring
// _process's AudioSignalStarted branch. It is a programmer error to start
// a signal that is already running; per spec §5 this is logged and
// ignored rather than starting a second task. The task runs under an
// errgroup.Group so HandleStopped can join it and its error, and so
// cancelling its context doesn't leak an untracked goroutine.
func (w *Worker) HandleStarted(ctx context.Context, ev AudioSignalStarted) {
	w.mu.Lock()
	if _, running := w.tasks[ev.SignalID]; running {
		w.mu.Unlock()
		w.logger.Error("received AudioSignalStarted for already-running signal", "signal_id", ev.SignalID)
		return
	}
	taskCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(taskCtx)
	w.tasks[ev.SignalID] = cancel
	w.groups[ev.SignalID] = group
	w.mu.Unlock()

	if len(ev.Files) == 0 {
		w.logger.Error("AudioSignalStarted carries no source URL", "signal_id", ev.SignalID)
		return
	}
	url := ev.Files[0]

	group.Go(func() error {
		runner, err := w.open(groupCtx, url)
		if err != nil {
			w.logger.Error("failed to open VAD source", "signal_id", ev.SignalID, "url", url, "error", err)
			return err
		}
		if err := runner.Run(groupCtx, ev.SignalID, w.bus.PublishMention); err != nil {
			w.logger.Error("VAD task ended with error", "signal_id", ev.SignalID, "error", err)
			return err
		}
		w.logger.Debug("finished VAD task", "signal_id", ev.SignalID)
		return nil
	})

	w.logger.Debug("started VAD task", "signal_id", ev.SignalID)
}

// HandleStopped cancels the signal's task and waits for its errgroup to
// join, mirroring _process's AudioSignalStopped branch (task.result() then
// del).
func (w *Worker) HandleStopped(ev AudioSignalStopped) {
	w.mu.Lock()
	cancel, ok := w.tasks[ev.SignalID]
	group := w.groups[ev.SignalID]
	if ok {
		delete(w.tasks, ev.SignalID)
		delete(w.groups, ev.SignalID)
	}
	w.mu.Unlock()

	if !ok {
		w.logger.Error("received AudioSignalStopped without a running VAD task", "signal_id", ev.SignalID)
		return
	}
	cancel()
	_ = group.Wait()
}
