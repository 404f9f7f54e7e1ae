package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/apachelog2feed/apachelog2feed-go/internal/logfinder"
	"github.com/apachelog2feed/apachelog2feed-go/internal/tailer"
	"github.com/apachelog2feed/apachelog2feed-go/pkg/apachelog"
)

// watcherErrBuffer is the buffer size for the error channel.
const watcherErrBuffer = 16

// Entry is an accepted record delivered by a Watcher.
type Entry struct {
	// Seq is the 1-based number of lines the watcher had read when this
	// one arrived, skipped lines included.
	Seq    int
	Path   string
	Record apachelog.Record
	Raw    string // set with WithIncludeRawLine
}

// Watcher follows a growing log and emits the records accepted by the
// session's filter set. It applies the same matcher and filters as Scan,
// row by row, without a line limit.
//
// When the session source is a directory, the Watcher switches to a newer
// access log as soon as one appears there.
type Watcher struct {
	a   *Analyzer
	cfg watchConfig // immutable after creation

	mu       sync.Mutex
	closed   bool
	cancel   context.CancelFunc
	doneCh   chan struct{}
	watching bool
	seq      int // owned by the run goroutine
}

// NewWatcher creates a Watcher for the session. It does not start any
// goroutine.
func (a *Analyzer) NewWatcher(opts ...WatchOption) (*Watcher, error) {
	cfg := applyWatchOptions(opts)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid watch options: %w", err)
	}
	return &Watcher{a: a, cfg: *cfg}, nil
}

// Watch starts following the log and returns the entry and error
// channels. Both close when ctx is done, when Close is called, or on a
// fatal error. Watch can only be called once per Watcher.
//
// Returns ErrWatcherClosed if the watcher has been closed.
// Returns ErrAlreadyWatching if Watch has already been called.
func (w *Watcher) Watch(ctx context.Context) (<-chan Entry, <-chan error, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, nil, ErrWatcherClosed
	}
	if w.watching {
		return nil, nil, ErrAlreadyWatching
	}
	w.watching = true

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.doneCh = make(chan struct{})

	entryCh := make(chan Entry)
	errCh := make(chan error, watcherErrBuffer)

	go w.run(ctx, entryCh, errCh)

	return entryCh, errCh, nil
}

// Close stops the watcher and waits for its goroutine to exit.
// Safe to call multiple times.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.cancel != nil {
		w.cancel()
	}
	doneCh := w.doneCh
	w.mu.Unlock()

	if doneCh != nil {
		<-doneCh
	}
	return nil
}

func (w *Watcher) run(ctx context.Context, entryCh chan<- Entry, errCh chan<- error) {
	defer close(w.doneCh)
	defer close(entryCh)
	defer close(errCh)

	log := w.a.log
	current := w.a.path
	if w.a.dir != "" {
		latest, err := logfinder.FindLatestLogFile(w.a.dir)
		if err != nil {
			sendError(ctx, errCh, &WatchError{Op: WatchOpFindLatest, Err: err})
			return
		}
		current = latest
	}

	cfg := tailer.DefaultConfig()
	cfg.Poll = w.cfg.usePolling
	cfg.FromStart = w.cfg.replay == ReplayFromStart

	if w.cfg.replay == ReplayLastN && w.cfg.lastN > 0 {
		log.Debug("replaying last N lines", "n", w.cfg.lastN, "path", current)
		if err := w.replayLastN(ctx, current, entryCh); err != nil {
			sendError(ctx, errCh, &WatchError{Op: WatchOpReplay, Path: current, Err: err})
		}
	}

	t, err := tailer.New(ctx, current, cfg)
	if err != nil {
		sendError(ctx, errCh, &WatchError{Op: WatchOpTail, Path: current, Err: err})
		return
	}
	defer func() { _ = t.Stop() }()
	log.Debug("started tailing", "path", current, "from_start", cfg.FromStart)

	// A file source relies on the tailer reopening it after rotation.
	// A directory source is polled for a newer file.
	var rotation <-chan time.Time
	if w.a.dir != "" {
		ticker := time.NewTicker(w.cfg.pollInterval)
		defer ticker.Stop()
		rotation = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-t.Lines():
			if !ok {
				if err, ok := <-t.Errors(); ok {
					sendError(ctx, errCh, &WatchError{Op: WatchOpTail, Path: current, Err: err})
				}
				return
			}
			if !w.processLine(ctx, current, line, entryCh) {
				return
			}
		case <-rotation:
			newest, err := logfinder.FindLatestLogFile(w.a.dir)
			if err != nil {
				sendError(ctx, errCh, &WatchError{Op: WatchOpRotation, Err: err})
				continue
			}
			if newest == current {
				continue
			}
			log.Debug("log rotation detected", "from", current, "to", newest)
			_ = t.Stop()
			cfg := tailer.DefaultConfig()
			cfg.Poll = w.cfg.usePolling
			cfg.FromStart = true
			next, err := tailer.New(ctx, newest, cfg)
			if err != nil {
				sendError(ctx, errCh, &WatchError{Op: WatchOpTail, Path: newest, Err: err})
				return
			}
			t = next
			current = newest
		}
	}
}

// processLine parses and filters one line and sends the entry if it is
// accepted. It returns false when ctx is done.
func (w *Watcher) processLine(ctx context.Context, path, line string, entryCh chan<- Entry) bool {
	w.seq++
	rec, err := w.a.matcher.Parse(line)
	if err != nil {
		w.a.log.Debug("skipping line", "seq", w.seq, "error", err)
		return true
	}
	if !w.a.filters.Match(rec) {
		return true
	}

	e := Entry{Seq: w.seq, Path: path, Record: rec}
	if w.cfg.includeRawLine {
		e.Raw = line
	}
	select {
	case entryCh <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

// replayLastN processes the last N lines of path.
func (w *Watcher) replayLastN(ctx context.Context, path string, entryCh chan<- Entry) error {
	lines, err := tailer.LastLines(path, w.cfg.lastN, w.cfg.maxReplayBytes, w.cfg.maxReplayLineBytes)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if !w.processLine(ctx, path, line, entryCh) {
			return ctx.Err()
		}
	}
	return nil
}

// sendError sends an error to the error channel.
// Errors are only dropped if the buffer is full.
func sendError(ctx context.Context, errCh chan<- error, err error) {
	if err == nil {
		return
	}
	select {
	case errCh <- err:
	case <-ctx.Done():
	default:
	}
}
