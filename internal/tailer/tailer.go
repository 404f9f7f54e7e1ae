// Package tailer reads log files line by line on top of nxadm/tail.
//
// A Tailer runs in one of two modes. In one-shot mode (Follow false) it
// reads the file from the start and closes its Lines channel at end of
// file. In follow mode it keeps reading as the file grows and reopens it
// after rotation, like tail -F.
package tailer

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/nxadm/tail"
)

// Config controls how a file is read.
type Config struct {
	// FromStart reads existing content. In follow mode a false value
	// starts at the current end of file.
	FromStart bool
	// Follow keeps reading after end of file.
	Follow bool
	// ReOpen reopens the path when the file is renamed or truncated.
	// Only meaningful with Follow.
	ReOpen bool
	// Poll checks for changes by polling instead of inotify/kqueue.
	Poll bool
	// MaxLineSize splits longer lines into several (0 = unlimited).
	MaxLineSize int
}

// DefaultConfig returns the configuration for following a live log.
func DefaultConfig() Config {
	return Config{Follow: true, ReOpen: true}
}

// OneShot returns the configuration for reading a file once, start to end.
func OneShot() Config {
	return Config{FromStart: true}
}

// errBuffer bounds the read errors kept while the consumer is busy.
const errBuffer = 16

// Tailer delivers the lines of one file on a channel.
type Tailer struct {
	t      *tail.Tail
	lines  chan string
	errs   chan error
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// New starts reading path. The file must exist. Lines are delivered
// without their trailing newline or carriage return.
//
// The Tailer stops when ctx is cancelled, when Stop is called, or in
// one-shot mode at end of file.
func New(ctx context.Context, path string, cfg Config) (*Tailer, error) {
	tcfg := tail.Config{
		MustExist:   true,
		Follow:      cfg.Follow,
		ReOpen:      cfg.Follow && cfg.ReOpen,
		Poll:        cfg.Poll,
		MaxLineSize: cfg.MaxLineSize,
		Logger:      tail.DiscardingLogger,
	}
	if cfg.Follow && !cfg.FromStart {
		tcfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}

	t, err := tail.TailFile(path, tcfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	tl := &Tailer{
		t:      t,
		lines:  make(chan string),
		errs:   make(chan error, errBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go tl.run(ctx)
	return tl, nil
}

// Lines returns the channel of lines. It is closed when the Tailer stops.
func (tl *Tailer) Lines() <-chan string {
	return tl.lines
}

// Errors returns the channel of read errors. It is closed after Lines.
func (tl *Tailer) Errors() <-chan error {
	return tl.errs
}

// Stop stops reading and releases file watches. Safe to call multiple
// times.
func (tl *Tailer) Stop() error {
	var err error
	tl.once.Do(func() {
		tl.cancel()
		err = tl.t.Stop()
		<-tl.done
		tl.t.Cleanup()
	})
	return err
}

func (tl *Tailer) run(ctx context.Context) {
	defer close(tl.done)
	defer close(tl.errs)
	defer close(tl.lines)

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-tl.t.Lines:
			if !ok {
				// The tail goroutine closes Lines before it finishes, so
				// Wait returns promptly with its final error.
				if err := tl.t.Wait(); err != nil && !errors.Is(err, context.Canceled) {
					tl.sendError(err)
				}
				return
			}
			if line.Err != nil {
				tl.sendError(line.Err)
				continue
			}
			select {
			case tl.lines <- strings.TrimSuffix(line.Text, "\r"):
			case <-ctx.Done():
				return
			}
		}
	}
}

// sendError drops err only when the buffer is full.
func (tl *Tailer) sendError(err error) {
	select {
	case tl.errs <- err:
	default:
	}
}
