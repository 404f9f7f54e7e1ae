package analyzer

import (
	"errors"
	"fmt"

	"github.com/apachelog2feed/apachelog2feed-go/internal/tailer"
	"github.com/apachelog2feed/apachelog2feed-go/pkg/apachelog"
)

// ConfigError reports an invalid session configuration. It is returned by
// New before any line is read.
type ConfigError = apachelog.ConfigError

// Sentinel errors.
var (
	ErrWatcherClosed   = errors.New("watcher closed")
	ErrAlreadyWatching = errors.New("Watch already called")

	// ErrReplayLimitExceeded is returned when WithReplayLastN would read
	// past the configured byte limits.
	ErrReplayLimitExceeded = tailer.ErrLimitExceeded
)

// WatchOp identifies the Watcher step that failed.
type WatchOp string

const (
	WatchOpFindLatest WatchOp = "find_latest"
	WatchOpTail       WatchOp = "tail"
	WatchOpReplay     WatchOp = "replay"
	WatchOpRotation   WatchOp = "rotation"
)

// WatchError is sent on a Watcher's error channel.
type WatchError struct {
	Op   WatchOp
	Path string // may be empty
	Err  error
}

func (e *WatchError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("watch %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("watch %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *WatchError) Unwrap() error {
	return e.Err
}
