package tailer

import (
	"bytes"
	"errors"
	"io"

	"github.com/apachelog2feed/apachelog2feed-go/internal/safefile"
)

// ErrLimitExceeded is returned by LastLines when reading the requested
// lines would cross one of its byte limits.
var ErrLimitExceeded = errors.New("replay limit exceeded")

// lastLinesChunk is the size of each backward read.
const lastLinesChunk = 64 * 1024

// LastLines returns up to n trailing non-empty lines of the file at path,
// oldest first. Trailing carriage returns are removed.
//
// maxBytes bounds the total bytes read and maxLineBytes the length of any
// returned line; 0 disables a limit. Crossing either returns
// ErrLimitExceeded.
func LastLines(path string, n, maxBytes, maxLineBytes int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	f, info, err := safefile.OpenRegular(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf []byte
	offset := info.Size()
	for offset > 0 {
		size := int64(lastLinesChunk)
		if offset < size {
			size = offset
		}
		if maxBytes > 0 && len(buf)+int(size) > maxBytes {
			return nil, ErrLimitExceeded
		}
		offset -= size

		chunk := make([]byte, int(size), int(size)+len(buf))
		if _, err := f.ReadAt(chunk, offset); err != nil && err != io.EOF {
			return nil, err
		}
		buf = append(chunk, buf...)

		// n complete lines need at least n newlines in front of them.
		if bytes.Count(buf, []byte{'\n'}) >= n && len(splitLines(buf, offset > 0)) >= n {
			break
		}
	}

	lines := splitLines(buf, offset > 0)
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for _, l := range lines {
		if maxLineBytes > 0 && len(l) > maxLineBytes {
			return nil, ErrLimitExceeded
		}
	}
	return lines, nil
}

// splitLines splits buf into non-empty lines. When partial is set the
// first segment may be the tail of an earlier line and is discarded.
func splitLines(buf []byte, partial bool) []string {
	segs := bytes.Split(buf, []byte{'\n'})
	if partial {
		segs = segs[1:]
	}
	lines := make([]string, 0, len(segs))
	for _, s := range segs {
		s = bytes.TrimSuffix(s, []byte{'\r'})
		if len(s) > 0 {
			lines = append(lines, string(s))
		}
	}
	return lines
}
