// Package safefile opens files only when they are regular files.
package safefile

import (
	"errors"
	"os"
)

// ErrNotRegularFile is returned for symlinks, FIFOs, devices, sockets and
// directories.
var ErrNotRegularFile = errors.New("not a regular file")

// OpenRegular opens path for reading after checking, both before and after
// the open, that it names a regular file. The second check catches a file
// swapped for a symlink or FIFO between Lstat and Open; a FIFO would
// otherwise block a reader forever.
//
// The caller must close the returned file.
func OpenRegular(path string) (*os.File, os.FileInfo, error) {
	linkInfo, err := os.Lstat(path)
	if err != nil {
		return nil, nil, err
	}
	if !linkInfo.Mode().IsRegular() {
		return nil, nil, ErrNotRegularFile
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, ErrNotRegularFile
	}

	return f, info, nil
}

// CheckReadable reports whether path is a regular file the process can
// open for reading. It returns the file's info on success.
func CheckReadable(path string) (os.FileInfo, error) {
	f, info, err := OpenRegular(path)
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return info, nil
}
