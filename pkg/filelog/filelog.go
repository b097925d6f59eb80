// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package filelog implements a log sink that buffers log lines in memory and
// flushes them into a rotating set of numbered files.
package filelog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/pion/logging"
)

// Buffer and file count bounds accepted by New.
const (
	MinStringBufferLen = 10 * 1024
	MaxStringBufferLen = 1024 * 1024
	MaxFileCount       = 10 * 1024
)

const (
	// LogFileName is the prefix of every log file, followed by ".<index>".
	LogFileName = "kvsFileLog"

	// IndexFileName holds the index of the next log file.
	IndexFileName = "kvsFileLogIndex"

	maxIndexFileSize = 256
	filePerm         = 0o600
)

var (
	// ErrInvalidBufferSize indicates a buffer outside [MinStringBufferLen, MaxStringBufferLen].
	ErrInvalidBufferSize = errors.New("filelog: buffer size out of range")

	// ErrInvalidFileCount indicates a file count outside [1, MaxFileCount].
	ErrInvalidFileCount = errors.New("filelog: file count out of range")

	// ErrInvalidIndexFile indicates an index file that does not hold a number.
	ErrInvalidIndexFile = errors.New("filelog: invalid index file")

	// ErrClosed indicates a write after Close.
	ErrClosed = errors.New("filelog: logger closed")
)

// Config configures a Logger.
type Config struct {
	// BufferSize is the number of bytes held in memory before a flush.
	BufferSize int

	// MaxFiles is the number of log files kept on disk.
	MaxFiles uint64

	// Dir is the directory the log and index files are written to. It must exist.
	Dir string

	// Echo, when set, receives every line as it is logged.
	Echo io.Writer
}

// Logger buffers log lines and writes them to <Dir>/kvsFileLog.<index>. Each
// flush writes a new file; once MaxFiles files exist the oldest is removed.
// The next index is persisted so a new Logger continues the sequence.
type Logger struct {
	mu sync.Mutex

	buf      []byte
	dir      string
	maxFiles uint64
	index    uint64
	echo     io.Writer
	closed   bool

	// flushErr receives errors that cannot be returned to the writer.
	flushErr io.Writer
}

// New validates config and resumes the file index from the index file, if any.
func New(config Config) (*Logger, error) {
	if config.BufferSize < MinStringBufferLen || config.BufferSize > MaxStringBufferLen {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBufferSize, config.BufferSize)
	}
	if config.MaxFiles == 0 || config.MaxFiles > MaxFileCount {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFileCount, config.MaxFiles)
	}

	l := &Logger{
		buf:      make([]byte, 0, config.BufferSize),
		dir:      config.Dir,
		maxFiles: config.MaxFiles,
		echo:     config.Echo,
		flushErr: os.Stderr,
	}

	raw, err := os.ReadFile(l.indexPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	case len(raw) >= maxIndexFileSize:
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidIndexFile, len(raw))
	default:
		if l.index, err = strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidIndexFile, err) //nolint:errorlint
		}
	}

	return l, nil
}

func (l *Logger) indexPath() string {
	return filepath.Join(l.dir, IndexFileName)
}

func (l *Logger) logPath(index uint64) string {
	return filepath.Join(l.dir, LogFileName+"."+strconv.FormatUint(index, 10))
}

// Index returns the index the next flush writes to.
func (l *Logger) Index() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.index
}

// Write buffers p, flushing first when p does not fit. A line longer than
// the buffer is truncated. Flush failures are reported but do not fail the
// write.
func (l *Logger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, ErrClosed
	}

	if l.echo != nil {
		_, _ = l.echo.Write(p)
	}

	n := len(p)
	if len(l.buf)+len(p) >= cap(l.buf) {
		if err := l.flush(); err != nil {
			fmt.Fprintf(l.flushErr, "filelog: flush failed: %v\n", err)
		}
		if len(p) >= cap(l.buf) {
			fmt.Fprintln(l.flushErr, "filelog: truncating log line that does not fit the buffer")
			p = p[:cap(l.buf)-1]
		}
	}
	l.buf = append(l.buf, p...)

	return n, nil
}

// Flush writes the buffered lines to the next log file.
func (l *Logger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.flush()
}

// flush empties the buffer even when writing fails.
func (l *Logger) flush() error {
	if len(l.buf) == 0 {
		return nil
	}
	defer func() { l.buf = l.buf[:0] }()

	if l.index >= l.maxFiles {
		stale := l.logPath(l.index - l.maxFiles)
		if err := os.Remove(stale); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(l.flushErr, "filelog: failed to remove %s: %v\n", stale, err)
		}
	}

	if err := os.WriteFile(l.logPath(l.index), l.buf, filePerm); err != nil {
		return err
	}
	l.index++

	if err := os.WriteFile(l.indexPath(), []byte(strconv.FormatUint(l.index, 10)), filePerm); err != nil {
		fmt.Fprintf(l.flushErr, "filelog: failed to write index file: %v\n", err)
	}

	return nil
}

// Close flushes the remaining lines. Further writes fail with ErrClosed.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	return l.flush()
}

// LoggerFactory returns a pion LoggerFactory writing to l at level.
func (l *Logger) LoggerFactory(level logging.LogLevel) logging.LoggerFactory {
	return &logging.DefaultLoggerFactory{
		Writer:          l,
		DefaultLogLevel: level,
		ScopeLevels:     map[string]logging.LogLevel{},
	}
}
