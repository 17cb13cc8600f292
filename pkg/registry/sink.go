package registry

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mitchellh/go-homedir"
)

// Sink receives formatted scene text. File, network and batch transports
// implement it outside this package.
type Sink interface {
	Write(text string) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(text string) error

// Write calls f.
func (f SinkFunc) Write(text string) error { return f(text) }

// WriterSink buffers writes to an io.Writer.
type WriterSink struct {
	w *bufio.Writer
}

// NewWriterSink wraps w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: bufio.NewWriter(w)}
}

// Write buffers text.
func (s *WriterSink) Write(text string) error {
	_, err := s.w.WriteString(text)
	return err
}

// Flush writes buffered text through.
func (s *WriterSink) Flush() error {
	return s.w.Flush()
}

// FileSink writes to a file, creating parent directories. A leading ~ in the
// path is expanded to the user's home directory.
type FileSink struct {
	*WriterSink
	f    *os.File
	path string
}

// CreateFileSink truncates or creates the file at path.
func CreateFileSink(path string) (*FileSink, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("registry: expand %q: %w", path, err)
	}
	if dir := filepath.Dir(expanded); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("registry: create output dir: %w", err)
		}
	}
	f, err := os.Create(expanded)
	if err != nil {
		return nil, fmt.Errorf("registry: create output: %w", err)
	}
	return &FileSink{WriterSink: NewWriterSink(f), f: f, path: expanded}, nil
}

// Path returns the expanded output path.
func (s *FileSink) Path() string { return s.path }

// Close flushes and closes the file.
func (s *FileSink) Close() error {
	ferr := s.Flush()
	cerr := s.f.Close()
	if ferr != nil {
		return ferr
	}
	return cerr
}

// MemorySink collects writes in memory. It is safe for concurrent use.
type MemorySink struct {
	mu     sync.Mutex
	writes []string
}

// Write appends text.
func (s *MemorySink) Write(text string) error {
	s.mu.Lock()
	s.writes = append(s.writes, text)
	s.mu.Unlock()
	return nil
}

// Writes returns a copy of every write so far.
func (s *MemorySink) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}

// String returns all writes concatenated.
func (s *MemorySink) String() string {
	return strings.Join(s.Writes(), "")
}
