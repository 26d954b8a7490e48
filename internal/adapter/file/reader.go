// Package file replays captured cluster sessions from disk.
package file

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/dxcluster-spot-etl/internal/domain"
)

const maxLineBytes = 1 << 20

// Option configures a Reader.
type Option func(*Reader)

// WithClock replaces the clock that stamps ReceivedAt.
func WithClock(clock clockwork.Clock) Option {
	return func(r *Reader) { r.clock = clock }
}

// Reader reads a capture one line per RawLine.
// It implements pipeline.BatchExtractor.
type Reader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	name    string
	logger  *slog.Logger
	clock   clockwork.Clock
	seq     int64
	done    bool
}

// Open opens the capture at path.
func Open(path string, logger *slog.Logger, opts ...Option) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	r := NewReader(f, filepath.Base(path), logger, opts...)
	r.closer = f
	return r, nil
}

// NewReader reads lines from src. name appears in RawLine.Source.
func NewReader(src io.Reader, name string, logger *slog.Logger, opts ...Option) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	r := &Reader{
		scanner: scanner,
		name:    name,
		logger:  logger,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Source identifies this reader in RawLine.Source.
func (r *Reader) Source() string {
	return "file:" + r.name
}

// ExtractBatch returns up to batchSize lines. The last lines of the file come
// back together with io.EOF.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawLine, error) {
	if r.done {
		return nil, io.EOF
	}
	batch := make([]domain.RawLine, 0, batchSize)
	for len(batch) < batchSize {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		if !r.scanner.Scan() {
			r.done = true
			if err := r.scanner.Err(); err != nil {
				return batch, fmt.Errorf("read %s line %d: %w", r.name, r.seq+1, err)
			}
			r.logger.Info("capture exhausted", "source", r.Source(), "lines", r.seq)
			return batch, io.EOF
		}
		r.seq++
		batch = append(batch, domain.RawLine{
			Text:       r.scanner.Text(),
			Source:     r.Source(),
			Seq:        r.seq,
			ReceivedAt: r.clock.Now(),
		})
	}
	return batch, nil
}

// Close closes the underlying file, if Open created it.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
