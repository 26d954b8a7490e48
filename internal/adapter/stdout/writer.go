// Package stdout writes spot events as JSON lines.
package stdout

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/couchcryptid/dxcluster-spot-etl/internal/domain"
)

// Writer emits one JSON document per line. It implements pipeline.BatchLoader.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter creates a writer on out, usually os.Stdout.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// LoadBatch writes each event's serialized value followed by a newline.
func (w *Writer) LoadBatch(ctx context.Context, events []domain.OutputEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range events {
		line := append(events[i].Value[:len(events[i].Value):len(events[i].Value)], '\n')
		if _, err := w.out.Write(line); err != nil {
			return fmt.Errorf("write event %s: %w", events[i].Key, err)
		}
	}
	return nil
}
