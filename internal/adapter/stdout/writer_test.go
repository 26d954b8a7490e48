package stdout

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/dxcluster-spot-etl/internal/domain"
)

func TestWriter_LoadBatch(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	value := []byte(`{"id":"dx-1"}`)
	events := []domain.OutputEvent{
		{Key: []byte("dx-1"), Value: value},
		{Key: []byte("wwv-2"), Value: []byte(`{"id":"wwv-2"}`)},
	}
	require.NoError(t, w.LoadBatch(context.Background(), events))

	assert.Equal(t, "{\"id\":\"dx-1\"}\n{\"id\":\"wwv-2\"}\n", buf.String())
	assert.Equal(t, `{"id":"dx-1"}`, string(value), "event value is not modified")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestWriter_WriteError(t *testing.T) {
	w := NewWriter(failingWriter{})
	err := w.LoadBatch(context.Background(), []domain.OutputEvent{{Key: []byte("dx-1"), Value: []byte("{}")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dx-1")
	assert.Contains(t, err.Error(), "broken pipe")
}

func TestWriter_CancelledContext(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewWriter(&buf).LoadBatch(ctx, []domain.OutputEvent{{Value: []byte("{}")}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())
}

func TestWriter_ConcurrentBatchesDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.LoadBatch(context.Background(), []domain.OutputEvent{{Value: []byte(`{"a":1}`)}, {Value: []byte(`{"b":2}`)}})
		}()
	}
	wg.Wait()

	lines := bytes.Split(bytes.TrimSuffix(buf.Bytes(), []byte("\n")), []byte("\n"))
	require.Len(t, lines, 16)
	for i := 0; i < len(lines); i += 2 {
		assert.Equal(t, `{"a":1}`, string(lines[i]))
		assert.Equal(t, `{"b":2}`, string(lines[i+1]))
	}
}
