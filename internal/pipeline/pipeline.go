package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/dxcluster-spot-etl/internal/dedup"
	"github.com/couchcryptid/dxcluster-spot-etl/internal/domain"
	"github.com/couchcryptid/dxcluster-spot-etl/internal/observability"
)

// BatchExtractor reads up to batchSize lines from the source. A source that
// has run dry returns its final lines together with io.EOF.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawLine, error)
}

// Transformer converts a raw line into an output event.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawLine) (domain.OutputEvent, error)
}

// BatchLoader writes multiple output events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDedup drops events whose key the set has already seen.
func WithDedup(s *dedup.Set) Option {
	return func(p *Pipeline) { p.seen = s }
}

// Pipeline orchestrates the extract-transform-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	seen        *dedup.Set
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once the pipeline has loaded at least one spot,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not loaded any spots yet")
	}
	return nil
}

// Ready reports whether at least one spot has been loaded.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Run executes the batch ETL loop until the context is cancelled or the
// extractor reports io.EOF.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one extract-transform-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	eof := errors.Is(err, io.EOF)
	if err != nil && !eof {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}

	if len(rawBatch) > 0 {
		p.metrics.LinesConsumed.Add(float64(len(rawBatch)))
		p.metrics.BatchSize.Observe(float64(len(rawBatch)))
		*backoff = initialBackoff

		loaded, ok := p.transformAndLoad(ctx, rawBatch, backoff)
		if !ok {
			return false
		}
		if loaded > 0 {
			p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
			p.ready.Store(true)
		}
	}

	if eof {
		p.logger.Info("source exhausted, pipeline stopping")
		return false
	}
	return ctx.Err() == nil
}

// transformAndLoad transforms each line in the batch and loads the spots,
// retrying the load until it succeeds. Returns the number of loaded events and
// false if the pipeline should stop.
func (p *Pipeline) transformAndLoad(ctx context.Context, rawBatch []domain.RawLine, backoff *time.Duration) (int, bool) {
	outBatch := make([]domain.OutputEvent, 0, len(rawBatch))

	for _, raw := range rawBatch {
		out, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.recordTransformError(raw, err)
			continue
		}
		p.metrics.SpotsByCategory.WithLabelValues(out.Headers["category"], out.Headers["dialect"]).Inc()
		if p.seen.Seen(string(out.Key)) {
			p.metrics.DuplicatesSuppressed.Inc()
			p.logger.Debug("duplicate spot suppressed", "id", string(out.Key), "seq", raw.Seq)
			continue
		}
		outBatch = append(outBatch, out)
	}

	if len(outBatch) == 0 {
		return 0, true
	}

	for {
		err := p.loader.LoadBatch(ctx, outBatch)
		if err == nil {
			break
		}
		p.logger.Error("load batch failed", "error", err, "batch_size", len(outBatch))
		if !p.backoffOrStop(ctx, backoff) {
			return 0, false
		}
	}
	*backoff = initialBackoff

	p.metrics.SpotsProduced.Add(float64(len(outBatch)))
	return len(outBatch), true
}

// recordTransformError counts and logs a line that produced no event.
// Unrecognized lines are routine cluster chatter and only logged at debug.
func (p *Pipeline) recordTransformError(raw domain.RawLine, err error) {
	var malformed *domain.MalformedFieldError
	switch {
	case errors.Is(err, domain.ErrUnrecognized):
		p.metrics.UnrecognizedLines.Inc()
		p.logger.Debug("unrecognized line", "line", raw.Text, "source", raw.Source, "seq", raw.Seq)
	case errors.As(err, &malformed):
		p.metrics.MalformedFields.WithLabelValues(string(malformed.Category), malformed.Field).Inc()
		p.logger.Warn("malformed field, skipping line",
			"category", malformed.Category,
			"field", malformed.Field,
			"text", malformed.Text,
			"line", raw.Text,
			"seq", raw.Seq,
		)
	default:
		p.metrics.TransformErrors.Inc()
		p.logger.Warn("transform failed, skipping line", "error", err, "source", raw.Source, "seq", raw.Seq)
	}
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
