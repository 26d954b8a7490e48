package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/dxcluster-spot-etl/internal/domain"
)

// SpotTransformer implements Transformer by classifying each line against a
// rule registry and serializing the spot in its event envelope.
type SpotTransformer struct {
	registry *domain.Registry
	logger   *slog.Logger
}

// NewTransformer creates a SpotTransformer. A nil registry uses the built-in rules.
func NewTransformer(registry *domain.Registry, logger *slog.Logger) *SpotTransformer {
	if registry == nil {
		registry = domain.DefaultRegistry
	}
	return &SpotTransformer{
		registry: registry,
		logger:   logger,
	}
}

// Transform returns the classification error unchanged in kind, so callers
// can tell unrecognized lines from malformed ones with errors.Is.
func (t *SpotTransformer) Transform(_ context.Context, raw domain.RawLine) (domain.OutputEvent, error) {
	c, err := t.registry.Classify(raw.Text)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("line %d: %w", raw.Seq, err)
	}
	t.logger.Debug("line classified", "category", c.Category, "dialect", c.Dialect, "seq", raw.Seq)

	return domain.SerializeSpotEvent(domain.NewSpotEvent(raw, c))
}
