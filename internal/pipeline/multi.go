package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/dxcluster-spot-etl/internal/domain"
)

// NamedLoader pairs a sink with the name used in errors and logs.
type NamedLoader struct {
	Name   string
	Loader BatchLoader
}

// MultiLoader fans each batch out to every sink. All sinks are attempted;
// the failures are joined into one error.
type MultiLoader struct {
	sinks []NamedLoader
}

// NewMultiLoader creates a loader writing to sinks in order.
func NewMultiLoader(sinks ...NamedLoader) *MultiLoader {
	return &MultiLoader{sinks: sinks}
}

func (m *MultiLoader) LoadBatch(ctx context.Context, events []domain.OutputEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Loader.LoadBatch(ctx, events); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
