package widget

import (
	"context"

	"github.com/weatherapp/backend/internal/domain"
)

// Locator provides the device position. Implementations return
// domain.ErrGeolocationDenied when the user refuses access.
type Locator interface {
	Locate(ctx context.Context) (domain.Coordinates, error)
}

// FixedLocator always reports the same position
type FixedLocator struct {
	Coordinates domain.Coordinates
}

// Locate returns the fixed position
func (l FixedLocator) Locate(ctx context.Context) (domain.Coordinates, error) {
	return l.Coordinates, nil
}
