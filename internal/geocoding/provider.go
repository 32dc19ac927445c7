package geocoding

import (
	"context"

	"github.com/UnknownOlympus/mapwatch/internal/models"
)

// Provider resolves coordinates into a human readable place name.
// It is used to annotate failed accuracy checks with where the map actually
// pointed.
type Provider interface {
	ReverseGeocode(ctx context.Context, coords models.Coordinates) (string, error)
}
