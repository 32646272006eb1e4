package geo

import (
	"context"
	"errors"

	"github.com/example/ebike-ride/internal/models"
)

// ErrLocationUnavailable is returned when no position fix can be produced.
var ErrLocationUnavailable = errors.New("location unavailable")

// Locator supplies the rider's current position.
type Locator interface {
	Locate(ctx context.Context) (models.Coord, error)
}

// Fixed always reports the same position.
type Fixed models.Coord

func (f Fixed) Locate(ctx context.Context) (models.Coord, error) {
	if err := ctx.Err(); err != nil {
		return models.Coord{}, err
	}
	return models.Coord(f), nil
}

// Unavailable never produces a fix. Used when the device has no positioning.
type Unavailable struct{}

func (Unavailable) Locate(context.Context) (models.Coord, error) {
	return models.Coord{}, ErrLocationUnavailable
}
