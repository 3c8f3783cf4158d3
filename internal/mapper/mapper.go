// Package mapper converts coordinates into grid cell identifiers.
package mapper

import (
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
)

type Interface interface {
	CellFor(lat, lon float64, res int) (string, error)
	Annotate(locs []model.DistrictLocation, res int) ([]model.DistrictLocation, error)
}
