package h3mapper

import (
	"fmt"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
)

type Mapper struct{}

func New() *Mapper { return &Mapper{} }

// CellFor returns the H3 cell containing (lat, lon) at res, in hex string form.
func (m *Mapper) CellFor(lat, lon float64, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	c, err := h3.LatLngToCell(h3.NewLatLng(lat, lon), res)
	if err != nil {
		return "", fmt.Errorf("h3 cell for %.4f,%.4f: %w", lat, lon, err)
	}
	return c.String(), nil
}

// Annotate returns a copy of locs with Cell set at res. The input is not modified.
func (m *Mapper) Annotate(locs []model.DistrictLocation, res int) ([]model.DistrictLocation, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	out := make([]model.DistrictLocation, len(locs))
	for i, l := range locs {
		cell, err := m.CellFor(l.Latitude, l.Longitude, res)
		if err != nil {
			return nil, fmt.Errorf("district %s: %w", l.DistrictCode, err)
		}
		l.Cell = cell
		out[i] = l
	}
	return out, nil
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}
