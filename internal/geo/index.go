package geo

import "github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"

// Index is an immutable snapshot of district centroids in insertion order.
type Index struct {
	entries []model.DistrictLocation
}

func NewIndex(locs []model.DistrictLocation) *Index {
	entries := make([]model.DistrictLocation, len(locs))
	copy(entries, locs)
	return &Index{entries: entries}
}

func (ix *Index) Len() int { return len(ix.entries) }

// FindNearest returns the closest entry within maxRadiusKm (inclusive), or false when the
// index is empty or nothing is in range. Equal distances keep the first entry inserted.
// Callers validate coordinates first; see ValidateCoordinates.
func (ix *Index) FindNearest(lat, lon, maxRadiusKm float64) (model.NearestDistrict, bool) {
	if len(ix.entries) == 0 {
		return model.NearestDistrict{}, false
	}

	best := -1
	bestKm := 0.0
	for i, e := range ix.entries {
		d := Haversine(lat, lon, e.Latitude, e.Longitude)
		if best < 0 || d < bestKm {
			best, bestKm = i, d
		}
	}
	if bestKm > maxRadiusKm {
		return model.NearestDistrict{}, false
	}
	return model.NearestDistrict{
		DistrictLocation: ix.entries[best],
		DistanceKm:       roundTenth(bestKm),
	}, true
}
