package h3mapper

import (
	"testing"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
)

func TestCellFor_StableAndResolutionChecked(t *testing.T) {
	m := New()
	a, err := m.CellFor(19.0760, 72.8777, 7)
	if err != nil {
		t.Fatalf("CellFor: %v", err)
	}
	b, err := m.CellFor(19.0760, 72.8777, 7)
	if err != nil {
		t.Fatalf("CellFor: %v", err)
	}
	if a == "" || a != b {
		t.Fatalf("cells not stable: %q vs %q", a, b)
	}
	if _, err := m.CellFor(19, 72, 16); err == nil {
		t.Fatal("expected error for res 16")
	}
}

func TestAnnotate_SetsCellsWithoutMutatingInput(t *testing.T) {
	m := New()
	in := []model.DistrictLocation{
		{DistrictCode: "MH01", Latitude: 19.0760, Longitude: 72.8777},
		{DistrictCode: "MH05", Latitude: 18.5204, Longitude: 73.8567},
	}
	out, err := m.Annotate(in, 5)
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if in[0].Cell != "" {
		t.Fatal("input slice was modified")
	}
	if out[0].Cell == "" || out[1].Cell == "" {
		t.Fatalf("cells missing: %+v", out)
	}
	if out[0].Cell == out[1].Cell {
		t.Fatal("mumbai and pune should not share a res-5 cell")
	}
}
