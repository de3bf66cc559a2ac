package external

import (
	"github.com/patchsim/engine/entity"
	"github.com/patchsim/engine/handler"
	"github.com/patchsim/engine/ident"
)

// PatchCell is one constructed grid cell: its entity, grid coordinate, and
// deterministic patch id string (spec §6: "Each patch receives geometry =
// the cell rectangle and a deterministic patch id").
type PatchCell struct {
	Entity *entity.Entity
	I, J   int
	ID     string
}

// BuildPatchSet constructs the uniform grid of spec §6's
// `(extent, cell_size, default_patch_type) -> grid of Patch entities`.
// runSeed seeds the deterministic patch-id encoding (ident.PatchID), kept
// independent of patch construction order.
func BuildPatchSet(cfg GridConfig, patchType *handler.EntityType, initialState string, runSeed int64) []PatchCell {
	cols, rows := cfg.Dims()
	if cols <= 0 || rows <= 0 {
		return nil
	}
	cells := make([]PatchCell, 0, cols*rows)
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			geometry := cfg.CellRect(i, j)
			e := entity.New(patchType, initialState, geometry, nil)
			cells = append(cells, PatchCell{
				Entity: e,
				I:      i,
				J:      j,
				ID:     ident.PatchID(runSeed, i, j),
			})
		}
	}
	return cells
}
